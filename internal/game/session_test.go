package game

import (
	"reflect"
	"testing"
)

func newTestSession(aiLevel int) *Session {
	return NewSession("s1", "tok", DefaultTuning(), aiLevel, 1)
}

// settle drives the session until the running shot finishes.
func settle(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < 5000; i++ {
		if !s.ShotRunning() {
			return
		}
		s.Advance(0.05)
	}
	t.Fatal("shot never settled")
}

// missShot aims away from every ball so the shot ends in a no-contact foul.
func missShot() ShotData {
	return ShotData{Direction: NewVec2(-1, 0), Power: 200}
}

func TestTakeShotValidation(t *testing.T) {
	s := newTestSession(0)

	if err := s.TakeShot(2, missShot()); err == nil {
		t.Error("out-of-turn shot accepted")
	}
	if err := s.TakeShot(1, ShotData{Direction: NewVec2(1, 0), Power: 5}); err == nil {
		t.Error("underpowered shot accepted")
	}
	if err := s.TakeShot(1, missShot()); err != nil {
		t.Fatalf("legal shot rejected: %v", err)
	}
	if !s.ShotRunning() {
		t.Fatal("shot not running after strike")
	}
	if err := s.TakeShot(1, missShot()); err == nil {
		t.Error("second shot accepted while balls are moving")
	}
}

func TestNoContactShotFoulsAndPassesTurn(t *testing.T) {
	s := newTestSession(0)

	var got *ShotOutcome
	s.SetShotListener(func(out ShotOutcome) {
		// The listener runs outside the session lock; reading state here
		// must not deadlock.
		_ = s.GetState()
		got = &out
	})

	if err := s.TakeShot(1, missShot()); err != nil {
		t.Fatalf("shot rejected: %v", err)
	}
	settle(t, s)

	if got == nil {
		t.Fatal("shot listener never fired")
	}
	if got.Verdict.Foul == nil || got.Verdict.Foul.Type != FoulNoContact {
		t.Fatalf("verdict = %+v, want NO_CONTACT", got.Verdict)
	}
	if s.CurrentTurn() != 2 {
		t.Errorf("turn = %d, want 2 after foul", s.CurrentTurn())
	}
	if !got.State.BallInHand {
		t.Error("foul must grant ball-in-hand in the broadcast state")
	}
	if got.State.ShotNumber != 1 {
		t.Errorf("shot number = %d, want 1", got.State.ShotNumber)
	}
}

func TestStateRoundTripIsLossless(t *testing.T) {
	s1 := newTestSession(0)
	s1.world.Balls[3].Active = false
	s1.turn = 2
	s1.targets = [2]Target{TargetSolids, TargetStripes}
	s1.scores = [2]int{2, 1}
	s1.shotNumber = 6
	s1.lastFoul = true
	s1.ballInHand = true
	s1.message = "Cue ball pocketed"

	st := s1.GetState()

	s2 := newTestSession(0)
	s2.ApplyState(st)
	if got := s2.GetState(); !reflect.DeepEqual(st, got) {
		t.Errorf("state did not survive the round trip:\n got %+v\nwant %+v", got, st)
	}

	// Re-applying a session's own snapshot must be a no-op.
	s1.ApplyState(st)
	if got := s1.GetState(); !reflect.DeepEqual(st, got) {
		t.Errorf("self-apply changed state:\n got %+v\nwant %+v", got, st)
	}
}

func TestApplyStateIgnoredAfterGameOver(t *testing.T) {
	s := newTestSession(0)

	win := s.GetState()
	p1 := "p1"
	win.Winner = &p1
	s.ApplyState(win)
	if s.Winner() != 1 {
		t.Fatalf("winner = %d, want 1", s.Winner())
	}

	late := s.GetState()
	p2 := "p2"
	late.Winner = &p2
	s.ApplyState(late)
	if s.Winner() != 1 {
		t.Error("snapshot after game over must be discarded")
	}
}

func TestApplyStateSkipsUnknownBallIDs(t *testing.T) {
	s := newTestSession(0)
	st := s.GetState()
	st.Balls = append(st.Balls, WireBall{ID: 99, Active: true})
	s.ApplyState(st)

	if got := s.GetState(); len(got.Balls) != NumBalls {
		t.Errorf("ball count = %d, want %d", len(got.Balls), NumBalls)
	}
}

func TestRemoteShotQueuedWhileBallsMove(t *testing.T) {
	s := newTestSession(0)

	if err := s.TakeShot(1, missShot()); err != nil {
		t.Fatalf("shot rejected: %v", err)
	}
	s.ApplyRemoteShot(2, missShot())
	if len(s.pending) != 1 {
		t.Fatalf("pending = %d, want 1 queued remote shot", len(s.pending))
	}

	settle(t, s)

	// The no-contact foul passed the turn to seat 2, so the queued shot
	// becomes legal on the next idle tick.
	s.Advance(0.01)
	if len(s.pending) != 0 {
		t.Error("queue not drained on idle tick")
	}
	if !s.ShotRunning() || s.shooter != 2 {
		t.Errorf("queued shot not executing: running=%v shooter=%d", s.ShotRunning(), s.shooter)
	}
}

func TestWinningSnapshotOverridesRunningShot(t *testing.T) {
	s := newTestSession(0)

	if err := s.TakeShot(1, missShot()); err != nil {
		t.Fatalf("shot rejected: %v", err)
	}

	// A concede arriving mid-shot must take effect immediately, not wait
	// in the queue for a settle that may never be ticked.
	st := s.GetState()
	p2 := "p2"
	st.Winner = &p2
	s.ApplyState(st)

	if s.Winner() != 2 {
		t.Fatalf("winner = %d, want 2", s.Winner())
	}
	if s.ShotRunning() {
		t.Error("shot still marked running after the game ended")
	}
	if len(s.pending) != 0 {
		t.Error("ended game left queued work behind")
	}
}

func TestPlacementRejectionKeepsCuePosition(t *testing.T) {
	s := newTestSession(0)
	s.ballInHand = true
	orig := s.world.Balls[0].Position

	eight := s.world.Balls[8].Position
	if err := s.PlaceCueBall(1, eight.X+10, eight.Y); err == nil {
		t.Fatal("placement on top of a ball accepted")
	}
	if s.world.Balls[0].Position != orig {
		t.Error("rejected placement moved the cue ball")
	}
	if !s.ballInHand {
		t.Error("rejected placement consumed ball-in-hand")
	}

	if err := s.PlaceCueBall(1, 9999, 0); err == nil {
		t.Fatal("out-of-bounds placement accepted")
	}

	if err := s.PlaceCueBall(1, -300, 300); err != nil {
		t.Fatalf("legal placement rejected: %v", err)
	}
	if s.world.Balls[0].Position != NewVec2(-300, 300) {
		t.Errorf("cue at %+v, want (-300,300)", s.world.Balls[0].Position)
	}
	if s.ballInHand {
		t.Error("legal placement must consume ball-in-hand")
	}
}

type framePresenter struct {
	frames int
}

func (p *framePresenter) PresentFrame(balls [NumBalls]Ball) { p.frames++ }

func TestPresenterReceivesFramesWhileShotRuns(t *testing.T) {
	s := newTestSession(0)
	p := &framePresenter{}
	s.SetPresenter(p)

	if err := s.TakeShot(1, missShot()); err != nil {
		t.Fatalf("shot rejected: %v", err)
	}
	settle(t, s)

	if p.frames == 0 {
		t.Error("presenter never received a frame")
	}

	// Idle ticks must not push frames.
	before := p.frames
	s.Advance(0.05)
	if p.frames != before {
		t.Error("presenter fed frames while the table was at rest")
	}
}

func TestCallPocketRequiresEightPhase(t *testing.T) {
	s := newTestSession(0)

	if err := s.CallPocket(1, 2); err == nil {
		t.Error("call accepted before the 8-ball phase")
	}

	s.targets[0] = TargetEight
	if err := s.CallPocket(1, 99); err == nil {
		t.Error("nonexistent pocket accepted")
	}
	if err := s.CallPocket(1, 2); err != nil {
		t.Fatalf("legal call rejected: %v", err)
	}
	if s.calledPocket != 2 {
		t.Errorf("called pocket = %d, want 2", s.calledPocket)
	}
}

func TestAIShootsAfterThinkDelay(t *testing.T) {
	s := newTestSession(5)
	s.turn = 2

	s.Advance(0.1)
	if s.aiDeadline < 0 {
		t.Fatal("AI deadline not armed on the AI's turn")
	}

	for i := 0; i < 10 && !s.ShotRunning(); i++ {
		s.Advance(0.5)
	}
	if !s.ShotRunning() || s.shooter != 2 {
		t.Errorf("AI never shot: running=%v shooter=%d", s.ShotRunning(), s.shooter)
	}
}

func TestAIDeadlineUnarmedOnHumanTurn(t *testing.T) {
	s := newTestSession(3)
	s.Advance(0.1)
	if s.aiDeadline >= 0 {
		t.Error("AI deadline armed while the human is shooting")
	}
}

func TestResetRackCancelsAIThink(t *testing.T) {
	s := newTestSession(3)
	s.turn = 2
	s.Advance(0.1)
	if s.aiDeadline < 0 {
		t.Fatal("AI deadline not armed")
	}

	s.ResetRack()

	if s.aiDeadline >= 0 {
		t.Error("reset left a stale AI deadline armed")
	}
	if s.CurrentTurn() != 1 || s.Winner() != 0 || !s.isBreak {
		t.Errorf("rack not reset: turn=%d winner=%d break=%v", s.turn, s.winner, s.isBreak)
	}
	st := s.GetState()
	if st.ShotNumber != 0 || st.P1Score != 0 || st.P2Score != 0 {
		t.Errorf("counters not reset: %+v", st)
	}
}
