package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ShotData is the wire format for an in-progress shot. Direction must be a
// unit vector. Both peers apply the identical input deterministically, so
// this is all that travels before the authoritative snapshot.
type ShotData struct {
	Direction Vec2    `json:"direction"`
	Power     float64 `json:"power"`
	Screw     float64 `json:"screw,omitempty"`
	English   float64 `json:"english,omitempty"`
}

// WireBall is one ball in a GameState snapshot.
type WireBall struct {
	ID     int  `json:"id"`
	Pos    Vec2 `json:"pos"`
	Vel    Vec2 `json:"vel"`
	Active bool `json:"active"`
}

// GameState is the authoritative post-shot snapshot exchanged over the
// network. Applying it is a full overwrite, never a merge.
type GameState struct {
	Balls      []WireBall `json:"balls"`
	Turn       string     `json:"turn"` // "p1" or "p2"
	P1Target   Target     `json:"p1Target"`
	P2Target   Target     `json:"p2Target"`
	BallInHand bool       `json:"ballInHand"`
	Winner     *string    `json:"winner"`
	Foul       bool       `json:"foul"`
	ShotNumber int        `json:"shotNumber"`
	P1Score    int        `json:"p1Score"`
	P2Score    int        `json:"p2Score"`
	Message    string     `json:"message"`
}

// ShotOutcome is delivered to the shot listener once a shot has settled and
// the rules have run.
type ShotOutcome struct {
	Shooter  int // 1 or 2
	Shot     ShotData
	Verdict  Verdict
	Pocketed []int
	State    GameState
}

// Session drives one 8-ball game: the shot lifecycle, the rule engine, the
// optional AI opponent, and the sync surface. All mutation happens on the
// tick path; network and timer callbacks enqueue work instead of touching
// state directly.
type Session struct {
	ID    string
	Token string

	mu        sync.Mutex
	world     *World
	planner   *Planner
	aiPlayer  int // 0 when both seats are human
	presenter Presenter
	onSettled func(ShotOutcome)

	turn         int // 1 or 2
	targets      [2]Target
	ballInHand   bool
	winner       int // 0 while the game runs
	lastFoul     bool
	shotNumber   int
	scores       [2]int
	message      string
	isBreak      bool
	calledPocket int

	shotRunning bool
	shooter     int
	currentShot ShotData

	simTime    float64
	aiDeadline float64 // simulation-time think deadline, <0 when unarmed

	pending []func() // remote messages queued while a shot runs
}

// NewSession creates a racked game. aiLevel 0 means two human seats;
// 1..5 puts the AI in seat 2 at that difficulty.
func NewSession(id, token string, tuning Tuning, aiLevel int, seed int64) *Session {
	s := &Session{
		ID:           id,
		Token:        token,
		world:        NewWorld(tuning),
		turn:         1,
		targets:      [2]Target{TargetAny, TargetAny},
		isBreak:      true,
		calledPocket: -1,
		aiDeadline:   -1,
	}
	if aiLevel > 0 {
		s.aiPlayer = 2
		s.planner = NewPlanner(ProfileForLevel(aiLevel), seed)
	}
	return s
}

// SetPresenter attaches the frame consumer.
func (s *Session) SetPresenter(p Presenter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presenter = p
}

// SetSoundEmitter attaches the audio consumer.
func (s *Session) SetSoundEmitter(e SoundEmitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world.SetSoundEmitter(e)
}

// SetShotListener attaches the settle callback. It is invoked outside the
// session lock.
func (s *Session) SetShotListener(fn func(ShotOutcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettled = fn
}

// TakeShot validates and executes a local shot for the given seat.
func (s *Session) TakeShot(player int, data ShotData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeShotLocked(player, data)
}

func (s *Session) takeShotLocked(player int, data ShotData) error {
	t := &s.world.Tuning

	if s.winner != 0 {
		return errors.New("game is over")
	}
	if s.turn != player {
		return errors.New("not your turn")
	}
	if s.shotRunning {
		return errors.New("a shot is already in progress")
	}
	if data.Power < t.MinShotPower || data.Power > t.MaxShotPower {
		return errors.New("invalid power")
	}
	if !s.world.Balls[0].Active {
		return errors.New("cue ball is not on the table")
	}

	s.world.Strike(data.Direction, data.Power, data.Screw, data.English)
	s.shotRunning = true
	s.shooter = player
	s.currentShot = data
	s.ballInHand = false
	return nil
}

// ApplyRemoteShot replays a peer's shot through the exact same execution
// path used locally. Arriving mid-shot it is queued for the next idle tick
// to preserve single-writer determinism.
func (s *Session) ApplyRemoteShot(player int, data ShotData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winner != 0 {
		return // late message after game over
	}
	if s.shotRunning {
		s.pending = append(s.pending, func() {
			if err := s.takeShotLocked(player, data); err != nil {
				log.Printf("[POOL] queued remote shot dropped: %v", err)
			}
		})
		return
	}
	if err := s.takeShotLocked(player, data); err != nil {
		log.Printf("[POOL] remote shot rejected: %v", err)
	}
}

// PlaceCueBall repositions the cue ball for ball-in-hand. An invalid spot
// is rejected and the cue ball stays where it was.
func (s *Session) PlaceCueBall(player int, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeCueBallLocked(player, x, y)
}

func (s *Session) placeCueBallLocked(player int, x, y float64) error {
	if s.winner != 0 {
		return errors.New("game is over")
	}
	if s.turn != player {
		return errors.New("not your turn")
	}
	if !s.ballInHand {
		return errors.New("not ball-in-hand")
	}
	if s.shotRunning {
		return errors.New("a shot is in progress")
	}

	t := &s.world.Tuning
	pos := NewVec2(x, y)
	r := t.BallRadius

	if pos.X-r < s.world.Table.XMin || pos.X+r > s.world.Table.XMax ||
		pos.Y-r < s.world.Table.YMin || pos.Y+r > s.world.Table.YMax {
		return errors.New("position out of bounds")
	}
	for _, b := range s.world.Balls {
		if !b.Active || b.ID == 0 {
			continue
		}
		if pos.DistanceTo(b.Position) < t.PlacementClearance*2*r {
			return errors.New("too close to another ball")
		}
	}

	cue := s.world.Balls[0]
	cue.Position = pos
	cue.Velocity = Vec2{}
	cue.Active = true
	s.ballInHand = false
	return nil
}

// CallPocket declares the pocket for an upcoming 8-ball shot.
func (s *Session) CallPocket(player, pocketID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.turn != player {
		return errors.New("not your turn")
	}
	if s.targets[player-1] != TargetEight {
		return errors.New("8-ball is not your target")
	}
	if pocketID < 0 || pocketID >= len(s.world.Table.Pockets) {
		return errors.New("no such pocket")
	}
	s.calledPocket = pocketID
	return nil
}

// Advance moves the session forward by elapsed wall-clock seconds: physics
// while a shot runs, then rule evaluation at settle; queued remote work and
// the AI think deadline otherwise.
func (s *Session) Advance(elapsed float64) {
	s.mu.Lock()
	var outcome *ShotOutcome

	s.simTime += elapsed

	if s.shotRunning {
		s.world.Advance(elapsed)
		if s.presenter != nil {
			s.presenter.PresentFrame(s.world.Snapshot())
		}
		if s.world.Settled() {
			outcome = s.finishShotLocked()
		}
	} else {
		if len(s.pending) > 0 {
			queued := s.pending
			s.pending = nil
			for _, fn := range queued {
				fn()
			}
		}
		s.tickAILocked()
	}

	fn := s.onSettled
	s.mu.Unlock()

	if outcome != nil && fn != nil {
		fn(*outcome)
	}
}

// finishShotLocked hands the accumulated shot events to the rule engine
// and applies the verdict. Rule evaluation never happens mid-motion; the
// caller has already confirmed settlement.
func (s *Session) finishShotLocked() *ShotOutcome {
	shooter := s.shooter
	opponent := 3 - shooter

	v := EvaluateShot(RuleInput{
		Events:         s.world.Events,
		Balls:          &s.world.Balls,
		ShooterTarget:  s.targets[shooter-1],
		OpponentTarget: s.targets[opponent-1],
		IsBreak:        s.isBreak,
		CalledPocket:   s.calledPocket,
		Tuning:         &s.world.Tuning,
	})

	pocketed := s.world.Events.PocketedIDs()

	s.shotRunning = false
	s.shotNumber++
	s.isBreak = false
	s.calledPocket = -1
	s.lastFoul = v.Foul != nil
	s.message = v.Message
	s.targets[shooter-1] = v.ShooterTarget
	s.targets[opponent-1] = v.OpponentTarget
	s.scores[shooter-1] += v.PocketedOwn

	switch {
	case v.GameOver:
		if v.ShooterWins {
			s.winner = shooter
		} else {
			s.winner = opponent
		}
		s.ballInHand = false
		s.world.emitSound(SoundVictory, s.world.Tuning.MaxShotPower)
	case v.Foul != nil:
		s.turn = opponent
		s.ballInHand = true
	case v.ContinueTurn:
		s.ballInHand = false
	default:
		s.turn = opponent
		s.ballInHand = false
	}

	s.world.Events.Reset()
	s.aiDeadline = -1

	log.Printf("[POOL] shot #%d by p%d pocketed=%v foul=%v winner=%d next=p%d",
		s.shotNumber, shooter, pocketed, v.Foul != nil, s.winner, s.turn)

	return &ShotOutcome{
		Shooter:  shooter,
		Shot:     s.currentShot,
		Verdict:  v,
		Pocketed: pocketed,
		State:    s.stateLocked(),
	}
}

// tickAILocked arms and fires the AI think deadline in simulation time, so
// replays and tests never depend on wall-clock timers.
func (s *Session) tickAILocked() {
	if s.aiPlayer == 0 || s.winner != 0 || s.turn != s.aiPlayer {
		s.aiDeadline = -1
		return
	}
	if s.aiDeadline < 0 {
		s.aiDeadline = s.simTime + s.world.Tuning.AIThinkDelay
		return
	}
	if s.simTime < s.aiDeadline {
		return
	}
	s.aiDeadline = -1

	target := s.targets[s.aiPlayer-1]
	if s.ballInHand {
		pos := s.planner.PlaceCueBall(s.world, target)
		if err := s.placeCueBallLocked(s.aiPlayer, pos.X, pos.Y); err != nil {
			log.Printf("[AI] placement rejected, keeping cue position: %v", err)
			s.ballInHand = false
		}
	}

	plan := s.planner.PlanShot(s.world, target)
	if plan.CalledPocket >= 0 {
		s.calledPocket = plan.CalledPocket
	}
	if err := s.takeShotLocked(s.aiPlayer, ShotData{Direction: plan.Direction, Power: plan.Power}); err != nil {
		log.Printf("[AI] shot rejected: %v", err)
	}
}

// ResetRack starts a fresh rack. Any pending AI think deadline is
// invalidated so a stale shot cannot fire into the new table.
func (s *Session) ResetRack() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.world.Rack()
	s.turn = 1
	s.targets = [2]Target{TargetAny, TargetAny}
	s.ballInHand = false
	s.winner = 0
	s.lastFoul = false
	s.shotNumber = 0
	s.scores = [2]int{}
	s.message = ""
	s.isBreak = true
	s.calledPocket = -1
	s.shotRunning = false
	s.aiDeadline = -1
	s.pending = nil
}

// GetState returns the full network-serializable snapshot.
func (s *Session) GetState() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() GameState {
	st := GameState{
		Balls:      make([]WireBall, 0, NumBalls),
		Turn:       playerLabel(s.turn),
		P1Target:   s.targets[0],
		P2Target:   s.targets[1],
		BallInHand: s.ballInHand,
		Foul:       s.lastFoul,
		ShotNumber: s.shotNumber,
		P1Score:    s.scores[0],
		P2Score:    s.scores[1],
		Message:    s.message,
	}
	if s.winner != 0 {
		w := playerLabel(s.winner)
		st.Winner = &w
	}
	for _, b := range s.world.Balls {
		st.Balls = append(st.Balls, WireBall{
			ID:     b.ID,
			Pos:    b.Position,
			Vel:    b.Velocity,
			Active: b.Active,
		})
	}
	return st
}

// ApplyState overwrites local state with an authoritative remote snapshot.
// Unknown ball ids are ignored per-ball; a snapshot arriving after the game
// has ended locally is discarded.
func (s *Session) ApplyState(st GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winner != 0 {
		return
	}
	// A game-ending snapshot (concede, forfeit) overrides a shot in flight;
	// anything else waits for the settle so the verdict stays consistent.
	if s.shotRunning && st.Winner == nil {
		snap := st
		s.pending = append(s.pending, func() { s.applyStateLocked(snap) })
		return
	}
	s.applyStateLocked(st)
}

func (s *Session) applyStateLocked(st GameState) {
	for _, wb := range st.Balls {
		if wb.ID < 0 || wb.ID >= NumBalls {
			continue
		}
		b := s.world.Balls[wb.ID]
		b.Position = wb.Pos
		b.Velocity = wb.Vel
		b.Active = wb.Active
	}
	s.turn = playerIndex(st.Turn)
	s.targets[0] = st.P1Target
	s.targets[1] = st.P2Target
	s.ballInHand = st.BallInHand
	s.lastFoul = st.Foul
	s.shotNumber = st.ShotNumber
	s.scores[0] = st.P1Score
	s.scores[1] = st.P2Score
	s.message = st.Message
	if st.Winner != nil {
		s.winner = playerIndex(*st.Winner)
		s.shotRunning = false
		s.pending = nil
		s.aiDeadline = -1
	} else {
		s.winner = 0
	}
	s.isBreak = st.ShotNumber == 0
}

// Winner returns 0 while the game runs, else the winning seat.
func (s *Session) Winner() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// CurrentTurn returns the seat to shoot.
func (s *Session) CurrentTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// ShotRunning reports whether balls are still moving.
func (s *Session) ShotRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shotRunning
}

// Run drives the session at the given frame interval until the context is
// canceled. This is the single mutator of simulation state.
func (s *Session) Run(ctx context.Context, frame time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Advance(now.Sub(last).Seconds())
			last = now
		}
	}
}

func playerLabel(player int) string {
	if player == 2 {
		return "p2"
	}
	return "p1"
}

func playerIndex(label string) int {
	if label == "p2" {
		return 2
	}
	return 1
}
