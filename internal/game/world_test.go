package game

import (
	"math"
	"testing"
)

// newTestWorld returns a racked world with default tuning and no listeners.
func newTestWorld() *World {
	return NewWorld(DefaultTuning())
}

// clearTable deactivates every object ball, leaving only the cue.
func clearTable(w *World) {
	for _, b := range w.Balls {
		if b.ID != 0 {
			b.Active = false
		}
	}
}

// placeBall activates a ball at rest at the given position.
func placeBall(w *World, id int, x, y float64) {
	b := w.Balls[id]
	b.Active = true
	b.Position = NewVec2(x, y)
	b.Velocity = Vec2{}
}

func TestFreshWorldIsSettled(t *testing.T) {
	w := newTestWorld()
	if !w.Settled() {
		t.Fatal("racked world should start at rest")
	}
	for _, b := range w.Balls {
		if !b.Active {
			t.Errorf("ball %d inactive after rack", b.ID)
		}
	}
}

func TestStraightShotStopsFromFriction(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	placeBall(w, 0, -600, 0)

	w.Strike(NewVec2(1, 0), 500, 0, 0)
	w.Settle()

	cue := w.Balls[0]
	if !cue.Velocity.IsZero() {
		t.Fatalf("cue still moving after settle: %+v", cue.Velocity)
	}
	if cue.Position.X <= -600 {
		t.Errorf("cue did not travel forward: x=%v", cue.Position.X)
	}
	if math.Abs(cue.Position.Y) > 1 {
		t.Errorf("straight shot drifted sideways: y=%v", cue.Position.Y)
	}
}

func TestHeadOnCollisionTransfersMomentum(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	placeBall(w, 0, -300, 0)
	placeBall(w, 1, 0, 0)

	w.Strike(NewVec2(1, 0), 1200, 0, 0)
	w.Settle()

	if w.Events.FirstContact != 1 {
		t.Fatalf("first contact = %d, want 1", w.Events.FirstContact)
	}
	if w.Balls[1].Position.X <= 0 {
		t.Errorf("object ball did not move forward: x=%v", w.Balls[1].Position.X)
	}
	if w.Balls[0].Position.X >= w.Balls[1].Position.X {
		t.Errorf("cue overtook object ball: cue=%v obj=%v",
			w.Balls[0].Position.X, w.Balls[1].Position.X)
	}
}

func TestCushionReflectionKeepsBallOnTable(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	placeBall(w, 0, 0, 0)

	// Up the table, away from every pocket mouth.
	w.Strike(NewVec2(0.3, 1).Normalize(), 2000, 0, 0)
	w.Settle()

	if !w.Events.CushionBalls[0] {
		t.Fatal("cue never touched a cushion")
	}
	cue := w.Balls[0]
	tb := w.Table
	r := w.Tuning.BallRadius
	if cue.Position.X < tb.XMin-r || cue.Position.X > tb.XMax+r ||
		cue.Position.Y < tb.YMin-r || cue.Position.Y > tb.YMax+r {
		t.Errorf("cue escaped the table: %+v", cue.Position)
	}
}

func TestCushionReducesSpeed(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	b := w.Balls[0]
	// Away from the side pocket mouth so the rail actually reflects.
	b.Position = NewVec2(400, w.Table.YMax-w.Tuning.BallRadius-5)
	b.Velocity = NewVec2(0, 1000)

	w.step()

	if !w.Events.CushionBalls[0] {
		t.Fatal("expected cushion contact")
	}
	if b.Velocity.Y >= 0 {
		t.Errorf("velocity not reflected: vy=%v", b.Velocity.Y)
	}
	if math.Abs(b.Velocity.Y) >= 1000 {
		t.Errorf("cushion restitution did not reduce speed: vy=%v", b.Velocity.Y)
	}
}

func TestPocketCapture(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	p := w.Table.Pockets[0]
	toward := p.Position
	start := toward.Plus(toward.Invert().Normalize().Times(120))
	placeBall(w, 1, start.X, start.Y)
	w.Balls[1].Velocity = toward.Minus(start).Normalize().Times(900)

	w.Settle()

	if w.Balls[1].Active {
		t.Fatal("ball aimed at pocket center was not captured")
	}
	if len(w.Events.Pocketed) != 1 || w.Events.Pocketed[0].BallID != 1 {
		t.Fatalf("pocketed record = %+v", w.Events.Pocketed)
	}
	if w.Events.Pocketed[0].PocketID != p.ID {
		t.Errorf("pocket id = %d, want %d", w.Events.Pocketed[0].PocketID, p.ID)
	}
}

func TestCueScratchRespawnsOnBreakSpot(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	p := w.Table.Pockets[0]
	start := p.Position.Plus(p.Position.Invert().Normalize().Times(120))
	cue := w.Balls[0]
	cue.Position = start
	cue.Velocity = p.Position.Minus(start).Normalize().Times(900)

	w.Settle()

	if !w.Events.CueScratch {
		t.Fatal("scratch not recorded")
	}
	if !cue.Active {
		t.Fatal("cue ball not respawned")
	}
	if cue.Position != w.Tuning.BreakSpot {
		t.Errorf("cue respawned at %+v, want %+v", cue.Position, w.Tuning.BreakSpot)
	}
	if !cue.Velocity.IsZero() {
		t.Errorf("respawned cue still moving: %+v", cue.Velocity)
	}
}

func TestBreakShotScattersRack(t *testing.T) {
	w := newTestWorld()
	before := make([]Vec2, NumBalls)
	for i, b := range w.Balls {
		before[i] = b.Position
	}

	w.Strike(NewVec2(1, 0), w.Tuning.MaxShotPower, 0, 0)
	w.Settle()

	if w.Events.FirstContact == -1 {
		t.Fatal("break never reached the rack")
	}
	moved := 0
	for i := 1; i < NumBalls; i++ {
		if !w.Balls[i].Active || w.Balls[i].Position.DistanceTo(before[i]) > 1 {
			moved++
		}
	}
	if moved < 4 {
		t.Errorf("only %d object balls disturbed by full-power break", moved)
	}
}

func TestIdenticalInputsReplayIdentically(t *testing.T) {
	a := newTestWorld()
	b := newTestWorld()

	dir := NewVec2(1, 0.04).Normalize()
	a.Strike(dir, 3200, -0.4, 0.25)
	b.Strike(dir, 3200, -0.4, 0.25)
	a.Settle()
	b.Settle()

	for i := 0; i < NumBalls; i++ {
		if a.Balls[i].Position != b.Balls[i].Position {
			t.Errorf("ball %d diverged: %+v vs %+v", i, a.Balls[i].Position, b.Balls[i].Position)
		}
		if a.Balls[i].Active != b.Balls[i].Active {
			t.Errorf("ball %d active flag diverged", i)
		}
	}
}

func TestAdvanceDropsExcessTime(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	placeBall(w, 0, 0, 0)
	w.Strike(NewVec2(1, 0), 1000, 0, 0)

	// A stalled frame may owe far more sub-steps than the cap allows; the
	// excess must be discarded, not banked.
	w.Advance(5.0)
	maxTravel := 1000 * w.Tuning.Timestep * float64(w.Tuning.MaxSubSteps)
	if w.Balls[0].Position.X > maxTravel+1 {
		t.Errorf("cue traveled %v, cap allows at most %v", w.Balls[0].Position.X, maxTravel)
	}
	if w.accumulator >= w.Tuning.Timestep {
		t.Errorf("accumulator not drained: %v", w.accumulator)
	}
}

func TestScrewPullsCueBack(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	placeBall(w, 0, -300, 0)
	placeBall(w, 1, 0, 0)

	w.Strike(NewVec2(1, 0), 1500, 1, 0)
	w.Settle()

	// Full backspin: after contact the cue should finish behind the point
	// of impact rather than following through.
	contactX := -2 * w.Tuning.BallRadius
	if w.Balls[0].Position.X > contactX+50 {
		t.Errorf("cue followed through despite full screw: x=%v", w.Balls[0].Position.X)
	}
}

func TestStrikeClampsPower(t *testing.T) {
	w := newTestWorld()
	clearTable(w)
	placeBall(w, 0, 0, 0)

	w.Strike(NewVec2(1, 0), w.Tuning.MaxShotPower*10, 0, 0)
	if speed := w.Balls[0].Speed(); speed > w.Tuning.MaxShotPower+1 {
		t.Errorf("strike speed %v exceeds clamp %v", speed, w.Tuning.MaxShotPower)
	}
}

type recordingSound struct {
	events []SoundEvent
}

func (r *recordingSound) PlaySound(ev SoundEvent) { r.events = append(r.events, ev) }

func TestSoundEventsEmitted(t *testing.T) {
	w := newTestWorld()
	rec := &recordingSound{}
	w.SetSoundEmitter(rec)
	clearTable(w)
	placeBall(w, 0, -300, 0)
	placeBall(w, 1, 0, 0)

	w.Strike(NewVec2(1, 0), 1500, 0, 0)
	w.Settle()

	var sawStrike, sawHit bool
	for _, ev := range rec.events {
		switch ev.Name {
		case SoundCueStrike:
			sawStrike = true
		case SoundBallHit:
			sawHit = true
		}
		if ev.Volume < 0 || ev.Volume > 1 {
			t.Errorf("volume out of range: %+v", ev)
		}
	}
	if !sawStrike || !sawHit {
		t.Errorf("missing sounds: strike=%v hit=%v", sawStrike, sawHit)
	}
}
