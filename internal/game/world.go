package game

// World is the pure physics state: balls, table, tuning, and the event
// record for the shot in flight. It performs no I/O; renderers and sound
// players observe it through the listener interfaces.
type World struct {
	Balls  [NumBalls]*Ball
	Table  *Table
	Tuning Tuning

	Events *ShotEvents
	sound  SoundEmitter

	accumulator float64
}

// NewWorld builds a world with a racked ball set.
func NewWorld(t Tuning) *World {
	w := &World{
		Table:  NewTable(t),
		Tuning: t,
		Events: NewShotEvents(),
	}
	w.Rack()
	return w
}

// SetSoundEmitter attaches the audio listener. A nil emitter is allowed.
func (w *World) SetSoundEmitter(s SoundEmitter) {
	w.sound = s
}

// Rack places all balls at their starting positions, active and at rest.
func (w *World) Rack() {
	positions := RackPositions(w.Tuning)
	for i := 0; i < NumBalls; i++ {
		w.Balls[i] = &Ball{
			ID:       i,
			Position: positions[i],
			Active:   true,
			Grip:     1,
		}
	}
	w.Events.Reset()
	w.accumulator = 0
}

// Strike sets the cue ball in motion. Direction must be a unit vector;
// power is clamped to the tuning maximum.
func (w *World) Strike(dir Vec2, power, screw, english float64) {
	t := &w.Tuning
	if power > t.MaxShotPower {
		power = t.MaxShotPower
	}
	if power < 0 {
		power = 0
	}

	for _, b := range w.Balls {
		b.resetShotState()
	}
	w.Events.Reset()
	w.accumulator = 0

	cue := w.Balls[0]
	cue.Velocity = dir.Normalize().Times(power)
	cue.Screw = screw
	cue.English = english

	w.emitSound(SoundCueStrike, power)
}

// Advance accumulates elapsed wall-clock time and runs fixed sub-steps,
// capped per frame. Excess accumulated time is dropped so a stalled frame
// cannot spiral into an unbounded catch-up burst.
func (w *World) Advance(elapsed float64) {
	t := &w.Tuning
	w.accumulator += elapsed

	steps := 0
	for w.accumulator >= t.Timestep && steps < t.MaxSubSteps {
		w.step()
		w.accumulator -= t.Timestep
		steps++
	}
	if w.accumulator >= t.Timestep {
		w.accumulator = 0
	}
}

// Settle runs sub-steps until every ball stops. Used for headless replay
// of remote shots and in tests; bounded to keep a degenerate state from
// hanging the caller.
func (w *World) Settle() {
	const maxSteps = 120 * 60 // one simulated minute
	for i := 0; i < maxSteps && !w.Settled(); i++ {
		w.step()
	}
}

// Settled reports whether every active ball is at rest and no screw
// impulse is still pending.
func (w *World) Settled() bool {
	for _, b := range w.Balls {
		if b.Active && !b.Velocity.IsZero() {
			return false
		}
	}
	if w.Balls[0].Active && !w.Balls[0].PendingSpin.IsZero() {
		return false
	}
	return true
}

// step advances the world by exactly one fixed timestep.
func (w *World) step() {
	t := &w.Tuning
	dt := t.Timestep

	fastest := 0.0
	for _, b := range w.Balls {
		if !b.Active {
			continue
		}
		w.integrateBall(b, dt)
		if s := b.Speed(); s > fastest {
			fastest = s
		}
	}

	// One iteration suffices when nothing is moving fast; three approximate
	// sequential-impulse convergence during the break.
	iterations := 3
	if fastest < t.SlowIterationSpeed {
		iterations = 1
	}
	for i := 0; i < iterations; i++ {
		w.resolveBallPairs()
	}

	for _, b := range w.Balls {
		if b.Active {
			w.collideCushions(b)
		}
	}
	w.resolvePockets()
}

// integrateBall applies the per-sub-step motion model to one ball.
func (w *World) integrateBall(b *Ball, dt float64) {
	t := &w.Tuning

	// Pending screw impulse pays out as a decaying geometric series.
	if !b.PendingSpin.IsZero() {
		b.Velocity = b.Velocity.Plus(b.PendingSpin)
		b.PendingSpin = b.PendingSpin.Times(t.ScrewDecay)
		if b.PendingSpin.Magnitude() < t.ScrewCutoff {
			b.PendingSpin = Vec2{}
		}
	}

	b.Position = b.Position.Plus(b.Velocity.Times(dt))

	speed := b.Speed()
	if speed > t.MaxBallSpeed {
		b.Velocity = b.Velocity.Times(t.MaxBallSpeed / speed)
		speed = t.MaxBallSpeed
	}

	// Linear friction down to the stop threshold, then snap to rest.
	speed -= t.Friction * dt
	if speed < t.StopThreshold {
		b.Velocity = Vec2{}
	} else {
		b.Velocity = b.Velocity.Normalize().Times(speed)
		// Rolling damping on top of the linear term.
		b.Velocity = b.Velocity.Times(fix(1 - t.RollDamping*dt))
	}

	// Lateral spin decays at a fixed rate.
	decay := t.SpinDecay * dt
	switch {
	case b.YSpin > decay:
		b.YSpin = fix(b.YSpin - decay)
	case b.YSpin < -decay:
		b.YSpin = fix(b.YSpin + decay)
	default:
		b.YSpin = 0
	}

	// Swerve: spinning balls curve perpendicular to their travel.
	if b.YSpin != 0 && !b.Velocity.IsZero() {
		perp := b.Velocity.LeftNormal().Normalize()
		accel := t.CurveFactor * b.YSpin * b.Velocity.Magnitude()
		b.Velocity = b.Velocity.Plus(perp.Times(accel * dt))
	}

	if b.Grip < 1 {
		b.Grip += t.GripRecovery * dt
		if b.Grip > 1 {
			b.Grip = 1
		}
	}
}

// emitSound forwards a trigger with a volume scaled by impact speed.
func (w *World) emitSound(name string, speed float64) {
	if w.sound == nil {
		return
	}
	vol := speed / w.Tuning.MaxShotPower
	if vol > 1 {
		vol = 1
	}
	if vol < 0 {
		vol = 0
	}
	w.sound.PlaySound(SoundEvent{Name: name, Volume: vol})
}

// Snapshot copies the current ball states for presenters.
func (w *World) Snapshot() [NumBalls]Ball {
	var out [NumBalls]Ball
	for i, b := range w.Balls {
		out[i] = *b
		out[i].pull = nil
	}
	return out
}
