package game

// resolvePockets sinks balls within their nearest pocket's capture radius
// and applies the near-miss pull toward pocket centers. The cue ball
// respawns on the break spot immediately after a scratch so the table is
// ready for the next shot; the scratch itself is already recorded.
func (w *World) resolvePockets() {
	t := &w.Tuning

	for _, b := range w.Balls {
		if !b.Active {
			continue
		}
		b.pull = nil

		p := w.Table.NearestPocket(b.Position)
		if p == nil {
			continue
		}
		dist := b.Position.DistanceTo(p.Position)

		if dist < p.SinkRadius(t) {
			w.sinkBall(b, p)
			continue
		}

		if pullRadius := p.PullRadius(t); dist < pullRadius && !b.Velocity.IsZero() {
			b.pull = &pocketPull{
				pocket:    p,
				proximity: fix(1 - dist/pullRadius),
			}
			toward := p.Position.Minus(b.Position).Normalize()
			accel := t.PullStrength * b.pull.proximity * b.Speed()
			b.Velocity = b.Velocity.Plus(toward.Times(accel * t.Timestep))
		}
	}

	if w.Events.CueScratch && !w.Balls[0].Active {
		w.respawnCue()
	}
}

// sinkBall deactivates the ball, snaps it to the pocket center, and records
// the event.
func (w *World) sinkBall(b *Ball, p *Pocket) {
	speed := b.Speed()
	b.Active = false
	b.Position = p.Position
	b.Velocity = Vec2{}
	b.YSpin = 0
	b.pull = nil

	if b.ID == 0 {
		w.Events.CueScratch = true
	} else {
		w.Events.Pocketed = append(w.Events.Pocketed, PocketedBall{BallID: b.ID, PocketID: p.ID})
	}

	w.emitSound(SoundPocketDrop, speed)
}

// respawnCue puts the cue ball back on the break spot at rest. Flags from
// the scratch stay on the event record for foul scoring of the same shot.
func (w *World) respawnCue() {
	cue := w.Balls[0]
	cue.Active = true
	cue.Position = w.Tuning.BreakSpot
	cue.Velocity = Vec2{}
	cue.PendingSpin = Vec2{}
	cue.Screw = 0
	cue.English = 0
	cue.YSpin = 0
}
