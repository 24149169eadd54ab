package game

// resolveBallPairs runs one pass of pairwise overlap resolution over all
// active balls.
func (w *World) resolveBallPairs() {
	for a := 0; a < NumBalls-1; a++ {
		ball := w.Balls[a]
		if !ball.Active {
			continue
		}
		for p := a + 1; p < NumBalls; p++ {
			other := w.Balls[p]
			if !other.Active {
				continue
			}
			w.resolveBallBall(ball, other)
		}
	}
}

// resolveBallBall separates an overlapping pair and exchanges normal
// momentum with restitution and capped tangential friction.
func (w *World) resolveBallBall(a, b *Ball) {
	t := &w.Tuning
	diameter := 2 * t.BallRadius

	delta := b.Position.Minus(a.Position)
	dist := delta.Magnitude()
	overlap := diameter - dist
	if overlap <= 0 {
		return
	}

	var n Vec2
	if dist > 0 {
		n = delta.Times(1 / dist)
	} else {
		// Coincident centers; push along x and let the next pass sort it out.
		n = NewVec2(1, 0)
	}

	// Positional correction: a fraction of the overlap, leaving a little
	// slop so resting pairs don't jitter.
	correction := (overlap - t.SeparationSlop) * t.SeparationFraction
	if correction > 0 {
		half := n.Times(correction / 2)
		a.Position = a.Position.Minus(half)
		b.Position = b.Position.Plus(half)
	}

	r := n.RightNormal()

	aNormal := n.Times(a.Velocity.Dot(n))
	aTangent := r.Times(a.Velocity.Dot(r))
	bNormal := n.Times(b.Velocity.Dot(n))
	bTangent := r.Times(b.Velocity.Dot(r))

	relNormalSpeed := aNormal.Minus(bNormal).Magnitude()

	// Hard hits lose extra energy.
	restitution := t.BallRestitution
	if relNormalSpeed > t.HardImpactSpeed {
		restitution -= t.HardImpactLoss
	}

	// Cue ball first contact: arm the screw impulse and record the ball
	// for foul evaluation. Only the first contact of the shot counts.
	if a.ID == 0 && !b.ContactedThisShot && w.Events.FirstContact == -1 {
		w.Events.FirstContact = b.ID
		if a.Screw != 0 {
			a.PendingSpin = aNormal.Times(t.ScrewImpulse * -a.Screw)
			a.Screw = 0
		}
		a.Grip = 0
	}
	b.ContactedThisShot = true

	// Exchange normal components.
	newANormal := bNormal.Times(restitution).Plus(aNormal.Times(1 - restitution))
	newBNormal := aNormal.Times(restitution).Plus(bNormal.Times(1 - restitution))

	// Tangential friction: transfer a fraction of the tangential relative
	// velocity, capped against the normal impulse magnitude.
	relTangent := aTangent.Minus(bTangent)
	frictionImpulse := relTangent.Times(t.TangentFriction)
	maxFriction := newANormal.Minus(aNormal).Magnitude() * t.TangentFrictionCap
	if m := frictionImpulse.Magnitude(); m > maxFriction && m > 0 {
		frictionImpulse = frictionImpulse.Times(maxFriction / m)
	}

	a.Velocity = aTangent.Minus(frictionImpulse).Plus(newANormal)
	b.Velocity = bTangent.Plus(frictionImpulse).Plus(newBNormal)

	// Spin transfer: the struck ball picks up opposing roll.
	if abs(b.YSpin) < abs(a.YSpin) {
		b.YSpin = fix(-0.5 * a.YSpin)
	}

	if newBNormal.Magnitude() > t.GripLossSpeed {
		b.Grip = 0
	}

	w.emitSound(SoundBallHit, relNormalSpeed)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
