package game

// collideCushions reflects a ball off each of the four rails independently.
// Balls close to a pocket mouth are exempt so the pocket can pull them in
// instead of the jaw bouncing them out.
func (w *World) collideCushions(b *Ball) {
	t := &w.Tuning
	tb := w.Table
	r := t.BallRadius

	if tb.NearPocketMouth(b.Position, t) {
		return
	}

	if b.Position.X-r < tb.XMin {
		b.Position.X = fix(tb.XMin + r)
		w.reflectRail(b, NewVec2(1, 0))
	} else if b.Position.X+r > tb.XMax {
		b.Position.X = fix(tb.XMax - r)
		w.reflectRail(b, NewVec2(-1, 0))
	}

	if b.Position.Y-r < tb.YMin {
		b.Position.Y = fix(tb.YMin + r)
		w.reflectRail(b, NewVec2(0, 1))
	} else if b.Position.Y+r > tb.YMax {
		b.Position.Y = fix(tb.YMax - r)
		w.reflectRail(b, NewVec2(0, -1))
	}
}

// reflectRail applies the cushion response for a rail with inward normal n.
func (w *World) reflectRail(b *Ball, n Vec2) {
	t := &w.Tuning
	d := n.LeftNormal() // rail direction

	normalSpeed := b.Velocity.Dot(n)
	tangentSpeed := b.Velocity.Dot(d)

	// Tangential motion rubs off into lateral spin.
	b.YSpin = fix(b.YSpin - tangentSpeed*t.SpinFeedback)
	if b.YSpin > t.MaxYSpin {
		b.YSpin = t.MaxYSpin
	} else if b.YSpin < -t.MaxYSpin {
		b.YSpin = -t.MaxYSpin
	}

	newTangent := tangentSpeed * t.CushionTangentLoss

	// Stored english on the cue ball converts into tangential velocity.
	if b.ID == 0 {
		newTangent += fix(t.EnglishTransfer * b.English * b.Velocity.Magnitude())
		b.English = fix(t.EnglishDecay * b.English)
		if b.English > -0.1 && b.English < 0.1 {
			b.English = 0
		}
		b.PendingSpin = b.PendingSpin.Times(t.ScrewDecay)
	}

	b.Velocity = n.Times(-normalSpeed * t.CushionRestitution).Plus(d.Times(newTangent))

	w.Events.CushionBalls[b.ID] = true
	if w.Events.FirstContact != -1 {
		w.Events.CushionAfterContact = true
	}

	w.emitSound(SoundCushionHit, abs(normalSpeed))
}
