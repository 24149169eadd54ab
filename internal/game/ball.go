package game

// Ball is the mutable per-ball physics state. A ball deactivates exactly once
// when it sinks; only the cue ball comes back, respawned after a scratch.
type Ball struct {
	ID       int     `json:"id"`
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Active   bool    `json:"active"`

	// Spin state. Screw and English are cue-ball inputs; YSpin accumulates
	// from cushion contact and produces swerve.
	Screw   float64 `json:"screw"`
	English float64 `json:"english"`
	YSpin   float64 `json:"y_spin"`
	Grip    float64 `json:"grip"`

	// PendingSpin is the one-shot screw impulse armed at the cue ball's
	// first contact and paid out as a decaying series over sub-steps.
	PendingSpin Vec2 `json:"-"`

	// ContactedThisShot marks that this ball has been hit by the cue ball
	// already; only the first such contact matters for fouls and screw.
	ContactedThisShot bool `json:"-"`

	// pull describes an in-progress pocket attraction, transient per sub-step.
	pull *pocketPull
}

// pocketPull records which pocket is attracting the ball this sub-step.
type pocketPull struct {
	pocket    *Pocket
	proximity float64 // 1 at the pocket center, 0 at the pull radius edge
}

// Speed is the current scalar velocity.
func (b *Ball) Speed() float64 {
	return b.Velocity.Magnitude()
}

// Moving reports whether the ball is above the stop threshold.
func (b *Ball) Moving(t *Tuning) bool {
	return b.Active && b.Speed() >= t.StopThreshold
}

// resetShotState clears the per-shot transients before a new strike.
func (b *Ball) resetShotState() {
	b.PendingSpin = Vec2{}
	b.ContactedThisShot = false
	b.pull = nil
}

// IsSolid reports whether the id belongs to the solid group (1-7).
func IsSolid(id int) bool { return id >= 1 && id <= 7 }

// IsStripe reports whether the id belongs to the stripe group (9-15).
func IsStripe(id int) bool { return id >= 9 && id <= 15 }
