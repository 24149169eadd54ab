package game

// Sound trigger names emitted by the engine. Playback is the consumer's
// problem; the engine only reports what happened and how hard.
const (
	SoundCueStrike  = "cue_strike"
	SoundBallHit    = "ball_hit"
	SoundCushionHit = "cushion_hit"
	SoundPocketDrop = "pocket_drop"
	SoundVictory    = "victory"
)

// SoundEvent is a discrete audio trigger with a volume derived from impact
// speed, normalized to 0..1.
type SoundEvent struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// SoundEmitter receives audio triggers. Implementations must not block;
// they are called from inside the physics step.
type SoundEmitter interface {
	PlaySound(ev SoundEvent)
}

// Presenter receives per-frame ball kinematics for rendering.
type Presenter interface {
	PresentFrame(balls [NumBalls]Ball)
}

// PocketedBall pairs a sunk ball with the pocket that took it, in sink order.
type PocketedBall struct {
	BallID     int `json:"ball_id"`
	PocketID   int `json:"pocket_id"`
}

// ShotEvents accumulates everything the rule engine needs from one shot.
// Created empty at shot start, consumed and reset at shot end.
type ShotEvents struct {
	FirstContact        int            // ball id the cue ball touched first, -1 if none
	Pocketed            []PocketedBall // sink order preserved
	CushionBalls        map[int]bool   // ball ids that touched a cushion
	CushionAfterContact bool           // any cushion touch after first contact
	CueScratch          bool
}

// NewShotEvents returns an empty event record.
func NewShotEvents() *ShotEvents {
	return &ShotEvents{
		FirstContact: -1,
		Pocketed:     make([]PocketedBall, 0, 4),
		CushionBalls: make(map[int]bool),
	}
}

// Reset clears the record in place for the next shot.
func (ev *ShotEvents) Reset() {
	ev.FirstContact = -1
	ev.Pocketed = ev.Pocketed[:0]
	ev.CushionBalls = make(map[int]bool)
	ev.CushionAfterContact = false
	ev.CueScratch = false
}

// PocketedIDs returns just the ball ids, in sink order.
func (ev *ShotEvents) PocketedIDs() []int {
	ids := make([]int, len(ev.Pocketed))
	for i, p := range ev.Pocketed {
		ids[i] = p.BallID
	}
	return ids
}

// EightPocketed reports whether the 8-ball sank this shot.
func (ev *ShotEvents) EightPocketed() bool {
	for _, p := range ev.Pocketed {
		if p.BallID == 8 {
			return true
		}
	}
	return false
}

// EightPocket returns the pocket the 8-ball fell into, or -1.
func (ev *ShotEvents) EightPocket() int {
	for _, p := range ev.Pocketed {
		if p.BallID == 8 {
			return p.PocketID
		}
	}
	return -1
}
