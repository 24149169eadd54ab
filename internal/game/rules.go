package game

import "fmt"

// Target is a player's legal ball group for the current phase.
type Target string

const (
	TargetAny     Target = "ANY"     // open table, groups unassigned
	TargetSolids  Target = "SOLIDS"  // ids 1-7
	TargetStripes Target = "STRIPES" // ids 9-15
	TargetEight   Target = "8"       // own group cleared, shooting the 8
)

// FoulType classifies a rule violation. Checked in a strict precedence
// order; the first match wins.
type FoulType string

const (
	FoulNoContact      FoulType = "NO_CONTACT"
	FoulScratch        FoulType = "SCRATCH"
	FoulIllegalBreak   FoulType = "ILLEGAL_BREAK"
	FoulEightEarly     FoulType = "EIGHT_BALL_EARLY"
	FoulWrongBallFirst FoulType = "WRONG_BALL_FIRST"
	FoulNoRail         FoulType = "NO_RAIL_AFTER_CONTACT"
)

// Foul describes a violation with a player-facing message.
type Foul struct {
	Type    FoulType `json:"type"`
	Message string   `json:"message"`
}

// RuleInput is everything the rule engine consumes for one shot: the event
// record plus the state the shot was taken under. Balls are the post-shot
// array (sunk balls already inactive).
type RuleInput struct {
	Events         *ShotEvents
	Balls          *[NumBalls]*Ball
	ShooterTarget  Target
	OpponentTarget Target
	IsBreak        bool
	CalledPocket   int // pocket id the 8-ball was called into, -1 for none
	Tuning         *Tuning
}

// Verdict is the rule engine's classification of a completed shot.
// Exactly one of three outcome classes holds: foul (opponent ball-in-hand),
// legal continuation (same shooter), or legal turn-end.
type Verdict struct {
	Foul           *Foul
	ContinueTurn   bool
	BallInHand     bool
	GroupAssigned  bool
	ShooterTarget  Target // possibly updated (assignment or promotion to 8)
	OpponentTarget Target
	PocketedOwn    int // legally pocketed balls from the shooter's group
	GameOver       bool
	ShooterWins    bool
	Message        string
}

// ballTarget maps a ball id to the group it scores for.
func ballTarget(id int) Target {
	switch {
	case IsSolid(id):
		return TargetSolids
	case IsStripe(id):
		return TargetStripes
	default:
		return "" // cue or eight
	}
}

// countGroup counts active balls belonging to a group.
func countGroup(balls *[NumBalls]*Ball, g Target) int {
	n := 0
	for _, b := range balls {
		if b.Active && ballTarget(b.ID) == g {
			n++
		}
	}
	return n
}

// EvaluateShot consumes one shot's events and produces the turn outcome.
// Canonical semantics: called-pocket 8-ball play; an illegal break is fewer
// than the configured cushion contacts with nothing pocketed; pocketing the
// 8-ball into the wrong pocket loses the game outright.
func EvaluateShot(in RuleInput) Verdict {
	ev := in.Events
	v := Verdict{
		ShooterTarget:  in.ShooterTarget,
		OpponentTarget: in.OpponentTarget,
	}

	pocketed := ev.PocketedIDs()
	v.Foul = classifyFoul(in, pocketed)

	// Group assignment: open table, clean shot, exactly one family sunk.
	if v.Foul == nil && in.ShooterTarget == TargetAny && in.OpponentTarget == TargetAny {
		solids, stripes := 0, 0
		for _, id := range pocketed {
			switch ballTarget(id) {
			case TargetSolids:
				solids++
			case TargetStripes:
				stripes++
			}
		}
		if solids > 0 && stripes == 0 {
			v.ShooterTarget, v.OpponentTarget = TargetSolids, TargetStripes
			v.GroupAssigned = true
		} else if stripes > 0 && solids == 0 {
			v.ShooterTarget, v.OpponentTarget = TargetStripes, TargetSolids
			v.GroupAssigned = true
		}
		// Both families down leaves the table open.
	}

	// Score legally pocketed own-group balls.
	if v.Foul == nil {
		for _, id := range pocketed {
			grp := ballTarget(id)
			if grp == "" {
				continue
			}
			if v.ShooterTarget == TargetAny || grp == v.ShooterTarget {
				v.PocketedOwn++
			}
		}
	}

	// Promote a cleared group to the 8-ball phase.
	if v.ShooterTarget == TargetSolids || v.ShooterTarget == TargetStripes {
		if countGroup(in.Balls, v.ShooterTarget) == 0 {
			v.ShooterTarget = TargetEight
		}
	}
	if v.OpponentTarget == TargetSolids || v.OpponentTarget == TargetStripes {
		if countGroup(in.Balls, v.OpponentTarget) == 0 {
			v.OpponentTarget = TargetEight
		}
	}

	// The 8-ball ends the game one way or the other.
	if ev.EightPocketed() {
		legal := in.ShooterTarget == TargetEight && v.Foul == nil
		if legal && in.Tuning.RequireCalledPocket {
			legal = in.CalledPocket >= 0 && in.CalledPocket == ev.EightPocket()
		}
		v.GameOver = true
		if legal {
			v.ShooterWins = true
			v.Message = "8-ball pocketed. Game over."
		} else {
			v.ShooterWins = false
			if v.Foul == nil {
				v.Foul = &Foul{Type: FoulEightEarly, Message: "8-ball pocketed illegally"}
			}
			v.Message = "8-ball pocketed illegally. Opponent wins."
		}
		v.ContinueTurn = false
		v.BallInHand = false
		return v
	}

	if v.Foul != nil {
		v.BallInHand = true
		v.Message = v.Foul.Message
		return v
	}

	if v.PocketedOwn > 0 {
		v.ContinueTurn = true
		v.Message = fmt.Sprintf("%d ball(s) pocketed. Shoot again.", v.PocketedOwn)
	} else if len(pocketed) > 0 {
		// Only opponent balls went down: turn passes, no foul.
		v.Message = "Opponent's ball pocketed. Turn passes."
	} else {
		v.Message = "No ball pocketed. Turn passes."
	}
	return v
}

// classifyFoul applies the foul taxonomy in precedence order.
func classifyFoul(in RuleInput, pocketed []int) *Foul {
	ev := in.Events

	if ev.FirstContact == -1 && len(pocketed) == 0 {
		return &Foul{Type: FoulNoContact, Message: "Failed to hit any ball"}
	}

	if ev.CueScratch {
		return &Foul{Type: FoulScratch, Message: "Cue ball pocketed"}
	}

	if in.IsBreak && len(ev.CushionBalls) < in.Tuning.BreakCushionMin && len(pocketed) == 0 {
		return &Foul{Type: FoulIllegalBreak, Message: "Not enough balls reached a cushion on the break"}
	}

	eightDown := ev.EightPocketed()
	if in.ShooterTarget != TargetEight && (ev.FirstContact == 8 || eightDown) {
		return &Foul{Type: FoulEightEarly, Message: "8-ball is not your legal target yet"}
	}

	if fc := ev.FirstContact; fc > 0 {
		switch in.ShooterTarget {
		case TargetSolids, TargetStripes:
			if grp := ballTarget(fc); grp != "" && grp != in.ShooterTarget {
				return &Foul{Type: FoulWrongBallFirst, Message: "Hit opponent's ball first"}
			}
		case TargetEight:
			if fc != 8 {
				return &Foul{Type: FoulWrongBallFirst, Message: "Must hit the 8-ball first"}
			}
		}
	}

	if ev.FirstContact != -1 && len(pocketed) == 0 && !ev.CushionAfterContact {
		return &Foul{Type: FoulNoRail, Message: "No ball reached a cushion after contact"}
	}

	return nil
}
