package game

import "testing"

// ruleBalls returns a full active rack layout with the given ids deactivated,
// as the rule engine sees it after the shot.
func ruleBalls(sunk ...int) *[NumBalls]*Ball {
	var balls [NumBalls]*Ball
	positions := RackPositions(DefaultTuning())
	for i := range balls {
		balls[i] = &Ball{ID: i, Position: positions[i], Active: true, Grip: 1}
	}
	for _, id := range sunk {
		balls[id].Active = false
	}
	return &balls
}

// shotInput builds a RuleInput with sane defaults for a mid-game shot.
func shotInput(balls *[NumBalls]*Ball, ev *ShotEvents) RuleInput {
	tuning := DefaultTuning()
	return RuleInput{
		Events:        ev,
		Balls:         balls,
		ShooterTarget: TargetAny,
		OpponentTarget: TargetAny,
		CalledPocket:  -1,
		Tuning:        &tuning,
	}
}

func TestNoContactIsFoul(t *testing.T) {
	v := EvaluateShot(shotInput(ruleBalls(), NewShotEvents()))
	if v.Foul == nil || v.Foul.Type != FoulNoContact {
		t.Fatalf("verdict = %+v, want NO_CONTACT foul", v)
	}
	if !v.BallInHand {
		t.Error("foul must grant ball-in-hand")
	}
	if v.ContinueTurn {
		t.Error("foul must end the turn")
	}
}

func TestNoContactOutranksScratch(t *testing.T) {
	ev := NewShotEvents()
	ev.CueScratch = true
	v := EvaluateShot(shotInput(ruleBalls(), ev))
	if v.Foul == nil || v.Foul.Type != FoulNoContact {
		t.Fatalf("foul = %+v, want NO_CONTACT before SCRATCH", v.Foul)
	}
}

func TestScratchOutranksWrongBallFirst(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 9
	ev.CueScratch = true
	ev.CushionAfterContact = true

	in := shotInput(ruleBalls(), ev)
	in.ShooterTarget = TargetSolids
	in.OpponentTarget = TargetStripes

	v := EvaluateShot(in)
	if v.Foul == nil || v.Foul.Type != FoulScratch {
		t.Fatalf("foul = %+v, want SCRATCH", v.Foul)
	}
	if !v.BallInHand {
		t.Error("scratch must grant ball-in-hand")
	}
}

func TestIllegalBreakTooFewCushions(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.CushionBalls = map[int]bool{1: true, 2: true}

	in := shotInput(ruleBalls(), ev)
	in.IsBreak = true

	v := EvaluateShot(in)
	if v.Foul == nil || v.Foul.Type != FoulIllegalBreak {
		t.Fatalf("foul = %+v, want ILLEGAL_BREAK", v.Foul)
	}
}

func TestBreakLegalWithEnoughCushions(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.CushionBalls = map[int]bool{1: true, 2: true, 9: true, 15: true}
	ev.CushionAfterContact = true

	in := shotInput(ruleBalls(), ev)
	in.IsBreak = true

	v := EvaluateShot(in)
	if v.Foul != nil {
		t.Fatalf("unexpected foul: %+v", v.Foul)
	}
	if v.ContinueTurn {
		t.Error("dry break must pass the turn")
	}
	if v.GroupAssigned {
		t.Error("dry break must leave the table open")
	}
}

func TestPocketOnBreakExemptsCushionCount(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.Pocketed = []PocketedBall{{BallID: 3, PocketID: 0}}

	in := shotInput(ruleBalls(3), ev)
	in.IsBreak = true

	v := EvaluateShot(in)
	if v.Foul != nil {
		t.Fatalf("unexpected foul: %+v", v.Foul)
	}
}

func TestGroupAssignedOnSingleFamily(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.CushionAfterContact = true
	ev.Pocketed = []PocketedBall{{BallID: 2, PocketID: 1}}

	v := EvaluateShot(shotInput(ruleBalls(2), ev))
	if !v.GroupAssigned {
		t.Fatal("exactly one family sunk must assign groups")
	}
	if v.ShooterTarget != TargetSolids || v.OpponentTarget != TargetStripes {
		t.Errorf("targets = %s/%s, want SOLIDS/STRIPES", v.ShooterTarget, v.OpponentTarget)
	}
	if v.PocketedOwn != 1 {
		t.Errorf("pocketed own = %d, want 1", v.PocketedOwn)
	}
	if !v.ContinueTurn {
		t.Error("legal pot must keep the shooter at the table")
	}
}

func TestBothFamiliesKeepTableOpen(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.CushionAfterContact = true
	ev.Pocketed = []PocketedBall{{BallID: 2, PocketID: 1}, {BallID: 9, PocketID: 4}}

	v := EvaluateShot(shotInput(ruleBalls(2, 9), ev))
	if v.GroupAssigned {
		t.Fatal("both families down must leave the table open")
	}
	if v.ShooterTarget != TargetAny {
		t.Errorf("shooter target = %s, want ANY", v.ShooterTarget)
	}
	if v.PocketedOwn != 2 {
		t.Errorf("pocketed own = %d, want 2 on an open table", v.PocketedOwn)
	}
	if !v.ContinueTurn {
		t.Error("open-table pot must continue the turn")
	}
}

func TestWrongBallFirst(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 9
	ev.CushionAfterContact = true

	in := shotInput(ruleBalls(), ev)
	in.ShooterTarget = TargetSolids
	in.OpponentTarget = TargetStripes

	v := EvaluateShot(in)
	if v.Foul == nil || v.Foul.Type != FoulWrongBallFirst {
		t.Fatalf("foul = %+v, want WRONG_BALL_FIRST", v.Foul)
	}
}

func TestNoRailAfterContact(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1

	v := EvaluateShot(shotInput(ruleBalls(), ev))
	if v.Foul == nil || v.Foul.Type != FoulNoRail {
		t.Fatalf("foul = %+v, want NO_RAIL_AFTER_CONTACT", v.Foul)
	}
}

func TestOpponentBallPocketPassesTurnWithoutFoul(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.CushionAfterContact = true
	ev.Pocketed = []PocketedBall{{BallID: 9, PocketID: 2}}

	in := shotInput(ruleBalls(9), ev)
	in.ShooterTarget = TargetSolids
	in.OpponentTarget = TargetStripes

	v := EvaluateShot(in)
	if v.Foul != nil {
		t.Fatalf("unexpected foul: %+v", v.Foul)
	}
	if v.PocketedOwn != 0 {
		t.Errorf("pocketed own = %d, want 0", v.PocketedOwn)
	}
	if v.ContinueTurn {
		t.Error("opponent-only pot must pass the turn")
	}
}

func TestEightFirstContactEarlyIsFoul(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 8
	ev.CushionAfterContact = true

	in := shotInput(ruleBalls(), ev)
	in.ShooterTarget = TargetSolids
	in.OpponentTarget = TargetStripes

	v := EvaluateShot(in)
	if v.Foul == nil || v.Foul.Type != FoulEightEarly {
		t.Fatalf("foul = %+v, want EIGHT_BALL_EARLY", v.Foul)
	}
	if v.GameOver {
		t.Error("touching the 8 early is a foul, not a loss")
	}
}

func TestEightPocketedEarlyLosesGame(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 1
	ev.CushionAfterContact = true
	ev.Pocketed = []PocketedBall{{BallID: 8, PocketID: 2}}

	in := shotInput(ruleBalls(8), ev)
	in.ShooterTarget = TargetSolids
	in.OpponentTarget = TargetStripes

	v := EvaluateShot(in)
	if !v.GameOver {
		t.Fatal("early 8-ball must end the game")
	}
	if v.ShooterWins {
		t.Error("early 8-ball must hand the win to the opponent")
	}
	if v.Foul == nil || v.Foul.Type != FoulEightEarly {
		t.Errorf("foul = %+v, want EIGHT_BALL_EARLY", v.Foul)
	}
}

// eightPhaseInput: all solids cleared, shooter on the 8.
func eightPhaseInput(ev *ShotEvents) RuleInput {
	in := shotInput(ruleBalls(1, 2, 3, 4, 5, 6, 7, 8), ev)
	in.ShooterTarget = TargetEight
	in.OpponentTarget = TargetStripes
	return in
}

func TestCalledEightWins(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 8
	ev.Pocketed = []PocketedBall{{BallID: 8, PocketID: 2}}

	in := eightPhaseInput(ev)
	in.CalledPocket = 2

	v := EvaluateShot(in)
	if !v.GameOver || !v.ShooterWins {
		t.Fatalf("verdict = %+v, want shooter win", v)
	}
}

func TestEightInWrongPocketLoses(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 8
	ev.Pocketed = []PocketedBall{{BallID: 8, PocketID: 5}}

	in := eightPhaseInput(ev)
	in.CalledPocket = 2

	v := EvaluateShot(in)
	if !v.GameOver {
		t.Fatal("8-ball down must end the game")
	}
	if v.ShooterWins {
		t.Error("wrong pocket must lose the game")
	}
}

func TestUncalledEightLoses(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 8
	ev.Pocketed = []PocketedBall{{BallID: 8, PocketID: 2}}

	v := EvaluateShot(eightPhaseInput(ev))
	if !v.GameOver || v.ShooterWins {
		t.Fatalf("verdict = %+v, want opponent win on uncalled 8", v)
	}
}

func TestScratchOnEightLoses(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 8
	ev.CueScratch = true
	ev.Pocketed = []PocketedBall{{BallID: 8, PocketID: 2}}

	in := eightPhaseInput(ev)
	in.CalledPocket = 2

	v := EvaluateShot(in)
	if !v.GameOver || v.ShooterWins {
		t.Fatalf("verdict = %+v, want opponent win on scratched 8", v)
	}
}

func TestClearedGroupPromotesToEight(t *testing.T) {
	ev := NewShotEvents()
	ev.FirstContact = 7
	ev.CushionAfterContact = true
	ev.Pocketed = []PocketedBall{{BallID: 7, PocketID: 0}}

	in := shotInput(ruleBalls(1, 2, 3, 4, 5, 6, 7), ev)
	in.ShooterTarget = TargetSolids
	in.OpponentTarget = TargetStripes

	v := EvaluateShot(in)
	if v.Foul != nil {
		t.Fatalf("unexpected foul: %+v", v.Foul)
	}
	if v.ShooterTarget != TargetEight {
		t.Errorf("shooter target = %s, want promotion to 8", v.ShooterTarget)
	}
	if !v.ContinueTurn {
		t.Error("clearing the group legally must continue the turn")
	}
}
