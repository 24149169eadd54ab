package game

import (
	"math"
	"math/rand"
	"sort"
)

// AIProfile is the difficulty-indexed behavior tuple for the computer
// opponent. Errors shrink and discipline grows with the level.
type AIProfile struct {
	Level            int
	AimErrorDeg      float64 // max angular error applied to the final aim
	PowerErrorPct    float64 // max relative power error
	NoiseScale       float64 // random noise added to candidate scores
	Breadth          int     // pick randomly among the top-N candidates
	MissChance       float64 // chance of a deliberately degraded shot
	RequireClearShot bool    // obstructed candidates are disqualified
	CutPenalty       float64 // severity of the cut-angle cost
	ScratchPenalty   float64 // cost for paths likely to scratch
}

// aiProfiles index difficulty levels 1..5.
var aiProfiles = []AIProfile{
	{Level: 1, AimErrorDeg: 6.0, PowerErrorPct: 20, NoiseScale: 3.0, Breadth: 4, MissChance: 0.25, RequireClearShot: false, CutPenalty: 0.5, ScratchPenalty: 0},
	{Level: 2, AimErrorDeg: 3.5, PowerErrorPct: 14, NoiseScale: 2.2, Breadth: 3, MissChance: 0.15, RequireClearShot: false, CutPenalty: 0.7, ScratchPenalty: 100},
	{Level: 3, AimErrorDeg: 2.0, PowerErrorPct: 9, NoiseScale: 1.5, Breadth: 2, MissChance: 0.08, RequireClearShot: true, CutPenalty: 1.0, ScratchPenalty: 200},
	{Level: 4, AimErrorDeg: 1.0, PowerErrorPct: 5, NoiseScale: 0.8, Breadth: 2, MissChance: 0.03, RequireClearShot: true, CutPenalty: 1.2, ScratchPenalty: 350},
	{Level: 5, AimErrorDeg: 0.45, PowerErrorPct: 2, NoiseScale: 0.3, Breadth: 1, MissChance: 0, RequireClearShot: true, CutPenalty: 1.5, ScratchPenalty: 500},
}

// ProfileForLevel returns the profile for a difficulty level, clamped to 1..5.
func ProfileForLevel(level int) AIProfile {
	if level < 1 {
		level = 1
	}
	if level > len(aiProfiles) {
		level = len(aiProfiles)
	}
	return aiProfiles[level-1]
}

const (
	obstructionPenalty = 5000.0
	sidePocketPenalty  = 150.0
	maxCutAngle        = 1.25 // radians; penalty grows sharply past this
)

// Planner is the heuristic shot chooser. It owns its random source so AI
// behavior is reproducible under a fixed seed.
type Planner struct {
	Profile AIProfile
	rng     *rand.Rand
}

// NewPlanner builds a planner for a difficulty profile.
func NewPlanner(profile AIProfile, seed int64) *Planner {
	return &Planner{Profile: profile, rng: rand.New(rand.NewSource(seed))}
}

// PlannedShot is the planner's output: aim, power, and the pocket called
// for the 8-ball (or -1).
type PlannedShot struct {
	Direction    Vec2
	Power        float64
	CalledPocket int
}

// candidate is one scored (target ball, pocket) pair.
type candidate struct {
	targetID int
	pocketID int
	score    float64
	dir      Vec2
	power    float64
}

// legalTargets lists the ball ids the shooter may contact first.
func legalTargets(balls *[NumBalls]*Ball, target Target) []int {
	var ids []int
	for _, b := range balls {
		if !b.Active || b.ID == 0 {
			continue
		}
		switch target {
		case TargetEight:
			if b.ID == 8 {
				ids = append(ids, 8)
			}
		case TargetSolids, TargetStripes:
			if ballTarget(b.ID) == target {
				ids = append(ids, b.ID)
			}
		default: // open table: anything but the 8
			if b.ID != 8 {
				ids = append(ids, b.ID)
			}
		}
	}
	return ids
}

// PlanShot scores every (target, pocket) pair from the cue ball's current
// position and returns the chosen aim with difficulty error applied. When
// nothing is playable it falls back to a random legal aim rather than
// stalling.
func (p *Planner) PlanShot(w *World, target Target) PlannedShot {
	t := &w.Tuning
	cue := w.Balls[0]
	targets := legalTargets(&w.Balls, target)

	var candidates []candidate
	for _, id := range targets {
		for pi := range w.Table.Pockets {
			if c, ok := p.scoreCandidate(w, cue.Position, id, &w.Table.Pockets[pi]); ok {
				candidates = append(candidates, c)
			}
		}
	}

	if len(candidates) == 0 {
		return p.fallbackShot(w, target, targets)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	pick := 0
	if p.Profile.Breadth > 1 {
		n := p.Profile.Breadth
		if n > len(candidates) {
			n = len(candidates)
		}
		pick = p.rng.Intn(n)
	}
	chosen := candidates[pick]

	shot := PlannedShot{
		Direction:    p.perturbAim(chosen.dir),
		Power:        p.perturbPower(chosen.power, t),
		CalledPocket: -1,
	}
	if target == TargetEight && chosen.targetID == 8 {
		shot.CalledPocket = chosen.pocketID
	}
	return shot
}

// scoreCandidate evaluates one (target ball, pocket) pair. Returns false
// when the pair is unplayable for this profile.
func (p *Planner) scoreCandidate(w *World, cuePos Vec2, targetID int, pocket *Pocket) (candidate, bool) {
	t := &w.Tuning
	ball := w.Balls[targetID]

	toPocket := pocket.Position.Minus(ball.Position)
	if toPocket.IsZero() {
		return candidate{}, false
	}

	// Ghost ball: the cue ball contact point one diameter behind the
	// target along the target-to-pocket line.
	ghost := ball.Position.Plus(toPocket.Normalize().Invert().Times(2 * t.BallRadius))
	aim := ghost.Minus(cuePos)
	if aim.IsZero() {
		return candidate{}, false
	}

	// Cut angle between cue-to-ball travel and ball-to-pocket travel.
	cut := aim.AngleBetween(toPocket)
	if cut > math.Pi/2 {
		// Behind the ball; the pocket is unreachable from here.
		return candidate{}, false
	}

	score := cuePos.DistanceTo(ball.Position) + ball.Position.DistanceTo(pocket.Position)

	if p.pathObstructed(w, cuePos, ghost, targetID) || p.pathObstructed(w, ball.Position, pocket.Position, targetID) {
		if p.Profile.RequireClearShot {
			return candidate{}, false
		}
		score += obstructionPenalty
	}

	cutCost := p.Profile.CutPenalty * math.Pow(cut, 3) * 150
	if cut > maxCutAngle {
		cutCost *= 3
	}
	score += cutCost

	if pocket.Kind == PocketSide {
		score += sidePocketPenalty
	}

	score += p.scratchRisk(w, ghost, aim.Normalize())
	score += p.rng.NormFloat64() * p.Profile.NoiseScale * 100

	power := score*1.2 + 400
	if power > t.MaxShotPower {
		power = t.MaxShotPower
	}

	return candidate{
		targetID: targetID,
		pocketID: pocket.ID,
		score:    score,
		dir:      aim.Normalize(),
		power:    power,
	}, true
}

// pathObstructed checks the segment against every other ball on the table.
func (p *Planner) pathObstructed(w *World, from, to Vec2, targetID int) bool {
	clearance := 2 * w.Tuning.BallRadius
	for _, b := range w.Balls {
		if !b.Active || b.ID == 0 || b.ID == targetID {
			continue
		}
		if segmentIntersectsCircle(from, to, b.Position, clearance) {
			return true
		}
	}
	return false
}

// scratchRisk penalizes aims whose follow-through line from the contact
// point runs into a pocket mouth.
func (p *Planner) scratchRisk(w *World, ghost, dir Vec2) float64 {
	t := &w.Tuning
	end := ghost.Plus(dir.Times(t.TableWidth / 2))
	for i := range w.Table.Pockets {
		pk := &w.Table.Pockets[i]
		if segmentIntersectsCircle(ghost, end, pk.Position, pk.PullRadius(t)) {
			return p.Profile.ScratchPenalty
		}
	}
	return 0
}

// fallbackShot aims at some legal ball with full error when no scored
// candidate exists.
func (p *Planner) fallbackShot(w *World, target Target, targets []int) PlannedShot {
	t := &w.Tuning
	cue := w.Balls[0]

	var aimAt *Ball
	if target == TargetEight && w.Balls[8].Active {
		aimAt = w.Balls[8]
	} else if len(targets) > 0 {
		aimAt = w.Balls[targets[p.rng.Intn(len(targets))]]
	} else {
		// Nothing legal at all: poke any active object ball.
		var active []*Ball
		for _, b := range w.Balls {
			if b.Active && b.ID != 0 {
				active = append(active, b)
			}
		}
		if len(active) == 0 {
			return PlannedShot{Direction: NewVec2(1, 0), Power: t.MinShotPower, CalledPocket: -1}
		}
		aimAt = active[p.rng.Intn(len(active))]
	}

	dir := aimAt.Position.Minus(cue.Position).Normalize()
	return PlannedShot{
		Direction:    p.perturbAim(dir),
		Power:        p.perturbPower(t.MaxShotPower*0.45, t),
		CalledPocket: -1,
	}
}

// perturbAim rotates the aim by a bounded random error; a failed
// discipline roll degrades it further.
func (p *Planner) perturbAim(dir Vec2) Vec2 {
	errDeg := (p.rng.Float64()*2 - 1) * p.Profile.AimErrorDeg
	if p.Profile.MissChance > 0 && p.rng.Float64() < p.Profile.MissChance {
		errDeg *= 4
	}
	return dir.Rotate(errDeg * math.Pi / 180).Normalize()
}

// perturbPower applies the profile's relative power error.
func (p *Planner) perturbPower(power float64, t *Tuning) float64 {
	power *= 1 + (p.rng.Float64()*2-1)*p.Profile.PowerErrorPct/100
	if power > t.MaxShotPower {
		power = t.MaxShotPower
	}
	if power < t.MinShotPower {
		power = t.MinShotPower
	}
	return power
}

// PlaceCueBall chooses a ball-in-hand position. Higher levels search for
// the spot minimizing the best available shot score; lower levels just
// park near the easiest target ball.
func (p *Planner) PlaceCueBall(w *World, target Target) Vec2 {
	t := &w.Tuning
	targets := legalTargets(&w.Balls, target)
	if len(targets) == 0 {
		return t.BreakSpot
	}

	if p.Profile.Level <= 2 {
		// Nearest easy target: stand a few ball-widths off the closest one.
		best := w.Balls[targets[0]]
		for _, id := range targets[1:] {
			if w.Balls[id].Position.DistanceTo(t.BreakSpot) < best.Position.DistanceTo(t.BreakSpot) {
				best = w.Balls[id]
			}
		}
		offset := t.BreakSpot.Minus(best.Position).Normalize().Times(8 * t.BallRadius)
		pos := best.Position.Plus(offset)
		if w.placementLegal(pos) {
			return pos
		}
		return t.BreakSpot
	}

	const samples = 64
	bestScore := math.Inf(1)
	bestPos := t.BreakSpot
	margin := 2 * t.BallRadius

	for i := 0; i < samples; i++ {
		pos := NewVec2(
			w.Table.XMin+margin+p.rng.Float64()*(t.TableWidth-2*margin),
			w.Table.YMin+margin+p.rng.Float64()*(t.TableHeight-2*margin),
		)
		if !w.placementLegal(pos) {
			continue
		}
		score := math.Inf(1)
		for _, id := range targets {
			for pi := range w.Table.Pockets {
				if c, ok := p.scoreCandidate(w, pos, id, &w.Table.Pockets[pi]); ok && c.score < score {
					score = c.score
				}
			}
		}
		if score < bestScore {
			bestScore = score
			bestPos = pos
		}
	}
	return bestPos
}

// placementLegal checks a cue placement against table bounds, pocket
// zones, and ball clearance.
func (w *World) placementLegal(pos Vec2) bool {
	t := &w.Tuning
	r := t.BallRadius

	if pos.X-r < w.Table.XMin || pos.X+r > w.Table.XMax ||
		pos.Y-r < w.Table.YMin || pos.Y+r > w.Table.YMax {
		return false
	}
	if w.Table.NearPocketMouth(pos, t) {
		return false
	}
	for _, b := range w.Balls {
		if !b.Active || b.ID == 0 {
			continue
		}
		if pos.DistanceTo(b.Position) < t.PlacementClearance*2*r {
			return false
		}
	}
	return true
}
