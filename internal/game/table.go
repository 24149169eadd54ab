package game

// PocketKind selects the sink/pull tuning for a pocket. The right-hand
// corner pockets are cut slightly deeper than the left on the reference
// table, so they get their own variant.
type PocketKind int

const (
	PocketCorner PocketKind = iota
	PocketSide
	PocketCornerRight
)

// Pocket is immutable after table setup.
type Pocket struct {
	ID       int        `json:"id"`
	Position Vec2       `json:"position"`
	Radius   float64    `json:"radius"`
	Kind     PocketKind `json:"kind"`
}

// SinkRadius is the capture distance for this pocket.
func (p *Pocket) SinkRadius(t *Tuning) float64 {
	switch p.Kind {
	case PocketSide:
		return p.Radius * t.SideSinkFactor
	case PocketCornerRight:
		return p.Radius * t.RightCornerSinkFactor
	default:
		return p.Radius * t.CornerSinkFactor
	}
}

// PullRadius is the distance within which the pocket attracts passing balls.
func (p *Pocket) PullRadius(t *Tuning) float64 {
	return p.Radius * t.PullRadiusFactor
}

// Table holds the static geometry: axis-aligned rail bounds and six pockets.
// The origin is the table center, +x toward the foot (rack) end.
type Table struct {
	XMin, XMax float64
	YMin, YMax float64
	Pockets    []Pocket
}

// NewTable builds the table geometry from the tuning dimensions.
func NewTable(t Tuning) *Table {
	hw := t.TableWidth / 2
	hh := t.TableHeight / 2
	cr := t.CornerPocketRadius
	sr := t.SidePocketRadius

	return &Table{
		XMin: -hw,
		XMax: hw,
		YMin: -hh,
		YMax: hh,
		Pockets: []Pocket{
			{ID: 0, Position: NewVec2(-hw, -hh), Radius: cr, Kind: PocketCorner},
			{ID: 1, Position: NewVec2(0, -hh), Radius: sr, Kind: PocketSide},
			{ID: 2, Position: NewVec2(hw, -hh), Radius: cr, Kind: PocketCornerRight},
			{ID: 3, Position: NewVec2(-hw, hh), Radius: cr, Kind: PocketCorner},
			{ID: 4, Position: NewVec2(0, hh), Radius: sr, Kind: PocketSide},
			{ID: 5, Position: NewVec2(hw, hh), Radius: cr, Kind: PocketCornerRight},
		},
	}
}

// NearestPocket returns the pocket closest to pos.
func (tb *Table) NearestPocket(pos Vec2) *Pocket {
	var best *Pocket
	bestDist := 0.0
	for i := range tb.Pockets {
		d := tb.Pockets[i].Position.DistanceTo(pos)
		if best == nil || d < bestDist {
			best = &tb.Pockets[i]
			bestDist = d
		}
	}
	return best
}

// NearPocketMouth reports whether pos sits inside the cushion-exemption zone
// of any pocket, where rail reflection is suppressed so the ball can be
// pulled in instead of bouncing off the jaw.
func (tb *Table) NearPocketMouth(pos Vec2, t *Tuning) bool {
	for i := range tb.Pockets {
		if pos.DistanceTo(tb.Pockets[i].Position) < t.PocketExemptFactor*tb.Pockets[i].Radius {
			return true
		}
	}
	return false
}

// RackPositions returns the standard triangle with the 8-ball centered in the
// third row and the cue ball on the break spot. Fixed offsets, no jitter, so
// both peers rack identically.
func RackPositions(t Tuning) [NumBalls]Vec2 {
	var pos [NumBalls]Vec2

	apexX := t.TableWidth / 4
	br := t.BallRadius
	rowGap := 1.782 * br // row spacing along x
	colGap := 1.05 * br  // half spacing along y

	pos[0] = t.BreakSpot

	// Row 1 (apex)
	pos[1] = NewVec2(apexX, 0)

	// Row 2
	pos[2] = NewVec2(apexX+rowGap, colGap)
	pos[15] = NewVec2(apexX+rowGap, -colGap)

	// Row 3, eight in the middle
	pos[8] = NewVec2(apexX+2*rowGap, 0)
	pos[5] = NewVec2(apexX+2*rowGap, 2*colGap)
	pos[10] = NewVec2(apexX+2*rowGap, -2*colGap)

	// Row 4
	pos[7] = NewVec2(apexX+3*rowGap, colGap)
	pos[4] = NewVec2(apexX+3*rowGap, 3*colGap)
	pos[9] = NewVec2(apexX+3*rowGap, -colGap)
	pos[6] = NewVec2(apexX+3*rowGap, -3*colGap)

	// Row 5
	pos[11] = NewVec2(apexX+4*rowGap, 0)
	pos[12] = NewVec2(apexX+4*rowGap, 2*colGap)
	pos[13] = NewVec2(apexX+4*rowGap, -2*colGap)
	pos[14] = NewVec2(apexX+4*rowGap, 4*colGap)
	pos[3] = NewVec2(apexX+4*rowGap, -4*colGap)

	return pos
}
