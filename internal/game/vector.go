package game

import "math"

// Vec2 is a 2D vector with fixed-precision arithmetic so that the same shot
// replayed on another instance settles at exactly the same positions.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// fix rounds to 4 decimal places. Every arithmetic result passes through
// this so accumulated float noise cannot diverge between peers.
func fix(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	return math.Round(n*10000) / 10000
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: fix(x), Y: fix(y)}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: fix(v.X + o.X), Y: fix(v.Y + o.Y)}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: fix(v.X - o.X), Y: fix(v.Y - o.Y)}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: fix(v.X * s), Y: fix(v.Y * s)}
}

func (v Vec2) Dot(o Vec2) float64 {
	return fix(v.X*o.X + v.Y*o.Y)
}

func (v Vec2) Magnitude() float64 {
	return fix(math.Sqrt(v.X*v.X + v.Y*v.Y))
}

func (v Vec2) MagnitudeSquared() float64 {
	return fix(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) DistanceTo(o Vec2) float64 {
	return v.Minus(o).Magnitude()
}

func (v Vec2) Normalize() Vec2 {
	m := v.Magnitude()
	if m == 0 {
		return Vec2{}
	}
	return v.Times(1.0 / m)
}

// RightNormal returns the vector rotated -90 degrees.
func (v Vec2) RightNormal() Vec2 {
	return Vec2{X: v.Y, Y: -v.X}
}

// LeftNormal returns the vector rotated +90 degrees.
func (v Vec2) LeftNormal() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Rotate rotates the vector by the given angle in radians.
func (v Vec2) Rotate(rad float64) Vec2 {
	mag := math.Sqrt(v.X*v.X + v.Y*v.Y)
	angle := math.Atan2(v.Y, v.X) + rad
	return Vec2{
		X: fix(mag * math.Cos(angle)),
		Y: fix(mag * math.Sin(angle)),
	}
}

func (v Vec2) Invert() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// AngleBetween returns the unsigned angle between two vectors in radians.
func (v Vec2) AngleBetween(o Vec2) float64 {
	denom := v.Magnitude() * o.Magnitude()
	if denom == 0 {
		return 0
	}
	cos := v.Dot(o) / denom
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return fix(math.Acos(cos))
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// segmentIntersectsCircle reports whether the segment a->b passes within
// radius of center. Used for overlap separation and AI line-of-sight checks.
func segmentIntersectsCircle(a, b, center Vec2, radius float64) bool {
	ab := b.Minus(a)
	lenSq := ab.MagnitudeSquared()
	if lenSq == 0 {
		return a.DistanceTo(center) < radius
	}
	t := center.Minus(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := a.Plus(ab.Times(t))
	return closest.DistanceTo(center) < radius
}
