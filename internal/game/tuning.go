package game

// NumBalls is the full ball set: 0=cue, 1-7=solids, 8=eight, 9-15=stripes.
const NumBalls = 16

// Tuning carries every physics and pocket coefficient by name so the
// numbers can be regression-tested instead of living as scattered literals.
// All distances are millimeters, speeds mm/s, times seconds.
type Tuning struct {
	// Stepping
	Timestep    float64 // fixed physics sub-step
	MaxSubSteps int     // cap per frame; excess accumulated time is dropped

	// Table
	TableWidth  float64
	TableHeight float64
	BallRadius  float64

	// Ball motion
	MaxBallSpeed  float64 // hard clamp after integration
	Friction      float64 // linear deceleration
	StopThreshold float64 // below this, velocity snaps to zero
	RollDamping   float64 // proportional damping per second
	SpinDecay     float64 // ySpin decay toward zero per second
	CurveFactor   float64 // perpendicular swerve accel per unit ySpin*speed
	MaxYSpin      float64

	// Screw (draw/follow) impulse on cue first contact
	ScrewImpulse float64 // fraction of post-collision normal velocity
	ScrewDecay   float64 // geometric decay per sub-step
	ScrewCutoff  float64 // below this magnitude the impulse is dropped

	// Ball-ball collisions
	BallRestitution    float64
	HardImpactSpeed    float64 // above this, restitution is reduced
	HardImpactLoss     float64
	SeparationFraction float64 // fraction of overlap corrected per resolve
	SeparationSlop     float64 // overlap tolerated to avoid jitter
	TangentFriction    float64 // fraction of tangential relative velocity
	TangentFrictionCap float64 // cap relative to normal impulse magnitude
	SlowIterationSpeed float64 // below this, 1 resolve iteration instead of 3
	GripLossSpeed      float64 // normal speed that wipes grip

	// Cushions
	CushionRestitution float64
	CushionTangentLoss float64
	EnglishTransfer    float64 // fraction of english fed into tangential velocity
	EnglishDecay       float64 // english retained per cushion contact
	SpinFeedback       float64 // tangential speed to ySpin conversion
	PocketExemptFactor float64 // balls within factor*pocketRadius skip cushions

	// Pockets
	CornerPocketRadius      float64
	SidePocketRadius        float64
	CornerSinkFactor        float64 // sink radius = factor * pocket radius
	SideSinkFactor          float64
	RightCornerSinkFactor   float64
	PullRadiusFactor        float64 // pull radius = factor * pocket radius
	PullStrength            float64 // attraction accel per unit proximity*speed
	GripRecovery            float64 // grip regained per second

	// Shots
	MaxShotPower       float64
	MinShotPower       float64
	BreakSpot          Vec2    // cue ball respawn after a scratch
	PlacementClearance float64 // multiple of summed radii for ball-in-hand

	// AI
	AIThinkDelay float64 // simulation seconds before the AI shoots

	// Rules
	RequireCalledPocket bool // 8-ball must be called into a pocket
	BreakCushionMin     int  // distinct cushion contacts for a legal break
}

// DefaultTuning returns the coefficients the game ships with.
func DefaultTuning() Tuning {
	return Tuning{
		Timestep:    1.0 / 120.0,
		MaxSubSteps: 6,

		TableWidth:  2540,
		TableHeight: 1270,
		BallRadius:  28.5,

		MaxBallSpeed:  6000,
		Friction:      800,
		StopThreshold: 15,
		RollDamping:   0.35,
		SpinDecay:     24,
		CurveFactor:   0.008,
		MaxYSpin:      50,

		ScrewImpulse: 0.17,
		ScrewDecay:   0.8,
		ScrewCutoff:  1.0,

		BallRestitution:    0.94,
		HardImpactSpeed:    2500,
		HardImpactLoss:     0.06,
		SeparationFraction: 0.8,
		SeparationSlop:     0.1,
		TangentFriction:    0.12,
		TangentFrictionCap: 0.4,
		SlowIterationSpeed: 300,
		GripLossSpeed:      450,

		CushionRestitution: 0.75,
		CushionTangentLoss: 0.92,
		EnglishTransfer:    0.2,
		EnglishDecay:       0.5,
		SpinFeedback:       0.01,
		PocketExemptFactor: 1.5,

		CornerPocketRadius:    60,
		SidePocketRadius:      52,
		CornerSinkFactor:      1.0,
		SideSinkFactor:        0.85,
		RightCornerSinkFactor: 1.05,
		PullRadiusFactor:      2.2,
		PullStrength:          1.2,
		GripRecovery:          2.4,

		MaxShotPower:       4000,
		MinShotPower:       40,
		BreakSpot:          NewVec2(-635, 0),
		PlacementClearance: 1.05,

		AIThinkDelay: 1.2,

		RequireCalledPocket: true,
		BreakCushionMin:     4,
	}
}
