package dice

// Animation tuning. These only shape the motion; outcomes are decided before
// the die ever moves.
const (
	// Spinning: random tumble, re-targeted on an interval and smoothed so the
	// die never jerks between axes.
	spinMinSpeed    = 4.0  // rad/s
	spinMaxSpeed    = 9.0  // rad/s
	spinSmoothing   = 6.0  // 1/s, approach rate toward the target velocity
	spinFriction    = 0.35 // 1/s, velocity decay
	spinBias        = 0.35 // weight pulling the tumble toward the designated face
	spinRetargetMin = 0.25 // s
	spinRetargetMax = 0.60 // s

	// Converging: angular rate scales with the remaining angle plus a floor,
	// so the approach eases out but cannot stall.
	convergeGain    = 8.0   // fraction of remaining angle per second
	convergeMinRate = 1.5   // rad/s floor
	snapAngle       = 0.015 // rad, under this the orientation snaps exactly

	// Alignment verification after the snap.
	maxAlignRetries = 3

	// A browser tab coming back from the background reports a huge dt; clamp
	// it to one bounded step instead of teleporting the die.
	maxFrameDt = 0.1 // s
)
