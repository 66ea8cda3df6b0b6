// Package dice animates a d20 between a roll trigger and its settled result.
// The die itself never decides outcomes: it is told the designated face and
// the outcome, and its only job is to tumble convincingly and finish with
// that face under the camera.
package dice

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/ungerik/go3d/float64/quaternion"
	"github.com/ungerik/go3d/float64/vec3"

	"github.com/poirotw66/risk-dice--risky-dice/internal/geom"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseSpinning   Phase = "SPINNING"
	PhaseConverging Phase = "CONVERGING"
)

// ErrNotSpinning is returned by StopRoll when there is no spin to stop.
var ErrNotSpinning = errors.New("die is not spinning")

// Frame is the per-tick snapshot handed to broadcasters.
type Frame struct {
	Orientation quaternion.T `json:"orientation"` // [x y z w]
	Phase       Phase        `json:"phase"`
	Facing      int          `json:"facing"`
	Settled     bool         `json:"settled"`
	Forced      bool         `json:"forced"`
}

// Die runs one d20 through Idle -> Spinning -> Converging -> Idle.
// Not safe for concurrent use; the engine serializes access per player.
type Die struct {
	faces []geom.Face
	rng   *rand.Rand

	orientation quaternion.T
	phase       Phase

	designated int
	outcome    models.Outcome

	// spin state
	angVel     vec3.T
	targetVel  vec3.T
	retargetIn float64

	// convergence state
	target  quaternion.T
	retries int
	forced  bool
}

func New(faces []geom.Face, rng *rand.Rand) (*Die, error) {
	if len(faces) != geom.FaceCount {
		return nil, fmt.Errorf("die needs %d faces, got %d", geom.FaceCount, len(faces))
	}
	if rng == nil {
		return nil, fmt.Errorf("die needs a random source")
	}
	return &Die{
		faces:       faces,
		rng:         rng,
		orientation: quaternion.Ident,
		phase:       PhaseIdle,
		designated:  -1,
		outcome:     models.OutcomePending,
	}, nil
}

// StartRoll begins spinning toward the given face. Calling it mid-roll
// supersedes the in-flight animation: all transient state is reset.
func (d *Die) StartRoll(face int) error {
	if face < 0 || face >= len(d.faces) {
		return fmt.Errorf("face index %d out of range [0,%d)", face, len(d.faces))
	}

	d.phase = PhaseSpinning
	d.designated = face
	d.outcome = models.OutcomePending
	d.retries = 0
	d.forced = false
	d.target = quaternion.Ident
	d.retargetIn = 0 // pick a fresh tumble target on the next Advance

	kick := d.randomAxis()
	speed := spinMinSpeed + d.rng.Float64()*(spinMaxSpeed-spinMinSpeed)
	d.angVel = kick.Scaled(speed)
	d.targetVel = d.angVel
	return nil
}

// StopRoll records the settled outcome; the next Advance leaves Spinning and
// starts converging on the designated face.
func (d *Die) StopRoll(outcome models.Outcome) error {
	if d.phase != PhaseSpinning {
		return ErrNotSpinning
	}
	if !outcome.Settled() {
		return fmt.Errorf("outcome %q cannot settle a roll", outcome)
	}
	d.outcome = outcome
	return nil
}

// Advance steps the animation by dt seconds and returns the frame to show.
// It is the single mutation point for the orientation.
func (d *Die) Advance(dt float64) Frame {
	if dt > maxFrameDt {
		dt = maxFrameDt
	}
	if dt > 0 && !math.IsNaN(dt) {
		switch d.phase {
		case PhaseSpinning:
			d.advanceSpin(dt)
		case PhaseConverging:
			d.advanceConverge(dt)
		}
	}
	return d.frame()
}

func (d *Die) Phase() Phase              { return d.phase }
func (d *Die) Designated() int           { return d.designated }
func (d *Die) Outcome() models.Outcome   { return d.outcome }
func (d *Die) Orientation() quaternion.T { return d.orientation }

func (d *Die) frame() Frame {
	return Frame{
		Orientation: d.orientation,
		Phase:       d.phase,
		Facing:      geom.FacingFace(d.faces, &d.orientation, &geom.ViewDir),
		Settled:     d.phase == PhaseIdle && d.outcome.Settled(),
		Forced:      d.forced,
	}
}

func (d *Die) advanceSpin(dt float64) {
	if d.outcome.Settled() {
		d.beginConverge()
		d.advanceConverge(dt)
		return
	}

	d.retargetIn -= dt
	if d.retargetIn <= 0 {
		d.retargetIn = spinRetargetMin + d.rng.Float64()*(spinRetargetMax-spinRetargetMin)
		axis := d.randomAxis()
		if d.designated >= 0 {
			// Pull the tumble toward the arc that will later carry the
			// designated face to the camera, so convergence starts close.
			axis = blendAxes(axis, d.correctionAxis(), spinBias)
		}
		speed := spinMinSpeed + d.rng.Float64()*(spinMaxSpeed-spinMinSpeed)
		d.targetVel = axis.Scaled(speed)
	}

	alpha := 1 - math.Exp(-spinSmoothing*dt)
	step := vec3.Sub(&d.targetVel, &d.angVel)
	step.Scale(alpha)
	d.angVel = vec3.Add(&d.angVel, &step)
	d.angVel.Scale(math.Exp(-spinFriction * dt))

	d.rotate(dt)
}

func (d *Die) rotate(dt float64) {
	speed := d.angVel.Length()
	if speed < 1e-12 {
		return
	}
	axis := d.angVel.Scaled(1 / speed)
	dq := quaternion.FromAxisAngle(&axis, speed*dt)
	d.orientation = quaternion.Mul(&dq, &d.orientation)
	d.orientation.Normalize()
}

func (d *Die) beginConverge() {
	d.phase = PhaseConverging
	d.retarget()
}

// retarget recomputes the convergence target from the current orientation and
// flips it into the same hemisphere, so the slerp walks the shorter arc.
func (d *Die) retarget() {
	d.target = geom.RotationToFace(&d.faces[d.designated], &d.orientation, &geom.ViewDir)
	if quaternion.Dot(&d.orientation, &d.target) < 0 {
		d.target = quaternion.T{-d.target[0], -d.target[1], -d.target[2], -d.target[3]}
	}
}

func (d *Die) advanceConverge(dt float64) {
	angle := angularDistance(&d.orientation, &d.target)
	if angle <= snapAngle {
		d.orientation = d.target
		d.settle()
		return
	}

	omega := convergeGain*angle + convergeMinRate
	t := omega * dt / angle
	if t >= 1 {
		d.orientation = d.target
		d.settle()
		return
	}
	// Slerp is only called with distinct quaternions: angle > snapAngle here.
	d.orientation = quaternion.Slerp(&d.orientation, &d.target, t)
	d.orientation.Normalize()
}

// settle verifies the locator agrees with the designated face. A mismatch
// recomputes the target and tries again, up to maxAlignRetries; exhaustion
// forces the exact alignment so the roll always completes.
func (d *Die) settle() {
	if got := geom.FacingFace(d.faces, &d.orientation, &geom.ViewDir); got != d.designated {
		if d.retries < maxAlignRetries {
			d.retries++
			d.retarget()
			return
		}
		d.forced = true
		log.Printf("WARN: die forced alignment to face %d after %d retries", d.designated, d.retries)
		d.orientation = geom.RotationToFace(&d.faces[d.designated], &quaternion.Ident, &geom.ViewDir)
	}
	d.phase = PhaseIdle
	d.angVel = vec3.Zero
	d.targetVel = vec3.Zero
}

// correctionAxis is the axis of the shortest rotation carrying the designated
// face's current world normal onto the view direction.
func (d *Die) correctionAxis() vec3.T {
	normal := d.orientation.RotatedVec3(&d.faces[d.designated].Normal)
	axis := vec3.Cross(&normal, &geom.ViewDir)
	if axis.Length() < 1e-9 {
		// Aligned or antipodal: no preferred arc, keep tumbling randomly.
		return d.randomAxis()
	}
	axis.Normalize()
	return axis
}

// randomAxis draws a uniformly distributed unit vector. The all-zero draw is
// vanishingly unlikely but guarded anyway.
func (d *Die) randomAxis() vec3.T {
	for i := 0; i < 8; i++ {
		v := vec3.T{d.rng.NormFloat64(), d.rng.NormFloat64(), d.rng.NormFloat64()}
		if l := v.Length(); l > 1e-9 {
			v.Scale(1 / l)
			return v
		}
	}
	return vec3.UnitY
}

func blendAxes(a, b vec3.T, w float64) vec3.T {
	sa := a.Scaled(1 - w)
	sb := b.Scaled(w)
	mixed := vec3.Add(&sa, &sb)
	if mixed.Length() < 1e-9 {
		// Opposing axes cancel out; keep the random pick.
		return a
	}
	mixed.Normalize()
	return mixed
}

// angularDistance is the rotation angle in radians separating two unit
// quaternions, hemisphere-corrected.
func angularDistance(a, b *quaternion.T) float64 {
	d := math.Abs(quaternion.Dot(a, b))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}
