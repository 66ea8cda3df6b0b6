package dice

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ungerik/go3d/float64/quaternion"

	"github.com/poirotw66/risk-dice--risky-dice/internal/geom"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

const frameDt = 1.0 / 60

func testDie(t *testing.T, seed int64) *Die {
	t.Helper()
	faces, err := geom.Icosahedron(1)
	if err != nil {
		t.Fatalf("Icosahedron: %v", err)
	}
	d, err := New(faces, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// advanceUntilSettled runs frames until the die settles, failing the test if
// it does not happen within maxFrames.
func advanceUntilSettled(t *testing.T, d *Die, maxFrames int) (Frame, int) {
	t.Helper()
	for i := 1; i <= maxFrames; i++ {
		f := d.Advance(frameDt)
		if f.Settled {
			return f, i
		}
	}
	t.Fatalf("die did not settle within %d frames (phase %s)", maxFrames, d.Phase())
	return Frame{}, 0
}

func TestNewValidatesInput(t *testing.T) {
	faces, err := geom.Icosahedron(1)
	if err != nil {
		t.Fatalf("Icosahedron: %v", err)
	}
	if _, err := New(faces[:19], rand.New(rand.NewSource(1))); err == nil {
		t.Error("New should reject a truncated face list")
	}
	if _, err := New(faces, nil); err == nil {
		t.Error("New should reject a nil random source")
	}
}

func TestStartRollValidatesFace(t *testing.T) {
	d := testDie(t, 1)
	for _, face := range []int{-1, geom.FaceCount, 99} {
		if err := d.StartRoll(face); err == nil {
			t.Errorf("StartRoll(%d) should fail", face)
		}
	}
	for _, face := range []int{0, 7, geom.FaceCount - 1} {
		if err := d.StartRoll(face); err != nil {
			t.Errorf("StartRoll(%d): %v", face, err)
		}
	}
}

func TestStopRollStates(t *testing.T) {
	d := testDie(t, 2)

	if err := d.StopRoll(models.OutcomeSafe); !errors.Is(err, ErrNotSpinning) {
		t.Errorf("StopRoll on an idle die: got %v, want ErrNotSpinning", err)
	}

	if err := d.StartRoll(3); err != nil {
		t.Fatalf("StartRoll: %v", err)
	}
	if err := d.StopRoll(models.OutcomePending); err == nil {
		t.Error("StopRoll(PENDING) should fail")
	}
	if err := d.StopRoll(models.OutcomeBust); err != nil {
		t.Errorf("StopRoll(BUST): %v", err)
	}

	// The transition happens on the next frame; once converging, further
	// stops are rejected.
	d.Advance(frameDt)
	if d.Phase() == PhaseSpinning {
		t.Fatal("die should have left Spinning after StopRoll + Advance")
	}
	if err := d.StopRoll(models.OutcomeSafe); !errors.Is(err, ErrNotSpinning) {
		t.Errorf("StopRoll while converging: got %v, want ErrNotSpinning", err)
	}
}

func TestSpinMovesDie(t *testing.T) {
	d := testDie(t, 3)
	if err := d.StartRoll(5); err != nil {
		t.Fatalf("StartRoll: %v", err)
	}
	start := d.Orientation()
	var f Frame
	for i := 0; i < 30; i++ {
		f = d.Advance(frameDt)
	}
	if f.Phase != PhaseSpinning {
		t.Fatalf("phase %s after 30 frames, want SPINNING", f.Phase)
	}
	if f.Settled {
		t.Error("spinning die should not report settled")
	}
	now := d.Orientation()
	if angularDistance(&start, &now) < 0.05 {
		t.Error("die barely moved while spinning")
	}
}

func TestRollSettlesOnDesignatedFace(t *testing.T) {
	for face := 0; face < geom.FaceCount; face++ {
		d := testDie(t, int64(100+face))
		if err := d.StartRoll(face); err != nil {
			t.Fatalf("StartRoll(%d): %v", face, err)
		}
		for i := 0; i < 60; i++ {
			d.Advance(frameDt)
		}
		if err := d.StopRoll(models.OutcomeSafe); err != nil {
			t.Fatalf("StopRoll: %v", err)
		}

		f, _ := advanceUntilSettled(t, d, 300)
		if f.Facing != face {
			t.Errorf("face %d: settled facing %d", face, f.Facing)
		}
		if f.Forced {
			t.Errorf("face %d: convergence needed forced alignment", face)
		}
		if d.Phase() != PhaseIdle {
			t.Errorf("face %d: phase %s after settle, want IDLE", face, d.Phase())
		}
	}
}

// From any spin, convergence must finish within 300 frames at 60 fps.
func TestConvergenceLiveness(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		for _, face := range []int{0, 7, 19} {
			d := testDie(t, seed)
			if err := d.StartRoll(face); err != nil {
				t.Fatalf("StartRoll: %v", err)
			}
			for i := 0; i < 90; i++ {
				d.Advance(frameDt)
			}
			if err := d.StopRoll(models.OutcomeBust); err != nil {
				t.Fatalf("StopRoll: %v", err)
			}
			if _, frames := advanceUntilSettled(t, d, 300); frames > 120 {
				t.Logf("seed %d face %d took %d frames", seed, face, frames)
			}
		}
	}
}

func TestRestartSupersedes(t *testing.T) {
	d := testDie(t, 4)
	if err := d.StartRoll(3); err != nil {
		t.Fatalf("StartRoll: %v", err)
	}
	for i := 0; i < 10; i++ {
		d.Advance(frameDt)
	}
	if err := d.StopRoll(models.OutcomeSafe); err != nil {
		t.Fatalf("StopRoll: %v", err)
	}
	d.Advance(frameDt) // now converging on face 3

	if err := d.StartRoll(9); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if d.Phase() != PhaseSpinning {
		t.Fatalf("restart should return to Spinning, got %s", d.Phase())
	}
	if d.Outcome() != models.OutcomePending {
		t.Fatalf("restart should clear the outcome, got %s", d.Outcome())
	}
	if d.Designated() != 9 {
		t.Fatalf("restart should redesignate, got %d", d.Designated())
	}

	for i := 0; i < 30; i++ {
		d.Advance(frameDt)
	}
	if err := d.StopRoll(models.OutcomeBust); err != nil {
		t.Fatalf("StopRoll: %v", err)
	}
	f, _ := advanceUntilSettled(t, d, 300)
	if f.Facing != 9 {
		t.Errorf("superseding roll settled on face %d, want 9", f.Facing)
	}
}

func TestAdvanceIdleKeepsOrientation(t *testing.T) {
	d := testDie(t, 5)
	start := d.Orientation()
	for i := 0; i < 10; i++ {
		f := d.Advance(frameDt)
		if f.Phase != PhaseIdle {
			t.Fatalf("idle die reported phase %s", f.Phase)
		}
		if f.Settled {
			t.Fatal("idle die with no outcome should not report settled")
		}
	}
	now := d.Orientation()
	if angularDistance(&start, &now) > 1e-12 {
		t.Error("idle die moved")
	}
}

func TestAdvanceDegenerateDt(t *testing.T) {
	d := testDie(t, 6)
	if err := d.StartRoll(2); err != nil {
		t.Fatalf("StartRoll: %v", err)
	}
	d.Advance(frameDt)
	before := d.Orientation()

	for _, dt := range []float64{0, -1, math.NaN()} {
		d.Advance(dt)
		now := d.Orientation()
		if angularDistance(&before, &now) > 1e-12 {
			t.Fatalf("Advance(%v) moved the die", dt)
		}
	}

	// A huge dt collapses to one bounded step instead of teleporting.
	d.Advance(10)
	now := d.Orientation()
	if step := angularDistance(&before, &now); step > spinMaxSpeed*maxFrameDt+0.01 {
		t.Errorf("Advance(10) stepped %g rad, want at most %g", step, spinMaxSpeed*maxFrameDt)
	}
}

// A stale target exercises the verification retry: the first snap lands on
// the wrong face, the counter increments, and the recomputed target fixes it.
func TestVerificationRetryRecovers(t *testing.T) {
	d := testDie(t, 7)
	d.designated = 4
	d.outcome = models.OutcomeSafe
	d.phase = PhaseConverging
	d.target = geom.RotationToFace(&d.faces[11], &d.orientation, &geom.ViewDir)

	f, _ := advanceUntilSettled(t, d, 300)
	if f.Facing != 4 {
		t.Fatalf("settled facing %d, want 4", f.Facing)
	}
	if d.retries == 0 {
		t.Error("expected at least one verification retry")
	}
	if f.Forced {
		t.Error("retry should recover without forcing")
	}
}

// Exhausting the retry budget forces the alignment rather than spinning
// forever.
func TestForcedAlignmentAfterRetries(t *testing.T) {
	d := testDie(t, 8)
	d.designated = 4
	d.outcome = models.OutcomeBust
	d.phase = PhaseConverging
	d.retries = maxAlignRetries
	d.target = geom.RotationToFace(&d.faces[11], &d.orientation, &geom.ViewDir)

	f, _ := advanceUntilSettled(t, d, 300)
	if !f.Forced {
		t.Fatal("expected forced alignment after exhausted retries")
	}
	if f.Facing != 4 {
		t.Fatalf("forced alignment landed on face %d, want 4", f.Facing)
	}
	if d.Phase() != PhaseIdle {
		t.Fatalf("phase %s after forced settle, want IDLE", d.Phase())
	}
}

func TestFrameOrientationIsUnit(t *testing.T) {
	d := testDie(t, 9)
	if err := d.StartRoll(13); err != nil {
		t.Fatalf("StartRoll: %v", err)
	}
	for i := 0; i < 120; i++ {
		f := d.Advance(frameDt)
		q := f.Orientation
		norm := math.Sqrt(quaternion.Dot(&q, &q))
		if math.Abs(norm-1) > 1e-6 {
			t.Fatalf("frame %d orientation norm %g", i, norm)
		}
	}
}
