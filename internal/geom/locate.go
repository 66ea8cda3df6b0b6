package geom

import (
	"math"

	"github.com/ungerik/go3d/float64/quaternion"
	"github.com/ungerik/go3d/float64/vec3"
)

// ViewDir is the fixed camera direction: the camera sits on +Z looking at the
// origin, so the face whose rotated normal has the largest +Z component is
// the one shown to the player.
var ViewDir = vec3.UnitZ

// FacingFace returns the index of the face most directly pointing at view
// under the given orientation. Ties resolve to the lowest index so repeated
// calls with the same inputs always agree.
func FacingFace(faces []Face, orientation *quaternion.T, view *vec3.T) int {
	best := -1
	bestDot := 0.0
	for i := range faces {
		rotated := orientation.RotatedVec3(&faces[i].Normal)
		d := vec3.Dot(&rotated, view)
		if best == -1 || d > bestDot {
			best = i
			bestDot = d
		}
	}
	return best
}

// RotationToFace returns the orientation that brings the given face's normal
// into the view direction, starting from the current orientation and moving
// along the shortest arc.
func RotationToFace(face *Face, current *quaternion.T, view *vec3.T) quaternion.T {
	normal := current.RotatedVec3(&face.Normal)
	delta := RotationBetween(&normal, view)
	target := quaternion.Mul(&delta, current)
	target.Normalize()
	return target
}

// RotationBetween returns the shortest-arc rotation carrying unit vector from
// onto unit vector to. Parallel and antipodal inputs are handled explicitly:
// parallel vectors yield the identity, antipodal vectors yield a half turn
// about an arbitrary perpendicular axis.
func RotationBetween(from, to *vec3.T) quaternion.T {
	const parallelEps = 1e-9

	d := vec3.Dot(from, to)
	switch {
	case d > 1-parallelEps:
		return quaternion.Ident
	case d < -1+parallelEps:
		axis := perpendicular(from)
		return quaternion.FromAxisAngle(&axis, math.Pi)
	}

	axis := vec3.Cross(from, to)
	axis.Normalize()
	angle := math.Acos(clamp(d, -1, 1))
	return quaternion.FromAxisAngle(&axis, angle)
}

// perpendicular returns a unit vector orthogonal to v. v must be non-zero.
func perpendicular(v *vec3.T) vec3.T {
	// Cross with whichever basis axis is least aligned with v.
	basis := vec3.UnitX
	if math.Abs(v[0]) > math.Abs(v[1]) {
		basis = vec3.UnitY
	}
	p := vec3.Cross(v, &basis)
	p.Normalize()
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
