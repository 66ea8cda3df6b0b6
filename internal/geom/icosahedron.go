// Package geom builds the fixed icosahedron geometry for the risk die and
// answers which face points at the viewer. It is pure math: no game state,
// no rendering, no randomness.
package geom

import (
	"fmt"
	"math"

	"github.com/ungerik/go3d/float64/vec3"
)

// FaceCount is the number of faces of a regular icosahedron (a d20).
const FaceCount = 20

// Face is one triangular face of the die. Faces are built once at startup
// and never mutated.
type Face struct {
	Index    int
	Vertices [3]vec3.T
	Normal   vec3.T // unit length, pointing away from the centroid
}

// icoVertices are the 12 vertices of a regular icosahedron centered at the
// origin, built from the golden ratio phi: cyclic permutations of (0, ±1, ±phi).
func icoVertices() [12]vec3.T {
	phi := (1.0 + math.Sqrt(5)) / 2.0
	return [12]vec3.T{
		{0, -1, -phi}, {0, -1, phi}, {0, 1, -phi}, {0, 1, phi},
		{-1, -phi, 0}, {-1, phi, 0}, {1, -phi, 0}, {1, phi, 0},
		{-phi, 0, -1}, {phi, 0, -1}, {-phi, 0, 1}, {phi, 0, 1},
	}
}

// icoFaces indexes icoVertices into the 20 triangular faces. Every edge is
// shared by exactly two faces.
var icoFaces = [FaceCount][3]int{
	{0, 1, 4}, {0, 4, 8}, {0, 8, 2}, {0, 2, 9}, {0, 9, 6},
	{1, 10, 4}, {4, 10, 5}, {4, 5, 8}, {8, 5, 3}, {8, 3, 2},
	{2, 3, 7}, {2, 7, 9}, {9, 7, 11}, {9, 11, 6}, {6, 11, 1},
	{1, 11, 10}, {10, 11, 7}, {10, 7, 5}, {5, 7, 3}, {6, 1, 0},
}

// Icosahedron returns the 20 faces of a regular icosahedron whose vertices
// sit at the given circumradius from the origin. Each face normal is unit
// length and points outward.
//
// The construction is deterministic; an error means the face table itself is
// broken, which callers must treat as fatal.
func Icosahedron(radius float64) ([]Face, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("icosahedron radius must be positive, got %g", radius)
	}

	raw := icoVertices()
	vertices := make([]vec3.T, len(raw))
	for i, v := range raw {
		scale := radius / v.Length()
		vertices[i] = v.Scaled(scale)
	}

	faces := make([]Face, 0, FaceCount)
	for i, idx := range icoFaces {
		a, b, c := vertices[idx[0]], vertices[idx[1]], vertices[idx[2]]

		e1 := vec3.Sub(&b, &a)
		e2 := vec3.Sub(&c, &a)
		normal := vec3.Cross(&e1, &e2)
		if normal.Length() == 0 {
			return nil, fmt.Errorf("face %d is degenerate", i)
		}
		normal.Normalize()

		// The solid is origin-centered, so the centroid direction is outward.
		centroid := vec3.Add(&a, &b)
		centroid = vec3.Add(&centroid, &c)
		if vec3.Dot(&normal, &centroid) < 0 {
			normal.Invert()
		}

		faces = append(faces, Face{
			Index:    i,
			Vertices: [3]vec3.T{a, b, c},
			Normal:   normal,
		})
	}

	if len(faces) != FaceCount {
		return nil, fmt.Errorf("icosahedron produced %d faces, want %d", len(faces), FaceCount)
	}
	return faces, nil
}
