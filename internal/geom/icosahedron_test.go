package geom

import (
	"math"
	"testing"

	"github.com/ungerik/go3d/float64/vec3"
)

const geomEps = 1e-9

func TestIcosahedronFaceCount(t *testing.T) {
	faces, err := Icosahedron(1)
	if err != nil {
		t.Fatalf("Icosahedron(1) returned error: %v", err)
	}
	if len(faces) != FaceCount {
		t.Fatalf("got %d faces, want %d", len(faces), FaceCount)
	}
	for i, f := range faces {
		if f.Index != i {
			t.Errorf("face %d carries index %d", i, f.Index)
		}
	}
}

func TestIcosahedronRejectsBadRadius(t *testing.T) {
	for _, r := range []float64{0, -1} {
		if _, err := Icosahedron(r); err == nil {
			t.Errorf("Icosahedron(%g) should fail", r)
		}
	}
}

func TestIcosahedronVerticesOnSphere(t *testing.T) {
	const radius = 2.5
	faces, err := Icosahedron(radius)
	if err != nil {
		t.Fatalf("Icosahedron: %v", err)
	}
	for _, f := range faces {
		for _, v := range f.Vertices {
			if got := v.Length(); math.Abs(got-radius) > geomEps {
				t.Fatalf("face %d vertex at distance %g, want %g", f.Index, got, radius)
			}
		}
	}
}

func TestIcosahedronNormalsUnitAndOutward(t *testing.T) {
	faces, err := Icosahedron(1)
	if err != nil {
		t.Fatalf("Icosahedron: %v", err)
	}
	for _, f := range faces {
		if got := f.Normal.Length(); math.Abs(got-1) > geomEps {
			t.Errorf("face %d normal length %g, want 1", f.Index, got)
		}
		centroid := vec3.Add(&f.Vertices[0], &f.Vertices[1])
		centroid = vec3.Add(&centroid, &f.Vertices[2])
		if vec3.Dot(&f.Normal, &centroid) <= 0 {
			t.Errorf("face %d normal points inward", f.Index)
		}
	}
}

// A regular icosahedron has congruent faces: every edge has the same length.
func TestIcosahedronEdgesCongruent(t *testing.T) {
	faces, err := Icosahedron(1)
	if err != nil {
		t.Fatalf("Icosahedron: %v", err)
	}
	want := -1.0
	for _, f := range faces {
		for i := 0; i < 3; i++ {
			a, b := f.Vertices[i], f.Vertices[(i+1)%3]
			edge := vec3.Sub(&b, &a)
			l := edge.Length()
			if want < 0 {
				want = l
				continue
			}
			if math.Abs(l-want) > geomEps {
				t.Fatalf("face %d edge length %g, want %g", f.Index, l, want)
			}
		}
	}
}

// Every edge of a closed triangulated solid must be shared by exactly two faces.
func TestIcosahedronEdgesShared(t *testing.T) {
	type edge struct{ lo, hi int }
	counts := make(map[edge]int)
	for _, idx := range icoFaces {
		for i := 0; i < 3; i++ {
			a, b := idx[i], idx[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			counts[edge{a, b}]++
		}
	}
	if len(counts) != 30 {
		t.Fatalf("got %d distinct edges, want 30", len(counts))
	}
	for e, n := range counts {
		if n != 2 {
			t.Errorf("edge %v shared by %d faces, want 2", e, n)
		}
	}
}

func TestIcosahedronDistinctNormals(t *testing.T) {
	faces, err := Icosahedron(1)
	if err != nil {
		t.Fatalf("Icosahedron: %v", err)
	}
	for i := range faces {
		for j := i + 1; j < len(faces); j++ {
			if d := vec3.Dot(&faces[i].Normal, &faces[j].Normal); d > 1-geomEps {
				t.Errorf("faces %d and %d share a normal", i, j)
			}
		}
	}
}
