package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/poirotw66/risk-dice--risky-dice/internal/geom"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

func TestFairFloatRange(t *testing.T) {
	for nonce := 0; nonce < 200; nonce++ {
		f := fairFloat("server-seed", fmt.Sprintf("face:client:%d", nonce))
		if f < 0 || f >= 1 {
			t.Fatalf("fairFloat out of [0, 1): nonce %d gave %g", nonce, f)
		}
	}
}

func TestDeriveRollDeterministic(t *testing.T) {
	face1, outcome1, spin1 := deriveRoll("server", "client", 42, 0.05)
	face2, outcome2, spin2 := deriveRoll("server", "client", 42, 0.05)

	if face1 != face2 || outcome1 != outcome2 || spin1 != spin2 {
		t.Errorf("Same inputs must derive the same roll: (%d %s %d) vs (%d %s %d)",
			face1, outcome1, spin1, face2, outcome2, spin2)
	}

	face3, _, _ := deriveRoll("other-server", "client", 42, 0.05)
	spin4 := spinSeed("server", "other-client", 42)
	if face1 == face3 && spin1 == spin4 {
		t.Error("Different seeds should not reproduce the full roll")
	}
}

func TestDeriveRollFaceBounds(t *testing.T) {
	seen := make(map[int]bool)

	for nonce := int64(0); nonce < 2000; nonce++ {
		face, _, spin := deriveRoll("server", "client", nonce, 0.05)
		if face < 0 || face >= geom.FaceCount {
			t.Fatalf("Face out of range at nonce %d: %d", nonce, face)
		}
		if spin < 0 {
			t.Fatalf("Spin seed must be non-negative, got %d at nonce %d", spin, nonce)
		}
		seen[face] = true
	}

	// 2000 derivations missing one of 20 faces would be a broken mapping,
	// not bad luck.
	if len(seen) != geom.FaceCount {
		t.Errorf("Expected all %d faces to appear, saw %d", geom.FaceCount, len(seen))
	}
}

func TestDeriveRollSkullChanceExtremes(t *testing.T) {
	for nonce := int64(0); nonce < 50; nonce++ {
		_, outcome, _ := deriveRoll("server", "client", nonce, 0)
		if outcome != models.OutcomeSafe {
			t.Fatalf("Zero skull chance must always be safe, nonce %d gave %s", nonce, outcome)
		}

		_, outcome, _ = deriveRoll("server", "client", nonce, 1)
		if outcome != models.OutcomeBust {
			t.Fatalf("Certain skull chance must always bust, nonce %d gave %s", nonce, outcome)
		}
	}
}

func TestHashSeed(t *testing.T) {
	sum := sha256.Sum256([]byte("seed"))
	want := hex.EncodeToString(sum[:])

	if got := hashSeed("seed"); got != want {
		t.Errorf("hashSeed mismatch: expected %s, got %s", want, got)
	}
	if len(hashSeed("x")) != 64 {
		t.Errorf("Seed hash should be 64 hex characters, got %d", len(hashSeed("x")))
	}
}
