package models_test

import (
	"testing"

	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

func TestModels(t *testing.T) {
	roll := &models.Roll{
		ID:       models.GenerateRollID(),
		PlayerID: "p-123",
		Face:     7,
		Outcome:  models.OutcomePending,
		Status:   "spinning",
	}

	if roll.ID == "" {
		t.Error("Roll ID should not be empty")
	}
	if roll.Outcome.Settled() {
		t.Error("Pending outcome should not count as settled")
	}

	player, err := models.NewPlayer("guest")
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	if player.ID == "" {
		t.Error("Player should have an id")
	}
	if player.ClientSeed == "" {
		t.Error("Player should have a client seed")
	}
	if player.Nonce != 0 {
		t.Errorf("Fresh player nonce should be 0, got %d", player.Nonce)
	}

	verifyReq := &models.VerifyRequest{
		ServerSeed: "seed",
		ClientSeed: "client",
		Nonce:      3,
	}
	if err := verifyReq.Validate(); err != nil {
		t.Errorf("VerifyRequest validation failed: %v", err)
	}

	invalidVerify := &models.VerifyRequest{ClientSeed: "client"}
	if err := invalidVerify.Validate(); err == nil {
		t.Error("Verify request without server seed should fail validation")
	}
}

func TestPlayerStatsApply(t *testing.T) {
	stats := models.NewPlayerStats("p-123")

	stats.Apply(models.OutcomeSafe)
	stats.Apply(models.OutcomeSafe)
	if stats.Streak != 2 || stats.MaxStreak != 2 {
		t.Fatalf("after two safe rolls: streak=%d max=%d, want 2/2", stats.Streak, stats.MaxStreak)
	}

	stats.Apply(models.OutcomeBust)
	if stats.Streak != 0 {
		t.Errorf("bust should reset streak, got %d", stats.Streak)
	}
	if stats.MaxStreak != 2 {
		t.Errorf("bust should keep max streak, got %d", stats.MaxStreak)
	}
	if stats.TotalRolls != 3 {
		t.Errorf("total rolls should count every outcome, got %d", stats.TotalRolls)
	}

	stats.Apply(models.OutcomeSafe)
	if stats.Streak != 1 || stats.MaxStreak != 2 {
		t.Errorf("recovery roll: streak=%d max=%d, want 1/2", stats.Streak, stats.MaxStreak)
	}
}
