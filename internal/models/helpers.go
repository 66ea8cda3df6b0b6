package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRollID() string {
	return fmt.Sprintf("roll_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16) // 128 bits of entropy
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

// NewPlayer builds a guest player with a fresh client seed. The server seed
// hash is stamped on by the game engine at registration, not here.
func NewPlayer(name string) (*Player, error) {
	clientSeed, err := GenerateClientSeed()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	return &Player{
		ID:         uuid.NewString(),
		Name:       name,
		ClientSeed: clientSeed,
		Nonce:      0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func NewPlayerStats(playerID string) *PlayerStats {
	return &PlayerStats{
		PlayerID:    playerID,
		LastOutcome: OutcomePending,
		UpdatedAt:   time.Now().Unix(),
	}
}

func (vr *VerifyRequest) Validate() error {
	if vr.ServerSeed == "" {
		return fmt.Errorf("server seed is required")
	}
	if vr.ClientSeed == "" {
		return fmt.Errorf("client seed is required")
	}
	if vr.Nonce < 0 {
		return fmt.Errorf("nonce must not be negative")
	}
	return nil
}
