package models

type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeSafe    Outcome = "SAFE"
	OutcomeBust    Outcome = "BUST"
)

// Settled reports whether the outcome is final.
func (o Outcome) Settled() bool {
	return o == OutcomeSafe || o == OutcomeBust
}

type Roll struct {
	ID       string  `json:"id" redis:"id"`
	PlayerID string  `json:"player_id" redis:"player_id"`
	Face     int     `json:"face" redis:"face"`
	Outcome  Outcome `json:"outcome" redis:"outcome"`

	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	Nonce          int64  `json:"nonce" redis:"nonce"`

	StreakAfter int `json:"streak_after" redis:"streak_after"`

	Status    string `json:"status" redis:"status"` // spinning, settling, settled
	StartedAt int64  `json:"started_at" redis:"started_at"`
	SettledAt int64  `json:"settled_at" redis:"settled_at"`
}
