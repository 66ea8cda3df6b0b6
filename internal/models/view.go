package models

// FaceView is what the browser needs to draw one face of the die.
type FaceView struct {
	Label       string `json:"label"`
	Color       string `json:"color"` // hex fill, e.g. "#22c55e"
	Highlighted bool   `json:"highlighted"`
}

type VerificationData struct {
	ClientSeed   string `json:"client_seed"`
	ServerHash   string `json:"server_hash"`
	CurrentNonce int64  `json:"current_nonce"`
}

type RollResponse struct {
	RollID         string `json:"roll_id"`
	Face           int    `json:"face"`
	Nonce          int64  `json:"nonce"`
	ClientSeed     string `json:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	StartedAt      int64  `json:"started_at"`
}

type VerifyRequest struct {
	ServerSeed string `json:"server_seed" binding:"required"`
	ClientSeed string `json:"client_seed" binding:"required"`
	Nonce      int64  `json:"nonce" binding:"min=0"`
}

type VerifyResponse struct {
	Face    int     `json:"face"`
	Outcome Outcome `json:"outcome"`
	Hash    string  `json:"hash"`
}

// RollResult is the settle payload pushed to clients and returned by the
// state endpoint once a roll finishes.
type RollResult struct {
	Roll   Roll         `json:"roll"`
	Stats  PlayerStats  `json:"stats"`
	Global GlobalStreak `json:"global"`
	Faces  []FaceView   `json:"faces"`
	Sound  string       `json:"sound"`
	Forced bool         `json:"forced"`
}
