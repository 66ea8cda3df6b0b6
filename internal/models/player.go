package models

import "time"

type PlayerSession struct {
	PlayerID     string    `json:"player_id" redis:"player_id"`
	SessionID    string    `json:"session_id" redis:"session_id"`
	CreatedAt    time.Time `json:"created_at" redis:"created_at"`
	LastAccessed time.Time `json:"last_accessed" redis:"last_accessed"`
}

type Player struct {
	ID   string `json:"id" redis:"id"`
	Name string `json:"name" redis:"name"`

	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	Nonce          int64  `json:"nonce" redis:"nonce"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}
