package models

type StreakEventType string

const (
	StreakEventSafe  StreakEventType = "safe"
	StreakEventBust  StreakEventType = "bust"
	StreakEventReset StreakEventType = "reset"
)

// GlobalStreak is the community counter shared by every connected player.
type GlobalStreak struct {
	Current int64 `json:"current" redis:"current"`
	Best    int64 `json:"best" redis:"best"`
	Total   int64 `json:"total" redis:"total"`
}

// StreakEvent is published on the streak pub/sub channel whenever the global
// counter changes, so every server instance can fan it out to its clients.
type StreakEvent struct {
	Type     StreakEventType `json:"type"`
	Current  int64           `json:"current"`
	Best     int64           `json:"best"`
	Total    int64           `json:"total"`
	PlayerID string          `json:"player_id,omitempty"`
	At       int64           `json:"at"`
}
