package models

type PlayerStats struct {
	PlayerID    string  `json:"player_id" redis:"player_id"`
	Streak      int     `json:"streak" redis:"streak"`
	MaxStreak   int     `json:"max_streak" redis:"max_streak"`
	TotalRolls  int64   `json:"total_rolls" redis:"total_rolls"`
	LastOutcome Outcome `json:"last_outcome" redis:"last_outcome"`
	UpdatedAt   int64   `json:"updated_at" redis:"updated_at"`
}

// Apply folds a settled outcome into the running streak counters.
func (s *PlayerStats) Apply(outcome Outcome) {
	s.TotalRolls++
	s.LastOutcome = outcome
	switch outcome {
	case OutcomeSafe:
		s.Streak++
		if s.Streak > s.MaxStreak {
			s.MaxStreak = s.Streak
		}
	case OutcomeBust:
		s.Streak = 0
	}
}

type LeaderboardEntry struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	MaxStreak int    `json:"max_streak"`
}
