// Package store persists settled rolls and per-player streak stats in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

type Store struct {
	db *sql.DB
}

// New opens/creates a SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rolls (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			face INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			streak_after INTEGER NOT NULL,
			client_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			settled_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rolls_player_settled ON rolls(player_id, settled_at DESC);`,

		`CREATE TABLE IF NOT EXISTS player_stats (
			player_id TEXT PRIMARY KEY,
			name TEXT DEFAULT '',
			streak INTEGER NOT NULL,
			max_streak INTEGER NOT NULL,
			total_rolls INTEGER NOT NULL,
			last_outcome TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_player_stats_max_streak ON player_stats(max_streak DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveRoll records a settled roll. Idempotent on the roll id: replays of the
// same settle are ignored.
func (s *Store) SaveRoll(ctx context.Context, roll *models.Roll) error {
	if roll.ID == "" {
		return errors.New("missing roll id")
	}
	if !roll.Outcome.Settled() {
		return fmt.Errorf("refusing to persist unsettled roll %s", roll.ID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rolls(
			id, player_id, face, outcome, streak_after,
			client_seed, server_seed_hash, nonce, started_at, settled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		roll.ID, roll.PlayerID, roll.Face, string(roll.Outcome), roll.StreakAfter,
		roll.ClientSeed, roll.ServerSeedHash, roll.Nonce, roll.StartedAt, roll.SettledAt)
	if err != nil {
		if isConstraintErr(err) {
			return nil
		}
		return err
	}
	return nil
}

// RecentRolls returns a player's settled rolls, newest first, with the total
// count for paging.
func (s *Store) RecentRolls(ctx context.Context, playerID string, limit, offset int) ([]models.Roll, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rolls WHERE player_id=?`, playerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, face, outcome, streak_after,
		       client_seed, server_seed_hash, nonce, started_at, settled_at
		FROM rolls
		WHERE player_id=?
		ORDER BY settled_at DESC, id DESC
		LIMIT ? OFFSET ?`, playerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Roll
	for rows.Next() {
		var r models.Roll
		var outcome string
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.Face, &outcome, &r.StreakAfter,
			&r.ClientSeed, &r.ServerSeedHash, &r.Nonce, &r.StartedAt, &r.SettledAt); err != nil {
			return nil, 0, err
		}
		r.Outcome = models.Outcome(outcome)
		r.Status = "settled"
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// UpsertStats writes the player's streak counters, replacing any prior row.
func (s *Store) UpsertStats(ctx context.Context, name string, stats *models.PlayerStats) error {
	if stats.PlayerID == "" {
		return errors.New("missing player id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_stats(player_id, name, streak, max_streak, total_rolls, last_outcome, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			name=excluded.name,
			streak=excluded.streak,
			max_streak=excluded.max_streak,
			total_rolls=excluded.total_rolls,
			last_outcome=excluded.last_outcome,
			updated_at=excluded.updated_at
	`, stats.PlayerID, name, stats.Streak, stats.MaxStreak, stats.TotalRolls,
		string(stats.LastOutcome), time.Now().Unix())
	return err
}

// GetStats loads a player's counters. found is false for players who have
// never settled a roll.
func (s *Store) GetStats(ctx context.Context, playerID string) (models.PlayerStats, bool, error) {
	var st models.PlayerStats
	var outcome string
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, streak, max_streak, total_rolls, last_outcome, updated_at
		FROM player_stats WHERE player_id=?`, playerID).
		Scan(&st.PlayerID, &st.Streak, &st.MaxStreak, &st.TotalRolls, &outcome, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PlayerStats{PlayerID: playerID, LastOutcome: models.OutcomePending}, false, nil
	}
	if err != nil {
		return st, false, err
	}
	st.LastOutcome = models.Outcome(outcome)
	return st, true, nil
}

// Leaderboard returns the best streaks across all players, highest first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, name, max_streak
		FROM player_stats
		WHERE total_rolls > 0
		ORDER BY max_streak DESC, total_rolls DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.MaxStreak); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func isConstraintErr(err error) bool {
	// modernc sqlite reports constraint violations through the error message.
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "unique constraint")
}
