package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/poirotw66/risk-dice--risky-dice/internal/config"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	service := &RedisService{
		client: client,
		ctx:    ctx,
	}

	return service, nil
}

func (s *RedisService) StorePlayerSession(session *models.PlayerSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyPlayerSession, session.PlayerID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, expiry).Err()
}

func (s *RedisService) GetPlayerSession(playerID, sessionID string) (*models.PlayerSession, error) {
	key := fmt.Sprintf("player:%s:session:%s", playerID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.PlayerSession
	err = json.Unmarshal([]byte(data), &session)
	if err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLPlayerSession)

	return &session, nil
}

func (s *RedisService) DeletePlayerSession(playerID, sessionID string) error {
	key := fmt.Sprintf("player:%s:session:%s", playerID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) StorePlayer(player *models.Player) error {
	key := fmt.Sprintf("player:%s:info", player.ID)

	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, TTLPlayerInfo).Err()
}

func (s *RedisService) GetPlayer(playerID string) (*models.Player, error) {
	key := fmt.Sprintf(KeyPlayerInfo, playerID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var player models.Player
	err = json.Unmarshal([]byte(data), &player)
	return &player, err
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// SaveActiveRoll mirrors the roll a player currently has in flight so state
// reads survive a reconnect. The mirror is written at phase transitions, not
// every frame.
func (s *RedisService) SaveActiveRoll(roll *models.Roll) error {
	key := fmt.Sprintf(KeyPlayerActiveRoll, roll.PlayerID)

	data, err := json.Marshal(roll)
	if err != nil {
		return fmt.Errorf("failed to marshal active roll: %v", err)
	}

	return s.client.Set(s.ctx, key, data, TTLActiveRoll).Err()
}

func (s *RedisService) GetActiveRoll(playerID string) (*models.Roll, error) {
	key := fmt.Sprintf("player:%s:active_roll", playerID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active roll: %v", err)
	}

	var roll models.Roll
	if err := json.Unmarshal([]byte(data), &roll); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active roll: %v", err)
	}

	return &roll, nil
}

func (s *RedisService) ClearActiveRoll(playerID string) error {
	key := fmt.Sprintf("player:%s:active_roll", playerID)
	return s.client.Del(s.ctx, key).Err()
}

// applyStreakScript advances the shared streak counter in one atomic step so
// concurrent rolls from different players (or server instances) never lose an
// update. Returns {current, best, total}.
var applyStreakScript = redis.NewScript(`
	local key = KEYS[1]
	local safe = ARGV[1] == "1"

	local current = tonumber(redis.call("HGET", key, "current") or "0")
	local best = tonumber(redis.call("HGET", key, "best") or "0")
	local total = tonumber(redis.call("HGET", key, "total") or "0")

	total = total + 1
	if safe then
		current = current + 1
		if current > best then
			best = current
		end
	else
		current = 0
	end

	redis.call("HSET", key, "current", current, "best", best, "total", total)

	return {current, best, total}
`)

func (s *RedisService) ApplyGlobalStreak(outcome models.Outcome) (models.GlobalStreak, error) {
	safe := "0"
	if outcome == models.OutcomeSafe {
		safe = "1"
	}

	values, err := applyStreakScript.Run(s.ctx, s.client, []string{KeyGlobalStreak}, safe).Int64Slice()
	if err != nil {
		return models.GlobalStreak{}, fmt.Errorf("failed to apply global streak: %v", err)
	}
	if len(values) != 3 {
		return models.GlobalStreak{}, fmt.Errorf("unexpected streak script reply: %v", values)
	}

	return models.GlobalStreak{
		Current: values[0],
		Best:    values[1],
		Total:   values[2],
	}, nil
}

func (s *RedisService) GetGlobalStreak() (models.GlobalStreak, error) {
	fields, err := s.client.HGetAll(s.ctx, KeyGlobalStreak).Result()
	if err != nil {
		return models.GlobalStreak{}, fmt.Errorf("failed to get global streak: %v", err)
	}

	// Missing fields parse to zero, which is exactly what a fresh counter is.
	return models.GlobalStreak{
		Current: parseCounter(fields["current"]),
		Best:    parseCounter(fields["best"]),
		Total:   parseCounter(fields["total"]),
	}, nil
}

// ResetGlobalStreak zeroes the running streak. Best and total are historical
// and survive the reset.
func (s *RedisService) ResetGlobalStreak() (models.GlobalStreak, error) {
	if err := s.client.HSet(s.ctx, KeyGlobalStreak, "current", 0).Err(); err != nil {
		return models.GlobalStreak{}, fmt.Errorf("failed to reset global streak: %v", err)
	}

	return s.GetGlobalStreak()
}

func (s *RedisService) PublishStreakEvent(event *models.StreakEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal streak event: %v", err)
	}

	return s.client.Publish(s.ctx, KeyStreakChannel, data).Err()
}

// SubscribeStreakEvents opens a pub/sub subscription on the streak channel.
// The caller owns the returned subscription and must Close it.
func (s *RedisService) SubscribeStreakEvents() *redis.PubSub {
	return s.client.Subscribe(s.ctx, KeyStreakChannel)
}

func (s *RedisService) CheckRateLimit(playerID string, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRollRateLimit(playerID string) error {
	key := fmt.Sprintf("ratelimit:%s:roll", playerID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) DeletePlayer(playerID string) error {
	key := fmt.Sprintf("player:%s:info", playerID)
	return s.client.Del(s.ctx, key).Err()
}

func parseCounter(value string) int64 {
	n, _ := strconv.ParseInt(value, 10, 64)
	return n
}
