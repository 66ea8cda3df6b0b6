package services

import "time"

const (
	KeyPlayerSession    = "player:%s:session:%s"
	KeyPlayerInfo       = "player:%s:info"
	KeyPlayerActiveRoll = "player:%s:active_roll"
	KeyGlobalStreak     = "streak:global"
	KeyStreakChannel    = "streak:events"
	KeyRateLimit        = "ratelimit:%s:%s"

	TTLPlayerSession = 24 * time.Hour
	TTLPlayerInfo    = 30 * 24 * time.Hour // 30 days
	TTLActiveRoll    = 10 * time.Minute

	DefaultRateLimitRolls = 30 // Max 30 rolls per minute
	DefaultRateLimitReset = 5  // Max 5 global resets per minute
)
