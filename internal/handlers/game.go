package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poirotw66/risk-dice--risky-dice/internal/dice"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
	"github.com/poirotw66/risk-dice--risky-dice/internal/services"
	"github.com/poirotw66/risk-dice--risky-dice/internal/store"
)

type GameHandler struct {
	gameEngine   *services.GameEngine
	redisService *services.RedisService
	store        *store.Store
}

func NewGameHandler(gameEngine *services.GameEngine, redisService *services.RedisService, st *store.Store) *GameHandler {
	return &GameHandler{
		gameEngine:   gameEngine,
		redisService: redisService,
		store:        st,
	}
}

// Roll starts a new roll. The response carries everything the client needs to
// begin animating; the outcome arrives over the websocket once the die lands.
func (h *GameHandler) Roll(c *gin.Context) {
	playerID := c.GetString("player_id")

	roll, err := h.gameEngine.Roll(c.Request.Context(), playerID)
	if err != nil {
		if errors.Is(err, services.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many rolls. Please wait."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to roll",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"roll": models.RollResponse{
			RollID:         roll.ID,
			Face:           roll.Face,
			Nonce:          roll.Nonce,
			ClientSeed:     roll.ClientSeed,
			ServerSeedHash: roll.ServerSeedHash,
			StartedAt:      roll.StartedAt,
		},
	})
}

// GetState reports whatever the player should be looking at right now: the
// roll in flight if there is one, plus streak counters.
func (h *GameHandler) GetState(c *gin.Context) {
	playerID := c.GetString("player_id")

	stats, found, err := h.store.GetStats(c.Request.Context(), playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load stats",
			"details": err.Error(),
		})
		return
	}
	if !found {
		stats = *models.NewPlayerStats(playerID)
	}

	global, err := h.redisService.GetGlobalStreak()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load global streak",
			"details": err.Error(),
		})
		return
	}

	roll, frame, active := h.gameEngine.ActiveRoll(playerID)
	if !active {
		// Another instance may own the roll; the redis mirror still knows.
		mirror, err := h.redisService.GetActiveRoll(playerID)
		if err == nil && mirror != nil {
			roll = mirror
		}
	}

	if roll == nil {
		faces := dice.Appearance(models.OutcomePending, -1)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"active":  false,
			"faces":   faces[:],
			"stats":   stats,
			"global":  global,
		})
		return
	}

	faces := dice.Appearance(models.OutcomePending, roll.Face)
	response := gin.H{
		"success": true,
		"active":  true,
		"roll":    roll,
		"faces":   faces[:],
		"stats":   stats,
		"global":  global,
	}
	if active {
		response["frame"] = frame
	}

	c.JSON(http.StatusOK, response)
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	playerID := c.GetString("player_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	offsetStr := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	rolls, total, err := h.store.RecentRolls(c.Request.Context(), playerID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get roll history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rolls":   rolls,
		"count":   len(rolls),
		"total":   total,
	})
}

func (h *GameHandler) GetGlobalStreak(c *gin.Context) {
	streak, err := h.redisService.GetGlobalStreak()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get global streak",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"streak":  streak,
	})
}

// ResetGlobalStreak zeroes the community counter. Anyone can pull this lever;
// the rate limit middleware keeps it from being pulled constantly.
func (h *GameHandler) ResetGlobalStreak(c *gin.Context) {
	playerID := c.GetString("player_id")

	streak, err := h.redisService.ResetGlobalStreak()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reset global streak",
			"details": err.Error(),
		})
		return
	}

	event := &models.StreakEvent{
		Type:     models.StreakEventReset,
		Current:  streak.Current,
		Best:     streak.Best,
		Total:    streak.Total,
		PlayerID: playerID,
		At:       time.Now().Unix(),
	}
	if err := h.redisService.PublishStreakEvent(event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to announce reset",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"streak":  streak,
	})
}

func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	leaders, err := h.store.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get leaderboard",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"leaders": leaders,
		"count":   len(leaders),
	})
}

func (h *GameHandler) GetVerificationData(c *gin.Context) {
	playerID := c.GetString("player_id")

	data, err := h.gameEngine.GetVerificationData(playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get verification data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"client_seed":   data.ClientSeed,
			"server_hash":   data.ServerHash,
			"current_nonce": data.CurrentNonce,
			"player_id":     playerID,
		},
	})
}

// RotateSeed retires the current server seed and reveals it. Every roll made
// under the old seed becomes verifiable the moment this returns.
func (h *GameHandler) RotateSeed(c *gin.Context) {
	revealed, newHash, err := h.gameEngine.RotateServerSeed()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to rotate seed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"revealed_seed": revealed,
		"server_hash":   newHash,
	})
}

func (h *GameHandler) VerifyRoll(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	verification := h.gameEngine.VerifyRoll(req.ServerSeed, req.ClientSeed, req.Nonce)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"valid":       true,
			"face":        verification.Face,
			"outcome":     verification.Outcome,
			"hash":        verification.Hash,
			"client_seed": req.ClientSeed,
			"server_seed": req.ServerSeed,
			"nonce":       req.Nonce,
		},
	})
}
