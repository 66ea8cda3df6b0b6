package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
	"github.com/poirotw66/risk-dice--risky-dice/internal/services"
	"github.com/poirotw66/risk-dice--risky-dice/internal/store"
)

type PlayerHandler struct {
	redisService *services.RedisService
	gameEngine   *services.GameEngine
	store        *store.Store
}

func NewPlayerHandler(redisService *services.RedisService, gameEngine *services.GameEngine, st *store.Store) *PlayerHandler {
	return &PlayerHandler{
		redisService: redisService,
		gameEngine:   gameEngine,
		store:        st,
	}
}

func (h *PlayerHandler) GetCurrentPlayer(c *gin.Context) {
	playerID, exists := c.Get("player_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Player not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	session, err := h.redisService.GetPlayerSession(playerID.(string), sessionID.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	player, err := h.redisService.GetPlayer(playerID.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Player record expired"})
		return
	}

	stats, found, err := h.store.GetStats(c.Request.Context(), player.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load stats",
			"details": err.Error(),
		})
		return
	}
	if !found {
		stats = *models.NewPlayerStats(player.ID)
	}

	c.JSON(http.StatusOK, gin.H{
		"player": player,
		"session": gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
		"stats": stats,
		"verification": gin.H{
			"client_seed":   player.ClientSeed,
			"server_hash":   h.gameEngine.GetServerHash(),
			"current_nonce": player.Nonce,
		},
	})
}

func (h *PlayerHandler) Logout(c *gin.Context) {
	playerID, exists := c.Get("player_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Player not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	err := h.redisService.DeletePlayerSession(playerID.(string), sessionID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
