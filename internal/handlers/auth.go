package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/poirotw66/risk-dice--risky-dice/internal/config"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
	"github.com/poirotw66/risk-dice--risky-dice/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	gameEngine   *services.GameEngine
	sessionTTL   time.Duration
}

func NewAuthHandler(cfg *config.Config, redisService *services.RedisService, jwtService *services.JWTService, gameEngine *services.GameEngine) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		gameEngine:   gameEngine,
		sessionTTL:   cfg.SessionTTL,
	}
}

// GuestLogin creates an anonymous player and hands back a session token.
// There is no password and nothing to recover; lose the token, lose the
// streak.
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	req := struct {
		Name string `json:"name"`
	}{}
	// The body is optional; an empty POST is a nameless guest.
	_ = c.ShouldBindJSON(&req)

	name := strings.TrimSpace(req.Name)
	if len(name) > 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must be 32 characters or fewer"})
		return
	}
	if name == "" {
		name = "Guest-" + uuid.NewString()[:8]
	}

	player, err := models.NewPlayer(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create player",
			"details": err.Error(),
		})
		return
	}
	player.ServerSeedHash = h.gameEngine.GetServerHash()

	if err := h.redisService.StorePlayer(player); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to store player",
			"details": err.Error(),
		})
		return
	}

	now := time.Now()
	session := &models.PlayerSession{
		PlayerID:     player.ID,
		SessionID:    uuid.NewString(),
		CreatedAt:    now,
		LastAccessed: now,
	}

	if err := h.redisService.StorePlayerSession(session, h.sessionTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create session",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwtService.GenerateToken(player.ID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to issue token",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"player":  player,
		"session": gin.H{
			"session_id": session.SessionID,
			"expires_in": h.sessionTTL.Seconds(),
		},
	})
}
