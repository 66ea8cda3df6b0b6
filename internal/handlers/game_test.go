package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poirotw66/risk-dice--risky-dice/internal/config"
	"github.com/poirotw66/risk-dice--risky-dice/internal/geom"
	"github.com/poirotw66/risk-dice--risky-dice/internal/handlers"
	"github.com/poirotw66/risk-dice--risky-dice/internal/middleware"
	"github.com/poirotw66/risk-dice--risky-dice/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		SessionTTL:     time.Hour,
		TickRate:       60,
		SpinDuration:   time.Second,
		SkullChance:    0.05,
		RollsPerMinute: 30,
	}
}

// newVerifyRouter wires just enough of the API to exercise auth and
// verification without redis or sqlite behind it.
func newVerifyRouter(t *testing.T) (*gin.Engine, *services.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	jwtService := services.NewJWTService(cfg)

	engine, err := services.NewGameEngine(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}

	gameHandler := handlers.NewGameHandler(engine, nil, nil)

	router := gin.New()
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.POST("/verify", gameHandler.VerifyRoll)

	return router, jwtService
}

type verifyResponse struct {
	Success      bool `json:"success"`
	Verification struct {
		Valid   bool   `json:"valid"`
		Face    int    `json:"face"`
		Outcome string `json:"outcome"`
		Hash    string `json:"hash"`
	} `json:"verification"`
}

func postVerify(t *testing.T, router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyEndpoint(t *testing.T) {
	router, jwtService := newVerifyRouter(t)

	token, err := jwtService.GenerateToken("player-1", "session-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	body := `{"server_seed":"seed","client_seed":"client","nonce":3}`

	w := postVerify(t, router, token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp verifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || !resp.Verification.Valid {
		t.Errorf("Expected a valid verification, got %s", w.Body.String())
	}
	if resp.Verification.Face < 0 || resp.Verification.Face >= geom.FaceCount {
		t.Errorf("Verified face out of range: %d", resp.Verification.Face)
	}
	if resp.Verification.Outcome != "SAFE" && resp.Verification.Outcome != "BUST" {
		t.Errorf("Unexpected outcome %q", resp.Verification.Outcome)
	}
	if len(resp.Verification.Hash) != 64 {
		t.Errorf("Expected a 64-char commitment hash, got %q", resp.Verification.Hash)
	}

	// Same request must verify to the same roll.
	again := postVerify(t, router, token, body)
	var resp2 verifyResponse
	if err := json.Unmarshal(again.Body.Bytes(), &resp2); err != nil {
		t.Fatalf("Failed to decode second response: %v", err)
	}
	if resp2.Verification.Face != resp.Verification.Face || resp2.Verification.Outcome != resp.Verification.Outcome {
		t.Error("Verification should be deterministic")
	}
}

func TestVerifyEndpointRejectsBadRequest(t *testing.T) {
	router, jwtService := newVerifyRouter(t)

	token, err := jwtService.GenerateToken("player-1", "session-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	w := postVerify(t, router, token, `{"client_seed":"client"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Missing server seed should be a 400, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := services.NewJWTService(testConfig())

	router := gin.New()
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"player_id": c.GetString("player_id")})
	})

	get := func(header, query string) *httptest.ResponseRecorder {
		target := "/api/whoami"
		if query != "" {
			target += "?token=" + query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := get("", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("No credentials should be a 401, got %d", w.Code)
	}
	if w := get("Token abc", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Non-bearer header should be a 401, got %d", w.Code)
	}
	if w := get("Bearer garbage", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Invalid token should be a 401, got %d", w.Code)
	}

	token, err := jwtService.GenerateToken("player-9", "session-9")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	w := get("Bearer "+token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Valid token should pass, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "player-9") {
		t.Errorf("Handler should see the player id, got %s", w.Body.String())
	}

	// Websocket clients send the token as a query parameter instead.
	if w := get("", token); w.Code != http.StatusOK {
		t.Errorf("Query token should pass, got %d", w.Code)
	}
}
