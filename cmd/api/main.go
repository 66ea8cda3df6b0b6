package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/poirotw66/risk-dice--risky-dice/internal/config"
	"github.com/poirotw66/risk-dice--risky-dice/internal/handlers"
	"github.com/poirotw66/risk-dice--risky-dice/internal/middleware"
	"github.com/poirotw66/risk-dice--risky-dice/internal/services"
	"github.com/poirotw66/risk-dice--risky-dice/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	st, err := store.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	jwtService := services.NewJWTService(cfg)

	gameEngine, err := services.NewGameEngine(cfg, redisService, st)
	if err != nil {
		log.Fatalf("Failed to build game engine: %v", err)
	}
	defer gameEngine.Shutdown()

	wsHandler := handlers.NewWebSocketHandler(gameEngine, redisService)
	defer wsHandler.Close()
	gameEngine.SetBroadcaster(wsHandler)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			gameEngine.CleanupStaleRolls(10 * time.Minute)
		}
	}()

	authHandler := handlers.NewAuthHandler(cfg, redisService, jwtService, gameEngine)
	playerHandler := handlers.NewPlayerHandler(redisService, gameEngine, st)
	gameHandler := handlers.NewGameHandler(gameEngine, redisService, st)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/guest", authHandler.GuestLogin)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", playerHandler.GetCurrentPlayer)
		protected.POST("/logout", playerHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		dice := protected.Group("/dice")
		{
			dice.POST("/roll", gameHandler.Roll)
			dice.GET("/state", gameHandler.GetState)
			dice.GET("/history", gameHandler.GetHistory)
		}

		streak := protected.Group("/streak")
		{
			streak.GET("/global", gameHandler.GetGlobalStreak)
			streak.POST("/global/reset", gameHandler.ResetGlobalStreak)
		}

		protected.GET("/leaderboard", gameHandler.GetLeaderboard)

		protected.GET("/verification", gameHandler.GetVerificationData)
		protected.POST("/verification/rotate", gameHandler.RotateSeed)
		protected.POST("/verify", gameHandler.VerifyRoll)
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	log.Printf("Server starting on port %s", port)

	select {
	case <-ctx.Done():
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Forced shutdown: %v", err)
		}
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}
}
