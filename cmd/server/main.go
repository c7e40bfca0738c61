package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/auth"
	"github.com/freeeve/elemental-conquest/api/internal/config"
	"github.com/freeeve/elemental-conquest/api/internal/handler"
	"github.com/freeeve/elemental-conquest/api/internal/logger"
	"github.com/freeeve/elemental-conquest/api/internal/middleware"
	"github.com/freeeve/elemental-conquest/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/elemental-conquest/api/internal/repository/redis"
	"github.com/freeeve/elemental-conquest/api/internal/service"
)

func main() {
	logger.Init(logger.Options{Component: "server"})
	cfg := config.Load()
	log.Info().Str("port", cfg.Port).Dur("turnTimeout", cfg.TurnTimeout).
		Int("maxArmyRounds", cfg.MaxArmyRounds).Str("botDifficulty", cfg.BotDifficulty).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	if cfg.MigrationsDir != "" {
		n, err := postgres.Migrate(context.Background(), db, cfg.MigrationsDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Migrations failed")
		}
		log.Info().Int("applied", n).Str("dir", cfg.MigrationsDir).Msg("Migrations applied")
	}

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for timer expiry events.
	if err := redisClient.EnableExpiryEvents(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (turn timers fall back to polling)")
	}

	// Repos
	gameRepo := postgres.NewGameRepo(db)
	moveRepo := postgres.NewMoveRepo(db)

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	wsHub := handler.NewHub()

	// Services
	gameSvc := service.NewGameService(gameRepo, redisClient, wsHub, service.Options{
		Rules:         cfg.Rules(),
		TurnTimeout:   cfg.TurnTimeout,
		BotDifficulty: cfg.BotDifficulty,
	})
	moveSvc := service.NewMoveService(gameSvc, moveRepo, wsHub)

	// Timer listener (bot plays a turn when its deadline expires)
	timerListener := service.NewTimerListener(redisClient.Underlying(), moveSvc, gameRepo)

	// Handlers
	gameHandler := handler.NewGameHandler(gameSvc, jwtMgr)
	moveHandler := handler.NewMoveHandler(moveSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, cfg.AllowedOrigins)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)
	seat := func(h http.HandlerFunc) http.Handler { return authMw(h) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"postgres unavailable"}`))
			return
		}
		if err := redisClient.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"redis unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	api := http.NewServeMux()
	api.HandleFunc("POST /games", gameHandler.CreateGame)
	api.HandleFunc("GET /games", gameHandler.ListGames)
	api.HandleFunc("GET /games/{id}", gameHandler.GetGame)
	api.HandleFunc("GET /games/{id}/state", gameHandler.GetState)
	api.HandleFunc("GET /games/{id}/status", gameHandler.GetStatus)
	api.HandleFunc("GET /games/{id}/moves", moveHandler.ListMoves)
	api.HandleFunc("GET /rooms/{code}", gameHandler.GetRoom)
	api.HandleFunc("POST /rooms/{code}/join", gameHandler.JoinRoom)

	// Seat token required
	api.Handle("POST /games/{id}/moves", seat(moveHandler.SubmitMove))
	api.Handle("GET /games/{id}/legal-moves", seat(moveHandler.LegalMoves))
	api.Handle("POST /games/{id}/stop", seat(gameHandler.StopGame))

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", api))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	root := middleware.Chain(mux,
		middleware.Recover,
		middleware.Logger,
		middleware.CORS(cfg.AllowedOrigins),
		middleware.JSON,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Rehydrate Redis from Postgres and resume bot turns after a restart.
	if err := moveSvc.RecoverActiveGames(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.TurnTimeout > 0 {
		go timerListener.Start(ctx)
	} else {
		log.Info().Msg("Turn timers disabled")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
