// Scholarship Agent API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/openscholar/scholarship-agent/internal/agent"
	"github.com/openscholar/scholarship-agent/internal/api"
	"github.com/openscholar/scholarship-agent/internal/composer"
	"github.com/openscholar/scholarship-agent/internal/config"
	"github.com/openscholar/scholarship-agent/internal/history"
	"github.com/openscholar/scholarship-agent/internal/logger"
	"github.com/openscholar/scholarship-agent/internal/middleware"
	"github.com/openscholar/scholarship-agent/internal/search"
	"github.com/openscholar/scholarship-agent/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.L.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	if cfg.LLM.APIKey == "" {
		logger.L.Warn("GROQ_API_KEY is not set; composer calls will fail")
	}
	if cfg.Search.Provider == "tavily" && cfg.Search.APIKey == "" {
		logger.L.Warn("TAVILY_API_KEY is not set; scholarship search will fail")
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.L.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.L.Error("failed to close session store", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sweeper, ok := store.(session.Sweeper); ok {
		sweeper.StartSweeper(ctx)
	}

	adapter, err := search.New(cfg.Search)
	if err != nil {
		logger.L.Error("failed to initialize search adapter", "error", err)
		os.Exit(1)
	}

	comp := composer.New(cfg.LLM)
	ag := agent.New(adapter, comp, cfg.Search.Timeout())

	archive := history.NewArchive("")
	defer func() {
		if closeErr := archive.Close(); closeErr != nil {
			logger.L.Error("failed to close message archive", "error", closeErr)
		}
	}()

	handler := api.NewHandler(store, ag, archive, cfg)

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Mount("/", handler.Routes())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L.Info("starting server",
			"address", addr,
			"session_driver", cfg.Session.Driver,
			"session_timeout", cfg.Session.SessionTimeout(),
			"search_provider", cfg.Search.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.L.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("graceful shutdown failed", "error", err)
	}
}

// newStore builds the configured session store driver.
func newStore(cfg *config.Config) (session.Store, error) {
	opts := []session.StoreOption{
		session.WithTimeout(cfg.Session.SessionTimeout()),
	}

	switch cfg.Session.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		opts = append(opts, session.WithRedisClient(client))
		return session.NewStore(session.StoreTypeRedis, opts...)
	default:
		return session.NewStore(session.StoreTypeMemory, opts...)
	}
}
