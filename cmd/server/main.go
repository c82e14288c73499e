package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/handler"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/hub"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/relay"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/server"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/service"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/store"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/upstream"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; the default global still works.
		l := log.L()
		l.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	conversations, err := newConversationStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize conversation store")
	}
	defer conversations.Close()

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()
	defer wsHub.Stop()

	difyClient := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.User, cfg.Upstream.SystemPrompt)
	chatRelay := relay.New(difyClient, cfg.Upstream.Timeout)
	chatSvc := service.NewChatService(chatRelay, conversations)

	// Bind before wiring the handler: the port endpoint must report the
	// port actually bound, not the preferred one.
	listener, port, err := server.Listen(cfg.Server.Host, cfg.Server.Port)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to bind listen port")
	}
	if port != cfg.Server.Port {
		logger.Info().Int("preferred", cfg.Server.Port).Int("bound", port).Msg("preferred port occupied, probed upward")
	}

	wsHandler := handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket, port)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	httpServer := &http.Server{
		Handler:     log.HTTPMiddleware(logger)(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", port).Msg("chat relay listening")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat relay stopped")
}

func newConversationStore(cfg *config.Config) (store.ConversationStore, error) {
	switch store.StoreType(cfg.Store.Driver) {
	case store.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return store.New(store.StoreTypeRedis,
			store.WithRedisClient(client),
			store.WithRedisTTL(cfg.Store.TTL),
		)
	default:
		return store.New(store.StoreTypeMemory)
	}
}
