package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Rrens/zara-ai/internal/api"
	"github.com/Rrens/zara-ai/internal/chat"
	"github.com/Rrens/zara-ai/internal/config"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/Rrens/zara-ai/internal/llm/gemini"
	"github.com/Rrens/zara-ai/internal/llm/ollama"
	"github.com/Rrens/zara-ai/internal/logger"
	"github.com/Rrens/zara-ai/internal/offline"
	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/Rrens/zara-ai/internal/repository/file"
	"github.com/Rrens/zara-ai/internal/repository/postgres"
	"github.com/Rrens/zara-ai/internal/repository/redis"
	"github.com/Rrens/zara-ai/internal/repository/sqlite"
	"github.com/Rrens/zara-ai/internal/security"
	"github.com/Rrens/zara-ai/internal/service"
	"github.com/Rrens/zara-ai/internal/session"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting Zara AI server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var redisClient *redis.Client
	if cfg.Storage.Driver == config.StorageRedis || cfg.Security.RateLimit.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	kv, closeStorage, err := openStorage(ctx, cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStorage()

	if cfg.Storage.EncryptionKey != "" {
		encryptor, err := newEncryptor(cfg.Storage.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize encryption")
		}
		kv = security.NewEncryptedKV(kv, encryptor)
		log.Info().Msg("Session storage encryption enabled")
	}

	adapter := persistence.NewAdapter(kv)
	store := session.Open(ctx, adapter, session.Options{
		Key:      cfg.Storage.SessionsKey,
		Debounce: cfg.Session.DebounceWindow,
	})

	// Initialize LLM Router with providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}

	temperature := cfg.LLM.Temperature
	behavior := llm.BehaviorConfig{
		Provider:          cfg.LLM.DefaultProvider,
		SystemInstruction: cfg.LLM.SystemInstruction,
		Temperature:       &temperature,
	}

	// Connectivity
	monitor := offline.NewMonitor(!cfg.Offline.StartOffline)
	if cfg.Offline.ProbeAddress != "" {
		go monitor.Run(ctx, cfg.Offline.ProbeInterval, offline.TCPProbe(cfg.Offline.ProbeAddress))
	}

	controller := chat.NewController(store, llmRouter,
		chat.WithBehavior(behavior),
		chat.WithTimeout(cfg.LLM.RequestTimeout),
		chat.WithConnectivity(monitor),
	)
	studyService := service.NewStudyService(llmRouter, behavior)

	deps := api.Deps{
		Config:   cfg,
		Sessions: store,
		Chat:     controller,
		Study:    studyService,
		LLM:      llmRouter,
		Storage:  adapter,
		Monitor:  monitor,
	}
	if cfg.Security.RateLimit.Enabled {
		deps.Limiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	controller.Abort()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	store.Close(shutdownCtx)
	if err := store.PersistError(); err != nil {
		log.Error().Err(err).Msg("Sessions were not saved before exit")
	}

	log.Info().Msg("Server stopped")
}

// openStorage returns the key/value backend for the configured driver
func openStorage(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (persistence.KV, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory storage, sessions are lost on restart")
		return persistence.NewMemoryKV(), noop, nil

	case config.StorageFile:
		kv, err := file.NewKV(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil

	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		if err := sqlite.RunMigrations(cfg.Storage.SQLitePath); err != nil {
			return nil, nil, err
		}
		kv, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { kv.Close() }, nil

	case config.StoragePostgres:
		if err := postgres.RunMigrations(cfg.Database.DSN()); err != nil {
			return nil, nil, err
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewKV(db.Pool), db.Close, nil

	case config.StorageRedis:
		return redis.NewKV(redisClient), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}

// newEncryptor accepts a base64 encoded 32-byte key or any passphrase
func newEncryptor(key string) (*security.Encryptor, error) {
	if enc, err := security.NewEncryptorFromBase64(key); err == nil {
		return enc, nil
	}
	return security.NewEncryptorFromPassphrase(key)
}
