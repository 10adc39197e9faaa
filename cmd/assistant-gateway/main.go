// cmd/assistant-gateway/main.go
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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shop-assistant/internal/api"
	"shop-assistant/internal/catalogue"
	"shop-assistant/internal/chat"
	"shop-assistant/internal/common/config"
	"shop-assistant/internal/common/database"
	apphttp "shop-assistant/internal/common/http"
	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/metrics"
	"shop-assistant/internal/common/observability"
	"shop-assistant/internal/llm"
	"shop-assistant/internal/models"
	"shop-assistant/internal/prompt"
	"shop-assistant/internal/recommend"
)

var version = "dev"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting assistant gateway...", zap.String("version", version))

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- 1. Catalogue ---
	source, closeSource := catalogueSource(cfg, zapLog)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), config.GetDuration(cfg.Catalogue.LoadTimeout))
	store := catalogue.Load(loadCtx, source, &catalogueLoggerAdapter{log})
	cancelLoad()
	closeSource()
	metrics.CatalogueProducts.Set(float64(store.Len()))

	// --- 2. LLM gateway ---
	llmConfig := llm.LoadConfig()
	llmConfig.APIKey = cfg.LLM.APIKey
	llmConfig.BaseURL = cfg.LLM.BaseURL
	if cfg.LLM.Timeout > 0 {
		llmConfig.Timeout = config.GetDuration(cfg.LLM.Timeout)
	}
	llmClient := llm.NewClient(
		llmConfig,
		apphttp.NewClient(llmConfig.Timeout+5*time.Second),
		&llmLoggerAdapter{log},
	)
	if !llmClient.HasCredential() {
		zapLog.Warn("no LLM API key configured; chat requests will fail until OPENAI_API_KEY is set")
	}

	// --- 3. Chat pipeline ---
	assembler := prompt.NewAssembler(prompt.Config{
		BrandName:          cfg.Prompt.BrandName,
		ContextMaxChars:    cfg.Prompt.ContextMaxChars,
		HistoryLimit:       cfg.Prompt.HistoryLimit,
		MaxRecommendations: cfg.Prompt.MaxRecommendations,
		Decoding: models.DecodingConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	})

	orchestrator := chat.NewOrchestrator(chat.Dependencies{
		Catalogue: store,
		Assembler: assembler,
		Completer: llmClient,
		Extractor: recommend.NewExtractor(store, cfg.Prompt.MaxRecommendations),
		Recorder:  obs,
		Logger:    &chatLoggerAdapter{log},
	}, chat.Config{StrictDefault: cfg.Prompt.StrictDefault})

	// --- 4. HTTP server ---
	handler := api.NewHandler(store, orchestrator, log, api.Options{
		AppName:      cfg.App.Name,
		Version:      version,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening",
			zap.String("addr", srv.Addr),
			zap.Int("products", store.Len()),
			zap.String("model", cfg.LLM.Model),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Assistant gateway stopped")
}

// catalogueSource picks the configured source. The returned func releases
// any connection opened for the load.
func catalogueSource(cfg *config.Config, zapLog *zap.Logger) (catalogue.Source, func()) {
	if cfg.Catalogue.Source != config.CatalogueSourceRedis {
		return catalogue.FileSource{Path: cfg.Catalogue.Path}, func() {}
	}

	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis client init failed", zap.Error(err))
	}

	err = retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return redisClient.Ping(ctx)
	}, 3, 500*time.Millisecond, zapLog, "Redis ping")
	if err != nil {
		zapLog.Warn("redis unavailable, catalogue will be empty", zap.Error(err))
	} else {
		zapLog.Info("Redis connected", zap.String("address", cfg.Database.Redis.Address))
	}

	return catalogue.RedisSource{Client: redisClient.Client, Key: cfg.Catalogue.RedisKey}, func() {
		if err := redisClient.Close(); err != nil {
			zapLog.Warn("redis close failed", zap.Error(err))
		}
	}
}

// --- Logger adapters ---

type catalogueLoggerAdapter struct {
	logger.Logger
}

func (a *catalogueLoggerAdapter) With(fields map[string]interface{}) catalogue.Logger {
	return &catalogueLoggerAdapter{a.Logger.With(fields)}
}

type llmLoggerAdapter struct {
	logger.Logger
}

func (a *llmLoggerAdapter) With(fields map[string]interface{}) llm.Logger {
	return &llmLoggerAdapter{a.Logger.With(fields)}
}

type chatLoggerAdapter struct {
	logger.Logger
}

func (a *chatLoggerAdapter) With(fields map[string]interface{}) chat.Logger {
	return &chatLoggerAdapter{a.Logger.With(fields)}
}
