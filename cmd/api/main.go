// main.go - Entry point and router setup for the extraction service.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chriisy/myhrvold-claims-system-sub001/configs"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/ai"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/api"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/ocr"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/pipeline"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/processor"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/storage"
)

func main() {
	cfg := configs.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Strategy chain: deterministic first, then the billed AI tiers in
	// order. Tiers without credentials simply stay out of the chain.
	engine := ocr.NewTesseract(ocr.Config{
		Languages: cfg.TesseractLanguages,
		DPI:       cfg.TesseractDPI,
	})
	strategies := []pipeline.Strategy{pipeline.NewDeterministic(engine)}

	assistant := ai.NewAssistant(ai.AssistantConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		AssistantID:  cfg.OpenAIAssistantID,
		Timeout:      cfg.AssistantTimeout,
		PollInterval: cfg.AssistantPollInterval,
	}, logger)
	if assistant.Configured() {
		strategies = append(strategies, assistant)
	} else {
		logger.Warn("assistant tier not configured, skipping")
	}

	if cfg.GeminiAPIKey != "" {
		vision, err := ai.NewVision(ctx, ai.VisionConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.VisionTimeout,
		}, logger)
		if err != nil {
			logger.Error("vision tier init failed", "error", err)
			os.Exit(1)
		}
		defer vision.Close()
		strategies = append(strategies, vision)
	} else {
		logger.Warn("vision tier not configured, skipping")
	}

	mapper := processor.NewMapper(processor.MapperConfig{
		TotalTolerance:        cfg.TotalTolerance,
		MismatchPenalty:       cfg.MismatchPenalty,
		ConfidenceFloor:       cfg.ConfidenceFloor,
		DefaultCustomerNumber: cfg.DefaultCustomerNumber,
		DefaultOrderAddress:   cfg.DefaultOrderAddress,
	})
	pipe := pipeline.New(strategies, mapper, cfg.ConfidenceThreshold, logger)

	var archive *storage.Archive
	if cfg.MongoURI != "" {
		var err error
		archive, err = storage.NewArchive(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.Error("archive init failed", "error", err)
			os.Exit(1)
		}
		defer archive.Close(ctx)
	} else {
		logger.Info("extraction-run archive disabled")
	}

	handler := api.NewHandler(pipe, archive, cfg.MaxUploadBytes, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.GET("/health", handler.Health)
	router.POST("/api/v1/extract-invoice", handler.ExtractInvoice)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   2 * time.Minute, // OCR plus two AI tiers can take a while
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func newLogger(cfg *configs.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
