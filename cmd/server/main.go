package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/amberlin/invoice-studio/internal/ai"
	"github.com/amberlin/invoice-studio/internal/api"
	"github.com/amberlin/invoice-studio/internal/config"
	"github.com/amberlin/invoice-studio/internal/export"
	"github.com/amberlin/invoice-studio/internal/extract"
	"github.com/amberlin/invoice-studio/internal/preview"
	"github.com/amberlin/invoice-studio/internal/repository"
	"github.com/amberlin/invoice-studio/pkg/database"
	"github.com/amberlin/invoice-studio/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Invoice Studio",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Upload.TempDir, 0755); err != nil {
		logger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	repo := repository.NewDocumentRepository(db.DB, logger)

	suggester := ai.NewSuggester(ai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		VisionModel: cfg.OpenAI.VisionModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	}, logger)
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("No OpenAI API key configured, assistant endpoints disabled")
	}

	extractor := extract.NewExtractor(cfg.Upload.VisionPages, logger)

	renderer, err := preview.NewRenderer()
	if err != nil {
		logger.Fatal("Failed to initialize preview renderer", zap.Error(err))
	}

	exporter := export.NewXLSXExporter(logger)

	handlers := api.NewHandlers(
		repo,
		suggester,
		extractor,
		renderer,
		exporter,
		cfg.Upload.TempDir,
		int(cfg.Upload.MaxSizeMB),
		logger,
	)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
