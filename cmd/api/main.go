package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"reverseDesignAi/internal/audit"
	"reverseDesignAi/internal/config"
	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/events"
	"reverseDesignAi/internal/extract"
	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/logging"
	"reverseDesignAi/internal/media"
	"reverseDesignAi/internal/metrics"
	"reverseDesignAi/internal/server"
	"reverseDesignAi/internal/workspace"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	auditLog, err := audit.NewLog(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to init audit log", zap.Error(err))
	}
	defer auditLog.Close()

	uploader, err := media.NewUploader(ctx, media.Config{
		Bucket:          cfg.Media.Bucket,
		Region:          cfg.Media.Region,
		Endpoint:        cfg.Media.Endpoint,
		PublicURL:       cfg.Media.PublicURL,
		KeyPrefix:       cfg.Media.KeyPrefix,
		ForcePathStyle:  cfg.Media.ForcePathStyle,
		AccessKeyID:     cfg.Media.AccessKeyID,
		SecretAccessKey: cfg.Media.SecretAccessKey,
		LocalDir:        cfg.Media.LocalDir,
	})
	if err != nil {
		logger.Fatal("failed to init media uploader", zap.Error(err))
	}

	m := metrics.New()
	provider := llm.ProviderName(cfg.LLM.Provider)
	client, err := llm.New(cfg.LLM.ClientOptions())
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("llm provider not configured, model calls will fail", zap.String("provider", provider), zap.Error(err))
		client = llm.Unavailable(err)
	case err != nil:
		logger.Fatal("failed to init llm client", zap.Error(err))
	default:
		logger.Info("llm client ready", zap.String("provider", provider), zap.String("model", cfg.LLM.Model))
	}
	if closer, ok := client.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	client = m.InstrumentLLM(llm.Retrying(client, 1, cfg.LLM.RetryDelay), provider)

	observe := m.ExtractObserver()
	extractLogger := logger.Named("extract")
	extractor := extract.Extractor{Repair: cfg.Extract.Repair, Observer: func(stage string, ok bool) {
		observe(stage, ok)
		if stage == extract.StageRepair && ok {
			extractLogger.Warn("model response accepted after json repair")
		}
	}}
	designService := design.NewService(
		design.StyleAnalyzer{Client: client, Extractor: extractor},
		design.ThemeSplitter{Client: client, Extractor: extractor},
		design.SVGRenderer{Client: client},
		cfg.GenerateConcurrency,
		media.Archiver{Uploader: uploader, Logger: logger.Named("media")},
		auditLog,
		logger.Named("design"),
	)

	broker := events.NewBroker()
	sessions := workspace.NewService(workspace.NewStore(cfg.SessionCapacity), designService, broker, logger.Named("workspace"))

	srv := server.New(cfg.Port, logger, server.Handlers{
		Design:    design.Handler{Service: designService, Logger: logger.Named("design")},
		Workspace: workspace.Handler{Service: sessions, Broker: broker, Logger: logger.Named("workspace")},
		Audit:     audit.Handler{Log: auditLog},
		Metrics:   m.Handler(),
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(runCtx, srv, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
