package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/abhay1maurya/receipt-digitizer/constants"
	"github.com/abhay1maurya/receipt-digitizer/internal/common"
	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
	"github.com/abhay1maurya/receipt-digitizer/internal/ingest"
	"github.com/abhay1maurya/receipt-digitizer/internal/pipeline"
	"github.com/abhay1maurya/receipt-digitizer/internal/preprocess"
	"github.com/abhay1maurya/receipt-digitizer/internal/repository"
	"github.com/abhay1maurya/receipt-digitizer/internal/template"
	"github.com/abhay1maurya/receipt-digitizer/internal/validation"
	"github.com/abhay1maurya/receipt-digitizer/internal/vision"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	profileID := uuid.Nil
	if s := os.Getenv("PROFILE_ID"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			logger.Error("invalid PROFILE_ID", "value", s, "error", err)
			os.Exit(2)
		}
		profileID = id
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	bills := repository.NewBillRepository(pool, logger)

	templates, err := template.LoadLibrary(cfg.Pipeline.TemplateDir, logger)
	if err != nil {
		logger.Error("failed to load vendor templates", "dir", cfg.Pipeline.TemplateDir, "error", err)
		os.Exit(1)
	}

	extractor, err := vision.NewGeminiExtractor(ctx, cfg.Vision, logger)
	if err != nil {
		logger.Error("failed to create extraction client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = extractor.Close() }()

	detector := validation.NewDetector(bills, cfg.Pipeline.AmountTolerance, logger)
	processor := pipeline.NewProcessor(
		logger,
		extractor,
		extraction.NewProseRecognizer(),
		templates,
		detector,
		cfg.Pipeline.BaseCurrency,
		cfg.Pipeline.AmountTolerance,
	)

	// gRPC health endpoint so orchestrators can probe the daemon
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("receipt-digitizer listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Ingest.WatchDir},
		InitialScan: cfg.Ingest.InitialScan,
		Debounce:    cfg.Ingest.Debounce,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "dir", cfg.Ingest.WatchDir, "error", err)
		os.Exit(1)
	}
	logger.Info("watching for bills", "dir", cfg.Ingest.WatchDir)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			grpcServer.GracefulStop()
			return
		case err, ok := <-watchErrs:
			if ok {
				logger.Error("watcher error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				grpcServer.GracefulStop()
				return
			}
			handleFile(ctx, logger, processor, bills, profileID, path)
		}
	}
}

func handleFile(
	ctx context.Context,
	logger *slog.Logger,
	processor *pipeline.Processor,
	bills repository.BillRepository,
	profileID uuid.UUID,
	path string,
) {
	logger.Info("ingest.file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("ingest.read_failed", "path", path, "error", err)
		return
	}

	ext := filepath.Ext(path)
	mimeType := constants.MapExtToMIME(ext)
	if mimeType == "" {
		logger.Warn("ingest.unsupported_extension", "path", path)
		return
	}

	if constants.MapExtToFormat(ext) == constants.IMAGE {
		enhanced, err := preprocess.Enhance(data)
		if err != nil {
			logger.Warn("ingest.preprocess_failed", "path", path, "error", err)
		} else {
			data = enhanced
			mimeType = "image/png"
		}
	}

	res, err := processor.Process(ctx, data, mimeType, profileID)
	if err != nil {
		logger.Error("pipeline.failed", "path", path, "error", err)
		return
	}

	if !res.CanSave {
		logger.Warn("pipeline.not_saved",
			"path", path,
			"valid", res.Validation.IsValid,
			"duplicate", res.Duplicate.Duplicate,
			"reason", res.Duplicate.Reason,
		)
		return
	}

	stored, err := bills.Insert(ctx, profileID, res.Bill)
	if err != nil {
		logger.Error("store.failed", "path", path, "error", err)
		return
	}
	logger.Info("store.saved", "path", path, "bill_id", stored.ID, "warnings", res.Warnings)
}
