package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/abhay1maurya/receipt-digitizer/constants"
	"github.com/abhay1maurya/receipt-digitizer/internal/common"
	"github.com/abhay1maurya/receipt-digitizer/internal/export"
	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
	"github.com/abhay1maurya/receipt-digitizer/internal/pipeline"
	"github.com/abhay1maurya/receipt-digitizer/internal/preprocess"
	"github.com/abhay1maurya/receipt-digitizer/internal/repository"
	"github.com/abhay1maurya/receipt-digitizer/internal/template"
	"github.com/abhay1maurya/receipt-digitizer/internal/validation"
	"github.com/abhay1maurya/receipt-digitizer/internal/vision"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file      = flag.String("file", "", "receipt or invoice file to digitize (required)")
		dbPath    = flag.String("db", "bills.db", "SQLite database path")
		tplDir    = flag.String("templates", "./templates", "vendor template directory")
		profile   = flag.String("profile", "", "profile UUID (optional)")
		save      = flag.Bool("save", false, "persist the bill when it passes validation")
		out       = flag.String("out", "", "export all stored bills to an XLSX file after processing")
		noEnhance = flag.Bool("no-enhance", false, "skip image preprocessing")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: -file is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	profileID := uuid.Nil
	if *profile != "" {
		id, err := uuid.Parse(*profile)
		if err != nil {
			printError("Error: invalid -profile UUID: %v\n", err)
			os.Exit(1)
		}
		profileID = id
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		printError("Error: GEMINI_API_KEY env var is required\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		printError("Error: open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		printError("Error: initialize database: %v\n", err)
		os.Exit(1)
	}
	bills := repository.NewSQLiteBillRepository(db, logger)

	templates, err := template.LoadLibrary(*tplDir, logger)
	if err != nil {
		printError("Error: load templates: %v\n", err)
		os.Exit(1)
	}

	extractor, err := vision.NewGeminiExtractor(ctx, common.VisionConfig{
		APIKey:  apiKey,
		Model:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		Timeout: 45 * time.Second,
	}, logger)
	if err != nil {
		printError("Error: create extraction client: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = extractor.Close() }()

	detector := validation.NewDetector(bills, validation.DefaultTolerance, logger)
	processor := pipeline.NewProcessor(
		logger,
		extractor,
		extraction.NewProseRecognizer(),
		templates,
		detector,
		getenv("BASE_CURRENCY", "USD"),
		validation.DefaultTolerance,
	)

	data, err := os.ReadFile(*file)
	if err != nil {
		printError("Error: read file: %v\n", err)
		os.Exit(1)
	}

	ext := filepath.Ext(*file)
	mimeType := constants.MapExtToMIME(ext)
	if mimeType == "" {
		printError("Error: unsupported file extension %q\n", ext)
		os.Exit(1)
	}
	if !*noEnhance && constants.MapExtToFormat(ext) == constants.IMAGE {
		if enhanced, err := preprocess.Enhance(data); err == nil {
			data = enhanced
			mimeType = "image/png"
		}
	}

	res, err := processor.Process(ctx, data, mimeType, profileID)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	if *save && res.CanSave {
		stored, err := bills.Insert(ctx, profileID, res.Bill)
		if err != nil {
			printError("Error: save bill: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved bill %s\n", stored.ID)
	} else if *save {
		printError("Bill not saved: validation or duplicate check failed\n")
	}

	if *out != "" {
		xlsx, err := export.NewService(bills, logger).ExportBillsXLSX(ctx, profileID)
		if err != nil {
			printError("Error: export bills: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsx, 0644); err != nil {
			printError("Error: write export file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported bills to %s\n", *out)
	}

	encoded, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		printError("Error: encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
