package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/policy-structurer/internal/app"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file       = flag.String("file", "", "policy PDF to extract (required)")
		tenant     = flag.String("tenant", "", "tenant id (defaults to a new UUID)")
		dbPath     = flag.String("db", ":memory:", "SQLite database file")
		storeDir   = flag.String("storage", "", "document storage directory (defaults to a temp dir)")
		configPath = flag.String("config", "", "optional YAML config file")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}
	tenantID := uuid.New()
	if *tenant != "" {
		id, err := uuid.Parse(*tenant)
		if err != nil {
			printError("Error: --tenant must be a UUID: %v\n", err)
			os.Exit(1)
		}
		tenantID = id
	}

	_ = godotenv.Load()
	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = *dbPath
	if *storeDir == "" {
		dir, err := os.MkdirTemp("", "policy-structurer-")
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)
		*storeDir = dir
	}
	cfg.Storage.Root = *storeDir

	// Logs go to stderr so stdout carries only the policy JSON.
	logger := common.NewLoggerTo(os.Stderr, cfg.Log)
	if err := cfg.Validate(true); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := app.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	a, err := app.New(cfg, db, nil, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	res, err := a.Ingestor.IngestPath(ctx, tenantID, *file)
	if err != nil {
		logger.Error("ingest failed", "file", *file, "error", err)
		os.Exit(1)
	}
	policyID, err := a.Processor.ProcessDocument(ctx, uuid.MustParse(res.DocumentID))
	if err != nil {
		logger.Error("extraction failed", "document_id", res.DocumentID, "error", err)
		os.Exit(1)
	}
	p, err := a.Policies.GetPolicy(ctx, *policyID, tenantID)
	if err != nil {
		logger.Error("load policy failed", "policy_id", policyID, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}
