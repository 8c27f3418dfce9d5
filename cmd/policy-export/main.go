package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/policy-structurer/internal/app"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/export"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
)

func main() {
	var (
		tenant     = flag.String("tenant", "", "tenant id (required)")
		out        = flag.String("out", "policies.xlsx", "output XLSX file path")
		fromStr    = flag.String("from", "", "from date YYYY-MM-DD")
		toStr      = flag.String("to", "", "to date YYYY-MM-DD")
		configPath = flag.String("config", "", "optional YAML config file")
	)
	flag.Parse()

	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: --tenant must be a UUID\n")
		os.Exit(1)
	}
	from, err := parseDate(*fromStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDate(*toStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log)
	if err := cfg.Validate(false); err != nil {
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
	defer repository.Close(db, logger)

	svc := export.NewService(repository.NewPolicyRepository(db, logger), logger)
	xlsx, err := svc.ExportPoliciesXLSX(ctx, tenantID, from, to)
	if err != nil {
		logger.Error("export failed", "tenant_id", tenantID, "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("write failed", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *out, "bytes", len(xlsx))
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
