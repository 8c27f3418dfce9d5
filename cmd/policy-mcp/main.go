package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joseph-ayodele/policy-structurer/internal/app"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/server"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	// stdout carries the MCP stream.
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

	srv := server.NewMCPServer(a.Services(nil), version, logger)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Error("mcp server stopped", "error", err)
	}
}
