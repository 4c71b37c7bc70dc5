package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/ellavondegurechaff/hyetrade/hyetrade"
	"github.com/ellavondegurechaff/hyetrade/hyetrade/database"
	"github.com/ellavondegurechaff/hyetrade/hyetrade/logger"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	path := flag.String("config", "config.toml", "path to config")
	reset := flag.Bool("reset", false, "truncate all trading tables before creating schema")
	flag.Parse()

	cfg, err := hyetrade.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if *reset {
		if err := db.ResetAppTables(ctx); err != nil {
			slog.Error("Failed to reset tables", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Schema initialization failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogSystem("Schema migration completed successfully")
}
