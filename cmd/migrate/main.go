package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sgep-io/sgep/internal/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./migrations", "directory with migration files")
	flag.Parse()

	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command := arguments[0]
	args := arguments[1:]

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		logger.Error("goose", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("goose success", slog.String("command", command))
}
