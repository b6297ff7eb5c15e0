// Команда migrate применяет встроенные миграции схемы через goose.
//
//	migrate up | down | status
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"food-diary/internal/infra/config"
	applog "food-diary/internal/infra/log"
	"food-diary/migrations"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("migrate: не указан DATABASE_URL")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.DatabaseURL, command, logger); err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("migrate: ошибка")
	}
}

func run(ctx context.Context, dsn, command string, logger zerolog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		for _, r := range results {
			logger.Info().Str("source", r.Source.Path).Dur("duration", r.Duration).Msg("migrate: applied")
		}
		return err
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			logger.Info().Str("source", result.Source.Path).Msg("migrate: rolled back")
		}
		return err
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			logger.Info().
				Int64("version", s.Source.Version).
				Str("source", s.Source.Path).
				Str("state", string(s.State)).
				Time("applied_at", s.AppliedAt).
				Msg("migrate: status")
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down or status)", command)
	}
}
