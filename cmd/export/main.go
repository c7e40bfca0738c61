package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/archive"
	"github.com/freeeve/elemental-conquest/api/internal/config"
	"github.com/freeeve/elemental-conquest/api/internal/logger"
	"github.com/freeeve/elemental-conquest/api/internal/repository/postgres"
)

func main() {
	logger.Init(logger.Options{Component: "export", Out: os.Stderr})

	var (
		outPath string
		dbURL   string
		since   string
	)
	flag.StringVar(&outPath, "out", "moves.parquet", "Output parquet file")
	flag.StringVar(&dbURL, "db", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&since, "since", "", "Only games finished on or after this date (YYYY-MM-DD or RFC3339)")
	flag.Parse()

	var sinceTime time.Time
	if since != "" {
		t, err := parseSince(since)
		if err != nil {
			log.Fatal().Err(err).Str("since", since).Msg("Bad -since")
		}
		sinceTime = t
	}

	if dbURL == "" {
		dbURL = config.Load().DatabaseURL
	}
	db, err := postgres.Connect(dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exp := archive.NewExporter(postgres.NewGameRepo(db), postgres.NewMoveRepo(db))
	sum, err := exp.Export(ctx, outPath, sinceTime)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	if sum.Path == "" {
		log.Info().Int("skipped", sum.Skipped).Msg("Nothing to export")
		return
	}
	log.Info().Str("path", sum.Path).Int("games", sum.Games).Int("rows", sum.Rows).
		Int("skipped", sum.Skipped).Dur("elapsed", sum.Elapsed).Msg("Export complete")
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
