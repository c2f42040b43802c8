// cmd/dbcheck/main.go
// Verifies that the environment and database are ready for the matching API

package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/imadgeboyega/kiekky-matching/internal/common/database"
	"github.com/imadgeboyega/kiekky-matching/internal/config"
	"github.com/imadgeboyega/kiekky-matching/internal/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/matching"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration invalid")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})
	if envErr != nil {
		logging.Info().Msg("no .env file found, using environment variables")
	} else {
		logging.Info().Msg(".env loaded")
	}

	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("can't reach database")
	}
	defer db.Close()
	logging.Info().Msg("connected to database")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := database.CountTables(ctx, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("listing tables failed")
	}
	logging.Info().Int("tables", count).Msg("public schema")

	missing, err := database.MissingTables(ctx, db, matching.RequiredTables)
	if err != nil {
		logging.Fatal().Err(err).Msg("schema check failed")
	}
	if len(missing) > 0 {
		logging.Error().Str("missing", strings.Join(missing, ",")).Msg("matching tables not found")
		os.Exit(1)
	}
	logging.Info().Msg("all matching tables present")
}
