package main

import (
	"context"
	"database/sql"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"rebalance-route-service/internal/adapters/cache"
	"rebalance-route-service/internal/adapters/repositories"
	"rebalance-route-service/internal/config"
	"rebalance-route-service/internal/platform/db"
	"rebalance-route-service/internal/platform/obs"
)

// dbtool prepares local databases: the scraper schema seeded from a snapshot
// file, and the Postgres distance cache table when DATABASE_URL is set.
func main() {
	logger := obs.NewLogger("dbtool")

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found (using environment variables)")
	}

	ctx := logger.WithContext(context.Background())

	dbPath := config.Get("DB_PATH", "data/bicloo.db")
	conn, err := db.OpenSqlite(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open sqlite")
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/snapshot.json")
	if err := initAndSeed(ctx, conn, seedPath); err != nil {
		logger.Fatal().Err(err).Msg("init and seed")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		return
	}
	pg, err := db.Open(databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open postgres")
	}
	defer pg.Close()

	logger.Info().Msg("creating postgres distance cache table")
	if err := cache.NewSQLDistanceCache(pg, 0).EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("distance cache schema")
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, seedPath string) error {
	l := zerolog.Ctx(ctx)

	l.Info().Msg("initializing scraper schema")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return err
	}
	l.Info().Msg("schema ready")

	l.Info().Str("seed", seedPath).Msg("seeding snapshot")
	if err := repositories.SeedFromJSON(ctx, conn, seedPath); err != nil {
		return err
	}
	l.Info().Msg("seeding complete")

	return nil
}
