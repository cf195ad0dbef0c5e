package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Rampap-Brasil/postmon/config"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/Rampap-Brasil/postmon/internal/storage/pgcep"
	"github.com/joho/godotenv"
)

// district-cleanup purges address records that slipped into the store
// with an empty bairro, a symptom of a provider answering with a
// partial page. Purged codes get refetched on their next lookup. Dry
// run by default; pass --execute to actually delete.

type cleanupStore interface {
	FindMalformed(ctx context.Context) ([]*models.Address, error)
	DeleteMalformed(ctx context.Context) (int64, error)
}

func main() {
	_ = godotenv.Load()

	execute := flag.Bool("execute", false, "delete the malformed records instead of listing them")
	flag.Parse()

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse error: %v", err))
	}

	st, err := pgcep.New(cfg.ConnString())
	if err != nil {
		panic(err)
	}
	defer st.Close()

	if err := run(context.Background(), st, *execute); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, st cleanupStore, execute bool) error {
	bad, err := st.FindMalformed(ctx)
	if err != nil {
		return err
	}
	if len(bad) == 0 {
		slog.Info("no malformed records found")
		return nil
	}

	for _, rec := range bad {
		slog.Info("malformed record", "cep", rec.CEP, "cidade", rec.City, "estado", rec.State)
	}

	if !execute {
		slog.Info("dry run, nothing deleted", "found", len(bad))
		return nil
	}

	n, err := st.DeleteMalformed(ctx)
	if err != nil {
		return err
	}
	slog.Info("malformed records deleted", "count", n)
	return nil
}
