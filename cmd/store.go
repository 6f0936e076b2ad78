package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "catchment.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// outputDir returns the --out flag value, falling back to output.dir.
func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Output.Dir
}
