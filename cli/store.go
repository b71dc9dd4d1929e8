// ABOUTME: Opens the storage backend named in the config
// ABOUTME: Memory, SQLite, PostgreSQL or Charm KV, optionally seeded with demo data
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/dealdesk/charm"
	"github.com/harperreed/dealdesk/config"
	"github.com/harperreed/dealdesk/db"
	"github.com/harperreed/dealdesk/fixtures"
	"github.com/harperreed/dealdesk/store"
	"go.uber.org/zap"
)

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Backend {
	case config.BackendMemory:
		mem := store.NewMemory()
		if cfg.Seed {
			if err := fixtures.SeedMemory(mem); err != nil {
				return nil, err
			}
		}
		log.Debug("opened memory store", zap.Bool("seeded", cfg.Seed))
		return mem, nil

	case config.BackendSQLite:
		st, err = db.OpenSQLite(cfg.DBPath)
		log.Debug("opened sqlite store", zap.String("path", cfg.DBPath))

	case config.BackendPostgres:
		st, err = db.OpenPostgres(cfg.DatabaseURL)
		log.Debug("opened postgres store")

	case config.BackendCharm:
		st, err = openCharmStore(cfg, log)
		log.Debug("opened charm store")

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Seed {
		counts, err := fixtures.Apply(ctx, st)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to seed store: %w", err)
		}
		log.Info("seeded store",
			zap.Int("companies", counts.Companies),
			zap.Int("contacts", counts.Contacts),
			zap.Int("deals", counts.Deals))
	}
	return st, nil
}

func openCharmClient(cfg *config.Config) (*charm.Client, error) {
	ccfg, err := charm.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load charm config: %w", err)
	}
	if cfg.CharmHost != "" {
		ccfg.Host = cfg.CharmHost
	}
	return charm.Open(ccfg)
}

// openCharmStore works offline: a failed sync is logged and the local
// replica is used as is.
func openCharmStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	client, err := openCharmClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.SyncIfStale(); err != nil {
		log.Warn("charm sync failed, using local data", zap.Error(err))
	}
	return charm.NewStore(client), nil
}
