package main

import (
	"os"

	"github.com/Maphikza/flow-wallet-state/internal/config"
	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/Maphikza/flow-wallet-state/internal/logger"
)

// initializeStore opens the configured database, noting when it is created.
func initializeStore(cfg config.Config) (*walletstatedb.SQLiteStore, error) {
	if !fileExists(cfg.DBPath) {
		logger.Info("Creating new wallet state database", "path", cfg.DBPath)
	}
	return walletstatedb.OpenSQLite(cfg.DBPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
