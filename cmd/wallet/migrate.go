package main

import (
	"context"
	"fmt"

	"github.com/Maphikza/flow-wallet-state/internal/config"
	"github.com/Maphikza/flow-wallet-state/internal/logger"
	"github.com/Maphikza/flow-wallet-state/internal/permission"
	"github.com/Maphikza/flow-wallet-state/internal/persist"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert legacy connected-site data without starting the server",
	Long: `Load connected sites the way the server does at startup. When only the
legacy "permission" record exists it is converted and written under
"permissionV2". Running it again is harmless.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Current()
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.DBPath = db
		}

		store, err := initializeStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		writer := persist.NewWriter(store, logger.Log)
		defer writer.Close()

		sites := permission.NewService(store, writer, permission.Options{
			InternalOrigin: cfg.InternalOrigin,
			MaxSites:       cfg.SiteCacheMax,
			TTL:            cfg.SiteCacheTTL,
		}, logger.Log)

		ctx := context.Background()
		if err := sites.Init(ctx); err != nil {
			return err
		}
		if err := sites.Flush(ctx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Connected sites available: %d\n", len(sites.GetConnectedSites()))
		fmt.Fprintf(cmd.OutOrStdout(), "Database located at: %s\n", cfg.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringP("db", "d", "", "Database file to migrate (defaults to db_path)")
}
