package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Maphikza/flow-wallet-state/internal/api"
	"github.com/Maphikza/flow-wallet-state/internal/config"
	"github.com/Maphikza/flow-wallet-state/internal/logger"
	"github.com/Maphikza/flow-wallet-state/internal/operations"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Flow wallet state service",
	Long: `Keeps the wallet's connected dApp sites and pending transactions,
and serves them to the extension UI over HTTP and to this CLI over IPC.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(pendingCmd)
}

func initConfig() {
	if err := config.LoadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Current()
	if err := logger.Init(cfg.LogFile, cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wallet state server",
	Long:  `Load connected sites and pending transactions and serve them until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Current()
		server, err := operations.NewWalletServer(ctx, cfg, logger.Log)
		if err != nil {
			return err
		}
		defer server.Close()

		logger.Info("Wallet state server initialized", "db", cfg.DBPath, "env", cfg.Env)
		return server.Run(ctx)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an API token for the wallet UI",
	Long:  `Issue a bearer token signed with the server's JWT key. The key is created on first use.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Current()
		key, err := api.EnsureJWTKey(cfg.JWTKeysDir, cfg.JWTKeyName)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		token, err := api.GenerateJWT(key, user, cfg.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringP("user", "u", "wallet-ui", "Subject recorded in the token")
}
