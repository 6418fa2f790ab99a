package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"agentconsent/internal/platform/database"
	"agentconsent/pkg/secrets"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pool, err := database.New(ctx, database.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		if pool == nil {
			return errors.New("DATABASE_URL is required for migrate")
		}
		defer func() { _ = pool.Close() }()

		applied, err := database.Migrate(ctx, pool.DB())
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "migrations applied", "count", len(applied), "versions", applied)
		return nil
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run one expiry sweep and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg := prometheus.NewRegistry()
		a, err := buildApp(ctx, cfg, log, reg, reg)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.expiry.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "expired %d consent requests, purged %d outbox entries\n", res.Expired, res.PurgedOutbox)
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an API key and its API_KEYS entry",
	Example: `  agentconsent keygen --client scheduling-agent
  agentconsent keygen --client scheduling-agent --hash`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, _ := cmd.Flags().GetString("client")
		hash, _ := cmd.Flags().GetBool("hash")

		key, err := secrets.Generate()
		if err != nil {
			return err
		}
		entry := key
		if hash {
			if entry, err = secrets.Hash(key); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api key:  %s\n", key)
		fmt.Fprintf(out, "API_KEYS: %s:%s\n", entry, client)
		return nil
	},
}

func init() {
	keygenCmd.Flags().String("client", "", "Client id the key authenticates as (required)")
	keygenCmd.Flags().Bool("hash", false, "Emit a bcrypt hash instead of the plaintext key in the API_KEYS entry")
	_ = keygenCmd.MarkFlagRequired("client")
}
