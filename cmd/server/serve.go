package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"agentconsent/internal/platform/database"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and background workers",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "Apply pending database migrations before serving")
	serveCmd.Flags().Bool("seed", false, "Seed demo consent requests (refused in production)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := buildApp(ctx, cfg, log, reg, reg)
	if err != nil {
		return err
	}
	defer a.close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate && a.pool != nil {
		applied, err := database.Migrate(ctx, a.pool.DB())
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "migrations applied", "versions", applied)
	}

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		if cfg.IsProduction() {
			return errors.New("refusing to seed demo data in production")
		}
		if _, err := a.seeder.SeedAll(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr, "env", cfg.Env, "auth_provider", cfg.Auth.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	for _, run := range a.workers {
		g.Go(func() error {
			if err := run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
