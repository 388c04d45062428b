package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"threatgate/internal/banlist"
	"threatgate/internal/catalog"
	"threatgate/internal/config"
	"threatgate/internal/logging"
	"threatgate/internal/middleware"
	"threatgate/internal/policy"
	"threatgate/internal/scanner"
	"threatgate/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	durable, err := banlist.OpenBadger(cfg.BanStore.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.BanStore.Path).Msg("open ban store")
	}
	defer durable.Close()

	store := banlist.NewStore(durable)
	defer store.Close()

	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), cfg.BanStore.DurableTimeout)
	err = store.Restore(restoreCtx)
	cancelRestore()
	if err != nil {
		if cfg.BanStore.Strict(cfg.Server.Environment) {
			logging.Fatal().Err(err).Msg("restore ban store")
		}
		// Lenient posture: serve with an empty fast tier rather than
		// refuse traffic. Previously banned identities are admitted
		// until the durable tier recovers.
		logging.Error().Err(err).Msg("restore ban store failed, starting with empty fast tier")
	}
	store.StartSync(cfg.BanStore.SyncInterval, cfg.BanStore.DurableTimeout)

	cat, err := catalog.Compile(catalog.DefaultSignatures)
	if err != nil {
		logging.Fatal().Err(err).Msg("compile signature catalog")
	}
	sc := scanner.New(cat)
	defer sc.Close()

	engine := policy.New(cfg.Policy.BlockThreshold, cfg.Policy.WarnThreshold)
	guard := middleware.NewGuard(store, sc, engine, logging.NewSecurityLogger())
	srv := server.New(cfg, guard, store, sc)

	go srv.StartMetrics(cfg.Server.MetricsAddr)

	httpSrv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.HTTPAddr).Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http shutdown")
	}

	// Final backstop sync so manual bans made through the fast tier
	// are not lost if a periodic sync never fired.
	syncCtx, cancelSync := context.WithTimeout(context.Background(), cfg.BanStore.DurableTimeout)
	defer cancelSync()
	if err := store.Sync(syncCtx); err != nil {
		logging.Error().Err(err).Msg("final ban store sync")
	}
}
