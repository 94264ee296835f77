package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelvault/internal/backend"
	"modelvault/internal/classify"
	"modelvault/internal/config"
	"modelvault/internal/httpapi"
	"modelvault/internal/orchestrator"
	"modelvault/internal/router"
	"modelvault/internal/telemetry"
	"modelvault/pkg/types"
)

func serveCmd(cfgPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP inference server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath, *logLevel)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.New(cfg.BackendURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second, log)
	state := telemetry.NewState()
	sampler := telemetry.NewSampler(cfg.GPUMonitorEnabled(), log)
	tel := telemetry.NewService(state, sampler)
	orch := orchestrator.New(
		classify.New(),
		router.New(router.Bindings{
			General: cfg.ModelGeneral,
			Coding:  cfg.ModelCoding,
			Vision:  cfg.ModelVision,
		}),
		client,
		state,
		log,
	)

	preflightModels(ctx, client, cfg, log)

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins)
	mux := httpapi.NewMux(orch, tel, client)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.BackendURL).Msg("modelvault listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// preflightModels warns when a configured role's model is not present on the
// backend. Pulling models is installer territory; the server still starts.
func preflightModels(ctx context.Context, client *backend.Client, cfg config.Config, log zerolog.Logger) {
	if !client.Ping(ctx) {
		log.Warn().Str("backend", cfg.BackendURL).Msg("inference backend unreachable at startup")
		return
	}
	bindings := map[types.Role]string{
		types.RoleGeneral: cfg.ModelGeneral,
		types.RoleCoding:  cfg.ModelCoding,
		types.RoleVision:  cfg.ModelVision,
	}
	for role, model := range bindings {
		if model == "" {
			log.Warn().Str("role", string(role)).Msg("role has no bound model; requests will fail")
			continue
		}
		if !client.HasModel(ctx, model) {
			log.Warn().Str("role", string(role)).Str("model", model).
				Msg("configured model not present on backend")
		}
	}
}
