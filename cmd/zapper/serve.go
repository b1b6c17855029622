package main

import (
	"context"

	"github.com/narvanalabs/zapper/internal/api"
	"github.com/narvanalabs/zapper/internal/auth"
	"github.com/narvanalabs/zapper/internal/shutdown"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the step over HTTP for CI hosts",
	RunE:  doServe,
}

func doServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	runner, err := newRunner(cfg, log)
	if err != nil {
		return err
	}

	var authSvc *auth.Service
	if cfg.Server.RequireAuth {
		authSvc = auth.NewService(&auth.Config{JWTSecret: []byte(cfg.Server.JWTSecret)}, log.WithComponent("auth").Logger)
	} else {
		log.Warn("authentication disabled, /v1 routes are open")
	}

	server := api.NewServer(cfg, runner, authSvc, log.WithComponent("api").Logger)

	coord := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.Server.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	for _, c := range server.Components() {
		coord.Register(c)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
		cancel()
	}()

	shutdownErr := coord.WaitForSignal(ctx)
	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	log.Info("server stopped")
	return shutdownErr
}
