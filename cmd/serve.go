package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/dodeck/internal/repositories"
	"github.com/desertthunder/dodeck/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the deck service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Service
	if addr := cmd.String("addr"); addr != "" {
		cfg.Addr = addr
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		r.logger.Warn("service.issuer or service.audience is empty; deck routes will answer 500")
	}

	db, err := r.database(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := server.NewService(cfg, repositories.NewDeckRepository(db), nil, r.logger)
	return svc.ListenAndServe(ctx)
}
