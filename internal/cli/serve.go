package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/geoknoesis/wap-go/internal/format"
	"github.com/geoknoesis/wap-go/internal/profile"
	"github.com/geoknoesis/wap-go/internal/server"
	"github.com/geoknoesis/wap-go/internal/service"
	"github.com/geoknoesis/wap-go/internal/store"
)

const (
	profileInitTimeout = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
)

type serveOptions struct {
	inMemory bool
	addr     string
}

func (c *CLI) newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "keep the database in memory")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :Port)")
	return cmd
}

func (c *CLI) serve(ctx context.Context, opts serveOptions) error {
	cfg, log := c.Config, c.Logger

	st, err := store.OpenBadger(store.Options{
		Path:     cfg.DataBasePath,
		InMemory: opts.inMemory,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Error("closing store")
		}
	}()

	profiles, err := profile.New(cfg, log)
	if err != nil {
		return fmt.Errorf("profile cache: %w", err)
	}
	profiles.Start(ctx)
	defer profiles.Stop(shutdownTimeout)
	initCtx, cancel := context.WithTimeout(ctx, profileInitTimeout)
	err = profiles.BlockUntilInitialized(initCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("waiting for profile cache: %w", err)
	}

	formats := format.NewRegistry(cfg, profiles, log)
	svc := service.New(cfg, st, formats, log)
	if err := svc.InitRoot(ctx); err != nil {
		return fmt.Errorf("init root container: %w", err)
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Addr()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(cfg, svc, formats, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "root": cfg.RootContainerIRI()}).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
