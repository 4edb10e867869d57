package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cvhariharan/fedactor/config"
	"github.com/cvhariharan/fedactor/federation"
	"github.com/cvhariharan/fedactor/keys"
	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/server"
	"github.com/cvhariharan/fedactor/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fedactor",
		Short: "Federated actor identity server",
	}
	rootCmd.AddCommand(serveCmd(), keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve actors and webfinger for the local instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	return cmd
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh RSA keypair in PEM form",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := keys.GenerateLocalKeypair()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), k.Public)
			fmt.Fprint(cmd.OutOrStdout(), k.Private)
			return nil
		},
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	if cfg.Backend == config.BackendLevelDB {
		return store.OpenLevelDB(cfg.Path)
	}
	return store.NewMemory(), nil
}

// localInstance returns the instance record for our own domain, creating it
// on first start.
func localInstance(ctx context.Context, s store.InstanceStore, cfg *config.Config) (*models.Instance, error) {
	inst, ok, err := s.GetInstanceByDomain(ctx, cfg.Domain)
	if err != nil {
		return nil, err
	}
	if ok {
		return inst, nil
	}
	return s.InsertInstance(ctx, &models.Instance{
		Name:         cfg.InstanceName,
		PublicDomain: cfg.Domain,
		Local:        true,
	})
}

func serve(cfg *config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst, err := localInstance(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("loading local instance: %w", err)
	}

	registry := prometheus.NewRegistry()
	svc := federation.NewService(st, st, logger.Named("federation"), federation.NewMetrics(registry))
	srv := server.New(svc, inst, registry, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
