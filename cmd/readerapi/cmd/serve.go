package cmd

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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Shonkurieta/ebookreader/cmd/readerapi/cmd/cmdutil"
	readermw "github.com/Shonkurieta/ebookreader/internal/middleware"
	"github.com/Shonkurieta/ebookreader/internal/policy"
	"github.com/Shonkurieta/ebookreader/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reader API server",
	Long:  `Starts the HTTP server with the authentication gate and access policy in front of every route.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cmdutil.NewLogger(cfg)

		bundle, err := cmdutil.NewIAMServiceBundle(cfg, logger)
		if err != nil {
			return err
		}
		defer bundle.Close()

		logger.Info("Connected to database")

		accessPolicy, err := loadPolicy(cfg.Auth.PolicyPath)
		if err != nil {
			return err
		}
		for _, rule := range accessPolicy.Rules() {
			logger.WithFields(logrus.Fields{
				"path":     rule.Pattern,
				"requires": rule.Predicate.String(),
			}).Debug("access rule")
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := readermw.NewMetrics(registry)

		gateDeps := readermw.GateDependencies{
			Policy:    accessPolicy,
			Codec:     bundle.Codec,
			Validator: bundle.Validator,
			Logger:    logger,
			Metrics:   metrics,
		}
		if cfg.Auth.RoleRefresh {
			gateDeps.Lookup = bundle.Resolver
		}
		gate, err := readermw.NewAuthenticationGate(gateDeps)
		if err != nil {
			return fmt.Errorf("configure authentication gate: %w", err)
		}

		authz, err := readermw.NewAuthzMiddleware(readermw.AuthzDependencies{
			Policy:  accessPolicy,
			Logger:  logger,
			Metrics: metrics,
		})
		if err != nil {
			return fmt.Errorf("configure authorization middleware: %w", err)
		}

		corsOpts := server.CORSOptionsFor(cfg.CORS.AllowedOrigins)
		handler := server.NewH2CHandler(server.RouterOptions{
			IAMService:  bundle.Service,
			Logger:      logger,
			Gate:        gate,
			Authz:       authz,
			CORSOptions: &corsOpts,
			HealthHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				fmt.Fprintf(w, `{"status":"ok","role_refresh":%t}`, cfg.Auth.RoleRefresh)
			},
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 2)
		go func() {
			logger.WithField("addr", cfg.ServerAddr).Info("Starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		var metricsSrv *http.Server
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			metricsSrv = &http.Server{
				Addr:              cfg.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				logger.WithField("addr", cfg.MetricsAddr).Info("Starting metrics listener")
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- fmt.Errorf("metrics listener: %w", err)
				}
			}()
		}

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.WithField("signal", sig.String()).Info("Shutting down gracefully")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if metricsSrv != nil {
				_ = metricsSrv.Shutdown(ctx)
			}
			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("Server stopped")
			return nil
		}
	},
}

// loadPolicy reads the access table from path, or returns the built-in table.
func loadPolicy(path string) (*policy.Policy, error) {
	if path == "" {
		return policy.Default(), nil
	}
	p, err := policy.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load access policy: %w", err)
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
