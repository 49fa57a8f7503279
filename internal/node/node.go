// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// nodeOptions translates the loaded configuration into node options
func nodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) ([]gavel.ConfigOptionFunc, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	genesis, err := cfg.GenesisCertificates()
	if err != nil {
		return nil, err
	}
	return []gavel.ConfigOptionFunc{
		gavel.WithLogger(logger),
		gavel.WithDatabasePath(cfg.DatabasePath),
		gavel.WithBlobPlugin(cfg.BlobPlugin),
		gavel.WithMetadataPlugin(cfg.MetadataPlugin),
		gavel.WithGenesisMembers(genesis...),
		gavel.WithQueueSize(cfg.QueueSize),
		gavel.WithRpcHost(cfg.BindAddr),
		gavel.WithRpcPort(cfg.RpcPort),
		gavel.WithRpcTlsCertFilePath(cfg.TlsCertFilePath),
		gavel.WithRpcTlsKeyFilePath(cfg.TlsKeyFilePath),
		gavel.WithShutdownTimeout(shutdownTimeout),
		gavel.WithPrometheusRegistry(promRegistry),
		gavel.WithTracing(cfg.Tracing),
		gavel.WithTracingStdout(cfg.TracingStdout),
	}, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := nodeOptions(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	n, err := gavel.New(gavel.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics listener
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.MetricsPort > 0 {
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
				os.Exit(1)
			}
		}()
	}
	stopMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(
				"metrics server shutdown error",
				"error", err,
				"component", "node",
			)
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Run()
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
		stopMetrics()
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err, "component", "node")
			return err
		}
		<-errChan
		logger.Info("shutdown complete", "component", "node")
		return nil
	case err := <-errChan:
		// Run only returns early on startup failure
		logger.Error("node error", "error", err, "component", "node")
		stopMetrics()
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error", stopErr,
				"component", "node",
			)
		}
		return err
	}
}
