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
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/gobject"
	"github.com/blinklabs-io/gobject/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(
		fmt.Sprintf("config: %+v", redactedConfig(cfg)),
		"component", "node",
	)
	params, err := cfg.GovernanceParams()
	if err != nil {
		return err
	}
	shutdownTimeout := cfg.ShutdownTimeoutDuration()
	n, err := gobject.New(
		gobject.NewConfig(
			gobject.WithLogger(logger),
			gobject.WithDatabasePath(cfg.DatabasePath),
			gobject.WithNetwork(cfg.Network),
			gobject.WithParams(params),
			gobject.WithRosterFile(cfg.RosterFile),
			gobject.WithRpc(cfg.RpcHost, cfg.RpcUser, cfg.RpcPass, cfg.RpcTls),
			gobject.WithMaintenanceInterval(cfg.MaintenanceIntervalDuration()),
			gobject.WithValidationWorkers(cfg.ValidationWorkers),
			gobject.WithRateChecks(cfg.RateChecks),
			gobject.WithTracing(cfg.Tracing),
			gobject.WithTracingStdout(cfg.TracingStdout),
			gobject.WithShutdownTimeout(shutdownTimeout),
			// Enable metrics with default prometheus registry
			gobject.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	// Reload the roster file on SIGHUP
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)
	go func() {
		for {
			select {
			case <-hupCh:
				if err := n.ReloadRoster(); err != nil {
					logger.Error(
						"failed to reload roster",
						"component", "node",
						"error", err,
					)
				}
			case <-signalCtx.Done():
				return
			}
		}
	}()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := n.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	shutdownMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(
				"metrics server shutdown error",
				"component", "node",
				"error", err,
			)
		}
	}

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
		shutdownMetrics()
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "component", "node", "error", err)
			return err
		}
		logger.Info("shutdown complete", "component", "node")
		return nil

	case err := <-errChan:
		signalCtxStop()
		shutdownMetrics()
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred",
				"component", "node",
				"error", stopErr,
			)
			if err == nil {
				return stopErr
			}
		}
		if err != nil {
			logger.Error("node error", "component", "node", "error", err)
			return err
		}
		logger.Info("node stopped", "component", "node")
		return nil
	}
}

// redactedConfig returns a copy of the config that is safe to log
func redactedConfig(cfg *config.Config) config.Config {
	ret := *cfg
	if ret.RpcPass != "" {
		ret.RpcPass = "REDACTED"
	}
	return ret
}
