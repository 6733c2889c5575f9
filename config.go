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

package gobject

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/gobject/governance"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry        prometheus.Registerer
	logger              *slog.Logger
	params              *governance.Params
	chainIndex          governance.ChainIndex
	dataDir             string
	network             string
	rosterFile          string
	rpcHost             string
	rpcUser             string
	rpcPass             string
	maintenanceInterval time.Duration
	chainPollInterval   time.Duration
	shutdownTimeout     time.Duration
	validationWorkers   int
	rpcTls              bool
	rateChecks          bool
	tracing             bool
	tracingStdout       bool
}

// configPopulateParams uses the named network to determine the governance
// parameters when none were provided
func (n *Node) configPopulateParams() error {
	if n.config.params == nil {
		network := n.config.network
		if network == "" {
			network = governance.MainNetParams.Name
		}
		params, ok := governance.ParamsByName(network)
		if !ok {
			return fmt.Errorf("unknown network name: %s", network)
		}
		n.config.params = params
	}
	return nil
}

func (n *Node) configValidate() error {
	if n.config.chainIndex == nil && n.config.rpcHost == "" {
		return errors.New("no chain RPC host configured")
	}
	if n.config.validationWorkers < 0 {
		return fmt.Errorf(
			"invalid validation worker count: %d",
			n.config.validationWorkers,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new gobject config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
		rateChecks: true,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithNetwork specifies the named network to operate on. This determines the governance parameters
func WithNetwork(network string) ConfigOptionFunc {
	return func(c *Config) {
		c.network = network
	}
}

// WithParams specifies the governance parameters directly, overriding the named network
func WithParams(params *governance.Params) ConfigOptionFunc {
	return func(c *Config) {
		c.params = params
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithRosterFile specifies the masternode list file to load voters from
func WithRosterFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.rosterFile = path
	}
}

// WithRpc specifies the JSON-RPC endpoint of the chain node used to look up collateral transactions
func WithRpc(host string, user string, pass string, useTls bool) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcHost = host
		c.rpcUser = user
		c.rpcPass = pass
		c.rpcTls = useTls
	}
}

// WithChainIndex specifies the chain index to use instead of an RPC client
func WithChainIndex(chainIndex governance.ChainIndex) ConfigOptionFunc {
	return func(c *Config) {
		c.chainIndex = chainIndex
	}
}

// WithChainPollInterval specifies how often the RPC chain tip is polled
func WithChainPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.chainPollInterval = interval
	}
}

// WithMaintenanceInterval specifies how often the governance maintenance pass runs
func WithMaintenanceInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.maintenanceInterval = interval
	}
}

// WithValidationWorkers specifies the number of workers revalidating postponed objects
func WithValidationWorkers(workers int) ConfigOptionFunc {
	return func(c *Config) {
		c.validationWorkers = workers
	}
}

// WithRateChecks enables the minimum interval between vote updates from the same voter
func WithRateChecks(rateChecks bool) ConfigOptionFunc {
	return func(c *Config) {
		c.rateChecks = rateChecks
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
