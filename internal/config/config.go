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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/gobject/governance"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "gobject.config"

const (
	DefaultShutdownTimeout     = "30s"
	DefaultMaintenanceInterval = "5m"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	Network             string `yaml:"network"`
	DatabasePath        string `yaml:"databasePath"        split_words:"true"`
	BindAddr            string `yaml:"bindAddr"            split_words:"true"`
	RosterFile          string `yaml:"rosterFile"          split_words:"true"`
	RpcHost             string `yaml:"rpcHost"             split_words:"true"`
	RpcUser             string `yaml:"rpcUser"             split_words:"true"`
	RpcPass             string `yaml:"rpcPass"             split_words:"true"`
	OrphanExpiration    string `yaml:"orphanExpiration"    split_words:"true"`
	MaintenanceInterval string `yaml:"maintenanceInterval" split_words:"true"`
	ShutdownTimeout     string `yaml:"shutdownTimeout"     split_words:"true"`
	MetricsPort         uint   `yaml:"metricsPort"         split_words:"true"`
	ValidationWorkers   int    `yaml:"validationWorkers"   split_words:"true"`
	RpcTls              bool   `yaml:"rpcTls"              split_words:"true"`
	RateChecks          bool   `yaml:"rateChecks"          split_words:"true"`
	Tracing             bool   `yaml:"tracing"`
	TracingStdout       bool   `yaml:"tracingStdout"       split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		Network:             "main",
		DatabasePath:        ".gobject",
		BindAddr:            "0.0.0.0",
		RpcHost:             "127.0.0.1:9998",
		MetricsPort:         12799,
		ValidationWorkers:   governance.DefaultValidationWorkers,
		RateChecks:          true,
		MaintenanceInterval: DefaultMaintenanceInterval,
		ShutdownTimeout:     DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.gobject/gobject.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gobject", "gobject.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/gobject/gobject.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/gobject/gobject.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("gobject", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the network name and duration values
func (c *Config) Validate() error {
	if _, ok := governance.ParamsByName(c.Network); !ok {
		return fmt.Errorf(
			"invalid network: %q (must be 'main', 'test', or 'regtest')",
			c.Network,
		)
	}
	durations := []struct {
		name  string
		value string
	}{
		{"orphanExpiration", c.OrphanExpiration},
		{"maintenanceInterval", c.MaintenanceInterval},
		{"shutdownTimeout", c.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("invalid %s: must be positive", d.name)
		}
	}
	if c.ValidationWorkers < 0 {
		return errors.New("invalid validationWorkers: must not be negative")
	}
	return nil
}

// GovernanceParams returns the parameters for the configured network with
// any configured overrides applied
func (c *Config) GovernanceParams() (*governance.Params, error) {
	base, ok := governance.ParamsByName(c.Network)
	if !ok {
		return nil, fmt.Errorf("unknown network: %s", c.Network)
	}
	params := *base
	if c.OrphanExpiration != "" {
		d, err := time.ParseDuration(c.OrphanExpiration)
		if err != nil {
			return nil, fmt.Errorf("invalid orphanExpiration: %w", err)
		}
		params.OrphanExpiration = d
	}
	return &params, nil
}

// MaintenanceIntervalDuration returns the parsed maintenance interval, or
// zero for the manager default
func (c *Config) MaintenanceIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.MaintenanceInterval)
	if err != nil {
		return 0
	}
	return d
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}
