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

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/gobject/database/models"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/glebarez/sqlite"
	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const blobGcInterval = 5 * time.Minute

// Database stores governance objects and votes. Raw votes live in a badger
// blob store and their index and the object records in SQLite. With no data
// directory both are kept in memory.
type Database struct {
	logger   *slog.Logger
	blob     *badger.DB
	metadata *gorm.DB
	gcTicker *time.Ticker
	gcStopCh chan struct{}
	dataDir  string
	gcWg     sync.WaitGroup
	closed   bool
	closeMu  sync.Mutex
}

type DatabaseOptionFunc func(*Database)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) DatabaseOptionFunc {
	return func(d *Database) {
		d.logger = logger
	}
}

// WithDataDir specifies the data directory to use for storage
func WithDataDir(dataDir string) DatabaseOptionFunc {
	return func(d *Database) {
		d.dataDir = dataDir
	}
}

// New creates a new database instance with optional persistence using the
// provided data directory
func New(opts ...DatabaseOptionFunc) (*Database, error) {
	d := &Database{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.dataDir != "" {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(d.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
	}
	if err := d.openBlob(); err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	if err := d.openMetadata(); err != nil {
		_ = d.blob.Close()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	if d.dataDir != "" {
		d.gcTicker = time.NewTicker(blobGcInterval)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.blobGc(d.gcTicker, d.gcStopCh)
	}
	return d, nil
}

func (d *Database) openBlob() error {
	var badgerOpts badger.Options
	if d.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(filepath.Join(d.dataDir, "blob")).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(&badgerLogger{logger: d.logger}).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	blobDb, err := badger.Open(badgerOpts)
	if err != nil {
		return err
	}
	d.blob = blobDb
	return nil
}

func (d *Database) openMetadata() error {
	var dsn string
	if d.dataDir == "" {
		// Each in-memory database gets its own name so separate instances
		// in one process do not share tables
		dsn = fmt.Sprintf("file:gobject-%p?mode=memory&cache=shared", d)
	} else {
		// WAL journal mode, increase cache size to 50MB (from 2MB)
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=cache_size(-50000)",
			filepath.Join(d.dataDir, "metadata.sqlite"),
		)
	}
	metadataDb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return err
	}
	if d.dataDir == "" {
		// A shared-cache memory database returns table lock errors to
		// concurrent connections
		sqlDb, err := metadataDb.DB()
		if err != nil {
			return err
		}
		sqlDb.SetMaxOpenConns(1)
	}
	// Configure tracing for GORM
	if err := metadataDb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	for _, model := range models.MigrateModels {
		d.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := metadataDb.AutoMigrate(model); err != nil {
			return err
		}
	}
	d.metadata = metadataDb
	return nil
}

func (d *Database) blobGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := d.blob.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just ran successfully
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("blob DB: GC failure: %s", err),
						"component", "database",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Close stops background work and closes both stores
func (d *Database) Close() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		close(d.gcStopCh)
		d.gcWg.Wait()
	}
	var result *multierror.Error
	if sqlDb, err := d.metadata.DB(); err != nil {
		result = multierror.Append(result, err)
	} else if err := sqlDb.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close metadata: %w", err))
	}
	if err := d.blob.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close blob: %w", err))
	}
	return result.ErrorOrNil()
}

// badgerLogger routes badger log output through slog
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...), "component", "database")
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...), "component", "database")
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...), "component", "database")
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...), "component", "database")
}
