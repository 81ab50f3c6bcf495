// Package services wires configuration, sinks and the translator together.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/j-veylop/claude-code-metrics/internal/config"
	"github.com/j-veylop/claude-code-metrics/internal/db"
	"github.com/j-veylop/claude-code-metrics/internal/logger"
	"github.com/j-veylop/claude-code-metrics/internal/sink"
	"github.com/j-veylop/claude-code-metrics/internal/translator"
)

// stdout receives console sink output.
var stdout io.Writer = os.Stdout

// Manager owns the sink and the active translator. The translator is replaced
// as a whole on reload so in-flight requests keep a consistent configuration.
type Manager struct {
	mu         sync.Mutex
	cfg        *config.Config
	sink       translator.Sink
	database   *db.DB
	translator atomic.Pointer[translator.Translator]
	watcher    *config.Watcher
}

// NewManager creates the sink named by cfg and a translator publishing to it.
func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	m := &Manager{cfg: cfg}

	switch cfg.Sink {
	case config.SinkCloudWatch:
		cw, err := sink.NewCloudWatchFromEnv(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		m.sink = cw

	case config.SinkSQLite:
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		m.database = database
		m.sink = sink.NewSQLite(database)

	case config.SinkConsole:
		m.sink = sink.NewConsole(stdout)

	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}

	return newManager(m, cfg), nil
}

// NewManagerWithSink creates a manager that publishes to s.
func NewManagerWithSink(cfg *config.Config, s translator.Sink) *Manager {
	return newManager(&Manager{cfg: cfg, sink: s}, cfg)
}

func newManager(m *Manager, cfg *config.Config) *Manager {
	m.translator.Store(translator.New(m.sink, cfg.TranslatorConfig()))
	logger.Info("metrics translator ready",
		"sink", cfg.Sink,
		"namespace", cfg.Namespace,
		"include_service_name", cfg.IncludeServiceName,
		"extra_dimensions", len(cfg.ExtraDimensions))
	return m
}

// Translate delegates to the current translator.
func (m *Manager) Translate(ctx context.Context, body []byte, isBase64 bool) (translator.Response, error) {
	return m.translator.Load().Translate(ctx, body, isBase64)
}

// Translator returns the current translator.
func (m *Manager) Translator() *translator.Translator {
	return m.translator.Load()
}

// Config returns the configuration the current translator was built from.
func (m *Manager) Config() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Reload swaps in a translator built from cfg. The sink cannot change without
// a restart; a different SINK value is logged and otherwise ignored.
func (m *Manager) Reload(cfg *config.Config) {
	m.mu.Lock()
	if cfg.Sink != m.cfg.Sink {
		logger.Warn("sink change requires a restart", "current", m.cfg.Sink, "requested", cfg.Sink)
	}
	m.cfg = cfg
	m.mu.Unlock()

	m.translator.Store(translator.New(m.sink, cfg.TranslatorConfig()))
	logger.Info("translator reloaded",
		"namespace", cfg.Namespace,
		"include_service_name", cfg.IncludeServiceName,
		"extra_dimensions", len(cfg.ExtraDimensions))
}

// WatchConfig reloads the translator whenever the env file changes. It is a
// no-op when the configuration did not come from a file.
func (m *Manager) WatchConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watcher != nil || m.cfg.EnvFile == "" {
		return nil
	}

	w, err := config.Watch(m.cfg.EnvFile, m.Reload)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	m.watcher = w
	return nil
}

// Health reports whether the sink can accept metrics.
func (m *Manager) Health(ctx context.Context) error {
	if m.database == nil {
		return nil
	}
	if err := m.database.PingContext(ctx); err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	return nil
}

// Database returns the SQLite store, nil for other sinks.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close stops the watcher and releases the sink.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		m.watcher = nil
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
		m.database = nil
	}

	return errors.Join(errs...)
}
