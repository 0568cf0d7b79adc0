package cmd

import (
	"context"
	"io"
	"os"

	"github.com/anhnt/edge/internal/config"
	"github.com/anhnt/edge/internal/logging"
	"github.com/anhnt/edge/pkg/edge"
)

// session bundles what every command needs after loading the configuration.
type session struct {
	config *config.Config
	logger logging.Logger
	edge   *edge.Edge
	closer func()
}

// Close releases the log file, if any.
func (r *session) Close() {
	if r.closer != nil {
		r.closer()
	}
}

// setup loads the configuration and builds the logger and the engine with
// every configured disk mounted. Logs go to stderr.
func setup(stderr io.Writer) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, closer, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}

	e, err := newEngine(cfg, logger)
	if err != nil {
		closer()
		return nil, err
	}
	return &session{config: cfg, logger: logger, edge: e, closer: closer}, nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (logging.Logger, func(), error) {
	logCfg := &logging.LoggerConfig{
		Level:  cfg.LogLevel(),
		Format: cfg.Log.Format,
		Output: stderr,
	}
	console := logging.NewLogger(logCfg)
	if cfg.Log.Dir == "" {
		return console, func() {}, nil
	}

	file, err := logging.NewFileLogger(logCfg, cfg.Log.Dir)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}

func newEngine(cfg *config.Config, logger logging.Logger) (*edge.Edge, error) {
	e := edge.New(
		edge.WithLogger(logger),
		edge.WithCache(cfg.Cache.Size),
		edge.WithCacheTTL(cfg.Cache.TTL),
		edge.WithRawWhitespace(cfg.WhitespaceMode()),
	)
	// A missing default directory only matters to commands that load
	// templates by name, and they report the miss themselves.
	if _, err := os.Stat(cfg.Views.Root); err != nil {
		logger.Warn(context.Background(), err, "views directory not found", "dir", cfg.Views.Root)
	} else if err := e.Mount("", cfg.Views.Root); err != nil {
		return nil, err
	}
	for _, name := range cfg.DiskNames() {
		if err := e.Mount(name, cfg.Views.Disks[name]); err != nil {
			return nil, err
		}
	}
	return e, nil
}
