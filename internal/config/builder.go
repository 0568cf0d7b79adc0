package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anhnt/edge/internal/errors"
)

// Builder provides a fluent interface for assembling a configuration in code,
// mostly for tests and for writing a starter .edge.yml.
//
// Usage:
//
//	cfg, err := config.NewBuilder().
//	    WithViews("./views").
//	    WithDisk("mail", "./emails").
//	    WithServer("localhost", 3000).
//	    Build()
type Builder struct {
	config *Config
}

// Default returns the configuration used when no file or override is set.
func Default() *Config {
	return &Config{
		Views: ViewsConfig{
			Root:       "./views",
			Disks:      map[string]string{},
			Whitespace: "all",
		},
		Cache:  CacheConfig{Size: 512},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Host: "localhost", Port: 8080},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 100 * time.Millisecond,
			Ignore:   []string{".git", "node_modules"},
		},
	}
}

// NewBuilder starts from Default.
func NewBuilder() *Builder {
	return &Builder{config: Default()}
}

func (b *Builder) WithViews(root string) *Builder {
	b.config.Views.Root = root
	return b
}

func (b *Builder) WithDisk(name, dir string) *Builder {
	b.config.Views.Disks[name] = dir
	return b
}

func (b *Builder) WithWhitespace(mode string) *Builder {
	b.config.Views.Whitespace = mode
	return b
}

func (b *Builder) WithCache(size int, ttl time.Duration) *Builder {
	b.config.Cache = CacheConfig{Size: size, TTL: ttl}
	return b
}

func (b *Builder) WithLog(level, format string) *Builder {
	b.config.Log.Level = level
	b.config.Log.Format = format
	return b
}

func (b *Builder) WithServer(host string, port int) *Builder {
	b.config.Server.Host = host
	b.config.Server.Port = port
	return b
}

// Build validates and returns the configuration.
func (b *Builder) Build() (*Config, error) {
	if err := Validate(b.config); err != nil {
		return nil, err
	}
	return b.config, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "cannot encode configuration", err)
	}
	return data, nil
}

// WriteFile writes cfg to path. An existing file is left alone unless force
// is set.
func WriteFile(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.NewConfigError(errors.ErrCodeConfigInvalid, path+" already exists").
				WithContext("path", path)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "cannot write "+path)
	}
	return nil
}
