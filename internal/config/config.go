// Package config provides configuration management for the edge CLI using
// Viper for loading from files, environment variables, and command-line flags.
//
// The configuration supports YAML files (.edge.yml), environment variable
// overrides with the EDGE_ prefix and validation. It covers the template
// disks, the whitespace policy, the compiled-template cache, logging and the
// preview server.
package config

import (
	stderrors "errors"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/logging"
	"github.com/anhnt/edge/internal/whitespace"
)

// EnvPrefix is the prefix of environment overrides, e.g. EDGE_SERVER_PORT.
const EnvPrefix = "EDGE"

// FileName is the default config file name, searched in the working directory.
const FileName = ".edge"

type Config struct {
	Views  ViewsConfig  `mapstructure:"views" yaml:"views"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
}

type ViewsConfig struct {
	// Root is the directory of the default disk.
	Root string `mapstructure:"root" yaml:"root" validate:"required"`
	// Disks maps named disks to directories, rendered as "disk::name".
	Disks      map[string]string `mapstructure:"disks" yaml:"disks" validate:"dive,keys,diskname,endkeys,required"`
	Whitespace string            `mapstructure:"whitespace" yaml:"whitespace" validate:"oneof=all controlled none"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size" yaml:"size" validate:"gte=0"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	// Dir enables daily log files in addition to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port           int      `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" validate:"gte=0"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

// SetDefaults registers default values on v. Keys without a default are
// invisible to environment overrides, so every key is listed.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("views.root", "./views")
	v.SetDefault("views.disks", map[string]string{})
	v.SetDefault("views.whitespace", "all")
	v.SetDefault("cache.size", 512)
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.ignore", []string{".git", "node_modules"})
}

// Setup points v at its config file and enables EDGE_ environment overrides.
// An explicit file wins over EDGE_CONFIG_FILE, which wins over .edge.yml in
// the working directory. A missing default file is not an error.
func Setup(v *viper.Viper, file string) error {
	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && stderrors.As(err, &notFound) {
			return nil
		}
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "cannot read config file").WithCause(err)
	}
	return nil
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads the configuration held by v without validating it.
func Decode(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "cannot decode configuration").WithCause(err)
	}
	if cfg.Views.Disks == nil {
		cfg.Views.Disks = map[string]string{}
	}
	cfg.Views.Whitespace = strings.ToLower(strings.TrimSpace(cfg.Views.Whitespace))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	return &cfg, nil
}

// WhitespaceMode returns the parsed raw-text whitespace policy.
func (c *Config) WhitespaceMode() whitespace.Mode {
	mode, err := whitespace.ParseMode(c.Views.Whitespace)
	if err != nil {
		return whitespace.All
	}
	return mode
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// DiskNames returns the configured named disks in sorted order.
func (c *Config) DiskNames() []string {
	names := make([]string, 0, len(c.Views.Disks))
	for name := range c.Views.Disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Address returns the preview server listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
