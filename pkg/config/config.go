// Package config loads influx-stream-client settings from an optional
// configuration file and the environment.
//
// Load looks for a file named influxstream.yaml (also .toml or .json)
// in the working directory, each of its parents, and finally the home
// directory. A missing file is not an error; the defaults apply.
// Environment variables prefixed with INFLUXSTREAM override file
// values, with the first underscore after the prefix separating the
// section from the key: INFLUXSTREAM_INFLUX_URL sets influx.url and
// INFLUXSTREAM_STREAM_BATCH_SIZE sets stream.batch_size.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Sternrassler/influx-stream-client/pkg/influx"
	"github.com/Sternrassler/influx-stream-client/pkg/logging"
	"github.com/Sternrassler/influx-stream-client/pkg/lookahead"
	"github.com/Sternrassler/influx-stream-client/pkg/pagination"
)

const (
	// DefaultFileName is the base name of the config file searched for.
	DefaultFileName = "influxstream"

	// DefaultEnvPrefix is the prefix for environment variable overrides.
	DefaultEnvPrefix = "INFLUXSTREAM"
)

// File is the full on-disk configuration.
type File struct {
	Influx  Influx  `mapstructure:"influx"`
	Stream  Stream  `mapstructure:"stream"`
	Logging Logging `mapstructure:"logging"`
	Redis   Redis   `mapstructure:"redis"`
}

// Influx configures the connection to the InfluxDB HTTP API.
type Influx struct {
	// URL is the base URL of the InfluxDB server.
	URL string `mapstructure:"url"`

	// Database is the database queries run against.
	Database string `mapstructure:"database"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Epoch selects the timestamp precision returned by the server.
	Epoch string `mapstructure:"epoch"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`

	// AcceptGzip asks the server for compressed responses.
	AcceptGzip bool `mapstructure:"accept_gzip"`
}

// Stream holds the streaming defaults applied when stream options
// leave them unset.
type Stream struct {
	// BatchSize is the page size for offset pagination.
	BatchSize int `mapstructure:"batch_size"`

	// Parallelism is the number of pages fetched ahead of the consumer.
	Parallelism int `mapstructure:"parallelism"`

	// CacheTTL bounds how long discovered series lists are reused.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Logging mirrors the logging package configuration.
type Logging struct {
	Level  logging.LogLevel `mapstructure:"level"`
	Pretty bool             `mapstructure:"pretty"`
}

// Config converts the section into a logging.Config, keeping the
// default output writer.
func (l Logging) Config() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Pretty = l.Pretty
	return cfg
}

// Redis locates the Redis instance used for series caching. An empty
// Addr leaves caching disabled.
type Redis struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// Options controls configuration discovery.
type Options struct {
	// Path pins the config file location and skips the search.
	Path string

	// Name overrides the base name of the config file searched for.
	Name string

	// EnvPrefix overrides the environment variable prefix.
	EnvPrefix string
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() File {
	return File{
		Influx: Influx{
			URL:        "http://localhost:8086",
			Epoch:      string(influx.EpochSecond),
			Timeout:    30 * time.Second,
			AcceptGzip: true,
		},
		Stream: Stream{
			BatchSize:   pagination.DefaultBatchSize,
			Parallelism: lookahead.DefaultParallelism,
			CacheTTL:    time.Hour,
		},
		Logging: Logging{
			Level: logging.LevelInfo,
		},
	}
}

// Load reads the configuration file and environment overrides on top
// of Default. A missing config file leaves the defaults untouched; a
// file that exists but cannot be parsed is an error.
func Load(opts Options) (*File, error) {
	if opts.Name == "" {
		opts.Name = DefaultFileName
	}
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = DefaultEnvPrefix
	}

	v := viper.New()

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.Path, err)
		}
	} else {
		v.SetConfigName(opts.Name)
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	applyEnv(v, opts.EnvPrefix)

	cfg := Default()
	if err := v.Unmarshal(&cfg, weaklyTyped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// applyEnv merges prefixed environment variables into v. Viper's
// AutomaticEnv does not surface unknown keys to Unmarshal, so the
// environment is walked by hand: INFLUXSTREAM_STREAM_BATCH_SIZE
// becomes stream.batch_size.
func applyEnv(v *viper.Viper, prefix string) {
	prefix = strings.ToUpper(prefix) + "_"
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		section, field, ok := strings.Cut(strings.TrimPrefix(key, prefix), "_")
		if !ok || section == "" || field == "" {
			continue
		}
		v.Set(strings.ToLower(section)+"."+strings.ToLower(field), value)
	}
}

// searchPaths lists the directories probed for the config file: the
// working directory, each of its parents, and the home directory.
func searchPaths() []string {
	var paths []string
	if wd, err := os.Getwd(); err == nil {
		for dir := wd; ; dir = filepath.Dir(dir) {
			paths = append(paths, dir)
			if dir == filepath.Dir(dir) {
				break
			}
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	return paths
}

// weaklyTyped lets string values from the environment decode into
// numeric and boolean fields.
func weaklyTyped(dc *mapstructure.DecoderConfig) {
	dc.WeaklyTypedInput = true
}
