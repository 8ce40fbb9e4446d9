package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/sagarc03/zipstream"
	"github.com/sagarc03/zipstream/compressor"
	zipstreamhttp "github.com/sagarc03/zipstream/http"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for zipstream.
type Config struct {
	Server     ServerConfig             `mapstructure:"server" yaml:"server"`
	Archive    ArchiveConfig            `mapstructure:"archive" yaml:"archive"`
	Compressor compressor.Config        `mapstructure:"compressor" yaml:"compressor"`
	CORS       zipstreamhttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log        LogConfig                `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port              int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	IndexPath         string        `mapstructure:"index_path" yaml:"index_path" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
}

// ArchiveConfig holds the archive streaming configuration.
type ArchiveConfig struct {
	Root         string        `mapstructure:"root" yaml:"root" validate:"required"`
	Name         string        `mapstructure:"name" yaml:"name" validate:"required"`
	NetworkDelay time.Duration `mapstructure:"network_delay" yaml:"network_delay" validate:"gte=0"`
	ChunkSize    int           `mapstructure:"chunk_size" yaml:"chunk_size" validate:"min=1"`
}

// Stream returns the immutable stream configuration shared by all transfers.
func (a ArchiveConfig) Stream() zipstream.StreamConfig {
	return zipstream.StreamConfig{
		NetworkDelay: a.NetworkDelay,
		ArchiveName:  a.Name,
		RootDir:      a.Root,
		ChunkSize:    a.ChunkSize,
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format  string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":          "server.port",
	"index":         "server.index_path",
	"root":          "archive.root",
	"archive-name":  "archive.name",
	"network-delay": "archive.network_delay",
	"chunk-size":    "archive.chunk_size",
	"compressor":    "compressor.backend",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// legacyEnv lists environment variable names accepted in addition to the
// ZIPSTREAM_ prefixed ones. Earlier names win.
var legacyEnv = map[string][]string{
	"archive.network_delay": {"ZIPSTREAM_ARCHIVE_NETWORK_DELAY", "NETWORK_DELAY"},
	"archive.name":          {"ZIPSTREAM_ARCHIVE_NAME", "ARCHIVE_NAME"},
	"archive.root":          {"ZIPSTREAM_ARCHIVE_ROOT", "PHOTOS_DIR"},
	"log.enabled":           {"ZIPSTREAM_LOG_ENABLED", "ENABLE_LOGGING"},
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.index_path", "index.html")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("archive.root", "test_photos")
	v.SetDefault("archive.name", zipstream.DefaultArchiveName)
	v.SetDefault("archive.network_delay", 0)
	v.SetDefault("archive.chunk_size", zipstream.DefaultChunkSize)

	v.SetDefault("compressor.backend", compressor.BackendExec)
	v.SetDefault("compressor.command", compressor.DefaultCommand)
	v.SetDefault("compressor.level", 6)

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{})
	v.SetDefault("cors.exposed_headers", []string{"Content-Disposition"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 0)

	v.SetDefault("log.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > .env > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read .env into the process environment without overriding set variables
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "err", err)
	}

	// 3. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 4. Bind environment variables
	v.SetEnvPrefix("ZIPSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	// 5. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 6. Unmarshal into Config struct
	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		commandHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 7. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// secondsDurationHook decodes bare numbers into durations in seconds, so
// NETWORK_DELAY=2 means two seconds while "250ms" keeps its Go meaning.
func secondsDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))

	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}

		switch value := data.(type) {
		case string:
			secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return data, nil
			}
			return time.Duration(secs * float64(time.Second)), nil
		case int:
			return time.Duration(value) * time.Second, nil
		case int64:
			return time.Duration(value) * time.Second, nil
		case float64:
			return time.Duration(value * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}

// commandHook splits a command given as one string on whitespace. Other lists
// given as strings are comma separated.
func commandHook() mapstructure.DecodeHookFuncType {
	commandType := reflect.TypeOf(compressor.Command{})

	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != commandType {
			return data, nil
		}
		return strings.Fields(reflect.ValueOf(data).String()), nil
	}
}
