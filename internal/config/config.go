package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".campus"
	envPrefix  = "CAMPUS"
	dotEnvFile = ".env"
)

type Config struct {
	Identity IdentityConfig `mapstructure:"identity"`
	Session  SessionConfig  `mapstructure:"session"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Report   ReportConfig   `mapstructure:"report"`
	Log      LogConfig      `mapstructure:"log"`
}

type IdentityConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`
}

type SessionConfig struct {
	CheckInterval      time.Duration `mapstructure:"check_interval" validate:"min=0"`
	RefreshThreshold   time.Duration `mapstructure:"refresh_threshold" validate:"min=0"`
	ExpiryBuffer       time.Duration `mapstructure:"expiry_buffer" validate:"min=0"`
	MinRefreshInterval time.Duration `mapstructure:"min_refresh_interval" validate:"min=0"`
	// SnapshotStaleAfter must outlast a check tick, or children would see the
	// parent's heartbeat go stale between ticks.
	SnapshotStaleAfter time.Duration `mapstructure:"snapshot_stale_after" validate:"gtfield=CheckInterval"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1"`
	BaseDelay   time.Duration `mapstructure:"base_delay" validate:"min=0"`
	MaxDelay    time.Duration `mapstructure:"max_delay" validate:"min=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`
}

type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"min=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"min=0"`
	LargeTTL      time.Duration `mapstructure:"large_ttl" validate:"min=0"`
	LargeMaxBytes int64         `mapstructure:"large_max_bytes" validate:"min=1"`
}

type DedupConfig struct {
	ErrorWindow     time.Duration `mapstructure:"error_window" validate:"min=0"`
	WarningCooldown time.Duration `mapstructure:"warning_cooldown" validate:"min=0"`
}

type PoolConfig struct {
	Min                 int           `mapstructure:"min" validate:"min=0,ltefield=Max"`
	Max                 int           `mapstructure:"max" validate:"min=1"`
	IdleTimeout         time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" validate:"min=0"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file badger chain pass memory"`
	Path    string `mapstructure:"path"`
}

type ReportConfig struct {
	RollbarToken string `mapstructure:"rollbar_token"`
	Environment  string `mapstructure:"environment"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `mapstructure:"json"`
}

// Options controls where Load looks. Zero values use the user's home
// directory and the working directory's .env.
type Options struct {
	Viper      *viper.Viper
	HomeDir    string
	DotEnvPath string
}

var validate = validator.New()

// Load resolves the configuration from defaults, ~/.campus/config.toml, a
// .env file and CAMPUS_* environment variables, in increasing precedence.
func Load(opts Options) (Config, error) {
	v := opts.Viper
	if v == nil {
		v = viper.New()
	}

	homeDir := opts.HomeDir
	if homeDir == "" {
		var err error
		homeDir, err = os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
	}

	setDefaults(v, homeDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(homeDir, configDir))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	dotEnvPath := opts.DotEnvPath
	if dotEnvPath == "" {
		dotEnvPath = dotEnvFile
	}
	if err := applyDotEnv(v, dotEnvPath); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Storage.Path != "" {
		path, err := normalizePath(cfg.Storage.Path)
		if err != nil {
			return Config{}, err
		}
		cfg.Storage.Path = path
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, domain.ConfigError("load config", "invalid config: %v", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.request_timeout", 10*time.Second)

	v.SetDefault("session.check_interval", 60*time.Second)
	v.SetDefault("session.refresh_threshold", 55*time.Second)
	v.SetDefault("session.expiry_buffer", 5*time.Minute)
	v.SetDefault("session.min_refresh_interval", 10*time.Second)
	v.SetDefault("session.snapshot_stale_after", 2*time.Minute)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 10*time.Second)
	v.SetDefault("retry.timeout", 10*time.Second)

	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.sweep_interval", 60*time.Second)
	v.SetDefault("cache.large_ttl", 30*time.Minute)
	v.SetDefault("cache.large_max_bytes", int64(50<<20))

	v.SetDefault("dedup.error_window", 5*time.Second)
	v.SetDefault("dedup.warning_cooldown", 30*time.Second)

	v.SetDefault("pool.min", 1)
	v.SetDefault("pool.max", 5)
	v.SetDefault("pool.idle_timeout", 5*time.Minute)
	v.SetDefault("pool.health_check_interval", 30*time.Second)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", filepath.Join(homeDir, configDir, "session"))

	v.SetDefault("report.rollbar_token", "")
	v.SetDefault("report.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// applyDotEnv copies CAMPUS_* entries of a .env file into v. Variables already
// present in the process environment win.
func applyDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		envKey := EnvKey(key)
		value, ok := values[envKey]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(envKey); set {
			continue
		}
		v.Set(key, value)
	}
	return nil
}

// EnvKey is the environment variable that overrides a config key.
func EnvKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return filepath.Clean(absPath), nil
}
