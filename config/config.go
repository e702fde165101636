package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	StatsMemory = "memory"
	StatsRedis  = "redis"
)

type ServerConfig struct {
	Environment string `mapstructure:"environment"`
}

type ProviderConfig struct {
	Address string `mapstructure:"address"`
}

type ConsumerConfig struct {
	Address        string `mapstructure:"address"`
	ProviderURL    string `mapstructure:"provider_url"`
	RequestTimeout string `mapstructure:"request_timeout"`
}

type AdmissionConfig struct {
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	AcquireTimeout string  `mapstructure:"acquire_timeout"`
}

type CircuitBreakerConfig struct {
	Threshold    int    `mapstructure:"threshold"`
	ResetTimeout string `mapstructure:"reset_timeout"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StatsConfig struct {
	Backend string      `mapstructure:"backend"`
	Prefix  string      `mapstructure:"prefix"`
	TTL     string      `mapstructure:"ttl"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Provider       ProviderConfig       `mapstructure:"provider"`
	Consumer       ConsumerConfig       `mapstructure:"consumer"`
	Admission      AdmissionConfig      `mapstructure:"admission"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Stats          StatsConfig          `mapstructure:"stats"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

func setDefaults() {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("provider.address", ":8070")
	viper.SetDefault("consumer.address", ":8080")
	viper.SetDefault("consumer.provider_url", "http://localhost:8070")
	viper.SetDefault("consumer.request_timeout", "3s")
	viper.SetDefault("admission.rps", 100.0)
	viper.SetDefault("admission.burst", 20)
	viper.SetDefault("admission.max_concurrency", 50)
	viper.SetDefault("admission.acquire_timeout", "0s")
	viper.SetDefault("circuit_breaker.threshold", 5)
	viper.SetDefault("circuit_breaker.reset_timeout", "10s")
	viper.SetDefault("stats.backend", StatsMemory)
	viper.SetDefault("stats.prefix", "divider:admission")
	viper.SetDefault("stats.ttl", "24h")
	viper.SetDefault("stats.redis.address", "localhost:6379")
	viper.SetDefault("stats.redis.db", 0)
	viper.SetDefault("logging.level", LogLevelInfo)
}

// Load reads configFile, or config.yaml from ./config or the working directory
// when configFile is empty. Environment variables override file values, with
// dots replaced by underscores (CONSUMER_PROVIDER_URL).
func Load(configFile string) (*Config, error) {
	viper.Reset()
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	return decode()
}

func decode() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// Watch re-reads the loaded config file on every change and passes the new
// configuration to onChange. Invalid updates are logged and skipped.
func Watch(logger *slog.Logger, onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed",
			slog.String("file", e.Name),
			slog.String("op", e.Op.String()))

		cfg, err := decode()
		if err != nil {
			logger.Warn("ignoring invalid config update", slog.Any("err", err))
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Provider,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProviderConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProviderConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Address, validation.Required, validation.By(validateHostPort)),
				)
			}),
		),
		validation.Field(&c.Consumer,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(ConsumerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ConsumerConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.Address, validation.Required, validation.By(validateHostPort)),
					validation.Field(&cc.ProviderURL, validation.Required, validation.By(validateServerURL)),
					validation.Field(&cc.RequestTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Admission,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AdmissionConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AdmissionConfig")
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.RPS, validation.Min(0.0)),
					validation.Field(&ac.Burst,
						validation.When(ac.RPS > 0, validation.Required, validation.Min(1)),
					),
					validation.Field(&ac.MaxConcurrency, validation.Min(0)),
					validation.Field(&ac.AcquireTimeout, validation.By(validateOptionalDuration)),
				)
			}),
		),
		validation.Field(&c.CircuitBreaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				cb, ok := value.(CircuitBreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CircuitBreakerConfig")
				}
				return validation.ValidateStruct(&cb,
					validation.Field(&cb.Threshold, validation.Required, validation.Min(1)),
					validation.Field(&cb.ResetTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Stats,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StatsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StatsConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Backend, validation.Required, validation.In(StatsMemory, StatsRedis)),
					validation.Field(&sc.TTL, validation.By(validateOptionalDuration)),
					validation.Field(&sc.Redis,
						validation.When(sc.Backend == StatsRedis, validation.By(validateRedisConfig)),
					),
				)
			}),
		),
	)
}

func (c AdmissionConfig) AcquireTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.AcquireTimeout)
	return d
}

func (c ConsumerConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

func (c CircuitBreakerConfig) ResetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ResetTimeout)
	return d
}

func (c StatsConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateOptionalDuration(value interface{}) error {
	if s, ok := value.(string); ok && s == "" {
		return nil
	}
	return validateDuration(value)
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateRedisConfig(value interface{}) error {
	rc, ok := value.(RedisConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RedisConfig")
	}

	return validation.ValidateStruct(&rc,
		validation.Field(&rc.Address, validation.Required, validation.By(validateHostPort)),
		validation.Field(&rc.DB, validation.Min(0)),
	)
}
