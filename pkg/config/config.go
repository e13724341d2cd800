package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Logger      LoggerConfig     `yaml:"logger"`
	Forecast    ForecastConfig   `yaml:"forecast"`
	Data        DataConfig       `yaml:"data"`
	Chart       ChartConfig      `yaml:"chart"`
	Server      ServerConfig     `yaml:"server"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Recorder    RecorderConfig   `yaml:"recorder"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

// ForecastConfig drives one forecast run.
type ForecastConfig struct {
	Symbol          string  `yaml:"symbol" default:"BTCUSDT" validate:"required"`
	Timeframe       string  `yaml:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	WindowSize      int     `yaml:"window_size" default:"10" validate:"gte=1"`
	Epochs          int     `yaml:"epochs" default:"100" validate:"gte=1"`
	ShouldTrain     bool    `yaml:"should_train" default:"true"`
	SplitTime       string  `yaml:"split_time"`
	ValidationRatio float64 `yaml:"validation_ratio" default:"0.2" validate:"gt=0,lt=1"`
	Model           string  `yaml:"model" default:"cnn" validate:"oneof=cnn rnn"`
	ModelLocation   string  `yaml:"model_location" default:"file://data/models" validate:"required"`
	BatchSize       int     `yaml:"batch_size" default:"32" validate:"gte=1"`
	LearningRate    float64 `yaml:"learning_rate" default:"0.001" validate:"gt=0"`
	Seed            uint64  `yaml:"seed" default:"42"`
}

type DataConfig struct {
	Source     string        `yaml:"source" default:"file" validate:"oneof=file clickhouse"`
	Dir        string        `yaml:"dir" default:"data"`
	Cache      string        `yaml:"cache" default:"memory" validate:"oneof=none memory layered"`
	CacheTTL   time.Duration `yaml:"cache_ttl" default:"5m"`
	CacheSweep time.Duration `yaml:"cache_sweep" default:"1m"`
}

type ChartConfig struct {
	Enabled   bool     `yaml:"enabled" default:"true"`
	OutputDir string   `yaml:"output_dir" default:"charts"`
	Sizes     []string `yaml:"sizes" default:"[\"small\",\"medium\",\"big\"]" validate:"dive,oneof=small medium big"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	RunRateLimit    float64       `yaml:"run_rate_limit" default:"0.1"`
	RunBurst        int           `yaml:"run_burst" default:"1"`
}

type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron" default:"0 0 * * * *"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type ClickHouseConfig struct {
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"default"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	CandleTable  string        `yaml:"candle_table" default:"candles"`
	RunTable     string        `yaml:"run_table" default:"forecast_runs"`
	MaxExecTime  time.Duration `yaml:"max_execution_time" default:"60s"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr" default:"localhost:6379"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	KeyPrefix    string        `yaml:"key_prefix" default:"pricecast"`
	PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic        string        `yaml:"topic" default:"pricecast.forecasts"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
}

type RecorderConfig struct {
	Type       string `yaml:"type" default:"none" validate:"oneof=none sqlite clickhouse"`
	SQLitePath string `yaml:"sqlite_path" default:"data/pricecast.db"`
}

// Load builds the configuration: struct defaults, then the YAML file (if path is
// non-empty), then PRICECAST_* environment overrides, then validation.
func Load(path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("PRICECAST_ENVIRONMENT", &c.Environment)
	str("PRICECAST_LOG_LEVEL", &c.Logger.Level)
	str("PRICECAST_SYMBOL", &c.Forecast.Symbol)
	str("PRICECAST_TIMEFRAME", &c.Forecast.Timeframe)
	num("PRICECAST_WINDOW_SIZE", &c.Forecast.WindowSize)
	num("PRICECAST_EPOCHS", &c.Forecast.Epochs)
	boolean("PRICECAST_SHOULD_TRAIN", &c.Forecast.ShouldTrain)
	str("PRICECAST_SPLIT_TIME", &c.Forecast.SplitTime)
	str("PRICECAST_MODEL", &c.Forecast.Model)
	str("PRICECAST_MODEL_LOCATION", &c.Forecast.ModelLocation)
	str("PRICECAST_DATA_SOURCE", &c.Data.Source)
	str("PRICECAST_DATA_DIR", &c.Data.Dir)
	str("PRICECAST_CHART_DIR", &c.Chart.OutputDir)
	num("PRICECAST_SERVER_PORT", &c.Server.Port)
	str("PRICECAST_CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("PRICECAST_CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("PRICECAST_REDIS_ADDR", &c.Redis.Addr)
	str("PRICECAST_REDIS_PASSWORD", &c.Redis.Password)
	str("PRICECAST_RECORDER", &c.Recorder.Type)
	if v, ok := lookup("PRICECAST_KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	return errors.Join(errs...)
}

var validate = validator.New()

// Validate checks struct tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Forecast.Model == "cnn" && c.Forecast.WindowSize < 5 {
		return fmt.Errorf("forecast.window_size must be >= 5 for the cnn model, got %d", c.Forecast.WindowSize)
	}
	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is required when schedule is enabled")
	}
	return nil
}
