package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gocrud/logkit/logging"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，如 LOGKIT_MINIMUM_LEVEL、LOGKIT_FILE_PATH
const EnvPrefix = "LOGKIT_"

// LoggingOptions 日志系统配置
// 加载顺序: 默认值 -> YAML 文件 -> 环境变量（后者覆盖前者）
type LoggingOptions struct {
	MinimumLevel string           `yaml:"minimum_level" env:"MINIMUM_LEVEL"`
	Console      ConsoleOptions   `yaml:"console" envPrefix:"CONSOLE_"`
	File         FileOptions      `yaml:"file" envPrefix:"FILE_"`
	Redis        RedisOptions     `yaml:"redis" envPrefix:"REDIS_"`
	MongoDB      MongoOptions     `yaml:"mongodb" envPrefix:"MONGODB_"`
	Database     DatabaseOptions  `yaml:"database" envPrefix:"DATABASE_"`
	Pebble       PebbleOptions    `yaml:"pebble" envPrefix:"PEBBLE_"`
	Telemetry    TelemetryOptions `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Etcd         EtcdOptions      `yaml:"etcd" envPrefix:"ETCD_"`
}

// ConsoleOptions 控制台输出
type ConsoleOptions struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Format    string `yaml:"format" env:"FORMAT"` // text | json
	Output    string `yaml:"output" env:"OUTPUT"` // stdout | stderr
	Color     bool   `yaml:"color" env:"COLOR"`
	Timestamp bool   `yaml:"timestamp" env:"TIMESTAMP"`
	Async     bool   `yaml:"async" env:"ASYNC"`
	Filter    string `yaml:"filter" env:"FILTER"` // CEL 表达式，为空表示不过滤
}

// FileOptions 文件输出，Path 为空表示不启用
type FileOptions struct {
	Path           string `yaml:"path" env:"PATH"`
	Format         string `yaml:"format" env:"FORMAT"`
	MaxSizeMB      int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups     int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays     int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress       bool   `yaml:"compress" env:"COMPRESS"`
	RotateSchedule string `yaml:"rotate_schedule" env:"ROTATE_SCHEDULE"`
	Async          bool   `yaml:"async" env:"ASYNC"`
	Filter         string `yaml:"filter" env:"FILTER"`
}

// RedisOptions Redis Stream 输出，Addr 为空表示不启用
type RedisOptions struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Stream   string `yaml:"stream" env:"STREAM"`
	MaxLen   int64  `yaml:"max_len" env:"MAX_LEN"`
	Async    bool   `yaml:"async" env:"ASYNC"`
}

// MongoOptions MongoDB 输出，Uri 为空表示不启用
type MongoOptions struct {
	Uri        string        `yaml:"uri" env:"URI"`
	Database   string        `yaml:"database" env:"DATABASE"`
	Collection string        `yaml:"collection" env:"COLLECTION"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Async      bool          `yaml:"async" env:"ASYNC"`
}

// DatabaseOptions 关系数据库输出，DSN 为空表示不启用
type DatabaseOptions struct {
	Driver string `yaml:"driver" env:"DRIVER"` // 目前支持 sqlite
	DSN    string `yaml:"dsn" env:"DSN"`
	Table  string `yaml:"table" env:"TABLE"`
	Async  bool   `yaml:"async" env:"ASYNC"`
}

// PebbleOptions 本地 Pebble 存储，Dir 为空表示不启用
type PebbleOptions struct {
	Dir   string `yaml:"dir" env:"DIR"`
	Sync  bool   `yaml:"sync" env:"SYNC"`
	Async bool   `yaml:"async" env:"ASYNC"`
}

// TelemetryOptions OpenTelemetry 指标
type TelemetryOptions struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	MeterName string `yaml:"meter_name" env:"METER_NAME"`
}

// EtcdOptions 从 etcd 动态调整日志级别，Endpoints 为空表示不启用
type EtcdOptions struct {
	Endpoints []string `yaml:"endpoints" env:"ENDPOINTS"`
	Key       string   `yaml:"key" env:"KEY"`
	Username  string   `yaml:"username" env:"USERNAME"`
	Password  string   `yaml:"password" env:"PASSWORD"`
}

// Default 返回默认配置：仅启用控制台输出
func Default() *LoggingOptions {
	return &LoggingOptions{
		MinimumLevel: "info",
		Console: ConsoleOptions{
			Enabled:   true,
			Format:    "text",
			Output:    "stdout",
			Color:     true,
			Timestamp: true,
		},
		File: FileOptions{
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 10,
		},
		Redis: RedisOptions{
			Stream: "logs",
			MaxLen: 100000,
		},
		MongoDB: MongoOptions{
			Database:   "logs",
			Collection: "entries",
			Timeout:    10 * time.Second,
		},
		Database: DatabaseOptions{
			Driver: "sqlite",
			Table:  "log_records",
		},
		Telemetry: TelemetryOptions{
			MeterName: "github.com/gocrud/logkit",
		},
		Etcd: EtcdOptions{
			Key: "/logkit/minimum_level",
		},
	}
}

// Load 加载配置，path 为空时只使用默认值和环境变量
func Load(path string) (*LoggingOptions, error) {
	opts := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(opts, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Level 返回解析后的最小日志级别
func (o *LoggingOptions) Level() logging.LogLevel {
	level, err := logging.ParseLogLevel(o.MinimumLevel)
	if err != nil {
		return logging.LogLevelInfo
	}
	return level
}

// Validate 验证配置
func (o *LoggingOptions) Validate() error {
	if _, err := logging.ParseLogLevel(o.MinimumLevel); err != nil {
		return fmt.Errorf("config: minimum_level: %w", err)
	}
	if err := validateFormat("console.format", o.Console.Format); err != nil {
		return err
	}
	switch strings.ToLower(o.Console.Output) {
	case "", "stdout", "stderr":
	default:
		return fmt.Errorf("config: console.output must be stdout or stderr (got: %s)", o.Console.Output)
	}
	if err := validateFormat("file.format", o.File.Format); err != nil {
		return err
	}
	if o.File.MaxSizeMB < 0 {
		return fmt.Errorf("config: file.max_size_mb must be non-negative")
	}
	if o.File.MaxAgeDays < 0 {
		return fmt.Errorf("config: file.max_age_days must be non-negative")
	}
	if o.File.MaxBackups < 0 {
		return fmt.Errorf("config: file.max_backups must be non-negative")
	}
	if o.Database.DSN != "" && !strings.EqualFold(o.Database.Driver, "sqlite") {
		return fmt.Errorf("config: database.driver %q is not supported", o.Database.Driver)
	}
	if len(o.Etcd.Endpoints) > 0 && o.Etcd.Key == "" {
		return fmt.Errorf("config: etcd.key is required when endpoints are set")
	}
	return nil
}

func validateFormat(name, format string) error {
	switch strings.ToLower(format) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("config: %s must be text or json (got: %s)", name, format)
	}
}
