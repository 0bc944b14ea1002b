// Package logkit 根据配置组装日志工厂
//
// 典型用法:
//
//	factory, err := logkit.NewFactoryFromFile("logging.yaml")
//	if err != nil {
//		return err
//	}
//	defer factory.Dispose()
//
//	logger, _ := factory.CreateLogger("app")
//	logger.Info("started")
package logkit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gocrud/logkit/config"
	"github.com/gocrud/logkit/database"
	"github.com/gocrud/logkit/etcd"
	"github.com/gocrud/logkit/filter"
	"github.com/gocrud/logkit/logging"
	"github.com/gocrud/logkit/mongodb"
	pebblestore "github.com/gocrud/logkit/pebble"
	"github.com/gocrud/logkit/redis"
	"github.com/gocrud/logkit/telemetry"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/sqlite"
)

// NewFactoryFromFile 从 YAML 文件（及 LOGKIT_ 环境变量）加载配置并创建日志工厂
func NewFactoryFromFile(path string) (logging.LoggerFactory, error) {
	opts, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFactory(opts)
}

// NewFactory 按配置创建日志工厂
// 任一提供者创建失败时，已创建的提供者都会被关闭
func NewFactory(opts *config.LoggingOptions) (logging.LoggerFactory, error) {
	if opts == nil {
		opts = config.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	builder := logging.NewLoggingBuilder().
		SetMinimumLevel(opts.Level()).
		WithFactoryOptions(logging.WithDisposeErrorHandler(reportDisposeError))

	if opts.Console.Enabled {
		addProvider(builder, "console", func() (logging.LoggerProvider, error) {
			return withFilter(logging.NewConsoleLoggerProvider(consoleOptions(opts.Console)), opts.Console.Filter)
		})
	}
	if opts.File.Path != "" {
		addProvider(builder, "file", func() (logging.LoggerProvider, error) {
			provider, err := logging.NewFileLoggerProvider(fileOptions(opts.File))
			if err != nil {
				return nil, err
			}
			return withFilter(provider, opts.File.Filter)
		})
	}
	if opts.Redis.Addr != "" {
		addProvider(builder, "redis", func() (logging.LoggerProvider, error) {
			return redis.NewProvider(redisOptions(opts.Redis))
		})
	}
	if opts.MongoDB.Uri != "" {
		addProvider(builder, "mongodb", func() (logging.LoggerProvider, error) {
			return mongodb.NewProvider(mongoOptions(opts.MongoDB))
		})
	}
	if opts.Database.DSN != "" {
		addProvider(builder, "database", func() (logging.LoggerProvider, error) {
			return database.NewProvider(databaseOptions(opts.Database))
		})
	}
	if opts.Pebble.Dir != "" {
		addProvider(builder, "pebble", func() (logging.LoggerProvider, error) {
			return pebblestore.NewProvider(pebblestore.Options{
				Dir:   opts.Pebble.Dir,
				Sync:  opts.Pebble.Sync,
				Async: opts.Pebble.Async,
			})
		})
	}
	if opts.Telemetry.Enabled {
		addProvider(builder, "telemetry", func() (logging.LoggerProvider, error) {
			topts := *telemetry.NewDefaultOptions()
			if opts.Telemetry.MeterName != "" {
				topts.MeterName = opts.Telemetry.MeterName
			}
			return telemetry.NewProvider(otel.GetMeterProvider(), topts)
		})
	}

	factory, err := builder.Build()
	if err != nil {
		return nil, err
	}

	if len(opts.Etcd.Endpoints) == 0 {
		return factory, nil
	}

	logger, _ := factory.CreateLogger("logkit.etcd")
	watcher, err := etcd.NewLevelWatcher(etcdOptions(opts.Etcd), factory, logger)
	if err != nil {
		factory.Dispose()
		return nil, fmt.Errorf("etcd level watcher: %w", err)
	}
	return startWatching(factory, watcher, logger), nil
}

// addProvider 把构造失败转成构建错误
func addProvider(builder *logging.LoggingBuilder, name string, create func() (logging.LoggerProvider, error)) {
	provider, err := create()
	if err != nil {
		builder.AddError(fmt.Errorf("%s logger: %w", name, err))
		return
	}
	builder.AddProvider(provider)
}

// withFilter 表达式非空时用 filter.Provider 包装；编译失败时关闭 provider
func withFilter(provider logging.LoggerProvider, expression string) (logging.LoggerProvider, error) {
	if expression == "" {
		return provider, nil
	}
	filtered, err := filter.NewProvider(provider, expression)
	if err != nil {
		return nil, errors.Join(err, logging.CloseProvider(provider))
	}
	return filtered, nil
}

func reportDisposeError(provider logging.LoggerProvider, err error) {
	fmt.Fprintf(os.Stderr, "logkit: failed to close provider %T: %v\n", provider, err)
}

// watchedFactory 附带 etcd 级别监听的日志工厂
// 释放时先停止监听，再释放工厂
type watchedFactory struct {
	logging.LoggerFactory
	watcher *etcd.LevelWatcher
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func startWatching(factory logging.LoggerFactory, watcher *etcd.LevelWatcher, logger logging.Logger) *watchedFactory {
	ctx, cancel := context.WithCancel(context.Background())
	f := &watchedFactory{
		LoggerFactory: factory,
		watcher:       watcher,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		if err := f.watcher.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Error("etcd level watch stopped", logging.Field{Key: "error", Value: err})
		}
	}()

	return f
}

func (f *watchedFactory) Dispose() {
	f.once.Do(func() {
		f.cancel()
		<-f.done
		if err := f.watcher.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "logkit: failed to close etcd watcher: %v\n", err)
		}
	})
	f.LoggerFactory.Dispose()
}

func (f *watchedFactory) Close() error {
	f.Dispose()
	return nil
}

func consoleOptions(c config.ConsoleOptions) logging.ConsoleLoggerOptions {
	output := os.Stdout
	if c.Output == "stderr" {
		output = os.Stderr
	}
	return logging.ConsoleLoggerOptions{
		IncludeTimestamp: c.Timestamp,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      c.Color,
		Format:           c.Format,
		Output:           output,
		Async:            c.Async,
	}
}

func fileOptions(c config.FileOptions) logging.FileLoggerOptions {
	return logging.FileLoggerOptions{
		Path:           c.Path,
		MaxSize:        c.MaxSizeMB,
		MaxBackups:     c.MaxBackups,
		MaxAge:         c.MaxAgeDays,
		Compress:       c.Compress,
		RotateSchedule: c.RotateSchedule,
		Format:         c.Format,
		Async:          c.Async,
	}
}

func redisOptions(c config.RedisOptions) redis.Options {
	opts := *redis.NewDefaultOptions()
	opts.Addr = c.Addr
	opts.Password = c.Password
	opts.DB = c.DB
	if c.Stream != "" {
		opts.Stream = c.Stream
	}
	opts.MaxLen = c.MaxLen
	opts.Async = c.Async
	return opts
}

func mongoOptions(c config.MongoOptions) mongodb.Options {
	opts := *mongodb.NewDefaultOptions(c.Uri)
	if c.Database != "" {
		opts.Database = c.Database
	}
	if c.Collection != "" {
		opts.Collection = c.Collection
	}
	if c.Timeout > 0 {
		opts.Timeout = c.Timeout
	}
	opts.Async = c.Async
	return opts
}

func databaseOptions(c config.DatabaseOptions) database.Options {
	opts := *database.NewDefaultOptions(sqlite.Open(c.DSN))
	if c.Table != "" {
		opts.Table = c.Table
	}
	opts.Async = c.Async
	return opts
}

func etcdOptions(c config.EtcdOptions) etcd.Options {
	opts := *etcd.NewDefaultOptions(c.Key)
	opts.Endpoints = c.Endpoints
	opts.Username = c.Username
	opts.Password = c.Password
	return opts
}
