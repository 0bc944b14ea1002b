package etcd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/logkit/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// LevelSetter 可以调整最小日志级别的对象，通常是 logging.LoggerFactory
type LevelSetter interface {
	SetMinimumLevel(level logging.LogLevel)
}

// Options etcd 级别监听配置选项
type Options struct {
	Endpoints   []string      // etcd 服务器地址列表
	DialTimeout time.Duration // 连接超时时间
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Key         string        // 保存最小日志级别的键
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(key string) *Options {
	return &Options{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
		Key:         key,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	if o.Key == "" {
		return fmt.Errorf("etcd level key is required")
	}
	return nil
}

// LevelWatcher 监听 etcd 中的日志级别并应用到目标
type LevelWatcher struct {
	client    *clientv3.Client
	owned     bool
	key       string
	target    LevelSetter
	logger    logging.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewLevelWatcher 创建 etcd 客户端和级别监听器，客户端归监听器所有
func NewLevelWatcher(opts Options, target LevelSetter, logger logging.Logger) (*LevelWatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	config := clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
	}
	if opts.Username != "" {
		config.Username = opts.Username
		config.Password = opts.Password
	}

	client, err := clientv3.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	w, err := NewLevelWatcherWithClient(client, opts.Key, target, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	w.owned = true
	return w, nil
}

// NewLevelWatcherWithClient 使用已有客户端创建监听器，客户端不会被关闭
func NewLevelWatcherWithClient(client *clientv3.Client, key string, target LevelSetter, logger logging.Logger) (*LevelWatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("etcd client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("etcd level key is required")
	}
	if target == nil {
		return nil, fmt.Errorf("level target is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &LevelWatcher{
		client: client,
		key:    key,
		target: target,
		logger: logger,
	}, nil
}

// Sync 读取当前值并应用，键不存在时保持原级别
func (w *LevelWatcher) Sync(ctx context.Context) error {
	resp, err := w.client.Get(ctx, w.key)
	if err != nil {
		return fmt.Errorf("failed to read level key '%s': %w", w.key, err)
	}
	if len(resp.Kvs) > 0 {
		w.apply(resp.Kvs[0].Value)
	}
	return nil
}

// Watch 同步一次后持续监听，直到 ctx 取消
func (w *LevelWatcher) Watch(ctx context.Context) error {
	if err := w.Sync(ctx); err != nil {
		return err
	}

	for resp := range w.client.Watch(ctx, w.key) {
		if err := resp.Err(); err != nil {
			return fmt.Errorf("watch level key '%s': %w", w.key, err)
		}
		for _, ev := range resp.Events {
			// 删除键时保持当前级别
			if ev.Type == clientv3.EventTypePut {
				w.apply(ev.Kv.Value)
			}
		}
	}
	return ctx.Err()
}

func (w *LevelWatcher) apply(value []byte) {
	level, err := logging.ParseLogLevel(string(value))
	if err != nil {
		w.logger.Warn("ignoring invalid log level from etcd",
			logging.Field{Key: "key", Value: w.key},
			logging.Field{Key: "value", Value: string(value)})
		return
	}

	w.target.SetMinimumLevel(level)
	w.logger.Info("minimum log level updated",
		logging.Field{Key: "key", Value: w.key},
		logging.Field{Key: "level", Value: level.String()})
}

// Close 关闭自有的 etcd 客户端
func (w *LevelWatcher) Close() error {
	w.closeOnce.Do(func() {
		if w.owned {
			w.closeErr = w.client.Close()
		}
	})
	return w.closeErr
}
