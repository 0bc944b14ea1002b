package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocrud/logkit/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Provider 将日志条目写入 Redis Stream 的日志提供者
type Provider struct {
	logging.LevelSwitch
	client    *redis.Client
	owned     bool
	options   Options
	writer    logging.EntryWriter
	async     *logging.AsyncWriter
	closeOnce sync.Once
	closeErr  error
}

// NewProvider 根据配置创建 Redis 客户端和日志提供者
// 客户端归提供者所有，Close 时一并关闭
func NewProvider(opts Options) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		MaxRetries:   opts.MaxRetries,
	})

	return newProvider(client, true, opts), nil
}

// NewProviderWithClient 使用已有客户端创建提供者，客户端不会被关闭
func NewProviderWithClient(client *redis.Client, opts Options) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newProvider(client, false, opts), nil
}

func newProvider(client *redis.Client, owned bool, opts Options) *Provider {
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = func(err error) {
			fmt.Fprintf(os.Stderr, "redis log provider: %v\n", err)
		}
	}

	p := &Provider{
		client:  client,
		owned:   owned,
		options: opts,
	}
	p.SetMinimumLevel(logging.LogLevelInfo)

	p.writer = logging.EntryWriterFunc(p.write)
	if opts.Async {
		p.async = logging.NewAsyncWriter(p.writer, opts.BufferSize)
		p.writer = p.async
	}
	return p
}

func (p *Provider) CreateLogger(category string) logging.Logger {
	return logging.NewWriterLogger(category, &p.LevelSwitch, p.writer)
}

// Client 返回底层客户端
func (p *Provider) Client() *redis.Client {
	return p.client
}

func (p *Provider) write(entry *logging.LogEntry) {
	values, err := streamValues(entry)
	if err != nil {
		p.options.ErrorHandler(fmt.Errorf("encode entry: %w", err))
		return
	}

	args := &redis.XAddArgs{
		Stream: p.options.Stream,
		Values: values,
	}
	if p.options.MaxLen > 0 {
		args.MaxLen = p.options.MaxLen
		args.Approx = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.options.WriteTimeout)
	defer cancel()

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		p.options.ErrorHandler(fmt.Errorf("xadd to stream '%s': %w", p.options.Stream, err))
	}
}

// Close 刷新异步队列；客户端归提供者所有时关闭客户端
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.async != nil {
			p.async.Close()
		}
		if p.owned {
			p.closeErr = p.client.Close()
		}
	})
	return p.closeErr
}

// streamValues 将日志条目转换为 Stream 字段
func streamValues(entry *logging.LogEntry) (map[string]any, error) {
	values := map[string]any{
		"id":       uuid.NewString(),
		"time":     entry.Time.UTC().Format(time.RFC3339Nano),
		"level":    entry.Level.String(),
		"category": entry.Category,
		"msg":      entry.Message,
	}

	if fields := entry.FieldMap(); fields != nil {
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		values["fields"] = string(data)
	}

	return values, nil
}
