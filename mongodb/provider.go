package mongodb

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gocrud/logkit/logging"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Provider 将日志条目写入 MongoDB 集合的日志提供者
type Provider struct {
	logging.LevelSwitch
	client     *mongo.Client
	collection *mongo.Collection
	owned      bool
	options    Options
	writer     logging.EntryWriter
	async      *logging.AsyncWriter
	closeOnce  sync.Once
	closeErr   error
}

// NewProvider 根据配置创建 MongoDB 客户端和日志提供者
// 连接是惰性的，首次写入时才真正建立
func NewProvider(opts Options) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(opts.Uri)
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	clientOpts.SetConnectTimeout(opts.Timeout)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	return newProvider(client, true, opts), nil
}

// NewProviderWithClient 使用已有客户端创建提供者，客户端不会被断开
func NewProviderWithClient(client *mongo.Client, opts Options) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newProvider(client, false, opts), nil
}

func newProvider(client *mongo.Client, owned bool, opts Options) *Provider {
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = func(err error) {
			fmt.Fprintf(os.Stderr, "mongo log provider: %v\n", err)
		}
	}

	p := &Provider{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		owned:      owned,
		options:    opts,
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

// Collection 返回日志集合
func (p *Provider) Collection() *mongo.Collection {
	return p.collection
}

func (p *Provider) write(entry *logging.LogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), p.options.Timeout)
	defer cancel()

	if _, err := p.collection.InsertOne(ctx, toDocument(entry)); err != nil {
		p.options.ErrorHandler(fmt.Errorf("insert into '%s.%s': %w", p.options.Database, p.options.Collection, err))
	}
}

// Close 刷新异步队列；客户端归提供者所有时断开连接
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.async != nil {
			p.async.Close()
		}
		if p.owned {
			ctx, cancel := context.WithTimeout(context.Background(), p.options.Timeout)
			defer cancel()
			p.closeErr = p.client.Disconnect(ctx)
		}
	})
	return p.closeErr
}

// toDocument 将日志条目转换为 BSON 文档
func toDocument(entry *logging.LogEntry) bson.D {
	doc := bson.D{
		{Key: "time", Value: entry.Time},
		{Key: "level", Value: entry.Level.String()},
		{Key: "category", Value: entry.Category},
		{Key: "msg", Value: entry.Message},
	}
	if fields := entry.FieldMap(); fields != nil {
		doc = append(doc, bson.E{Key: "fields", Value: bson.M(fields)})
	}
	return doc
}
