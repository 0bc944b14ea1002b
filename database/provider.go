package database

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocrud/logkit/logging"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogRecord 日志表记录
type LogRecord struct {
	ID       uint      `gorm:"primaryKey"`
	EventID  string    `gorm:"size:36;uniqueIndex"`
	Time     time.Time `gorm:"index"`
	Level    string    `gorm:"size:8;index"`
	Category string    `gorm:"size:255;index"`
	Message  string
	Fields   string // JSON
}

// Provider 通过 GORM 将日志写入数据库表的日志提供者
type Provider struct {
	logging.LevelSwitch
	db        *gorm.DB
	owned     bool
	options   Options
	writer    logging.EntryWriter
	async     *logging.AsyncWriter
	closeOnce sync.Once
	closeErr  error
}

// NewProvider 打开数据库连接并创建日志提供者，连接归提供者所有
func NewProvider(opts Options) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(opts.Dialector, opts.GormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	p, err := newProvider(db, true, opts)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return p, nil
}

// NewProviderWithDB 使用已有连接创建提供者，连接不会被关闭
func NewProviderWithDB(db *gorm.DB, opts Options) (*Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db is required")
	}
	if opts.Table == "" {
		return nil, fmt.Errorf("database log table is required")
	}
	return newProvider(db, false, opts)
}

func newProvider(db *gorm.DB, owned bool, opts Options) (*Provider, error) {
	if opts.AutoMigrate {
		if err := db.Table(opts.Table).AutoMigrate(&LogRecord{}); err != nil {
			return nil, fmt.Errorf("auto migrate log table '%s' failed: %w", opts.Table, err)
		}
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = func(err error) {
			fmt.Fprintf(os.Stderr, "database log provider: %v\n", err)
		}
	}

	p := &Provider{
		db:      db,
		owned:   owned,
		options: opts,
	}
	p.SetMinimumLevel(logging.LogLevelInfo)

	p.writer = logging.EntryWriterFunc(p.write)
	if opts.Async {
		p.async = logging.NewAsyncWriter(p.writer, opts.BufferSize)
		p.writer = p.async
	}
	return p, nil
}

func (p *Provider) CreateLogger(category string) logging.Logger {
	return logging.NewWriterLogger(category, &p.LevelSwitch, p.writer)
}

// DB 返回指向日志表的 gorm 会话
func (p *Provider) DB() *gorm.DB {
	return p.db.Table(p.options.Table)
}

func (p *Provider) write(entry *logging.LogEntry) {
	record, err := toRecord(entry)
	if err != nil {
		p.options.ErrorHandler(fmt.Errorf("encode entry: %w", err))
		return
	}
	if err := p.db.Table(p.options.Table).Create(record).Error; err != nil {
		p.options.ErrorHandler(fmt.Errorf("insert into '%s': %w", p.options.Table, err))
	}
}

// Close 刷新异步队列；连接归提供者所有时关闭连接
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.async != nil {
			p.async.Close()
		}
		if !p.owned {
			return
		}
		sqlDB, err := p.db.DB()
		if err != nil {
			p.closeErr = fmt.Errorf("failed to get sql.DB: %w", err)
			return
		}
		p.closeErr = sqlDB.Close()
	})
	return p.closeErr
}

func toRecord(entry *logging.LogEntry) (*LogRecord, error) {
	record := &LogRecord{
		EventID:  uuid.NewString(),
		Time:     entry.Time,
		Level:    entry.Level.String(),
		Category: entry.Category,
		Message:  entry.Message,
	}
	if fields := entry.FieldMap(); fields != nil {
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		record.Fields = string(data)
	}
	return record, nil
}
