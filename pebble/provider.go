package pebblestore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/gocrud/logkit/logging"
)

// ErrClosed 提供者关闭后继续写入
var ErrClosed = errors.New("pebblestore: provider is closed")

var keyPrefix = []byte("log/")

// Options Pebble 日志提供者配置选项
type Options struct {
	Dir           string
	Sync          bool // 每次写入都同步 WAL
	PebbleOptions *pebble.Options

	Async      bool
	BufferSize int

	ErrorHandler func(error)
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Dir == "" {
		return fmt.Errorf("pebble data dir is required")
	}
	return nil
}

// Record 保存的日志记录
type Record struct {
	Time     time.Time      `json:"time"`
	Level    string         `json:"level"`
	Category string         `json:"category,omitempty"`
	Message  string         `json:"msg"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Provider 写入 Pebble 的日志提供者
type Provider struct {
	logging.LevelSwitch
	db        *pebble.DB
	owned     bool
	options   Options
	writeOpts *pebble.WriteOptions
	seq       atomic.Uint64
	writer    logging.EntryWriter
	async     *logging.AsyncWriter

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// NewProvider 打开（或创建）数据库，数据库归提供者所有
func NewProvider(opts Options) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	db, err := pebble.Open(opts.Dir, po)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at '%s': %w", opts.Dir, err)
	}
	return newProvider(db, true, opts), nil
}

// NewProviderWithDB 使用已打开的数据库，数据库不会被关闭
func NewProviderWithDB(db *pebble.DB, opts Options) (*Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble db is required")
	}
	return newProvider(db, false, opts), nil
}

func newProvider(db *pebble.DB, owned bool, opts Options) *Provider {
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = func(err error) {
			fmt.Fprintf(os.Stderr, "pebble log provider: %v\n", err)
		}
	}

	p := &Provider{
		db:        db,
		owned:     owned,
		options:   opts,
		writeOpts: pebble.NoSync,
	}
	if opts.Sync {
		p.writeOpts = pebble.Sync
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

func (p *Provider) write(entry *logging.LogEntry) {
	value, err := json.Marshal(toRecord(entry))
	if err != nil {
		p.options.ErrorHandler(fmt.Errorf("encode entry: %w", err))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.options.ErrorHandler(ErrClosed)
		return
	}

	key := encodeKey(entry.Time, p.seq.Add(1))
	if err := p.db.Set(key, value, p.writeOpts); err != nil {
		p.options.ErrorHandler(fmt.Errorf("set entry: %w", err))
	}
}

// Read 按时间顺序读取 [from, to) 范围内的记录，fn 返回 false 时停止
// from/to 为零值表示不限制
func (p *Provider) Read(from, to time.Time, fn func(Record) bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	iterOpts := &pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: prefixEnd(keyPrefix),
	}
	if !from.IsZero() {
		iterOpts.LowerBound = encodeKey(from, 0)
	}
	if !to.IsZero() {
		iterOpts.UpperBound = encodeKey(to, 0)
	}

	it, err := p.db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("create iterator: %w", err)
	}
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		var record Record
		if err := json.Unmarshal(it.Value(), &record); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if !fn(record) {
			break
		}
	}
	return it.Error()
}

// Close 刷新异步队列；数据库归提供者所有时关闭数据库
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.async != nil {
			p.async.Close()
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		if p.owned {
			p.closeErr = p.db.Close()
		}
	})
	return p.closeErr
}

func toRecord(entry *logging.LogEntry) Record {
	return Record{
		Time:     entry.Time.UTC(),
		Level:    entry.Level.String(),
		Category: entry.Category,
		Message:  entry.Message,
		Fields:   entry.FieldMap(),
	}
}

func encodeKey(t time.Time, seq uint64) []byte {
	key := make([]byte, 0, len(keyPrefix)+16)
	key = append(key, keyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(t.UnixNano()))
	return binary.BigEndian.AppendUint64(key, seq)
}

// prefixEnd 返回大于所有以 prefix 开头的键的最小键
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
