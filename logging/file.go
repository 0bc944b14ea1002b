package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path       string
	MaxSize    int // 兆字节，0 表示使用默认值 100MB
	MaxBackups int // 0 表示保留全部备份
	MaxAge     int // 备份保留天数，0 表示不按时间清理
	Compress   bool
	LocalTime  bool // 备份文件名使用本地时间
	// RotateSchedule cron 表达式，如 "@daily" 或 "0 0 * * *"，为空表示不定时轮转
	RotateSchedule string
	// Format 输出格式: "text"（默认）或 "json"
	Format     string
	Async      bool
	BufferSize int
	// ErrorHandler 处理写入/轮转错误，默认输出到 stderr
	ErrorHandler func(error)
}

// Validate 验证配置
func (o *FileLoggerOptions) Validate() error {
	if o.Path == "" {
		return errors.New("file logger path is required")
	}
	if o.MaxSize < 0 {
		return errors.New("file logger max size must be non-negative")
	}
	if o.MaxBackups < 0 {
		return errors.New("file logger max backups must be non-negative")
	}
	if o.MaxAge < 0 {
		return errors.New("file logger max age must be non-negative")
	}
	return nil
}

// FileLoggerProvider 文件日志提供者
// 按大小轮转、备份清理和压缩由 lumberjack 完成
type FileLoggerProvider struct {
	LevelSwitch
	path      string
	file      *logFile
	writer    EntryWriter
	async     *AsyncWriter
	scheduler *cron.Cron
	closeOnce sync.Once
	closeErr  error
}

// NewFileLoggerProvider 创建文件日志提供者
func NewFileLoggerProvider(options FileLoggerOptions) (*FileLoggerProvider, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if options.ErrorHandler == nil {
		options.ErrorHandler = func(err error) {
			fmt.Fprintf(os.Stderr, "FileLoggerProvider %v\n", err)
		}
	}
	if dir := filepath.Dir(options.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file := &logFile{
		out: &lumberjack.Logger{
			Filename:   options.Path,
			MaxSize:    options.MaxSize,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAge,
			Compress:   options.Compress,
			LocalTime:  options.LocalTime,
		},
	}

	var formatter Formatter = NewTextFormatter()
	if strings.EqualFold(options.Format, "json") {
		formatter = NewJsonFormatter()
	}

	p := &FileLoggerProvider{path: options.Path, file: file}
	p.SetMinimumLevel(LogLevelInfo)

	fw := NewFormatWriter(file, formatter)
	fw.SetErrorHandler(options.ErrorHandler)
	p.writer = fw

	if options.RotateSchedule != "" {
		p.scheduler = cron.New()
		_, err := p.scheduler.AddFunc(options.RotateSchedule, func() {
			if err := p.Rotate(); err != nil {
				options.ErrorHandler(fmt.Errorf("scheduled rotation: %w", err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid rotate schedule '%s': %w", options.RotateSchedule, err)
		}
		p.scheduler.Start()
	}

	if options.Async {
		p.async = NewAsyncWriter(fw, options.BufferSize)
		p.writer = p.async
	}

	return p, nil
}

func (p *FileLoggerProvider) CreateLogger(category string) Logger {
	return NewWriterLogger(category, &p.LevelSwitch, p.writer)
}

// Rotate 立即轮转日志文件
// 轮转失败时当前文件已关闭，下一次写入会重新打开
func (p *FileLoggerProvider) Rotate() error {
	return p.file.Rotate()
}

// Path 返回当前日志文件路径
func (p *FileLoggerProvider) Path() string {
	return p.path
}

// Close 停止定时轮转、刷新异步队列并关闭文件
func (p *FileLoggerProvider) Close() error {
	p.closeOnce.Do(func() {
		if p.scheduler != nil {
			<-p.scheduler.Stop().Done()
		}
		if p.async != nil {
			p.async.Close()
		}
		p.closeErr = p.file.Close()
	})
	return p.closeErr
}

// logFile 关闭后拒绝写入和轮转，避免 lumberjack 重新打开文件
type logFile struct {
	out    *lumberjack.Logger
	mu     sync.Mutex
	closed bool
}

func (f *logFile) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	return f.out.Write(data)
}

func (f *logFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	return f.out.Rotate()
}

func (f *logFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.out.Close()
}
