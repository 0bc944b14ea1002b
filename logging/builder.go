package logging

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	factoryOpts  []FactoryOption
	errors       []error
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		providers:    make([]LoggerProvider, 0),
		minimumLevel: LogLevelInfo,
		errors:       make([]error, 0),
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// WithFactoryOptions 追加工厂选项（如 WithDisposeErrorHandler）
func (b *LoggingBuilder) WithFactoryOptions(opts ...FactoryOption) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.factoryOpts = append(b.factoryOpts, opts...)
	return b
}

// AddProvider 添加日志提供者
// Build 之后提供者归工厂所有；Build 失败时已添加的提供者会被关闭
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if provider == nil {
		b.errors = append(b.errors, ErrNilProvider)
		return b
	}
	b.providers = append(b.providers, provider)
	return b
}

// AddError 记录一个构建错误，Build 时返回
func (b *LoggingBuilder) AddError(err error) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, err)
	return b
}

// AddConsole 添加控制台日志
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddFile 添加文件日志
func (b *LoggingBuilder) AddFile(path string, options ...FileLoggerOptions) *LoggingBuilder {
	opts := FileLoggerOptions{
		Path:       path,
		MaxSize:    100, // MB
		MaxBackups: 10,
	}
	if len(options) > 0 {
		opts = options[0]
		opts.Path = path
	}

	provider, err := NewFileLoggerProvider(opts)
	if err != nil {
		return b.AddError(fmt.Errorf("file logger '%s': %w", path, err))
	}
	return b.AddProvider(provider)
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() (LoggerFactory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.errors) > 0 {
		errs := append(append([]error(nil), b.errors...), closeAll(b.providers)...)
		return nil, fmt.Errorf("logging configuration errors: %w", errors.Join(errs...))
	}

	opts := append([]FactoryOption{WithMinimumLevel(b.minimumLevel)}, b.factoryOpts...)
	factory := NewLoggerFactory(opts...)

	for _, provider := range b.providers {
		// 新建的工厂不会处于已释放状态
		_ = factory.AddProvider(provider)
	}

	return factory, nil
}

// closeAll 关闭尚未交给工厂的提供者，单个提供者失败不影响其余提供者
func closeAll(providers []LoggerProvider) []error {
	var errs []error
	for _, provider := range providers {
		if err := CloseProvider(provider); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", provider, err))
		}
	}
	return errs
}
