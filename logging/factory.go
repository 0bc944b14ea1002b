package logging

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

var (
	// ErrObjectDisposed 工厂已释放后继续使用
	ErrObjectDisposed = errors.New("logging: logger factory has been disposed")
	// ErrNilProvider 注册了空的提供者
	ErrNilProvider = errors.New("logging: provider is nil")
)

// LoggerFactory 日志工厂接口
// 工厂拥有注册进来的提供者，Dispose 时负责关闭实现了 io.Closer 的提供者
type LoggerFactory interface {
	// CreateLogger 按类别创建 Logger，工厂释放后返回 ErrObjectDisposed
	CreateLogger(category string) (Logger, error)
	// AddProvider 注册提供者，工厂释放后返回 ErrObjectDisposed
	AddProvider(provider LoggerProvider) error
	SetMinimumLevel(level LogLevel)
	MinimumLevel() LogLevel
	// Dispose 释放工厂及所有提供者，可重复调用
	Dispose()
	// Close 等同于 Dispose，总是返回 nil
	Close() error
}

// FactoryOption 工厂选项
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	minimumLevel   LogLevel
	onDisposeError func(provider LoggerProvider, err error)
}

// WithMinimumLevel 设置初始最小日志级别
func WithMinimumLevel(level LogLevel) FactoryOption {
	return func(o *factoryOptions) {
		o.minimumLevel = level
	}
}

// WithDisposeErrorHandler 观察提供者关闭时的错误
// 错误只会交给 handler，不会从 Dispose 返回
func WithDisposeErrorHandler(handler func(provider LoggerProvider, err error)) FactoryOption {
	return func(o *factoryOptions) {
		o.onDisposeError = handler
	}
}

// loggerFactory 日志工厂实现
type loggerFactory struct {
	providers      []LoggerProvider
	loggers        map[string]*loggerState
	level          *LevelSwitch
	disposed       bool
	onDisposeError func(provider LoggerProvider, err error)
	mu             sync.RWMutex
	// disposeMu 串行化 Dispose，保证并发调用时每个提供者只关闭一次
	disposeMu sync.Mutex
}

// NewLoggerFactory 创建日志工厂
func NewLoggerFactory(opts ...FactoryOption) LoggerFactory {
	options := &factoryOptions{
		minimumLevel: LogLevelInfo,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &loggerFactory{
		providers:      make([]LoggerProvider, 0),
		loggers:        make(map[string]*loggerState),
		level:          NewLevelSwitch(options.minimumLevel),
		onDisposeError: options.onDisposeError,
	}
}

func (f *loggerFactory) CreateLogger(category string) (Logger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed {
		return nil, ErrObjectDisposed
	}

	// 同一类别复用同一个状态，后续注册的提供者会追加进来
	state, ok := f.loggers[category]
	if !ok {
		sinks := make([]Logger, 0, len(f.providers))
		for _, provider := range f.providers {
			sinks = append(sinks, provider.CreateLogger(category))
		}
		state = newLoggerState(f, category, sinks)
		f.loggers[category] = state
	}

	return &compositeLogger{state: state}, nil
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed {
		return ErrObjectDisposed
	}
	if provider == nil {
		return ErrNilProvider
	}

	provider.SetMinimumLevel(f.level.MinimumLevel())
	f.providers = append(f.providers, provider)

	for category, state := range f.loggers {
		state.attach(provider.CreateLogger(category))
	}
	return nil
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	f.level.SetMinimumLevel(level)
	for _, provider := range f.providers {
		provider.SetMinimumLevel(level)
	}
}

func (f *loggerFactory) MinimumLevel() LogLevel {
	return f.level.MinimumLevel()
}

func (f *loggerFactory) Dispose() {
	f.disposeMu.Lock()
	defer f.disposeMu.Unlock()

	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return
	}
	f.disposed = true
	providers := f.providers
	f.providers = nil
	for _, state := range f.loggers {
		state.detach()
	}
	f.loggers = nil
	f.mu.Unlock()

	// 关闭时不持有状态锁，提供者在 Close 中回调工厂只会得到 ErrObjectDisposed
	for _, provider := range providers {
		if err := CloseProvider(provider); err != nil {
			f.reportDisposeError(provider, err)
		}
	}
}

func (f *loggerFactory) Close() error {
	f.Dispose()
	return nil
}

// checkDisposed 返回工厂是否已释放
func (f *loggerFactory) checkDisposed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.disposed
}

// CloseProvider 关闭实现了 io.Closer 的提供者，Close 中的 panic 转换为错误返回
// 未实现 io.Closer 的提供者直接返回 nil
func CloseProvider(provider LoggerProvider) (err error) {
	closer, ok := provider.(io.Closer)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("logging: provider panicked during close: %v", r)
		}
	}()
	return closer.Close()
}

func (f *loggerFactory) reportDisposeError(provider LoggerProvider, err error) {
	if f.onDisposeError == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	f.onDisposeError(provider, err)
}

// loggerState 同一类别所有句柄共享的状态
type loggerState struct {
	factory  *loggerFactory
	category string
	sinks    atomic.Pointer[[]Logger]
}

func newLoggerState(factory *loggerFactory, category string, sinks []Logger) *loggerState {
	s := &loggerState{
		factory:  factory,
		category: category,
	}
	s.sinks.Store(&sinks)
	return s
}

// attach 追加一个提供者的 Logger（写时复制，调用方持有工厂写锁）
func (s *loggerState) attach(sink Logger) {
	current := *s.sinks.Load()
	next := make([]Logger, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, sink)
	s.sinks.Store(&next)
}

// detach 断开所有提供者，之后的日志调用成为空操作
func (s *loggerState) detach() {
	s.sinks.Store(&[]Logger{})
}

// compositeLogger 组合日志记录器（将日志发送到多个提供者）
type compositeLogger struct {
	state  *loggerState
	fields []Field
}

func (l *compositeLogger) Trace(msg string, fields ...Field) {
	l.Log(LogLevelTrace, msg, fields...)
}

func (l *compositeLogger) Debug(msg string, fields ...Field) {
	l.Log(LogLevelDebug, msg, fields...)
}

func (l *compositeLogger) Info(msg string, fields ...Field) {
	l.Log(LogLevelInfo, msg, fields...)
}

func (l *compositeLogger) Warn(msg string, fields ...Field) {
	l.Log(LogLevelWarn, msg, fields...)
}

func (l *compositeLogger) Error(msg string, fields ...Field) {
	l.Log(LogLevelError, msg, fields...)
}

// Fatal 记录日志后释放工厂（刷新异步写入器、关闭文件），然后退出进程
func (l *compositeLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	l.state.factory.Dispose()
	exitFunc(1)
}

func (l *compositeLogger) Log(level LogLevel, msg string, fields ...Field) {
	if !l.state.factory.level.Enabled(level) {
		return
	}

	allFields := mergeFields(l.fields, fields)
	for _, sink := range *l.state.sinks.Load() {
		sink.Log(level, msg, allFields...)
	}
}

func (l *compositeLogger) WithFields(fields ...Field) Logger {
	return &compositeLogger{
		state:  l.state,
		fields: mergeFields(l.fields, fields),
	}
}

// WithCategory 通过工厂解析新类别；工厂已释放时返回空 Logger
func (l *compositeLogger) WithCategory(category string) Logger {
	logger, err := l.state.factory.CreateLogger(category)
	if err != nil {
		return NewNopLogger()
	}
	if len(l.fields) == 0 {
		return logger
	}
	return logger.WithFields(l.fields...)
}
