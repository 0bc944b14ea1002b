package logging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockProvider 不支持关闭的提供者
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateLogger(category string) Logger {
	args := m.Called(category)
	return args.Get(0).(Logger)
}

func (m *mockProvider) SetMinimumLevel(level LogLevel) {
	m.Called(level)
}

// mockDisposableProvider 支持关闭的提供者
type mockDisposableProvider struct {
	mockProvider
}

func (m *mockDisposableProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newMockProvider() *mockProvider {
	p := &mockProvider{}
	p.On("SetMinimumLevel", mock.Anything).Return()
	p.On("CreateLogger", mock.Anything).Return(NewNopLogger()).Maybe()
	return p
}

func newDisposableProvider() *mockDisposableProvider {
	p := &mockDisposableProvider{}
	p.On("SetMinimumLevel", mock.Anything).Return()
	p.On("CreateLogger", mock.Anything).Return(NewNopLogger()).Maybe()
	return p
}

// recordingProvider 记录收到的日志条目
type recordingProvider struct {
	LevelSwitch
	mu      sync.Mutex
	entries []LogEntry
	closed  atomic.Int32
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{}
}

func (p *recordingProvider) CreateLogger(category string) Logger {
	return NewWriterLogger(category, &p.LevelSwitch, EntryWriterFunc(func(entry *LogEntry) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.entries = append(p.entries, *entry)
	}))
}

func (p *recordingProvider) Close() error {
	p.closed.Add(1)
	return nil
}

func (p *recordingProvider) Entries() []LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LogEntry(nil), p.entries...)
}

func TestAddProvider_ThrowsAfterDisposed(t *testing.T) {
	factory := NewLoggerFactory()
	factory.Dispose()

	err := factory.AddProvider(newDisposableProvider())
	assert.ErrorIs(t, err, ErrObjectDisposed)
}

func TestCreateLogger_ThrowsAfterDisposed(t *testing.T) {
	factory := NewLoggerFactory()
	factory.Dispose()

	logger, err := factory.CreateLogger("d")
	assert.ErrorIs(t, err, ErrObjectDisposed)
	assert.Nil(t, logger)
}

func TestDispose_MultipleCallsNoop(t *testing.T) {
	factory := NewLoggerFactory().(*loggerFactory)
	assert.False(t, factory.checkDisposed())

	factory.Dispose()
	assert.True(t, factory.checkDisposed())

	factory.Dispose()
	assert.True(t, factory.checkDisposed())
}

func TestDispose_ProvidersAreDisposed(t *testing.T) {
	factory := NewLoggerFactory()
	provider1 := newDisposableProvider()
	provider1.On("Close").Return(nil)
	provider2 := newDisposableProvider()
	provider2.On("Close").Return(nil)

	require.NoError(t, factory.AddProvider(provider1))
	require.NoError(t, factory.AddProvider(provider2))

	factory.Dispose()
	factory.Dispose()

	provider1.AssertNumberOfCalls(t, "Close", 1)
	provider2.AssertNumberOfCalls(t, "Close", 1)
}

func TestDispose_InRegistrationOrder(t *testing.T) {
	factory := NewLoggerFactory()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		p := newDisposableProvider()
		p.On("Close").Run(func(mock.Arguments) {
			order = append(order, name)
		}).Return(nil)
		require.NoError(t, factory.AddProvider(p))
	}

	factory.Dispose()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestDispose_ThrowException_SwallowsException(t *testing.T) {
	factory := NewLoggerFactory()
	throwing := newDisposableProvider()
	throwing.On("Close").Panic("dispose failed")

	require.NoError(t, factory.AddProvider(throwing))

	assert.NotPanics(t, factory.Dispose)
	throwing.AssertNumberOfCalls(t, "Close", 1)
}

func TestDispose_FailingProviderDoesNotStopOthers(t *testing.T) {
	var reported []error
	factory := NewLoggerFactory(WithDisposeErrorHandler(func(provider LoggerProvider, err error) {
		reported = append(reported, err)
	}))

	panicking := newDisposableProvider()
	panicking.On("Close").Panic("boom")
	failing := newDisposableProvider()
	failing.On("Close").Return(errors.New("close failed"))
	normal := newDisposableProvider()
	normal.On("Close").Return(nil)

	require.NoError(t, factory.AddProvider(panicking))
	require.NoError(t, factory.AddProvider(failing))
	require.NoError(t, factory.AddProvider(normal))

	assert.NotPanics(t, factory.Dispose)

	panicking.AssertNumberOfCalls(t, "Close", 1)
	failing.AssertNumberOfCalls(t, "Close", 1)
	normal.AssertNumberOfCalls(t, "Close", 1)

	require.Len(t, reported, 2)
	assert.Contains(t, reported[0].Error(), "boom")
	assert.EqualError(t, reported[1], "close failed")
}

func TestDispose_PanickingErrorHandlerIsContained(t *testing.T) {
	factory := NewLoggerFactory(WithDisposeErrorHandler(func(LoggerProvider, error) {
		panic("handler failed")
	}))
	failing := newDisposableProvider()
	failing.On("Close").Return(errors.New("close failed"))
	normal := newDisposableProvider()
	normal.On("Close").Return(nil)

	require.NoError(t, factory.AddProvider(failing))
	require.NoError(t, factory.AddProvider(normal))

	assert.NotPanics(t, factory.Dispose)
	normal.AssertNumberOfCalls(t, "Close", 1)
}

func TestDispose_NoProviders(t *testing.T) {
	factory := NewLoggerFactory()
	assert.NotPanics(t, func() {
		factory.Dispose()
		factory.Dispose()
	})
	assert.NoError(t, factory.Close())
}

func TestDispose_NonDisposableProviderIsSkipped(t *testing.T) {
	factory := NewLoggerFactory()
	plain := newMockProvider()
	disposable := newDisposableProvider()
	disposable.On("Close").Return(nil)

	require.NoError(t, factory.AddProvider(plain))
	require.NoError(t, factory.AddProvider(disposable))

	assert.NotPanics(t, factory.Dispose)
	disposable.AssertNumberOfCalls(t, "Close", 1)
	plain.AssertNotCalled(t, "Close")
}

func TestDispose_DuplicateRegistrationClosedPerRegistration(t *testing.T) {
	factory := NewLoggerFactory()
	provider := newRecordingProvider()

	require.NoError(t, factory.AddProvider(provider))
	require.NoError(t, factory.AddProvider(provider))

	factory.Dispose()
	assert.Equal(t, int32(2), provider.closed.Load())
}

func TestDispose_ConcurrentCallsCloseOnce(t *testing.T) {
	factory := NewLoggerFactory()
	providers := make([]*recordingProvider, 5)
	for i := range providers {
		providers[i] = newRecordingProvider()
		require.NoError(t, factory.AddProvider(providers[i]))
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			factory.Dispose()
		}()
	}
	wg.Wait()

	for _, p := range providers {
		assert.Equal(t, int32(1), p.closed.Load())
	}
	assert.ErrorIs(t, factory.AddProvider(newRecordingProvider()), ErrObjectDisposed)
}

// reentrantProvider 在 Close 中回调工厂
type reentrantProvider struct {
	recordingProvider
	factory LoggerFactory
	err     error
}

func (p *reentrantProvider) Close() error {
	_, p.err = p.factory.CreateLogger("during-close")
	return nil
}

func TestDispose_ProviderCallingBackIntoFactory(t *testing.T) {
	factory := NewLoggerFactory()
	provider := &reentrantProvider{factory: factory}
	require.NoError(t, factory.AddProvider(provider))

	factory.Dispose()
	assert.ErrorIs(t, provider.err, ErrObjectDisposed)
}

func TestAddProvider_Nil(t *testing.T) {
	factory := NewLoggerFactory()
	assert.ErrorIs(t, factory.AddProvider(nil), ErrNilProvider)
}

func TestAddProvider_PushesMinimumLevel(t *testing.T) {
	factory := NewLoggerFactory(WithMinimumLevel(LogLevelWarn))
	provider := newMockProvider()

	require.NoError(t, factory.AddProvider(provider))
	provider.AssertCalled(t, "SetMinimumLevel", LogLevelWarn)

	factory.SetMinimumLevel(LogLevelDebug)
	provider.AssertCalled(t, "SetMinimumLevel", LogLevelDebug)
	assert.Equal(t, LogLevelDebug, factory.MinimumLevel())
}

func TestCreateLogger_FansOutToProviders(t *testing.T) {
	factory := NewLoggerFactory()
	defer factory.Dispose()

	p1 := newRecordingProvider()
	p2 := newRecordingProvider()
	require.NoError(t, factory.AddProvider(p1))
	require.NoError(t, factory.AddProvider(p2))

	logger, err := factory.CreateLogger("Orders")
	require.NoError(t, err)

	logger.Info("created", Field{Key: "id", Value: 7})

	for _, p := range []*recordingProvider{p1, p2} {
		entries := p.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "Orders", entries[0].Category)
		assert.Equal(t, "created", entries[0].Message)
		assert.Equal(t, []Field{{Key: "id", Value: 7}}, entries[0].Fields)
	}
}

func TestCreateLogger_ObservesLaterProviders(t *testing.T) {
	factory := NewLoggerFactory()
	defer factory.Dispose()

	logger, err := factory.CreateLogger("Live")
	require.NoError(t, err)
	derived := logger.WithFields(Field{Key: "request", Value: "r-1"})

	logger.Info("before")

	late := newRecordingProvider()
	require.NoError(t, factory.AddProvider(late))

	logger.Info("after")
	derived.Warn("derived")

	entries := late.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "after", entries[0].Message)
	assert.Equal(t, "derived", entries[1].Message)
	assert.Equal(t, []Field{{Key: "request", Value: "r-1"}}, entries[1].Fields)
}

func TestCreateLogger_NoopAfterDispose(t *testing.T) {
	factory := NewLoggerFactory()
	provider := newRecordingProvider()
	require.NoError(t, factory.AddProvider(provider))

	logger, err := factory.CreateLogger("Closing")
	require.NoError(t, err)

	logger.Info("one")
	factory.Dispose()
	logger.Info("two")
	assert.NotPanics(t, func() {
		logger.WithCategory("Other").Info("three")
	})

	entries := provider.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "one", entries[0].Message)
}

func TestCreateLogger_FiltersBelowMinimumLevel(t *testing.T) {
	factory := NewLoggerFactory(WithMinimumLevel(LogLevelWarn))
	defer factory.Dispose()

	provider := newRecordingProvider()
	require.NoError(t, factory.AddProvider(provider))

	logger, err := factory.CreateLogger("Filter")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	assert.Len(t, provider.Entries(), 2)
}

func TestCompositeLogger_WithCategory(t *testing.T) {
	factory := NewLoggerFactory()
	defer factory.Dispose()

	provider := newRecordingProvider()
	require.NoError(t, factory.AddProvider(provider))

	logger, err := factory.CreateLogger("A")
	require.NoError(t, err)

	logger.WithFields(Field{Key: "k", Value: "v"}).WithCategory("B").Info("moved")

	entries := provider.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].Category)
	assert.Equal(t, []Field{{Key: "k", Value: "v"}}, entries[0].Fields)
}

func TestCompositeLogger_FatalDisposesFactory(t *testing.T) {
	var code int
	exitFunc = func(c int) { code = c }
	defer func() { exitFunc = defaultExit }()

	factory := NewLoggerFactory()
	provider := newRecordingProvider()
	require.NoError(t, factory.AddProvider(provider))

	logger, err := factory.CreateLogger("Fatal")
	require.NoError(t, err)

	logger.Fatal("fatal")

	assert.Equal(t, 1, code)
	assert.Len(t, provider.Entries(), 1)
	assert.Equal(t, int32(1), provider.closed.Load())
	assert.True(t, factory.(*loggerFactory).checkDisposed())
}

var defaultExit = exitFunc
