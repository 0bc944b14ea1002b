package filter

import (
	"errors"
	"sync"
	"testing"

	"github.com/gocrud/logkit/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProvider struct {
	logging.LevelSwitch
	mu      sync.Mutex
	entries []*logging.LogEntry
	closed  int
}

func newCaptureProvider() *captureProvider {
	p := &captureProvider{}
	p.SetMinimumLevel(logging.LogLevelTrace)
	return p
}

func (p *captureProvider) CreateLogger(category string) logging.Logger {
	return logging.NewWriterLogger(category, &p.LevelSwitch, logging.EntryWriterFunc(func(entry *logging.LogEntry) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.entries = append(p.entries, entry)
	}))
}

func (p *captureProvider) Close() error {
	p.closed++
	return nil
}

func (p *captureProvider) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestNewProvider_InvalidExpression(t *testing.T) {
	_, err := NewProvider(newCaptureProvider(), "")
	assert.Error(t, err)

	_, err = NewProvider(newCaptureProvider(), "level >=")
	assert.ErrorContains(t, err, "invalid filter expression")

	_, err = NewProvider(newCaptureProvider(), "category")
	assert.ErrorContains(t, err, "must return bool")

	_, err = NewProvider(nil, "true")
	assert.ErrorIs(t, err, logging.ErrNilProvider)
}

func TestProvider_FiltersByLevelAndCategory(t *testing.T) {
	inner := newCaptureProvider()
	p, err := NewProvider(inner, `level >= 3 || category.startsWith("payments")`)
	require.NoError(t, err)

	p.CreateLogger("orders").Info("orders info")
	p.CreateLogger("orders").Warn("orders warn")
	p.CreateLogger("payments.api").Debug("payments debug")

	assert.Equal(t, []string{"orders warn", "payments debug"}, inner.messages())
}

func TestProvider_FiltersByFields(t *testing.T) {
	inner := newCaptureProvider()
	p, err := NewProvider(inner, `"tenant" in fields && fields.tenant == "acme" && level_name != "trace"`)
	require.NoError(t, err)

	logger := p.CreateLogger("app")
	logger.Info("no tenant")
	logger.WithFields(logging.Field{Key: "tenant", Value: "acme"}).Info("scoped")
	logger.Info("other", logging.Field{Key: "tenant", Value: "globex"})
	logger.Trace("trace", logging.Field{Key: "tenant", Value: "acme"})
	logger.Info("direct", logging.Field{Key: "tenant", Value: "acme"}, logging.Field{Key: "err", Value: errors.New("x")})

	assert.Equal(t, []string{"scoped", "direct"}, inner.messages())
}

func TestProvider_ForwardsLevelAndClose(t *testing.T) {
	inner := newCaptureProvider()
	p, err := NewProvider(inner, "true")
	require.NoError(t, err)

	factory := logging.NewLoggerFactory(logging.WithMinimumLevel(logging.LogLevelWarn))
	require.NoError(t, factory.AddProvider(p))
	assert.Equal(t, logging.LogLevelWarn, inner.MinimumLevel())

	factory.Dispose()
	assert.Equal(t, 1, inner.closed)
}
