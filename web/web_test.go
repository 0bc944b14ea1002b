package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/logkit/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T, buf *bytes.Buffer) logging.LoggerFactory {
	t.Helper()
	factory, err := logging.NewLoggingBuilder().
		SetMinimumLevel(logging.LogLevelTrace).
		AddConsole(logging.ConsoleLoggerOptions{Output: buf}).
		Build()
	require.NoError(t, err)
	t.Cleanup(factory.Dispose)
	return factory
}

func TestRequestLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	factory := newTestFactory(t, &buf)
	logger, err := factory.CreateLogger("Http")
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestLogging(logger))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INFO [Http] HTTP request")
	assert.Contains(t, lines[0], "path=/ok?x=1")
	assert.Contains(t, lines[0], "status=200")
	assert.Contains(t, lines[1], "ERROR [Http] HTTP request")
	assert.Contains(t, lines[1], "status=500")
}

func TestMountAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	factory := newTestFactory(t, &buf)

	r := gin.New()
	MountAdmin(r, factory)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logging/level", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"TRACE"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/logging/level", strings.NewReader(`{"level":"warn"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"WARN"}`, w.Body.String())
	assert.Equal(t, logging.LogLevelWarn, factory.MinimumLevel())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/logging/level", strings.NewReader(`{"level":"loud"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/logging/level", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, logging.LogLevelWarn, factory.MinimumLevel())
}
