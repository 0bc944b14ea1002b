package logging

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel 解析日志级别字符串（不区分大小写）
// 同时接受 "warning" 作为 "warn" 的别名
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "info", "information":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "fatal", "critical":
		return LogLevelFatal, nil
	default:
		return LogLevelInfo, fmt.Errorf("logging: unknown log level %q", s)
	}
}

// LevelSwitch 可并发读写的最小日志级别
// 嵌入到 Provider 中即可获得 SetMinimumLevel 实现
type LevelSwitch struct {
	level atomic.Int32
}

// NewLevelSwitch 创建级别开关
func NewLevelSwitch(level LogLevel) *LevelSwitch {
	s := &LevelSwitch{}
	s.SetMinimumLevel(level)
	return s
}

// SetMinimumLevel 设置最小日志级别
func (s *LevelSwitch) SetMinimumLevel(level LogLevel) {
	s.level.Store(int32(level))
}

// MinimumLevel 返回当前最小日志级别
func (s *LevelSwitch) MinimumLevel() LogLevel {
	return LogLevel(s.level.Load())
}

// Enabled 判断指定级别是否会被记录
func (s *LevelSwitch) Enabled(level LogLevel) bool {
	return level >= s.MinimumLevel()
}
