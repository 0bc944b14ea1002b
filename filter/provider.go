// Package filter 用 CEL 表达式过滤另一个提供者的日志
//
// 表达式可以使用的变量:
//
//	level      int     日志级别（0=trace ... 5=fatal）
//	level_name string  级别名称，如 "info"
//	category   string  日志类别
//	msg        string  日志消息
//	fields     map     结构化字段
//
// 例如 `level >= 3 || category.startsWith("payments")`
package filter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocrud/logkit/logging"
	"github.com/google/cel-go/cel"
)

// Provider 按表达式过滤日志后转发给内部提供者
// 内部提供者归 Provider 所有，Close 时一并关闭
type Provider struct {
	inner      logging.LoggerProvider
	expression string
	program    cel.Program
}

// NewProvider 编译表达式并包装内部提供者
func NewProvider(inner logging.LoggerProvider, expression string) (*Provider, error) {
	if inner == nil {
		return nil, logging.ErrNilProvider
	}
	program, err := compile(expression)
	if err != nil {
		return nil, err
	}
	return &Provider{
		inner:      inner,
		expression: expression,
		program:    program,
	}, nil
}

func compile(expression string) (cel.Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("filter expression is required")
	}

	env, err := cel.NewEnv(
		cel.Variable("level", cel.IntType),
		cel.Variable("level_name", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("msg", cel.StringType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}

	ast, iss := env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", expression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression %q must return bool, got %s", expression, ast.OutputType())
	}
	return env.Program(ast)
}

// Expression 返回过滤表达式
func (p *Provider) Expression() string {
	return p.expression
}

func (p *Provider) SetMinimumLevel(level logging.LogLevel) {
	p.inner.SetMinimumLevel(level)
}

func (p *Provider) CreateLogger(category string) logging.Logger {
	return &filterLogger{
		provider: p,
		category: category,
		inner:    p.inner.CreateLogger(category),
	}
}

// Close 关闭内部提供者（如果它可关闭）
func (p *Provider) Close() error {
	if closer, ok := p.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// allow 求值失败时丢弃该条日志
func (p *Provider) allow(level logging.LogLevel, category, msg string, fields []logging.Field) bool {
	out, _, err := p.program.Eval(map[string]any{
		"level":      int64(level),
		"level_name": strings.ToLower(level.String()),
		"category":   category,
		"msg":        msg,
		"fields":     fieldValues(fields),
	})
	if err != nil {
		return false
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed
}

// fieldValues 把字段值转换成 CEL 可识别的基础类型
func fieldValues(fields []logging.Field) map[string]any {
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case nil:
			values[f.Key] = nil
		case string, bool, int64, uint64, float64, []byte:
			values[f.Key] = v
		case int:
			values[f.Key] = int64(v)
		case int32:
			values[f.Key] = int64(v)
		case uint:
			values[f.Key] = uint64(v)
		case uint32:
			values[f.Key] = uint64(v)
		case float32:
			values[f.Key] = float64(v)
		case time.Duration:
			values[f.Key] = v
		case error:
			values[f.Key] = v.Error()
		default:
			values[f.Key] = fmt.Sprint(v)
		}
	}
	return values
}

type filterLogger struct {
	provider *Provider
	category string
	inner    logging.Logger
	fields   []logging.Field
}

func (l *filterLogger) Trace(msg string, fields ...logging.Field) {
	l.Log(logging.LogLevelTrace, msg, fields...)
}

func (l *filterLogger) Debug(msg string, fields ...logging.Field) {
	l.Log(logging.LogLevelDebug, msg, fields...)
}

func (l *filterLogger) Info(msg string, fields ...logging.Field) {
	l.Log(logging.LogLevelInfo, msg, fields...)
}

func (l *filterLogger) Warn(msg string, fields ...logging.Field) {
	l.Log(logging.LogLevelWarn, msg, fields...)
}

func (l *filterLogger) Error(msg string, fields ...logging.Field) {
	l.Log(logging.LogLevelError, msg, fields...)
}

// Fatal 不经过过滤
func (l *filterLogger) Fatal(msg string, fields ...logging.Field) {
	l.inner.Fatal(msg, fields...)
}

func (l *filterLogger) Log(level logging.LogLevel, msg string, fields ...logging.Field) {
	all := append(append(make([]logging.Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	if !l.provider.allow(level, l.category, msg, all) {
		return
	}
	l.inner.Log(level, msg, fields...)
}

func (l *filterLogger) WithFields(fields ...logging.Field) logging.Logger {
	return &filterLogger{
		provider: l.provider,
		category: l.category,
		inner:    l.inner.WithFields(fields...),
		fields:   append(append(make([]logging.Field, 0, len(l.fields)+len(fields)), l.fields...), fields...),
	}
}

func (l *filterLogger) WithCategory(category string) logging.Logger {
	return &filterLogger{
		provider: l.provider,
		category: category,
		inner:    l.inner.WithCategory(category),
		fields:   l.fields,
	}
}
