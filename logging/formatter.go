package logging

import (
	"time"
)

// Formatter 日志格式化接口
type Formatter interface {
	// Format 格式化日志条目
	Format(entry *LogEntry) ([]byte, error)
}

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

// FieldMap 将字段转换为 map，后出现的同名字段覆盖前面的
func (e *LogEntry) FieldMap() map[string]any {
	if len(e.Fields) == 0 {
		return nil
	}
	fields := make(map[string]any, len(e.Fields))
	for _, field := range e.Fields {
		fields[field.Key] = fieldValue(field.Value)
	}
	return fields
}

// fieldValue error 类型无法被 JSON 序列化，统一转成字符串
func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}
