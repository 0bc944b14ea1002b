package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EntryWriter 日志条目写入器
// 每个提供者最终都把日志条目交给一个 EntryWriter
type EntryWriter interface {
	WriteLog(entry *LogEntry)
}

// EntryWriterFunc 函数形式的 EntryWriter
type EntryWriterFunc func(entry *LogEntry)

// WriteLog 实现 EntryWriter
func (fn EntryWriterFunc) WriteLog(entry *LogEntry) {
	fn(entry)
}

// FormatWriter 同步写入器：格式化后写入 io.Writer
type FormatWriter struct {
	writer     io.Writer
	formatter  Formatter
	errHandler func(error)
	mu         sync.Mutex
}

// NewFormatWriter 创建同步写入器
func NewFormatWriter(writer io.Writer, formatter Formatter) *FormatWriter {
	return &FormatWriter{
		writer:    writer,
		formatter: formatter,
	}
}

// SetErrorHandler 设置错误处理函数
func (w *FormatWriter) SetErrorHandler(handler func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errHandler = handler
}

// WriteLog 格式化并写入日志条目
func (w *FormatWriter) WriteLog(entry *LogEntry) {
	data, err := w.formatter.Format(entry)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.handleError(fmt.Errorf("format error: %w", err))
		return
	}

	// JSON 格式化结果不带换行，这里统一补齐
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	if _, err := w.writer.Write(data); err != nil {
		w.handleError(fmt.Errorf("write error: %w", err))
	}
}

func (w *FormatWriter) handleError(err error) {
	if w.errHandler != nil {
		w.errHandler(err)
		return
	}
	fmt.Fprintf(os.Stderr, "FormatWriter %v\n", err)
}
