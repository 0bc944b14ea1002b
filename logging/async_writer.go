package logging

import (
	"sync"
)

// AsyncWriter 异步日志写入器
// 在后台协程中把日志条目转交给内部的 EntryWriter
type AsyncWriter struct {
	inner     EntryWriter
	entryCh   chan *LogEntry
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncWriter 创建新的异步写入器
func NewAsyncWriter(inner EntryWriter, bufferSize int) *AsyncWriter {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	w := &AsyncWriter{
		inner:   inner,
		entryCh: make(chan *LogEntry, bufferSize),
	}

	// 启动后台写入协程
	w.wg.Add(1)
	go w.process()

	return w
}

// WriteLog 写入日志条目（非阻塞，除非 buffer 满）
// 关闭之后写入的条目会被丢弃
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	// 队列满时阻塞等待，保证不丢日志
	w.entryCh <- entry
}

// Close 关闭写入器，等待队列中的日志全部写完
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.entryCh)
		w.mu.Unlock()
	})
	w.wg.Wait()
	return nil
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	for entry := range w.entryCh {
		w.inner.WriteLog(entry)
	}
}
