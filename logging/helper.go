package logging

import "fmt"

// NewLogger 创建一个默认的控制台 Logger（便于测试使用）
// 返回的工厂由调用方负责 Dispose；构建失败时 panic
func NewLogger(category string) (Logger, LoggerFactory) {
	factory, err := NewLoggingBuilder().AddConsole().Build()
	if err != nil {
		panic(fmt.Sprintf("logging: build console logger: %v", err))
	}
	logger, err := factory.CreateLogger(category)
	if err != nil {
		panic(fmt.Sprintf("logging: create logger '%s': %v", category, err))
	}
	return logger, factory
}
