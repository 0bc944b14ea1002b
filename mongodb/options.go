package mongodb

import (
	"fmt"
	"time"
)

// Options MongoDB 日志提供者配置选项
type Options struct {
	Uri         string
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration // 连接及单条写入超时

	Database   string
	Collection string

	Async      bool
	BufferSize int

	ErrorHandler func(error)
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(uri string) *Options {
	return &Options{
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
		Database:    "logs",
		Collection:  "entries",
		BufferSize:  1024,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if o.Database == "" {
		return fmt.Errorf("mongo database is required")
	}
	if o.Collection == "" {
		return fmt.Errorf("mongo collection is required")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("mongo timeout must be positive")
	}
	return nil
}
