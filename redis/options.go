package redis

import (
	"fmt"
	"time"
)

// Options Redis 日志提供者配置选项
type Options struct {
	Addr         string        // Redis 服务器地址 (host:port)
	Password     string        // 密码（可选）
	DB           int           // 数据库编号
	DialTimeout  time.Duration // 连接超时时间
	WriteTimeout time.Duration // 单条日志写入超时时间
	PoolSize     int           // 连接池大小
	MaxRetries   int           // 最大重试次数

	Stream string // 日志写入的 Stream 键
	MaxLen int64  // Stream 近似最大长度，0 表示不限制

	Async      bool // 是否异步写入
	BufferSize int  // 异步队列长度

	ErrorHandler func(error) // 写入失败时的回调，默认输出到 stderr
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions() *Options {
	return &Options{
		Addr:         "localhost:6379",
		DB:           0,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
		Stream:       "logs",
		MaxLen:       100000,
		BufferSize:   1024,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if o.DB < 0 {
		return fmt.Errorf("redis database number must be non-negative")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("redis dial timeout must be positive")
	}
	if o.WriteTimeout <= 0 {
		return fmt.Errorf("redis write timeout must be positive")
	}
	if o.Stream == "" {
		return fmt.Errorf("redis stream key is required")
	}
	if o.MaxLen < 0 {
		return fmt.Errorf("redis stream max length must be non-negative")
	}
	return nil
}
