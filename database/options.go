package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options 数据库日志提供者配置选项
type Options struct {
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration

	Table       string // 日志表名
	AutoMigrate bool   // 是否自动建表

	Async      bool
	BufferSize int

	ErrorHandler func(error)
}

// NewDefaultOptions 创建默认配置
// gorm 自身的日志默认静默，避免日志写入再产生日志
func NewDefaultOptions(dialector gorm.Dialector) *Options {
	return &Options{
		Dialector:    dialector,
		GormConfig:   &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
		MaxIdleConns: 2,
		MaxOpenConns: 10,
		MaxLifetime:  time.Hour,
		Table:        "log_records",
		AutoMigrate:  true,
		BufferSize:   1024,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Dialector == nil {
		return fmt.Errorf("database dialector is required")
	}
	if o.Table == "" {
		return fmt.Errorf("database log table is required")
	}
	return nil
}
