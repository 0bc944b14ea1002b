// Package telemetry 提供把日志条目计数为 OpenTelemetry 指标的日志提供者
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/logkit/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Options 遥测提供者配置选项
type Options struct {
	MeterName   string
	CounterName string
	// OwnMeterProvider 为 true 时 Close 会关闭 MeterProvider（需实现 Shutdown）
	OwnMeterProvider bool
	ShutdownTimeout  time.Duration
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions() *Options {
	return &Options{
		MeterName:       "github.com/gocrud/logkit",
		CounterName:     "log.entries",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.MeterName == "" {
		return fmt.Errorf("telemetry meter name is required")
	}
	if o.CounterName == "" {
		return fmt.Errorf("telemetry counter name is required")
	}
	if o.ShutdownTimeout <= 0 {
		return fmt.Errorf("telemetry shutdown timeout must be positive")
	}
	return nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Provider 按级别和类别统计日志条目数量
type Provider struct {
	logging.LevelSwitch
	meterProvider metric.MeterProvider
	counter       metric.Int64Counter
	options       Options
}

// NewProvider 创建遥测提供者
func NewProvider(mp metric.MeterProvider, opts Options) (*Provider, error) {
	if mp == nil {
		return nil, fmt.Errorf("meter provider is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	counter, err := mp.Meter(opts.MeterName).Int64Counter(opts.CounterName,
		metric.WithDescription("Number of log entries by level and category"),
		metric.WithUnit("{entry}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter '%s': %w", opts.CounterName, err)
	}

	p := &Provider{
		meterProvider: mp,
		counter:       counter,
		options:       opts,
	}
	p.SetMinimumLevel(logging.LogLevelInfo)
	return p, nil
}

func (p *Provider) CreateLogger(category string) logging.Logger {
	return logging.NewWriterLogger(category, &p.LevelSwitch, logging.EntryWriterFunc(p.record))
}

func (p *Provider) record(entry *logging.LogEntry) {
	p.counter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("level", entry.Level.String()),
		attribute.String("category", entry.Category),
	))
}

// Close 在拥有 MeterProvider 时关闭它，导出剩余指标
func (p *Provider) Close() error {
	if !p.options.OwnMeterProvider {
		return nil
	}
	sd, ok := p.meterProvider.(shutdowner)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.options.ShutdownTimeout)
	defer cancel()
	return sd.Shutdown(ctx)
}
