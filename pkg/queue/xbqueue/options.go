package xbqueue

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// options 队列内部配置
type options struct {
	logger         *slog.Logger
	name           string
	strict         bool
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	// 派生字段，由 newOptions 构建
	metrics *Metrics
	tracer  trace.Tracer
}

// Option 队列配置选项函数
type Option func(*options)

// defaultOptions 返回默认配置
func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
	}
}

// newOptions 应用选项并构建派生字段。
// nil Option 会被静默跳过，与 xrun.NewGroup 的防御性行为一致。
func newOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}

	m, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}
	o.metrics = m

	// 设计决策: 与 xsemaphore 不同，未配置 TracerProvider 时不回退到全局
	// tracer。队列操作是高频热路径，只有显式开启追踪时才创建 span。
	if o.tracerProvider != nil {
		o.tracer = o.tracerProvider.Tracer(tracerName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		)
	}

	return o, nil
}

// WithLogger 设置自定义日志记录器。
// 默认使用 slog.Default()。传入 nil 将被忽略，保持使用默认值。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置队列名称，用于在多实例场景下区分日志与指标来源。
// 默认为空字符串。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithStrictConsistency 启用严格一致性模式。
// 许可对引擎中，消费者持有有效条目许可却发现存储为空时立即 panic，
// 而不是防御性恢复。用于测试环境暴露同步缺陷，详见包文档。
func WithStrictConsistency() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider。
// 用于收集入队/出队计数与等待耗时直方图。
// 如果不设置，不会收集指标。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider 设置 OpenTelemetry TracerProvider。
// 仅在显式设置时为 Enqueue/TryDequeueFor 创建 span。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
