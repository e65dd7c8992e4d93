package xbqueue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 设计决策: 指标前缀使用 "xbqueue.*"，与 OTel Meter scope name 保持一致
// （Meter("xbqueue")）。如需统一命名空间，应在采集端处理。
const (
	// metricNameEnqueueTotal 入队次数计数器
	metricNameEnqueueTotal = "xbqueue.enqueue.total"
	// metricNameDequeueTotal 出队尝试次数计数器（含超时）
	metricNameDequeueTotal = "xbqueue.dequeue.total"
	// metricNameEnqueueWait 入队等待耗时直方图
	metricNameEnqueueWait = "xbqueue.enqueue.wait.duration"
	// metricNameDequeueWait 出队等待耗时直方图
	metricNameDequeueWait = "xbqueue.dequeue.wait.duration"
	// metricNameViolationTotal 守恒不变式违规计数器
	metricNameViolationTotal = "xbqueue.conservation.violation.total"
)

// Metrics 队列指标收集器
// 提供 Counter 和 Histogram 类型的指标收集
type Metrics struct {
	meter          metric.Meter
	enqueueTotal   metric.Int64Counter
	dequeueTotal   metric.Int64Counter
	enqueueWait    metric.Float64Histogram
	dequeueWait    metric.Float64Histogram
	violationTotal metric.Int64Counter
}

// NewMetrics 创建指标收集器
// 如果 meterProvider 为 nil，返回 nil（不收集指标）
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	m := &Metrics{}
	m.meter = meterProvider.Meter(tracerName,
		metric.WithInstrumentationVersion(instrumentationVersion),
	)

	if err := m.initInstruments(); err != nil {
		return nil, err
	}
	return m, nil
}

// waitBuckets 等待耗时直方图的桶边界
// 队列等待通常在亚毫秒到百毫秒之间，桶边界偏向低延迟区间
var waitBuckets = []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}

// initInstruments 初始化所有指标
func (m *Metrics) initInstruments() error {
	var err error
	if m.enqueueTotal, err = m.meter.Int64Counter(metricNameEnqueueTotal,
		metric.WithDescription("队列入队次数"), metric.WithUnit("{enqueue}")); err != nil {
		return err
	}
	if m.dequeueTotal, err = m.meter.Int64Counter(metricNameDequeueTotal,
		metric.WithDescription("队列出队尝试次数"), metric.WithUnit("{dequeue}")); err != nil {
		return err
	}
	if m.enqueueWait, err = m.meter.Float64Histogram(metricNameEnqueueWait,
		metric.WithDescription("入队等待耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(waitBuckets...)); err != nil {
		return err
	}
	if m.dequeueWait, err = m.meter.Float64Histogram(metricNameDequeueWait,
		metric.WithDescription("出队等待耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(waitBuckets...)); err != nil {
		return err
	}
	if m.violationTotal, err = m.meter.Int64Counter(metricNameViolationTotal,
		metric.WithDescription("守恒不变式违规次数"), metric.WithUnit("{violation}")); err != nil {
		return err
	}
	return nil
}

// queueAttrs 构建队列指标的公共属性
func queueAttrs(engine, name string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(attrEngine, engine),
	}
	if name != "" {
		attrs = append(attrs, attribute.String(attrName, name))
	}
	return attrs
}

// RecordEnqueue 记录一次成功入队及其等待耗时。
// 使用 context.WithoutCancel 确保即使 ctx 被取消，指标仍能记录。
func (m *Metrics) RecordEnqueue(ctx context.Context, engine, name string, wait time.Duration) {
	if m == nil {
		return
	}
	metricsCtx := context.WithoutCancel(ctx)
	attrs := queueAttrs(engine, name)
	m.enqueueTotal.Add(metricsCtx, 1, metric.WithAttributes(attrs...))
	m.enqueueWait.Record(metricsCtx, wait.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDequeue 记录一次出队尝试。
// dequeued 为 false 表示超时返回空结果（正常结果，计入 dequeue.total 以便
// 计算超时比例）。
func (m *Metrics) RecordDequeue(ctx context.Context, engine, name string, dequeued bool, wait time.Duration) {
	if m == nil {
		return
	}
	metricsCtx := context.WithoutCancel(ctx)
	attrs := append(queueAttrs(engine, name), attribute.Bool(attrDequeued, dequeued))
	m.dequeueTotal.Add(metricsCtx, 1, metric.WithAttributes(attrs...))
	m.dequeueWait.Record(metricsCtx, wait.Seconds(), metric.WithAttributes(attrs...))
}

// RecordViolation 记录一次守恒不变式违规。
// 正确实现下此指标恒为 0，非零应触发告警。
func (m *Metrics) RecordViolation(ctx context.Context, engine, name string) {
	if m == nil {
		return
	}
	metricsCtx := context.WithoutCancel(ctx)
	m.violationTotal.Add(metricsCtx, 1, metric.WithAttributes(queueAttrs(engine, name)...))
}
