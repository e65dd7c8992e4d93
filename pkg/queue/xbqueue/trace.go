package xbqueue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Tracer 相关常量
// =============================================================================

const (
	// tracerName 追踪器名称
	tracerName = "xbqueue"
)

// Span 操作名称
const (
	spanNameEnqueue       = "xbqueue.Enqueue"
	spanNameTryDequeueFor = "xbqueue.TryDequeueFor"
)

// Span 属性名称（Metrics 也复用这些常量，确保 trace 与 metrics 键名一致）
const (
	attrEngine   = "xbqueue.engine"
	attrName     = "xbqueue.name"
	attrCapacity = "xbqueue.capacity"
	attrDequeued = "xbqueue.dequeued"
	attrTimeout  = "xbqueue.timeout"
)

// =============================================================================
// Span 创建辅助函数
// =============================================================================

// startSpan 创建新的 span。
// tracer 为 nil 时返回原 ctx 和 nil span（未显式配置 TracerProvider 时的热路径）。
func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, nil
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan 结束 span，nil 安全。
func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// setSpanDequeued 标记出队结果，nil 安全。
// 超时返回空结果不是错误，span 状态保持 OK，仅通过属性区分。
func setSpanDequeued(span trace.Span, dequeued bool) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Bool(attrDequeued, dequeued))
}

// queueSpanAttributes 构建队列操作的公共 span 属性
func queueSpanAttributes(engine, name string, capacity int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(attrEngine, engine),
		attribute.Int(attrCapacity, capacity),
	}
	if name != "" {
		attrs = append(attrs, attribute.String(attrName, name))
	}
	return attrs
}

// dequeueSpanAttributes 在公共属性之上附加等待时长上限
func dequeueSpanAttributes(engine, name string, capacity int, timeout time.Duration) []attribute.KeyValue {
	return append(queueSpanAttributes(engine, name, capacity),
		attribute.String(attrTimeout, timeout.String()))
}
