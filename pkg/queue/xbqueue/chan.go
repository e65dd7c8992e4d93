package xbqueue

import (
	"context"
	"time"
)

// chanQueue 是 channel 引擎实现。
// 带缓冲 channel 同时充当存储与许可：缓冲区剩余空间即空位许可，
// 缓冲区内条目即条目许可，等待与存储变更在同一个同步域内完成，
// 守恒不变式由 runtime 保证，无需显式校验。
type chanQueue[T any] struct {
	ch       chan T
	capacity int
	opts     *options
	stats    counters
}

func newChanQueue[T any](capacity int, opts *options) *chanQueue[T] {
	return &chanQueue[T]{
		ch:       make(chan T, capacity),
		capacity: capacity,
		opts:     opts,
	}
}

func (q *chanQueue[T]) Enqueue(ctx context.Context, item T) error {
	if ctx == nil {
		return ErrNilContext
	}

	ctx, span := startSpan(ctx, q.opts.tracer, spanNameEnqueue,
		queueSpanAttributes(EngineChan, q.opts.name, q.capacity)...)

	start := time.Now()
	err := q.enqueue(ctx, item)
	if err == nil {
		q.stats.enqueued.Add(1)
		q.opts.metrics.RecordEnqueue(ctx, EngineChan, q.opts.name, time.Since(start))
	}
	endSpan(span, err)
	return err
}

func (q *chanQueue[T]) enqueue(ctx context.Context, item T) error {
	// 快速路径：有空位时不触碰 ctx.Done()
	select {
	case q.ch <- item:
		return nil
	default:
	}
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *chanQueue[T]) TryEnqueue(item T) bool {
	select {
	case q.ch <- item:
		q.stats.enqueued.Add(1)
		q.opts.metrics.RecordEnqueue(context.Background(), EngineChan, q.opts.name, 0)
		return true
	default:
		return false
	}
}

func (q *chanQueue[T]) TryDequeueFor(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		return q.TryDequeue()
	}

	// span 在快速路径之前创建，立即命中与等待命中的追踪覆盖一致
	ctx, span := startSpan(context.Background(), q.opts.tracer, spanNameTryDequeueFor,
		dequeueSpanAttributes(EngineChan, q.opts.name, q.capacity, timeout)...)

	start := time.Now()

	// 快速路径：已有条目时不创建 timer
	select {
	case item := <-q.ch:
		q.stats.dequeued.Add(1)
		q.opts.metrics.RecordDequeue(ctx, EngineChan, q.opts.name, true, time.Since(start))
		setSpanDequeued(span, true)
		endSpan(span, nil)
		return item, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.ch:
		q.stats.dequeued.Add(1)
		q.opts.metrics.RecordDequeue(ctx, EngineChan, q.opts.name, true, time.Since(start))
		setSpanDequeued(span, true)
		endSpan(span, nil)
		return item, true
	case <-timer.C:
		q.stats.timeouts.Add(1)
		q.opts.metrics.RecordDequeue(ctx, EngineChan, q.opts.name, false, time.Since(start))
		setSpanDequeued(span, false)
		endSpan(span, nil)
		var zero T
		return zero, false
	}
}

func (q *chanQueue[T]) TryDequeue() (T, bool) {
	select {
	case item := <-q.ch:
		q.stats.dequeued.Add(1)
		q.opts.metrics.RecordDequeue(context.Background(), EngineChan, q.opts.name, true, 0)
		return item, true
	default:
		var zero T
		return zero, false
	}
}

func (q *chanQueue[T]) Len() int {
	return len(q.ch)
}

func (q *chanQueue[T]) Cap() int {
	return q.capacity
}

func (q *chanQueue[T]) Stats() Stats {
	return q.stats.snapshot()
}

// 编译期接口检查
var _ Queue[int] = (*chanQueue[int])(nil)
