package xbqueue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// permitQueue 是许可对引擎实现。
// 两个独立的有界计数器只做门控、从不携带数据：freeSlots 初始为容量 N，
// availItems 初始为 0；互斥锁保护的环形缓冲是唯一的共享存储。
// 逻辑槽位状态机：空 → 已预约（生产者持槽许可）→ 已填充（持锁写入后
// 发出条目许可）→ 已认领（消费者持条目许可）→ 空（持锁弹出后归还槽许可）。
//
// 正确性的关键顺序约束：
//   - 条目许可的 Release 必须发生在对应写入的解锁之后
//   - 条目许可的 Acquire 必须发生在对应弹出的加锁之前
//   - 许可等待必须发生在加锁之前，持锁等待会与对端互相死锁
type permitQueue[T any] struct {
	capacity int
	opts     *options

	// 存储：互斥锁保护的环形缓冲，锁只在单次写入/弹出期间持有
	mu    sync.Mutex
	buf   []T
	head  int
	count int

	// 许可对
	freeSlots  *semaphore.Weighted
	availItems *semaphore.Weighted

	stats counters
}

func newPermitQueue[T any](capacity int, opts *options) *permitQueue[T] {
	q := &permitQueue[T]{
		capacity:   capacity,
		opts:       opts,
		buf:        make([]T, capacity),
		freeSlots:  semaphore.NewWeighted(int64(capacity)),
		availItems: semaphore.NewWeighted(int64(capacity)),
	}
	// availItems 初始应为 0：构造后立即占满全部权重，
	// 出队方只能消费入队方逐个释放的许可
	if !q.availItems.TryAcquire(int64(capacity)) {
		panic("xbqueue: draining a fresh semaphore cannot fail")
	}
	return q
}

func (q *permitQueue[T]) Enqueue(ctx context.Context, item T) error {
	if ctx == nil {
		return ErrNilContext
	}

	ctx, span := startSpan(ctx, q.opts.tracer, spanNameEnqueue,
		queueSpanAttributes(EnginePermitPair, q.opts.name, q.capacity)...)

	start := time.Now()
	// 预约空位。ctx 取消时许可未被消耗，无需回滚。
	if err := q.freeSlots.Acquire(ctx, 1); err != nil {
		endSpan(span, err)
		return err
	}

	q.mu.Lock()
	q.buf[(q.head+q.count)%q.capacity] = item
	q.count++
	q.mu.Unlock()

	// 写入对消费者可见之后才发出条目许可
	q.availItems.Release(1)

	q.stats.enqueued.Add(1)
	q.opts.metrics.RecordEnqueue(ctx, EnginePermitPair, q.opts.name, time.Since(start))
	endSpan(span, nil)
	return nil
}

func (q *permitQueue[T]) TryEnqueue(item T) bool {
	if !q.freeSlots.TryAcquire(1) {
		return false
	}

	q.mu.Lock()
	q.buf[(q.head+q.count)%q.capacity] = item
	q.count++
	q.mu.Unlock()

	q.availItems.Release(1)

	q.stats.enqueued.Add(1)
	q.opts.metrics.RecordEnqueue(context.Background(), EnginePermitPair, q.opts.name, 0)
	return true
}

func (q *permitQueue[T]) TryDequeueFor(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		return q.TryDequeue()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, span := startSpan(ctx, q.opts.tracer, spanNameTryDequeueFor,
		dequeueSpanAttributes(EnginePermitPair, q.opts.name, q.capacity, timeout)...)

	start := time.Now()
	for {
		if err := q.availItems.Acquire(ctx, 1); err != nil {
			// 超时是正常结果，span 状态保持 OK
			q.stats.timeouts.Add(1)
			q.opts.metrics.RecordDequeue(ctx, EnginePermitPair, q.opts.name, false, time.Since(start))
			setSpanDequeued(span, false)
			endSpan(span, nil)
			var zero T
			return zero, false
		}

		if item, ok := q.popOne(); ok {
			q.freeSlots.Release(1)
			q.stats.dequeued.Add(1)
			q.opts.metrics.RecordDequeue(ctx, EnginePermitPair, q.opts.name, true, time.Since(start))
			setSpanDequeued(span, true)
			endSpan(span, nil)
			return item, true
		}

		// 持有有效条目许可但存储为空 —— 守恒不变式被违反
		q.violation(ctx)
		// 防御性恢复：归还许可并重新等待，直到条目出现或超时
		q.availItems.Release(1)
	}
}

func (q *permitQueue[T]) TryDequeue() (T, bool) {
	if !q.availItems.TryAcquire(1) {
		var zero T
		return zero, false
	}

	item, ok := q.popOne()
	if !ok {
		q.violation(context.Background())
		q.availItems.Release(1)
		var zero T
		return zero, false
	}

	q.freeSlots.Release(1)
	q.stats.dequeued.Add(1)
	q.opts.metrics.RecordDequeue(context.Background(), EnginePermitPair, q.opts.name, true, 0)
	return item, true
}

// popOne 持锁弹出头部条目。
// 按守恒不变式，调用方持有条目许可时存储必定非空；
// 返回 false 即为违规，由调用方处置。
func (q *permitQueue[T]) popOne() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.count == 0 {
		return zero, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = zero // 清除引用，被取走的条目交由消费者处置
	q.head = (q.head + 1) % q.capacity
	q.count--
	return item, true
}

// violation 处置一次守恒不变式违规。
// 严格模式下立即 panic——静默容忍会掩盖真实的同步缺陷；
// 默认模式记录诊断计数器与 Warn 日志，由调用方防御性重试。
func (q *permitQueue[T]) violation(ctx context.Context) {
	q.stats.emptyAfterPermit.Add(1)
	q.opts.metrics.RecordViolation(ctx, EnginePermitPair, q.opts.name)

	if q.opts.strict {
		panic("xbqueue: item permit granted but backing store is empty")
	}

	q.opts.logger.Warn("xbqueue: item permit granted but backing store is empty, retrying wait",
		AttrEngine(EnginePermitPair),
		AttrQueueName(q.opts.name),
		AttrCapacity(q.capacity),
	)
}

func (q *permitQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *permitQueue[T]) Cap() int {
	return q.capacity
}

func (q *permitQueue[T]) Stats() Stats {
	return q.stats.snapshot()
}

// 编译期接口检查
var _ Queue[int] = (*permitQueue[int])(nil)
