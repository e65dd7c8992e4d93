package xbqueue

import (
	"context"
	"time"
)

// Queue 是固定容量的多生产者/多消费者阻塞队列。
// 所有方法都是并发安全的。
type Queue[T any] interface {
	// Enqueue 阻塞式入队。
	// 队列满时阻塞等待空位，传入 context.Background() 即为无界等待。
	// ctx 被取消时返回 ctx.Err()，条目不会入队；与 semaphore.Acquire 一致，
	// ctx 已取消但仍有空位时入队可能直接成功。
	// ctx 不得为 nil，否则返回 [ErrNilContext]。
	Enqueue(ctx context.Context, item T) error

	// TryEnqueue 非阻塞入队。
	// 入队成功返回 true，队列满时返回 false。
	TryEnqueue(item T) bool

	// TryDequeueFor 限时出队。
	// 最多等待 timeout，取到条目返回 (条目, true)；
	// 超时返回 (零值, false)，无任何副作用——超时是正常结果，不是错误。
	// timeout <= 0 时等价于 TryDequeue。
	TryDequeueFor(timeout time.Duration) (T, bool)

	// TryDequeue 非阻塞出队。
	// 队列空时返回 (零值, false)。
	TryDequeue() (T, bool)

	// Len 返回当前条目数（瞬时快照，并发场景下仅供参考）。
	Len() int

	// Cap 返回构造时固定的容量。
	Cap() int

	// Stats 返回诊断计数器快照。
	Stats() Stats
}

// New 创建 channel 引擎的有界队列。
// capacity 必须大于 0，否则返回 [ErrInvalidCapacity]。
// 这是默认引擎：等待与存储共用同一个同步域，推荐生产使用。
func New[T any](capacity int, opts ...Option) (Queue[T], error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, errInvalidCapacity(capacity)
	}
	return newChanQueue[T](capacity, o), nil
}

// NewPermitPair 创建许可对引擎的有界队列。
// capacity 必须大于 0，否则返回 [ErrInvalidCapacity]。
// 许可信号与存储变更是两个独立的同步域，保留用于压力测试与故障注入，
// 详见包文档"两种引擎"一节。
func NewPermitPair[T any](capacity int, opts ...Option) (Queue[T], error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, errInvalidCapacity(capacity)
	}
	return newPermitQueue[T](capacity, o), nil
}
