package xbqueue

import "sync/atomic"

// Stats 队列诊断计数器快照。
// 各字段之间不保证同一瞬间读取，仅用于监控与测试断言。
type Stats struct {
	// Enqueued 成功入队的条目总数
	Enqueued uint64

	// Dequeued 成功出队的条目总数
	Dequeued uint64

	// Timeouts TryDequeueFor 超时返回空结果的次数
	Timeouts uint64

	// EmptyAfterPermit 消费者持有有效条目许可却发现存储为空的次数。
	// 守恒不变式的违规计数：正确实现下恒为 0，非零说明存在同步缺陷。
	// 仅许可对引擎会更新此计数。
	EmptyAfterPermit uint64
}

// counters 内部原子计数器，两种引擎共用。
type counters struct {
	enqueued         atomic.Uint64
	dequeued         atomic.Uint64
	timeouts         atomic.Uint64
	emptyAfterPermit atomic.Uint64
}

// snapshot 返回当前计数器快照。
func (c *counters) snapshot() Stats {
	return Stats{
		Enqueued:         c.enqueued.Load(),
		Dequeued:         c.dequeued.Load(),
		Timeouts:         c.timeouts.Load(),
		EmptyAfterPermit: c.emptyAfterPermit.Load(),
	}
}
