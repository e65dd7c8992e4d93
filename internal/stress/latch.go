package stress

import (
	"context"
	"sync"
	"sync/atomic"
)

// latch 是一次性的 N 方会合屏障：parties 个参与方全部到达后一起放行。
// 与可复用的 sync.WaitGroup 不同，latch 的每个参与方既"到达"又"等待"，
// 用于确认某一周期灌入的全部任务已被消费者执行完毕。
type latch struct {
	remaining atomic.Int64
	release   sync.Once
	released  chan struct{}
}

func newLatch(parties int) *latch {
	l := &latch{released: make(chan struct{})}
	l.remaining.Store(int64(parties))
	return l
}

// arriveAndWait 记录到达并阻塞等待，直到全部参与方到达。
// 最后一个到达方负责放行，随后所有阻塞方返回。
func (l *latch) arriveAndWait() {
	if l.remaining.Add(-1) <= 0 {
		l.open()
		return
	}
	<-l.released
}

// arriveAndWaitCtx 与 arriveAndWait 相同，但等待可被 ctx 取消。
// 取消时放行整个屏障：既然本方放弃等待，其余参与方也不应再被卡住。
func (l *latch) arriveAndWaitCtx(ctx context.Context) error {
	if l.remaining.Add(-1) <= 0 {
		l.open()
		return nil
	}
	select {
	case <-l.released:
		return nil
	case <-ctx.Done():
		l.open()
		return context.Cause(ctx)
	}
}

// open 无条件放行所有等待方。
// 周期中途出错时调用，避免已投递的会合任务把消费者永久卡住。
func (l *latch) open() {
	l.release.Do(func() { close(l.released) })
}
