package xworkers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task 是 worker 运行的任务函数。
// 任务应监听 ctx.Done() 以响应取消信号；返回后对应 worker 退出。
type Task func(ctx context.Context) error

// Pool 是固定规模的 worker 组。
//
// 基于 errgroup + context：任一 worker 返回错误或 Cancel 被调用时，
// 所有 worker 都会收到取消信号。Wait 应仅调用一次。
//
// 使用方式：
//
//	pool, err := xworkers.New(ctx, 8, func(ctx context.Context) error {
//	    for {
//	        task, ok := queue.TryDequeueFor(time.Millisecond)
//	        if ok {
//	            task()
//	            continue
//	        }
//	        select {
//	        case <-ctx.Done():
//	            return nil
//	        default:
//	        }
//	    }
//	})
//	// ... 投递任务 ...
//	pool.Cancel(nil)
//	if err := pool.Wait(); err != nil {
//	    log.Fatal(err)
//	}
type Pool struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *options
	count    int
}

// New 创建 Pool 并立即启动 count 个 worker，每个运行 task 直到其返回。
//
// count 必须为正整数，否则返回 [ErrInvalidCount]；task 不得为 nil，
// 否则返回 [ErrNilTask]。nil ctx 归一化为 context.Background()。
func New(ctx context.Context, count int, task Task, opts ...Option) (*Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	if task == nil {
		return nil, ErrNilTask
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	p := &Pool{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
		count:    count,
	}

	for i := 0; i < count; i++ {
		i := i
		p.eg.Go(func() error {
			return p.runWorker(i, task)
		})
	}

	return p, nil
}

// runWorker 运行单个 worker，捕获 panic 并转换为错误。
// panic 被转换为错误后走正常的 errgroup 传播路径，
// 确保其余 worker 被取消且全部被 join。
func (p *Pool) runWorker(id int, task Task) (err error) {
	p.opts.logger.Debug("worker starting",
		slog.String("pool", p.opts.name),
		slog.Int("worker", id),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xworkers: worker %d panicked: %v", id, r)
			p.opts.logger.Error("worker panic recovered",
				slog.String("pool", p.opts.name),
				slog.Int("worker", id),
				slog.Any("panic", r),
			)
		}
	}()

	err = task(p.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.opts.logger.Warn("worker exited with error",
			slog.String("pool", p.opts.name),
			slog.Int("worker", id),
			slog.Any("error", err),
		)
	} else {
		p.opts.logger.Debug("worker stopped",
			slog.String("pool", p.opts.name),
			slog.Int("worker", id),
		)
	}
	return err
}

// Wait 等待所有 worker 退出，返回第一个非 nil 错误（如果有）。
//
// 如果错误是 context.Canceled，则优先返回 context.Cause ——
// 这样 Cancel(cause) 设置的退出原因不会丢失；普通的主动取消返回 nil。
func (p *Pool) Wait() error {
	// CancelCauseFunc 幂等，defer 释放 context 资源，不影响返回值语义
	defer p.cancel(nil)

	err := p.eg.Wait()

	p.opts.logger.Debug("all workers stopped",
		slog.String("pool", p.opts.name),
	)

	// 过滤 Pool 主动取消产生的 context.Canceled，保留显式的 cancel cause。
	if errors.Is(err, context.Canceled) {
		if p.causeCtx.Err() != nil {
			if cause := context.Cause(p.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			return nil
		}
		// causeCtx 未被取消 → context.Canceled 来自任务内部，不过滤
		return err
	}

	// 所有 worker 返回 nil 时，显式 Cancel(cause) 的原因仍需返回
	if err == nil && p.causeCtx.Err() != nil {
		if cause := context.Cause(p.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}

	return err
}

// Cancel 主动取消所有 worker。
//
// cause 会作为 context 的取消原因，Wait 会通过 context.Cause 返回该
// 原因（而非 nil）。cause 为 nil 时 Wait 返回 nil。
// 注意：cause 不应包装 context.Canceled，否则会被 Wait 视为普通取消过滤掉。
func (p *Pool) Cancel(cause error) {
	p.cancel(cause)
}

// Context 返回 Pool 的 context，worker 退出或 Cancel 后被取消。
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Size 返回 worker 数量。
func (p *Pool) Size() int {
	return p.count
}
