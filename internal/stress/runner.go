package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/qkit/pkg/lifecycle/xworkers"
	"github.com/omeyang/qkit/pkg/queue/xbqueue"
)

// 压测结论性错误，使用 errors.Is 进行比较
var (
	// ErrCounterMismatch 累计计数与预期投递总量不一致，存在任务丢失或重复执行
	ErrCounterMismatch = errors.New("stress: executed count does not match expected total")

	// ErrConservationViolated 压测过程中观测到"许可已授予但存储为空"
	ErrConservationViolated = errors.New("stress: permit granted with empty backing store")

	// ErrQueueNotDrained 压测结束后队列仍有残留元素
	ErrQueueNotDrained = errors.New("stress: queue not drained at end of run")
)

// Report 单次压测的结果汇总。
type Report struct {
	// RunID 本次压测的唯一标识，用于日志关联
	RunID string

	// Engine 使用的队列引擎
	Engine string

	// Cycles 实际完成的周期数
	Cycles int

	// Expected 预期执行的计数任务总量（enqueues_per_cycle × cycles）
	Expected uint64

	// Executed 实际执行的计数任务总量
	Executed uint64

	// Stats 队列的累计计数快照
	Stats xbqueue.Stats

	// Duration 压测耗时
	Duration time.Duration
}

// LogAttrs 返回用于结构化日志输出的属性集。
func (r *Report) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.String("engine", r.Engine),
		slog.Int("cycles", r.Cycles),
		slog.Uint64("expected", r.Expected),
		slog.Uint64("executed", r.Executed),
		slog.Uint64("timeouts", r.Stats.Timeouts),
		slog.Uint64("empty_after_permit", r.Stats.EmptyAfterPermit),
		slog.Duration("duration", r.Duration),
	}
}

// Runner 按配置驱动一轮完整的压力测试。
//
// 每个周期的流程与队列的典型生产用法一致：启动一组消费者、灌入计数
// 任务、投递会合任务确认本周期全部执行完毕、回收消费者。同一队列
// 实例贯穿所有周期，周期间队列应回到空闲状态。
type Runner struct {
	cfg    Config
	logger *slog.Logger
	queue  xbqueue.Queue[func()]
	runID  string
}

// NewRunner 创建压测驱动。logger 为 nil 时使用 slog.Default()。
func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []xbqueue.Option{
		xbqueue.WithName("stress"),
		xbqueue.WithLogger(logger),
	}
	if cfg.Strict {
		opts = append(opts, xbqueue.WithStrictConsistency())
	}

	var (
		q   xbqueue.Queue[func()]
		err error
	)
	switch cfg.Engine {
	case xbqueue.EngineChan:
		q, err = xbqueue.New[func()](cfg.Capacity, opts...)
	case xbqueue.EnginePermitPair:
		q, err = xbqueue.NewPermitPair[func()](cfg.Capacity, opts...)
	default:
		// Validate 已拦截，此处兜底
		return nil, fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:    cfg,
		logger: logger,
		queue:  q,
		runID:  uuid.NewString(),
	}, nil
}

// RunID 返回本次压测的唯一标识。
func (r *Runner) RunID() string {
	return r.runID
}

// Run 执行全部周期并返回结果汇总。
//
// 任一不变式被打破时返回非 nil 错误，同时仍返回已收集的 Report 供
// 调用方输出细节；ctx 取消时中止压测并返回取消原因。
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.logger.Info("stress run starting",
		slog.String("run_id", r.runID),
		slog.String("engine", r.cfg.Engine),
		slog.Int("capacity", r.cfg.Capacity),
		slog.Int("workers", r.cfg.Workers),
		slog.Int("cycles", r.cfg.Cycles),
		slog.Int("enqueues_per_cycle", r.cfg.EnqueuesPerCycle),
	)

	start := time.Now()
	var executed atomic.Uint64

	progressEvery := r.cfg.Cycles / 10
	if progressEvery == 0 {
		progressEvery = 1
	}

	completed := 0
	for cycle := 0; cycle < r.cfg.Cycles; cycle++ {
		if err := context.Cause(ctx); err != nil {
			return r.report(completed, executed.Load(), start), err
		}
		if err := r.runCycle(ctx, &executed); err != nil {
			return r.report(completed, executed.Load(), start), err
		}
		completed++

		if completed%progressEvery == 0 {
			r.logger.Debug("stress progress",
				slog.String("run_id", r.runID),
				slog.Int("cycle", completed),
				slog.Uint64("executed", executed.Load()),
			)
		}
	}

	rep := r.report(completed, executed.Load(), start)
	if err := r.verify(rep); err != nil {
		return rep, err
	}

	r.logger.Info("stress run completed", attrsToAny(rep.LogAttrs())...)
	return rep, nil
}

// runCycle 执行单个周期：建消费者组 → 灌入计数任务 → 会合 → 拆组。
func (r *Runner) runCycle(ctx context.Context, executed *atomic.Uint64) error {
	var stop atomic.Bool

	pool, err := xworkers.New(ctx, r.cfg.Workers, func(ctx context.Context) error {
		for {
			if task, ok := r.queue.TryDequeueFor(r.cfg.DequeueTimeout); ok {
				task()
				continue
			}
			if stop.Load() {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
	}, xworkers.WithName("stress-consumers"), xworkers.WithLogger(r.logger))
	if err != nil {
		return err
	}

	// 周期结束前必须回收消费者组，任何提前 return 都要先解除阻塞。
	// Wait 的错误优先：生产者侧的 context.Canceled 往往只是组死亡的
	// 结果，真正的原因在 worker 的返回错误里。
	finish := func(runErr error) error {
		stop.Store(true)
		if waitErr := pool.Wait(); waitErr != nil {
			return waitErr
		}
		return runErr
	}

	// 入队与会合都绑定消费者组的生命周期：组中途死亡（如严格模式下
	// 守恒违规触发 panic）时生产者立刻解除阻塞并经 finish 回收错误，
	// 而不是卡死在无人消费的满队列上
	poolCtx := pool.Context()

	for i := 0; i < r.cfg.EnqueuesPerCycle; i++ {
		if err := r.queue.Enqueue(poolCtx, func() { executed.Add(1) }); err != nil {
			return finish(err)
		}
	}

	// 会合屏障：每个消费者执行一个到达任务，主协程为第 N+1 方。
	// 屏障放行意味着本周期灌入的计数任务已全部执行完毕。
	l := newLatch(r.cfg.Workers + 1)
	for i := 0; i < r.cfg.Workers; i++ {
		if err := r.queue.Enqueue(poolCtx, l.arriveAndWait); err != nil {
			l.open()
			return finish(err)
		}
	}
	if err := l.arriveAndWaitCtx(poolCtx); err != nil {
		return finish(err)
	}

	return finish(nil)
}

// report 生成当前状态的结果快照。
func (r *Runner) report(cycles int, executed uint64, start time.Time) *Report {
	return &Report{
		RunID:    r.runID,
		Engine:   r.cfg.Engine,
		Cycles:   cycles,
		Expected: uint64(cycles) * uint64(r.cfg.EnqueuesPerCycle),
		Executed: executed,
		Stats:    r.queue.Stats(),
		Duration: time.Since(start),
	}
}

// verify 对完整跑完的压测做不变式断言。
func (r *Runner) verify(rep *Report) error {
	if rep.Stats.EmptyAfterPermit > 0 {
		return fmt.Errorf("%w: observed %d times", ErrConservationViolated, rep.Stats.EmptyAfterPermit)
	}
	if rep.Executed != rep.Expected {
		return fmt.Errorf("%w: expected %d, executed %d", ErrCounterMismatch, rep.Expected, rep.Executed)
	}
	if n := r.queue.Len(); n != 0 {
		return fmt.Errorf("%w: %d elements remain", ErrQueueNotDrained, n)
	}
	return nil
}

// attrsToAny 将 slog.Attr 切片转换为 slog 变参形式。
func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	return out
}
