package stress

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/qkit/pkg/queue/xbqueue"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Cycles = 50
	cfg.EnqueuesPerCycle = 64
	cfg.Workers = 4
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Capacity = 0

	r, err := NewRunner(cfg, nil)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewRunner_RunID(t *testing.T) {
	a, err := NewRunner(quietConfig(), discardLogger())
	require.NoError(t, err)
	b, err := NewRunner(quietConfig(), discardLogger())
	require.NoError(t, err)

	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID(), "each run should carry a unique id")
}

func TestRunner_Run(t *testing.T) {
	for _, engine := range []string{xbqueue.EngineChan, xbqueue.EnginePermitPair} {
		t.Run(engine, func(t *testing.T) {
			cfg := quietConfig()
			cfg.Engine = engine

			r, err := NewRunner(cfg, discardLogger())
			require.NoError(t, err)

			rep, err := r.Run(context.Background())
			require.NoError(t, err)
			require.NotNil(t, rep)

			assert.Equal(t, r.RunID(), rep.RunID)
			assert.Equal(t, engine, rep.Engine)
			assert.Equal(t, cfg.Cycles, rep.Cycles)
			assert.Equal(t, uint64(cfg.Cycles*cfg.EnqueuesPerCycle), rep.Expected)
			assert.Equal(t, rep.Expected, rep.Executed)
			assert.Zero(t, rep.Stats.EmptyAfterPermit)

			// 会合任务不计入计数任务，但同样经过队列
			wantDequeued := uint64(cfg.Cycles * (cfg.EnqueuesPerCycle + cfg.Workers))
			assert.Equal(t, wantDequeued, rep.Stats.Dequeued)
			assert.Equal(t, wantDequeued, rep.Stats.Enqueued)
		})
	}
}

func TestRunner_RunStrict(t *testing.T) {
	cfg := quietConfig()
	cfg.Strict = true

	r, err := NewRunner(cfg, discardLogger())
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rep.Expected, rep.Executed)
}

func TestRunner_ContextCancel(t *testing.T) {
	cfg := quietConfig()
	cfg.Cycles = 100000 // 足够大，保证取消发生在运行中途

	r, err := NewRunner(cfg, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	rep, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep, "partial report should still be returned")
	assert.Less(t, rep.Cycles, cfg.Cycles)
}

// 消费者组中途死亡（任务 panic 导致整组取消）时，生产者不得卡死在
// 无人消费的满队列上；runCycle 必须及时返回并回收组的错误。
func TestRunner_ConsumerPoolDeathUnblocksProducer(t *testing.T) {
	cfg := quietConfig()
	cfg.Capacity = 2
	cfg.Workers = 1
	cfg.Cycles = 1
	cfg.EnqueuesPerCycle = 64

	r, err := NewRunner(cfg, discardLogger())
	require.NoError(t, err)

	// 投毒：消费者执行到该任务即 panic，组随之死亡
	require.True(t, r.queue.TryEnqueue(func() { panic("poisoned task") }))

	var (
		rep    *Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rep, runErr = r.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the consumer pool died")
	}

	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "panicked")
	require.NotNil(t, rep, "partial report should still be returned")
}

func TestRunner_NilContext(t *testing.T) {
	cfg := quietConfig()
	cfg.Cycles = 2

	r, err := NewRunner(cfg, discardLogger())
	require.NoError(t, err)

	_, err = r.Run(nil) //nolint:staticcheck // 验证 nil ctx 归一化
	assert.NoError(t, err)
}

// TestRunner_FullScale 以历史缺陷复现所用的完整规模运行。
// 耗时较长，-short 模式下跳过。
func TestRunner_FullScale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-scale stress run in short mode")
	}

	cfg := DefaultConfig()
	cfg.Strict = true

	r, err := NewRunner(cfg, discardLogger())
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(cfg.Cycles*cfg.EnqueuesPerCycle), rep.Executed)
	assert.Zero(t, rep.Stats.EmptyAfterPermit)
}
