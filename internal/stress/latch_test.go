package stress

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatch_ReleasesWhenAllArrive(t *testing.T) {
	const parties = 8
	l := newLatch(parties)

	var released atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < parties-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.arriveAndWait()
			released.Add(1)
		}()
	}

	// 尚有一方未到达，其余必须保持阻塞
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, released.Load())

	l.arriveAndWait()
	wg.Wait()
	assert.Equal(t, int32(parties-1), released.Load())
}

func TestLatch_SingleParty(t *testing.T) {
	l := newLatch(1)

	done := make(chan struct{})
	go func() {
		l.arriveAndWait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("single-party latch should release immediately")
	}
}

func TestLatch_ArriveAndWaitCtx(t *testing.T) {
	t.Run("completes normally", func(t *testing.T) {
		l := newLatch(2)
		go l.arriveAndWait()
		assert.NoError(t, l.arriveAndWaitCtx(context.Background()))
	})

	t.Run("cancel opens barrier", func(t *testing.T) {
		l := newLatch(3)
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 屏障永远凑不齐，依赖取消放行
			l.arriveAndWait()
		}()

		cancel()
		err := l.arriveAndWaitCtx(ctx)
		require.ErrorIs(t, err, context.Canceled)

		// 取消方放行了屏障，其余等待方不会被永久卡住
		wg.Wait()
	})
}

func TestLatch_OpenIsIdempotent(t *testing.T) {
	l := newLatch(5)
	l.open()
	l.open()

	done := make(chan struct{})
	go func() {
		l.arriveAndWait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("arriveAndWait should return after open")
	}
}
