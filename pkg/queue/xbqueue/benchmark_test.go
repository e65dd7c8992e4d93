package xbqueue

import (
	"context"
	"testing"
	"time"
)

func BenchmarkEnqueueDequeue(b *testing.B) {
	for _, e := range engines {
		b.Run(e.name, func(b *testing.B) {
			q, err := e.newQueue(64)
			if err != nil {
				b.Fatal(err)
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := q.Enqueue(ctx, 1); err != nil {
					b.Fatal(err)
				}
				if _, ok := q.TryDequeue(); !ok {
					b.Fatal("dequeue failed")
				}
			}
		})
	}
}

func BenchmarkTryDequeueForTimeout(b *testing.B) {
	for _, e := range engines {
		b.Run(e.name, func(b *testing.B) {
			q, err := e.newQueue(64)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				q.TryDequeueFor(time.Microsecond)
			}
		})
	}
}

func BenchmarkEnqueueDequeueParallel(b *testing.B) {
	for _, e := range engines {
		b.Run(e.name, func(b *testing.B) {
			q, err := e.newQueue(1024)
			if err != nil {
				b.Fatal(err)
			}
			ctx := context.Background()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if err := q.Enqueue(ctx, 1); err != nil {
						b.Fatal(err)
					}
					q.TryDequeueFor(time.Millisecond)
				}
			})
		})
	}
}
