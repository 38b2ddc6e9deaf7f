package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu      sync.Mutex
	batches [][]AuditLog
}

func (p *recordingProcessor) Process(batch []AuditLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]AuditLog, len(batch))
	copy(cp, batch)
	p.batches = append(p.batches, cp)
	return nil
}

func (p *recordingProcessor) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestWorkerPoolFlushesFullBatch(t *testing.T) {
	proc := &recordingProcessor{}
	pool := NewAuditWorkerPool(
		AuditPoolConfig{BatchSize: 3, Timeout: time.Minute, ChannelSize: 16},
		proc,
	)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	for i := 0; i < 3; i++ {
		pool.Log(AuditLog{OrderID: int64(i + 1), Message: "transition"})
	}

	require.Eventually(t, func() bool {
		return proc.total() == 3
	}, 2*time.Second, 10*time.Millisecond)

	proc.mu.Lock()
	require.Len(t, proc.batches, 1)
	assert.Len(t, proc.batches[0], 3)
	proc.mu.Unlock()

	pool.Shutdown(cancel)
}

func TestWorkerPoolFlushesOnTimeout(t *testing.T) {
	proc := &recordingProcessor{}
	pool := NewAuditWorkerPool(
		AuditPoolConfig{BatchSize: 100, Timeout: 50 * time.Millisecond, ChannelSize: 16},
		proc,
	)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	pool.Log(AuditLog{OrderID: 1, Message: "single record"})

	require.Eventually(t, func() bool {
		return proc.total() == 1
	}, 2*time.Second, 10*time.Millisecond)

	pool.Shutdown(cancel)
}

func TestWorkerPoolFlushesOnShutdown(t *testing.T) {
	proc := &recordingProcessor{}
	pool := NewAuditWorkerPool(
		AuditPoolConfig{BatchSize: 100, Timeout: time.Minute, ChannelSize: 16},
		proc,
	)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	pool.Log(AuditLog{OrderID: 7, Message: "pending on shutdown"})

	// даём воркеру забрать запись из канала до отмены контекста
	require.Eventually(t, func() bool {
		return len(pool.inputCh) == 0
	}, 2*time.Second, 5*time.Millisecond)

	pool.Shutdown(cancel)
	assert.Equal(t, 1, proc.total())
}

func TestLogDropsWhenChannelFull(t *testing.T) {
	pool := NewAuditWorkerPool(
		AuditPoolConfig{BatchSize: 10, Timeout: time.Minute, ChannelSize: 1},
	)
	// воркеры не запущены: второй Log не должен блокировать
	pool.Log(AuditLog{OrderID: 1})
	done := make(chan struct{})
	go func() {
		pool.Log(AuditLog{OrderID: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log blocked on full channel")
	}
	assert.Len(t, pool.inputCh, 1)
}

func TestStdoutProcessorFilter(t *testing.T) {
	proc := &StdoutProcessor{Filter: "cancel"}
	err := proc.Process([]AuditLog{
		{OrderID: 1, Message: "Order cancelled"},
		{OrderID: 2, Message: "Order created"},
	})
	assert.NoError(t, err)
}
