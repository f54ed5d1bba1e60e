package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMailbox_ProcessesInSendOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		got  []int
		wg   sync.WaitGroup
		busy atomic.Int32
	)
	wg.Add(100)

	mb := NewMailbox("test", 8, func(_ context.Context, n int) {
		defer wg.Done()
		if busy.Add(1) != 1 {
			t.Errorf("handler overlapped at message %d", n)
		}
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		busy.Add(-1)
	}, zerolog.Nop())
	mb.Start(ctx)

	for i := 0; i < 100; i++ {
		require.NoError(t, mb.Send(ctx, i))
	}
	wg.Wait()

	require.Len(t, got, 100)
	for i, n := range got {
		assert.Equal(t, i, n)
	}

	cancel()
	<-mb.Done()
}

func TestMailbox_SendAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	mb := NewMailbox("test", 1, func(context.Context, string) {}, zerolog.Nop())
	mb.Start(ctx)

	cancel()
	<-mb.Done()

	err := mb.Send(context.Background(), "late")
	assert.ErrorIs(t, err, ErrMailboxClosed)
}

func TestMailbox_SendHonoursContextWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	mb := NewMailbox("test", 1, func(context.Context, int) { <-release }, zerolog.Nop())
	mb.Start(ctx)

	// First message occupies the worker, second fills the buffer.
	require.NoError(t, mb.Send(ctx, 1))
	require.Eventually(t, func() bool { return len(mb.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, mb.Send(ctx, 2))

	sendCtx, sendCancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer sendCancel()
	err := mb.Send(sendCtx, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	cancel()
	<-mb.Done()
}

func TestMailbox_StartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	mb := NewMailbox("test", 0, func(context.Context, int) {
		calls.Add(1)
		close(done)
	}, zerolog.Nop())

	mb.Start(ctx)
	mb.Start(ctx)
	require.NoError(t, mb.Send(ctx, 1))
	<-done

	cancel()
	<-mb.Done()
	assert.Equal(t, int32(1), calls.Load())
}
