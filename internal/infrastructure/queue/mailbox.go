package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/pkg/metrics"
)

const defaultBuffer = 64

// ErrMailboxClosed is returned by Send once the worker has stopped.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is an ordered queue drained by exactly one worker goroutine, so
// handled messages never overlap and are processed in send order.
type Mailbox[T any] struct {
	name   string
	ch     chan T
	handle func(ctx context.Context, msg T)
	log    zerolog.Logger

	startOnce sync.Once
	done      chan struct{}
}

// NewMailbox creates a Mailbox whose worker calls handle for every message.
// If buffer <= 0, defaultBuffer is used.
func NewMailbox[T any](name string, buffer int, handle func(ctx context.Context, msg T), log zerolog.Logger) *Mailbox[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Mailbox[T]{
		name:   name,
		ch:     make(chan T, buffer),
		handle: handle,
		log:    log.With().Str("mailbox", name).Logger(),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. The worker stops when ctx is cancelled;
// messages still queued at that point are dropped. Calling Start more than
// once has no effect.
func (m *Mailbox[T]) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

// Send enqueues msg, blocking while the buffer is full. It fails with
// ctx.Err() if ctx ends first, or ErrMailboxClosed if the worker is gone.
func (m *Mailbox[T]) Send(ctx context.Context, msg T) error {
	select {
	case <-m.done:
		return ErrMailboxClosed
	default:
	}

	select {
	case m.ch <- msg:
		metrics.MailboxDepth.WithLabelValues(m.name).Set(float64(len(m.ch)))
		return nil
	case <-m.done:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed after the worker has returned.
func (m *Mailbox[T]) Done() <-chan struct{} {
	return m.done
}

func (m *Mailbox[T]) run(ctx context.Context) {
	defer close(m.done)
	m.log.Debug().Msg("mailbox worker started")

	for {
		select {
		case <-ctx.Done():
			if n := len(m.ch); n > 0 {
				m.log.Warn().Int("dropped", n).Msg("mailbox stopped with pending messages")
			}
			m.log.Debug().Msg("mailbox worker stopped")
			return
		case msg := <-m.ch:
			metrics.MailboxDepth.WithLabelValues(m.name).Set(float64(len(m.ch)))
			m.handle(ctx, msg)
		}
	}
}
