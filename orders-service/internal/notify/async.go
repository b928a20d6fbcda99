package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// AsyncDispatcher makes dispatch fire-and-forget: Dispatch returns at once
// and failures are only logged and counted.
type AsyncDispatcher struct {
	next     Dispatcher
	timeout  time.Duration
	log      zerolog.Logger
	failures prometheus.Counter

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher wraps next; failures may be nil.
func NewAsyncDispatcher(next Dispatcher, timeout time.Duration, log zerolog.Logger, failures prometheus.Counter) *AsyncDispatcher {
	return &AsyncDispatcher{next: next, timeout: timeout, log: log, failures: failures}
}

func (a *AsyncDispatcher) Dispatch(ctx context.Context, n Notification) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrDispatcherClosed
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Dispatch(sendCtx, n); err != nil {
			if a.failures != nil {
				a.failures.Inc()
			}
			a.log.Error().Err(err).
				Str("event", n.Event).
				Str("recipient", n.Recipient).
				Str("order_number", n.Payload.OrderNumber).
				Msg("notification dispatch failed")
		}
	}()
	return nil
}

// Close rejects new notifications and waits for in-flight ones.
func (a *AsyncDispatcher) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}
