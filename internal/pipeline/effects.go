package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// DeadLetter records a failed side effect for later inspection. Implemented
// by queue.DeadLetterLog; nil means log-only.
type DeadLetter interface {
	Record(ctx context.Context, effect string, ticketID int64, errMsg string)
}

// effects dispatches best-effort side effects off the critical path. Each
// effect runs in its own goroutine with its own error channel: failures are
// logged and dead-lettered, never surfaced on the processing result. The
// detached context survives the originating request, so an effect may
// complete after Process has already returned.
type effects struct {
	deadLetter DeadLetter
	wg         sync.WaitGroup
}

func newEffects(deadLetter DeadLetter) *effects {
	return &effects{deadLetter: deadLetter}
}

func (e *effects) dispatch(ctx context.Context, effect string, ticketID int64, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "panic recovered in side effect",
					"effect", effect,
					"ticket_id", ticketID,
					"panic", r)
			}
		}()

		if err := fn(ctx); err != nil {
			slog.WarnContext(ctx, "best-effort side effect failed",
				"effect", effect,
				"ticket_id", ticketID,
				"error", err)
			if e.deadLetter != nil {
				e.deadLetter.Record(ctx, effect, ticketID, err.Error())
			}
			return
		}

		slog.DebugContext(ctx, "side effect committed",
			"effect", effect,
			"ticket_id", ticketID)
	}()
}

// wait blocks until all dispatched effects finish. Used at shutdown and in
// tests; the processing path never waits on it.
func (e *effects) wait() {
	e.wg.Wait()
}
