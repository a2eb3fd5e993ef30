package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/pipeline"
	"deskwise.app/triage/internal/queue"
)

// TicketFetcher is the slice of the ticketing client the worker needs.
type TicketFetcher interface {
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
}

// MessageQueue is the slice of the stream consumer the worker needs.
type MessageQueue interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

type Config struct {
	MaxAttempts int
}

// Worker consumes ticket messages from the stream and runs the triage
// pipeline on each. The pipeline itself never errors, so the only retryable
// failure is fetching the ticket from the ticketing system.
type Worker struct {
	consumer     MessageQueue
	tickets      TicketFetcher
	orchestrator *pipeline.Orchestrator
	cfg          Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer MessageQueue, tickets TicketFetcher, orchestrator *pipeline.Orchestrator, cfg Config) *Worker {
	return &Worker{
		consumer:     consumer,
		tickets:      tickets,
		orchestrator: orchestrator,
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
	w.orchestrator.WaitEffects()
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"ticket_id", msg.TicketID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"ticket_id", msg.TicketID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs the pipeline for one queued ticket. Exported so it can
// be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_ticket",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TicketID:  &msg.TicketID,
		MessageID: &msg.ID,
		Component: "triage.worker",
	})

	slog.InfoContext(ctx, "processing message",
		"event_type", msg.EventType,
		"attempt", msg.Attempt)

	ticket, err := w.tickets.GetTicket(ctx, msg.TicketID)
	if err != nil {
		sc.RecordError(err)
		return fmt.Errorf("fetching ticket %d: %w", msg.TicketID, err)
	}

	result := w.orchestrator.Process(ctx, *ticket)
	if result.Error != "" {
		// The result was still committed with whatever stages succeeded.
		// Retrying would re-run side effects, so ack and surface via logs.
		slog.WarnContext(ctx, "pipeline finished with error",
			"error", result.Error,
			"category", result.Category,
			"duration_ms", result.ProcessingTimeMs)
	} else {
		slog.InfoContext(ctx, "pipeline finished",
			"category", result.Category,
			"duration_ms", result.ProcessingTimeMs)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Log but don't fail - message will be reclaimed but reprocessing is safe
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}

	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"ticket_id", msg.TicketID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"ticket_id", msg.TicketID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
