package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

// EventPublisher turns a finished run into events and publishes them.
type EventPublisher struct {
	publisher Publisher
	idGen     usecase.IDGenerator
	logger    zerolog.Logger
	snapshots bool
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Config for EventPublisher.
type Config struct {
	Publisher Publisher
	IDGen     usecase.IDGenerator
	Logger    zerolog.Logger
	// Snapshots publishes one account.snapshot event per account. Lock and
	// run events are always published.
	Snapshots bool
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	return &EventPublisher{
		publisher: cfg.Publisher,
		idGen:     cfg.IDGen,
		logger:    cfg.Logger,
		snapshots: cfg.Snapshots,
	}
}

// Export publishes the events of report. A failed event does not stop the
// remaining ones; all failures are returned together.
func (ep *EventPublisher) Export(ctx context.Context, report *domain.RunReport) error {
	events := ep.BuildEvents(report)

	ep.logger.Info().
		Str("run_id", report.ID).
		Int("count", len(events)).
		Msg("publishing events")

	var errs []error
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := ep.publisher.Publish(ctx, event); err != nil {
			ep.logger.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			errs = append(errs, fmt.Errorf("event %s: %w", event.ID, err))
			// Continue processing other events even if one fails
			continue
		}
		ep.logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", event.EventType).
			Str("aggregate_id", event.AggregateID).
			Msg("event published")
	}

	return errors.Join(errs...)
}

// BuildEvents returns the events describing report: account snapshots (if
// enabled), one account.locked per locked account and a final run.completed.
func (ep *EventPublisher) BuildEvents(report *domain.RunReport) []*domain.Event {
	now := report.FinishedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var events []*domain.Event
	add := func(aggregateType, aggregateID, eventType string, payload any) {
		events = append(events, &domain.Event{
			ID:            ep.idGen.Generate(),
			RunID:         report.ID,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			Payload:       payload,
			CreatedAt:     now,
		})
	}

	locked := 0
	for _, a := range report.Accounts {
		id := domain.ClientAggregateID(a.Client)
		if ep.snapshots {
			add(domain.AggregateTypeAccount, id, domain.EventTypeAccountSnapshot, domain.NewAccountSnapshotEvent(a))
		}
		if a.Locked {
			locked++
			add(domain.AggregateTypeAccount, id, domain.EventTypeAccountLocked, domain.NewAccountSnapshotEvent(a))
		}
	}

	add(domain.AggregateTypeRun, report.ID, domain.EventTypeRunCompleted, domain.RunCompletedEvent{
		Accounts:   len(report.Accounts),
		Locked:     locked,
		Records:    report.Stats.Records,
		Applied:    report.Stats.Applied,
		Rejected:   report.Stats.Rejected,
		Malformed:  report.Stats.Malformed,
		StartedAt:  report.StartedAt.Format(time.RFC3339Nano),
		FinishedAt: report.FinishedAt.Format(time.RFC3339Nano),
	})

	return events
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("run_id", event.RunID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}
