package eventpublisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase/mocks"
)

func testReport() *domain.RunReport {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &domain.RunReport{
		ID: "run-1",
		Accounts: []domain.AccountSnapshot{
			{Client: 1, Available: decimal.NewFromInt(5), Total: decimal.NewFromInt(5)},
			{Client: 2, Locked: true},
		},
		Stats:      domain.RunStats{Records: 4, Applied: 3, Rejected: 1},
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}
}

func TestBuildEventsWithSnapshots(t *testing.T) {
	ep := newTestPublisher(&stubPublisher{}, true)

	events := ep.BuildEvents(testReport())

	wantTypes := []string{
		domain.EventTypeAccountSnapshot,
		domain.EventTypeAccountSnapshot,
		domain.EventTypeAccountLocked,
		domain.EventTypeRunCompleted,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d", len(wantTypes), len(events))
	}
	for i, e := range events {
		if e.EventType != wantTypes[i] {
			t.Errorf("event %d: expected %s, got %s", i, wantTypes[i], e.EventType)
		}
		if e.RunID != "run-1" {
			t.Errorf("event %d: expected run id run-1, got %s", i, e.RunID)
		}
	}

	if events[2].AggregateID != "2" {
		t.Errorf("expected lock event for client 2, got %s", events[2].AggregateID)
	}

	run, ok := events[3].Payload.(domain.RunCompletedEvent)
	if !ok || run.Locked != 1 || run.Accounts != 2 || run.Applied != 3 {
		t.Errorf("unexpected run payload %#v", events[3].Payload)
	}
}

func TestBuildEventsWithoutSnapshots(t *testing.T) {
	ep := newTestPublisher(&stubPublisher{}, false)

	events := ep.BuildEvents(testReport())

	if len(events) != 2 {
		t.Fatalf("expected lock and run events only, got %d", len(events))
	}
}

func TestExportContinuesOnPublishError(t *testing.T) {
	pub := &stubPublisher{failType: domain.EventTypeAccountLocked}
	ep := newTestPublisher(pub, false)

	err := ep.Export(context.Background(), testReport())
	if err == nil {
		t.Fatalf("expected error from failed event")
	}

	if len(pub.published) != 1 || pub.published[0].EventType != domain.EventTypeRunCompleted {
		t.Fatalf("expected run event to still be published, got %#v", pub.published)
	}
}

func TestLogPublisherWritesPayload(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	err := p.Publish(context.Background(), &domain.Event{
		ID:          "evt-1",
		EventType:   domain.EventTypeAccountLocked,
		AggregateID: "2",
		Payload:     domain.AccountSnapshotEvent{Client: 2, Locked: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	payload, ok := line["payload"].(map[string]any)
	if !ok || payload["locked"] != true {
		t.Fatalf("expected embedded payload, got %v", line)
	}
}

func TestLogPublisherRejectsUnencodablePayload(t *testing.T) {
	p := NewLogPublisher(zerolog.Nop())

	err := p.Publish(context.Background(), &domain.Event{Payload: make(chan int)})
	if err == nil {
		t.Fatalf("expected marshal error")
	}
}

func newTestPublisher(pub Publisher, snapshots bool) *EventPublisher {
	return NewEventPublisher(Config{
		Publisher: pub,
		IDGen:     &mocks.SequenceIDGenerator{},
		Logger:    zerolog.Nop(),
		Snapshots: snapshots,
	})
}

type stubPublisher struct {
	published []*domain.Event
	failType  string
}

func (s *stubPublisher) Publish(_ context.Context, event *domain.Event) error {
	if event.EventType == s.failType {
		return errors.New("fail")
	}
	s.published = append(s.published, event)
	return nil
}
