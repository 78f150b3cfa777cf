// Package kafka consumes transaction records from and publishes run events to
// Kafka topics.
package kafka

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/iho/txengine/internal/domain"
)

// MessageReader is the subset of *kafka.Reader used by Source.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SourceConfig configures a Source.
type SourceConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables consumer group offsets. Without it the source reads the
	// topic from the start and never commits.
	GroupID string
	// IdleTimeout ends the source when no message arrives in time. Zero waits
	// forever.
	IdleTimeout time.Duration
	// MaxMessages ends the source after that many messages. Zero means no
	// limit.
	MaxMessages int
	Logger      zerolog.Logger
}

// Source is a RecordSource reading one record per Kafka message.
//
// A message's offset is committed once the next record is requested, i.e.
// after the caller has applied it.
type Source struct {
	reader  MessageReader
	idle    time.Duration
	max     int
	commit  bool
	logger  zerolog.Logger
	read    int
	pending *kafka.Message
}

// NewSource creates a Source backed by a kafka.Reader.
func NewSource(cfg SourceConfig) *Source {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return NewSourceWithReader(reader, cfg)
}

// NewSourceWithReader creates a Source on top of an existing reader.
func NewSourceWithReader(reader MessageReader, cfg SourceConfig) *Source {
	return &Source{
		reader: reader,
		idle:   cfg.IdleTimeout,
		max:    cfg.MaxMessages,
		commit: cfg.GroupID != "",
		logger: cfg.Logger,
	}
}

// Next returns the record carried by the next message.
func (s *Source) Next(ctx context.Context) (domain.Transaction, error) {
	if err := s.commitPending(ctx); err != nil {
		return nil, err
	}

	if s.max > 0 && s.read >= s.max {
		return nil, io.EOF
	}

	fetchCtx := ctx
	if s.idle > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.idle)
		defer cancel()
	}

	msg, err := s.reader.FetchMessage(fetchCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			s.logger.Debug().Dur("idle", s.idle).Msg("no message within idle timeout")
			return nil, io.EOF
		}
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	s.read++
	if s.commit {
		s.pending = &msg
	}

	tx, err := DecodeMessage(msg.Value)
	if err != nil {
		return nil, fmt.Errorf("%s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	return tx, nil
}

// Close commits the last delivered message and closes the reader.
func (s *Source) Close(ctx context.Context) error {
	return errors.Join(s.commitPending(ctx), s.reader.Close())
}

func (s *Source) commitPending(ctx context.Context) error {
	if s.pending == nil {
		return nil
	}
	msg := *s.pending
	s.pending = nil
	if err := s.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

type jsonRecord struct {
	Type   string      `json:"type"`
	Client json.Number `json:"client"`
	Tx     json.Number `json:"tx"`
	Amount json.Number `json:"amount"`
}

// DecodeMessage parses a message value. JSON objects with the fields type,
// client, tx and amount are accepted, as is a single CSV line in the column
// order type,client,tx,amount.
func DecodeMessage(value []byte) (domain.Transaction, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty message", domain.ErrMalformedRecord)
	}

	if trimmed[0] == '{' {
		var rec jsonRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
		}
		return domain.ParseTransaction(rec.Type, rec.Client.String(), rec.Tx.String(), rec.Amount.String())
	}

	r := stdcsv.NewReader(strings.NewReader(string(trimmed)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}
	if len(fields) < 3 || len(fields) > 4 {
		return nil, fmt.Errorf("%w: expected 3 or 4 fields, got %d", domain.ErrMalformedRecord, len(fields))
	}
	amount := ""
	if len(fields) == 4 {
		amount = fields[3]
	}
	return domain.ParseTransaction(fields[0], fields[1], fields[2], amount)
}
