// Package journal keeps an append-only JetStream log of wizard runs and
// rebuilds a run's outcome from it.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/nats"
)

// Event is one recorded notification.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Run       string          `json:"run"`
	Type      string          `json:"type"`   // window, page, button, field, progress, folder
	Action    string          `json:"action"` // shown, hidden, page name, enabled, ...
	Meta      json.RawMessage `json:"meta,omitempty"`
	Data      string          `json:"data"`
}

// Store publishes and reads run events.
type Store struct {
	js     jetstream.JetStream
	stream jetstream.Stream
}

// NewStore creates a Store on an existing stream.
func NewStore(js jetstream.JetStream, stream jetstream.Stream) *Store {
	return &Store{js: js, stream: stream}
}

// PublishEvent appends event to the log under syncwizard.{run}.{type}.
func (s *Store) PublishEvent(ctx context.Context, event Event) (*jetstream.PubAck, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := nats.SubjectForEvent(event.Run, event.Type)
	ack, err := s.js.Publish(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}
	logger.Debug("Event published: run=%s type=%s action=%s seq=%d", event.Run, event.Type, event.Action, ack.Sequence)
	return ack, nil
}

// ListRuns returns the runs with events in the log, oldest name first.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	info, err := s.stream.Info(ctx, jetstream.WithSubjectFilter(nats.AllSubjects()))
	if err != nil {
		return nil, fmt.Errorf("failed to read stream info: %w", err)
	}
	seen := make(map[string]bool)
	var runs []string
	for subject := range info.State.Subjects {
		run, ok := nats.RunFromSubject(subject)
		if ok && !seen[run] {
			seen[run] = true
			runs = append(runs, run)
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// LoadRun reduces every event of run into its state.
func (s *Store) LoadRun(ctx context.Context, run string) (*RunState, error) {
	consumer, err := s.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: nats.SubjectForRun(run),
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	state := NewRunState(run)
	const batchSize = 1000
	malformed := 0
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			var event Event
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				malformed++
				_ = msg.Ack()
				continue
			}
			if event.ID == "" {
				if meta, err := msg.Metadata(); err == nil {
					event.ID = fmt.Sprintf("%d", meta.Sequence.Stream)
				}
			}
			state.Apply(event)
			_ = msg.Ack()
		}
		if count < batchSize {
			break
		}
	}

	if malformed > 0 {
		logger.Warn("Skipped %d malformed events while loading run %s", malformed, run)
	}
	return state, nil
}
