package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gosimple/slug"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/nats"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// Publisher is what the Recorder needs from a Store.
type Publisher interface {
	PublishEvent(ctx context.Context, event Event) (*jetstream.PubAck, error)
}

var runCounter atomic.Uint64

// NewRunName returns a subject-safe run name starting with label.
func NewRunName(label string) string {
	if label == "" {
		label = "run"
	}
	return slug.Make(fmt.Sprintf("%s %s %d", label, time.Now().UTC().Format("20060102-150405"), runCounter.Add(1)))
}

// Recorder observes a controller and journals its notifications. Publishing
// happens on the recorder's own goroutine so Notify never blocks on the log.
// Progress is kept at ten-percent steps.
type Recorder struct {
	pub   Publisher
	label string

	mu      sync.Mutex
	queue   []Event
	run     string
	step    int
	closed  bool
	started bool

	wake chan struct{}
	done chan struct{}
}

// NewRecorder creates a recorder whose run names start with label.
func NewRecorder(pub Publisher, label string) *Recorder {
	return &Recorder{
		pub:   pub,
		label: label,
		step:  -1,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Start begins publishing queued events until ctx ends or Close is called.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()
	go r.loop(ctx)
}

// Close publishes what is still queued and stops.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}
	r.signal()
	<-r.done
}

// Run returns the name of the run being recorded, "" before the first one.
func (r *Recorder) Run() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

// Notify implements setup.Observer.
func (r *Recorder) Notify(n setup.Notification) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	event, ok := r.eventFor(n)
	if ok {
		r.queue = append(r.queue, event)
	}
	r.mu.Unlock()
	if ok {
		r.signal()
	}
}

func (r *Recorder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		closed := r.closed
		r.mu.Unlock()

		for _, event := range batch {
			if _, err := r.pub.PublishEvent(ctx, event); err != nil {
				logger.Warn("Failed to journal %s event: %v", event.Type, err)
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		select {
		case <-r.wake:
		case <-ctx.Done():
			return
		}
	}
}

// eventFor maps a notification to an event. Called with mu held.
func (r *Recorder) eventFor(n setup.Notification) (Event, bool) {
	if msg, ok := n.(setup.WindowVisibilityMsg); ok && msg.Visible {
		r.run = NewRunName(r.label)
		r.step = -1
	}
	if r.run == "" {
		r.run = NewRunName(r.label)
	}

	event := Event{Run: r.run, Timestamp: time.Now()}
	switch msg := n.(type) {
	case setup.WindowVisibilityMsg:
		event.Type = nats.EventTypeWindow
		event.Action = "hidden"
		if msg.Visible {
			event.Action = "shown"
		}
	case setup.PageChangedMsg:
		event.Type = nats.EventTypePage
		event.Action = msg.Page.String()
		event.Data = msg.Context.URL
		event.Meta = marshalMeta(pageMeta{Warnings: msg.Warnings, Folder: msg.Context.Folder, URL: msg.Context.URL})
	case setup.ButtonEnabledMsg:
		event.Type = nats.EventTypeButton
		event.Action = "disabled"
		if msg.Enabled {
			event.Action = "enabled"
		}
		event.Data = msg.Button.String()
	case setup.AddressFieldMsg:
		event.Type = nats.EventTypeField
		event.Action = "address"
		event.Data = msg.Text
		event.Meta = marshalMeta(map[string]any{"example": msg.Example, "enabled": msg.State == setup.FieldEnabled})
	case setup.PathFieldMsg:
		event.Type = nats.EventTypeField
		event.Action = "path"
		event.Data = msg.Text
		event.Meta = marshalMeta(map[string]any{"example": msg.Example, "enabled": msg.State == setup.FieldEnabled})
	case setup.ProgressMsg:
		step := int(msg.Percentage / 10)
		if step == r.step && msg.Percentage < 100 {
			return Event{}, false
		}
		r.step = step
		event.Type = nats.EventTypeProgress
		event.Action = "update"
		event.Meta = marshalMeta(progressMeta{Percentage: msg.Percentage, Speed: msg.Speed})
	case setup.FolderOpenMsg:
		event.Type = nats.EventTypeFolder
		event.Action = "open"
		event.Data = msg.Folder
	default:
		return Event{}, false
	}
	return event, true
}

func marshalMeta(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
