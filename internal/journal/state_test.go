package journal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mark3labs/syncwizard/internal/nats"
)

func TestRunState_Apply(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	warn, _ := json.Marshal(pageMeta{Warnings: []string{"w"}})

	tests := []struct {
		name   string
		events []Event
		check  func(t *testing.T, st *RunState)
	}{
		{
			name:   "no events",
			events: nil,
			check: func(t *testing.T, st *RunState) {
				assert.Equal(t, OutcomeOpen, st.Outcome)
				assert.Empty(t, st.Pages)
			},
		},
		{
			name: "first shown wins",
			events: []Event{
				{Type: nats.EventTypeWindow, Action: "shown", Timestamp: start},
				{Type: nats.EventTypeWindow, Action: "shown", Timestamp: start.Add(time.Minute)},
			},
			check: func(t *testing.T, st *RunState) {
				assert.Equal(t, start, st.StartedAt)
				assert.True(t, st.EndedAt.IsZero())
			},
		},
		{
			name: "hidden before any page is cancelled",
			events: []Event{
				{Type: nats.EventTypePage, Action: "hidden"},
			},
			check: func(t *testing.T, st *RunState) {
				assert.Equal(t, OutcomeCancelled, st.Outcome)
				assert.Empty(t, st.Pages)
			},
		},
		{
			name: "warnings survive pages without any",
			events: []Event{
				{Type: nats.EventTypePage, Action: "error", Meta: warn},
				{Type: nats.EventTypePage, Action: "syncing"},
			},
			check: func(t *testing.T, st *RunState) {
				assert.Equal(t, []string{"w"}, st.Warnings)
				assert.Equal(t, 1, st.Failures)
			},
		},
		{
			name: "bad progress meta is ignored",
			events: []Event{
				{Type: nats.EventTypeProgress, Meta: json.RawMessage(`{"percentage":40}`)},
				{Type: nats.EventTypeProgress, Meta: json.RawMessage(`nope`)},
			},
			check: func(t *testing.T, st *RunState) {
				assert.Equal(t, float64(40), st.Progress)
			},
		},
		{
			name: "buttons and fields do not change state",
			events: []Event{
				{Type: nats.EventTypeButton, Action: "enabled", Data: "continue"},
				{Type: nats.EventTypeField, Action: "address"},
			},
			check: func(t *testing.T, st *RunState) {
				assert.Empty(t, st.Pages)
				assert.False(t, st.Opened)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewRunState("r")
			for _, e := range tt.events {
				st.Apply(e)
			}
			tt.check(t, st)
		})
	}
}

func TestNewRunName(t *testing.T) {
	a := NewRunName("My Run")
	b := NewRunName("My Run")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^my-run-[0-9]{8}-[0-9]{6}-[0-9]+$`, a)
	assert.NotContains(t, NewRunName(""), ".")
	assert.Regexp(t, `^run-`, NewRunName(""))
}
