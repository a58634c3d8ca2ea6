package journal

import (
	"encoding/json"
	"time"

	"github.com/mark3labs/syncwizard/internal/nats"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// Outcomes of a run.
const (
	OutcomeOpen      = "open"
	OutcomeFinished  = "finished"
	OutcomeCancelled = "cancelled"
)

// RunState is a wizard run rebuilt from its events.
type RunState struct {
	Run       string    `json:"run"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	// Pages lists every page shown, in order.
	Pages []string `json:"pages"`
	// Warnings are those of the last page that carried any.
	Warnings []string `json:"warnings"`
	Failures int      `json:"failures"`
	Progress float64  `json:"progress"`
	Folder   string   `json:"folder,omitempty"`
	URL      string   `json:"url,omitempty"`
	Opened   bool     `json:"opened"`
	Outcome  string   `json:"outcome"`
}

// NewRunState returns the state of a run with no events.
func NewRunState(run string) *RunState {
	return &RunState{Run: run, Outcome: OutcomeOpen}
}

type pageMeta struct {
	Warnings []string `json:"warnings,omitempty"`
	Folder   string   `json:"folder,omitempty"`
	URL      string   `json:"url,omitempty"`
}

type progressMeta struct {
	Percentage float64 `json:"percentage"`
	Speed      string  `json:"speed,omitempty"`
}

// Apply folds one event into the state.
func (st *RunState) Apply(event Event) {
	switch event.Type {
	case nats.EventTypeWindow:
		st.applyWindow(event)
	case nats.EventTypePage:
		st.applyPage(event)
	case nats.EventTypeProgress:
		var meta progressMeta
		if json.Unmarshal(event.Meta, &meta) == nil {
			st.Progress = meta.Percentage
		}
	case nats.EventTypeFolder:
		st.Opened = true
	}
}

func (st *RunState) applyWindow(event Event) {
	switch event.Action {
	case "shown":
		if st.StartedAt.IsZero() {
			st.StartedAt = event.Timestamp
		}
	case "hidden":
		st.EndedAt = event.Timestamp
	}
}

func (st *RunState) applyPage(event Event) {
	page := event.Action
	if page == setup.PageHidden.String() {
		if st.lastPage() == setup.PageFinished.String() {
			st.Outcome = OutcomeFinished
		} else {
			st.Outcome = OutcomeCancelled
		}
		return
	}

	var meta pageMeta
	_ = json.Unmarshal(event.Meta, &meta)
	st.Pages = append(st.Pages, page)
	if len(meta.Warnings) > 0 {
		st.Warnings = meta.Warnings
	}
	if meta.Folder != "" {
		st.Folder = meta.Folder
	}
	if meta.URL != "" {
		st.URL = meta.URL
	}
	if page == setup.PageError.String() {
		st.Failures++
	}
}

func (st *RunState) lastPage() string {
	if len(st.Pages) == 0 {
		return ""
	}
	return st.Pages[len(st.Pages)-1]
}
