package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName    = "syncwizard_events"
	subjectPrefix = "syncwizard"

	// Event types, one per notification kind.
	EventTypeWindow   = "window"
	EventTypePage     = "page"
	EventTypeButton   = "button"
	EventTypeField    = "field"
	EventTypeProgress = "progress"
	EventTypeFolder   = "folder"
)

// SubjectForRun returns the wildcard subject for all events of a run.
// Example: "syncwizard.run-42.>"
func SubjectForRun(run string) string {
	return fmt.Sprintf("%s.%s.>", subjectPrefix, run)
}

// SubjectForEvent returns the subject for one event type of a run.
// Example: "syncwizard.run-42.page"
func SubjectForEvent(run, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, run, eventType)
}

// RunFromSubject extracts the run token from an event subject.
func RunFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != subjectPrefix {
		return "", false
	}
	return parts[1], true
}

// SetupStream creates or updates the stream holding every run's events,
// kept for 30 days.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
}

// AllSubjects is the filter matching every run.
func AllSubjects() string {
	return subjectPrefix + ".>"
}
