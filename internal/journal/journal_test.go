package journal

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/syncwizard/internal/nats"
	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/setup/setuptest"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	j, err := nats.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return NewStore(j.JS, j.Stream)
}

func meta(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func publishAll(t *testing.T, store *Store, events []Event) {
	t.Helper()
	for _, e := range events {
		_, err := store.PublishEvent(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestStore_LoadRunFinished(t *testing.T) {
	store := openStore(t)
	run := "run-finished"

	publishAll(t, store, []Event{
		{Run: run, Type: nats.EventTypeWindow, Action: "shown"},
		{Run: run, Type: nats.EventTypePage, Action: "add"},
		{Run: run, Type: nats.EventTypeField, Action: "address", Data: "file:///srv"},
		{Run: run, Type: nats.EventTypePage, Action: "syncing", Meta: meta(t, pageMeta{Folder: "project", URL: "file:///srv/project"})},
		{Run: run, Type: nats.EventTypeProgress, Action: "update", Meta: meta(t, progressMeta{Percentage: 50})},
		{Run: run, Type: nats.EventTypePage, Action: "finished", Meta: meta(t, pageMeta{Warnings: []string{"skipped link"}, Folder: "project"})},
		{Run: run, Type: nats.EventTypeFolder, Action: "open", Data: "project"},
		{Run: run, Type: nats.EventTypeWindow, Action: "hidden"},
		{Run: run, Type: nats.EventTypePage, Action: "hidden"},
	})

	state, err := store.LoadRun(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, run, state.Run)
	assert.Equal(t, []string{"add", "syncing", "finished"}, state.Pages)
	assert.Equal(t, []string{"skipped link"}, state.Warnings)
	assert.Equal(t, "project", state.Folder)
	assert.Equal(t, "file:///srv/project", state.URL)
	assert.Equal(t, float64(50), state.Progress)
	assert.True(t, state.Opened)
	assert.Equal(t, OutcomeFinished, state.Outcome)
	assert.False(t, state.StartedAt.IsZero())
	assert.False(t, state.EndedAt.IsZero())
}

func TestStore_LoadRunCancelledAfterFailures(t *testing.T) {
	store := openStore(t)
	run := "run-cancelled"

	publishAll(t, store, []Event{
		{Run: run, Type: nats.EventTypePage, Action: "syncing"},
		{Run: run, Type: nats.EventTypePage, Action: "error", Meta: meta(t, pageMeta{Warnings: []string{"connection refused"}})},
		{Run: run, Type: nats.EventTypePage, Action: "syncing"},
		{Run: run, Type: nats.EventTypePage, Action: "error", Meta: meta(t, pageMeta{Warnings: []string{"still refused"}})},
		{Run: run, Type: nats.EventTypePage, Action: "hidden"},
	})
	// Another run's events stay out.
	publishAll(t, store, []Event{{Run: "other", Type: nats.EventTypePage, Action: "finished"}})

	state, err := store.LoadRun(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, 2, state.Failures)
	assert.Equal(t, []string{"still refused"}, state.Warnings)
	assert.Equal(t, OutcomeCancelled, state.Outcome)
	assert.NotContains(t, state.Pages, "finished")
}

func TestStore_LoadRunUnknown(t *testing.T) {
	store := openStore(t)

	state, err := store.LoadRun(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, state.Pages)
	assert.Equal(t, OutcomeOpen, state.Outcome)
}

func TestStore_ListRuns(t *testing.T) {
	store := openStore(t)
	publishAll(t, store, []Event{
		{Run: "run-b", Type: nats.EventTypePage, Action: "add"},
		{Run: "run-a", Type: nats.EventTypePage, Action: "add"},
		{Run: "run-b", Type: nats.EventTypeWindow, Action: "hidden"},
	})

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, runs)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *fakePublisher) PublishEvent(_ context.Context, e Event) (*jetstream.PubAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return &jetstream.PubAck{Sequence: uint64(len(p.events))}, nil
}

func (p *fakePublisher) ofType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func runWizard(t *testing.T, obs setup.Observer) {
	t.Helper()
	engine := setuptest.NewFakeEngine()
	c := setup.New(setup.Config{
		Engine:           engine,
		Identity:         setup.Identity{Name: "Ada", Email: "ada@example.com"},
		ProgressInterval: -1,
	})
	c.Subscribe(obs)

	c.Start()
	c.AddPageCompleted("file:///srv", "/project")
	f := engine.Last()
	require.NotNil(t, f)
	for _, pct := range []float64{5, 7, 15, 100} {
		f.Events.OnProgress(pct, "")
	}
	f.Events.OnSuccess(nil)
	c.FinishPageCompleted()
}

func TestRecorder_ProgressSteps(t *testing.T) {
	pub := &fakePublisher{}
	rec := NewRecorder(pub, "test")
	rec.Start(context.Background())

	runWizard(t, rec)
	rec.Close()

	var got []float64
	for _, e := range pub.ofType(nats.EventTypeProgress) {
		var m progressMeta
		require.NoError(t, json.Unmarshal(e.Meta, &m))
		got = append(got, m.Percentage)
	}
	assert.Equal(t, []float64{0, 15, 100}, got)

	run := rec.Run()
	assert.Contains(t, run, "test-")
	for _, e := range pub.ofType(nats.EventTypePage) {
		assert.Equal(t, run, e.Run)
	}
}

func TestRecorder_NewRunPerWindow(t *testing.T) {
	pub := &fakePublisher{}
	rec := NewRecorder(pub, "")
	rec.Start(context.Background())

	rec.Notify(setup.WindowVisibilityMsg{Visible: true})
	first := rec.Run()
	rec.Notify(setup.WindowVisibilityMsg{Visible: false})
	rec.Notify(setup.WindowVisibilityMsg{Visible: true})
	second := rec.Run()
	rec.Close()

	assert.NotEqual(t, first, second)
	windows := pub.ofType(nats.EventTypeWindow)
	require.Len(t, windows, 3)
	assert.Equal(t, first, windows[1].Run)

	// Closed recorders ignore further notifications.
	rec.Notify(setup.FolderOpenMsg{Folder: "x"})
	assert.Empty(t, pub.ofType(nats.EventTypeFolder))
}

func TestRecorder_EndToEnd(t *testing.T) {
	store := openStore(t)
	rec := NewRecorder(store, "e2e")
	rec.Start(context.Background())

	runWizard(t, rec)
	rec.Close()

	state, err := store.LoadRun(context.Background(), rec.Run())
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "syncing", "finished"}, state.Pages)
	assert.Equal(t, OutcomeFinished, state.Outcome)
	assert.Equal(t, float64(100), state.Progress)
	assert.Equal(t, "project", state.Folder)
	assert.Equal(t, "file:///srv/project", state.URL)
}
