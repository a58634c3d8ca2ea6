// Package setuptest provides a scriptable sync engine and a notification
// recorder for testing code built on the setup controller.
//
//	engine := setuptest.NewFakeEngine()
//	rec := setuptest.NewRecorder()
//	c := setup.New(setup.Config{Engine: engine})
//	c.Subscribe(rec)
//
//	c.Start()
//	c.AddPageCompleted("file:///srv", "/project")
//	engine.Last().Events.OnSuccess(nil)
//
// Both types are safe for concurrent use.
package setuptest

import (
	"context"
	"sync"

	"github.com/mark3labs/syncwizard/internal/setup"
)

// FakeEngine records every BeginFetch and hands back a FakeFetch the test
// drives by calling its Events directly.
type FakeEngine struct {
	mu sync.Mutex

	// StartError is returned from BeginFetch when set.
	StartError error
	// OnBegin, when set, runs inside BeginFetch before it returns.
	OnBegin func(f *FakeFetch)

	fetches         []*FakeFetch
	BeginFetchCalls int
}

// NewFakeEngine creates an engine with no scripted behavior.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{}
}

// BeginFetch records the request.
func (e *FakeEngine) BeginFetch(ctx context.Context, req setup.FetchRequest, events setup.EngineEvents) (setup.Fetch, error) {
	e.mu.Lock()
	e.BeginFetchCalls++
	if e.StartError != nil {
		err := e.StartError
		e.mu.Unlock()
		return nil, err
	}
	f := &FakeFetch{Request: req, Events: events, ctx: ctx}
	e.fetches = append(e.fetches, f)
	onBegin := e.OnBegin
	e.mu.Unlock()

	if onBegin != nil {
		onBegin(f)
	}
	return f, nil
}

// Calls returns how many times BeginFetch ran.
func (e *FakeEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.BeginFetchCalls
}

// Fetches returns every fetch started so far, oldest first.
func (e *FakeEngine) Fetches() []*FakeFetch {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*FakeFetch, len(e.fetches))
	copy(out, e.fetches)
	return out
}

// Last returns the most recent fetch, or nil.
func (e *FakeEngine) Last() *FakeFetch {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.fetches) == 0 {
		return nil
	}
	return e.fetches[len(e.fetches)-1]
}

// FakeFetch is the handle FakeEngine returns.
type FakeFetch struct {
	Request setup.FetchRequest
	Events  setup.EngineEvents

	// SelectStorageError and SubmitPasswordError are returned when set.
	SelectStorageError  error
	SubmitPasswordError error
	// OnPassword, when set, runs inside SubmitPassword.
	OnPassword func(f *FakeFetch, password string)

	ctx context.Context

	mu        sync.Mutex
	cancelled int
	storage   []setup.StorageType
	passwords []string
}

// SelectStorage records t.
func (f *FakeFetch) SelectStorage(t setup.StorageType) error {
	f.mu.Lock()
	f.storage = append(f.storage, t)
	err := f.SelectStorageError
	f.mu.Unlock()
	return err
}

// SubmitPassword records password.
func (f *FakeFetch) SubmitPassword(password string) error {
	f.mu.Lock()
	f.passwords = append(f.passwords, password)
	err := f.SubmitPasswordError
	hook := f.OnPassword
	f.mu.Unlock()

	if err == nil && hook != nil {
		hook(f, password)
	}
	return err
}

// Cancel counts cancellations.
func (f *FakeFetch) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

// Cancelled reports whether Cancel was called or the fetch context ended.
func (f *FakeFetch) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled > 0 || f.ctx.Err() != nil
}

// CancelCalls returns how many times Cancel ran.
func (f *FakeFetch) CancelCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// SelectedStorage returns every storage type passed to SelectStorage.
func (f *FakeFetch) SelectedStorage() []setup.StorageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]setup.StorageType(nil), f.storage...)
}

// Passwords returns every password passed to SubmitPassword.
func (f *FakeFetch) Passwords() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.passwords...)
}

// Recorder is an observer that keeps every notification in order.
type Recorder struct {
	mu   sync.Mutex
	msgs []setup.Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends n.
func (r *Recorder) Notify(n setup.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, n)
}

// All returns the recorded notifications in order.
func (r *Recorder) All() []setup.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]setup.Notification, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

// Last returns the most recent notification, or nil.
func (r *Recorder) Last() setup.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return nil
	}
	return r.msgs[len(r.msgs)-1]
}

// Pages returns the page of every PageChangedMsg in order.
func (r *Recorder) Pages() []setup.PageType {
	var pages []setup.PageType
	for _, n := range r.All() {
		if msg, ok := n.(setup.PageChangedMsg); ok {
			pages = append(pages, msg.Page)
		}
	}
	return pages
}

// LastOf returns the most recent notification of type T.
func LastOf[T setup.Notification](r *Recorder) (T, bool) {
	all := r.All()
	for i := len(all) - 1; i >= 0; i-- {
		if msg, ok := all[i].(T); ok {
			return msg, true
		}
	}
	var zero T
	return zero, false
}

// AllOf returns every recorded notification of type T in order.
func AllOf[T setup.Notification](r *Recorder) []T {
	var out []T
	for _, n := range r.All() {
		if msg, ok := n.(T); ok {
			out = append(out, msg)
		}
	}
	return out
}
