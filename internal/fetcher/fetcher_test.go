package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/syncwizard/internal/setup"
)

const waitTimeout = 5 * time.Second

var fastKDF = &KDFParams{Time: 1, Memory: 1024, Threads: 1}

// eventLog records engine callbacks and lets a test block until one arrives.
type eventLog struct {
	mu       sync.Mutex
	names    []string
	progress []float64
	warnings []string
	types    []setup.StorageTypeInfo
	firstUse bool
	reason   string
	ch       chan string
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan string, 32)}
}

func (l *eventLog) record(name string, fn func()) {
	l.mu.Lock()
	l.names = append(l.names, name)
	if fn != nil {
		fn()
	}
	l.mu.Unlock()
	l.ch <- name
}

func (l *eventLog) OnProgress(pct float64, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, pct)
}

func (l *eventLog) OnSuccess(w []string) {
	l.record("success", func() { l.warnings = w })
}

func (l *eventLog) OnFailure(w []string) {
	l.record("failure", func() { l.warnings = w })
}

func (l *eventLog) OnStorageTypeRequired(types []setup.StorageTypeInfo) {
	l.record("storage", func() { l.types = types })
}

func (l *eventLog) OnEncryptionRequired(firstUse bool) {
	l.record("encryption", func() { l.firstUse = firstUse })
}

func (l *eventLog) OnEncryptionVerified(w []string) {
	l.record("verified", func() { l.warnings = w })
}

func (l *eventLog) OnEncryptionRejected(reason string) {
	l.record("rejected", func() { l.reason = reason })
}

func (l *eventLog) waitFor(t *testing.T, want string) {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case got := <-l.ch:
			if got == want {
				return
			}
			t.Fatalf("expected %s event, got %s", want, got)
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func newTestEngine(t *testing.T) (*Engine, string, string) {
	t.Helper()
	remotes := t.TempDir()
	projects := t.TempDir()
	e := New(Config{ProjectsDir: projects, Workers: 2, ProgressInterval: time.Hour, KDF: fastKDF})
	return e, remotes, projects
}

func begin(t *testing.T, e *Engine, req setup.FetchRequest, events *eventLog) *Fetch {
	t.Helper()
	f, err := e.BeginFetch(context.Background(), req, events)
	require.NoError(t, err)
	return f.(*Fetch)
}

func waitDone(t *testing.T, f *Fetch) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(waitTimeout):
		t.Fatal("fetch did not finish")
	}
}

func TestFetch_PlainRemote(t *testing.T) {
	e, remotes, projects := newTestEngine(t)
	remote := filepath.Join(remotes, "team")
	writeTree(t, remote, map[string]string{
		"README.md":         "hello",
		"docs/guide.txt":    "guide",
		".history/old.txt":  "old",
		"nested/deep/a.bin": "0123456789",
	})
	require.NoError(t, os.Symlink(filepath.Join(remote, "README.md"), filepath.Join(remote, "link")))

	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: "file://" + remotes, RemotePath: "/team", Folder: "Team Docs"}, events)
	events.waitFor(t, "success")
	waitDone(t, f)

	target := filepath.Join(projects, "team-docs")
	assert.Equal(t, target, f.Target())
	data, err := os.ReadFile(filepath.Join(target, "nested/deep/a.bin"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
	assert.FileExists(t, filepath.Join(target, "docs/guide.txt"))
	assert.NoDirExists(t, filepath.Join(target, HistoryDir))
	assert.NoFileExists(t, filepath.Join(target, "link"))

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []string{"skipped link: not a regular file"}, events.warnings)
	require.NotEmpty(t, events.progress)
	assert.Equal(t, float64(100), events.progress[len(events.progress)-1])

	m, err := readMarker(remote)
	require.NoError(t, err)
	assert.Equal(t, setup.StoragePlain, m.Storage)
}

func TestFetch_WithHistory(t *testing.T) {
	e, remotes, projects := newTestEngine(t)
	writeTree(t, remotes, map[string]string{"a.txt": "a", ".history/a.1": "a1"})

	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: remotes, Folder: "project", FetchHistory: true}, events)
	events.waitFor(t, "success")
	waitDone(t, f)

	assert.FileExists(t, filepath.Join(projects, "project", HistoryDir, "a.1"))
}

func TestFetch_EmptyRemoteAsksForStorage(t *testing.T) {
	e, remotes, projects := newTestEngine(t)

	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: "file://" + remotes, Folder: "fresh"}, events)
	events.waitFor(t, "storage")

	events.mu.Lock()
	assert.Equal(t, StorageTypes, events.types)
	events.mu.Unlock()

	assert.ErrorIs(t, f.SubmitPassword("nope"), ErrNotWaiting)
	assert.Error(t, f.SelectStorage("tape"))
	require.NoError(t, f.SelectStorage(setup.StoragePlain))
	assert.ErrorIs(t, f.SelectStorage(setup.StoragePlain), ErrNotWaiting)

	events.waitFor(t, "success")
	waitDone(t, f)

	assert.FileExists(t, filepath.Join(remotes, MarkerFile))
	assert.FileExists(t, filepath.Join(projects, "fresh", MarkerFile))
}

func TestFetch_EncryptedRoundTrip(t *testing.T) {
	e, remotes, _ := newTestEngine(t)

	// Create the encrypted remote.
	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: remotes, Folder: "first"}, events)
	events.waitFor(t, "storage")
	require.NoError(t, f.SelectStorage(setup.StorageEncrypted))
	events.waitFor(t, "encryption")
	events.mu.Lock()
	assert.True(t, events.firstUse)
	events.mu.Unlock()
	require.NoError(t, f.SubmitPassword("correct horse"))
	events.waitFor(t, "verified")
	waitDone(t, f)

	m, err := readMarker(remotes)
	require.NoError(t, err)
	require.Equal(t, setup.StorageEncrypted, m.Storage)
	assert.NotEmpty(t, m.Salt)
	assert.NotEmpty(t, m.Verifier)

	// Fetch it again and unlock it.
	writeTree(t, remotes, map[string]string{"secret.txt": "s"})
	events = newEventLog()
	f = begin(t, e, setup.FetchRequest{Address: remotes, Folder: "second"}, events)
	events.waitFor(t, "encryption")
	events.mu.Lock()
	assert.False(t, events.firstUse)
	events.mu.Unlock()

	require.NoError(t, f.SubmitPassword("wrong"))
	events.waitFor(t, "rejected")
	events.mu.Lock()
	assert.Equal(t, "The password is not correct.", events.reason)
	events.mu.Unlock()

	require.NoError(t, f.SubmitPassword("correct horse"))
	events.waitFor(t, "verified")
	waitDone(t, f)
	assert.FileExists(t, filepath.Join(f.Target(), "secret.txt"))
}

func TestFetch_CancelRemovesPartialTarget(t *testing.T) {
	e, remotes, _ := newTestEngine(t)
	require.NoError(t, writeMarker(remotes, &Marker{Storage: setup.StorageEncrypted, KDF: fastKDF, Salt: "AAAA", Verifier: "00"}))
	writeTree(t, remotes, map[string]string{"a.txt": "a"})

	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: remotes, Folder: "cancelled"}, events)
	events.waitFor(t, "encryption")
	assert.DirExists(t, f.Target())

	f.Cancel()
	f.Cancel()
	waitDone(t, f)

	assert.NoDirExists(t, f.Target())
	events.mu.Lock()
	assert.NotContains(t, events.names, "failure")
	events.mu.Unlock()
}

func TestFetch_CancelAfterCompletionKeepsTarget(t *testing.T) {
	e, remotes, _ := newTestEngine(t)
	writeTree(t, remotes, map[string]string{"a.txt": "a"})

	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: remotes, Folder: "kept"}, events)
	events.waitFor(t, "success")
	waitDone(t, f)

	f.Cancel()
	assert.DirExists(t, f.Target())
}

func TestFetch_BrokenMarkerFails(t *testing.T) {
	e, remotes, _ := newTestEngine(t)
	writeTree(t, remotes, map[string]string{MarkerFile: "storage: tape\n"})

	events := newEventLog()
	f := begin(t, e, setup.FetchRequest{Address: remotes, Folder: "broken"}, events)
	events.waitFor(t, "failure")
	waitDone(t, f)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.warnings, 1)
	assert.Contains(t, events.warnings[0], "unknown storage type")
	assert.NoDirExists(t, f.Target())
}

func TestBeginFetch_Errors(t *testing.T) {
	e, remotes, projects := newTestEngine(t)
	require.NoError(t, os.MkdirAll(filepath.Join(projects, "taken"), 0755))
	writeTree(t, remotes, map[string]string{"file.txt": "x"})

	tests := []struct {
		name    string
		req     setup.FetchRequest
		wantErr error
	}{
		{name: "ssh address", req: setup.FetchRequest{Address: "ssh://git@github.com/", RemotePath: "/a/b", Folder: "b"}, wantErr: ErrUnsupportedAddress},
		{name: "relative path", req: setup.FetchRequest{Address: "relative/dir", Folder: "x"}, wantErr: ErrUnsupportedAddress},
		{name: "missing remote", req: setup.FetchRequest{Address: remotes, RemotePath: "/missing", Folder: "missing"}, wantErr: os.ErrNotExist},
		{name: "target exists", req: setup.FetchRequest{Address: remotes, Folder: "taken"}, wantErr: ErrTargetExists},
		{name: "not a directory", req: setup.FetchRequest{Address: remotes, RemotePath: "file.txt", Folder: "f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := e.BeginFetch(context.Background(), tt.req, newEventLog())
			require.Error(t, err)
			assert.Nil(t, f)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.BeginFetch(ctx, setup.FetchRequest{Address: remotes, Folder: "late"}, newEventLog())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		address string
		path    string
		want    string
		wantErr bool
	}{
		{address: "file:///srv/remotes", path: "/team", want: "/srv/remotes/team"},
		{address: "file://localhost/srv", path: "", want: "/srv"},
		{address: "/srv/remotes/", path: "team/docs", want: "/srv/remotes/team/docs"},
		{address: "file://example.com/srv", wantErr: true},
		{address: "https://host/repo", wantErr: true},
		{address: "srv", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ResolveSource(tt.address, tt.path)
		if tt.wantErr {
			assert.Error(t, err, tt.address)
			continue
		}
		require.NoError(t, err, tt.address)
		assert.Equal(t, tt.want, got)
	}
}

func TestTargetDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", "my-project"), TargetDir("/p", "My Project"))
	assert.Equal(t, filepath.Join("/p", "project"), TargetDir("/p", "???"))
}

func TestMarker_Verify(t *testing.T) {
	m, err := newEncryptedMarker("correct horse", *fastKDF)
	require.NoError(t, err)

	ok, err := m.Verify("correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Verify("Correct horse")
	require.NoError(t, err)
	assert.False(t, ok)

	plain := &Marker{Storage: setup.StoragePlain}
	_, err = plain.Verify("x")
	assert.Error(t, err)
}
