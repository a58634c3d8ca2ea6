package presenter

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/setup/setuptest"
)

func lines(l ...string) io.Reader {
	return strings.NewReader(strings.Join(l, "\n") + "\n")
}

func newDriverController(t *testing.T, catalog *preset.Catalog, identity setup.Identity) (*setup.Controller, *setuptest.FakeEngine) {
	t.Helper()
	engine := setuptest.NewFakeEngine()
	c := setup.New(setup.Config{
		Catalog:          catalog,
		Engine:           engine,
		Identity:         identity,
		ProgressInterval: -1,
	})
	return c, engine
}

func TestDriver_SetupAddFinish(t *testing.T) {
	hub := "ssh://git@hub/"
	catalog, err := preset.New([]preset.Preset{
		{Name: "Own server"},
		{Name: "Hub", Address: &hub},
	})
	require.NoError(t, err)
	c, engine := newDriverController(t, catalog, setup.Identity{})
	engine.OnBegin = func(f *setuptest.FakeFetch) { f.Events.OnSuccess(nil) }

	var out bytes.Buffer
	d := NewDriver(c, lines(
		"Ada", "ada@example.com", // setup
		"1", "file:///srv", "/docs", "", // add: preset, address, path, history
		"y", // show files
	), &out)

	res, err := d.Run(context.Background(), c.Start)
	require.NoError(t, err)
	assert.Equal(t, &Result{Finished: true, Folder: "docs", Opened: "docs"}, res)
	assert.Equal(t, setup.PageHidden, c.Page())

	f := engine.Last()
	require.NotNil(t, f)
	assert.Equal(t, "file:///srv", f.Request.Address)
	assert.Equal(t, "/docs", f.Request.RemotePath)
	assert.False(t, f.Request.FetchHistory)
	assert.Equal(t, setup.Identity{Name: "Ada", Email: "ada@example.com"}, c.Identity())

	assert.Contains(t, out.String(), "1. Own server")
	assert.Contains(t, out.String(), "0. Own address")
}

func TestDriver_FixedAddressIsNotAsked(t *testing.T) {
	hub := "ssh://git@hub/"
	catalog, err := preset.New([]preset.Preset{{Name: "Hub", Address: &hub}})
	require.NoError(t, err)
	c, engine := newDriverController(t, catalog, setup.Identity{Name: "Ada", Email: "ada@example.com"})
	engine.OnBegin = func(f *setuptest.FakeFetch) { f.Events.OnSuccess(nil) }

	var out bytes.Buffer
	d := NewDriver(c, lines("", "/ada/notes", "y", ""), &out)

	res, err := d.Run(context.Background(), c.Start)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Empty(t, res.Opened)
	assert.NotContains(t, out.String(), "Address")
	assert.Equal(t, hub, engine.Last().Request.Address)
	assert.True(t, engine.Last().Request.FetchHistory)
}

func TestDriver_InvalidSetupRepromptsThenInputEnds(t *testing.T) {
	c, engine := newDriverController(t, nil, setup.Identity{})

	var out bytes.Buffer
	d := NewDriver(c, lines("Ada", "not-an-email"), &out)

	res, err := d.Run(context.Background(), c.Start)
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.Equal(t, setup.PageHidden, c.Page())
	assert.Zero(t, engine.Calls())
	assert.Contains(t, out.String(), "A name and a valid email address are required.")
	assert.Equal(t, 2, strings.Count(out.String(), "Full name"))
}

func TestDriver_PasswordRejectedThenAccepted(t *testing.T) {
	c, engine := newDriverController(t, nil, setup.Identity{Name: "Ada", Email: "ada@example.com"})
	engine.OnBegin = func(f *setuptest.FakeFetch) {
		f.OnPassword = func(f *setuptest.FakeFetch, password string) {
			if password == "right" {
				f.Events.OnEncryptionVerified(nil)
			} else {
				f.Events.OnEncryptionRejected("wrong password")
			}
		}
		f.Events.OnEncryptionRequired(false)
	}

	passwords := []string{"wrong", "right"}
	var out bytes.Buffer
	d := NewDriver(c, lines("file:///srv", "/vault", "", ""), &out)
	d.ReadPassword = func() (string, error) {
		p := passwords[0]
		passwords = passwords[1:]
		return p, nil
	}

	res, err := d.Run(context.Background(), c.Start)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, []string{"wrong", "right"}, engine.Last().Passwords())
	assert.Contains(t, out.String(), "That password can't be used.")
}

func TestDriver_StorageChoice(t *testing.T) {
	c, engine := newDriverController(t, nil, setup.Identity{Name: "Ada", Email: "ada@example.com"})
	engine.OnBegin = func(f *setuptest.FakeFetch) {
		f.Events.OnStorageTypeRequired([]setup.StorageTypeInfo{
			{Type: setup.StoragePlain, Name: "Plain"},
			{Type: setup.StorageEncrypted, Name: "Encrypted"},
		})
	}

	go func() {
		for {
			if f := engine.Last(); f != nil && len(f.SelectedStorage()) > 0 {
				f.Events.OnSuccess(nil)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	var out bytes.Buffer
	d := NewDriver(c, lines("file:///srv", "/new", "", "9", "1", ""), &out)

	res, err := d.Run(context.Background(), c.Start)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, []setup.StorageType{setup.StoragePlain}, engine.Last().SelectedStorage())
	assert.Contains(t, out.String(), "Pick a number between 1 and 2.")
}

func TestDriver_ErrorRetry(t *testing.T) {
	c, engine := newDriverController(t, nil, setup.Identity{Name: "Ada", Email: "ada@example.com"})
	engine.OnBegin = func(f *setuptest.FakeFetch) {
		if len(engine.Fetches()) == 1 {
			f.Events.OnFailure([]string{"host unreachable"})
			return
		}
		f.Events.OnSuccess(nil)
	}

	d := NewDriver(c, lines("file:///srv", "/docs", "", "", "n"), io.Discard)

	res, err := d.Run(context.Background(), c.Start)
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, 2, engine.Calls())
}

func TestDriver_InviteDeclined(t *testing.T) {
	c, engine := newDriverController(t, nil, setup.Identity{Name: "Ada", Email: "ada@example.com"})

	d := NewDriver(c, lines("n"), io.Discard)
	res, err := d.Run(context.Background(), func() {
		c.InviteReceived(setup.Invite{Address: "ssh://host/", RemotePath: "/team/docs"})
	})
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.Zero(t, engine.Calls())
}

// endless answers every prompt with the same line, forever.
type endless string

func (e endless) Read(p []byte) (int, error) {
	line := string(e) + "\n"
	n := 0
	for n+len(line) <= len(p) {
		n += copy(p[n:], line)
	}
	if n == 0 {
		n = copy(p, line)
	}
	return n, nil
}

func TestDriver_StopsReadingAfterRun(t *testing.T) {
	c, _ := newDriverController(t, nil, setup.Identity{Name: "Ada", Email: "ada@example.com"})

	d := NewDriver(c, endless("n"), io.Discard)
	_, err := d.Run(context.Background(), func() {
		c.InviteReceived(setup.Invite{Address: "ssh://host/", RemotePath: "/team/docs"})
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-d.lines:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "input reader still running after Run returned")
}

func TestDriver_ContextCancelled(t *testing.T) {
	c, _ := newDriverController(t, nil, setup.Identity{})
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	d := NewDriver(c, pr, io.Discard)
	_, err := d.Run(ctx, c.Start)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, setup.PageHidden, c.Page())
}
