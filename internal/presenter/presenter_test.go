package presenter

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/setup/setuptest"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		page setup.PageType
		want string
	}{
		{setup.PageSetup, "Welcome to syncwizard!"},
		{setup.PageSyncing, "Adding project 'docs'…"},
		{setup.PageCryptoPassword, "'docs' contains encrypted files"},
		{setup.PageFinished, "Your shared project is ready!"},
		{setup.PageHidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.page.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Header(tt.page, "docs"))
		})
	}
	assert.Empty(t, Description(setup.PageAdd))
	assert.NotEmpty(t, Description(setup.PageCryptoSetup))
}

func TestMailbox_ReceiveInOrder(t *testing.T) {
	mb := NewMailbox()
	mb.Send(1)
	mb.Send(2)
	require.Equal(t, 2, mb.Pending())

	ctx := context.Background()
	first, err := mb.Receive(ctx)
	require.NoError(t, err)
	second, err := mb.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []tea.Msg{1, 2}, []tea.Msg{first, second})
}

func TestMailbox_ReceiveWaits(t *testing.T) {
	mb := NewMailbox()
	go func() {
		time.Sleep(10 * time.Millisecond)
		mb.Send("late")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := mb.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "late", msg)
}

func TestMailbox_ContextAndClose(t *testing.T) {
	mb := NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mb.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	mb.Send("dropped")
	mb.Close()
	mb.Send("ignored")
	assert.Equal(t, 0, mb.Pending())
}

func TestForwarder_DeliversControllerNotifications(t *testing.T) {
	mb := NewMailbox()
	c := setup.New(setup.Config{
		Engine:   setuptest.NewFakeEngine(),
		Identity: setup.Identity{Name: "Ada", Email: "ada@example.com"},
	})
	c.Subscribe(NewForwarder(mb))

	c.Start()

	ctx := context.Background()
	msg, err := mb.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, setup.WindowVisibilityMsg{Visible: true}, msg)

	msg, err = mb.Receive(ctx)
	require.NoError(t, err)
	page, ok := msg.(setup.PageChangedMsg)
	require.True(t, ok)
	assert.Equal(t, setup.PageAdd, page.Page)
}

func newTestConsole() (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.SetProfile(colorprofile.NoTTY)
	return c, &buf
}

func TestConsole_Pages(t *testing.T) {
	c, buf := newTestConsole()

	c.Notify(setup.WindowVisibilityMsg{Visible: true})
	c.Notify(setup.PageChangedMsg{Page: setup.PageInvite, Warnings: []string{}, Context: setup.PageContext{
		Invite: &setup.Invite{Address: "ssh://host/", RemotePath: "/docs"},
	}})
	c.Notify(setup.PageChangedMsg{Page: setup.PageSyncing, Context: setup.PageContext{Folder: "docs", URL: "ssh://host/docs"}})
	c.Notify(setup.PageChangedMsg{Page: setup.PageStorageSetup, Context: setup.PageContext{
		StorageTypes: []setup.StorageTypeInfo{{Type: setup.StoragePlain, Name: "Plain storage", Description: "Nothing fancy"}},
	}})
	c.Notify(setup.PageChangedMsg{Page: setup.PageError, Warnings: []string{"host unreachable"}})
	c.Notify(setup.PageChangedMsg{Page: setup.PageFinished, Warnings: []string{"skipped link"}})
	c.Notify(setup.PageChangedMsg{Page: setup.PageHidden})
	c.Notify(setup.WindowVisibilityMsg{Visible: false})

	out := buf.String()
	assert.Contains(t, out, "You've received an invite!")
	assert.Contains(t, out, "Address:     ssh://host/")
	assert.Contains(t, out, "Adding project 'docs'…")
	assert.Contains(t, out, "ssh://host/docs")
	assert.Contains(t, out, "Storage type for 'docs'")
	assert.Contains(t, out, "1. Plain storage  Nothing fancy")
	assert.Contains(t, out, "✗ host unreachable")
	assert.Contains(t, out, "! skipped link")
	assert.Contains(t, out, "Wizard closed.")
	assert.NotContains(t, out, "\x1b[")
}

func TestConsole_Fields(t *testing.T) {
	c, buf := newTestConsole()

	c.Notify(setup.AddressFieldMsg{Text: "ssh://git@github.com/", State: setup.FieldDisabled})
	c.Notify(setup.PathFieldMsg{Example: "/project", State: setup.FieldEnabled})
	c.Notify(setup.FolderOpenMsg{Folder: "/home/ada/docs"})

	out := buf.String()
	assert.Contains(t, out, "Address: ssh://git@github.com/ (fixed)")
	assert.Contains(t, out, "Remote path: /project\n")
	assert.Contains(t, out, "Files are in /home/ada/docs")
}

func TestConsole_ProgressPrintsWholePercentChanges(t *testing.T) {
	c, buf := newTestConsole()

	c.Notify(setup.PageChangedMsg{Page: setup.PageSyncing, Context: setup.PageContext{Folder: "docs"}})
	buf.Reset()
	for _, pct := range []float64{0, 0.4, 12.2, 12.9, 100} {
		c.Notify(setup.ProgressMsg{Percentage: pct, Speed: "1.0 MB/s"})
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "  0%")
	assert.Contains(t, string(lines[1]), " 12% 1.0 MB/s")
	assert.Contains(t, string(lines[2]), "100%")

	// A new sync starts counting again.
	c.Notify(setup.PageChangedMsg{Page: setup.PageSyncing})
	buf.Reset()
	c.Notify(setup.ProgressMsg{Percentage: 0})
	assert.Contains(t, buf.String(), "  0%")
}
