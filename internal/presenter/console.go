package presenter

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/colorprofile"

	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

const progressBarWidth = 30

// Console prints notifications as styled lines. Colors are downsampled to
// what the output supports.
type Console struct {
	mu      sync.Mutex
	out     *colorprofile.Writer
	theme   *theme.Theme
	folder  string
	percent int
}

// NewConsole creates a console printer writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		out:     colorprofile.NewWriter(w, os.Environ()),
		theme:   theme.Current(),
		percent: -1,
	}
}

// SetProfile overrides the detected color profile.
func (c *Console) SetProfile(p colorprofile.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.Profile = p
}

// Notify implements setup.Observer.
func (c *Console) Notify(n setup.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.theme.S()
	switch msg := n.(type) {
	case setup.WindowVisibilityMsg:
		if !msg.Visible {
			c.println(s.Muted.Render("Wizard closed."))
		}
	case setup.PageChangedMsg:
		c.page(msg)
	case setup.AddressFieldMsg:
		c.field("Address", msg.Text, msg.Example, msg.State)
	case setup.PathFieldMsg:
		c.field("Remote path", msg.Text, msg.Example, msg.State)
	case setup.ProgressMsg:
		pct := int(math.Floor(msg.Percentage))
		if pct == c.percent {
			return
		}
		c.percent = pct
		line := fmt.Sprintf("%s %3d%%", c.theme.ProgressBar(msg.Percentage, progressBarWidth), pct)
		if msg.Speed != "" {
			line += " " + s.Muted.Render(msg.Speed)
		}
		c.println(line)
	case setup.FolderOpenMsg:
		c.println(s.Info.Render("Files are in " + msg.Folder))
	}
}

func (c *Console) page(msg setup.PageChangedMsg) {
	if msg.Page == setup.PageHidden {
		return
	}
	s := c.theme.S()
	if msg.Context.Folder != "" {
		c.folder = msg.Context.Folder
	}
	if msg.Page == setup.PageSyncing {
		c.percent = -1
	}

	c.println("")
	c.println(s.ModalTitle.Render(Header(msg.Page, c.folder)))
	if d := Description(msg.Page); d != "" {
		c.println(s.Label.Render(d))
	}

	switch msg.Page {
	case setup.PageInvite:
		if inv := msg.Context.Invite; inv != nil {
			c.println(s.Text.Render("  Address:     " + inv.Address))
			c.println(s.Text.Render("  Remote path: " + inv.RemotePath))
		}
	case setup.PageSyncing:
		if msg.Context.URL != "" {
			c.println(s.Muted.Render("  " + msg.Context.URL))
		}
	case setup.PageStorageSetup:
		for i, st := range msg.Context.StorageTypes {
			c.println(fmt.Sprintf("  %s %s  %s", s.HintKey.Render(fmt.Sprintf("%d.", i+1)), s.Text.Render(st.Name), s.Muted.Render(st.Description)))
		}
	}

	style := s.Warning
	prefix := "! "
	if msg.Page == setup.PageError {
		style = s.Error
		prefix = "✗ "
	}
	for _, w := range msg.Warnings {
		c.println(style.Render(prefix + w))
	}
	if msg.Page == setup.PageFinished && len(msg.Warnings) == 0 {
		c.println(s.Success.Render("✓ " + c.folder))
	}
}

func (c *Console) field(label, text, example string, state setup.FieldState) {
	s := c.theme.S()
	var b strings.Builder
	b.WriteString(s.Label.Render(label + ": "))
	if text != "" {
		b.WriteString(s.Text.Render(text))
	} else if example != "" {
		b.WriteString(s.Muted.Render(example))
	}
	if state == setup.FieldDisabled {
		b.WriteString(s.Muted.Render(" (fixed)"))
	}
	c.println("  " + b.String())
}

func (c *Console) println(line string) {
	_, _ = fmt.Fprintln(c.out, line)
}
