package tui

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/mark3labs/syncwizard/internal/presenter"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// Result is what the wizard ended with.
type Result struct {
	Finished bool
	Folder   string
	Opened   string
}

// Run shows the wizard for c until it is hidden. start opens it, usually
// c.Start or a closure calling c.InviteReceived.
func Run(ctx context.Context, c *setup.Controller, identity setup.Identity, start func()) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	actions := presenter.NewMailbox()
	defer actions.Close()
	go serveActions(ctx, actions)

	m := New(c, Options{
		Presets:  c.Presets(),
		Identity: identity,
		Start:    start,
		Exec:     func(fn func()) { actions.Send(fn) },
	})

	p := tea.NewProgram(m, tea.WithContext(ctx))
	unsubscribe := c.Subscribe(presenter.NewForwarder(p))
	defer unsubscribe()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	final, ok := finalModel.(*Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	return &Result{Finished: final.Finished(), Folder: final.Folder(), Opened: final.Opened()}, nil
}

// serveActions runs queued actions one at a time, in order.
func serveActions(ctx context.Context, mb *presenter.Mailbox) {
	for {
		msg, err := mb.Receive(ctx)
		if err != nil {
			return
		}
		if fn, ok := msg.(func()); ok {
			fn()
		}
	}
}
