package presenter

import (
	"context"
	"sync"

	tea "charm.land/bubbletea/v2"

	"github.com/mark3labs/syncwizard/internal/setup"
)

// Sender is the part of *tea.Program the forwarder needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Forwarder hands every notification to a bubbletea program, where it
// arrives in Update on the program's own goroutine. Actions triggered by
// those messages must run from a tea.Cmd, never from Update itself: the
// controller holds its lock while Send blocks.
type Forwarder struct {
	sender Sender
}

// NewForwarder creates a forwarder for sender.
func NewForwarder(sender Sender) *Forwarder {
	return &Forwarder{sender: sender}
}

// Notify implements setup.Observer.
func (f *Forwarder) Notify(n setup.Notification) {
	f.sender.Send(n)
}

// Mailbox is a Sender with an unbounded queue. Send never blocks, so a
// console driver can read notifications and call actions on one goroutine.
type Mailbox struct {
	mu     sync.Mutex
	queue  []tea.Msg
	wake   chan struct{}
	closed bool
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{wake: make(chan struct{}, 1)}
}

// Send queues msg. Messages sent after Close are dropped.
func (m *Mailbox) Send(msg tea.Msg) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Receive returns the oldest queued message, waiting for one if needed.
// It returns ctx.Err() when ctx ends first.
func (m *Mailbox) Receive(ctx context.Context) (tea.Msg, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Pending reports how many messages are queued.
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close drops queued messages and ignores later sends.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue = nil
}
