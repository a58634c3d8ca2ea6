package setup

import "sync"

// Observer receives controller notifications. Notify runs while the controller
// holds its lock, so it must not call controller actions directly.
type Observer interface {
	Notify(Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Notification)

// Notify calls f(n).
func (f ObserverFunc) Notify(n Notification) { f(n) }

type subscription struct {
	id       uint64
	observer Observer
}

// Channel fans notifications out to observers in subscription order.
type Channel struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{}
}

// Subscribe registers o and returns a function that removes it again.
func (c *Channel) Subscribe(o Observer) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, observer: o})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers n synchronously to every current observer.
func (c *Channel) Publish(n Notification) {
	c.mu.RLock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	for _, s := range subs {
		s.observer.Notify(n)
	}
}
