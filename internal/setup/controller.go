// Package setup implements the "add project" wizard: the page state machine,
// the session it mutates and the notifications it publishes for a view.
package setup

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/validate"
)

// DefaultProgressInterval is the minimum spacing between two ProgressMsg.
const DefaultProgressInterval = 100 * time.Millisecond

// ErrNoEngine is reported as a fetch failure when no engine was configured.
var ErrNoEngine = errors.New("no sync engine configured")

// Config holds the collaborators of a Controller.
type Config struct {
	Catalog *preset.Catalog
	Engine  Engine
	// Channel receives notifications. A new one is created when nil.
	Channel    *Channel
	Identity   Identity
	Remembered Remembered
	// ProgressInterval throttles progress notifications. Zero means
	// DefaultProgressInterval, a negative value disables throttling.
	ProgressInterval time.Duration
}

// Controller drives one wizard run at a time. Actions and engine callbacks are
// serialized by mu; engine methods are only ever called with mu released.
type Controller struct {
	mu sync.Mutex

	catalog          *preset.Catalog
	engine           Engine
	channel          *Channel
	progressInterval time.Duration

	identity   Identity
	remembered Remembered

	session *Session

	// seq numbers every fetch; active is the fetch whose callbacks are
	// accepted, zero when none is.
	seq       uint64
	active    uint64
	fetch     Fetch
	cancelCtx context.CancelFunc
	limiter   *rate.Limiter
	// flush sends the newest progress once the limiter window has passed;
	// shown is the progress last published.
	flush *time.Timer
	shown ProgressMsg

	// starting is the fetch whose BeginFetch has not returned yet. An answer
	// given meanwhile waits in pending for the handle.
	starting uint64
	pending  func(Fetch)
}

// New creates a controller in the hidden state.
func New(cfg Config) *Controller {
	c := &Controller{
		catalog:          cfg.Catalog,
		engine:           cfg.Engine,
		channel:          cfg.Channel,
		progressInterval: cfg.ProgressInterval,
		identity:         cfg.Identity,
		remembered:       cfg.Remembered,
	}
	if c.catalog == nil {
		c.catalog, _ = preset.New(nil)
	}
	if c.engine == nil {
		c.engine = noEngine{}
	}
	if c.channel == nil {
		c.channel = NewChannel()
	}
	if c.progressInterval == 0 {
		c.progressInterval = DefaultProgressInterval
	}
	return c
}

// Channel returns the channel notifications are published on.
func (c *Controller) Channel() *Channel {
	return c.channel
}

// Subscribe is shorthand for c.Channel().Subscribe(o).
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	return c.channel.Subscribe(o)
}

// Page returns the current page, PageHidden when no run is active.
func (c *Controller) Page() PageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return PageHidden
	}
	return c.session.Page
}

// Snapshot returns a copy of the live session. ok is false when hidden.
func (c *Controller) Snapshot() (s Session, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{Page: PageHidden}, false
	}
	return c.session.clone(), true
}

// Identity returns the last accepted name and email.
func (c *Controller) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Remembered returns the values to carry into the next run.
func (c *Controller) Remembered() Remembered {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remembered
}

// Presets returns the catalog the Add page offers.
func (c *Controller) Presets() []preset.Preset {
	return c.catalog.Presets()
}

// do runs fn with the lock held, then runs the function fn returns (if any)
// with the lock released. Engine calls go in that second function.
func (c *Controller) do(fn func() func()) {
	c.mu.Lock()
	after := fn()
	c.mu.Unlock()
	if after != nil {
		after()
	}
}

func (c *Controller) emit(n Notification) {
	c.channel.Publish(n)
}

// on reports whether the live session is on one of pages.
func (c *Controller) on(action string, pages ...PageType) bool {
	if c.session == nil {
		logger.Debug("%s ignored: wizard is hidden", action)
		return false
	}
	for _, p := range pages {
		if c.session.Page == p {
			return true
		}
	}
	logger.Debug("%s ignored on page %s", action, c.session.Page)
	return false
}

func (c *Controller) enterLocked(page PageType, warnings []string) {
	s := c.session
	s.Page = page
	s.Warnings = append([]string{}, warnings...)
	s.Password = ""
	if page != PageStorageSetup {
		s.StorageTypes = nil
	}
	if page.isCrypto() {
		s.cryptoPage = page
	}
	logger.Debug("page changed to %s (%d warnings)", page, len(s.Warnings))

	c.emit(PageChangedMsg{
		Page:     page,
		Warnings: append([]string{}, s.Warnings...),
		Context:  c.contextLocked(),
	})

	switch page {
	case PageSetup:
		c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: validate.Identity(s.Name, s.Email)})
	case PageAdd:
		c.emitFieldsLocked()
		c.emit(ButtonEnabledMsg{Button: ButtonAdd, Enabled: c.addValidLocked()})
	case PageSyncing:
		c.emitProgressLocked()
	case PageCryptoSetup, PageCryptoPassword:
		c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: false})
	case PageFinished:
		c.emit(ButtonEnabledMsg{Button: ButtonFinish, Enabled: true})
	}
}

func (c *Controller) contextLocked() PageContext {
	s := c.session
	ctx := PageContext{
		Folder:       s.Folder,
		URL:          RemoteURL(s.request.Address, s.request.RemotePath),
		StorageTypes: append([]StorageTypeInfo(nil), s.StorageTypes...),
	}
	if s.PendingInvite != nil {
		inv := *s.PendingInvite
		ctx.Invite = &inv
		if ctx.URL == "" {
			ctx.URL = RemoteURL(inv.Address, inv.RemotePath)
		}
	}
	return ctx
}

func (c *Controller) pageAfterIdentityLocked() PageType {
	s := c.session
	switch {
	case !validate.Identity(s.Name, s.Email):
		return PageSetup
	case s.PendingInvite != nil:
		return PageInvite
	default:
		return PageAdd
	}
}

func (c *Controller) defaultPresetIndex() int {
	i := c.remembered.PresetIndex
	if i == ManualPreset || (i >= 0 && i < c.catalog.Len()) {
		return i
	}
	if c.catalog.Len() == 0 {
		return ManualPreset
	}
	return 0
}

func (c *Controller) selectedPresetLocked() *preset.Preset {
	p, ok := c.catalog.At(c.session.PresetIndex)
	if !ok {
		return nil
	}
	return &p
}

// recordEntriesLocked keeps what the user typed into fields the selected
// preset leaves editable.
func (c *Controller) recordEntriesLocked(address, remotePath string) {
	s := c.session
	p := c.selectedPresetLocked()
	if p == nil || !p.FixesAddress() {
		s.PreviousAddress = address
	}
	if p == nil || !p.FixesPath() {
		s.PreviousPath = remotePath
	}
}

func (c *Controller) addValidLocked() bool {
	s := c.session
	return validate.AddPage(s.PreviousAddress, s.PreviousPath, c.selectedPresetLocked())
}

func (c *Controller) emitFieldsLocked() {
	s := c.session
	addr := AddressFieldMsg{Text: s.PreviousAddress, State: FieldEnabled}
	pth := PathFieldMsg{Text: s.PreviousPath, State: FieldEnabled}
	if p := c.selectedPresetLocked(); p != nil {
		addr.Example = p.AddressExample
		pth.Example = p.PathExample
		if p.FixesAddress() {
			addr.Text, addr.State = p.AddressTemplate(), FieldDisabled
		}
		if p.FixesPath() {
			pth.Text, pth.State = p.PathTemplate(), FieldDisabled
		}
	}
	c.emit(addr)
	c.emit(pth)
}

// startFetchLocked moves to Syncing and returns the function that asks the
// engine for the fetch.
func (c *Controller) startFetchLocked(req FetchRequest) func() {
	s := c.session
	release := c.releaseFetchLocked()

	c.seq++
	gen := c.seq
	c.active = gen
	c.starting, c.pending = gen, nil
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelCtx = cancel
	c.limiter = c.newLimiter()
	c.stopFlushLocked()

	s.request = req
	s.Folder = req.Folder
	s.StorageType = req.StorageType
	s.Progress, s.Speed = 0, ""
	s.cryptoPage = PageHidden
	c.enterLocked(PageSyncing, nil)

	logger.Info("fetch %d started for %s", gen, RemoteURL(req.Address, req.RemotePath))
	events := &engineEvents{c: c, gen: gen}
	return func() {
		if release != nil {
			release()
		}
		f, err := c.engine.BeginFetch(ctx, req, events)
		c.do(func() func() {
			return c.fetchStartedLocked(gen, f, err)
		})
	}
}

func (c *Controller) fetchStartedLocked(gen uint64, f Fetch, err error) func() {
	var pending func(Fetch)
	if gen == c.starting {
		pending = c.pending
		c.starting, c.pending = 0, nil
	}
	if c.session == nil || gen != c.active {
		logger.Debug("fetch %d superseded before it started", gen)
		if f != nil {
			return f.Cancel
		}
		return nil
	}
	if err != nil {
		logger.Warn("fetch %d could not start: %v", gen, err)
		if c.session.Page == PageSyncing {
			c.enterLocked(PageError, []string{err.Error()})
		}
		return nil
	}
	if c.session.Page != PageFinished {
		c.fetch = f
	}
	if pending != nil {
		return func() { pending(f) }
	}
	return nil
}

// resumeLocked returns the function that hands the paused fetch its answer.
// An error from the engine is surfaced like a failure, or like a rejected
// password when reject is set.
func (c *Controller) resumeLocked(what string, call func(Fetch) error, reject bool) func() {
	gen := c.active
	deliver := func(f Fetch) {
		err := ErrNoEngine
		if f != nil {
			err = call(f)
		}
		if err == nil {
			return
		}
		c.do(func() func() {
			if c.session == nil || gen != c.active || c.session.Page != PageSyncing {
				return nil
			}
			logger.Warn("fetch %d: %s failed: %v", gen, what, err)
			if reject && c.session.cryptoPage.isCrypto() {
				c.enterLocked(c.session.cryptoPage, []string{err.Error()})
			} else {
				c.enterLocked(PageError, []string{err.Error()})
			}
			return nil
		})
	}
	if c.fetch == nil && gen != 0 && c.starting == gen {
		logger.Debug("fetch %d: %s waits for the engine to return its handle", gen, what)
		c.pending = deliver
		return nil
	}
	f := c.fetch
	return func() { deliver(f) }
}

// releaseFetchLocked forgets the current fetch and returns what aborts it.
func (c *Controller) releaseFetchLocked() func() {
	f, cancel := c.fetch, c.cancelCtx
	c.fetch, c.cancelCtx = nil, nil
	if f == nil && cancel == nil {
		return nil
	}
	return func() {
		if cancel != nil {
			cancel()
		}
		if f != nil {
			f.Cancel()
		}
	}
}

// completeFetchLocked forgets a fetch that ended successfully without
// aborting it.
func (c *Controller) completeFetchLocked() func() {
	cancel := c.cancelCtx
	c.fetch, c.cancelCtx = nil, nil
	return cancel
}

func (c *Controller) discardLocked() func() {
	c.session = nil
	c.active = 0
	c.starting, c.pending = 0, nil
	c.stopFlushLocked()
	return c.releaseFetchLocked()
}

func (c *Controller) hideLocked(reason string) func() {
	logger.Info("wizard closed: %s", reason)
	after := c.discardLocked()
	c.emit(WindowVisibilityMsg{Visible: false})
	c.emit(PageChangedMsg{Page: PageHidden, Warnings: []string{}})
	return after
}

func (c *Controller) newLimiter() *rate.Limiter {
	if c.progressInterval < 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(c.progressInterval), 1)
}

func (c *Controller) emitProgressLocked() {
	s := c.session
	c.shown = ProgressMsg{Percentage: s.Progress, Speed: s.Speed}
	c.emit(c.shown)
}

// scheduleFlushLocked arranges for the progress the limiter held back to be
// published when the current window ends.
func (c *Controller) scheduleFlushLocked(gen uint64) {
	if c.flush != nil {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(c.progressInterval, func() {
		c.do(func() func() {
			if c.flush != t {
				return nil
			}
			c.flush = nil
			s := c.session
			if s == nil || gen != c.active || s.Page != PageSyncing {
				return nil
			}
			if c.shown != (ProgressMsg{Percentage: s.Progress, Speed: s.Speed}) {
				c.emitProgressLocked()
			}
			return nil
		})
	})
	c.flush = t
}

func (c *Controller) stopFlushLocked() {
	if c.flush != nil {
		c.flush.Stop()
		c.flush = nil
	}
}

// RemoteURL joins an address and a remote path for display.
func RemoteURL(address, remotePath string) string {
	switch {
	case remotePath == "":
		return address
	case address == "":
		return remotePath
	}
	return strings.TrimRight(address, "/") + "/" + strings.TrimLeft(remotePath, "/")
}

// FolderName derives the local folder name from the remote path, falling back
// to the address: the last element with any ".git" suffix removed.
func FolderName(remotePath, address string) string {
	for _, candidate := range []string{remotePath, address} {
		name := path.Base(strings.TrimRight(strings.TrimSpace(candidate), "/"))
		name = strings.TrimSuffix(name, ".git")
		if name != "" && name != "." && name != "/" {
			return name
		}
	}
	return "project"
}

type noEngine struct{}

func (noEngine) BeginFetch(context.Context, FetchRequest, EngineEvents) (Fetch, error) {
	return nil, ErrNoEngine
}
