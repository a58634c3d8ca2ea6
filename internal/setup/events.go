package setup

import "github.com/mark3labs/syncwizard/internal/logger"

// engineEvents binds engine callbacks to the fetch that produced them.
type engineEvents struct {
	c   *Controller
	gen uint64
}

var _ EngineEvents = (*engineEvents)(nil)

// callback runs fn for a current fetch and drops anything from a fetch that
// has since been superseded, cancelled or discarded.
func (e *engineEvents) callback(name string, pages []PageType, fn func(s *Session) func()) {
	c := e.c
	c.do(func() func() {
		if c.session == nil || e.gen != c.active {
			logger.Debug("discarding stale %s from fetch %d", name, e.gen)
			return nil
		}
		if !c.on(name, pages...) {
			return nil
		}
		return fn(c.session)
	})
}

var syncing = []PageType{PageSyncing}

func (e *engineEvents) OnProgress(percentage float64, speed string) {
	c := e.c
	e.callback("progress", syncing, func(s *Session) func() {
		pct := clampProgress(percentage)
		s.Progress, s.Speed = pct, speed
		if pct < 100 && c.limiter != nil && !c.limiter.Allow() {
			c.scheduleFlushLocked(e.gen)
			return nil
		}
		c.emitProgressLocked()
		return nil
	})
}

func (e *engineEvents) OnSuccess(warnings []string) {
	c := e.c
	e.callback("success", syncing, func(s *Session) func() {
		logger.Info("fetch %d succeeded with %d warnings", e.gen, len(warnings))
		s.Progress = 100
		after := c.completeFetchLocked()
		c.enterLocked(PageFinished, warnings)
		return after
	})
}

func (e *engineEvents) OnFailure(warnings []string) {
	c := e.c
	pages := []PageType{PageSyncing, PageStorageSetup, PageCryptoSetup, PageCryptoPassword}
	e.callback("failure", pages, func(s *Session) func() {
		logger.Warn("fetch %d failed: %v", e.gen, warnings)
		c.enterLocked(PageError, warnings)
		return nil
	})
}

func (e *engineEvents) OnStorageTypeRequired(types []StorageTypeInfo) {
	c := e.c
	e.callback("storage type required", syncing, func(s *Session) func() {
		s.StorageTypes = append([]StorageTypeInfo(nil), types...)
		c.enterLocked(PageStorageSetup, nil)
		return nil
	})
}

func (e *engineEvents) OnEncryptionRequired(firstUse bool) {
	c := e.c
	e.callback("encryption required", syncing, func(s *Session) func() {
		if firstUse {
			c.enterLocked(PageCryptoSetup, nil)
		} else {
			c.enterLocked(PageCryptoPassword, nil)
		}
		return nil
	})
}

func (e *engineEvents) OnEncryptionVerified(warnings []string) {
	c := e.c
	e.callback("encryption verified", syncing, func(s *Session) func() {
		if !s.cryptoPage.isCrypto() {
			logger.Debug("encryption verified without a password request")
			return nil
		}
		s.Progress = 100
		after := c.completeFetchLocked()
		c.enterLocked(PageFinished, warnings)
		return after
	})
}

func (e *engineEvents) OnEncryptionRejected(reason string) {
	c := e.c
	e.callback("encryption rejected", syncing, func(s *Session) func() {
		if !s.cryptoPage.isCrypto() {
			logger.Debug("encryption rejected without a password request")
			return nil
		}
		c.enterLocked(s.cryptoPage, []string{reason})
		return nil
	})
}
