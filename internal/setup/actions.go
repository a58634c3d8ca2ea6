package setup

import (
	"strings"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/validate"
)

// Start opens the wizard on Setup when no identity is known yet, otherwise on
// Add. A run that is still live is discarded along with its fetch.
func (c *Controller) Start() {
	c.begin("start", nil)
}

// InviteReceived opens the wizard for an invite. The Invite page follows Setup
// when the identity is still unknown.
func (c *Controller) InviteReceived(inv Invite) {
	c.begin("invite received", &inv)
}

func (c *Controller) begin(action string, inv *Invite) {
	c.do(func() func() {
		wasVisible := c.session != nil
		abort := c.discardLocked()
		if wasVisible {
			logger.Info("discarding live wizard run")
		}

		c.session = &Session{
			Name:            c.identity.Name,
			Email:           c.identity.Email,
			PresetIndex:     c.defaultPresetIndex(),
			PreviousAddress: c.remembered.Address,
			PreviousPath:    c.remembered.Path,
			FetchHistory:    c.remembered.FetchHistory,
			PendingInvite:   inv,
		}
		logger.Info("wizard opened: %s", action)
		if !wasVisible {
			c.emit(WindowVisibilityMsg{Visible: true})
		}
		c.enterLocked(c.pageAfterIdentityLocked(), nil)
		return abort
	})
}

// CheckSetupPage re-evaluates the Setup page's continue button.
func (c *Controller) CheckSetupPage(name, email string) {
	c.do(func() func() {
		if !c.on("check setup page", PageSetup) {
			return nil
		}
		c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: validate.Identity(name, email)})
		return nil
	})
}

// SetupPageCompleted stores the identity and moves on to Add, or to Invite
// when one is pending. An invalid identity only disables continue.
func (c *Controller) SetupPageCompleted(name, email string) {
	c.do(func() func() {
		if !c.on("setup page completed", PageSetup) {
			return nil
		}
		if !validate.Identity(name, email) {
			c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: false})
			return nil
		}
		s := c.session
		s.Name = strings.TrimSpace(name)
		s.Email = strings.TrimSpace(email)
		c.identity = Identity{Name: s.Name, Email: s.Email}
		c.enterLocked(c.pageAfterIdentityLocked(), nil)
		return nil
	})
}

// CheckAddPage records the typed address and path and re-evaluates the add
// button.
func (c *Controller) CheckAddPage(address, remotePath string) {
	c.do(func() func() {
		if !c.on("check add page", PageAdd) {
			return nil
		}
		c.recordEntriesLocked(address, remotePath)
		c.emit(ButtonEnabledMsg{Button: ButtonAdd, Enabled: c.addValidLocked()})
		return nil
	})
}

// SelectedPresetChanged switches preset. Fields the preset fixes show its
// template and become read-only; the others get back the last typed value.
func (c *Controller) SelectedPresetChanged(index int) {
	c.do(func() func() {
		if !c.on("selected preset changed", PageAdd) {
			return nil
		}
		if index != ManualPreset && (index < 0 || index >= c.catalog.Len()) {
			logger.Debug("preset index %d out of range", index)
			return nil
		}
		c.session.PresetIndex = index
		c.emitFieldsLocked()
		c.emit(ButtonEnabledMsg{Button: ButtonAdd, Enabled: c.addValidLocked()})
		return nil
	})
}

// HistoryItemChanged sets whether the next fetch brings in prior revisions.
func (c *Controller) HistoryItemChanged(fetchHistory bool) {
	c.do(func() func() {
		if !c.on("history item changed", PageSetup, PageAdd, PageInvite) {
			return nil
		}
		c.session.FetchHistory = fetchHistory
		return nil
	})
}

// AddPageCompleted resolves the remote against the selected preset and starts
// the fetch. Nothing is fetched when the result is incomplete.
func (c *Controller) AddPageCompleted(address, remotePath string) {
	c.do(func() func() {
		if !c.on("add page completed", PageAdd) {
			return nil
		}
		s := c.session
		c.recordEntriesLocked(address, remotePath)
		p := c.selectedPresetLocked()
		if !validate.AddPage(s.PreviousAddress, s.PreviousPath, p) {
			c.emit(ButtonEnabledMsg{Button: ButtonAdd, Enabled: false})
			return nil
		}

		addr, pth := validate.EffectiveRemote(s.PreviousAddress, s.PreviousPath, p)
		req := FetchRequest{Address: addr, RemotePath: pth, FetchHistory: s.FetchHistory}
		if p != nil {
			req.Fingerprint = p.Fingerprint
			if p.PathUsesLowerCase {
				req.RemotePath = strings.ToLower(req.RemotePath)
			}
		}
		req.Folder = FolderName(req.RemotePath, req.Address)

		c.remembered = Remembered{
			Address:      s.PreviousAddress,
			Path:         s.PreviousPath,
			PresetIndex:  s.PresetIndex,
			FetchHistory: s.FetchHistory,
		}
		return c.startFetchLocked(req)
	})
}

// InvitePageCompleted accepts the pending invite and fetches its remote.
func (c *Controller) InvitePageCompleted() {
	c.do(func() func() {
		if !c.on("invite page completed", PageInvite) {
			return nil
		}
		s := c.session
		inv := s.PendingInvite
		return c.startFetchLocked(FetchRequest{
			Address:      inv.Address,
			RemotePath:   inv.RemotePath,
			Fingerprint:  inv.Fingerprint,
			Folder:       FolderName(inv.RemotePath, inv.Address),
			FetchHistory: s.FetchHistory,
		})
	})
}

// StoragePageCompleted resumes the paused fetch with one of the offered
// storage types.
func (c *Controller) StoragePageCompleted(t StorageType) {
	c.do(func() func() {
		if !c.on("storage page completed", PageStorageSetup) {
			return nil
		}
		s := c.session
		if !offered(s.StorageTypes, t) {
			logger.Debug("storage type %q was not offered", t)
			c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: false})
			return nil
		}
		s.StorageType = t
		s.request.StorageType = t
		c.enterLocked(PageSyncing, nil)
		return c.resumeLocked("select storage", func(f Fetch) error {
			return f.SelectStorage(t)
		}, false)
	})
}

func offered(types []StorageTypeInfo, t StorageType) bool {
	for _, info := range types {
		if info.Type == t {
			return true
		}
	}
	return false
}

// CheckCryptoSetupPage re-evaluates continue for a new storage password.
func (c *Controller) CheckCryptoSetupPage(password string) {
	c.checkCrypto("check crypto setup page", PageCryptoSetup, password, validate.PasswordSetup)
}

// CheckCryptoPasswordPage re-evaluates continue for an unlock password.
func (c *Controller) CheckCryptoPasswordPage(password string) {
	c.checkCrypto("check crypto password page", PageCryptoPassword, password, validate.PasswordUnlock)
}

func (c *Controller) checkCrypto(action string, page PageType, password string, valid func(string) bool) {
	c.do(func() func() {
		if !c.on(action, page) {
			return nil
		}
		c.session.Password = password
		c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: valid(password)})
		return nil
	})
}

// CryptoSetupPageCompleted hands a new storage password to the engine.
func (c *Controller) CryptoSetupPageCompleted(password string) {
	c.completeCrypto("crypto setup page completed", PageCryptoSetup, password, validate.PasswordSetup)
}

// CryptoPasswordPageCompleted hands an unlock password to the engine.
func (c *Controller) CryptoPasswordPageCompleted(password string) {
	c.completeCrypto("crypto password page completed", PageCryptoPassword, password, validate.PasswordUnlock)
}

// completeCrypto waits on Syncing for the engine to verify the password; a
// rejection brings the user back to the same page.
func (c *Controller) completeCrypto(action string, page PageType, password string, valid func(string) bool) {
	c.do(func() func() {
		if !c.on(action, page) {
			return nil
		}
		if !valid(password) {
			c.emit(ButtonEnabledMsg{Button: ButtonContinue, Enabled: false})
			return nil
		}
		c.enterLocked(PageSyncing, nil)
		return c.resumeLocked("submit password", func(f Fetch) error {
			return f.SubmitPassword(password)
		}, true)
	})
}

// ErrorPageCompleted retries the failed fetch with the same parameters.
func (c *Controller) ErrorPageCompleted() {
	c.do(func() func() {
		if !c.on("error page completed", PageError) {
			return nil
		}
		return c.startFetchLocked(c.session.request)
	})
}

// SyncingCancelled aborts the fetch and hides the wizard.
func (c *Controller) SyncingCancelled() {
	c.cancel("syncing cancelled")
}

// PageCancelled hides the wizard from whatever page is showing.
func (c *Controller) PageCancelled() {
	c.cancel("page cancelled")
}

// CryptoPageCancelled hides the wizard from a password page.
func (c *Controller) CryptoPageCancelled() {
	c.cancel("crypto page cancelled")
}

// cancel works from any page; a second cancel finds the wizard hidden and
// does nothing.
func (c *Controller) cancel(action string) {
	c.do(func() func() {
		if c.session == nil {
			logger.Debug("%s ignored: wizard is hidden", action)
			return nil
		}
		return c.hideLocked(action)
	})
}

// FinishPageCompleted closes the wizard after a successful fetch.
func (c *Controller) FinishPageCompleted() {
	c.do(func() func() {
		if !c.on("finish page completed", PageFinished) {
			return nil
		}
		return c.hideLocked("finished")
	})
}

// ShowFilesClicked asks the view to open the new folder, then closes.
func (c *Controller) ShowFilesClicked() {
	c.do(func() func() {
		if !c.on("show files clicked", PageFinished) {
			return nil
		}
		c.emit(FolderOpenMsg{Folder: c.session.Folder})
		return c.hideLocked("finished")
	})
}
