package setup

// PageType identifies the wizard page currently shown.
type PageType int

const (
	// PageHidden means no wizard run is active.
	PageHidden PageType = iota
	PageSetup
	PageAdd
	PageInvite
	PageSyncing
	PageError
	PageStorageSetup
	PageCryptoSetup
	PageCryptoPassword
	PageFinished
)

var pageNames = [...]string{
	PageHidden:         "hidden",
	PageSetup:          "setup",
	PageAdd:            "add",
	PageInvite:         "invite",
	PageSyncing:        "syncing",
	PageError:          "error",
	PageStorageSetup:   "storage-setup",
	PageCryptoSetup:    "crypto-setup",
	PageCryptoPassword: "crypto-password",
	PageFinished:       "finished",
}

// String returns the page's kebab-case name.
func (p PageType) String() string {
	if p < 0 || int(p) >= len(pageNames) {
		return "unknown"
	}
	return pageNames[p]
}

// ParsePage is the inverse of String.
func ParsePage(s string) (PageType, bool) {
	for i, name := range pageNames {
		if name == s {
			return PageType(i), true
		}
	}
	return PageHidden, false
}

func (p PageType) isCrypto() bool {
	return p == PageCryptoSetup || p == PageCryptoPassword
}
