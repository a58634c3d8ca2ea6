// Package validate holds the field predicates that gate the wizard's forward
// actions. All functions are pure.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/syncwizard/internal/preset"
)

// MinPasswordLength is the shortest password accepted when setting up
// encrypted storage.
const MinPasswordLength = 8

// local-part "@" domain-part, with at least one dot inside the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)

// Identity reports whether name and email are acceptable for the Setup page.
func Identity(name, email string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// EffectiveRemote resolves the address and path that would be used for a fetch:
// a preset's fixed template wins over the entry text, entries are trimmed.
// A nil preset means manual entry.
func EffectiveRemote(address, path string, p *preset.Preset) (string, string) {
	address = strings.TrimSpace(address)
	path = strings.TrimSpace(path)
	if p != nil {
		if p.FixesAddress() {
			address = p.AddressTemplate()
		}
		if p.FixesPath() {
			path = p.PathTemplate()
		}
	}
	return address, path
}

// AddPage reports whether the Add page may continue. A field fixed by the
// preset always counts as valid regardless of the entry text.
func AddPage(address, path string, p *preset.Preset) bool {
	addr, pth := EffectiveRemote(address, path, p)
	addrOK := addr != "" || (p != nil && p.FixesAddress())
	pathOK := pth != "" || (p != nil && p.FixesPath())
	return addrOK && pathOK
}

// PasswordSetup reports whether password is strong enough for new storage.
func PasswordSetup(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// PasswordUnlock reports whether an unlock attempt may be submitted. The
// engine decides if the password is actually correct.
func PasswordUnlock(password string) bool {
	return password != ""
}
