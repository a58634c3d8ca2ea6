// Package presenter turns controller notifications into something a person
// can see: bubbletea messages for the interactive view and styled lines for
// the plain console.
package presenter

import (
	"fmt"

	"github.com/mark3labs/syncwizard/internal/setup"
)

// Header returns the heading shown for page. folder is the project being
// added and may be empty.
func Header(page setup.PageType, folder string) string {
	switch page {
	case setup.PageSetup:
		return "Welcome to syncwizard!"
	case setup.PageAdd:
		return "Where's your project hosted?"
	case setup.PageInvite:
		return "You've received an invite!"
	case setup.PageSyncing:
		return fmt.Sprintf("Adding project '%s'…", folder)
	case setup.PageError:
		return "Oops! Something went wrong…"
	case setup.PageStorageSetup:
		return fmt.Sprintf("Storage type for '%s'", folder)
	case setup.PageCryptoSetup:
		return fmt.Sprintf("Encryption password for '%s'", folder)
	case setup.PageCryptoPassword:
		return fmt.Sprintf("'%s' contains encrypted files", folder)
	case setup.PageFinished:
		return "Your shared project is ready!"
	default:
		return ""
	}
}

// Description returns the line shown under the heading.
func Description(page setup.PageType) string {
	switch page {
	case setup.PageSetup:
		return "First off, what's your name and email? (visible only to team members)"
	case setup.PageInvite:
		return "Do you want to add this project?"
	case setup.PageSyncing:
		return "This may take a while for large projects."
	case setup.PageStorageSetup:
		return "What type of storage would you like to use?"
	case setup.PageCryptoSetup:
		return "Please provide a strong password that you don't use elsewhere."
	case setup.PageCryptoPassword:
		return "Please enter the password to see their contents."
	case setup.PageFinished:
		return "You can find the files in your projects folder."
	default:
		return ""
	}
}
