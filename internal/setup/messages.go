package setup

// Notification is implemented by every message the controller publishes.
type Notification interface {
	notification()
}

// Button identifies the forward button a ButtonEnabledMsg refers to.
type Button int

const (
	ButtonContinue Button = iota
	ButtonAdd
	ButtonFinish
)

func (b Button) String() string {
	switch b {
	case ButtonContinue:
		return "continue"
	case ButtonAdd:
		return "add"
	case ButtonFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// FieldState tells the view whether an entry field is editable.
type FieldState int

const (
	FieldEnabled FieldState = iota
	FieldDisabled
)

// PageContext carries what a passive view needs to render the new page.
type PageContext struct {
	Folder       string
	URL          string
	Invite       *Invite
	StorageTypes []StorageTypeInfo
}

// WindowVisibilityMsg is sent when the wizard window is shown or hidden.
type WindowVisibilityMsg struct {
	Visible bool
}

// PageChangedMsg is sent on every page transition.
type PageChangedMsg struct {
	Page     PageType
	Warnings []string
	Context  PageContext
}

// ButtonEnabledMsg is sent when a forward button becomes enabled or disabled.
type ButtonEnabledMsg struct {
	Button  Button
	Enabled bool
}

// AddressFieldMsg is sent when the address entry changes text or editability.
type AddressFieldMsg struct {
	Text    string
	Example string
	State   FieldState
}

// PathFieldMsg is sent when the remote path entry changes text or editability.
type PathFieldMsg struct {
	Text    string
	Example string
	State   FieldState
}

// ProgressMsg reports fetch progress.
type ProgressMsg struct {
	Percentage float64
	Speed      string
}

// FolderOpenMsg asks the view to reveal the finished project's folder.
type FolderOpenMsg struct {
	Folder string
}

func (WindowVisibilityMsg) notification() {}
func (PageChangedMsg) notification()      {}
func (ButtonEnabledMsg) notification()    {}
func (AddressFieldMsg) notification()     {}
func (PathFieldMsg) notification()        {}
func (ProgressMsg) notification()         {}
func (FolderOpenMsg) notification()       {}
