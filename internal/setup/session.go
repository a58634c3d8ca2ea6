package setup

import "math"

// ManualPreset is the preset index meaning "no preset, user types everything".
const ManualPreset = -1

// StorageType identifies a storage backend for a new project.
type StorageType string

const (
	StoragePlain     StorageType = "plain"
	StorageEncrypted StorageType = "encrypted"
)

// StorageTypeInfo describes a storage type the engine offers.
type StorageTypeInfo struct {
	Type        StorageType `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// Invite is a project invitation received from outside the wizard.
type Invite struct {
	Address     string `json:"address"`
	RemotePath  string `json:"remote_path"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Identity is the user's name and email.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Remembered holds the values carried from one wizard run to the next.
type Remembered struct {
	Address      string `json:"address"`
	Path         string `json:"path"`
	PresetIndex  int    `json:"preset_index"`
	FetchHistory bool   `json:"fetch_history"`
}

// Session is the mutable state of one wizard run.
type Session struct {
	Page PageType

	Name  string
	Email string

	PresetIndex     int
	PreviousAddress string
	PreviousPath    string
	PendingInvite   *Invite

	Folder   string
	Progress float64
	Speed    string
	Warnings []string
	Password string

	StorageType  StorageType
	StorageTypes []StorageTypeInfo
	FetchHistory bool

	// request is the last fetch begun; a retry repeats it.
	request FetchRequest
	// cryptoPage is where a rejected password returns to.
	cryptoPage PageType
}

// Request returns the parameters of the most recent fetch.
func (s Session) Request() FetchRequest {
	return s.request
}

func (s *Session) clone() Session {
	out := *s
	out.Warnings = append([]string(nil), s.Warnings...)
	out.StorageTypes = append([]StorageTypeInfo(nil), s.StorageTypes...)
	if s.PendingInvite != nil {
		inv := *s.PendingInvite
		out.PendingInvite = &inv
	}
	return out
}

func clampProgress(pct float64) float64 {
	switch {
	case math.IsNaN(pct), pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
