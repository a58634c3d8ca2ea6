package setup

import "context"

// FetchRequest describes the remote project a fetch should bring in.
type FetchRequest struct {
	Address     string
	RemotePath  string
	Fingerprint string
	// Folder is the local folder name the project lands in.
	Folder string
	// StorageType is empty until the user or the remote decides it.
	StorageType  StorageType
	FetchHistory bool
}

// Engine starts fetches. Implementations report back through EngineEvents from
// any goroutine, including synchronously from within BeginFetch.
type Engine interface {
	BeginFetch(ctx context.Context, req FetchRequest, events EngineEvents) (Fetch, error)
}

// Fetch is a handle on one in-flight fetch.
type Fetch interface {
	// SelectStorage resumes a fetch waiting on OnStorageTypeRequired.
	SelectStorage(t StorageType) error
	// SubmitPassword resumes a fetch waiting on OnEncryptionRequired.
	SubmitPassword(password string) error
	// Cancel aborts the fetch. It is safe to call more than once.
	Cancel()
}

// EngineEvents receives fetch outcomes.
type EngineEvents interface {
	OnProgress(percentage float64, speed string)
	// OnSuccess ends a fetch whose storage is known and unencrypted.
	OnSuccess(warnings []string)
	OnFailure(warnings []string)
	// OnStorageTypeRequired pauses the fetch until SelectStorage.
	OnStorageTypeRequired(types []StorageTypeInfo)
	// OnEncryptionRequired pauses the fetch until SubmitPassword. firstUse is
	// true when the password is being chosen rather than entered.
	OnEncryptionRequired(firstUse bool)
	OnEncryptionVerified(warnings []string)
	OnEncryptionRejected(reason string)
}
