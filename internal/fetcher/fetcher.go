// Package fetcher is a sync engine for remotes on the local filesystem
// (file:// addresses). It copies the remote into the projects directory and
// handles storage type selection and password setup or unlock.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/setup"
)

var (
	// ErrUnsupportedAddress is returned for addresses that are not local.
	ErrUnsupportedAddress = errors.New("only file:// addresses are supported")
	// ErrTargetExists is returned when the local folder is already taken.
	ErrTargetExists = errors.New("a folder with this name already exists")
	// ErrNotWaiting is returned when a fetch is resumed without having paused.
	ErrNotWaiting = errors.New("fetch is not waiting for input")
)

// StorageTypes are the types offered for an empty remote.
var StorageTypes = []setup.StorageTypeInfo{
	{
		Type:        setup.StoragePlain,
		Name:        "Plain storage",
		Description: "Nothing is encrypted.",
	},
	{
		Type:        setup.StorageEncrypted,
		Name:        "Encrypted storage",
		Description: "Everything is protected by a password.",
	},
}

// Config configures an Engine.
type Config struct {
	// ProjectsDir is where fetched folders are created.
	ProjectsDir string
	// Workers bounds how many files are copied at once.
	Workers int
	// ProgressInterval is how often progress is reported while copying.
	ProgressInterval time.Duration
	// KDF overrides DefaultKDF for new encrypted remotes.
	KDF *KDFParams
}

// Engine implements setup.Engine.
type Engine struct {
	cfg Config
}

var _ setup.Engine = (*Engine)(nil)

// New creates an engine.
func New(cfg Config) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 250 * time.Millisecond
	}
	return &Engine{cfg: cfg}
}

// ResolveSource returns the directory a request points at.
func ResolveSource(address, remotePath string) (string, error) {
	dir := address
	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil {
			return "", fmt.Errorf("parsing address: %w", err)
		}
		if u.Scheme != "file" || (u.Host != "" && u.Host != "localhost") {
			return "", fmt.Errorf("%s: %w", address, ErrUnsupportedAddress)
		}
		dir = u.Path
	}
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("%s: %w", address, ErrUnsupportedAddress)
	}
	return filepath.Join(dir, filepath.FromSlash(remotePath)), nil
}

// TargetDir returns where a folder name lands inside projectsDir.
func TargetDir(projectsDir, folder string) string {
	name := slug.Make(folder)
	if name == "" {
		name = "project"
	}
	return filepath.Join(projectsDir, name)
}

// BeginFetch validates the request and starts copying in the background.
func (e *Engine) BeginFetch(ctx context.Context, req setup.FetchRequest, events setup.EngineEvents) (setup.Fetch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := ResolveSource(req.Address, req.RemotePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", source, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("remote %s is not a directory", source)
	}

	target := TargetDir(e.cfg.ProjectsDir, req.Folder)
	if _, err := os.Stat(target); err == nil {
		return nil, fmt.Errorf("%s: %w", target, ErrTargetExists)
	}

	fctx, cancel := context.WithCancel(ctx)
	f := &Fetch{
		cfg:      e.cfg,
		req:      req,
		source:   source,
		target:   target,
		events:   events,
		ctx:      fctx,
		cancel:   cancel,
		storage:  make(chan setup.StorageType, 1),
		password: make(chan string, 1),
		done:     make(chan struct{}),
	}
	logger.Info("fetching %s into %s", source, target)
	go f.run()
	return f, nil
}

type waitState int

const (
	notWaiting waitState = iota
	waitingStorage
	waitingPassword
)

// Fetch is one running copy. It implements setup.Fetch.
type Fetch struct {
	cfg    Config
	req    setup.FetchRequest
	source string
	target string
	events setup.EngineEvents

	ctx    context.Context
	cancel context.CancelFunc

	storage  chan setup.StorageType
	password chan string
	done     chan struct{}

	mu        sync.Mutex
	waiting   waitState
	completed bool
}

// Target is the local folder the fetch writes to.
func (f *Fetch) Target() string { return f.target }

// Done is closed when the fetch has finished, failed or been cancelled.
func (f *Fetch) Done() <-chan struct{} { return f.done }

// SelectStorage answers OnStorageTypeRequired.
func (f *Fetch) SelectStorage(t setup.StorageType) error {
	if t != setup.StoragePlain && t != setup.StorageEncrypted {
		return fmt.Errorf("unknown storage type %q", t)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waiting != waitingStorage {
		return ErrNotWaiting
	}
	f.waiting = notWaiting
	f.storage <- t
	return nil
}

// SubmitPassword answers OnEncryptionRequired.
func (f *Fetch) SubmitPassword(password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waiting != waitingPassword {
		return ErrNotWaiting
	}
	f.waiting = notWaiting
	f.password <- password
	return nil
}

// Cancel stops the fetch and removes a partial folder. It does nothing once
// the fetch has completed.
func (f *Fetch) Cancel() {
	f.cancel()
}

func (f *Fetch) setWaiting(w waitState) {
	f.mu.Lock()
	f.waiting = w
	f.mu.Unlock()
}

func (f *Fetch) run() {
	defer close(f.done)
	defer f.cancel()

	warnings, err := f.fetch()
	if err == nil {
		return
	}

	f.mu.Lock()
	completed := f.completed
	f.mu.Unlock()
	if completed {
		return
	}
	if rmErr := os.RemoveAll(f.target); rmErr != nil {
		logger.Warn("failed to remove partial fetch %s: %v", f.target, rmErr)
	}
	if f.ctx.Err() != nil {
		logger.Info("fetch of %s cancelled", f.source)
		return
	}
	logger.Warn("fetch of %s failed: %v", f.source, err)
	f.events.OnFailure(append(warnings, err.Error()))
}

// fetch runs the whole exchange. Warnings collected before a failure are
// returned alongside the error.
func (f *Fetch) fetch() ([]string, error) {
	marker, err := readMarker(f.source)
	if err != nil {
		return nil, err
	}

	storage := f.req.StorageType
	if marker != nil {
		storage = marker.Storage
	}
	if marker == nil && storage == "" {
		empty, err := isEmpty(f.source)
		if err != nil {
			return nil, err
		}
		storage = setup.StoragePlain
		if empty {
			if storage, err = f.askStorage(); err != nil {
				return nil, err
			}
		}
	}

	// A remote without a marker is initialized with the chosen type.
	created := marker == nil
	if created {
		if storage == setup.StorageEncrypted {
			f.setWaiting(waitingPassword)
			f.events.OnEncryptionRequired(true)
			password, err := f.waitPassword()
			if err != nil {
				return nil, err
			}
			marker, err = newEncryptedMarker(password, f.kdf())
			if err != nil {
				return nil, err
			}
		} else {
			marker = &Marker{Storage: setup.StoragePlain}
		}
		if err := writeMarker(f.source, marker); err != nil {
			return nil, err
		}
	}

	p, err := scan(f.source, f.req.FetchHistory)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(f.target, 0755); err != nil {
		return p.warnings, fmt.Errorf("creating %s: %w", f.target, err)
	}
	if err := copyTree(f.ctx, f.source, f.target, p, f.cfg.Workers, f.cfg.ProgressInterval, f.events.OnProgress); err != nil {
		return p.warnings, err
	}
	if err := writeMarker(f.target, marker); err != nil {
		return p.warnings, err
	}

	if marker.Storage == setup.StorageEncrypted && !created {
		if err := f.unlock(marker); err != nil {
			return p.warnings, err
		}
	}
	if err := f.ctx.Err(); err != nil {
		return p.warnings, err
	}

	f.complete()
	if marker.Storage == setup.StorageEncrypted {
		f.events.OnEncryptionVerified(p.warnings)
	} else {
		f.events.OnSuccess(p.warnings)
	}
	return nil, nil
}

// unlock asks for the password of an existing encrypted remote until it is
// right or the fetch is cancelled.
func (f *Fetch) unlock(marker *Marker) error {
	f.setWaiting(waitingPassword)
	f.events.OnEncryptionRequired(false)
	for {
		password, err := f.waitPassword()
		if err != nil {
			return err
		}
		ok, err := marker.Verify(password)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		logger.Info("wrong password for %s", f.source)
		f.setWaiting(waitingPassword)
		f.events.OnEncryptionRejected("The password is not correct.")
	}
}

func (f *Fetch) askStorage() (setup.StorageType, error) {
	f.setWaiting(waitingStorage)
	f.events.OnStorageTypeRequired(StorageTypes)
	select {
	case t := <-f.storage:
		return t, nil
	case <-f.ctx.Done():
		return "", f.ctx.Err()
	}
}

func (f *Fetch) waitPassword() (string, error) {
	select {
	case pw := <-f.password:
		return pw, nil
	case <-f.ctx.Done():
		return "", f.ctx.Err()
	}
}

func (f *Fetch) complete() {
	f.mu.Lock()
	f.completed = true
	f.mu.Unlock()
}

func (f *Fetch) kdf() KDFParams {
	if f.cfg.KDF != nil {
		return *f.cfg.KDF
	}
	return DefaultKDF
}

func isEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", dir, err)
	}
	return len(entries) == 0, nil
}
