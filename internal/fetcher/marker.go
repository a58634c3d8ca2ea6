package fetcher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/syncwizard/internal/setup"
)

// MarkerFile sits at the root of a remote and records how it is stored.
const MarkerFile = ".syncwizard.yml"

// KDFParams are the argon2id parameters used to derive the storage key.
type KDFParams struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"`
	Threads uint8  `yaml:"threads"`
}

// DefaultKDF follows the argon2id recommendation for interactive use.
var DefaultKDF = KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// Marker is the decoded MarkerFile.
type Marker struct {
	Storage  setup.StorageType `yaml:"storage"`
	KDF      *KDFParams        `yaml:"kdf,omitempty"`
	Salt     string            `yaml:"salt,omitempty"`
	Verifier string            `yaml:"verifier,omitempty"`
}

func readMarker(dir string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading storage marker: %w", err)
	}
	var m Marker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse storage marker: %w", err)
	}
	switch m.Storage {
	case setup.StoragePlain, setup.StorageEncrypted:
	default:
		return nil, fmt.Errorf("storage marker: unknown storage type %q", m.Storage)
	}
	return &m, nil
}

func writeMarker(dir string, m *Marker) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode storage marker: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), data, 0644); err != nil {
		return fmt.Errorf("writing storage marker: %w", err)
	}
	return nil
}

// newEncryptedMarker derives a verifier for password with a fresh salt.
func newEncryptedMarker(password string, params KDFParams) (*Marker, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	p := params
	return &Marker{
		Storage:  setup.StorageEncrypted,
		KDF:      &p,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Verifier: hex.EncodeToString(deriveKey(password, salt, params)),
	}, nil
}

// Verify reports whether password derives the marker's key.
func (m *Marker) Verify(password string) (bool, error) {
	if m.Storage != setup.StorageEncrypted || m.KDF == nil {
		return false, errors.New("storage marker has no key parameters")
	}
	salt, err := base64.StdEncoding.DecodeString(m.Salt)
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	want, err := hex.DecodeString(m.Verifier)
	if err != nil {
		return false, fmt.Errorf("decoding verifier: %w", err)
	}
	got := deriveKey(password, salt, *m.KDF)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func deriveKey(password string, salt []byte, p KDFParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, 32)
}
