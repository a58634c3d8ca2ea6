// Package preset holds the catalog of hosting presets offered on the Add page.
package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yml
var defaultPresets []byte

// ErrEmptyName is returned when a preset definition has no name.
var ErrEmptyName = errors.New("preset name is empty")

// Preset describes one hosting service. A nil Address or Path means that
// field is supplied by the user; a non-nil value fixes it.
type Preset struct {
	Name              string  `yaml:"name"`
	Description       string  `yaml:"description"`
	Image             string  `yaml:"image"`
	Address           *string `yaml:"address"`
	Path              *string `yaml:"path"`
	AddressExample    string  `yaml:"address_example"`
	PathExample       string  `yaml:"path_example"`
	Fingerprint       string  `yaml:"fingerprint"`
	PathUsesLowerCase bool    `yaml:"path_uses_lower_case"`
	Priority          int     `yaml:"priority"`
}

// FixesAddress reports whether the preset supplies the address.
func (p Preset) FixesAddress() bool { return p.Address != nil }

// FixesPath reports whether the preset supplies the remote path.
func (p Preset) FixesPath() bool { return p.Path != nil }

// AddressTemplate returns the fixed address, or "" when user supplied.
func (p Preset) AddressTemplate() string {
	if p.Address == nil {
		return ""
	}
	return *p.Address
}

// PathTemplate returns the fixed path, or "" when user supplied.
func (p Preset) PathTemplate() string {
	if p.Path == nil {
		return ""
	}
	return *p.Path
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// clone returns p with its own copies of the address and path templates.
func (p Preset) clone() Preset {
	if p.Address != nil {
		a := *p.Address
		p.Address = &a
	}
	if p.Path != nil {
		v := *p.Path
		p.Path = &v
	}
	return p
}

// Catalog is an immutable, ordered list of presets.
type Catalog struct {
	presets []Preset
}

// New builds a catalog from presets, ordered by ascending priority with ties
// kept in the given order.
func New(presets []Preset) (*Catalog, error) {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = p.clone()
	}
	for i, p := range out {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d: %w", i, ErrEmptyName)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return &Catalog{presets: out}, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	presets, err := parse(defaultPresets)
	if err != nil {
		return nil, fmt.Errorf("parsing built-in presets: %w", err)
	}
	return New(presets)
}

// Load reads a catalog from YAML.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}
	presets, err := parse(data)
	if err != nil {
		return nil, err
	}
	return New(presets)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening presets file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Merge returns a catalog holding base's presets followed by extra's,
// re-ordered by priority.
func Merge(base, extra *Catalog) (*Catalog, error) {
	all := base.Presets()
	if extra != nil {
		all = append(all, extra.presets...)
	}
	return New(all)
}

func parse(data []byte) ([]Preset, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	return f.Presets, nil
}

// Presets returns a copy of the ordered presets.
func (c *Catalog) Presets() []Preset {
	out := make([]Preset, len(c.presets))
	for i, p := range c.presets {
		out[i] = p.clone()
	}
	return out
}

// Len returns the number of presets.
func (c *Catalog) Len() int {
	return len(c.presets)
}

// At returns the preset at index i.
func (c *Catalog) At(i int) (Preset, bool) {
	if i < 0 || i >= len(c.presets) {
		return Preset{}, false
	}
	return c.presets[i].clone(), true
}
