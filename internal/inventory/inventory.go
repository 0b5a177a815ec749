// Package inventory holds the optional SDK inventory snapshot used to verify
// that script references point at paths the SDK actually provides.
package inventory

import (
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// ErrNotFound is returned when the snapshot file does not exist.
var ErrNotFound = errors.New("inventory snapshot not found")

// Snapshot is a set of known-valid reference paths grouped by component category
// (apis, drivers, modules, hal, ...).
type Snapshot struct {
	// Root is the SDK root the snapshot was taken from, if recorded.
	Root   string
	groups map[string][]string
	// normalized holds every path with drive prefixes stripped.
	normalized []string
}

// snapshotFile is the on-disk YAML layout.
//
//	sdk_root: /opt/emic/sdk
//	paths:
//	  apis:
//	    - _api/Indicators/LEDs/led.emic
//	  hal:
//	    - _hal/GPIO/gpio.emic
type snapshotFile struct {
	SDKRoot string              `yaml:"sdk_root"`
	Paths   map[string][]string `yaml:"paths"`
}

// New builds a snapshot from grouped paths.
func New(groups map[string][]string) *Snapshot {
	s := &Snapshot{groups: make(map[string][]string, len(groups))}
	for category, paths := range groups {
		s.groups[category] = append([]string(nil), paths...)
		for _, p := range paths {
			s.normalized = append(s.normalized, Normalize(p))
		}
	}
	sort.Strings(s.normalized)
	return s
}

// Load reads a snapshot from a YAML file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "reading inventory %s", path)
	}
	return Parse(data)
}

// Parse decodes a snapshot from YAML bytes.
func Parse(data []byte) (*Snapshot, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding inventory")
	}
	s := New(f.Paths)
	s.Root = f.SDKRoot
	return s, nil
}

// Categories returns the category names in sorted order.
func (s *Snapshot) Categories() []string {
	out := make([]string, 0, len(s.groups))
	for c := range s.groups {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Paths returns the paths registered under a category.
func (s *Snapshot) Paths(category string) []string {
	return s.groups[category]
}

// Size returns the total number of paths.
func (s *Snapshot) Size() int {
	return len(s.normalized)
}

// Contains reports whether ref names a known path, tolerating drive prefixes
// and leading directory differences.
func (s *Snapshot) Contains(ref string) bool {
	if s == nil {
		return false
	}
	n := Normalize(ref)
	for _, p := range s.normalized {
		if models.MatchPath(p, n) {
			return true
		}
	}
	return false
}

// Normalize strips virtual drive prefixes (DEV:, SYS:, TARGET:) and leading
// slashes so references and paths compare on their relative form.
func Normalize(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, ":"); i > 0 && isDrive(ref[:i]) {
		ref = ref[i+1:]
	}
	return strings.TrimLeft(models.NormalizePath(ref), "/")
}

func isDrive(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) > 1
}
