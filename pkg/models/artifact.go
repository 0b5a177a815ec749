package models

import (
	"path"
	"sort"
	"strings"
)

// Category classifies a generated artifact.
type Category string

const (
	// CategoryScript is a declarative generation script (.emic).
	CategoryScript Category = "script"
	// CategoryHeader is a C header (.h).
	CategoryHeader Category = "header"
	// CategoryImplementation is a C implementation file (.c).
	CategoryImplementation Category = "implementation"
	// CategoryData is a structured-data file (.json, .xml).
	CategoryData Category = "structured-data"
)

// Valid returns true if the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryScript, CategoryHeader, CategoryImplementation, CategoryData:
		return true
	default:
		return false
	}
}

// IsSource reports whether the category holds C source text.
func (c Category) IsSource() bool {
	return c == CategoryHeader || c == CategoryImplementation
}

// CategoryForPath infers the category from a file extension.
// The second return value is false for files that are not artifacts.
func CategoryForPath(p string) (Category, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ".emic":
		return CategoryScript, true
	case ".h":
		return CategoryHeader, true
	case ".c":
		return CategoryImplementation, true
	case ".json", ".xml":
		return CategoryData, true
	default:
		return "", false
	}
}

// StageForPath derives the producing-stage label from the SDK layer a path lives in.
func StageForPath(p string) string {
	first := strings.SplitN(strings.TrimPrefix(NormalizePath(p), "/"), "/", 2)[0]
	switch {
	case strings.HasPrefix(first, "_api"):
		return "ApiGenerator"
	case strings.HasPrefix(first, "_drivers"):
		return "DriverGenerator"
	case strings.HasPrefix(first, "_modules"):
		return "ModuleGenerator"
	default:
		return "Workspace"
	}
}

// NormalizePath converts backslashes to forward slashes and cleans the path.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// GeneratedArtifact is one generated text file participating in a run.
type GeneratedArtifact struct {
	// Path is the relative path, unique within a run and stable across it.
	Path string `json:"path"`
	// Content is the current text content.
	Content string `json:"content"`
	// Category is the artifact kind.
	Category Category `json:"category"`
	// Stage names the generation stage that produced the artifact.
	Stage string `json:"stage,omitempty"`
}

// Lines splits the content into lines without trailing newline characters.
func (a *GeneratedArtifact) Lines() []string {
	return strings.Split(strings.ReplaceAll(a.Content, "\r\n", "\n"), "\n")
}

// ArtifactSet is an immutable snapshot of the artifacts of a run.
// Mutating operations return a new snapshot and leave the receiver untouched.
type ArtifactSet struct {
	items []GeneratedArtifact
	index map[string]int
}

// NewArtifactSet builds a snapshot. Later duplicates of a path replace earlier ones.
func NewArtifactSet(artifacts ...GeneratedArtifact) *ArtifactSet {
	s := &ArtifactSet{index: make(map[string]int, len(artifacts))}
	for _, a := range artifacts {
		a.Path = NormalizePath(a.Path)
		if i, ok := s.index[a.Path]; ok {
			s.items[i] = a
			continue
		}
		s.index[a.Path] = len(s.items)
		s.items = append(s.items, a)
	}
	return s
}

// Len returns the number of artifacts.
func (s *ArtifactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// All returns copies of the artifacts in insertion order.
func (s *ArtifactSet) All() []GeneratedArtifact {
	if s == nil {
		return nil
	}
	out := make([]GeneratedArtifact, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns a copy of the artifact stored at path.
func (s *ArtifactSet) Get(p string) (GeneratedArtifact, bool) {
	if s == nil {
		return GeneratedArtifact{}, false
	}
	i, ok := s.index[NormalizePath(p)]
	if !ok {
		return GeneratedArtifact{}, false
	}
	return s.items[i], true
}

// Paths returns all artifact paths in sorted order.
func (s *ArtifactSet) Paths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.items))
	for _, a := range s.items {
		paths = append(paths, a.Path)
	}
	sort.Strings(paths)
	return paths
}

// ByCategory returns the artifacts of one category in insertion order.
func (s *ArtifactSet) ByCategory(c Category) []GeneratedArtifact {
	if s == nil {
		return nil
	}
	var out []GeneratedArtifact
	for _, a := range s.items {
		if a.Category == c {
			out = append(out, a)
		}
	}
	return out
}

// WithContent returns a new snapshot in which the artifact at path carries content.
// The receiver is returned unchanged if the path is unknown or the content is identical.
func (s *ArtifactSet) WithContent(p, content string) *ArtifactSet {
	i, ok := s.index[NormalizePath(p)]
	if !ok || s.items[i].Content == content {
		return s
	}
	next := s.clone()
	next.items[i].Content = content
	return next
}

// Changed lists the paths whose content differs between prev and s.
func (s *ArtifactSet) Changed(prev *ArtifactSet) []string {
	var out []string
	for _, a := range s.items {
		old, ok := prev.Get(a.Path)
		if !ok || old.Content != a.Content {
			out = append(out, a.Path)
		}
	}
	return out
}

func (s *ArtifactSet) clone() *ArtifactSet {
	next := &ArtifactSet{
		items: make([]GeneratedArtifact, len(s.items)),
		index: make(map[string]int, len(s.index)),
	}
	copy(next.items, s.items)
	for k, v := range s.index {
		next.index[k] = v
	}
	return next
}

// MatchPath reports whether two artifact paths name the same file, allowing a
// prefix difference on either side as long as it ends on a path separator.
func MatchPath(a, b string) bool {
	a = strings.ToLower(NormalizePath(a))
	b = strings.ToLower(NormalizePath(b))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return strings.HasSuffix(a, "/"+strings.TrimPrefix(b, "/")) ||
		strings.HasSuffix(b, "/"+strings.TrimPrefix(a, "/"))
}
