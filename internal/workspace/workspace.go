// Package workspace connects artifact snapshots to the file system: loading a
// project tree into a snapshot, writing changed artifacts back before a
// compile attempt, reading the expanded tree, and watching for edits.
package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// ErrNoArtifacts is returned by Load when the tree holds no artifact files.
var ErrNoArtifacts = errors.New("no artifacts found")

// skipDir reports whether a directory is left out of loading and watching.
// Hidden directories are always skipped.
func skipDir(name string, exclude []string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, e := range exclude {
		if strings.EqualFold(name, e) {
			return true
		}
	}
	return false
}

// Load walks root and returns every artifact file as a snapshot. Paths are
// relative to root with forward slashes. Directories named in exclude (for
// example the expanded tree) are skipped.
func Load(root string, exclude ...string) (*models.ArtifactSet, error) {
	var artifacts []models.GeneratedArtifact

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && skipDir(d.Name(), exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		category, ok := models.CategoryForPath(p)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "reading %s", p)
		}
		rel = filepath.ToSlash(rel)
		artifacts = append(artifacts, models.GeneratedArtifact{
			Path:     rel,
			Content:  string(data),
			Category: category,
			Stage:    models.StageForPath(rel),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "loading artifacts from %s", root)
	}
	if len(artifacts) == 0 {
		return nil, errors.Wrapf(ErrNoArtifacts, "%s", root)
	}
	return models.NewArtifactSet(artifacts...), nil
}

// Committer writes snapshots under a root directory.
type Committer struct {
	root   string
	logger *zap.SugaredLogger
}

// NewCommitter creates a committer rooted at root.
func NewCommitter(root string, logger *zap.SugaredLogger) *Committer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Committer{root: root, logger: logger}
}

// Commit writes the artifacts whose content differs between prev and next.
// Each file is replaced atomically through a temporary file in the same directory.
func (c *Committer) Commit(ctx context.Context, prev, next *models.ArtifactSet) error {
	for _, p := range next.Changed(prev) {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, _ := next.Get(p)
		target := filepath.Join(c.root, filepath.FromSlash(a.Path))
		if err := writeFile(target, []byte(a.Content)); err != nil {
			return errors.Wrapf(err, "writing %s", a.Path)
		}
		c.logger.Debugw("committed artifact", "path", a.Path, "bytes", len(a.Content))
	}
	return nil
}

func writeFile(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// ExpandedTree reads expanded-tree files named by diagnostics.
type ExpandedTree struct {
	project     string
	expandedDir string
}

// NewExpandedTree creates a reader for a project whose expanded tree lives in
// expandedDir, relative to the project unless absolute.
func NewExpandedTree(project, expandedDir string) *ExpandedTree {
	return &ExpandedTree{project: project, expandedDir: expandedDir}
}

// Expanded returns the text of the file a diagnostic reports. The path is
// tried as given when absolute, then relative to the project, then relative
// to the expanded directory, and finally by base name inside it.
func (t *ExpandedTree) Expanded(d models.Diagnostic) (string, bool) {
	if d.File == "" {
		return "", false
	}
	for _, candidate := range t.candidates(filepath.FromSlash(models.NormalizePath(d.File))) {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), true
		}
	}
	return "", false
}

func (t *ExpandedTree) candidates(file string) []string {
	if filepath.IsAbs(file) {
		return []string{file}
	}
	expanded := t.expandedDir
	if expanded != "" && !filepath.IsAbs(expanded) {
		expanded = filepath.Join(t.project, expanded)
	}

	out := []string{filepath.Join(t.project, file)}
	if expanded != "" {
		out = append(out,
			filepath.Join(expanded, file),
			filepath.Join(expanded, filepath.Base(file)),
		)
	}
	return out
}

func statDir(p string) (bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
