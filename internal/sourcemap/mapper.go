// Package sourcemap maps compiler locations in the expanded build tree back to
// the generated artifact and line that produced them.
//
// Before the first compile attempt every source artifact receives marker
// comments of the form
//
//	// @source: _api/Indicators/LEDs/led.c:11
//
// on its first line and then every interval lines. The external template
// engine copies the markers into the expanded tree, so the nearest marker
// above a reported line identifies the original file and line.
package sourcemap

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// DefaultInterval is the number of original lines between two markers.
const DefaultInterval = 10

// markerPattern matches a marker line after trimming.
var markerPattern = regexp.MustCompile(`^//\s*@source:\s*(.+?):(\d+)\s*$`)

// Marker renders the marker comment for an artifact line.
func Marker(artifactPath string, line int) string {
	return fmt.Sprintf("// @source: %s:%d", artifactPath, line)
}

// ParseMarker returns the path and line recorded by a marker line.
func ParseMarker(line string) (string, int, bool) {
	m := markerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// Strategy names how a diagnostic was mapped.
type Strategy string

const (
	// StrategyMarker resolved the location through markers in the expanded text.
	StrategyMarker Strategy = "marker"
	// StrategyFilename matched the reported file name only.
	StrategyFilename Strategy = "filename"
)

// Mapped is a diagnostic associated with a generated artifact.
type Mapped struct {
	Diagnostic models.Diagnostic
	Artifact   models.GeneratedArtifact
	// Line is the 1-based line within Artifact.
	Line     int
	Strategy Strategy
}

// Mapper inserts markers and resolves diagnostics.
type Mapper struct {
	interval int
	logger   *zap.SugaredLogger
}

// New creates a mapper. A non-positive interval uses DefaultInterval.
func New(interval int, logger *zap.SugaredLogger) *Mapper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Mapper{interval: interval, logger: logger}
}

// Interval returns the number of original lines per marker block.
func (m *Mapper) Interval() int {
	return m.interval
}

// InsertMarkers returns the artifact content with markers inserted before
// line 1 and before every interval-th line after it. Only headers and
// implementation files are marked; scripts, structured data and artifacts that
// already carry their own line-1 marker are returned unchanged.
func (m *Mapper) InsertMarkers(a models.GeneratedArtifact) string {
	if !a.Category.IsSource() {
		return a.Content
	}
	lines := strings.Split(a.Content, "\n")
	for _, l := range lines {
		if p, n, ok := ParseMarker(l); ok && p == a.Path && n == 1 {
			return a.Content
		}
	}

	out := make([]string, 0, len(lines)+len(lines)/m.interval+1)
	for i, line := range lines {
		if i%m.interval == 0 {
			out = append(out, Marker(a.Path, i+1))
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// MarkAll returns a snapshot in which every eligible artifact carries markers.
// The input snapshot is not modified.
func (m *Mapper) MarkAll(set *models.ArtifactSet) *models.ArtifactSet {
	next := set
	for _, a := range set.All() {
		next = next.WithContent(a.Path, m.InsertMarkers(a))
	}
	return next
}

// ResolveLocation scans upward from errorLine (1-based) in the expanded text for
// the nearest marker and computes the original line. It returns false when the
// line is out of range or no marker precedes it.
func ResolveLocation(expanded string, errorLine int) (models.LocationMapping, bool) {
	lines := strings.Split(strings.ReplaceAll(expanded, "\r\n", "\n"), "\n")
	if errorLine < 1 || errorLine > len(lines) {
		return models.LocationMapping{}, false
	}

	for i := errorLine - 1; i >= 0; i-- {
		p, markerLine, ok := ParseMarker(lines[i])
		if !ok {
			continue
		}
		markerIndex := i + 1
		return models.LocationMapping{
			OriginalPath: p,
			OriginalLine: markerLine + (errorLine - markerIndex) - 1,
			ExpandedLine: errorLine,
		}, true
	}
	return models.LocationMapping{}, false
}

// MapDiagnostic associates a diagnostic with an artifact. With expanded text,
// markers are tried first and the recorded path is matched against the
// snapshot allowing prefix differences. Otherwise, or when that fails, the
// reported file name is matched against header and implementation artifacts
// and the reported line is kept. Pass "" when no expanded text is available.
func (m *Mapper) MapDiagnostic(d models.Diagnostic, set *models.ArtifactSet, expanded string) (Mapped, bool) {
	if expanded != "" && d.Line > 0 {
		if loc, ok := ResolveLocation(expanded, d.Line); ok {
			for _, a := range set.All() {
				if models.MatchPath(a.Path, loc.OriginalPath) {
					m.logger.Debugw("mapped diagnostic",
						"strategy", StrategyMarker,
						"expanded_line", d.Line,
						"path", a.Path,
						"line", loc.OriginalLine,
					)
					return Mapped{Diagnostic: d, Artifact: a, Line: loc.OriginalLine, Strategy: StrategyMarker}, true
				}
			}
		}
	}

	name := path.Base(models.NormalizePath(d.File))
	if d.File != "" && name != "." && name != "/" {
		for _, a := range set.All() {
			if !a.Category.IsSource() {
				continue
			}
			if strings.EqualFold(path.Base(a.Path), name) {
				m.logger.Debugw("mapped diagnostic",
					"strategy", StrategyFilename,
					"file", d.File,
					"path", a.Path,
					"line", d.Line,
				)
				return Mapped{Diagnostic: d, Artifact: a, Line: d.Line, Strategy: StrategyFilename}, true
			}
		}
	}

	m.logger.Debugw("diagnostic not mapped", "file", d.File, "line", d.Line)
	return Mapped{}, false
}
