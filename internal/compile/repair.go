package compile

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/sourcemap"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// RuleMissingInclude is the repair that adds a HAL header for an undeclared identifier.
const RuleMissingInclude = "MissingInclude"

// headerPrefixes maps identifier prefixes to the header that declares them.
// Order matters: the first matching prefix wins.
var headerPrefixes = []struct {
	prefix string
	header string
}{
	{"HAL_GPIO", "hal_gpio.h"},
	{"HAL_SPI", "hal_spi.h"},
	{"HAL_I2C", "hal_i2c.h"},
	{"HAL_UART", "hal_uart.h"},
	{"HAL_ADC", "hal_adc.h"},
	{"HAL_PWM", "hal_pwm.h"},
	{"HAL_Timer", "hal_timer.h"},
	{"getSystemMilis", "system_time.h"},
}

// quotedIdentifier matches an identifier in ASCII, typographic or backtick quotes.
var quotedIdentifier = regexp.MustCompile("['‘\"`]([A-Za-z_]\\w*)['’\"`]")

// Repair records one automatic edit.
type Repair struct {
	Path       string `json:"path"`
	Line       int    `json:"line"`
	Rule       string `json:"rule"`
	Identifier string `json:"identifier"`
	Header     string `json:"header"`
	Diagnostic string `json:"diagnostic"`
}

// String describes the repair for logs and reports.
func (r Repair) String() string {
	return fmt.Sprintf("%s: added #include \"%s\" for %s", r.Path, r.Header, r.Identifier)
}

// Repairer applies text repairs keyed on diagnostic messages.
type Repairer struct {
	logger *zap.SugaredLogger
}

// NewRepairer creates a repairer.
func NewRepairer(logger *zap.SugaredLogger) *Repairer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Repairer{logger: logger}
}

// Repair returns the new content of a for a mapped diagnostic. ok is false when
// the message shape is not handled or the edit would be a no-op.
func (r *Repairer) Repair(a models.GeneratedArtifact, m sourcemap.Mapped) (rep Repair, content string, ok bool) {
	msg := m.Diagnostic.Message
	if !isUndeclared(msg) {
		return Repair{}, "", false
	}

	match := quotedIdentifier.FindStringSubmatch(msg)
	if match == nil {
		r.logger.Debugw("no identifier in undeclared diagnostic", "message", msg)
		return Repair{}, "", false
	}
	ident := match[1]

	header, found := HeaderFor(ident)
	if !found {
		r.logger.Debugw("no header known for identifier", "identifier", ident)
		return Repair{}, "", false
	}

	content, added := AddInclude(a.Content, header)
	if !added {
		return Repair{}, "", false
	}

	rep = Repair{
		Path:       a.Path,
		Line:       m.Line,
		Rule:       RuleMissingInclude,
		Identifier: ident,
		Header:     header,
		Diagnostic: msg,
	}
	r.logger.Infow("applied repair",
		"path", a.Path,
		"line", m.Line,
		"identifier", ident,
		"header", header,
	)
	return rep, content, true
}

func isUndeclared(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "undeclared") ||
		strings.Contains(lower, "undefined") ||
		strings.Contains(lower, "implicit declaration")
}

// HeaderFor returns the header declaring identifier, by prefix.
func HeaderFor(identifier string) (string, bool) {
	for _, p := range headerPrefixes {
		if strings.HasPrefix(identifier, p.prefix) {
			return p.header, true
		}
	}
	return "", false
}

// IncludeLine renders the include directive for a header.
func IncludeLine(header string) string {
	return fmt.Sprintf("#include \"%s\"", header)
}

// AddInclude inserts the include for header after the last #include line. When
// there is none it becomes the first line, below a leading location marker if
// present. It returns false, with content unchanged, if the header is already
// included.
func AddInclude(content, header string) (string, bool) {
	present := regexp.MustCompile(`^\s*#\s*include\s*[<"]` + regexp.QuoteMeta(header) + `[>"]`)
	lines := strings.Split(content, "\n")

	last := -1
	for i, l := range lines {
		if present.MatchString(l) {
			return content, false
		}
		if strings.HasPrefix(strings.TrimSpace(l), "#include") {
			last = i
		}
	}
	if last < 0 {
		if _, _, ok := sourcemap.ParseMarker(lines[0]); ok {
			last = 0
		}
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:last+1]...)
	out = append(out, IncludeLine(header))
	out = append(out, lines[last+1:]...)
	return strings.Join(out, "\n"), true
}
