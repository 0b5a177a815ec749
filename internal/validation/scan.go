package validation

import (
	"regexp"
	"strings"
)

// codeLine is one source line prepared for heuristic scanning.
type codeLine struct {
	// Num is the 1-based line number.
	Num int
	// Raw is the line as written.
	Raw string
	// Code is the line with comments removed and literal bodies blanked,
	// so braces and tokens inside strings or comments are not seen.
	Code string
	// Open and Close count the braces in Code.
	Open  int
	Close int
}

// scanLines splits content into lines and strips comments and literals.
// Block comment state carries across lines.
func scanLines(content string) []codeLine {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	out := make([]codeLine, 0, len(raw))
	inBlock := false
	for i, line := range raw {
		var code string
		code, inBlock = stripLine(line, inBlock)
		out = append(out, codeLine{
			Num:   i + 1,
			Raw:   line,
			Code:  code,
			Open:  strings.Count(code, "{"),
			Close: strings.Count(code, "}"),
		})
	}
	return out
}

// stripLine removes // and /* */ comments and empties string and character
// literals, keeping the quotes. It returns whether a block comment is still open.
func stripLine(line string, inBlock bool) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inBlock {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inBlock = false
				i++
				sb.WriteByte(' ')
			}
			continue
		}
		switch {
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return sb.String(), false
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			inBlock = true
			i++
		case c == '"' || c == '\'':
			sb.WriteByte(c)
			for i++; i < len(line); i++ {
				if line[i] == '\\' {
					i++
					continue
				}
				if line[i] == c {
					break
				}
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), inBlock
}

// signaturePattern matches the start of a C function declaration or definition:
// optional storage qualifiers, a return type and an identifier followed by "(".
var signaturePattern = regexp.MustCompile(
	`^\s*((?:(?:static|inline|extern|volatile|const)\s+)*)` +
		`(?:(?:unsigned|signed)\s+)?` +
		`(?:void|char|short|int|long|float|double|bool|_Bool|[A-Za-z_]\w*_t|struct\s+\w+|enum\s+\w+)` +
		`(?:\s*\*+\s*|\s+)([A-Za-z_]\w*)\s*\(`)

// signature reports the function name declared on a line, whether the line is
// only a prototype (terminated by ';' without a body) and whether it is static.
func signature(code string) (name string, prototype bool, static bool, ok bool) {
	m := signaturePattern.FindStringSubmatch(code)
	if m == nil {
		return "", false, false, false
	}
	trimmed := strings.TrimSpace(code)
	prototype = strings.HasSuffix(trimmed, ";") && !strings.Contains(trimmed, "{")
	return m[2], prototype, strings.Contains(m[1], "static"), true
}

// function is a function body located by brace-depth scanning.
type function struct {
	Name string
	// Start and End are 1-based inclusive line numbers from signature to closing brace.
	Start int
	End   int
}

// Len returns the number of lines spanned by the function.
func (f function) Len() int {
	return f.End - f.Start + 1
}

// Contains reports whether the 1-based line number lies in the function.
func (f function) Contains(line int) bool {
	return line >= f.Start && line <= f.End
}

// findFunctions locates function bodies. A function starts on a signature line
// while no other function is open and ends on the line where brace depth
// returns to the level it had before the signature.
func findFunctions(lines []codeLine) []function {
	var (
		out        []function
		cur        *function
		depth      int
		startDepth int
		opened     bool
	)
	for _, l := range lines {
		if cur == nil {
			if name, proto, _, ok := signature(l.Code); ok && !proto {
				cur = &function{Name: name, Start: l.Num}
				startDepth = depth
				opened = false
			}
		}

		depth += l.Open - l.Close
		if depth < 0 {
			depth = 0
		}

		if cur == nil {
			continue
		}
		if depth > startDepth || l.Open > 0 {
			opened = true
		}
		switch {
		case opened && depth <= startDepth:
			cur.End = l.Num
			out = append(out, *cur)
			cur = nil
		case !opened && strings.Contains(l.Code, ";"):
			// A prototype split across lines; no body follows.
			cur = nil
		}
	}
	if cur != nil && opened {
		cur.End = lines[len(lines)-1].Num
		out = append(out, *cur)
	}
	return out
}

// functionAt returns the function containing the 1-based line, if any.
func functionAt(funcs []function, line int) (function, bool) {
	for _, f := range funcs {
		if f.Contains(line) {
			return f, true
		}
	}
	return function{}, false
}

// isCoreFunction reports whether a function is part of the mandatory component
// surface: exactly init, poll or main, or named *_init, init_*, *_poll, poll_*.
func isCoreFunction(name string) bool {
	n := strings.ToLower(name)
	switch n {
	case "init", "poll", "main":
		return true
	}
	return strings.HasSuffix(n, "_init") || strings.HasPrefix(n, "init_") ||
		strings.HasSuffix(n, "_poll") || strings.HasPrefix(n, "poll_")
}

// isInitFunction reports whether a function only runs once at start-up.
func isInitFunction(name, entry string) bool {
	n := strings.ToLower(name)
	return n == strings.ToLower(entry) || n == "init" ||
		strings.HasSuffix(n, "_init") || strings.HasPrefix(n, "init_")
}
