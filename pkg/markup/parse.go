package markup

import (
	"fmt"
	"regexp"
	"strings"
)

// SyntaxError is a problem with how a directive block is written. It is
// reported as a diagnostic, never as a fatal error.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return e.Message
}

func syntaxErrorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...)}
}

var (
	directiveInfo = regexp.MustCompile(`^\{([A-Za-z][A-Za-z0-9_.:+-]*)\}(?:\s+(.*))?$`)
	optionLine    = regexp.MustCompile(`^:([^:\s][^:]*):(?:\s+(.*?))?\s*$`)
)

// splitInfo splits a fenced block info string "{name} args" into its parts.
func splitInfo(info string) (name, args string, ok bool) {
	m := directiveInfo.FindStringSubmatch(strings.TrimSpace(info))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// parseArguments splits the argument text according to spec.
func parseArguments(text string, spec Spec) ([]string, error) {
	max := spec.RequiredArguments + spec.OptionalArguments

	var args []string
	if text != "" {
		if spec.FinalArgumentWhitespace && max > 0 {
			args = splitN(text, max)
		} else {
			args = strings.Fields(text)
		}
	}

	if len(args) < spec.RequiredArguments {
		return nil, syntaxErrorf("%d argument(s) required, %d supplied", spec.RequiredArguments, len(args))
	}
	if len(args) > max {
		return nil, syntaxErrorf("maximum %d argument(s) allowed, %d supplied", max, len(args))
	}
	return args, nil
}

// splitN splits on whitespace into at most n fields; the last keeps its spaces.
func splitN(text string, n int) []string {
	var args []string
	rest := strings.TrimSpace(text)
	for len(args) < n-1 && rest != "" {
		i := strings.IndexFunc(rest, isSpace)
		if i < 0 {
			break
		}
		args = append(args, rest[:i])
		rest = strings.TrimSpace(rest[i:])
	}
	if rest != "" {
		args = append(args, rest)
	}
	return args
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// parseBody separates the leading ":name: value" option lines from the content.
func parseBody(lines []string, spec Spec) (Options, []string, error) {
	opts := make(Options)

	i := 0
	for ; i < len(lines); i++ {
		m := optionLine.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		name, value := strings.ToLower(strings.TrimSpace(m[1])), m[2]

		convert, known := spec.Options[name]
		if !known {
			return nil, nil, syntaxErrorf("unknown option: %q", name)
		}
		if opts.Has(name) {
			return nil, nil, syntaxErrorf("duplicate option %q", name)
		}
		converted, err := convert(value)
		if err != nil {
			return nil, nil, syntaxErrorf("invalid option value: (option: %q; value: %q)\n%s", name, value, err)
		}
		opts[name] = converted
	}

	content := trimBlankLines(lines[i:])
	if len(content) > 0 && !spec.HasContent {
		return nil, nil, syntaxErrorf("no content permitted")
	}
	return opts, content, nil
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
