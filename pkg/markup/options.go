package markup

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OptionFunc validates and converts a raw option value.
type OptionFunc func(value string) (any, error)

// Options holds converted directive options.
type Options map[string]any

// Has reports whether the option was given.
func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// String returns a string option.
func (o Options) String(name string) (string, bool) {
	v, ok := o[name].(string)
	return v, ok
}

// Strings returns a list option such as ClassOption.
func (o Options) Strings(name string) []string {
	v, _ := o[name].([]string)
	return v
}

// Unchanged returns the value as given.
func Unchanged(value string) (any, error) {
	return value, nil
}

// UnchangedRequired returns the value as given, rejecting empty values.
func UnchangedRequired(value string) (any, error) {
	if value == "" {
		return nil, errors.New("argument required but none supplied")
	}
	return value, nil
}

// URIOption converts the value with URI.
func URIOption(value string) (any, error) {
	uri, err := URI(value)
	if err != nil {
		return nil, err
	}
	return uri, nil
}

// ClassOption splits the value on whitespace and turns each token into a
// class name.
func ClassOption(value string) (any, error) {
	if strings.TrimSpace(value) == "" {
		return nil, errors.New("argument required but none supplied")
	}

	var classes []string
	for _, token := range strings.Fields(value) {
		class := MakeID(token)
		if class == "" {
			return nil, errors.Errorf("cannot make %q into a class name", token)
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// URI removes unescaped whitespace from a URI reference. Escaped
// whitespace ("\ ") is kept as a single space.
func URI(value string) (string, error) {
	var parts []string
	for _, part := range splitEscapedWhitespace(value) {
		parts = append(parts, strings.Join(strings.Fields(unescape(part)), ""))
	}
	uri := strings.Join(parts, " ")
	if strings.TrimSpace(uri) == "" {
		return "", errors.New("URI required but none supplied")
	}
	return uri, nil
}

func splitEscapedWhitespace(s string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				parts = append(parts, cur.String())
				cur.Reset()
				i++
				continue
			}
			cur.WriteByte(s[i])
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		cur.WriteByte(s[i])
	}
	return append(parts, cur.String())
}

// unescape drops backslash escapes, keeping the escaped character.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// WhitespaceNormalizeName collapses runs of whitespace into single spaces.
func WhitespaceNormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// FullyNormalizeName lower-cases and whitespace-normalises a name.
func FullyNormalizeName(name string) string {
	return strings.ToLower(WhitespaceNormalizeName(name))
}

var (
	nonIDChars  = regexp.MustCompile(`[^a-z0-9]+`)
	nonIDAtEnds = regexp.MustCompile(`^[-0-9]+|-+$`)
)

// MakeID turns a name into an identifier usable as an HTML id or class:
// accents are stripped, everything is lower-cased, other characters are
// collapsed to hyphens, and the result starts with a letter.
func MakeID(name string) string {
	id := strings.ToLower(name)
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), id)
	if err == nil {
		id = folded
	}
	id = nonIDChars.ReplaceAllString(strings.Join(strings.Fields(id), " "), "-")
	return nonIDAtEnds.ReplaceAllString(id, "")
}
