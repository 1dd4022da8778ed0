package markup

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// TargetType is how a link target was interpreted.
type TargetType int

// Target types
const (
	// TargetURI is a direct URI reference.
	TargetURI TargetType = iota + 1
	// TargetName is a named reference resolved against the document.
	TargetName
)

func (t TargetType) String() string {
	switch t {
	case TargetURI:
		return "refuri"
	case TargetName:
		return "refname"
	default:
		return "malformed"
	}
}

// Target is a parsed link target.
type Target struct {
	Type  TargetType
	Value string
}

// ErrMalformedTarget is returned by ParseTarget for unusable targets.
var ErrMalformedTarget = errors.New("malformed target")

var (
	simpleReference = regexp.MustCompile(`^([A-Za-z0-9]+(?:[-._+:][A-Za-z0-9]+)*)_$`)
	phraseReference = regexp.MustCompile("^`((?:[^`\\\\]|\\\\.)+)`_$")
)

// ParseTarget interprets a target. A trailing underscore marks a reference
// name, either simple (name_) or quoted (`some name`_). Anything else is a
// URI with unescaped whitespace removed.
func ParseTarget(text string) (Target, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	joined := strings.TrimSpace(strings.Join(lines, " "))

	if strings.HasSuffix(joined, "_") {
		if name, ok := referenceName(joined); ok {
			return Target{Type: TargetName, Value: name}, nil
		}
	}

	uri, err := URI(joined)
	if err != nil {
		return Target{}, errors.Wrap(ErrMalformedTarget, "empty target")
	}
	if _, err := url.Parse(uri); err != nil {
		return Target{}, errors.Wrapf(ErrMalformedTarget, "invalid target URI %q", uri)
	}
	return Target{Type: TargetURI, Value: uri}, nil
}

func referenceName(s string) (string, bool) {
	normalized := WhitespaceNormalizeName(s)
	if m := simpleReference.FindStringSubmatch(normalized); m != nil {
		return m[1], true
	}
	if m := phraseReference.FindStringSubmatch(normalized); m != nil {
		return unescape(m[1]), true
	}
	return "", false
}
