package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURI(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/img/a.jpg", "/img/a.jpg"},
		{"  /img/a.jpg  ", "/img/a.jpg"},
		{"https://example.com/a very/long.jpg", "https://example.com/avery/long.jpg"},
		{`/img/with\ space.jpg`, "/img/with space.jpg"},
		{"{filename}/img/a.jpg", "{filename}/img/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			uri, err := URI(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, uri)
		})
	}

	_, err := URI("   ")
	assert.Error(t, err)
}

func TestClassOption(t *testing.T) {
	v, err := ClassOption("wide  Dark_Mode m-fullwidth")
	require.NoError(t, err)
	assert.Equal(t, []string{"wide", "dark-mode", "m-fullwidth"}, v)

	_, err = ClassOption("")
	assert.Error(t, err)

	_, err = ClassOption("ok 123")
	assert.Error(t, err)
}

func TestMakeID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"My Photo", "my-photo"},
		{"  spaced   out  ", "spaced-out"},
		{"Café au lait", "cafe-au-lait"},
		{"2024 trip", "trip"},
		{"trailing!!", "trailing"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeID(tt.input))
		})
	}
}

func TestNormalizeNames(t *testing.T) {
	assert.Equal(t, "my photos", WhitespaceNormalizeName("  my \n photos "))
	assert.Equal(t, "My photos", WhitespaceNormalizeName("My   photos"))
	assert.Equal(t, "my photos", FullyNormalizeName("My \t Photos"))
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Target
	}{
		{"uri", "https://example.com/photos", Target{TargetURI, "https://example.com/photos"}},
		{"uri across lines", "https://example.com/\n  photos", Target{TargetURI, "https://example.com/photos"}},
		{"relative uri", "/gallery/", Target{TargetURI, "/gallery/"}},
		{"simple name", "photos_", Target{TargetName, "photos"}},
		{"dotted name", "trip.2024_", Target{TargetName, "trip.2024"}},
		{"phrase name", "`My Photos`_", Target{TargetName, "My Photos"}},
		{"phrase name across lines", "`My\n   Photos`_", Target{TargetName, "My Photos"}},
		{"underscore in uri", "https://example.com/a_", Target{TargetURI, "https://example.com/a_"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := ParseTarget(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, target)
		})
	}
}

func TestParseTargetMalformed(t *testing.T) {
	for _, input := range []string{"", "   ", "%zz", "http://[::1"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTarget(input)
			assert.ErrorIs(t, err, ErrMalformedTarget)
		})
	}
}

func TestTargetTypeString(t *testing.T) {
	assert.Equal(t, "refuri", TargetURI.String())
	assert.Equal(t, "refname", TargetName.String())
	assert.Equal(t, "malformed", TargetType(0).String())
}
