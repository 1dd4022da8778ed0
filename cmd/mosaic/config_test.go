package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadEffectiveConfig(t *testing.T) {
	root := t.TempDir()
	v := viper.New()
	setDefaults(v)
	v.Set("path", root)
	v.Set("tracing.enabled", true)

	config, err := loadEffectiveConfig(v)
	require.NoError(t, err)
	assert.Equal(t, EffectiveConfig{
		Path:        root,
		ContentRoot: root,
		Output:      "output",
		LogLevel:    "info",
		LogFormat:   "text",
		Tracing:     TracingConfig{Enabled: true, Sampler: "ratio", Ratio: 1},
	}, config)
}

func TestWriteConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("path", "/srv/site")

	config, err := loadEffectiveConfig(v)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, config))
	assert.Contains(t, buf.String(), "path: /srv/site\n")
	assert.Contains(t, buf.String(), "tracing:\n  enabled: false\n  sampler: ratio\n")

	var decoded EffectiveConfig
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, config, decoded)
}

func TestWriteConfigSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfigSchema(&buf))

	var schema struct {
		Type                 string                    `json:"type"`
		AdditionalProperties bool                      `json:"additionalProperties"`
		Properties           map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))

	assert.Equal(t, "object", schema.Type)
	assert.False(t, schema.AdditionalProperties)
	for _, key := range []string{"path", "output", "log_level", "log_format", "tracing"} {
		assert.Contains(t, schema.Properties, key)
	}
	assert.Equal(t, []any{"text", "json"}, schema.Properties["log_format"]["enum"])
	assert.Equal(t, "content", schema.Properties["path"]["default"])
}
