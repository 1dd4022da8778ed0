package main

import (
	"encoding/json"
	"io"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/mosaic/pkg/settings"
)

// EffectiveConfig is the configuration mosaic runs with once defaults,
// mosaic.yaml, MOSAIC_* variables and flags are merged.
type EffectiveConfig struct {
	Path        string        `json:"path" yaml:"path" jsonschema:"description=Content root holding pages and photos,default=content"`
	ContentRoot string        `json:"content_root,omitempty" yaml:"content_root,omitempty" jsonschema:"description=Absolute content root (computed)"`
	Output      string        `json:"output" yaml:"output" jsonschema:"description=Directory rendered pages are written to,default=output"`
	LogLevel    string        `json:"log_level" yaml:"log_level" jsonschema:"enum=panic,enum=fatal,enum=error,enum=warn,enum=info,enum=debug,enum=trace,default=info"`
	LogFormat   string        `json:"log_format" yaml:"log_format" jsonschema:"enum=text,enum=json,default=text"`
	Tracing     TracingConfig `json:"tracing" yaml:"tracing"`
}

// TracingConfig is the tracing section of EffectiveConfig.
type TracingConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Sampler string  `json:"sampler" yaml:"sampler" jsonschema:"enum=always,enum=never,enum=ratio,default=ratio"`
	Ratio   float64 `json:"ratio" yaml:"ratio" jsonschema:"minimum=0,maximum=1,default=1"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration mosaic runs with as YAML, after merging defaults,
mosaic.yaml, MOSAIC_* environment variables and flags.

With --schema, print the JSON schema of the configuration instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if schema, _ := cmd.Flags().GetBool("schema"); schema {
			return writeConfigSchema(cmd.OutOrStdout())
		}

		config, err := loadEffectiveConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return writeConfig(cmd.OutOrStdout(), config)
	},
}

func init() {
	configCmd.Flags().Bool("schema", false, "Print the JSON schema of the configuration")
}

func loadEffectiveConfig(v *viper.Viper) (EffectiveConfig, error) {
	s, err := settings.FromGetter(v)
	if err != nil {
		return EffectiveConfig{}, err
	}
	root, err := s.ContentRoot()
	if err != nil {
		return EffectiveConfig{}, err
	}

	return EffectiveConfig{
		Path:        s.Path,
		ContentRoot: root,
		Output:      v.GetString("output"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		Tracing: TracingConfig{
			Enabled: v.GetBool("tracing.enabled"),
			Sampler: v.GetString("tracing.sampler"),
			Ratio:   v.GetFloat64("tracing.ratio"),
		},
	}, nil
}

func writeConfig(w io.Writer, config EffectiveConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return errors.Wrap(err, "failed to encode configuration")
	}
	return enc.Close()
}

func writeConfigSchema(w io.Writer) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&EffectiveConfig{})

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal configuration schema")
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
