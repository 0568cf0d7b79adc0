package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// OutputFlags holds the output selection shared by listing commands.
type OutputFlags struct {
	Format string
	Quiet  bool
}

// AddOutputFlags adds -o/--output and -q/--quiet to cmd.
func AddOutputFlags(cmd *cobra.Command, formats ...string) *OutputFlags {
	flags := &OutputFlags{}
	cmd.Flags().StringVarP(&flags.Format, "output", "o", formats[0],
		fmt.Sprintf("Output format (%s)", strings.Join(formats, "|")))
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")

	AddFlagValidation(cmd.Flags(), "output", func(v string) error {
		return ValidateChoice("output format", v, formats)
	})
	return flags
}

// AddFlagValidation validates every value given to the named flag.
func AddFlagValidation(fs *pflag.FlagSet, flagName string, validator func(string) error) {
	flag := fs.Lookup(flagName)
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}

// ValidateChoice checks that value is one of choices and suggests the
// closest one otherwise.
func ValidateChoice(what, value string, choices []string) error {
	for _, c := range choices {
		if value == c {
			return nil
		}
	}
	for _, c := range choices {
		if strings.HasPrefix(c, strings.ToLower(value)) && value != "" {
			return fmt.Errorf("invalid %s %q, did you mean %q?", what, value, c)
		}
	}
	return fmt.Errorf("invalid %s %q, must be one of: %s", what, value, strings.Join(choices, ", "))
}

// ParseData reads template data. value is either inline JSON or YAML, or the
// path of a .json, .yml or .yaml file, optionally prefixed with "@". An
// empty value yields empty data.
func ParseData(value string) (map[string]interface{}, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return map[string]interface{}{}, nil
	}

	raw := []byte(value)
	source := "data"
	if path, isFile := dataFile(value); isFile {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %s: %w", path, err)
		}
		raw, source = content, path
	}

	data := map[string]interface{}{}
	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", source, err)
		}
		return data, nil
	}
	// YAML is a superset of JSON, so inline JSON decodes here too.
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid data in %s: %w", source, err)
	}
	return data, nil
}

func dataFile(value string) (string, bool) {
	if strings.HasPrefix(value, "@") {
		return strings.TrimPrefix(value, "@"), true
	}
	switch strings.ToLower(filepath.Ext(value)) {
	case ".json", ".yml", ".yaml":
		if !strings.ContainsAny(value, "{}\n") {
			return value, true
		}
	}
	return "", false
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
