package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	OutputYAML = "yaml"
	OutputJSON = "json"
)

var ErrInvalidOutput = errors.New("invalid output format")

// encode writes v to w as YAML or JSON.
func encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case OutputYAML, "":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("%w: %q", ErrInvalidOutput, format)
}
