package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values may be written either as Go
// duration strings ("500ms", "30s") or as bare integer seconds.
type Duration time.Duration

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts duration strings and integer second counts.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var asSeconds int64
	if err := node.Decode(&asSeconds); err == nil {
		*d = Duration(time.Duration(asSeconds) * time.Second)
		return nil
	}
	var asString string
	if err := node.Decode(&asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", asString, err)
		}
		*d = Duration(parsed)
		return nil
	}
	return fmt.Errorf("line %d: unsupported duration value", node.Line)
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
