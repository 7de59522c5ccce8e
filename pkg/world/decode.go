package world

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON reads a definition, rejecting unknown fields.
func DecodeJSON(r io.Reader) (Definition, error) {
	var def Definition
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("failed to decode world JSON: %w", err)
	}
	return def, nil
}

// DecodeYAML reads a definition, rejecting unknown fields.
func DecodeYAML(r io.Reader) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("failed to decode world YAML: %w", err)
	}
	return def, nil
}

// ReadFile decodes a definition file, choosing the format by extension.
func ReadFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to open world file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeJSON(f)
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return Definition{}, fmt.Errorf("unsupported world file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// LoadFile reads and loads a world file.
func LoadFile(path string) (*Graph, error) {
	def, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(def)
}
