package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads an inventory job manifest from path, validates it against
// the embedded schema, and applies defaults.
//
// The extension picks the decoder (.yaml/.yml or .json); anything else
// is sniffed as YAML first, JSON second. Schema validation runs on the
// raw document, so unknown fields are rejected rather than silently
// dropped by struct decoding.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job manifest not found: %s", path)
		}
		return nil, fmt.Errorf("read job manifest %s: %w", path, err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes validates and decodes a manifest held in memory. The
// path is used only for format detection and error text; empty is fine.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(data) == 0 {
		return nil, errors.New("job manifest is empty")
	}

	// Validation wants the raw document as JSON, whatever format it
	// arrived in.
	raw, err := rawJSON(data, path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(raw); err != nil {
		return nil, err
	}

	m, err := decode(data, path)
	if err != nil {
		return nil, err
	}
	m.ApplyDefaults()
	return m, nil
}

// LoadFromReader validates and decodes a manifest from r. The path is
// used only for format detection and error text.
func LoadFromReader(r io.Reader, path string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read job manifest: %w", err)
	}
	return LoadFromBytes(data, path)
}

// decode unmarshals the manifest with the decoder the extension names,
// or by sniffing when the extension is unrecognized.
func decode(data []byte, path string) (*Manifest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		m, yamlErr := decodeYAML(data)
		if yamlErr == nil {
			return m, nil
		}
		if m, err := decodeJSON(data); err == nil {
			return m, nil
		}
		// Report against YAML, the format manifests normally ship in.
		return nil, fmt.Errorf("job manifest is neither YAML nor JSON: %w", yamlErr)
	}
}

func decodeJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("job manifest JSON: %w", err)
	}
	return &m, nil
}

func decodeYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("job manifest YAML: %w", err)
	}
	return &m, nil
}

// rawJSON returns the manifest document as JSON bytes for schema
// validation, converting from YAML when needed.
func rawJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("job manifest JSON: %w", err)
		}
		return data, nil
	case ".yaml", ".yml":
		return yamlAsJSON(data)
	default:
		// YAML is a JSON superset, so try it first.
		raw, yamlErr := yamlAsJSON(data)
		if yamlErr == nil {
			return raw, nil
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err == nil {
			return data, nil
		}
		return nil, fmt.Errorf("job manifest is neither YAML nor JSON: %w", yamlErr)
	}
}

// yamlAsJSON round-trips a YAML document through a generic value into
// JSON bytes.
func yamlAsJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("job manifest YAML: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode job manifest for validation: %w", err)
	}
	return raw, nil
}
