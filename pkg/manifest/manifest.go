// Package manifest provides loading and validation of arbor job manifests.
//
// A job manifest is a YAML or JSON file that configures an inventory job:
// the root to crawl, the path specs to expand, scope filtering, and output.
//
// Manifests are validated against a JSON Schema to ensure correctness before
// execution. The schema enforces strict typing and disallows unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	root:
//	  backend: s3
//	  id: docs-bucket
//	  path: /wiki
//	paths:
//	  - /docs/*
//	  - /readme.md
//	scope:
//	  includes:
//	    - "/docs/**/*.md"
//	output:
//	  destination: stdout
package manifest

// Manifest represents a validated job manifest.
//
// A manifest configures one inventory job. Required fields are Version,
// Root, and Paths. Scope and Output are optional with sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	// Example: "https://schemas.arborlabs.dev/arbor/v1.0.0/job-manifest.schema.json"
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Root identifies the tree to inventory.
	Root RootConfig `json:"root" yaml:"root"`

	// Paths are the path specs to expand: explicit paths or recursive
	// branches ending in "/*". At least one is required.
	Paths []string `json:"paths" yaml:"paths"`

	// Scope configures entry filtering by glob patterns (optional).
	Scope ScopeConfig `json:"scope,omitempty" yaml:"scope,omitempty"`

	// Output configures the output destination (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// RootConfig identifies the tree an inventory job runs against.
//
// Either Name references a root from the application configuration, or
// Backend and ID describe the root inline. When both are present, the
// named root supplies connection settings and Backend/ID are ignored.
type RootConfig struct {
	// Name is a named root from the server/CLI configuration.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Backend is the source backend type: "s3", "msgraph", "gdrive",
	// or "github".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// ID is the backend root handle: bucket name, drive ID, folder ID,
	// or owner/repo pair.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Path is the slash-rooted base path inside the root. Optional.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ScopeConfig configures entry filtering by glob patterns.
type ScopeConfig struct {
	// Includes is a list of glob patterns for entries to include.
	// Empty means all entries are kept.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`

	// Excludes is a list of glob patterns for entries to exclude. Optional.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`

	// IncludeHidden includes hidden paths (segments starting with .).
	// Default: false.
	IncludeHidden bool `json:"include_hidden,omitempty" yaml:"include_hidden,omitempty"`
}

// Enabled reports whether scope filtering is configured.
func (s *ScopeConfig) Enabled() bool {
	return len(s.Includes) > 0 || len(s.Excludes) > 0
}

// OutputConfig configures the output destination.
type OutputConfig struct {
	// Destination is the output target.
	// Values: "stdout" or "file:/path/to/output.jsonl"
	// Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultDestination is the default output destination.
	DefaultDestination = "stdout"
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest to ensure
// all optional fields have sensible values.
func (m *Manifest) ApplyDefaults() {
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
}
