package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validManifestYAML returns a minimal valid manifest in YAML format.
func validManifestYAML() string {
	return `version: "1.0"
root:
  backend: s3
  id: docs-bucket
paths:
  - "/docs/*"
`
}

// validManifestJSON returns a minimal valid manifest in JSON format.
func validManifestJSON() string {
	return `{
  "version": "1.0",
  "root": {
    "backend": "s3",
    "id": "docs-bucket"
  },
  "paths": ["/docs/*"]
}`
}

// manifestWithSchemaYAML returns a manifest with the $schema field for editor support.
func manifestWithSchemaYAML() string {
	return `$schema: https://schemas.arborlabs.dev/arbor/v1.0.0/job-manifest.schema.json
version: "1.0"
root:
  backend: s3
  id: docs-bucket
paths:
  - "/docs/*"
`
}

// fullManifestYAML returns a complete manifest with all optional fields.
func fullManifestYAML() string {
	return `version: "1.0"
root:
  backend: msgraph
  id: drive-1
  path: /wiki
paths:
  - "/docs/*"
  - "/readme.md"
scope:
  includes:
    - "/docs/**/*.md"
  excludes:
    - "/docs/drafts/**"
  include_hidden: true
output:
  destination: file:/tmp/output.jsonl
`
}

// namedRootManifestYAML references a root from the application config.
func namedRootManifestYAML() string {
	return `version: "1.0"
root:
  name: handbook
paths:
  - "/guides/*"
`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		filename    string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, m *Manifest)
	}{
		{
			name:     "valid YAML manifest",
			content:  validManifestYAML(),
			filename: "manifest.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "s3", m.Root.Backend)
				assert.Equal(t, "docs-bucket", m.Root.ID)
				assert.Equal(t, []string{"/docs/*"}, m.Paths)
				// Check defaults were applied
				assert.Equal(t, DefaultDestination, m.Output.Destination)
			},
		},
		{
			name:     "valid JSON manifest",
			content:  validManifestJSON(),
			filename: "manifest.json",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "docs-bucket", m.Root.ID)
			},
		},
		{
			name:     "manifest with $schema field",
			content:  manifestWithSchemaYAML(),
			filename: "manifest.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Contains(t, m.Schema, "job-manifest.schema.json")
			},
		},
		{
			name:     "full manifest",
			content:  fullManifestYAML(),
			filename: "manifest.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "msgraph", m.Root.Backend)
				assert.Equal(t, "/wiki", m.Root.Path)
				assert.Len(t, m.Paths, 2)
				assert.True(t, m.Scope.Enabled())
				assert.True(t, m.Scope.IncludeHidden)
				assert.Equal(t, "file:/tmp/output.jsonl", m.Output.Destination)
			},
		},
		{
			name:     "named root manifest",
			content:  namedRootManifestYAML(),
			filename: "manifest.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "handbook", m.Root.Name)
				assert.Empty(t, m.Root.Backend)
			},
		},
		{
			name:        "missing version",
			content:     "root:\n  backend: s3\n  id: b\npaths:\n  - \"/x\"\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "version",
		},
		{
			name:        "missing paths",
			content:     "version: \"1.0\"\nroot:\n  backend: s3\n  id: b\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "paths",
		},
		{
			name:        "empty paths",
			content:     "version: \"1.0\"\nroot:\n  backend: s3\n  id: b\npaths: []\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "paths",
		},
		{
			name:        "spec without leading slash",
			content:     "version: \"1.0\"\nroot:\n  backend: s3\n  id: b\npaths:\n  - \"docs/*\"\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "paths",
		},
		{
			name:        "root without name or backend",
			content:     "version: \"1.0\"\nroot:\n  path: /wiki\npaths:\n  - \"/x\"\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "root",
		},
		{
			name:        "unknown top-level field rejected",
			content:     validManifestYAML() + "bogus: true\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "bogus",
		},
		{
			name:        "unknown backend rejected",
			content:     "version: \"1.0\"\nroot:\n  backend: ftp\n  id: b\npaths:\n  - \"/x\"\n",
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "backend",
		},
		{
			name:        "wrong version rejected",
			content:     strings.Replace(validManifestYAML(), `"1.0"`, `"2.0"`, 1),
			filename:    "manifest.yaml",
			wantErr:     true,
			errContains: "version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			m, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, m)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadFromBytes_Empty(t *testing.T) {
	_, err := LoadFromBytes(nil, "manifest.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoadFromBytes_UnknownExtensionTriesYAMLThenJSON(t *testing.T) {
	m, err := LoadFromBytes([]byte(validManifestYAML()), "")
	require.NoError(t, err)
	assert.Equal(t, "docs-bucket", m.Root.ID)

	m, err = LoadFromBytes([]byte(validManifestJSON()), "")
	require.NoError(t, err)
	assert.Equal(t, "docs-bucket", m.Root.ID)
}

func TestLoadFromReader(t *testing.T) {
	m, err := LoadFromReader(strings.NewReader(validManifestYAML()), "manifest.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/*"}, m.Paths)
}

func TestValidate_StructRoundTrip(t *testing.T) {
	m := &Manifest{
		Version: DefaultVersion,
		Root:    RootConfig{Backend: "s3", ID: "docs-bucket"},
		Paths:   []string{"/docs/*"},
	}
	assert.NoError(t, Validate(m))
}

func TestValidate_ReportsValidationErrors(t *testing.T) {
	err := ValidateRaw([]byte(`{"version":"1.0"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.NotEmpty(t, errs)
}

func TestApplyDefaults(t *testing.T) {
	m := &Manifest{}
	m.ApplyDefaults()
	assert.Equal(t, DefaultDestination, m.Output.Destination)

	m = &Manifest{Output: OutputConfig{Destination: "file:/tmp/x.jsonl"}}
	m.ApplyDefaults()
	assert.Equal(t, "file:/tmp/x.jsonl", m.Output.Destination)
}

func TestScopeConfig_Enabled(t *testing.T) {
	assert.False(t, (&ScopeConfig{}).Enabled())
	assert.True(t, (&ScopeConfig{Includes: []string{"/**"}}).Enabled())
	assert.True(t, (&ScopeConfig{Excludes: []string{"/tmp/**"}}).Enabled())
}
