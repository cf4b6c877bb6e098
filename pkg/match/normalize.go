// Package match provides scope filtering for inventory paths using
// doublestar glob semantics.
package match

import (
	"strings"
)

// Glob metacharacters that can be escaped with backslash in patterns.
const globEscapable = `*?[]{}\`

// NormalizePattern converts a user-provided glob pattern to canonical form.
//
// Normalization rules:
//   - Unescaped backslashes converted to forward slashes (Windows compat)
//   - Escaped backslashes and glob metacharacters preserved (\*, \?, \[, etc.)
//   - A leading slash is added if absent, matching the slash-rooted form
//     of inventory paths
//
// Examples:
//
//	"docs/2024/**"     → "/docs/2024/**"
//	"/docs/2024/**"    → "/docs/2024/**"      (unchanged)
//	"docs\2024\**"     → "/docs/2024/**"      (backslash → slash)
//	"docs/file\*.txt"  → "/docs/file\*.txt"   (escape preserved)
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(pattern) + 1)

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\\' && i+1 < len(runes) {
			next := runes[i+1]
			// Escape sequences for glob metacharacters survive intact
			if strings.ContainsRune(globEscapable, next) {
				result.WriteRune('\\')
				result.WriteRune(next)
				i++
				continue
			}
			// Unescaped backslash is a Windows separator
			result.WriteRune('/')
			continue
		}

		if r == '\\' {
			// Trailing backslash
			result.WriteRune('/')
			continue
		}

		result.WriteRune(r)
	}

	return rootSlash(result.String())
}

// rootSlash prefixes a leading slash if absent.
func rootSlash(s string) string {
	if s == "" || strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + s
}

// IsHidden returns true if any path segment starts with a dot.
//
// Hidden segments follow Unix convention where files and directories
// starting with '.' are considered hidden.
//
// Examples:
//
//	"/path/to/file.txt"      → false
//	"/.hidden/file.txt"      → true
//	"/path/.hidden/file.txt" → true
//	"/path/to/.gitignore"    → true
//	"/path/to/file.txt."     → false (dot at end is not hidden)
func IsHidden(path string) bool {
	if path == "" {
		return false
	}

	for _, seg := range strings.Split(path, "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return true
		}
	}

	return false
}
