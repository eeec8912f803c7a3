package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateName validates a graph, node instance, or channel name.
// It rejects names that could be used for path traversal or injection.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Format-specific validation (instance names, volume names) is layered
// on top of this baseline.
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePath validates a file path within a channel bundle for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// instanceNameRegex matches valid node instance names as accepted by the
// platform interpreter: a letter followed by letters, digits, spaces,
// underscores, or hyphens.
var instanceNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _-]*$`)

// ValidateInstanceName validates a node instance name within a graph.
func ValidateInstanceName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if !instanceNameRegex.MatchString(name) {
		return New(ErrCodeInvalidGraph, "invalid node instance name: %q", name)
	}

	return nil
}

// nodeTypeRegex matches fully qualified node type identifiers:
// "package.NodeType" with dotted package segments.
var nodeTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// ValidateNodeType validates a fully qualified node type identifier.
func ValidateNodeType(typ string) error {
	if err := ValidateName(typ); err != nil {
		return err
	}

	if !nodeTypeRegex.MatchString(typ) {
		return New(ErrCodeUnknownNodeType, "invalid node type identifier: %q", typ)
	}

	return nil
}

// volumeNameRegex matches valid platform volume names.
var volumeNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateVolumeName validates a platform volume name.
func ValidateVolumeName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if !volumeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid volume name: %q", name)
	}

	return nil
}

// graphFileRegex matches graph descriptor filenames under graphs/.
var graphFileRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*\.(yaml|yml)$`)

// ValidateGraphFilename validates a graph descriptor filename.
// It ensures the filename is a simple basename with a YAML extension.
func ValidateGraphFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidGraph, "graph filename cannot be empty")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidGraph, "graph filename cannot contain path separators")
	}

	if !graphFileRegex.MatchString(filename) {
		return New(ErrCodeInvalidGraph, "invalid graph filename: %q", filename)
	}

	return nil
}
