package util

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ToSlash rewrites every backslash to a forward slash regardless of the host
// separator. Nothing else about the path changes.
func ToSlash(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(ToSlash(s))
	if trimmed == "" {
		return ""
	}
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix returns true when path equals prefix or is contained within prefix.
func HasPathPrefix(path, prefix string) bool {
	path = NormalizePatternPath(path)
	prefix = NormalizePatternPath(prefix)
	if path == "" || prefix == "" {
		return path == prefix
	}
	if path == prefix || prefix == "/" {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// RelativeSlash returns p relative to root in forward-slash form when p lies
// strictly inside root.
func RelativeSlash(root, p string) (string, bool) {
	root = NormalizePatternPath(root)
	p = NormalizePatternPath(p)
	if root == "" || p == "" || p == root || !HasPathPrefix(p, root) {
		return "", false
	}
	if root == "/" {
		return strings.TrimPrefix(p, "/"), true
	}
	return strings.TrimPrefix(p, root+"/"), true
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}
