package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	Root      string
	CacheDir  string
	CacheFile string
}

// ResolvePaths anchors the watch root on cwd and the cache paths on the root.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	root := ResolveRelative(cwd, cfg.Watch.Root)
	if !filepath.IsAbs(root) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return ResolvedPaths{}, fmt.Errorf("resolve watch root %q: %w", root, err)
		}
		root = abs
	}

	return ResolvedPaths{
		Root:      root,
		CacheDir:  ResolveRelative(root, cfg.Cache.Dir),
		CacheFile: ResolveRelative(root, cfg.Cache.File),
	}, nil
}

// Resolve rewrites the watch root and cache paths of cfg to absolute paths.
func (c *Config) Resolve(cwd string) error {
	resolved, err := ResolvePaths(c, cwd)
	if err != nil {
		return err
	}
	c.Watch.Root = resolved.Root
	c.Cache.Dir = resolved.CacheDir
	c.Cache.File = resolved.CacheFile
	return nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
