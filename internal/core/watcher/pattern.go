package watcher

import (
	"fmt"
	"strings"

	"dotdeploy/internal/shared/util"

	"github.com/gobwas/glob"
)

type PatternKind int

const (
	// PatternGlob matches with `**` crossing segments and `*`, `?`, `[...]`
	// confined to one segment.
	PatternGlob PatternKind = iota
	// PatternExact matches byte-for-byte after separator normalization.
	PatternExact
)

func (k PatternKind) String() string {
	switch k {
	case PatternGlob:
		return "glob"
	case PatternExact:
		return "exact"
	default:
		return fmt.Sprintf("PatternKind(%d)", int(k))
	}
}

// PathPattern is a compiled exact or glob pattern matched against whole,
// forward-slash normalized paths.
type PathPattern struct {
	kind  PatternKind
	raw   string
	globs []glob.Glob
}

// CompilePattern compiles pattern. A malformed glob is reported here and
// never at match time.
func CompilePattern(kind PatternKind, pattern string) (*PathPattern, error) {
	normalized := util.ToSlash(pattern)
	if normalized == "" {
		return nil, fmt.Errorf("empty %s pattern", kind)
	}

	p := &PathPattern{kind: kind, raw: normalized}
	switch kind {
	case PatternExact:
		return p, nil
	case PatternGlob:
	default:
		return nil, fmt.Errorf("unknown pattern kind %d", int(kind))
	}

	if !balancedBraces(normalized) {
		return nil, fmt.Errorf("compile glob %q: unbalanced braces", pattern)
	}
	for _, variant := range expandDoubleStar(normalized) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// MustCompilePattern is CompilePattern for patterns known at compile time.
func MustCompilePattern(kind PatternKind, pattern string) *PathPattern {
	p, err := CompilePattern(kind, pattern)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *PathPattern) Kind() PatternKind { return p.kind }

func (p *PathPattern) String() string { return p.raw }

// Match reports whether the whole of path matches. Case-sensitive.
func (p *PathPattern) Match(path string) bool {
	path = util.ToSlash(path)
	if p.kind == PatternExact {
		return path == p.raw
	}
	for _, g := range p.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// balancedBraces reports whether every `{` is closed. gobwas accepts an
// unterminated alternation and treats the rest of the pattern as literal.
func balancedBraces(pattern string) bool {
	depth := 0
	for _, r := range pattern {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

const maxDroppableStars = 6

// expandDoubleStar returns the pattern plus every variant in which one or
// more whole `**` segments are dropped, so that `a/**/b` also matches `a/b`
// and `a/**` also matches `a`. gobwas keeps the surrounding slashes literal.
func expandDoubleStar(pattern string) []string {
	segments := strings.Split(pattern, "/")
	stars := make([]int, 0, 2)
	for i, seg := range segments {
		if seg == "**" {
			stars = append(stars, i)
		}
	}
	if len(stars) == 0 || len(segments) == 1 || len(stars) > maxDroppableStars {
		return []string{pattern}
	}

	seen := make(map[string]struct{}, 1<<len(stars))
	variants := make([]string, 0, 1<<len(stars))
	for mask := 0; mask < 1<<len(stars); mask++ {
		drop := make(map[int]bool, len(stars))
		for bit, idx := range stars {
			if mask&(1<<bit) != 0 {
				drop[idx] = true
			}
		}
		kept := make([]string, 0, len(segments))
		for i, seg := range segments {
			if !drop[i] {
				kept = append(kept, seg)
			}
		}
		variant := strings.Join(kept, "/")
		if variant == "" || variant == "/" && pattern != "/" {
			continue
		}
		if _, ok := seen[variant]; ok {
			continue
		}
		seen[variant] = struct{}{}
		variants = append(variants, variant)
	}
	return variants
}
