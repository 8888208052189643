package watcher

import (
	"path"

	coreerrors "dotdeploy/internal/core/errors"
	"dotdeploy/internal/shared/util"
)

const (
	// SentinelName is created and removed by the deployer while probing for
	// symlink support.
	SentinelName = "DOTTER_SYMLINK_TEST"
	vcsPattern   = ".git/**"
)

// ExclusionRule names one reason a path is irrelevant. A rule may carry the
// same pattern in absolute and root-relative form.
type ExclusionRule struct {
	Name     string
	Patterns []*PathPattern
}

func (r ExclusionRule) matches(candidates []string) bool {
	for _, p := range r.Patterns {
		for _, c := range candidates {
			if p.Match(c) {
				return true
			}
		}
	}
	return false
}

// ExclusionFilter decides whether a change batch should reach the debouncer.
// Rules are fixed at construction.
type ExclusionFilter struct {
	root  string
	rules []ExclusionRule
}

// NewExclusionFilter builds the four exclusion rules: cache directory
// subtree, cache file, VCS metadata and the symlink sentinel. No filter is
// returned unless every pattern compiles.
func NewExclusionFilter(root, cacheDir, cacheFile string) (*ExclusionFilter, error) {
	f := &ExclusionFilter{root: util.NormalizePatternPath(root)}

	dirPatterns, err := f.compileForms(cacheDir, func(p string) string { return path.Join(p, "**") })
	if err != nil {
		return nil, constructionError(err, cacheDir)
	}
	filePatterns, err := f.compileForms(cacheFile, func(p string) string { return p })
	if err != nil {
		return nil, constructionError(err, cacheFile)
	}

	f.rules = []ExclusionRule{
		{Name: "cache_dir", Patterns: dirPatterns},
		{Name: "cache_file", Patterns: filePatterns},
		{Name: "vcs", Patterns: []*PathPattern{MustCompilePattern(PatternGlob, vcsPattern)}},
		{Name: "sentinel", Patterns: []*PathPattern{MustCompilePattern(PatternExact, SentinelName)}},
	}
	return f, nil
}

// compileForms compiles the glob built from raw, and again from its
// root-relative form when raw lies inside the root.
func (f *ExclusionFilter) compileForms(raw string, build func(string) string) ([]*PathPattern, error) {
	normalized := util.NormalizePatternPath(raw)
	if normalized == "" {
		return nil, coreerrors.New(coreerrors.CodeValidationError, "path must not be empty")
	}

	forms := []string{normalized}
	if rel, ok := util.RelativeSlash(f.root, normalized); ok {
		forms = append(forms, rel)
	}

	patterns := make([]*PathPattern, 0, len(forms))
	for _, form := range forms {
		p, err := CompilePattern(PatternGlob, build(form))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func constructionError(err error, pattern string) error {
	return coreerrors.AddContext(
		coreerrors.Wrap(err, coreerrors.CodeFilterConstruction, "invalid exclusion pattern"),
		coreerrors.CtxPattern, pattern,
	)
}

// Rules returns the rules in construction order.
func (f *ExclusionFilter) Rules() []ExclusionRule {
	out := make([]ExclusionRule, len(f.rules))
	copy(out, f.rules)
	return out
}

// ExcludedBy returns the name of the first rule matching p, tested both as
// reported and relative to the watch root.
func (f *ExclusionFilter) ExcludedBy(p string) (string, bool) {
	candidates := f.candidates(p)
	for _, rule := range f.rules {
		if rule.matches(candidates) {
			return rule.Name, true
		}
	}
	return "", false
}

// IsRelevant reports whether at least one path of batch is matched by no rule.
func (f *ExclusionFilter) IsRelevant(batch ChangeBatch) bool {
	for _, p := range batch {
		if _, excluded := f.ExcludedBy(p); !excluded {
			return true
		}
	}
	return false
}

func (f *ExclusionFilter) candidates(p string) []string {
	reported := util.ToSlash(p)
	if rel, ok := util.RelativeSlash(f.root, reported); ok && rel != reported {
		return []string{reported, rel}
	}
	return []string{reported}
}
