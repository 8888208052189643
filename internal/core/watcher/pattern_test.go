package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern_Glob(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{".git/**", ".git/HEAD", true},
		{".git/**", ".git/refs/heads/main", true},
		{".git/**", ".git", true},
		{".git/**", "src/.git/HEAD", false},
		{".git/**", ".github/workflows/ci.yml", false},
		{"/proj/.cache/**", "/proj/.cache/build.json", true},
		{"/proj/.cache/**", "/proj/.cache/a/b/c.json", true},
		{"/proj/.cache/**", "/proj/.cachefile", false},
		{"src/**/main.x", "src/main.x", true},
		{"src/**/main.x", "src/a/b/main.x", true},
		{"src/*.x", "src/main.x", true},
		{"src/*.x", "src/nested/main.x", false},
		{"src/?.x", "src/a.x", true},
		{"src/[ab].x", "src/b.x", true},
		{"src/[ab].x", "src/c.x", false},
		{"Src/*.x", "src/main.x", false},
		{"main.x", "src/main.x", false},
	}
	for _, tc := range cases {
		p, err := CompilePattern(PatternGlob, tc.pattern)
		require.NoError(t, err, tc.pattern)
		assert.Equal(t, tc.want, p.Match(tc.path), "pattern %q path %q", tc.pattern, tc.path)
	}
}

func TestCompilePattern_NormalizesSeparators(t *testing.T) {
	p, err := CompilePattern(PatternGlob, `C:\proj\.cache/**`)
	require.NoError(t, err)
	assert.True(t, p.Match(`C:\proj\.cache\out\file`))
	assert.Equal(t, "C:/proj/.cache/**", p.String())
}

func TestCompilePattern_Exact(t *testing.T) {
	p, err := CompilePattern(PatternExact, SentinelName)
	require.NoError(t, err)

	assert.True(t, p.Match("DOTTER_SYMLINK_TEST"))
	assert.False(t, p.Match("dotter_symlink_test"))
	assert.False(t, p.Match("DOTTER_SYMLINK_TEST.bak"))
	assert.False(t, p.Match("sub/DOTTER_SYMLINK_TEST"))

	// Exact patterns are not globs.
	star, err := CompilePattern(PatternExact, "a*")
	require.NoError(t, err)
	assert.True(t, star.Match("a*"))
	assert.False(t, star.Match("ab"))

	sep, err := CompilePattern(PatternExact, "dir/file")
	require.NoError(t, err)
	assert.True(t, sep.Match(`dir\file`))
}

func TestCompilePattern_Errors(t *testing.T) {
	_, err := CompilePattern(PatternGlob, "/proj/[.cache/**")
	assert.Error(t, err, "unclosed bracket must fail at compile time")

	_, err = CompilePattern(PatternGlob, "")
	assert.Error(t, err)

	_, err = CompilePattern(PatternKind(42), "x")
	assert.Error(t, err)
}

func TestCompilePattern_Braces(t *testing.T) {
	for _, pattern := range []string{"/proj/{a", "/proj/a}", "/proj/{a,{b}"} {
		_, err := CompilePattern(PatternGlob, pattern)
		assert.Error(t, err, pattern)
	}

	alt, err := CompilePattern(PatternGlob, "/proj/{a,b}.toml")
	require.NoError(t, err)
	assert.True(t, alt.Match("/proj/a.toml"))
	assert.True(t, alt.Match("/proj/b.toml"))
	assert.False(t, alt.Match("/proj/c.toml"))

	exact, err := CompilePattern(PatternExact, "/proj/{a")
	require.NoError(t, err)
	assert.True(t, exact.Match("/proj/{a"))
}

func TestMustCompilePattern_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompilePattern(PatternGlob, "[") })
}

func TestExpandDoubleStar(t *testing.T) {
	assert.Equal(t, []string{"a/b"}, expandDoubleStar("a/b"))
	assert.Equal(t, []string{"**"}, expandDoubleStar("**"))
	assert.ElementsMatch(t, []string{"a/**", "a"}, expandDoubleStar("a/**"))
	assert.ElementsMatch(t, []string{"**/x", "x"}, expandDoubleStar("**/x"))
	assert.ElementsMatch(t, []string{"a/**/b/**", "a/b/**", "a/**/b", "a/b"}, expandDoubleStar("a/**/b/**"))
	assert.ElementsMatch(t, []string{"/**"}, expandDoubleStar("/**"))
}

func TestPatternKindString(t *testing.T) {
	assert.Equal(t, "glob", PatternGlob.String())
	assert.Equal(t, "exact", PatternExact.String())
}
