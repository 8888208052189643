package watcher

import (
	"strings"
	"testing"

	coreerrors "dotdeploy/internal/core/errors"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRoot      = "/proj"
	testCacheDir  = "/proj/.cache"
	testCacheFile = "/proj/.dotdeploy/cache.toml"
)

func newTestFilter(t *testing.T) *ExclusionFilter {
	t.Helper()
	f, err := NewExclusionFilter(testRoot, testCacheDir, testCacheFile)
	require.NoError(t, err)
	return f
}

func TestExclusionFilter_RuleOrder(t *testing.T) {
	f := newTestFilter(t)
	names := make([]string, 0, 4)
	for _, r := range f.Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"cache_dir", "cache_file", "vcs", "sentinel"}, names)
}

func TestExclusionFilter_CacheDirectory(t *testing.T) {
	f := newTestFilter(t)

	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/.cache/build.json"}))

	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/.cache"}))
	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/.cache/deep/nested/file"}))
	assert.False(t, f.IsRelevant(ChangeBatch{".cache/build.json"}), "root-relative form must be excluded too")
	assert.True(t, f.IsRelevant(ChangeBatch{"/proj/.cachex/build.json"}))
}

func TestExclusionFilter_CacheFile(t *testing.T) {
	f := newTestFilter(t)
	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/.dotdeploy/cache.toml"}))
	assert.False(t, f.IsRelevant(ChangeBatch{".dotdeploy/cache.toml"}))
	assert.True(t, f.IsRelevant(ChangeBatch{"/proj/.dotdeploy/local.toml"}))

	rule, excluded := f.ExcludedBy("/proj/.dotdeploy/cache.toml")
	assert.True(t, excluded)
	assert.Equal(t, "cache_file", rule)
}

func TestExclusionFilter_VCSAndSentinel(t *testing.T) {
	f := newTestFilter(t)

	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/.git/index", "/proj/.git/objects/ab/cdef"}))
	assert.False(t, f.IsRelevant(ChangeBatch{".git/HEAD"}))
	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/DOTTER_SYMLINK_TEST"}))
	assert.False(t, f.IsRelevant(ChangeBatch{"DOTTER_SYMLINK_TEST"}))

	assert.True(t, f.IsRelevant(ChangeBatch{"/proj/sub/DOTTER_SYMLINK_TEST"}), "sentinel is an exact name relative to the root")
	assert.True(t, f.IsRelevant(ChangeBatch{"/proj/.gitignore"}))

	rule, _ := f.ExcludedBy("/proj/.git/HEAD")
	assert.Equal(t, "vcs", rule)
	rule, _ = f.ExcludedBy("DOTTER_SYMLINK_TEST")
	assert.Equal(t, "sentinel", rule)
}

func TestExclusionFilter_WindowsSeparators(t *testing.T) {
	f, err := NewExclusionFilter(`C:\proj`, `C:\proj\.cache`, `C:\proj\.dotdeploy\cache.toml`)
	require.NoError(t, err)

	assert.False(t, f.IsRelevant(ChangeBatch{`C:\proj\.cache\build.json`}))
	assert.False(t, f.IsRelevant(ChangeBatch{`C:\proj\.git\HEAD`}))
	assert.True(t, f.IsRelevant(ChangeBatch{`C:\proj\src\main.x`}))
}

func TestExclusionFilter_MixedBatch(t *testing.T) {
	f := newTestFilter(t)
	batch := ChangeBatch{
		"/proj/.cache/a",
		"/proj/.git/index",
		"/proj/src/main.x",
		"/proj/DOTTER_SYMLINK_TEST",
	}
	assert.True(t, f.IsRelevant(batch))
	assert.False(t, f.IsRelevant(ChangeBatch{}))
}

func TestExclusionFilter_RelativeCachePaths(t *testing.T) {
	f, err := NewExclusionFilter(testRoot, ".dotdeploy/cache", ".dotdeploy/cache.toml")
	require.NoError(t, err)

	assert.False(t, f.IsRelevant(ChangeBatch{"/proj/.dotdeploy/cache/zshrc"}))
	assert.False(t, f.IsRelevant(ChangeBatch{".dotdeploy/cache/zshrc"}))
	assert.True(t, f.IsRelevant(ChangeBatch{"/proj/zshrc"}))
}

func TestNewExclusionFilter_MalformedPattern(t *testing.T) {
	f, err := NewExclusionFilter(testRoot, "/proj/[.cache", testCacheFile)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeFilterConstruction))
	assert.True(t, coreerrors.IsFatal(err))
	assert.Contains(t, err.Error(), "[.cache")

	_, err = NewExclusionFilter(testRoot, testCacheDir, "/proj/[cache.toml")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeFilterConstruction))

	_, err = NewExclusionFilter(testRoot, "", testCacheFile)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeFilterConstruction))

	f, err = NewExclusionFilter(testRoot, "/proj/{a", testCacheFile)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeFilterConstruction))
}

var segmentGen = gen.RegexMatch(`^[a-z][a-z0-9_]{0,7}$`)

func excludedPathGen() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(0, 4), gen.SliceOfN(3, segmentGen)).Map(func(vals []interface{}) string {
		kind := vals[0].(int)
		rest := strings.Join(vals[1].([]string), "/")
		switch kind {
		case 0:
			return testCacheDir + "/" + rest
		case 1:
			return testRoot + "/.git/" + rest
		case 2:
			return ".git/" + rest
		case 3:
			return testCacheFile
		default:
			return SentinelName
		}
	})
}

func relevantPathGen() gopter.Gen {
	return gen.SliceOfN(3, segmentGen).Map(func(segs []string) string {
		return testRoot + "/src/" + strings.Join(segs, "/")
	})
}

func TestExclusionFilter_Properties(t *testing.T) {
	f := newTestFilter(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("batches of excluded paths are never relevant", prop.ForAll(
		func(batch []string) bool {
			return !f.IsRelevant(ChangeBatch(batch))
		},
		gen.SliceOf(excludedPathGen()),
	))

	properties.Property("one relevant path makes the batch relevant", prop.ForAll(
		func(excluded []string, relevant string, at int) bool {
			pos := at % (len(excluded) + 1)
			batch := make(ChangeBatch, 0, len(excluded)+1)
			batch = append(batch, excluded[:pos]...)
			batch = append(batch, relevant)
			batch = append(batch, excluded[pos:]...)
			return f.IsRelevant(batch)
		},
		gen.SliceOf(excludedPathGen()),
		relevantPathGen(),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
