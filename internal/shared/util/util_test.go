package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslashes", input: `C:\proj\.cache`, expected: "C:/proj/.cache"},
		{name: "Absolute", input: "/proj/.cache/", expected: "/proj/.cache"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Exact", path: "foo/bar", prefix: "foo/bar", expected: true},
		{name: "Nested", path: "foo/bar/baz", prefix: "foo/bar", expected: true},
		{name: "Neighbor", path: "foo/barista", prefix: "foo/bar", expected: false},
		{name: "Shorter", path: "foo", prefix: "foo/bar", expected: false},
		{name: "MixedSeparators", path: `foo\bar\baz`, prefix: "foo/bar", expected: true},
		{name: "FilesystemRoot", path: "/etc/hosts", prefix: "/", expected: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestRelativeSlash(t *testing.T) {
	t.Parallel()

	cases := []struct {
		root, path string
		want       string
		ok         bool
	}{
		{root: "/proj", path: "/proj/src/main.x", want: "src/main.x", ok: true},
		{root: "/proj", path: "/proj", ok: false},
		{root: "/proj", path: "/project/a", ok: false},
		{root: `C:\proj`, path: `C:\proj\.git\HEAD`, want: ".git/HEAD", ok: true},
		{root: "/", path: "/etc/hosts", want: "etc/hosts", ok: true},
	}
	for _, tc := range cases {
		got, ok := RelativeSlash(tc.root, tc.path)
		if ok != tc.ok || got != tc.want {
			t.Errorf("RelativeSlash(%q, %q) = %q, %v; want %q, %v", tc.root, tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestToSlash(t *testing.T) {
	if got := ToSlash(`a\b/c`); got != "a/b/c" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "nested", "dir", "file.txt")

	if err := WriteFileWithDirs(target, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFileWithDirs failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSortedStringKeys(t *testing.T) {
	got := SortedStringKeys(map[string]int{"b": 1, "a": 2, "c": 3})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected key order %v", got)
	}
}
