package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFilesFindsParseableSources(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "tool.py", "x = 1\n")
	writeFile(t, root, "util.rb", "x = 1\n")
	writeFile(t, root, "app.js", "let x = 1\n")
	writeFile(t, root, "README.md", "# nope\n")
	writeFile(t, root, "sub/helper.go", "package sub\n")

	files, err := Files(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	byPath := make(map[string]string)
	for _, f := range files {
		byPath[f.Path] = f.Language
	}
	want := map[string]string{
		"main.go": "go",
		"tool.py": "python",
		"util.rb": "ruby",
		"app.js":  "javascript",
	}
	want[filepath.Join("sub", "helper.go")] = "go"
	if len(byPath) != len(want) {
		t.Errorf("got %v", byPath)
	}
	for p, l := range want {
		if byPath[p] != l {
			t.Errorf("%s: language = %q, want %q", p, byPath[p], l)
		}
	}
}

func TestFilesSkipsVendorishDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package x\n")
	writeFile(t, root, "node_modules/dep.js", "x\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, ".hidden/h.go", "package h\n")
	writeFile(t, root, "__pycache__/c.py", "x\n")

	files, err := Files(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "keep.go" {
		t.Errorf("got %v", files)
	}
}

func TestFilesLanguageFilter(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.py", "x = 1\n")

	files, err := Files(root, []string{"python"})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Language != "python" {
		t.Errorf("got %v", files)
	}
}

func TestFilesHonorsGitignoreWithoutGit(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.go\n")
	writeFile(t, root, "kept.go", "package x\n")
	writeFile(t, root, "generated.go", "package x\n")

	files, err := Files(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "kept.go" {
		t.Errorf("got %v", files)
	}
}

func TestExcluderPatterns(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	e := NewExcluder(root, []string{"*_test.go", "gen/"}, false)

	cases := []struct {
		path string
		want bool
	}{
		{"foo_test.go", true},
		{"foo.go", false},
		{filepath.Join("gen", "out.go"), true},
		{filepath.Join(root, "bar_test.go"), true}, // absolute paths resolve against root
		{filepath.Join(root, "bar.go"), false},
	}
	for _, tc := range cases {
		if got := e.Excluded(tc.path); got != tc.want {
			t.Errorf("Excluded(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestExcluderNoPatternsExcludesNothing(t *testing.T) {
	t.Parallel()
	e := NewExcluder(t.TempDir(), nil, false)
	if e.Excluded("anything.go") {
		t.Error("empty excluder must not exclude")
	}
}

func TestExcluderGitignoredFallback(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "dist/\n")

	e := NewExcluder(root, nil, true)
	if !e.Excluded(filepath.Join("dist", "bundle.js")) {
		t.Error("gitignored path should be excluded")
	}
	if e.Excluded("src.js") {
		t.Error("tracked-style path should not be excluded")
	}
}
