// Package discover finds parseable source files in a workspace and
// answers exclusion queries (exclude patterns, gitignore) for the
// rendering policy.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/funclens/funclens/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to workspace root
	Language string
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
	"vendor":        {},
}

// Files discovers parseable source files under root.
// If languages is non-empty, only files matching one of the listed languages are returned.
func Files(root string, languages []string) ([]FileEntry, error) {
	langSet := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langSet[l] = struct{}{}
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		ext := filepath.Ext(name)
		langName := lang.ForExtension(ext)
		if langName == "" {
			return nil
		}

		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Excluder answers whether a path is excluded from lens rendering, by
// configured exclude patterns or by gitignore status.
type Excluder struct {
	root     string
	patterns *ignore.GitIgnore
	gitFiles map[string]struct{} // tracked+untracked-not-ignored, nil outside a repo
	ignored  *ignore.GitIgnore   // fallback .gitignore matcher
	useGit   bool
}

// NewExcluder builds an Excluder for root. patterns use gitignore glob
// syntax. When excludeGitignored is true, paths git would ignore are
// excluded too.
func NewExcluder(root string, patterns []string, excludeGitignored bool) *Excluder {
	e := &Excluder{root: root, useGit: excludeGitignored}
	if len(patterns) > 0 {
		e.patterns = ignore.CompileIgnoreLines(patterns...)
	}
	if excludeGitignored {
		e.gitFiles = gitLsFiles(root)
		if e.gitFiles == nil {
			e.ignored = loadGitignore(root)
		}
	}
	return e
}

// Excluded reports whether path (absolute or root-relative) should be
// skipped entirely.
func (e *Excluder) Excluded(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(e.root, path)
		if err != nil {
			return false
		}
		rel = r
	}
	if e.patterns != nil && e.patterns.MatchesPath(rel) {
		return true
	}
	if e.useGit {
		if e.gitFiles != nil {
			if _, ok := e.gitFiles[rel]; !ok {
				return true
			}
		} else if e.ignored != nil && e.ignored.MatchesPath(rel) {
			return true
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
