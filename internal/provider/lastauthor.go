package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/model"
)

const blameTimeout = 10 * time.Second

// uncommittedSHA is what git blame reports for lines not yet committed.
const uncommittedSHA = "0000000000000000000000000000000000000000"

type blameLine struct {
	author string
	when   time.Time
	commit string
}

type blameData struct {
	mtime time.Time
	lines map[int]blameLine
}

// blameCache caches per-file git blame output, keyed by path and
// invalidated when the file's mtime moves.
type blameCache struct {
	logger *log.Logger

	mu    sync.Mutex
	files map[string]*blameData
}

func newBlameCache(logger *log.Logger) *blameCache {
	return &blameCache{logger: logger, files: make(map[string]*blameData)}
}

func (bc *blameCache) get(path string) (*blameData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	bc.mu.Lock()
	cached, ok := bc.files[path]
	bc.mu.Unlock()
	if ok && cached.mtime.Equal(info.ModTime()) {
		return cached, nil
	}

	data, err := runBlame(path)
	if err != nil {
		return nil, err
	}
	data.mtime = info.ModTime()

	bc.mu.Lock()
	bc.files[path] = data
	bc.mu.Unlock()
	return data, nil
}

// runBlame invokes git blame --line-porcelain and parses per-line author
// and author-time.
func runBlame(path string) (*blameData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), blameTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "blame", "--line-porcelain", "--", filepath.Base(path))
	cmd.Dir = filepath.Dir(path)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git blame: %w", err)
	}

	data := &blameData{lines: make(map[int]blameLine)}
	var cur blameLine
	curLine := 0
	for _, raw := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(raw, "\t"):
			if curLine > 0 {
				data.lines[curLine] = cur
			}
			curLine = 0
		case strings.HasPrefix(raw, "author "):
			cur.author = strings.TrimPrefix(raw, "author ")
		case strings.HasPrefix(raw, "author-time "):
			if secs, err := strconv.ParseInt(strings.TrimPrefix(raw, "author-time "), 10, 64); err == nil {
				cur.when = time.Unix(secs, 0)
			}
		default:
			// Header shape: "<sha> <orig-line> <final-line> [<count>]".
			fields := strings.Fields(raw)
			if len(fields) >= 3 && len(fields[0]) == 40 {
				if n, err := strconv.Atoi(fields[2]); err == nil {
					curLine = n
					cur = blameLine{commit: fields[0]}
				}
			}
		}
	}
	return data, nil
}

// newLastAuthor builds the git-blame provider. Blame runs out-of-band,
// so the handler always takes the deferred path.
func newLastAuthor(deps Deps, cfg config.Provider) (Registration, error) {
	cache := newBlameCache(deps.Logger)
	logger := deps.Logger
	nerdfont := deps.Style.UseNerdfont

	handler := func(buf host.Buffer, fn model.Func, _ config.Provider, complete func(*model.LensItem)) (*model.LensItem, Outcome) {
		go func() {
			data, err := cache.get(buf.Path())
			if err != nil {
				logger.Debug("blame unavailable", "path", buf.Path(), "err", err)
				complete(nil)
				return
			}
			end := fn.EndLine
			if end < fn.StartLine {
				end = fn.StartLine
			}
			var latest blameLine
			for line := fn.StartLine; line <= end; line++ {
				bl, ok := data.lines[line]
				if !ok {
					continue
				}
				if bl.commit == uncommittedSHA {
					complete(&model.LensItem{Line: fn.StartLine, Text: authorText("uncommitted", "", nerdfont)})
					return
				}
				if bl.when.After(latest.when) {
					latest = bl
				}
			}
			if latest.author == "" {
				complete(nil)
				return
			}
			complete(&model.LensItem{Line: fn.StartLine, Text: authorText(latest.author, relTime(time.Since(latest.when)), nerdfont)})
		}()
		return nil, Deferred
	}
	return Registration{Name: cfg.Name, Handler: handler, Config: cfg}, nil
}

func authorText(author, age string, nerdfont bool) string {
	text := author
	if age != "" {
		text += ", " + age
	}
	if nerdfont {
		return " " + text
	}
	return text
}

// relTime renders a duration as a coarse human age.
func relTime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/(24*365)))
	}
}
