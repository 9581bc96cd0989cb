package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/discover"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
	"github.com/funclens/funclens/internal/parse"
)

// refIndex counts reference occurrences by unqualified symbol name over
// every parseable file in the workspace. Rebuilt when the buffer that
// triggered the lookup has changed since the last build.
type refIndex struct {
	logger *log.Logger
	root   string

	mu     sync.Mutex
	counts map[string]int
	seen   map[model.BufferID]uint64 // change tag at last build
}

func newRefIndex(root string, logger *log.Logger) *refIndex {
	return &refIndex{
		logger: logger,
		root:   root,
		seen:   make(map[model.BufferID]uint64),
	}
}

// lookup returns the reference count for name, rebuilding the index if
// buf changed since the last build.
func (ri *refIndex) lookup(buf host.Buffer, name string) int {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	if ri.counts == nil || ri.seen[buf.ID()] != buf.ChangeTag() {
		ri.rebuild()
		ri.seen[buf.ID()] = buf.ChangeTag()
	}
	return ri.counts[unqualified(name)]
}

// rebuild parses every workspace file and tallies reference tags.
// Caller holds ri.mu.
func (ri *refIndex) rebuild() {
	ri.counts = make(map[string]int)

	files, err := discover.Files(ri.root, nil)
	if err != nil {
		ri.logger.Debug("reference index scan failed", "err", err)
		return
	}

	parsers := make(map[string]*lang.Language)
	for _, f := range files {
		l, ok := parsers[f.Language]
		if !ok {
			l = lang.Languages[f.Language]
			parsers[f.Language] = l
		}
		query, err := l.GetTagQuery()
		if err != nil {
			ri.logger.Debug("query compile failed", "language", f.Language, "err", err)
			continue
		}
		source, err := os.ReadFile(filepath.Join(ri.root, f.Path))
		if err != nil {
			continue
		}
		tags := parse.ExtractTags(l, l.NewParser(), query, source, f.Path)
		for i := range tags {
			if tags[i].Kind == model.Reference {
				ri.counts[unqualified(tags[i].Name)]++
			}
		}
	}
}

// unqualified strips a "Class." or "Receiver." prefix: call sites are
// tagged with bare names while definitions carry qualified ones.
func unqualified(name string) string {
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		return name[dot+1:]
	}
	return name
}

// newReferences builds the reference-count provider. It resolves
// immediately from the workspace index.
func newReferences(deps Deps, cfg config.Provider) (Registration, error) {
	index := newRefIndex(deps.Root, deps.Logger)
	nerdfont := deps.Style.UseNerdfont

	handler := func(buf host.Buffer, fn model.Func, _ config.Provider, _ func(*model.LensItem)) (*model.LensItem, Outcome) {
		n := index.lookup(buf, fn.Name)
		return &model.LensItem{Line: fn.StartLine, Text: refText(n, nerdfont)}, Immediate
	}
	return Registration{Name: cfg.Name, Handler: handler, Config: cfg}, nil
}

func refText(n int, nerdfont bool) string {
	if nerdfont {
		return fmt.Sprintf("\U000F048D %d", n)
	}
	if n == 1 {
		return "1 ref"
	}
	return fmt.Sprintf("%d refs", n)
}
