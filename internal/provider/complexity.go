package provider

import (
	"fmt"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
	"github.com/funclens/funclens/internal/parse"
)

// newComplexity builds the branch-count provider. Counts decision points
// in the function body and buckets them into low, medium, or high.
func newComplexity(deps Deps, cfg config.Provider) (Registration, error) {
	nerdfont := deps.Style.UseNerdfont

	handler := func(buf host.Buffer, fn model.Func, _ config.Provider, _ func(*model.LensItem)) (*model.LensItem, Outcome) {
		l, ok := lang.Languages[buf.Language()]
		if !ok {
			return nil, Immediate
		}
		end := fn.EndLine
		if end < fn.StartLine {
			end = fn.StartLine
		}
		n := parse.CountBranches(l, l.NewParser(), host.BufferText(buf), fn.StartLine, end)
		return &model.LensItem{Line: fn.StartLine, Text: complexityText(n, nerdfont)}, Immediate
	}
	return Registration{Name: cfg.Name, Handler: handler, Config: cfg}, nil
}

func complexityText(branches int, nerdfont bool) string {
	bucket := "low"
	switch {
	case branches > 10:
		bucket = "high"
	case branches > 4:
		bucket = "medium"
	}
	if nerdfont {
		return fmt.Sprintf("\U000F05D6 %s", bucket)
	}
	return fmt.Sprintf("Cx:%s", bucket)
}
