// Package presenter merges per-provider lens items into ordered per-line
// text and computes abstract presentation descriptors. It never touches
// the rendering surface.
package presenter

import (
	"sort"
	"strings"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/model"
)

// Combine merges provider lens data into per-line ordered texts.
// Providers are visited strictly in the declared order; disabled
// providers contribute nothing even when present in data. Items missing
// a line or non-empty text are dropped silently.
func Combine(data map[string][]model.LensItem, order []config.Provider) map[int][]string {
	out := make(map[int][]string)
	for i := range order {
		pc := &order[i]
		if !pc.On() {
			continue
		}
		for _, item := range data[pc.Name] {
			if item.Line <= 0 || item.Text == "" {
				continue
			}
			out[item.Line] = append(out[item.Line], item.Text)
		}
	}
	return out
}

// Lenses flattens combined per-line texts into a line-sorted slice.
func Lenses(combined map[int][]string) []model.RenderedLens {
	lenses := make([]model.RenderedLens, 0, len(combined))
	for line, texts := range combined {
		lenses = append(lenses, model.RenderedLens{Line: line, Texts: texts})
	}
	sort.Slice(lenses, func(i, j int) bool { return lenses[i].Line < lenses[j].Line })
	return lenses
}

// Options parameterizes ComputePresentation.
type Options struct {
	Placement   string // "above" or "inline"
	Separator   string
	Prefix      string
	Highlight   string
	LineContent string // raw text of the target line, for indentation
	Ephemeral   bool
}

// Presentation is the abstract "what to draw" description for one line.
// The rendering collaborator decides how to realize it.
type Presentation struct {
	Placement string
	Indent    string // leading whitespace segment, above placement only
	Text      string
	Highlight string
	Ephemeral bool
}

// ComputePresentation turns the ordered text list for one line into a
// presentation descriptor. Empty texts produce a valid empty
// presentation rather than an error.
func ComputePresentation(texts []string, opts Options) Presentation {
	p := Presentation{
		Placement: opts.Placement,
		Highlight: opts.Highlight,
		Ephemeral: opts.Ephemeral,
	}
	if len(texts) == 0 {
		return p
	}
	joined := opts.Prefix + strings.Join(texts, opts.Separator)

	if opts.Placement == "inline" {
		// Inline lenses always get exactly one leading space; the
		// configured prefix does not change that.
		p.Text = " " + joined
		return p
	}

	p.Indent = leadingWhitespace(opts.LineContent)
	p.Text = joined
	return p
}

// leadingWhitespace returns the tabs/spaces run opening s, verbatim, so
// an above-placement lens aligns with the code's indentation.
func leadingWhitespace(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[:i]
		}
	}
	return s
}
