// Package render realizes presentation descriptors as styled terminal
// output. It is the file host's stand-in for an editor's virtual text.
package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/model"
	"github.com/funclens/funclens/internal/presenter"
)

// highlightStyles maps configured highlight names onto terminal styles.
// Unknown names fall back to faint, the closest analogue of an editor's
// comment group.
var highlightStyles = map[string]lipgloss.Style{
	"comment": lipgloss.NewStyle().Faint(true),
	"blue":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	"green":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	"yellow":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	"magenta": lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	"cyan":    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
}

// Renderer writes annotated source for a buffer.
type Renderer struct {
	out   io.Writer
	style config.Style
}

// New creates a renderer using the profile's style.
func New(out io.Writer, style config.Style) *Renderer {
	return &Renderer{out: out, style: style}
}

// Render writes buf's content with lens annotations interleaved (above
// placement) or appended (inline placement).
func (r *Renderer) Render(buf host.Buffer, lenses []model.RenderedLens) error {
	byLine := make(map[int][]string, len(lenses))
	for _, lens := range lenses {
		byLine[lens.Line] = lens.Texts
	}

	hl, ok := highlightStyles[r.style.Highlight]
	if !ok {
		hl = highlightStyles["comment"]
	}

	lines := buf.Lines(1, 0)
	for i, line := range lines {
		lineNo := i + 1
		texts := byLine[lineNo]
		p := presenter.ComputePresentation(texts, presenter.Options{
			Placement:   r.style.Placement,
			Separator:   r.style.Separator,
			Prefix:      r.style.Prefix,
			Highlight:   r.style.Highlight,
			LineContent: line,
		})
		switch {
		case p.Text == "":
			if _, err := fmt.Fprintln(r.out, line); err != nil {
				return err
			}
		case p.Placement == "inline":
			if _, err := fmt.Fprintln(r.out, line+hl.Render(p.Text)); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintln(r.out, p.Indent+hl.Render(p.Text)); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(r.out, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Report assembles the machine-consumable result for one render pass.
func Report(buf host.Buffer, phase model.Phase, lenses []model.RenderedLens) *model.LensReport {
	return &model.LensReport{
		File:     buf.Path(),
		Language: buf.Language(),
		Phase:    phase,
		Lenses:   lenses,
	}
}
