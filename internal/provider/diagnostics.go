package provider

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
)

// newDiagnostics builds the diagnostics-summary provider. It counts the
// diagnostics whose line falls inside the function's range and resolves
// immediately; a function with no diagnostics contributes nothing.
func newDiagnostics(deps Deps, cfg config.Provider) (Registration, error) {
	source := deps.Diagnostics
	if source == nil {
		source = &SyntaxChecker{}
	}
	nerdfont := deps.Style.UseNerdfont

	handler := func(buf host.Buffer, fn model.Func, _ config.Provider, _ func(*model.LensItem)) (*model.LensItem, Outcome) {
		end := fn.EndLine
		if end < fn.StartLine {
			end = fn.StartLine
		}
		var errs, warns int
		for _, d := range source.Diagnostics(buf) {
			if d.Line < fn.StartLine || d.Line > end {
				continue
			}
			switch d.Severity {
			case host.SeverityError:
				errs++
			case host.SeverityWarn:
				warns++
			}
		}
		if errs == 0 && warns == 0 {
			return nil, Immediate
		}
		return &model.LensItem{Line: fn.StartLine, Text: diagText(errs, warns, nerdfont)}, Immediate
	}
	return Registration{Name: cfg.Name, Handler: handler, Config: cfg}, nil
}

func diagText(errs, warns int, nerdfont bool) string {
	var parts []string
	if nerdfont {
		if errs > 0 {
			parts = append(parts, fmt.Sprintf(" %d", errs))
		}
		if warns > 0 {
			parts = append(parts, fmt.Sprintf(" %d", warns))
		}
		return strings.Join(parts, " ")
	}
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// SyntaxChecker is a DiagnosticSource backed by tree-sitter: every ERROR
// or missing node in the parse tree becomes an error diagnostic. It is
// the default source for the file host, where no language server exists.
type SyntaxChecker struct{}

// Diagnostics parses the buffer and reports syntax errors by line.
func (s *SyntaxChecker) Diagnostics(buf host.Buffer) []host.Diagnostic {
	l, ok := lang.Languages[buf.Language()]
	if !ok {
		return nil
	}
	tree, err := l.NewParser().ParseCtx(context.Background(), nil, host.BufferText(buf))
	if err != nil {
		return nil
	}
	defer tree.Close()

	var diags []host.Diagnostic
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.IsError() || n.IsMissing() {
			diags = append(diags, host.Diagnostic{
				Line:     int(n.StartPoint().Row) + 1,
				Severity: host.SeverityError,
				Message:  "syntax error",
			})
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return diags
}
