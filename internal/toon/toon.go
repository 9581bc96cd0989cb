// Package toon implements TOON (Token-Oriented Object Notation) encoding
// for machine-readable lens dumps.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/funclens/funclens/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a LensReport into TOON format. Each lens text becomes
// one row so multi-provider lines stay individually addressable.
func Encode(report *model.LensReport) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("file: %s", encodeValue(report.File)))
	parts = append(parts, fmt.Sprintf("language: %s", encodeValue(report.Language)))
	parts = append(parts, fmt.Sprintf("phase: %s", encodeValue(report.Phase.String())))

	var rows [][]string
	for i := range report.Lenses {
		lens := &report.Lenses[i]
		for _, text := range lens.Texts {
			rows = append(rows, []string{
				fmt.Sprintf("%d", lens.Line),
				text,
			})
		}
	}
	parts = append(parts, formatTabular("lenses", []string{"line", "text"}, rows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
