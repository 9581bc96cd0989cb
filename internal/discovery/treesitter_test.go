package discovery

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/model"
)

func requestSymbols(t *testing.T, src *TreeSitterSource, buf host.Buffer) []host.Symbol {
	t.Helper()
	done := make(chan []host.Symbol, 1)
	src.RequestSymbols(buf, func(symbols []host.Symbol, err error) {
		require.NoError(t, err)
		done <- symbols
	})
	select {
	case symbols := <-done:
		return symbols
	case <-time.After(5 * time.Second):
		t.Fatal("symbol request never completed")
		return nil
	}
}

func TestTreeSitterSourceSupports(t *testing.T) {
	t.Parallel()
	src := NewTreeSitterSource(log.New(io.Discard))
	assert.True(t, src.Supports("go"))
	assert.True(t, src.Supports("python"))
	assert.False(t, src.Supports("cobol"))
}

func TestTreeSitterSourceGoSymbols(t *testing.T) {
	t.Parallel()
	src := NewTreeSitterSource(log.New(io.Discard))
	buf := &fakeBuf{id: 1, language: "go", tag: 1, lines: []string{
		"package x",
		"",
		"type T struct{}",
		"",
		"func (t *T) M() {}",
		"",
		"func F() {",
		"	F()",
		"}",
	}}

	symbols := requestSymbols(t, src, buf)
	require.Len(t, symbols, 2)

	assert.Equal(t, "T.M", symbols[0].Name)
	assert.Equal(t, model.Method, symbols[0].Kind)
	assert.Equal(t, 5, symbols[0].Line)

	assert.Equal(t, "F", symbols[1].Name)
	assert.Equal(t, model.Function, symbols[1].Kind)
	assert.Equal(t, 7, symbols[1].Line)
	assert.Equal(t, 9, symbols[1].EndLine, "definitions carry full ranges")
}

func TestTreeSitterSourceUnsupportedLanguage(t *testing.T) {
	t.Parallel()
	src := NewTreeSitterSource(log.New(io.Discard))
	buf := &fakeBuf{id: 1, language: "cobol", tag: 1}
	assert.Empty(t, requestSymbols(t, src, buf))
}
