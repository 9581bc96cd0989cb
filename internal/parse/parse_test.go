package parse

import (
	"testing"

	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
)

func setup(t *testing.T, langName string) (*lang.Language, func(source string) []model.Tag) {
	t.Helper()
	l := lang.Languages[langName]
	if l == nil {
		t.Fatalf("language %q not registered", langName)
	}
	q, err := l.GetTagQuery()
	if err != nil {
		t.Fatalf("GetTagQuery: %v", err)
	}
	ext := l.Extensions[0]
	return l, func(source string) []model.Tag {
		p := l.NewParser()
		return ExtractTags(l, p, q, []byte(source), "test"+ext)
	}
}

func findDef(tags []model.Tag, name string) *model.Tag {
	for i := range tags {
		if tags[i].Kind == model.Definition && tags[i].Name == name {
			return &tags[i]
		}
	}
	return nil
}

func refNames(tags []model.Tag) map[string]bool {
	names := make(map[string]bool)
	for _, tag := range tags {
		if tag.Kind == model.Reference {
			names[tag.Name] = true
		}
	}
	return names
}

// --- Go tests ---

func TestGoExtractFunction(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "go")

	source := `package x

func Hello(name string) string {
	return "hi " + name
}
`
	tags := extract(source)
	d := findDef(tags, "Hello")
	if d == nil {
		t.Fatalf("no Hello definition in %+v", tags)
	}
	if d.SymbolKind != model.Function {
		t.Errorf("kind = %q, want function", d.SymbolKind)
	}
	if d.Line != 3 {
		t.Errorf("line = %d, want 3", d.Line)
	}
	if d.EndLine != 5 {
		t.Errorf("end line = %d, want 5", d.EndLine)
	}
}

func TestGoExtractMethodWithReceiver(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "go")

	source := `package x

type Server struct{}

func (s *Server) Start() error {
	return nil
}
`
	tags := extract(source)
	d := findDef(tags, "Server.Start")
	if d == nil {
		t.Fatalf("no Server.Start definition in %+v", tags)
	}
	if d.SymbolKind != model.Method {
		t.Errorf("kind = %q, want method", d.SymbolKind)
	}
	if d.Line != 5 {
		t.Errorf("line = %d, want 5", d.Line)
	}
}

func TestGoExtractReferences(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "go")

	source := `package x

func caller() {
	helper()
	obj.Method()
}
`
	tags := extract(source)
	refs := refNames(tags)
	if !refs["helper"] {
		t.Error("missing helper reference")
	}
	if !refs["Method"] {
		t.Error("missing Method reference")
	}
}

// --- Python tests ---

func TestPythonQualifiesMethods(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "python")

	source := `class Shape:
    def area(self):
        return 0

def standalone():
    pass
`
	tags := extract(source)

	m := findDef(tags, "Shape.area")
	if m == nil {
		t.Fatalf("no Shape.area definition in %+v", tags)
	}
	if m.SymbolKind != model.Method {
		t.Errorf("kind = %q, want method", m.SymbolKind)
	}

	f := findDef(tags, "standalone")
	if f == nil {
		t.Fatal("no standalone definition")
	}
	if f.SymbolKind != model.Function {
		t.Errorf("kind = %q, want function", f.SymbolKind)
	}
}

func TestPythonLambdaGetsPlaceholderName(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "python")

	tags := extract("square = lambda x: x * x\n")
	d := findDef(tags, LambdaName)
	if d == nil {
		t.Fatalf("no lambda definition in %+v", tags)
	}
	if d.Line != 1 {
		t.Errorf("line = %d, want 1", d.Line)
	}
}

// --- Ruby tests ---

func TestRubyQualifiesMethods(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "ruby")

	source := `class Greeter
  def greet
    "hi"
  end
end
`
	tags := extract(source)
	m := findDef(tags, "Greeter.greet")
	if m == nil {
		t.Fatalf("no Greeter.greet definition in %+v", tags)
	}
	if m.SymbolKind != model.Method {
		t.Errorf("kind = %q, want method", m.SymbolKind)
	}
}

// --- JavaScript tests ---

func TestJavaScriptExtracts(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "javascript")

	source := `class Widget {
  render() {
    draw();
  }
}

function main() {}

const handler = () => {};
`
	tags := extract(source)

	if d := findDef(tags, "Widget.render"); d == nil {
		t.Errorf("no Widget.render definition in %+v", tags)
	} else if d.SymbolKind != model.Method {
		t.Errorf("render kind = %q, want method", d.SymbolKind)
	}
	if findDef(tags, "main") == nil {
		t.Error("no main definition")
	}
	if findDef(tags, "handler") == nil {
		t.Error("no handler definition for arrow assignment")
	}
	if !refNames(tags)["draw"] {
		t.Error("missing draw reference")
	}
}

func TestExtractEmptySource(t *testing.T) {
	t.Parallel()
	_, extract := setup(t, "go")
	if tags := extract(""); tags != nil {
		t.Errorf("empty source should yield nil, got %+v", tags)
	}
}

func TestDefinitions(t *testing.T) {
	t.Parallel()
	tags := []model.Tag{
		{Name: "a", Kind: model.Definition},
		{Name: "b", Kind: model.Reference},
		{Name: "c", Kind: model.Definition},
	}
	defs := Definitions(tags)
	if len(defs) != 2 || defs[0].Name != "a" || defs[1].Name != "c" {
		t.Errorf("got %+v", defs)
	}
}

// --- branch counting ---

func TestCountBranchesGo(t *testing.T) {
	t.Parallel()
	l := lang.Languages["go"]
	source := []byte(`package x

func classify(n int) string {
	if n < 0 && n != -1 {
		return "neg"
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			continue
		}
	}
	return "pos"
}
`)
	got := CountBranches(l, l.NewParser(), source, 3, 13)
	// if, &&, for, inner if.
	if got != 4 {
		t.Errorf("branches = %d, want 4", got)
	}
}

func TestCountBranchesRespectsRange(t *testing.T) {
	t.Parallel()
	l := lang.Languages["go"]
	source := []byte(`package x

func a() {
	if true {
	}
}

func b() {
	if true {
	}
	if false {
	}
}
`)
	if got := CountBranches(l, l.NewParser(), source, 3, 5); got != 1 {
		t.Errorf("a branches = %d, want 1", got)
	}
	if got := CountBranches(l, l.NewParser(), source, 8, 13); got != 2 {
		t.Errorf("b branches = %d, want 2", got)
	}
}

func TestCountBranchesPython(t *testing.T) {
	t.Parallel()
	l := lang.Languages["python"]
	source := []byte(`def pick(xs):
    for x in xs:
        if x:
            return x
    return None
`)
	if got := CountBranches(l, l.NewParser(), source, 1, 5); got != 2 {
		t.Errorf("branches = %d, want 2", got)
	}
}

func TestCountBranchesEmpty(t *testing.T) {
	t.Parallel()
	l := lang.Languages["go"]
	if got := CountBranches(l, l.NewParser(), nil, 1, 10); got != 0 {
		t.Errorf("branches = %d, want 0", got)
	}
	if got := CountBranches(l, l.NewParser(), []byte("package x\n"), 5, 2); got != 0 {
		t.Errorf("inverted range = %d, want 0", got)
	}
}
