// Package derive runs the structural ("type-one") derivation pass: a
// stratified Datalog program over the session's collinearity, segment and
// triangle facts that enumerates implied triangles. The engine constructs the
// harvested entities through the normal construction layer; this package
// never touches geometry directly.
package derive

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"
)

// rules derives triangles implied by existing structure:
//   - a cevian from a vertex to a point between the endpoints of the
//     opposite side splits a triangle in two (parent orientation preserved),
//   - a segment from a vertex to a collinear extension beyond an opposite
//     side endpoint forms a containing super-triangle.
const rules = `
btw(X, Y, Z) :- line_pt(L, X, I), line_pt(L, Y, J), line_pt(L, Z, K), :lt(I, J), :lt(J, K).
btw2(X, Y, Z) :- btw(X, Y, Z).
btw2(X, Y, Z) :- btw(Z, Y, X).

implied_tri(A, B, D) :- tri(A, B, C), btw2(B, D, C), seg(A, D).
implied_tri(A, D, C) :- tri(A, B, C), btw2(B, D, C), seg(A, D).
implied_tri(A, B, E) :- tri(A, B, C), btw2(B, C, E), seg(A, E).
implied_tri(A, E, C) :- tri(A, B, C), btw2(E, B, C), seg(A, E).
`

// Facts is the extensional database for one derivation pass.
type Facts struct {
	// Lines holds each line's point labels in line order.
	Lines [][]string
	// Segments holds the endpoints of every registered segment.
	Segments [][2]string
	// Triangles holds each registered triangle's vertices in cyclic order.
	Triangles [][3]string
}

// Deriver evaluates the derivation program against a set of facts.
type Deriver struct {
	log *zap.Logger
}

// New returns a Deriver. A nil logger defaults to a no-op logger.
func New(log *zap.Logger) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deriver{log: log}
}

// ImpliedTriangles evaluates the program to a fixed point and returns every
// derived triangle as an ordered vertex triple. The caller is responsible
// for filtering out triangles it already knows.
func (d *Deriver) ImpliedTriangles(f Facts) ([][3]string, error) {
	source := d.program(f)
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse derivation program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze derivation program: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, fmt.Errorf("derivation evaluation failed: %w", err)
	}
	d.log.Debug("type-one derivation evaluated",
		zap.Int("lines", len(f.Lines)),
		zap.Int("segments", len(f.Segments)),
		zap.Int("triangles", len(f.Triangles)))

	sym := ast.PredicateSym{Symbol: "implied_tri", Arity: 3}
	var out [][3]string
	err = store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		var tri [3]string
		for i, arg := range atom.Args {
			c, ok := arg.(ast.Constant)
			if !ok || c.Type != ast.StringType {
				return fmt.Errorf("unexpected term %v in derived triangle", arg)
			}
			tri[i] = c.Symbol
		}
		out = append(out, tri)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read derived triangles: %w", err)
	}
	return out, nil
}

// program renders the facts and rules as one Mangle source unit.
func (d *Deriver) program(f Facts) string {
	var b strings.Builder
	for li, line := range f.Lines {
		for i, label := range line {
			fmt.Fprintf(&b, "line_pt(%q, %q, %d).\n", fmt.Sprintf("l%d", li), label, i)
		}
	}
	for _, seg := range f.Segments {
		fmt.Fprintf(&b, "seg(%q, %q).\n", seg[0], seg[1])
		fmt.Fprintf(&b, "seg(%q, %q).\n", seg[1], seg[0])
	}
	// Every rotation of a triangle is the same triangle; the rules match the
	// cevian vertex against the first argument, so all three are needed.
	for _, tri := range f.Triangles {
		for r := 0; r < 3; r++ {
			fmt.Fprintf(&b, "tri(%q, %q, %q).\n", tri[r], tri[(r+1)%3], tri[(r+2)%3])
		}
	}
	// Placeholder facts keep every EDB predicate defined even when the
	// session has no instances yet.
	b.WriteString("line_pt(\"\", \"\", -1).\n")
	b.WriteString("seg(\"\", \"\").\n")
	b.WriteString("tri(\"\", \"\", \"\").\n")
	b.WriteString(rules)
	return b.String()
}
