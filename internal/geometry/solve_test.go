package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geonerd/internal/symbol"
)

// fixedBranchSolver returns a canned set of solution branches.
type fixedBranchSolver struct {
	branches []symbol.Binding
	err      error
}

func (f *fixedBranchSolver) Solve([]*symbol.Expr) ([]symbol.Binding, error) {
	return f.branches, f.err
}

func TestAmbiguousPositiveCandidatesAreFatal(t *testing.T) {
	s := newTestSession(t)
	_, err := s.assert(symbol.Var("m").Sub(symbol.Num(10)))
	require.NoError(t, err)

	s.SetSolver(&fixedBranchSolver{branches: []symbol.Binding{
		{"m": symbol.Num(3)},
		{"m": symbol.Num(4)},
	}})

	var inc *InconsistencyError
	require.ErrorAs(t, s.SolveSystem(), &inc)
	assert.Contains(t, inc.Reason, "ambiguous")
}

func TestNoPositiveCandidateIsFatal(t *testing.T) {
	s := newTestSession(t)
	_, err := s.assert(symbol.Var("m").Sub(symbol.Num(10)))
	require.NoError(t, err)

	s.SetSolver(&fixedBranchSolver{branches: []symbol.Binding{
		{"m": symbol.Num(-3)},
		{"m": symbol.Num(-4)},
	}})

	var inc *InconsistencyError
	require.ErrorAs(t, s.SolveSystem(), &inc)
	assert.Contains(t, inc.Reason, "no positive candidate")
}

func TestSinglePositiveCandidateApplies(t *testing.T) {
	s := newTestSession(t)
	_, err := s.assert(symbol.Var("m").Sub(symbol.Num(5)))
	require.NoError(t, err)

	s.SetSolver(&fixedBranchSolver{branches: []symbol.Binding{
		{"m": symbol.Num(5)},
		{"m": symbol.Num(-5)},
	}})

	require.NoError(t, s.SolveSystem())
	assert.Equal(t, 0, s.Registry().Count(KindExpression))
}

func TestUnboundBranchDefers(t *testing.T) {
	s := newTestSession(t)
	_, err := s.assert(symbol.Var("m").Sub(symbol.Var("n")))
	require.NoError(t, err)

	// m is numeric in one branch only; no value may be applied and the
	// system must stay open without error.
	s.SetSolver(&fixedBranchSolver{branches: []symbol.Binding{
		{"m": symbol.Num(3)},
		{"m": symbol.Var("n")},
	}})

	require.NoError(t, s.SolveSystem())
	assert.Equal(t, 1, s.Registry().Count(KindExpression))
}
