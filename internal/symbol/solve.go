package symbol

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrNoSolution reports that a system of expressions provably has no
// solution. Callers must treat this as a hard inconsistency.
var ErrNoSolution = errors.New("symbol: system has no solution")

// ErrCannotSolve reports that the solver's methods cannot make progress on a
// system. This is distinct from ErrNoSolution: the system may well be
// solvable once more constraints arrive, so callers should defer.
var ErrCannotSolve = errors.New("symbol: cannot solve with available methods")

// Binding is a partial assignment of unknowns to closed-form expressions.
// Values may themselves contain unknowns (parametric solutions).
type Binding map[string]*Expr

// SystemSolver resolves a set of expressions, each implicitly equated to
// zero, into zero or more solution branches.
type SystemSolver interface {
	// Solve returns all solution branches for the system. It returns
	// ErrNoSolution if the system is provably inconsistent and
	// ErrCannotSolve if no available method applies.
	Solve(system []*Expr) ([]Binding, error)
}

// Solver solves systems by exact elimination: linear pivots are eliminated
// Gaussian-style, univariate quadratics with rational roots branch the
// search. Anything beyond those methods yields ErrCannotSolve rather than an
// approximation.
type Solver struct {
	// MaxBranches bounds the number of live solution branches produced by
	// quadratic branching before the solver gives up with ErrCannotSolve.
	MaxBranches int
}

// NewSolver returns a Solver with the given branch bound (minimum 1).
func NewSolver(maxBranches int) *Solver {
	if maxBranches < 1 {
		maxBranches = 1
	}
	return &Solver{MaxBranches: maxBranches}
}

// Solve implements SystemSolver.
func (s *Solver) Solve(system []*Expr) ([]Binding, error) {
	exprs := make([]*Expr, 0, len(system))
	for _, e := range system {
		if e != nil && !e.IsZero() {
			exprs = append(exprs, e)
		}
	}
	branches, err := s.solve(exprs, Binding{})
	if err != nil {
		return nil, err
	}
	if len(branches) == 0 {
		return nil, ErrNoSolution
	}
	return branches, nil
}

func (s *Solver) solve(exprs []*Expr, bound Binding) ([]Binding, error) {
	exprs, err := reduce(exprs)
	if err != nil {
		return nil, err
	}

	// Linear elimination to a fixed point: each pivot removes one unknown
	// from the remaining system, so this terminates.
	for {
		name, val, rest, ok := linearPivot(exprs)
		if !ok {
			break
		}
		bound = compose(bound, name, val)
		exprs, err = reduce(substituteAll(rest, name, val))
		if err != nil {
			return nil, err
		}
	}

	// Quadratic branching on a univariate expression with constant
	// coefficients, if one exists.
	if name, roots, rest, ok, qerr := quadraticPivot(exprs); qerr != nil {
		return nil, qerr
	} else if ok {
		var branches []Binding
		for _, root := range roots {
			sub, err := s.solve(substituteAll(rest, name, root), compose(bound, name, root))
			if errors.Is(err, ErrNoSolution) {
				continue
			}
			if err != nil {
				return nil, err
			}
			branches = append(branches, sub...)
			if len(branches) > s.MaxBranches {
				return nil, fmt.Errorf("%w: more than %d solution branches", ErrCannotSolve, s.MaxBranches)
			}
		}
		if len(branches) == 0 {
			return nil, ErrNoSolution
		}
		return branches, nil
	}

	// Remaining expressions are beyond the solver's methods. If nothing was
	// bound at all, the call made no progress whatsoever.
	if len(exprs) > 0 && len(bound) == 0 {
		return nil, ErrCannotSolve
	}
	return []Binding{bound}, nil
}

// reduce drops trivially satisfied expressions and detects constant nonzero
// residuals, which prove the system unsatisfiable.
func reduce(exprs []*Expr) ([]*Expr, error) {
	out := exprs[:0]
	for _, e := range exprs {
		if e.IsZero() {
			continue
		}
		if n, ok := e.Number(); ok && n.Sign() != 0 {
			return nil, ErrNoSolution
		}
		out = append(out, e)
	}
	return out, nil
}

// linearPivot finds an expression of the form a*v + b with constant nonzero a
// and b free of v, and returns v, its closed form -b/a, and the remaining
// expressions. Expressions and variables are scanned in deterministic order.
func linearPivot(exprs []*Expr) (string, *Expr, []*Expr, bool) {
	for i, e := range exprs {
		for _, v := range e.FreeVars() {
			if e.Degree(v) != 1 {
				continue
			}
			coeffs := e.CoeffsOf(v)
			a, ok := coeffs[1].Number()
			if !ok || a.Sign() == 0 {
				continue
			}
			val, err := coeffs[0].Neg().Div(coeffs[1])
			if err != nil {
				continue
			}
			rest := make([]*Expr, 0, len(exprs)-1)
			rest = append(rest, exprs[:i]...)
			rest = append(rest, exprs[i+1:]...)
			return v, val, rest, true
		}
	}
	return "", nil, nil, false
}

// quadraticPivot finds an expression that is a univariate quadratic with
// constant coefficients and returns its exact rational roots. A negative
// discriminant proves unsatisfiability; an irrational one is beyond the
// solver's methods.
func quadraticPivot(exprs []*Expr) (string, []*Expr, []*Expr, bool, error) {
	for i, e := range exprs {
		vars := e.FreeVars()
		if len(vars) != 1 {
			continue
		}
		v := vars[0]
		if e.Degree(v) != 2 {
			continue
		}
		coeffs := e.CoeffsOf(v)
		a, aok := coeffs[2].Number()
		b, bok := coeffs[1].Number()
		c, cok := coeffs[0].Number()
		if !aok || !bok || !cok || a.Sign() == 0 {
			continue
		}
		// disc = b^2 - 4ac
		disc := new(big.Rat).Mul(b, b)
		disc.Sub(disc, new(big.Rat).Mul(new(big.Rat).SetInt64(4), new(big.Rat).Mul(a, c)))
		if disc.Sign() < 0 {
			return "", nil, nil, false, ErrNoSolution
		}
		sqrt, ok := ratSqrt(disc)
		if !ok {
			return "", nil, nil, false, fmt.Errorf("%w: irrational root of %s", ErrCannotSolve, e)
		}
		twoA := new(big.Rat).Mul(new(big.Rat).SetInt64(2), a)
		r1 := new(big.Rat).Sub(new(big.Rat).Neg(b), sqrt)
		r1.Quo(r1, twoA)
		r2 := new(big.Rat).Add(new(big.Rat).Neg(b), sqrt)
		r2.Quo(r2, twoA)
		roots := []*Expr{Rat(r1)}
		if r1.Cmp(r2) != 0 {
			roots = append(roots, Rat(r2))
		}
		rest := make([]*Expr, 0, len(exprs)-1)
		rest = append(rest, exprs[:i]...)
		rest = append(rest, exprs[i+1:]...)
		return v, roots, rest, true, nil
	}
	return "", nil, nil, false, nil
}

// compose adds name=val to the binding, substituting the new value into every
// previously bound closed form so bindings never reference bound unknowns.
func compose(bound Binding, name string, val *Expr) Binding {
	repl := map[string]*Expr{name: val}
	out := make(Binding, len(bound)+1)
	for k, v := range bound {
		out[k] = v.Substitute(repl)
	}
	out[name] = val
	return out
}

func substituteAll(exprs []*Expr, name string, val *Expr) []*Expr {
	repl := map[string]*Expr{name: val}
	out := make([]*Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.Substitute(repl)
	}
	return out
}

// ratSqrt returns the exact square root of r, if r is a perfect rational
// square.
func ratSqrt(r *big.Rat) (*big.Rat, bool) {
	if r.Sign() < 0 {
		return nil, false
	}
	num, ok := intSqrt(r.Num())
	if !ok {
		return nil, false
	}
	den, ok := intSqrt(r.Denom())
	if !ok {
		return nil, false
	}
	return new(big.Rat).SetFrac(num, den), true
}

func intSqrt(n *big.Int) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	root := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(root, root).Cmp(n) != 0 {
		return nil, false
	}
	return root, true
}

// VarsOf returns the sorted union of free variables across a system.
func VarsOf(system []*Expr) []string {
	seen := make(map[string]bool)
	for _, e := range system {
		for _, v := range e.FreeVars() {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
