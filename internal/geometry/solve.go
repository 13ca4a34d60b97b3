package geometry

import (
	"errors"
	"math/big"
	"sort"
	"strings"

	"go.uber.org/zap"

	"geonerd/internal/symbol"
)

// SolveSystem feeds the asserted relations to the solver and applies every
// unknown it determines, looping until a pass makes no progress. A system the
// solver cannot make progress on is not an error; a system with no solution
// is an inconsistency.
func (s *Session) SolveSystem() error {
	if s.solving {
		return nil
	}
	s.solving = true
	defer func() { s.solving = false }()

	for pass := 0; pass < s.cfg.Solver.MaxCascadePasses; pass++ {
		s.pendingSolve = false
		exprs := s.liveExpressions()
		if len(exprs) == 0 {
			return nil
		}
		system := make([]*symbol.Expr, len(exprs))
		for i, ex := range exprs {
			system[i] = ex.expr
		}
		branches, err := s.solver.Solve(system)
		if errors.Is(err, symbol.ErrCannotSolve) {
			return nil
		}
		if errors.Is(err, symbol.ErrNoSolution) {
			return &InconsistencyError{Reason: "asserted relations have no solution", Err: err}
		}
		if err != nil {
			return err
		}

		resolved, err := determinedValues(branches)
		if err != nil {
			return err
		}
		if len(resolved) == 0 {
			return nil
		}
		repl := make(map[string]*symbol.Expr, len(resolved))
		for name, val := range resolved {
			if val.Sign() <= 0 {
				return inconsistencyf("measure %s resolved to non-positive value %s",
					name, val.RatString())
			}
			repl[name] = symbol.Rat(val)
		}
		if err := s.substituteExpressions(repl); err != nil {
			return err
		}
		for name, val := range repl {
			s.log.Debug("unknown resolved",
				zap.String("unknown", name),
				zap.String("value", resolved[name].RatString()))
			if err := s.rebindUnknown(name, val); err != nil {
				return err
			}
		}
		if err := s.drain(); err != nil {
			return err
		}
	}
	return nil
}

// determinedValues extracts the unknowns whose value is decided by the
// solution branches: either every branch agrees on one number, or the
// branches disagree but only one candidate is positive, which decides it
// since every measure is strictly positive. An unknown bound to a number in
// every branch with no positive candidate, or with several, is an
// inconsistency. Unknowns left unbound or parametric in some branch stay
// undecided.
func determinedValues(branches []symbol.Binding) (map[string]*big.Rat, error) {
	if len(branches) == 0 {
		return nil, nil
	}
	names := make(map[string]bool)
	for name := range branches[0] {
		names[name] = true
	}
	out := make(map[string]*big.Rat)
	for name := range names {
		var vals []*big.Rat
		bound := true
		for _, b := range branches {
			v, ok := b[name]
			if !ok {
				bound = false
				break
			}
			n, isNum := v.Number()
			if !isNum {
				bound = false
				break
			}
			seen := false
			for _, have := range vals {
				if have.Cmp(n) == 0 {
					seen = true
					break
				}
			}
			if !seen {
				vals = append(vals, n)
			}
		}
		if !bound || len(vals) == 0 {
			continue
		}
		if len(vals) == 1 {
			out[name] = vals[0]
			continue
		}
		var pos []*big.Rat
		for _, v := range vals {
			if v.Sign() > 0 {
				pos = append(pos, v)
			}
		}
		switch len(pos) {
		case 1:
			out[name] = pos[0]
		case 0:
			return nil, inconsistencyf("measure %s has no positive candidate among %s",
				name, ratList(vals))
		default:
			return nil, inconsistencyf("measure %s has ambiguous candidates %s",
				name, ratList(pos))
		}
	}
	return out, nil
}

func ratList(vals []*big.Rat) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = v.RatString()
	}
	sort.Strings(strs)
	return strings.Join(strs, ", ")
}
