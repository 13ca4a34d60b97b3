package geometry

import (
	"strings"

	"go.uber.org/zap"

	"geonerd/internal/registry"
	"geonerd/internal/symbol"
)

// Expression is an asserted relation: a polynomial whose value is zero. The
// key is the sign-normalized string form, so the same relation asserted
// twice, or with flipped sign, resolves to one entity.
type Expression struct {
	registry.Node
	sess *Session
	expr *symbol.Expr
}

// Kind implements registry.Entity.
func (*Expression) Kind() registry.Kind { return KindExpression }

func (e *Expression) resolved() *Expression { return registry.Resolve(e).(*Expression) }

// Expr returns the asserted polynomial.
func (e *Expression) Expr() *symbol.Expr { return e.resolved().expr }

// normalizeSign flips the polynomial's sign if its leading coefficient is
// negative, so e and -e share one canonical form.
func normalizeSign(e *symbol.Expr) *symbol.Expr {
	if strings.HasPrefix(e.String(), "-") {
		return e.Neg()
	}
	return e
}

// assert records e == 0. A zero polynomial is dropped, a nonzero constant is
// an inconsistency, and an already-asserted relation is returned as is.
func (s *Session) assert(e *symbol.Expr) (*Expression, error) {
	if e.IsZero() {
		return nil, nil
	}
	if n, ok := e.Number(); ok {
		return nil, inconsistencyf("relation reduces to %s = 0", n.RatString())
	}
	norm := normalizeSign(e)
	key := norm.String()
	if existing := s.reg.Get(KindExpression, key); existing != nil {
		return existing.(*Expression), nil
	}
	ex := &Expression{sess: s, expr: norm}
	if err := s.reg.Register(ex, key); err != nil {
		return nil, err
	}
	s.pendingSolve = true
	s.log.Debug("relation asserted", zap.String("relation", key))
	return ex, nil
}

// AssertRelation records a relation e == 0 supplied from outside the
// construction layer, e.g. by a theorem script, and runs the cascade.
func (s *Session) AssertRelation(e *symbol.Expr) error {
	if _, err := s.assert(e); err != nil {
		return err
	}
	return s.finish()
}

// liveExpressions returns every live asserted relation.
func (s *Session) liveExpressions() []*Expression {
	elems := s.reg.Elements(KindExpression)
	out := make([]*Expression, len(elems))
	for i, e := range elems {
		out[i] = e.(*Expression)
	}
	return out
}

// substituteExpressions rewrites every live relation under the given
// replacements. Relations that reduce to zero are discharged, relations that
// reduce to a nonzero constant are contradictions, and relations that
// coincide after rewriting collapse into one. A rewritten relation is never
// mutated in place: the simplified form is a fresh Expression and the old
// one forwards to it.
func (s *Session) substituteExpressions(repl map[string]*symbol.Expr) error {
	for _, ex := range s.liveExpressions() {
		cur := ex.expr
		next := cur.Substitute(repl)
		if next.Equal(cur) {
			continue
		}
		if next.IsZero() {
			if err := s.reg.Discard(ex); err != nil {
				return err
			}
			continue
		}
		if n, ok := next.Number(); ok {
			return inconsistencyf("relation %q reduces to %s = 0", cur.String(), n.RatString())
		}
		norm := normalizeSign(next)
		newKey := norm.String()
		if existing := s.reg.Get(KindExpression, newKey); existing != nil && existing != registry.Entity(ex) {
			if err := s.reg.Replace(ex, existing); err != nil {
				return err
			}
			continue
		}
		succ := &Expression{sess: s, expr: norm}
		if err := s.reg.Register(succ, newKey); err != nil {
			return err
		}
		if err := s.reg.Replace(ex, succ); err != nil {
			return err
		}
	}
	return nil
}
