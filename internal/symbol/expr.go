// Package symbol implements exact symbolic algebra over rational numbers:
// multivariate polynomial expressions in named unknowns, substitution, and a
// system solver for sets of expressions each equated to zero.
//
// All arithmetic is exact (math/big rationals). There is no floating point
// anywhere in this package.
package symbol

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// factor is a single variable raised to a positive integer power.
type factor struct {
	name string
	exp  int
}

// term is a coefficient times a product of factors. Factors are sorted by
// variable name and never carry exponent zero.
type term struct {
	coeff *big.Rat
	vars  []factor
}

// monoKey returns the canonical identity of the term's monomial part.
func (t term) monoKey() string {
	var b strings.Builder
	for i, f := range t.vars {
		if i > 0 {
			b.WriteByte('*')
		}
		b.WriteString(f.name)
		if f.exp > 1 {
			fmt.Fprintf(&b, "^%d", f.exp)
		}
	}
	return b.String()
}

// totalDegree returns the sum of the exponents of the term's factors.
func (t term) totalDegree() int {
	d := 0
	for _, f := range t.vars {
		d += f.exp
	}
	return d
}

// Expr is an immutable algebraic expression in polynomial normal form: a sum
// of terms with distinct monomials, sorted by descending total degree and then
// by monomial key. The zero expression has no terms.
//
// Expr values must be treated as immutable; every operation returns a new
// expression.
type Expr struct {
	terms []term
}

// Zero returns the zero expression.
func Zero() *Expr { return &Expr{} }

// Num returns a constant integer expression.
func Num(n int64) *Expr {
	return Rat(new(big.Rat).SetInt64(n))
}

// Rat returns a constant rational expression.
func Rat(r *big.Rat) *Expr {
	if r.Sign() == 0 {
		return Zero()
	}
	return &Expr{terms: []term{{coeff: new(big.Rat).Set(r)}}}
}

// Var returns the expression consisting of the single unknown name.
func Var(name string) *Expr {
	return &Expr{terms: []term{{
		coeff: big.NewRat(1, 1),
		vars:  []factor{{name: name, exp: 1}},
	}}}
}

// normalize merges duplicate monomials, drops zero coefficients and sorts.
func normalize(ts []term) *Expr {
	merged := make(map[string]*term, len(ts))
	order := make([]string, 0, len(ts))
	for _, t := range ts {
		k := t.monoKey()
		if existing, ok := merged[k]; ok {
			existing.coeff.Add(existing.coeff, t.coeff)
			continue
		}
		cp := term{coeff: new(big.Rat).Set(t.coeff), vars: append([]factor(nil), t.vars...)}
		merged[k] = &cp
		order = append(order, k)
	}
	out := make([]term, 0, len(order))
	for _, k := range order {
		if merged[k].coeff.Sign() != 0 {
			out = append(out, *merged[k])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].totalDegree(), out[j].totalDegree()
		if di != dj {
			return di > dj
		}
		return out[i].monoKey() < out[j].monoKey()
	})
	return &Expr{terms: out}
}

// Add returns e + o.
func (e *Expr) Add(o *Expr) *Expr {
	ts := make([]term, 0, len(e.terms)+len(o.terms))
	ts = append(ts, e.terms...)
	ts = append(ts, o.terms...)
	return normalize(ts)
}

// Sub returns e - o.
func (e *Expr) Sub(o *Expr) *Expr {
	return e.Add(o.Neg())
}

// Neg returns -e.
func (e *Expr) Neg() *Expr {
	ts := make([]term, len(e.terms))
	for i, t := range e.terms {
		ts[i] = term{coeff: new(big.Rat).Neg(t.coeff), vars: t.vars}
	}
	return normalize(ts)
}

// Mul returns e * o.
func (e *Expr) Mul(o *Expr) *Expr {
	ts := make([]term, 0, len(e.terms)*len(o.terms))
	for _, a := range e.terms {
		for _, b := range o.terms {
			ts = append(ts, term{
				coeff: new(big.Rat).Mul(a.coeff, b.coeff),
				vars:  mulFactors(a.vars, b.vars),
			})
		}
	}
	return normalize(ts)
}

func mulFactors(a, b []factor) []factor {
	exps := make(map[string]int, len(a)+len(b))
	for _, f := range a {
		exps[f.name] += f.exp
	}
	for _, f := range b {
		exps[f.name] += f.exp
	}
	names := make([]string, 0, len(exps))
	for n := range exps {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]factor, 0, len(names))
	for _, n := range names {
		if exps[n] != 0 {
			out = append(out, factor{name: n, exp: exps[n]})
		}
	}
	return out
}

// Pow returns e raised to the non-negative integer power k.
func (e *Expr) Pow(k int) *Expr {
	if k < 0 {
		panic("symbol: negative exponent")
	}
	out := Num(1)
	for i := 0; i < k; i++ {
		out = out.Mul(e)
	}
	return out
}

// Div returns e divided by o. Only division by a nonzero constant is defined.
func (e *Expr) Div(o *Expr) (*Expr, error) {
	r, ok := o.Number()
	if !ok {
		return nil, fmt.Errorf("symbol: division by non-constant expression %s", o)
	}
	if r.Sign() == 0 {
		return nil, fmt.Errorf("symbol: division by zero")
	}
	return e.Mul(Rat(new(big.Rat).Inv(r))), nil
}

// IsZero reports whether e is identically zero.
func (e *Expr) IsZero() bool { return len(e.terms) == 0 }

// Number returns the constant value of e, if e has no unknowns.
func (e *Expr) Number() (*big.Rat, bool) {
	if e.IsZero() {
		return new(big.Rat), true
	}
	if len(e.terms) == 1 && len(e.terms[0].vars) == 0 {
		return new(big.Rat).Set(e.terms[0].coeff), true
	}
	return nil, false
}

// AsVar returns the unknown's name if e is exactly a single unknown with
// coefficient one.
func (e *Expr) AsVar() (string, bool) {
	if len(e.terms) != 1 {
		return "", false
	}
	t := e.terms[0]
	if len(t.vars) == 1 && t.vars[0].exp == 1 && t.coeff.Cmp(big.NewRat(1, 1)) == 0 {
		return t.vars[0].name, true
	}
	return "", false
}

// FreeVars returns the sorted names of all unknowns occurring in e.
func (e *Expr) FreeVars() []string {
	seen := make(map[string]bool)
	for _, t := range e.terms {
		for _, f := range t.vars {
			seen[f.name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasVar reports whether the unknown name occurs in e.
func (e *Expr) HasVar(name string) bool {
	for _, t := range e.terms {
		for _, f := range t.vars {
			if f.name == name {
				return true
			}
		}
	}
	return false
}

// Degree returns the highest exponent of name across all terms of e.
func (e *Expr) Degree(name string) int {
	d := 0
	for _, t := range e.terms {
		for _, f := range t.vars {
			if f.name == name && f.exp > d {
				d = f.exp
			}
		}
	}
	return d
}

// CoeffsOf decomposes e as a polynomial in name, returning the coefficient
// expression for each exponent from 0 up to Degree(name).
func (e *Expr) CoeffsOf(name string) []*Expr {
	deg := e.Degree(name)
	coeffs := make([]*Expr, deg+1)
	for i := range coeffs {
		coeffs[i] = Zero()
	}
	for _, t := range e.terms {
		exp := 0
		rest := make([]factor, 0, len(t.vars))
		for _, f := range t.vars {
			if f.name == name {
				exp = f.exp
			} else {
				rest = append(rest, f)
			}
		}
		part := &Expr{terms: []term{{coeff: new(big.Rat).Set(t.coeff), vars: rest}}}
		coeffs[exp] = coeffs[exp].Add(part)
	}
	return coeffs
}

// Substitute replaces every unknown in repl by its expression, simultaneously,
// and returns the normalized result. Unknowns not present in repl are kept.
func (e *Expr) Substitute(repl map[string]*Expr) *Expr {
	if len(repl) == 0 {
		return e
	}
	out := Zero()
	for _, t := range e.terms {
		part := Rat(t.coeff)
		for _, f := range t.vars {
			base, ok := repl[f.name]
			if !ok {
				base = Var(f.name)
			}
			part = part.Mul(base.Pow(f.exp))
		}
		out = out.Add(part)
	}
	return out
}

// Equal reports structural equality of normal forms.
func (e *Expr) Equal(o *Expr) bool {
	return e.Sub(o).IsZero()
}

// String renders e deterministically, e.g. "x^2 - 3*x*y + 1/2".
func (e *Expr) String() string {
	if e.IsZero() {
		return "0"
	}
	var b strings.Builder
	for i, t := range e.terms {
		c := t.coeff
		neg := c.Sign() < 0
		abs := new(big.Rat).Abs(c)
		switch {
		case i == 0 && neg:
			b.WriteString("-")
		case i > 0 && neg:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		mono := t.monoKey()
		one := abs.Cmp(big.NewRat(1, 1)) == 0
		switch {
		case mono == "":
			b.WriteString(abs.RatString())
		case one:
			b.WriteString(mono)
		default:
			b.WriteString(abs.RatString())
			b.WriteString("*")
			b.WriteString(mono)
		}
	}
	return b.String()
}
