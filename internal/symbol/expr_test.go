package symbol

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprArithmetic(t *testing.T) {
	x, y := Var("x"), Var("y")

	sum := x.Add(y).Add(Num(3))
	assert.Equal(t, "x + y + 3", sum.String())

	diff := sum.Sub(x)
	assert.Equal(t, "y + 3", diff.String())

	prod := x.Add(y).Mul(x.Sub(y))
	assert.Equal(t, "x^2 - y^2", prod.String())

	cancel := x.Sub(x)
	assert.True(t, cancel.IsZero())
}

func TestExprPow(t *testing.T) {
	x := Var("x")
	sq := x.Add(Num(1)).Pow(2)
	assert.Equal(t, "x^2 + 2*x + 1", sq.String())
	assert.Equal(t, "1", x.Pow(0).String())
}

func TestExprDiv(t *testing.T) {
	x := Var("x")
	half, err := x.Div(Num(2))
	require.NoError(t, err)
	assert.Equal(t, "1/2*x", half.String())

	_, err = Num(1).Div(x)
	assert.Error(t, err)
	_, err = x.Div(Num(0))
	assert.Error(t, err)
}

func TestExprNumberAndVar(t *testing.T) {
	n, ok := Num(7).Number()
	require.True(t, ok)
	assert.Equal(t, 0, n.Cmp(big.NewRat(7, 1)))

	_, ok = Var("x").Number()
	assert.False(t, ok)

	name, ok := Var("mSegment1").AsVar()
	require.True(t, ok)
	assert.Equal(t, "mSegment1", name)

	_, ok = Var("x").Mul(Num(2)).AsVar()
	assert.False(t, ok)

	z, ok := Zero().Number()
	require.True(t, ok)
	assert.Equal(t, 0, z.Sign())
}

func TestExprFreeVars(t *testing.T) {
	e := Var("b").Mul(Var("a")).Add(Var("c"))
	assert.Equal(t, []string{"a", "b", "c"}, e.FreeVars())
	assert.True(t, e.HasVar("a"))
	assert.False(t, e.HasVar("d"))
	assert.Empty(t, Num(4).FreeVars())
}

func TestExprSubstitute(t *testing.T) {
	x, y := Var("x"), Var("y")
	e := x.Pow(2).Add(y)

	got := e.Substitute(map[string]*Expr{"x": Num(3)})
	assert.Equal(t, "y + 9", got.String())

	// Simultaneous substitution: x := y, y := 1 must not chain.
	chained := x.Add(y).Substitute(map[string]*Expr{"x": y, "y": Num(1)})
	assert.Equal(t, "y + 1", chained.String())

	same := e.Substitute(map[string]*Expr{"z": Num(5)})
	assert.True(t, e.Equal(same))
}

func TestExprCoeffsOf(t *testing.T) {
	x, y := Var("x"), Var("y")
	e := x.Pow(2).Mul(Num(2)).Add(x.Mul(y)).Add(Num(5))

	assert.Equal(t, 2, e.Degree("x"))
	coeffs := e.CoeffsOf("x")
	require.Len(t, coeffs, 3)
	assert.Equal(t, "5", coeffs[0].String())
	assert.Equal(t, "y", coeffs[1].String())
	assert.Equal(t, "2", coeffs[2].String())
}

func TestExprEqualNormalizesOrder(t *testing.T) {
	a := Var("x").Add(Var("y"))
	b := Var("y").Add(Var("x"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(a.Add(Num(1))))
}
