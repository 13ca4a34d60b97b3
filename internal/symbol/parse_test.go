package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "42", "42"},
		{"decimal", "2.5", "5/2"},
		{"variable", "mSegment1", "mSegment1"},
		{"sum", "a + b - 3", "a + b - 3"},
		{"precedence", "a + b*c", "b*c + a"},
		{"parens", "(a + b)*c", "a*c + b*c"},
		{"power", "x^2 - 9", "x^2 - 9"},
		{"unary minus", "-x + 4", "-x + 4"},
		{"constant division", "x/2", "1/2*x"},
		{"nested", "((x))", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"x +",
		"(x",
		"x ^ -2",
		"x / y",
		"x $ y",
		"1/0",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err, "input %q", input)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, input := range []string{
		"x^2 + 2*x + 1",
		"a*b - c/3",
		"side_a + side_b + side_c - 12",
	} {
		e, err := Parse(input)
		require.NoError(t, err)
		again, err := Parse(e.String())
		require.NoError(t, err)
		assert.True(t, e.Equal(again))
	}
}
