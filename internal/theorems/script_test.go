package theorems

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geonerd/internal/symbol"
)

const perimeterScript = `
import (
	"encoding/json"
	"sort"
	"strings"
)

// Relations asserts that the triangle's perimeter is 12.
func Relations(input string) (string, error) {
	var in struct {
		Sides map[string]string ` + "`json:\"sides\"`" + `
	}
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", err
	}
	var parts []string
	for _, m := range in.Sides {
		parts = append(parts, "("+m+")")
	}
	sort.Strings(parts)
	return strings.Join(parts, " + ") + " - 12", nil
}
`

func TestLoadAndRunPerimeterScript(t *testing.T) {
	loader := NewLoader(nil)
	script, err := loader.Load("perimeter", perimeterScript)
	require.NoError(t, err)
	assert.Equal(t, "perimeter", script.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exprs, err := script.Relations(ctx, Input{
		Kind: "Triangle",
		Key:  "A B C",
		Sides: map[string]string{
			"A B": "3",
			"B C": "4",
			"A C": "mSegment3",
		},
	})
	require.NoError(t, err)
	require.Len(t, exprs, 1)

	want, err := symbol.Parse("mSegment3 - 5")
	require.NoError(t, err)
	assert.True(t, exprs[0].Equal(want), "got %s", exprs[0])
}

func TestMultipleRelationLinesAndComments(t *testing.T) {
	loader := NewLoader(nil)
	script, err := loader.Load("multi", `
func Relations(input string) (string, error) {
	return "# isosceles\na - b\n\nb - 4\n", nil
}
`)
	require.NoError(t, err)

	exprs, err := script.Relations(context.Background(), Input{})
	require.NoError(t, err)
	require.Len(t, exprs, 2)
}

func TestForbiddenImportIsRejected(t *testing.T) {
	loader := NewLoader(nil)
	tests := []struct {
		name string
		code string
	}{
		{name: "os", code: "import \"os\"\n\nfunc Relations(input string) (string, error) { return \"\", nil }"},
		{name: "net in block", code: "import (\n\t\"net\"\n)\n\nfunc Relations(input string) (string, error) { return \"\", nil }"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loader.Load(tc.name, tc.code)
			assert.Error(t, err)
		})
	}
}

func TestMissingRelationsFunction(t *testing.T) {
	loader := NewLoader(nil)
	_, err := loader.Load("empty", "func Other() {}")
	assert.Error(t, err)
}

func TestWrongSignatureIsRejected(t *testing.T) {
	loader := NewLoader(nil)
	_, err := loader.Load("bad", "func Relations(n int) int { return n }")
	assert.Error(t, err)
}

func TestBadRelationLineFails(t *testing.T) {
	loader := NewLoader(nil)
	script, err := loader.Load("garbage", `
func Relations(input string) (string, error) {
	return "not ** a polynomial ((", nil
}
`)
	require.NoError(t, err)
	_, err = script.Relations(context.Background(), Input{})
	assert.Error(t, err)
}

func TestScriptErrorPropagates(t *testing.T) {
	loader := NewLoader(nil)
	script, err := loader.Load("failing", `
import "fmt"

func Relations(input string) (string, error) {
	return "", fmt.Errorf("no relation applies")
}
`)
	require.NoError(t, err)
	_, err = script.Relations(context.Background(), Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no relation applies")
}
