package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpliedTrianglesCevianSplit(t *testing.T) {
	// Triangle ABC with D between B and C and a cevian AD registered.
	d := New(nil)
	got, err := d.ImpliedTriangles(Facts{
		Lines:     [][]string{{"B", "D", "C"}},
		Segments:  [][2]string{{"A", "D"}},
		Triangles: [][3]string{{"A", "B", "C"}},
	})
	require.NoError(t, err)
	assert.Contains(t, got, [3]string{"A", "B", "D"})
	assert.Contains(t, got, [3]string{"A", "D", "C"})
}

func TestImpliedTrianglesCevianSplitReversedLine(t *testing.T) {
	// The collinear sequence may be stored in the opposite order.
	d := New(nil)
	got, err := d.ImpliedTriangles(Facts{
		Lines:     [][]string{{"C", "D", "B"}},
		Segments:  [][2]string{{"D", "A"}},
		Triangles: [][3]string{{"A", "B", "C"}},
	})
	require.NoError(t, err)
	assert.Contains(t, got, [3]string{"A", "B", "D"})
	assert.Contains(t, got, [3]string{"A", "D", "C"})
}

func TestImpliedTrianglesSideExtension(t *testing.T) {
	// E extends side BC beyond C; segment AE closes the super-triangle.
	d := New(nil)
	got, err := d.ImpliedTriangles(Facts{
		Lines:     [][]string{{"B", "C", "E"}},
		Segments:  [][2]string{{"A", "E"}},
		Triangles: [][3]string{{"A", "B", "C"}},
	})
	require.NoError(t, err)
	assert.Contains(t, got, [3]string{"A", "B", "E"})
}

func TestImpliedTrianglesExtensionBeforeFirstVertex(t *testing.T) {
	// E extends side BC beyond B.
	d := New(nil)
	got, err := d.ImpliedTriangles(Facts{
		Lines:     [][]string{{"E", "B", "C"}},
		Segments:  [][2]string{{"A", "E"}},
		Triangles: [][3]string{{"A", "B", "C"}},
	})
	require.NoError(t, err)
	assert.Contains(t, got, [3]string{"A", "E", "C"})
}

func TestImpliedTrianglesNoCevianWithoutSegment(t *testing.T) {
	d := New(nil)
	got, err := d.ImpliedTriangles(Facts{
		Lines:     [][]string{{"B", "D", "C"}},
		Triangles: [][3]string{{"A", "B", "C"}},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImpliedTrianglesEmptyFacts(t *testing.T) {
	d := New(nil)
	got, err := d.ImpliedTriangles(Facts{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
