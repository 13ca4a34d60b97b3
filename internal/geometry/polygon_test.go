package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geonerd/internal/registry"
)

func TestTriangleRotationsAreOneEntity(t *testing.T) {
	s := newTestSession(t)

	t1, err := s.Triangle("B C A")
	require.NoError(t, err)
	assert.Equal(t, "A B C", registry.Key(t1))

	t2, err := s.Triangle("C A B")
	require.NoError(t, err)
	assert.Same(t, t1, t2)
	assert.Equal(t, 1, s.Registry().Count(KindTriangle))
}

func TestTriangleOrientationConflict(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Triangle("A B C")
	require.NoError(t, err)
	_, err = s.Triangle("A C B")
	require.Error(t, err)
	var cerr *ConstructionError
	assert.ErrorAs(t, err, &cerr)
}

func TestPolygonOrientationConflict(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Polygon("A B C D")
	require.NoError(t, err)
	// Same vertex cycle, rotated: same polygon.
	p, err := s.Polygon("C D A B")
	require.NoError(t, err)
	assert.Equal(t, "A B C D", registry.Key(p))
	// Same vertex set, different cycle: conflict.
	_, err = s.Polygon("A C B D")
	require.Error(t, err)
}

func TestThreeVertexPolygonIsATriangle(t *testing.T) {
	s := newTestSession(t)

	p, err := s.Polygon("A B C")
	require.NoError(t, err)
	assert.NotNil(t, s.Registry().Get(KindTriangle, "A B C"))
	assert.Equal(t, 0, s.Registry().Count(KindPolygon))
	assert.Equal(t, "A B C", registry.Key(p))
}

func TestTriangleMaterializesSidesAndAngles(t *testing.T) {
	s := newTestSession(t)

	tri, err := s.Triangle("A B C")
	require.NoError(t, err)

	sides, err := tri.Sides()
	require.NoError(t, err)
	require.Len(t, sides, 3)
	keys := make([]string, len(sides))
	for i, side := range sides {
		keys[i] = registry.Key(side)
	}
	assert.ElementsMatch(t, []string{"A B", "B C", "A C"}, keys)

	angles, err := tri.VertexAngles()
	require.NoError(t, err)
	require.Len(t, angles, 3)
	assert.Equal(t, 3, s.Registry().Count(KindSegment))
}

func TestOppositeSide(t *testing.T) {
	s := newTestSession(t)

	tri, err := s.Triangle("A B C")
	require.NoError(t, err)
	opp, err := tri.OppositeSide(mustPoint(t, s, "B"))
	require.NoError(t, err)
	assert.Equal(t, "A C", registry.Key(opp))
}

func TestRightAngleVertex(t *testing.T) {
	s := newTestSession(t)

	tri, err := s.Triangle("A B C")
	require.NoError(t, err)
	_, ok := tri.RightAngleVertex()
	assert.False(t, ok)

	right, err := tri.VertexAngleAt(mustPoint(t, s, "C"))
	require.NoError(t, err)
	require.NoError(t, s.SetMeasureInt(right, 90))

	v, ok := tri.RightAngleVertex()
	require.True(t, ok)
	assert.Equal(t, "C", v.Label())
}
