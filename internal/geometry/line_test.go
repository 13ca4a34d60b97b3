package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geonerd/internal/registry"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(nil, nil)
}

func lineLabels(t *testing.T, l *Line) []string {
	t.Helper()
	return pointKeys(l.Points())
}

func TestLineConstructionIsIdempotent(t *testing.T) {
	s := newTestSession(t)

	l1, err := s.Line("A B C")
	require.NoError(t, err)
	l2, err := s.Line("A B C")
	require.NoError(t, err)

	assert.Same(t, l1, l2)
	assert.Equal(t, []string{"A", "B", "C"}, lineLabels(t, l1))
	assert.Equal(t, 1, s.Registry().Count(KindLine))
}

func TestLineSpecIsCanonicalizedByEndpoint(t *testing.T) {
	s := newTestSession(t)

	l1, err := s.Line("C B A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, lineLabels(t, l1))

	l2, err := s.Line("A B C")
	require.NoError(t, err)
	assert.Same(t, registry.Resolve(l1), registry.Resolve(l2))
}

func TestLineConstructionValidation(t *testing.T) {
	s := newTestSession(t)

	tests := []struct {
		name string
		spec string
	}{
		{name: "single point", spec: "A"},
		{name: "duplicate points", spec: "A B A"},
		{name: "empty spec", spec: "  "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Line(tc.spec)
			assert.Error(t, err)
		})
	}
}

func TestLineMergePreservesOrder(t *testing.T) {
	s := newTestSession(t)

	l1, err := s.Line("A X B C D")
	require.NoError(t, err)
	l2, err := s.Line("C F E B A")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "X", "B", "E", "F", "C", "D"}, lineLabels(t, l2))
	// The first handle keeps working and sees the merged line.
	assert.Equal(t, []string{"A", "X", "B", "E", "F", "C", "D"}, lineLabels(t, l1))
	assert.Same(t, registry.Resolve(l1), registry.Resolve(l2))
	assert.Equal(t, 1, s.Registry().Count(KindLine))
}

func TestLineMergeAmbiguousOrderFails(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Line("A B C")
	require.NoError(t, err)
	_, err = s.Line("A D C")
	require.Error(t, err)
	var cerr *ConstructionError
	assert.ErrorAs(t, err, &cerr)
}

func TestLineMergeInconsistentOrderFails(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Line("A B C D")
	require.NoError(t, err)
	_, err = s.Line("B A C")
	require.Error(t, err)
	var cerr *ConstructionError
	assert.ErrorAs(t, err, &cerr)
}

func TestLineMergeHandlesReversedSequences(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Line("A B C")
	require.NoError(t, err)
	// Shares B and C with the first line, but runs in the other direction.
	l, err := s.Line("D C B")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, lineLabels(t, l))
}

func TestLineMergeMaterializesSegments(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Line("A B C")
	require.NoError(t, err)
	// Every point pair on the line has a segment.
	for _, key := range []string{"A B", "B C", "A C"} {
		assert.NotNil(t, s.Registry().Get(KindSegment, key), "segment %q", key)
	}
}

func TestIntersectionPoint(t *testing.T) {
	s := newTestSession(t)

	l1, err := s.Line("A B C")
	require.NoError(t, err)
	l2, err := s.Line("D B E")
	require.NoError(t, err)
	l3, err := s.Line("F G")
	require.NoError(t, err)

	b, err := s.Point("B")
	require.NoError(t, err)
	assert.Same(t, b, l1.IntersectionPoint(l2))
	assert.Nil(t, l1.IntersectionPoint(l3))
}

func TestRayCanonicalizesToFarthestPoint(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Line("A B C D")
	require.NoError(t, err)
	r, err := s.Ray("B C")
	require.NoError(t, err)

	assert.Equal(t, "B D", registry.Key(r))
	assert.Equal(t, "D", r.PointingTo().Label())
}

func TestRayRecanonicalizesOnLineMerge(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Line("B C")
	require.NoError(t, err)
	r, err := s.Ray("B C")
	require.NoError(t, err)
	require.Equal(t, "B C", registry.Key(r))

	// Extending the line past C moves the ray's canonical direction point.
	_, err = s.Line("A B C D")
	require.NoError(t, err)

	assert.Equal(t, "B D", registry.Key(r))

	// A ray constructed through any point in the same direction is the same
	// entity.
	r2, err := s.Ray("B D")
	require.NoError(t, err)
	assert.Same(t, registry.Resolve(r), registry.Resolve(r2))
	assert.Equal(t, 1, s.Registry().Count(KindRay))
}

func TestRayMergeCollapsesDuplicates(t *testing.T) {
	s := newTestSession(t)

	r1, err := s.Ray("B C")
	require.NoError(t, err)
	r2, err := s.Ray("B D")
	require.NoError(t, err)
	require.NotSame(t, registry.Resolve(r1), registry.Resolve(r2))

	// Once C and D are known collinear on the same side of B, the rays are
	// one.
	_, err = s.Line("B C D")
	require.NoError(t, err)

	assert.Same(t, registry.Resolve(r1), registry.Resolve(r2))
	assert.Equal(t, 1, s.Registry().Count(KindRay))
}
