package geometry

import (
	"geonerd/internal/registry"

	"go.uber.org/zap"
)

// Line is an ordered sequence of two or more collinear points. The key is
// the canonical point order: lexically smallest endpoint first, order
// otherwise preserved. Lines sharing two or more points merge into one.
type Line struct {
	registry.Node
	sess *Session
	pts  []*Point
}

// Kind implements registry.Entity.
func (*Line) Kind() registry.Kind { return KindLine }

func (l *Line) resolved() *Line { return registry.Resolve(l).(*Line) }

// Points returns the line's points in line order.
func (l *Line) Points() []*Point {
	return append([]*Point(nil), l.resolved().pts...)
}

// Line finds or creates a line through the points of a space-delimited spec.
func (s *Session) Line(spec string) (*Line, error) {
	pts, err := s.Points(spec)
	if err != nil {
		return nil, err
	}
	return s.LineOf(pts...)
}

// LineOf finds or creates a line through the given points, merging any
// registered lines that share at least two points with it. Merging updates
// every involved line's point list and collapses the participants to one
// survivor; rays on the line re-canonicalize reactively.
func (s *Session) LineOf(pts ...*Point) (*Line, error) {
	l, err := s.lineOf(pts)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return l.resolved(), nil
}

// lineOf is the construction core; it leaves cascade work on the worklist.
func (s *Session) lineOf(pts []*Point) (*Line, error) {
	if len(pts) < 2 {
		return nil, constructionErrorf("line", "need at least 2 points, got %d", len(pts))
	}
	if !distinctPoints(pts) {
		return nil, constructionErrorf("line", "points %q are not distinct", joinPoints(pts))
	}
	canonical := canonicalLineOrder(pts)
	key := joinPoints(canonical)
	if existing := s.reg.Get(KindLine, key); existing != nil {
		return existing.(*Line), nil
	}

	var overlapping []*Line
	for _, e := range s.reg.Elements(KindLine) {
		o := e.(*Line)
		if countCommon(o.pts, pts) >= 2 {
			overlapping = append(overlapping, o)
		}
	}

	if len(overlapping) == 0 {
		l := &Line{sess: s, pts: canonical}
		if err := s.reg.Register(l, key); err != nil {
			return nil, err
		}
		s.log.Debug("line created", zap.String("key", key))
		if err := s.materializeSegments(canonical); err != nil {
			return nil, err
		}
		return l, nil
	}

	merged := pts
	for _, o := range overlapping {
		var err error
		merged, err = bidirectionalOrderPreservingMerge(o.pts, merged)
		if err != nil {
			return nil, err
		}
	}
	merged = canonicalLineOrder(merged)
	mergedKey := joinPoints(merged)

	var survivor *Line
	for _, o := range overlapping {
		o = o.resolved()
		o.pts = merged
		res, err := s.reg.UpdateKey(o, mergedKey)
		if err != nil {
			return nil, err
		}
		survivor = res.(*Line)
	}
	s.log.Debug("lines merged",
		zap.Int("participants", len(overlapping)),
		zap.String("key", mergedKey))
	if err := s.materializeSegments(merged); err != nil {
		return nil, err
	}
	return survivor, nil
}

// materializeSegments eagerly constructs a segment for every point pair.
func (s *Session) materializeSegments(pts []*Point) error {
	for i := range pts {
		for _, q := range pts[i+1:] {
			if _, err := s.segmentOf(pts[i], q); err != nil {
				return err
			}
		}
	}
	return nil
}

// canonicalLineOrder orients a point sequence so its lexically smaller
// endpoint comes first.
func canonicalLineOrder(pts []*Point) []*Point {
	if pts[0].Less(pts[len(pts)-1]) {
		return append([]*Point(nil), pts...)
	}
	out := make([]*Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func countCommon(a, b []*Point) int {
	n := 0
	for _, p := range a {
		if containsPoint(b, p) {
			n++
		}
	}
	return n
}

// bidirectionalOrderPreservingMerge merges two collinear point sequences
// into one consistent ordering, reversing the second if needed. It fails if
// the sequences' common subsequences disagree even after reversal
// (inconsistent) or if the walk reaches a state where neither head is a
// common point (ambiguous).
func bidirectionalOrderPreservingMerge(a, b []*Point) ([]*Point, error) {
	commonAsA := filterPoints(a, b)
	commonAsB := filterPoints(b, a)
	if len(commonAsA) < 2 {
		return nil, constructionErrorf("line merge",
			"sequences %q and %q share fewer than two points", joinPoints(a), joinPoints(b))
	}
	if samePointOrder(commonAsA, commonAsB) {
		return orderPreservingMerge(a, b)
	}
	if samePointOrder(commonAsA, reversePoints(commonAsB)) {
		return orderPreservingMerge(a, reversePoints(b))
	}
	return nil, constructionErrorf("line merge",
		"sequences %q and %q cannot be aligned consistently", joinPoints(a), joinPoints(b))
}

// orderPreservingMerge walks both sequences simultaneously, always consuming
// whichever side's head is not a common point, and consuming both when the
// heads agree.
func orderPreservingMerge(a, b []*Point) ([]*Point, error) {
	out := make([]*Point, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		switch {
		case a[0] == b[0]:
			out = append(out, a[0])
			a, b = a[1:], b[1:]
		case containsPoint(b, a[0]):
			out = append(out, b[0])
			b = b[1:]
		case containsPoint(a, b[0]):
			out = append(out, a[0])
			a = a[1:]
		default:
			return nil, constructionErrorf("line merge",
				"order of sequences ambiguous near %q and %q", a[0].Label(), b[0].Label())
		}
	}
	out = append(out, a...)
	out = append(out, b...)
	return out, nil
}

func filterPoints(a, b []*Point) []*Point {
	var out []*Point
	for _, p := range a {
		if containsPoint(b, p) {
			out = append(out, p)
		}
	}
	return out
}

func samePointOrder(a, b []*Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reversePoints(pts []*Point) []*Point {
	out := make([]*Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// IntersectionPoint returns the single point the two lines share, or nil if
// they share none or more than one (in which case they are the same line).
func (l *Line) IntersectionPoint(other *Line) *Point {
	var common []*Point
	for _, p := range l.Points() {
		if containsPoint(other.Points(), p) {
			common = append(common, p)
		}
	}
	if len(common) == 1 {
		return common[0]
	}
	return nil
}

// IsInteriorPoint reports whether p lies strictly between the line's known
// endpoints.
func (l *Line) IsInteriorPoint(p *Point) bool {
	pts := l.resolved().pts
	idx := indexOfPoint(pts, p)
	return idx > 0 && idx < len(pts)-1
}

// SegmentsWithSubsegments returns every segment on the line that spans more
// than one atomic subsegment.
func (l *Line) SegmentsWithSubsegments() ([]*Segment, error) {
	pts := l.resolved().pts
	var out []*Segment
	for k := 2; k < len(pts); k++ {
		for i := 0; i+k < len(pts); i++ {
			seg, err := l.sess.segmentOf(pts[i], pts[i+k])
			if err != nil {
				return nil, err
			}
			out = append(out, seg)
		}
	}
	return out, nil
}
