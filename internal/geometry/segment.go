package geometry

import (
	"fmt"

	"geonerd/internal/registry"
)

// Segment is an unordered pair of points with a length measure. The key is
// the lexically sorted pair. A segment always lies on exactly one line,
// created on demand.
type Segment struct {
	registry.Node
	sess *Session
	pts  [2]*Point
	cell measureCell
}

// Kind implements registry.Entity.
func (*Segment) Kind() registry.Kind { return KindSegment }

func (g *Segment) resolved() *Segment { return registry.Resolve(g).(*Segment) }

// Points returns the segment's endpoints in key order.
func (g *Segment) Points() (*Point, *Point) {
	cur := g.resolved()
	return cur.pts[0], cur.pts[1]
}

func (g *Segment) measureCell() *measureCell { return &g.resolved().cell }
func (g *Segment) measurePrefix() string     { return "mSegment" }

func segmentKey(a, b *Point) string {
	a, b = sortedPair(a, b)
	return fmt.Sprintf("%s %s", a.Label(), b.Label())
}

// Segment finds or creates the segment between the two points of the spec.
func (s *Session) Segment(spec string) (*Segment, error) {
	pts, err := s.Points(spec)
	if err != nil {
		return nil, err
	}
	if len(pts) != 2 {
		return nil, constructionErrorf("segment", "need exactly 2 points, got %d", len(pts))
	}
	return s.SegmentOf(pts[0], pts[1])
}

// SegmentOf finds or creates the segment between a and b.
func (s *Session) SegmentOf(a, b *Point) (*Segment, error) {
	seg, err := s.segmentOf(a, b)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return seg.resolved(), nil
}

func (s *Session) segmentOf(a, b *Point) (*Segment, error) {
	if a == b {
		return nil, constructionErrorf("segment", "endpoints are the same point %q", a.Label())
	}
	key := segmentKey(a, b)
	if existing := s.reg.Get(KindSegment, key); existing != nil {
		return existing.(*Segment), nil
	}
	lo, hi := sortedPair(a, b)
	seg := &Segment{sess: s, pts: [2]*Point{lo, hi}}
	if err := s.reg.Register(seg, key); err != nil {
		return nil, err
	}
	return seg, nil
}

// FindSegment returns the registered segment between a and b without
// constructing one.
func (s *Session) FindSegment(a, b *Point) *Segment {
	if e := s.reg.Get(KindSegment, segmentKey(a, b)); e != nil {
		return e.(*Segment)
	}
	return nil
}

// Line returns the line the segment lies on, creating it on demand.
func (g *Segment) Line() (*Line, error) {
	cur := g.resolved()
	l, err := cur.line()
	if err != nil {
		return nil, err
	}
	if err := cur.sess.finish(); err != nil {
		return nil, err
	}
	return l.resolved(), nil
}

func (g *Segment) line() (*Line, error) {
	cur := g.resolved()
	return cur.sess.lineOf([]*Point{cur.pts[0], cur.pts[1]})
}

// ContainedPoints returns all known points on the segment, endpoints
// included, in line order.
func (g *Segment) ContainedPoints() ([]*Point, error) {
	cur := g.resolved()
	l, err := cur.line()
	if err != nil {
		return nil, err
	}
	pts := l.resolved().pts
	i, j := indexOfPoint(pts, cur.pts[0]), indexOfPoint(pts, cur.pts[1])
	if i > j {
		i, j = j, i
	}
	return append([]*Point(nil), pts[i:j+1]...), nil
}

// Subsegments returns every proper subsegment of the segment.
func (g *Segment) Subsegments() ([]*Segment, error) {
	cur := g.resolved()
	pts, err := cur.ContainedPoints()
	if err != nil {
		return nil, err
	}
	var out []*Segment
	for i := 0; i < len(pts)-1; i++ {
		for j := i + 1; j < len(pts); j++ {
			sub, err := cur.sess.segmentOf(pts[i], pts[j])
			if err != nil {
				return nil, err
			}
			if sub != cur {
				out = append(out, sub)
			}
		}
	}
	return out, nil
}

// AtomicSubsegments returns the subsegments between adjacent known points,
// which include the segment itself when no interior point is known.
func (g *Segment) AtomicSubsegments() ([]*Segment, error) {
	cur := g.resolved()
	pts, err := cur.ContainedPoints()
	if err != nil {
		return nil, err
	}
	out := make([]*Segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		sub, err := cur.sess.segmentOf(pts[i], pts[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}
