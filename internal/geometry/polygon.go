package geometry

import (
	"math/big"
	"sort"

	"geonerd/internal/registry"
)

// Polygon is a cyclic sequence of three or more vertices. The key rotates the
// cycle so the lexically smallest vertex comes first; rotations of the same
// cycle are one polygon, while the same vertex set in a different cyclic
// order is a conflicting construction.
type Polygon struct {
	registry.Node
	sess *Session
	pts  []*Point
}

// Kind implements registry.Entity.
func (*Polygon) Kind() registry.Kind { return KindPolygon }

func (p *Polygon) resolvedPolygon() *Polygon {
	switch cur := registry.Resolve(p).(type) {
	case *Polygon:
		return cur
	case *Triangle:
		return &cur.Polygon
	}
	return p
}

// Vertices returns the vertices in canonical cyclic order.
func (p *Polygon) Vertices() []*Point {
	return append([]*Point(nil), p.resolvedPolygon().pts...)
}

// Sides returns the boundary segments in cyclic order.
func (p *Polygon) Sides() ([]*Segment, error) {
	cur := p.resolvedPolygon()
	out := make([]*Segment, len(cur.pts))
	for i, v := range cur.pts {
		seg, err := cur.sess.segmentOf(v, cur.pts[(i+1)%len(cur.pts)])
		if err != nil {
			return nil, err
		}
		out[i] = seg.resolved()
	}
	return out, nil
}

// VertexAngleAt returns the interior angle at the given vertex.
func (p *Polygon) VertexAngleAt(v *Point) (*Angle, error) {
	cur := p.resolvedPolygon()
	i := indexOfPoint(cur.pts, v)
	if i < 0 {
		return nil, constructionErrorf("polygon", "%q is not a vertex of %q",
			v.Label(), joinPoints(cur.pts))
	}
	n := len(cur.pts)
	prev, next := cur.pts[(i+n-1)%n], cur.pts[(i+1)%n]
	a, err := cur.sess.angleOf(prev, v, next)
	if err != nil {
		return nil, err
	}
	return a.resolved(), nil
}

// VertexAngles returns the interior angles in vertex order.
func (p *Polygon) VertexAngles() ([]*Angle, error) {
	cur := p.resolvedPolygon()
	out := make([]*Angle, len(cur.pts))
	for i, v := range cur.pts {
		a, err := cur.VertexAngleAt(v)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// Triangle is a three-vertex polygon with an area measure.
type Triangle struct {
	Polygon
	cell measureCell
}

// Kind implements registry.Entity.
func (*Triangle) Kind() registry.Kind { return KindTriangle }

func (t *Triangle) resolved() *Triangle { return registry.Resolve(t).(*Triangle) }

func (t *Triangle) measureCell() *measureCell { return &t.resolved().cell }
func (t *Triangle) measurePrefix() string     { return "aTriangle" }

// rotateToMin rotates a vertex cycle so the lexically smallest vertex comes
// first, preserving direction.
func rotateToMin(pts []*Point) []*Point {
	min := 0
	for i, p := range pts {
		if p.Less(pts[min]) {
			min = i
		}
	}
	out := make([]*Point, 0, len(pts))
	out = append(out, pts[min:]...)
	return append(out, pts[:min]...)
}

func sameVertexSet(a, b []*Point) bool {
	if len(a) != len(b) {
		return false
	}
	ka, kb := pointKeys(a), pointKeys(b)
	sort.Strings(ka)
	sort.Strings(kb)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

// Polygon finds or creates the polygon through the vertices of the spec. A
// three-vertex spec yields a Triangle.
func (s *Session) Polygon(spec string) (*Polygon, error) {
	pts, err := s.Points(spec)
	if err != nil {
		return nil, err
	}
	return s.PolygonOf(pts...)
}

// PolygonOf finds or creates the polygon with the given vertex cycle.
func (s *Session) PolygonOf(pts ...*Point) (*Polygon, error) {
	if len(pts) == 3 {
		t, err := s.TriangleOf(pts[0], pts[1], pts[2])
		if err != nil {
			return nil, err
		}
		return &t.Polygon, nil
	}
	p, err := s.polygonOf(pts)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return p.resolvedPolygon(), nil
}

// Triangle finds or creates the triangle through the three vertices of the
// spec.
func (s *Session) Triangle(spec string) (*Triangle, error) {
	pts, err := s.Points(spec)
	if err != nil {
		return nil, err
	}
	if len(pts) != 3 {
		return nil, constructionErrorf("triangle", "need exactly 3 points, got %d", len(pts))
	}
	return s.TriangleOf(pts[0], pts[1], pts[2])
}

// TriangleOf finds or creates the triangle with the given vertex cycle.
func (s *Session) TriangleOf(a, b, c *Point) (*Triangle, error) {
	t, err := s.triangleOf(a, b, c)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return t.resolved(), nil
}

func (s *Session) triangleOf(a, b, c *Point) (*Triangle, error) {
	pts := []*Point{a, b, c}
	if !distinctPoints(pts) {
		return nil, constructionErrorf("triangle", "vertices %q are not distinct", joinPoints(pts))
	}
	canonical := rotateToMin(pts)
	key := joinPoints(canonical)
	if existing := s.reg.Get(KindTriangle, key); existing != nil {
		return existing.(*Triangle), nil
	}
	if err := s.checkOrientation("triangle", canonical, key); err != nil {
		return nil, err
	}
	t := &Triangle{Polygon: Polygon{sess: s, pts: canonical}}
	if err := s.reg.Register(t, key); err != nil {
		return nil, err
	}
	if err := s.materializeBoundary(&t.Polygon); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Session) polygonOf(pts []*Point) (*Polygon, error) {
	if len(pts) < 3 {
		return nil, constructionErrorf("polygon", "need at least 3 points, got %d", len(pts))
	}
	if !distinctPoints(pts) {
		return nil, constructionErrorf("polygon", "vertices %q are not distinct", joinPoints(pts))
	}
	canonical := rotateToMin(pts)
	key := joinPoints(canonical)
	if existing := s.reg.Get(KindPolygon, key); existing != nil {
		return existing.(*Polygon), nil
	}
	if err := s.checkOrientation("polygon", canonical, key); err != nil {
		return nil, err
	}
	p := &Polygon{sess: s, pts: canonical}
	if err := s.reg.Register(p, key); err != nil {
		return nil, err
	}
	if err := s.materializeBoundary(p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkOrientation fails when a polygon over the same vertex set is already
// registered under a different cyclic order.
func (s *Session) checkOrientation(op string, canonical []*Point, key string) error {
	for _, e := range s.reg.ElementsRecursive(KindPolygon) {
		var other *Polygon
		switch v := e.(type) {
		case *Polygon:
			other = v
		case *Triangle:
			other = &v.Polygon
		}
		if sameVertexSet(other.pts, canonical) && registry.Key(e) != key {
			return constructionErrorf(op,
				"vertices %q are already registered in a different cyclic order %q",
				key, joinPoints(other.pts))
		}
	}
	return nil
}

// materializeBoundary eagerly constructs the boundary segments and interior
// angles.
func (s *Session) materializeBoundary(p *Polygon) error {
	n := len(p.pts)
	for i, v := range p.pts {
		if _, err := s.segmentOf(v, p.pts[(i+1)%n]); err != nil {
			return err
		}
		if _, err := s.angleOf(p.pts[(i+n-1)%n], v, p.pts[(i+1)%n]); err != nil {
			return err
		}
	}
	return nil
}

// perpendicular reports whether the angle's rays are known perpendicular.
// Either orientation qualifies: the angle measures 90 or its explementary
// partner does, leaving 270 here.
func perpendicular(s *Session, a *Angle) bool {
	n, ok := s.NumericMeasure(a)
	if !ok {
		return false
	}
	return n.Cmp(big.NewRat(90, 1)) == 0 || n.Cmp(big.NewRat(270, 1)) == 0
}

// RightAngleVertex returns the vertex with a numerically right interior
// angle, if one is known.
func (t *Triangle) RightAngleVertex() (*Point, bool) {
	cur := t.resolved()
	for _, v := range cur.pts {
		a, err := cur.VertexAngleAt(v)
		if err != nil {
			continue
		}
		if n, ok := cur.sess.NumericMeasure(a); ok && n.Cmp(big.NewRat(90, 1)) == 0 {
			return v, true
		}
	}
	return nil, false
}

// OppositeSide returns the side not touching the given vertex.
func (t *Triangle) OppositeSide(v *Point) (*Segment, error) {
	cur := t.resolved()
	var rest []*Point
	for _, p := range cur.pts {
		if p != v {
			rest = append(rest, p)
		}
	}
	if len(rest) != 2 {
		return nil, constructionErrorf("triangle", "%q is not a vertex of %q",
			v.Label(), joinPoints(cur.pts))
	}
	return cur.sess.segmentOf(rest[0], rest[1])
}

// AltitudeTo returns the altitude to the given base: either a leg, when the
// interior angle at a base endpoint is right, or a known cevian meeting the
// base at a right angle.
func (t *Triangle) AltitudeTo(base *Segment) (*Segment, bool, error) {
	cur := t.resolved()
	base = base.resolved()
	e1, e2 := base.Points()
	apex := cur.apexOf(e1, e2)
	if apex == nil {
		return nil, false, nil
	}
	for _, endpoint := range []*Point{e1, e2} {
		a, err := cur.VertexAngleAt(endpoint)
		if err != nil {
			return nil, false, err
		}
		if n, ok := cur.sess.NumericMeasure(a); ok && n.Cmp(big.NewRat(90, 1)) == 0 {
			leg, err := cur.sess.segmentOf(endpoint, apex)
			if err != nil {
				return nil, false, err
			}
			return leg, true, nil
		}
	}
	feet, err := cur.cevianFeet(base)
	if err != nil {
		return nil, false, err
	}
	for _, foot := range feet {
		a, err := cur.sess.angleOf(apex, foot, e1)
		if err != nil {
			return nil, false, err
		}
		if perpendicular(cur.sess, a) {
			alt, err := cur.sess.segmentOf(apex, foot)
			if err != nil {
				return nil, false, err
			}
			return alt, true, nil
		}
	}
	return nil, false, nil
}

// AngleBisectorFrom returns the known cevian from the vertex that splits its
// interior angle into two equal parts, along with the foot on the opposite
// side.
func (t *Triangle) AngleBisectorFrom(v *Point) (*Segment, *Point, bool, error) {
	cur := t.resolved()
	base, err := cur.OppositeSide(v)
	if err != nil {
		return nil, nil, false, err
	}
	e1, e2 := base.resolved().Points()
	feet, err := cur.cevianFeet(base)
	if err != nil {
		return nil, nil, false, err
	}
	for _, foot := range feet {
		a1, err := cur.sess.angleOf(e1, v, foot)
		if err != nil {
			return nil, nil, false, err
		}
		a2, err := cur.sess.angleOf(foot, v, e2)
		if err != nil {
			return nil, nil, false, err
		}
		m1, m2 := a1.measureCell().val, a2.measureCell().val
		if m1 == nil || m2 == nil || !m1.Equal(m2) {
			continue
		}
		cev, err := cur.sess.segmentOf(v, foot)
		if err != nil {
			return nil, nil, false, err
		}
		return cev, foot, true, nil
	}
	return nil, nil, false, nil
}

// cevianFeet returns the interior points of the base that a known segment
// connects to the apex.
func (t *Triangle) cevianFeet(base *Segment) ([]*Point, error) {
	cur := t.resolved()
	e1, e2 := base.resolved().Points()
	apex := cur.apexOf(e1, e2)
	if apex == nil {
		return nil, nil
	}
	pts, err := base.ContainedPoints()
	if err != nil {
		return nil, err
	}
	var feet []*Point
	for _, p := range pts {
		if p == e1 || p == e2 {
			continue
		}
		if cur.sess.FindSegment(apex, p) != nil {
			feet = append(feet, p)
		}
	}
	return feet, nil
}

func (t *Triangle) apexOf(e1, e2 *Point) *Point {
	for _, p := range t.pts {
		if p != e1 && p != e2 {
			return p
		}
	}
	return nil
}
