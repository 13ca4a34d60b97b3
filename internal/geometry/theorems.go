package geometry

import (
	"math/big"

	"geonerd/internal/registry"
	"geonerd/internal/symbol"
)

var (
	half      = symbol.Rat(big.NewRat(1, 2))
	oneEighty = symbol.Num(180)
)

func nonReflex(a *Angle) bool {
	r := a.Reflex()
	return r != nil && !*r
}

// ruleSubsegmentSum relates every segment on the target segment's line to the
// sum of its atomic subsegments.
func ruleSubsegmentSum(s *Session, e registry.Entity) error {
	seg, ok := registry.Resolve(e).(*Segment)
	if !ok {
		return nil
	}
	l, err := seg.line()
	if err != nil {
		return err
	}
	segs, err := l.SegmentsWithSubsegments()
	if err != nil {
		return err
	}
	for _, sub := range segs {
		atoms, err := sub.AtomicSubsegments()
		if err != nil {
			return err
		}
		sum := symbol.Zero()
		for _, a := range atoms {
			sum = sum.Add(s.Measure(a))
		}
		if _, err := s.assert(s.Measure(sub).Sub(sum)); err != nil {
			return err
		}
	}
	return nil
}

// ruleStraightAngle asserts that opposite rays span 180 degrees, and that
// consecutive non-reflex angles at every intersection the target angle's
// lines take part in are supplementary.
func ruleStraightAngle(s *Session, e registry.Entity) error {
	a, ok := registry.Resolve(e).(*Angle)
	if !ok {
		return nil
	}
	l1, err := a.rays[0].Line()
	if err != nil {
		return err
	}
	l2, err := a.rays[1].Line()
	if err != nil {
		return err
	}
	l1, l2 = l1.resolved(), l2.resolved()
	if l1 == l2 {
		_, err := s.assert(s.Measure(a).Sub(oneEighty))
		return err
	}
	for _, l := range []*Line{l1, l2} {
		for _, o := range s.reg.Elements(KindLine) {
			other := o.(*Line)
			if other == l || l.IntersectionPoint(other) == nil {
				continue
			}
			angles, err := s.nonreflexAnglesAtIntersection(l, other)
			if err != nil {
				return err
			}
			if err := assertSupplementaryCycle(s, angles); err != nil {
				return err
			}
		}
	}
	return nil
}

func assertSupplementaryCycle(s *Session, angles []*Angle) error {
	switch len(angles) {
	case 0, 1:
		return nil
	case 2:
		_, err := s.assert(s.Measure(angles[0]).Add(s.Measure(angles[1])).Sub(oneEighty))
		return err
	}
	for i := range angles {
		next := angles[(i+1)%len(angles)]
		if _, err := s.assert(s.Measure(angles[i]).Add(s.Measure(next)).Sub(oneEighty)); err != nil {
			return err
		}
	}
	return nil
}

// angleAdditionPostulate relates every pair of adjacent non-reflex angles to
// the angle they compose.
func (s *Session) angleAdditionPostulate() error {
	elems := s.reg.Elements(KindAngle)
	for _, e1 := range elems {
		a1 := e1.(*Angle)
		if !registry.Live(a1) {
			continue
		}
		for _, e2 := range elems {
			a2 := e2.(*Angle)
			if a1 == a2 || !registry.Live(a2) {
				continue
			}
			if a1.rays[1].resolved() != a2.rays[0].resolved() {
				continue
			}
			// Skip the explementary pair: it composes to a full turn.
			if a1.rays[0].resolved() == a2.rays[1].resolved() {
				continue
			}
			if !nonReflex(a1) || !nonReflex(a2) {
				continue
			}
			combined, err := s.angleBetween(a1.rays[0], a2.rays[1])
			if err != nil {
				return err
			}
			residual := s.Measure(a1).Add(s.Measure(a2)).Sub(s.Measure(combined))
			if _, err := s.assert(residual); err != nil {
				return err
			}
		}
	}
	return nil
}

// ruleTriangleAngleSum runs the angle addition postulate and asserts that
// each triangle's interior angles sum to 180 degrees.
func ruleTriangleAngleSum(s *Session, _ registry.Entity) error {
	if err := s.angleAdditionPostulate(); err != nil {
		return err
	}
	for _, te := range s.reg.Elements(KindTriangle) {
		t := te.(*Triangle)
		angles, err := t.VertexAngles()
		if err != nil {
			return err
		}
		sum := symbol.Zero()
		for _, a := range angles {
			sum = sum.Add(s.Measure(a))
		}
		if _, err := s.assert(oneEighty.Sub(sum)); err != nil {
			return err
		}
	}
	return nil
}

// heron asserts Heron's formula for the triangle, squared to stay
// polynomial: area^2 = s(s-a)(s-b)(s-c) with s the semiperimeter. Applied
// only when at most one side is undetermined, so the relation stays solvable.
func heron(s *Session, t *Triangle) error {
	sides, err := t.Sides()
	if err != nil {
		return err
	}
	free := 0
	m := make([]*symbol.Expr, len(sides))
	for i, side := range sides {
		m[i] = s.Measure(side)
		if _, ok := m[i].Number(); !ok {
			free++
		}
	}
	if free > 1 {
		return nil
	}
	a, b, c := m[0], m[1], m[2]
	sp := a.Add(b).Add(c).Mul(half)
	area := s.Measure(t)
	expr := area.Pow(2).Sub(sp.Mul(sp.Sub(a)).Mul(sp.Sub(b)).Mul(sp.Sub(c)))
	_, err = s.assert(expr)
	return err
}

// altitudeArea asserts the area of the triangle from a base and its
// altitude. In a right triangle the legs serve as base and altitude.
func altitudeArea(s *Session, t *Triangle) error {
	area := s.Measure(t)
	if v, ok := t.RightAngleVertex(); ok {
		legs, err := t.legsAt(v)
		if err != nil {
			return err
		}
		residual := area.Sub(s.Measure(legs[0]).Mul(s.Measure(legs[1])).Mul(half))
		_, err = s.assert(residual)
		return err
	}
	sides, err := t.Sides()
	if err != nil {
		return err
	}
	for _, base := range sides {
		alt, ok, err := t.AltitudeTo(base)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		residual := area.Sub(s.Measure(base).Mul(s.Measure(alt)).Mul(half))
		if _, err := s.assert(residual); err != nil {
			return err
		}
	}
	return nil
}

// angleBisector asserts the angle bisector ratio, cross-multiplied to stay
// polynomial: for a bisector from V with foot F on side XY,
// VX * FY = VY * FX.
func angleBisector(s *Session, t *Triangle) error {
	for _, v := range t.Vertices() {
		_, foot, ok, err := t.AngleBisectorFrom(v)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var x, y *Point
		for _, p := range t.Vertices() {
			if p == v {
				continue
			}
			if x == nil {
				x = p
			} else {
				y = p
			}
		}
		vx, err := s.segmentOf(v, x)
		if err != nil {
			return err
		}
		vy, err := s.segmentOf(v, y)
		if err != nil {
			return err
		}
		fx, err := s.segmentOf(foot, x)
		if err != nil {
			return err
		}
		fy, err := s.segmentOf(foot, y)
		if err != nil {
			return err
		}
		residual := s.Measure(vx).Mul(s.Measure(fy)).Sub(s.Measure(vy).Mul(s.Measure(fx)))
		if _, err := s.assert(residual); err != nil {
			return err
		}
	}
	return nil
}

// pythagorean asserts leg^2 + leg^2 = hypotenuse^2 for a triangle with a
// known right angle.
func pythagorean(s *Session, t *Triangle) error {
	v, ok := t.RightAngleVertex()
	if !ok {
		return nil
	}
	hyp, err := t.OppositeSide(v)
	if err != nil {
		return err
	}
	legs, err := t.legsAt(v)
	if err != nil {
		return err
	}
	residual := s.Measure(legs[0]).Pow(2).
		Add(s.Measure(legs[1]).Pow(2)).
		Sub(s.Measure(hyp).Pow(2))
	_, err = s.assert(residual)
	return err
}

// legsAt returns the two sides meeting at the given vertex.
func (t *Triangle) legsAt(v *Point) ([]*Segment, error) {
	sides, err := t.Sides()
	if err != nil {
		return nil, err
	}
	var legs []*Segment
	for _, side := range sides {
		p, q := side.Points()
		if p == v || q == v {
			legs = append(legs, side)
		}
	}
	if len(legs) != 2 {
		return nil, constructionErrorf("triangle", "%q is not a vertex of %q",
			v.Label(), joinPoints(t.resolved().pts))
	}
	return legs, nil
}

// boundaryPoints returns the triangle's vertices plus every known point on
// its sides.
func (t *Triangle) boundaryPoints() ([]*Point, error) {
	cur := t.resolved()
	sides, err := cur.Sides()
	if err != nil {
		return nil, err
	}
	var out []*Point
	seen := make(map[*Point]bool)
	add := func(p *Point) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, v := range cur.pts {
		add(v)
	}
	for _, side := range sides {
		pts, err := side.ContainedPoints()
		if err != nil {
			return nil, err
		}
		for _, p := range pts {
			add(p)
		}
	}
	return out, nil
}

// trianglesInvolving returns the triangles whose boundary contains both of
// the segment's endpoints.
func (s *Session) trianglesInvolving(seg *Segment) ([]*Triangle, error) {
	seg = seg.resolved()
	p, q := seg.Points()
	var out []*Triangle
	for _, te := range s.reg.Elements(KindTriangle) {
		t := te.(*Triangle)
		boundary, err := t.boundaryPoints()
		if err != nil {
			return nil, err
		}
		if containsPoint(boundary, p) && containsPoint(boundary, q) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ruleAreaEquivalence equates the two area expressions, Heron's formula and
// base times altitude, for every triangle the target segment takes part in.
func ruleAreaEquivalence(s *Session, e registry.Entity) error {
	seg, ok := registry.Resolve(e).(*Segment)
	if !ok {
		return nil
	}
	tris, err := s.trianglesInvolving(seg)
	if err != nil {
		return err
	}
	for _, t := range tris {
		if err := heron(s, t); err != nil {
			return err
		}
		if err := altitudeArea(s, t); err != nil {
			return err
		}
	}
	return nil
}

// ruleAngleBisector applies the angle bisector theorem to every triangle the
// target segment takes part in.
func ruleAngleBisector(s *Session, e registry.Entity) error {
	seg, ok := registry.Resolve(e).(*Segment)
	if !ok {
		return nil
	}
	tris, err := s.trianglesInvolving(seg)
	if err != nil {
		return err
	}
	for _, t := range tris {
		if err := angleBisector(s, t); err != nil {
			return err
		}
	}
	return nil
}

// rulePythagorean applies the Pythagorean theorem to every right triangle
// the target segment is a side of.
func rulePythagorean(s *Session, e registry.Entity) error {
	seg, ok := registry.Resolve(e).(*Segment)
	if !ok {
		return nil
	}
	tris, err := s.trianglesInvolving(seg)
	if err != nil {
		return err
	}
	for _, t := range tris {
		if err := pythagorean(s, t); err != nil {
			return err
		}
	}
	return nil
}

// ruleHeron applies Heron's formula to a target triangle.
func ruleHeron(s *Session, e registry.Entity) error {
	t, ok := registry.Resolve(e).(*Triangle)
	if !ok {
		return nil
	}
	return heron(s, t)
}

// ruleAltitudeArea applies the base-times-altitude area relation to a target
// triangle.
func ruleAltitudeArea(s *Session, e registry.Entity) error {
	t, ok := registry.Resolve(e).(*Triangle)
	if !ok {
		return nil
	}
	return altitudeArea(s, t)
}
