package geometry

import (
	"fmt"
	"math/big"

	"geonerd/internal/registry"
	"geonerd/internal/symbol"
)

// Angle is a pair of rays sharing a vertex, equivalently three ordered
// points. The key is (far point of ray1, vertex, far point of ray2); the
// reversed ray pair is the angle's explementary partner, a distinct entity.
// Measures are in degrees, strictly between 0 and 360.
type Angle struct {
	registry.Node
	sess      *Session
	rays      [2]*Ray
	cell      measureCell
	reflex    *bool
	expPaired bool
}

// Kind implements registry.Entity.
func (*Angle) Kind() registry.Kind { return KindAngle }

func (a *Angle) resolved() *Angle { return registry.Resolve(a).(*Angle) }

// Rays returns the spanning rays.
func (a *Angle) Rays() (*Ray, *Ray) {
	cur := a.resolved()
	return cur.rays[0].resolved(), cur.rays[1].resolved()
}

// Vertex returns the shared vertex of the spanning rays.
func (a *Angle) Vertex() *Point { return a.resolved().rays[0].Vertex() }

// Reflex returns the reflex flag, or nil if not yet known.
func (a *Angle) Reflex() *bool { return a.resolved().reflex }

func (a *Angle) measureCell() *measureCell { return &a.resolved().cell }
func (a *Angle) measurePrefix() string     { return "mAngle" }

func angleKey(r1, r2 *Ray) string {
	return fmt.Sprintf("%s %s %s",
		r1.PointingTo().Label(), r1.Vertex().Label(), r2.PointingTo().Label())
}

// Angle finds or creates the angle spanned by three ordered points
// ("A B C": vertex B, from ray BA to ray BC).
func (s *Session) Angle(spec string) (*Angle, error) {
	pts, err := s.Points(spec)
	if err != nil {
		return nil, err
	}
	if len(pts) != 3 {
		return nil, constructionErrorf("angle", "need exactly 3 points, got %d", len(pts))
	}
	return s.AngleOf(pts[0], pts[1], pts[2])
}

// AngleOf finds or creates the angle at vertex spanned towards a and c.
func (s *Session) AngleOf(a, vertex, c *Point) (*Angle, error) {
	ang, err := s.angleOf(a, vertex, c)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return ang.resolved(), nil
}

func (s *Session) angleOf(a, vertex, c *Point) (*Angle, error) {
	r1, err := s.rayOf(vertex, a)
	if err != nil {
		return nil, err
	}
	r2, err := s.rayOf(vertex, c)
	if err != nil {
		return nil, err
	}
	return s.angleBetween(r1, r2)
}

// AngleBetween finds or creates the angle spanned by two rays sharing a
// vertex.
func (s *Session) AngleBetween(r1, r2 *Ray) (*Angle, error) {
	a, err := s.angleBetween(r1, r2)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return a.resolved(), nil
}

func (s *Session) angleBetween(r1, r2 *Ray) (*Angle, error) {
	r1, r2 = r1.resolved(), r2.resolved()
	if r1.Vertex() != r2.Vertex() {
		return nil, constructionErrorf("angle", "rays %q and %q do not share a vertex",
			registry.Key(r1), registry.Key(r2))
	}
	if r1 == r2 {
		return nil, constructionErrorf("angle", "both rays are %q", registry.Key(r1))
	}
	key := angleKey(r1, r2)
	if existing := s.reg.Get(KindAngle, key); existing != nil {
		return existing.(*Angle), nil
	}
	a := &Angle{sess: s, rays: [2]*Ray{r1, r2}}
	if err := s.reg.Register(a, key); err != nil {
		return nil, err
	}
	rekey := func(_, _ registry.Entity) {
		s.enqueue(func() error { return s.rekeyAngle(a) })
	}
	s.reg.Subscribe(r1, rekey)
	s.reg.Subscribe(r2, rekey)
	return a, nil
}

// rekeyAngle recomputes the angle's key after a spanning ray changed,
// merging it into an equal registered angle if one exists.
func (s *Session) rekeyAngle(a *Angle) error {
	a = a.resolved()
	if !registry.Live(a) {
		return nil
	}
	r1, r2 := a.rays[0].resolved(), a.rays[1].resolved()
	a.rays = [2]*Ray{r1, r2}
	newKey := angleKey(r1, r2)
	if existing := s.reg.Get(KindAngle, newKey); existing != nil && existing != registry.Entity(a) {
		keep := existing.(*Angle)
		if err := s.reconcileAngleState(keep, a); err != nil {
			return err
		}
		return s.reg.Replace(a, keep)
	}
	_, err := s.reg.UpdateKey(a, newKey)
	return err
}

// reconcileAngleState copies measure, reflex flag and pairing state from a
// merged-away angle onto its survivor.
func (s *Session) reconcileAngleState(keep, drop *Angle) error {
	if drop.reflex != nil {
		if keep.reflex == nil {
			keep.reflex = drop.reflex
		} else if *keep.reflex != *drop.reflex {
			return constructionErrorf("angle merge",
				"angles %q and %q disagree on reflexivity", registry.Key(keep), registry.Key(drop))
		}
	}
	keep.expPaired = keep.expPaired || drop.expPaired
	return s.mergeMeasures(keep, drop)
}

// Explementary returns the angle spanned by the reversed ray pair. The
// explementary of an angle's explementary is the angle itself, and the two
// measures sum to 360 once either is numeric.
func (a *Angle) Explementary() (*Angle, error) {
	cur := a.resolved()
	exp, err := cur.sess.explementary(cur)
	if err != nil {
		return nil, err
	}
	if err := cur.sess.finish(); err != nil {
		return nil, err
	}
	return exp.resolved(), nil
}

func (s *Session) explementary(a *Angle) (*Angle, error) {
	a = a.resolved()
	return s.angleBetween(a.rays[1], a.rays[0])
}

// SetReflex records whether the angle is reflex. The explementary partner's
// flag is set to the negation, and the non-reflex cross angles at the rays'
// intersection are re-derived. The flag is immutable once set: a
// contradicting write fails.
func (s *Session) SetReflex(a *Angle, v bool) error {
	if err := s.setReflex(a, v); err != nil {
		return err
	}
	return s.finish()
}

func (s *Session) setReflex(a *Angle, v bool) error {
	a = a.resolved()
	if a.reflex != nil {
		if *a.reflex != v {
			return constructionErrorf("angle", "reflexivity of %q cannot be changed after it is set",
				registry.Key(a))
		}
		return nil
	}
	a.reflex = &v
	exp, err := s.explementary(a)
	if err != nil {
		return err
	}
	if err := s.setReflex(exp, !v); err != nil {
		return err
	}
	l1, err := a.rays[0].Line()
	if err != nil {
		return err
	}
	l2, err := a.rays[1].Line()
	if err != nil {
		return err
	}
	if l1.resolved() != l2.resolved() && l1.IntersectionPoint(l2) != nil {
		s.enqueue(func() error {
			_, err := s.nonreflexAnglesAtIntersection(l1, l2)
			return err
		})
	}
	return nil
}

// NonreflexAnglesFormedByIntersection derives the non-reflex angles at the
// intersection of two lines, once at least one of the four cross angles has
// a known reflex flag. It returns the non-reflex cross angles, or none when
// no reflexivity is known yet.
func (l *Line) NonreflexAnglesFormedByIntersection(other *Line) ([]*Angle, error) {
	s := l.resolved().sess
	angles, err := s.nonreflexAnglesAtIntersection(l, other)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return angles, nil
}

func (s *Session) nonreflexAnglesAtIntersection(l1, l2 *Line) ([]*Angle, error) {
	l1, l2 = l1.resolved(), l2.resolved()
	v := l1.IntersectionPoint(l2)
	if v == nil {
		return nil, constructionErrorf("intersection angles",
			"lines %q and %q have no single intersection point",
			registry.Key(l1), registry.Key(l2))
	}
	p1, p2 := l1.Points(), l2.Points()
	corners := []*Point{p1[0], p2[0], p1[len(p1)-1], p2[len(p2)-1]}
	rays := make([]*Ray, len(corners))
	for i, p := range corners {
		if p == v {
			continue
		}
		r, err := s.rayOf(v, p)
		if err != nil {
			return nil, err
		}
		rays[i] = r
	}
	var angles []*Angle
	for i := range rays {
		r1, r2 := rays[i], rays[(i+1)%len(rays)]
		if r1 == nil || r2 == nil {
			continue
		}
		a, err := s.angleBetween(r1, r2)
		if err != nil {
			return nil, err
		}
		angles = append(angles, a)
	}
	known := false
	anyReflex := false
	for _, a := range angles {
		if r := a.Reflex(); r != nil {
			known = true
			anyReflex = anyReflex || *r
		}
	}
	if !known {
		return nil, nil
	}
	if anyReflex {
		flipped := make([]*Angle, len(angles))
		for i, a := range angles {
			exp, err := s.explementary(a)
			if err != nil {
				return nil, err
			}
			flipped[i] = exp
		}
		angles = flipped
	}
	for _, a := range angles {
		if err := s.setReflex(a, false); err != nil {
			return nil, err
		}
	}
	return angles, nil
}

// onAngleNumeric validates a freshly numeric angle measure, derives the
// reflex flag from it, and asserts the explementary pairing relation.
func (s *Session) onAngleNumeric(a *Angle) error {
	a = a.resolved()
	if !registry.Live(a) {
		return nil
	}
	val, ok := a.cell.numeric()
	if !ok {
		return nil
	}
	if val.Sign() <= 0 {
		return inconsistencyf("angle %q must be > 0 degrees, got %s", registry.Key(a), val.RatString())
	}
	if val.Cmp(big.NewRat(360, 1)) >= 0 {
		return inconsistencyf("angle %q must be < 360 degrees, got %s", registry.Key(a), val.RatString())
	}
	switch val.Cmp(big.NewRat(180, 1)) {
	case 1:
		if err := s.setReflex(a, true); err != nil {
			return err
		}
	case -1:
		if err := s.setReflex(a, false); err != nil {
			return err
		}
	default:
		if a.reflex == nil {
			if err := s.setReflex(a, false); err != nil {
				return err
			}
		}
	}
	if !a.expPaired {
		exp, err := s.explementary(a)
		if err != nil {
			return err
		}
		residual := s.Measure(a).Add(s.Measure(exp)).Sub(symbol.Num(360))
		if _, err := s.assert(residual); err != nil {
			return err
		}
		a.expPaired = true
		exp.resolved().expPaired = true
	}
	return nil
}
