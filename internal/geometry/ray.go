package geometry

import (
	"fmt"

	"geonerd/internal/registry"
)

// Ray is a vertex point plus a direction, canonicalized to the farthest
// known point on its line in that direction. When the line gains points the
// ray re-canonicalizes, which can merge it with another ray.
type Ray struct {
	registry.Node
	sess       *Session
	vertex     *Point
	pointingTo *Point
}

// Kind implements registry.Entity.
func (*Ray) Kind() registry.Kind { return KindRay }

func (r *Ray) resolved() *Ray { return registry.Resolve(r).(*Ray) }

// Vertex returns the ray's vertex.
func (r *Ray) Vertex() *Point { return r.resolved().vertex }

// PointingTo returns the farthest known point in the ray's direction.
func (r *Ray) PointingTo() *Point { return r.resolved().pointingTo }

// Line returns the line the ray lies on.
func (r *Ray) Line() (*Line, error) {
	cur := r.resolved()
	return cur.sess.lineOf([]*Point{cur.vertex, cur.pointingTo})
}

func rayKey(vertex, pointingTo *Point) string {
	return fmt.Sprintf("%s %s", vertex.Label(), pointingTo.Label())
}

// Ray finds or creates the ray from the first point of the spec through the
// second.
func (s *Session) Ray(spec string) (*Ray, error) {
	pts, err := s.Points(spec)
	if err != nil {
		return nil, err
	}
	if len(pts) != 2 {
		return nil, constructionErrorf("ray", "need exactly 2 points, got %d", len(pts))
	}
	return s.RayOf(pts[0], pts[1])
}

// RayOf finds or creates the ray with the given vertex pointing through to.
func (s *Session) RayOf(vertex, to *Point) (*Ray, error) {
	r, err := s.rayOf(vertex, to)
	if err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return r.resolved(), nil
}

func (s *Session) rayOf(vertex, to *Point) (*Ray, error) {
	if vertex == to {
		return nil, constructionErrorf("ray", "vertex and direction are the same point %q", vertex.Label())
	}
	line, err := s.lineOf([]*Point{vertex, to})
	if err != nil {
		return nil, err
	}
	far, err := farthestInDirection(line, vertex, to)
	if err != nil {
		return nil, err
	}
	key := rayKey(vertex, far)
	if existing := s.reg.Get(KindRay, key); existing != nil {
		return existing.(*Ray), nil
	}
	r := &Ray{sess: s, vertex: vertex, pointingTo: far}
	if err := s.reg.Register(r, key); err != nil {
		return nil, err
	}
	// Re-canonicalize whenever the underlying line changes. The callback
	// only enqueues; the session worklist does the actual re-keying.
	s.reg.Subscribe(line, func(_, _ registry.Entity) {
		s.enqueue(func() error { return s.recanonicalizeRay(r) })
	})
	return r, nil
}

// farthestInDirection returns the last known point of the line in the
// direction from vertex towards to.
func farthestInDirection(l *Line, vertex, to *Point) (*Point, error) {
	pts := l.resolved().pts
	vi, ti := indexOfPoint(pts, vertex), indexOfPoint(pts, to)
	if vi < 0 || ti < 0 || vi == ti {
		return nil, constructionErrorf("ray", "points %q and %q do not orient line %q",
			vertex.Label(), to.Label(), joinPoints(pts))
	}
	if vi < ti {
		return pts[len(pts)-1], nil
	}
	return pts[0], nil
}

// recanonicalizeRay recomputes the ray's direction point after its line
// changed and re-keys it, possibly merging it with an existing ray.
func (s *Session) recanonicalizeRay(r *Ray) error {
	r = r.resolved()
	if !registry.Live(r) {
		return nil
	}
	line, err := s.lineOf([]*Point{r.vertex, r.pointingTo})
	if err != nil {
		return err
	}
	far, err := farthestInDirection(line, r.vertex, r.pointingTo)
	if err != nil {
		return err
	}
	if far == r.pointingTo {
		return nil
	}
	r.pointingTo = far
	_, err = s.reg.UpdateKey(r, rayKey(r.vertex, far))
	return err
}

// PointsInDirection returns the line's points ordered in the direction of
// the ray, starting from the line's first point on that side.
func (r *Ray) PointsInDirection() ([]*Point, error) {
	cur := r.resolved()
	line, err := cur.Line()
	if err != nil {
		return nil, err
	}
	pts := line.Points()
	vi := indexOfPoint(pts, cur.vertex)
	ti := indexOfPoint(pts, cur.pointingTo)
	if vi < ti {
		return pts, nil
	}
	return reversePoints(pts), nil
}
