package geometry

import (
	"sort"
	"strings"
	"unicode"

	"geonerd/internal/registry"
)

// Point is a labeled point on the Euclidean plane. Points never merge; the
// label is the canonical key.
type Point struct {
	registry.Node
}

// Kind implements registry.Entity.
func (*Point) Kind() registry.Kind { return KindPoint }

// Label returns the point's label.
func (p *Point) Label() string { return registry.Key(p) }

// Less orders points lexically by label.
func (p *Point) Less(o *Point) bool { return p.Label() < o.Label() }

// Point finds or creates the point with the given label. Labels must be
// non-empty and contain no whitespace.
func (s *Session) Point(label string) (*Point, error) {
	if label == "" {
		return nil, constructionErrorf("point", "empty label")
	}
	if strings.IndexFunc(label, unicode.IsSpace) >= 0 {
		return nil, constructionErrorf("point", "label %q contains whitespace", label)
	}
	if existing := s.reg.Get(KindPoint, label); existing != nil {
		return existing.(*Point), nil
	}
	p := &Point{}
	if err := s.reg.Register(p, label); err != nil {
		return nil, err
	}
	return p, nil
}

// Points normalizes a space-delimited label spec ("A B C") into points.
// Labels must be distinct.
func (s *Session) Points(spec string) ([]*Point, error) {
	labels := strings.Fields(spec)
	if len(labels) == 0 {
		return nil, constructionErrorf("points", "empty point spec")
	}
	seen := make(map[string]bool, len(labels))
	pts := make([]*Point, 0, len(labels))
	for _, label := range labels {
		if seen[label] {
			return nil, constructionErrorf("points", "duplicate point %q in spec %q", label, spec)
		}
		seen[label] = true
		p, err := s.Point(label)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

func distinctPoints(pts []*Point) bool {
	seen := make(map[string]bool, len(pts))
	for _, p := range pts {
		if seen[p.Label()] {
			return false
		}
		seen[p.Label()] = true
	}
	return true
}

func sortedPair(a, b *Point) (*Point, *Point) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}

func pointKeys(pts []*Point) []string {
	keys := make([]string, len(pts))
	for i, p := range pts {
		keys[i] = p.Label()
	}
	return keys
}

func joinPoints(pts []*Point) string {
	return strings.Join(pointKeys(pts), " ")
}

func sortPoints(pts []*Point) []*Point {
	out := append([]*Point(nil), pts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func containsPoint(pts []*Point, p *Point) bool {
	for _, q := range pts {
		if q == p {
			return true
		}
	}
	return false
}

func indexOfPoint(pts []*Point, p *Point) int {
	for i, q := range pts {
		if q == p {
			return i
		}
	}
	return -1
}
