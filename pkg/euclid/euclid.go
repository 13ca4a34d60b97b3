// Package euclid is the public entry point of the deductive geometry engine.
// It wraps construction, measurement and goal-directed derivation behind a
// string-spec API: entities are addressed by space-delimited point labels
// ("A B C"), so callers never hold entity handles that merging could stale.
package euclid

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"geonerd/internal/config"
	"geonerd/internal/geometry"
	"geonerd/internal/logging"
	"geonerd/internal/registry"
	"geonerd/internal/theorems"
)

// scriptTimeout bounds a single theorem script invocation.
const scriptTimeout = 5 * time.Second

// Session is one deductive derivation: a set of constructed entities, their
// measures and the relations between them.
type Session struct {
	cfg    *config.Config
	log    *zap.Logger
	geo    *geometry.Session
	loader *theorems.Loader
}

// NewSession creates a session. A nil config uses defaults.
func NewSession(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Session{
		cfg:    cfg,
		log:    log,
		geo:    geometry.NewSession(cfg, log),
		loader: theorems.NewLoader(log),
	}, nil
}

// Close flushes the session's logger.
func (s *Session) Close() error {
	// Sync on a terminal-backed logger can legitimately fail; the session
	// state itself needs no teardown.
	_ = s.log.Sync()
	return nil
}

// Line constructs (or finds) the line through the points of the spec, merging
// collinear lines as needed.
func (s *Session) Line(spec string) error {
	_, err := s.geo.Line(spec)
	return err
}

// Segment constructs (or finds) the segment between the spec's two points.
func (s *Session) Segment(spec string) error {
	_, err := s.geo.Segment(spec)
	return err
}

// Ray constructs (or finds) the ray from the spec's first point through its
// second.
func (s *Session) Ray(spec string) error {
	_, err := s.geo.Ray(spec)
	return err
}

// Angle constructs (or finds) the angle spanned by the spec's three points.
func (s *Session) Angle(spec string) error {
	_, err := s.geo.Angle(spec)
	return err
}

// Triangle constructs (or finds) the triangle with the spec's vertex cycle.
func (s *Session) Triangle(spec string) error {
	_, err := s.geo.Triangle(spec)
	return err
}

// Polygon constructs (or finds) the polygon with the spec's vertex cycle.
func (s *Session) Polygon(spec string) error {
	_, err := s.geo.Polygon(spec)
	return err
}

// SetLength assigns the segment's length.
func (s *Session) SetLength(spec string, v *big.Rat) error {
	seg, err := s.geo.Segment(spec)
	if err != nil {
		return err
	}
	return s.geo.SetMeasureRat(seg, v)
}

// SetLengthInt assigns an integer segment length.
func (s *Session) SetLengthInt(spec string, v int64) error {
	return s.SetLength(spec, big.NewRat(v, 1))
}

// Length returns the segment's length, if it has resolved to a number.
func (s *Session) Length(spec string) (*big.Rat, bool, error) {
	seg, err := s.geo.Segment(spec)
	if err != nil {
		return nil, false, err
	}
	v, ok := s.geo.NumericMeasure(seg)
	return v, ok, nil
}

// SetAngle assigns the angle's measure in degrees.
func (s *Session) SetAngle(spec string, v *big.Rat) error {
	a, err := s.geo.Angle(spec)
	if err != nil {
		return err
	}
	return s.geo.SetMeasureRat(a, v)
}

// SetAngleInt assigns an integer angle measure in degrees.
func (s *Session) SetAngleInt(spec string, v int64) error {
	return s.SetAngle(spec, big.NewRat(v, 1))
}

// AngleMeasure returns the angle's measure in degrees, if it has resolved to
// a number.
func (s *Session) AngleMeasure(spec string) (*big.Rat, bool, error) {
	a, err := s.geo.Angle(spec)
	if err != nil {
		return nil, false, err
	}
	v, ok := s.geo.NumericMeasure(a)
	return v, ok, nil
}

// SetReflex records whether the angle is reflex.
func (s *Session) SetReflex(spec string, reflex bool) error {
	a, err := s.geo.Angle(spec)
	if err != nil {
		return err
	}
	return s.geo.SetReflex(a, reflex)
}

// SolveLength derives the segment's length.
func (s *Session) SolveLength(spec string) (*big.Rat, error) {
	seg, err := s.geo.Segment(spec)
	if err != nil {
		return nil, err
	}
	return s.geo.SolveFor(seg)
}

// SolveAngle derives the angle's measure in degrees.
func (s *Session) SolveAngle(spec string) (*big.Rat, error) {
	a, err := s.geo.Angle(spec)
	if err != nil {
		return nil, err
	}
	return s.geo.SolveFor(a)
}

// SolveArea derives the triangle's area.
func (s *Session) SolveArea(spec string) (*big.Rat, error) {
	tri, err := s.geo.Triangle(spec)
	if err != nil {
		return nil, err
	}
	return s.geo.SolveFor(tri)
}

// RegisterScript loads a theorem script and registers it as a derivation
// rule: during solving it runs against every triangle the target entity
// takes part in. Scripts must be enabled in the config.
func (s *Session) RegisterScript(name, code string) error {
	if !s.cfg.EnableScripts {
		return fmt.Errorf("theorem scripts are disabled; set enable_scripts in the config")
	}
	script, err := s.loader.Load(name, code)
	if err != nil {
		return err
	}
	rule := geometry.Rule{Name: "script:" + name, Apply: s.scriptRule(script)}
	s.geo.RegisterRule(geometry.KindTriangle, rule)
	s.geo.RegisterRule(geometry.KindSegment, rule)
	s.log.Info("theorem script registered", zap.String("script", name))
	return nil
}

// scriptRule adapts a loaded script to the derivation rule contract.
func (s *Session) scriptRule(script *theorems.Script) func(*geometry.Session, registry.Entity) error {
	return func(g *geometry.Session, e registry.Entity) error {
		tris, err := s.scriptTriangles(g, e)
		if err != nil {
			return err
		}
		for _, tri := range tris {
			in, err := s.triangleInput(g, tri)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
			exprs, err := script.Relations(ctx, in)
			cancel()
			if err != nil {
				return err
			}
			for _, expr := range exprs {
				if err := g.AssertRelation(expr); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// scriptTriangles selects the triangles a script run applies to: the target
// itself, or every triangle the target segment is a side of.
func (s *Session) scriptTriangles(g *geometry.Session, e registry.Entity) ([]*geometry.Triangle, error) {
	switch target := registry.Resolve(e).(type) {
	case *geometry.Triangle:
		return []*geometry.Triangle{target}, nil
	case *geometry.Segment:
		var out []*geometry.Triangle
		for _, te := range g.Registry().Elements(geometry.KindTriangle) {
			tri := te.(*geometry.Triangle)
			sides, err := tri.Sides()
			if err != nil {
				return nil, err
			}
			for _, side := range sides {
				if registry.Resolve(side) == registry.Entity(target) {
					out = append(out, tri)
					break
				}
			}
		}
		return out, nil
	}
	return nil, nil
}

// triangleInput serializes a triangle for a script: side, angle and area
// measures as expression strings.
func (s *Session) triangleInput(g *geometry.Session, tri *geometry.Triangle) (theorems.Input, error) {
	in := theorems.Input{
		Kind:   string(geometry.KindTriangle),
		Key:    registry.Key(tri),
		Sides:  make(map[string]string),
		Angles: make(map[string]string),
		Area:   g.Measure(tri).String(),
	}
	sides, err := tri.Sides()
	if err != nil {
		return theorems.Input{}, err
	}
	for _, side := range sides {
		in.Sides[registry.Key(side)] = g.Measure(side).String()
	}
	angles, err := tri.VertexAngles()
	if err != nil {
		return theorems.Input{}, err
	}
	for _, a := range angles {
		in.Angles[registry.Key(a)] = g.Measure(a).String()
	}
	return in, nil
}
