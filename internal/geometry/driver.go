package geometry

import (
	"errors"
	"math/big"

	"go.uber.org/zap"

	"geonerd/internal/derive"
	"geonerd/internal/registry"
)

// ErrUnresolved reports that the derivation exhausted its rules without
// determining the requested measure.
var ErrUnresolved = errors.New("geometry: measure could not be determined")

// Rule is a derivation step: given a target entity it asserts whatever
// relations its theorem yields. Rules must be idempotent; re-asserted
// relations collapse into the existing ones.
type Rule struct {
	Name  string
	Apply func(*Session, registry.Entity) error
}

// RegisterRule appends a rule to the ordered rule list for a kind.
func (s *Session) RegisterRule(kind registry.Kind, r Rule) {
	s.rules[kind] = append(s.rules[kind], r)
}

func (s *Session) registerDefaultRules() {
	s.RegisterRule(KindSegment, Rule{Name: "subsegment-sum", Apply: ruleSubsegmentSum})
	s.RegisterRule(KindSegment, Rule{Name: "area-equivalence", Apply: ruleAreaEquivalence})
	s.RegisterRule(KindSegment, Rule{Name: "angle-bisector", Apply: ruleAngleBisector})
	s.RegisterRule(KindSegment, Rule{Name: "pythagorean", Apply: rulePythagorean})
	s.RegisterRule(KindAngle, Rule{Name: "straight-angle", Apply: ruleStraightAngle})
	s.RegisterRule(KindAngle, Rule{Name: "triangle-angle-sum", Apply: ruleTriangleAngleSum})
	s.RegisterRule(KindTriangle, Rule{Name: "heron", Apply: ruleHeron})
	s.RegisterRule(KindTriangle, Rule{Name: "altitude-area", Apply: ruleAltitudeArea})
}

// addTarget records a derivation target. Returns whether it was new.
func (s *Session) addTarget(m Measurable) bool {
	if s.targetSet[m] {
		return false
	}
	s.targetSet[m] = true
	s.targets = append(s.targets, m)
	return true
}

// SolveFor determines the measure of the target entity: it derives implied
// triangles, then runs the registered rules for the target's kind, pulling
// related entities into the target set, until the measure resolves to a
// number or no rule makes further progress.
func (s *Session) SolveFor(m Measurable) (*big.Rat, error) {
	m = resolveMeasurable(m)
	s.Measure(m)
	s.addTarget(m)
	s.log.Debug("solving for", zap.String("target", registry.Key(m)))

	if err := s.deriveImpliedTriangles(); err != nil {
		return nil, err
	}

	for pass := 0; pass < s.cfg.Solver.MaxCascadePasses; pass++ {
		if n, ok := s.NumericMeasure(m); ok {
			return n, nil
		}
		before := s.driverState()
		targets := append([]Measurable(nil), s.targets...)
		for _, tgt := range targets {
			tgt = resolveMeasurable(tgt)
			if !registry.Live(tgt) {
				continue
			}
			if _, ok := s.NumericMeasure(tgt); ok {
				continue
			}
			for _, r := range s.rules[tgt.Kind()] {
				if err := r.Apply(s, tgt); err != nil {
					return nil, err
				}
				if err := s.finish(); err != nil {
					return nil, err
				}
				if _, ok := s.NumericMeasure(tgt); ok {
					break
				}
			}
		}
		s.expandTargets()
		if s.driverState() == before {
			break
		}
	}

	if n, ok := s.NumericMeasure(m); ok {
		return n, nil
	}
	return nil, ErrUnresolved
}

type driverState struct {
	targets, relations, tracked int
}

func (s *Session) driverState() driverState {
	return driverState{
		targets:   len(s.targets),
		relations: s.reg.Count(KindExpression),
		tracked:   len(s.measured),
	}
}

// expandTargets pulls into the target set every entity whose unknown
// co-occurs, in some asserted relation, with an unknown a current target
// holds.
func (s *Session) expandTargets() {
	targetVars := make(map[string]bool)
	for _, t := range s.targets {
		t = resolveMeasurable(t)
		if cell := t.measureCell(); cell.val != nil {
			for _, v := range cell.val.FreeVars() {
				targetVars[v] = true
			}
		}
	}
	for _, ex := range s.liveExpressions() {
		vars := ex.expr.FreeVars()
		touches := false
		for _, v := range vars {
			if targetVars[v] {
				touches = true
				break
			}
		}
		if !touches {
			continue
		}
		for _, v := range vars {
			for _, holder := range s.measured[v] {
				s.addTarget(resolveMeasurable(holder))
			}
		}
	}
}

// deriveImpliedTriangles runs the one-time Datalog pass: triangles implied
// by cevians and side extensions of registered triangles are constructed so
// the theorem rules can see them.
func (s *Session) deriveImpliedTriangles() error {
	if s.typeOneDone {
		return nil
	}
	s.typeOneDone = true
	implied, err := s.deriver.ImpliedTriangles(s.collectFacts())
	if err != nil {
		return err
	}
	for _, tri := range implied {
		pts := make([]*Point, 3)
		for i, label := range tri {
			p, err := s.Point(label)
			if err != nil {
				return err
			}
			pts[i] = p
		}
		if _, err := s.triangleOf(pts[0], pts[1], pts[2]); err != nil {
			return err
		}
	}
	return s.finish()
}

func (s *Session) collectFacts() derive.Facts {
	var f derive.Facts
	for _, le := range s.reg.Elements(KindLine) {
		l := le.(*Line)
		f.Lines = append(f.Lines, pointKeys(l.pts))
	}
	for _, se := range s.reg.Elements(KindSegment) {
		g := se.(*Segment)
		f.Segments = append(f.Segments, [2]string{g.pts[0].Label(), g.pts[1].Label()})
	}
	for _, te := range s.reg.Elements(KindTriangle) {
		t := te.(*Triangle)
		f.Triangles = append(f.Triangles,
			[3]string{t.pts[0].Label(), t.pts[1].Label(), t.pts[2].Label()})
	}
	return f
}
