// Package geometry implements the deductive geometry engine: construction of
// Euclidean objects over a canonical entity registry, symbolic measures,
// algebraic constraint tracking, incremental solving and the goal-directed
// derivation driver.
//
// A Session is single-threaded and fully synchronous. Merge and substitution
// cascades run on an explicit worklist processed to a fixed point.
package geometry

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"geonerd/internal/config"
	"geonerd/internal/derive"
	"geonerd/internal/registry"
	"geonerd/internal/symbol"
)

// Entity kinds. Triangle is a subordinate kind of Polygon.
const (
	KindPoint      registry.Kind = "Point"
	KindLine       registry.Kind = "Line"
	KindSegment    registry.Kind = "Segment"
	KindRay        registry.Kind = "Ray"
	KindAngle      registry.Kind = "Angle"
	KindPolygon    registry.Kind = "Polygon"
	KindTriangle   registry.Kind = "Triangle"
	KindExpression registry.Kind = "Expression"
)

// Session owns one registry, one constraint set and one target set for the
// lifetime of a derivation. All construction and solving goes through it.
type Session struct {
	id  uuid.UUID
	cfg *config.Config
	log *zap.Logger

	reg     *registry.Registry
	solver  symbol.SystemSolver
	deriver *derive.Deriver

	unknownSeq map[string]int
	measured   map[string][]Measurable

	targets     []Measurable
	targetSet   map[registry.Entity]bool
	typeOneDone bool

	rules map[registry.Kind][]Rule

	work     []func() error
	draining bool

	solving      bool
	pendingSolve bool
}

// NewSession creates a session. A nil config uses defaults; a nil logger is
// replaced by a no-op logger.
func NewSession(cfg *config.Config, log *zap.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	log = log.With(zap.String("session", id.String()))

	reg := registry.New()
	reg.DeclareSubkind(KindPolygon, KindTriangle)

	s := &Session{
		id:         id,
		cfg:        cfg,
		log:        log,
		reg:        reg,
		solver:     symbol.NewSolver(cfg.Solver.MaxBranches),
		deriver:    derive.New(log),
		unknownSeq: make(map[string]int),
		measured:   make(map[string][]Measurable),
		targetSet:  make(map[registry.Entity]bool),
		rules:      make(map[registry.Kind][]Rule),
	}
	s.registerDefaultRules()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Registry exposes the entity registry for queries.
func (s *Session) Registry() *registry.Registry { return s.reg }

// SetSolver swaps the algebra-solving capability. Intended for tests and for
// callers providing an external solver.
func (s *Session) SetSolver(sv symbol.SystemSolver) { s.solver = sv }

// enqueue schedules cascade work (ray re-canonicalization, angle re-keying,
// angle measure hooks). Work runs on the session worklist, never recursively.
func (s *Session) enqueue(f func() error) {
	s.work = append(s.work, f)
}

// drain processes the worklist to a fixed point. Nested calls are no-ops;
// the outermost mutating entry point finishes the cascade. The step bound
// turns a non-converging cascade into an error instead of a hang.
func (s *Session) drain() error {
	if s.draining {
		return nil
	}
	s.draining = true
	defer func() { s.draining = false }()

	steps := 0
	for len(s.work) > 0 {
		limit := s.cfg.Solver.MaxCascadePasses * (s.liveCount() + 8)
		f := s.work[0]
		s.work = s.work[1:]
		if err := f(); err != nil {
			s.work = nil
			return err
		}
		steps++
		if steps > limit {
			s.work = nil
			return inconsistencyf("cascade did not converge after %d steps", steps)
		}
	}
	return nil
}

func (s *Session) liveCount() int {
	total := 0
	for _, k := range []registry.Kind{
		KindPoint, KindLine, KindSegment, KindRay, KindAngle,
		KindPolygon, KindTriangle, KindExpression,
	} {
		total += s.reg.Count(k)
	}
	return total
}

// finish completes a mutating entry point: it drains the cascade worklist
// and, when auto-solve is on, runs any queued solver pass.
func (s *Session) finish() error {
	if err := s.drain(); err != nil {
		return err
	}
	if s.pendingSolve && s.cfg.AutoSolve {
		s.pendingSolve = false
		if err := s.SolveSystem(); err != nil {
			return err
		}
		return s.drain()
	}
	return nil
}
