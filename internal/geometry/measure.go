package geometry

import (
	"fmt"
	"math/big"

	"geonerd/internal/registry"
	"geonerd/internal/symbol"
)

// measureCell holds an entity's measure: nil until first read, then either a
// concrete number or a named unknown. Cells are rebound, never mutated in
// place, when the solver resolves an unknown.
type measureCell struct {
	val *symbol.Expr
}

func (c *measureCell) numeric() (*big.Rat, bool) {
	if c.val == nil {
		return nil, false
	}
	return c.val.Number()
}

// Measurable is an entity with a measure: Segment (length), Angle (degrees)
// and Triangle (area).
type Measurable interface {
	registry.Entity
	measureCell() *measureCell
	measurePrefix() string
}

func resolveMeasurable(m Measurable) Measurable {
	return registry.Resolve(m).(Measurable)
}

// allocUnknown generates a fresh uniquely-named unknown, e.g. "mSegment3".
func (s *Session) allocUnknown(prefix string) string {
	s.unknownSeq[prefix]++
	return fmt.Sprintf("%s%d", prefix, s.unknownSeq[prefix])
}

// trackHolder records that m's measure currently holds the named unknown.
func (s *Session) trackHolder(name string, m Measurable) {
	s.measured[name] = append(s.measured[name], m)
}

// Measure returns the entity's measure, allocating a fresh unknown on first
// read.
func (s *Session) Measure(m Measurable) *symbol.Expr {
	m = resolveMeasurable(m)
	cell := m.measureCell()
	if cell.val == nil {
		name := s.allocUnknown(m.measurePrefix())
		cell.val = symbol.Var(name)
		s.trackHolder(name, m)
	}
	return cell.val
}

// NumericMeasure returns the concrete value of the entity's measure, if it
// has resolved to one.
func (s *Session) NumericMeasure(m Measurable) (*big.Rat, bool) {
	return resolveMeasurable(m).measureCell().numeric()
}

// SetMeasure applies the measure write policy:
//   - concrete number onto an unset measure binds directly;
//   - concrete number onto a concrete measure must agree, else the write
//     fails with a MeasureConflictError;
//   - an unknown onto an unset measure binds directly;
//   - anything else asserts the residual (current - v) == 0 and leaves
//     resolution to the solver.
func (s *Session) SetMeasure(m Measurable, v *symbol.Expr) error {
	if err := s.setMeasure(m, v); err != nil {
		return err
	}
	return s.finish()
}

// SetMeasureRat sets a concrete rational measure.
func (s *Session) SetMeasureRat(m Measurable, v *big.Rat) error {
	return s.SetMeasure(m, symbol.Rat(v))
}

// SetMeasureInt sets a concrete integer measure.
func (s *Session) SetMeasureInt(m Measurable, v int64) error {
	return s.SetMeasure(m, symbol.Num(v))
}

func (s *Session) setMeasure(m Measurable, v *symbol.Expr) error {
	m = resolveMeasurable(m)
	cell := m.measureCell()
	vNum, vIsNum := v.Number()
	_, vIsVar := v.AsVar()

	if cell.val == nil {
		if vIsNum || vIsVar {
			return s.bindMeasure(m, v)
		}
		// Compound value: allocate the unknown and relate it.
		cur := s.Measure(m)
		_, err := s.assert(cur.Sub(v))
		return err
	}

	cur := cell.val
	if curNum, ok := cur.Number(); ok && vIsNum {
		if curNum.Cmp(vNum) != 0 {
			return &MeasureConflictError{Key: registry.Key(m), Have: curNum, Want: vNum}
		}
		return nil
	}
	_, err := s.assert(cur.Sub(v))
	return err
}

// bindMeasure rebinds a measure cell and runs the numeric hooks.
func (s *Session) bindMeasure(m Measurable, v *symbol.Expr) error {
	cell := m.measureCell()
	cell.val = v
	if name, ok := v.AsVar(); ok {
		s.trackHolder(name, m)
	}
	if _, ok := v.Number(); ok {
		if a, isAngle := m.(*Angle); isAngle {
			s.enqueue(func() error { return s.onAngleNumeric(a) })
		}
	}
	return nil
}

// rebindUnknown propagates a solver resolution: every measure holding the
// unknown is rebound to the resolved value.
func (s *Session) rebindUnknown(name string, val *symbol.Expr) error {
	holders := s.measured[name]
	delete(s.measured, name)
	repl := map[string]*symbol.Expr{name: val}
	for _, m := range holders {
		m = resolveMeasurable(m)
		cell := m.measureCell()
		if cell.val == nil || !cell.val.HasVar(name) {
			continue
		}
		if err := s.bindMeasure(m, cell.val.Substitute(repl)); err != nil {
			return err
		}
	}
	return nil
}

// mergeMeasures copies the measure of a merged-away entity onto its
// survivor, asserting equality when both already carry one.
func (s *Session) mergeMeasures(keep, drop Measurable) error {
	dropCell := drop.measureCell()
	if dropCell.val == nil {
		return nil
	}
	keepCell := keep.measureCell()
	if keepCell.val == nil {
		return s.bindMeasure(keep, dropCell.val)
	}
	kNum, kOk := keepCell.numeric()
	dNum, dOk := dropCell.numeric()
	if kOk && dOk {
		if kNum.Cmp(dNum) != 0 {
			return &MeasureConflictError{Key: registry.Key(keep), Have: kNum, Want: dNum}
		}
		return nil
	}
	_, err := s.assert(keepCell.val.Sub(dropCell.val))
	return err
}
