package geometry

import (
	"fmt"
	"math/big"
)

// ConstructionError reports an invalid or inconsistent construction: bad
// arity or labels, a collinear sequence that cannot be aligned, a polygon
// orientation conflict, or a reflex flag contradiction.
type ConstructionError struct {
	Op     string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("geometry: %s: %s", e.Op, e.Reason)
}

func constructionErrorf(op, format string, args ...any) error {
	return &ConstructionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// MeasureConflictError reports two disagreeing concrete numeric bindings for
// the same measure.
type MeasureConflictError struct {
	Key  string
	Have *big.Rat
	Want *big.Rat
}

func (e *MeasureConflictError) Error() string {
	return fmt.Sprintf("geometry: measure of %s is %s, cannot rebind to %s",
		e.Key, e.Have.RatString(), e.Want.RatString())
}

// InconsistencyError reports that the constraint system is unsatisfiable:
// the solver proved no solution exists, a resolved measure is non-positive,
// or candidate values cannot be disambiguated.
type InconsistencyError struct {
	Reason string
	Err    error
}

func (e *InconsistencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geometry: inconsistent system: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("geometry: inconsistent system: %s", e.Reason)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

func inconsistencyf(format string, args ...any) error {
	return &InconsistencyError{Reason: fmt.Sprintf(format, args...)}
}
