package align

import (
	"fmt"

	"subalign/internal/services"
)

// ResourceLimitError reports a source/target product above the cell budget.
type ResourceLimitError struct {
	Source   int
	Target   int
	MaxCells int64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("alignment of %d source x %d target cues needs %d cells, limit is %d",
		e.Source, e.Target, int64(e.Source)*int64(e.Target), e.MaxCells)
}

// Unwrap lets errors.Is match services.ErrResourceLimit.
func (e *ResourceLimitError) Unwrap() error {
	return services.ErrResourceLimit
}

func checkCells(n, m int, maxCells int64) error {
	if maxCells > 0 && int64(n)*int64(m) > maxCells {
		return &ResourceLimitError{Source: n, Target: m, MaxCells: maxCells}
	}
	return nil
}
