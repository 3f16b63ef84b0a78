package adorned

import (
	"fmt"

	"github.com/erp/openadmin/internal/domain/sequence"
)

// RebalanceError reports a rebalance that failed after the placed row had
// already been stored. The row keeps its computed sort value.
type RebalanceError struct {
	Window sequence.RebalanceWindow
	Err    error
}

func (e *RebalanceError) Error() string {
	return fmt.Sprintf("failed to rebalance %s between %s and %s: %v",
		e.Window.Table, e.Window.Floor, e.Window.Ceiling, e.Err)
}

func (e *RebalanceError) Unwrap() error {
	return e.Err
}
