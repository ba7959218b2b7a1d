package services

import (
	"errors"
	"fmt"

	"github.com/safak-senal-61/websachat-arena/repositories"
)

// translateTxError folds exhausted-retry failures into the transient sentinel
// callers can map to a retryable HTTP status. Other errors pass through.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrTxAttemptsExhausted) {
		return fmt.Errorf("%w: %v", ErrTransientConflict, err)
	}
	return err
}
