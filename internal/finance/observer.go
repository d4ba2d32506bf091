package finance

import (
	"context"
	"fmt"

	"nomadfinance/internal/log"
)

// OpError describes a background call that failed.
type OpError struct {
	Op         string
	Collection string
	UserID     string
	RecordID   string
	Err        error
}

func (e *OpError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s for user %s: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("%s %s %s for user %s: %v", e.Op, e.Collection, e.RecordID, e.UserID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// ErrorObserver receives failures that are not returned to any caller. It may
// be called from several goroutines at once.
type ErrorObserver func(ctx context.Context, err *OpError)

// LogErrors returns an observer writing each failure to logger.
func LogErrors(logger *log.Logger) ErrorObserver {
	return func(ctx context.Context, err *OpError) {
		fields := log.NewFields().
			WithRecord(err.UserID, err.Collection, err.RecordID).
			WithOperation(err.Op).
			WithError(err.Err)
		logger.ErrorContext(ctx, "Finance sync failed", fields.ToSlice()...)
	}
}
