package unitofwork

import (
	"context"
	"errors"
)

// ErrDurableUnavailable is returned when the durable store cannot take requests right now.
var ErrDurableUnavailable = errors.New("durable store unavailable")

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) (UnitOfWork, error)
	// DurableReachable reports the latest probe without creating a unit of work.
	DurableReachable() bool
	// ReportFailure feeds a failed durable call back to the probe; true when it marked the store down.
	ReportFailure(err error) bool
}
