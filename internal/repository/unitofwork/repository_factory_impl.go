package unitofwork

import (
	"context"

	"gorm.io/gorm"
)

// DBSource is satisfied by database.Monitor.
type DBSource interface {
	DB() *gorm.DB
	Reachable() bool
	ReportError(err error) bool
}

type RepositoryFactoryImpl struct {
	source DBSource
}

func NewRepositoryFactory(source DBSource) RepositoryFactory {
	return &RepositoryFactoryImpl{
		source: source,
	}
}

func (f *RepositoryFactoryImpl) DurableReachable() bool {
	return f.source.Reachable()
}

func (f *RepositoryFactoryImpl) ReportFailure(err error) bool {
	return f.source.ReportError(err)
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) (UnitOfWork, error) {
	db := f.source.DB()
	if db == nil || !f.source.Reachable() {
		return nil, ErrDurableUnavailable
	}
	return NewUnitOfWork(db), nil
}
