package unitofwork

import (
	"context"

	"ecospectre-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	ScanRepository() contract.ScanRepository
}
