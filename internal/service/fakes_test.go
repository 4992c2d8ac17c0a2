package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/internal/repository/memory"
	"ecospectre-be/internal/repository/specification"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/pkg/database"

	"github.com/google/uuid"
)

// fakeUserRepository understands the two specifications the services use.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[uuid.UUID]entity.User)}
}

func (r *fakeUserRepository) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Id] = *user
	return nil
}

func (r *fakeUserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

func (r *fakeUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if matchesUser(u, specs) {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if matchesUser(u, specs) {
			n++
		}
	}
	return n, nil
}

func matchesUser(u entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByEmail:
			if u.Email != strings.ToLower(strings.TrimSpace(s.Email)) {
				return false
			}
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		}
	}
	return true
}

type fakeUnitOfWork struct {
	users contract.UserRepository
	scans contract.ScanRepository
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error         { return nil }
func (u *fakeUnitOfWork) Commit() error                           { return nil }
func (u *fakeUnitOfWork) Rollback() error                         { return nil }
func (u *fakeUnitOfWork) UserRepository() contract.UserRepository { return u.users }
func (u *fakeUnitOfWork) ScanRepository() contract.ScanRepository { return u.scans }

// fakeFactory stands in for the Postgres-backed factory; reachable toggles the outage.
type fakeFactory struct {
	reachable atomic.Bool
	users     *fakeUserRepository
	scans     *memory.ScanRepository
}

func newFakeFactory(reachable bool) *fakeFactory {
	f := &fakeFactory{users: newFakeUserRepository(), scans: memory.NewScanRepository(0)}
	f.reachable.Store(reachable)
	return f
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) (unitofwork.UnitOfWork, error) {
	if !f.reachable.Load() {
		return nil, unitofwork.ErrDurableUnavailable
	}
	return &fakeUnitOfWork{users: f.users, scans: f.scans}, nil
}

func (f *fakeFactory) DurableReachable() bool {
	return f.reachable.Load()
}

func (f *fakeFactory) ReportFailure(err error) bool { return false }

// failingScanRepository simulates a durable store that accepts connections but rejects writes.
type failingScanRepository struct {
	*memory.ScanRepository
	err error
}

func (r failingScanRepository) Create(ctx context.Context, scan *entity.Scan) error {
	return r.err
}

// failingFactory hands out units of work whose writes fail with err until a failure marks it down.
type failingFactory struct {
	err  error
	down atomic.Bool
}

func newFailingFactory(err error) *failingFactory {
	return &failingFactory{err: err}
}

func (f *failingFactory) NewUnitOfWork(ctx context.Context) (unitofwork.UnitOfWork, error) {
	if f.down.Load() {
		return nil, unitofwork.ErrDurableUnavailable
	}
	return &fakeUnitOfWork{users: newFakeUserRepository(), scans: failingScanRepository{memory.NewScanRepository(0), f.err}}, nil
}

func (f *failingFactory) DurableReachable() bool { return !f.down.Load() }

func (f *failingFactory) ReportFailure(err error) bool {
	if !database.IsConnectionError(err) {
		return false
	}
	f.down.Store(true)
	return true
}

type recordedPush struct {
	userID      string
	messageType string
	data        interface{}
}

type recordingFeed struct {
	mu     sync.Mutex
	pushes []recordedPush
}

func (f *recordingFeed) Send(userID string, messageType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, recordedPush{userID, messageType, data})
}

func (f *recordingFeed) all() []recordedPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedPush(nil), f.pushes...)
}
