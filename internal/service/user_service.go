package service

import (
	"context"
	"errors"
	"time"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/repository/specification"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/pkg/events"
	pktNats "ecospectre-be/pkg/nats"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("User not found")

type IUserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.UpdateSettingsRequest) (*dto.UserResponse, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
	now            func() time.Time
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher, log logger.ILogger) IUserService {
	return &userService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
		now:            time.Now,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		return nil, err
	}
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	res := ToUserResponse(user)
	return &res, nil
}

// UpdateSettings merges the provided fields into the stored settings.
func (s *userService) UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.UpdateSettingsRequest) (*dto.UserResponse, error) {
	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		return nil, err
	}
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if patch := req.Settings; patch != nil {
		if patch.Notifications != nil {
			user.Settings.Notifications = *patch.Notifications
		}
		if patch.Theme != nil {
			user.Settings.Theme = *patch.Theme
		}
		if patch.DailyGoal != nil {
			user.Settings.DailyGoal = *patch.DailyGoal
		}
	}
	user.UpdatedAt = s.now()

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	res := ToUserResponse(user)
	return &res, nil
}

// DeleteAccount removes the account. Scan history is kept.
func (s *userService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		return err
	}
	if err := uow.UserRepository().Delete(ctx, userID); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.BaseEvent{
			Type:       events.UserDeleted,
			Data:       map[string]interface{}{"user_id": userID.String()},
			OccurredAt: s.now(),
		}); err != nil {
			s.logger.Warn("UserService", "Failed to publish USER_DELETED", map[string]interface{}{"error": err})
		}
	}
	return nil
}
