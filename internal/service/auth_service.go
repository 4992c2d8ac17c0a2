// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/repository/specification"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/pkg/events"
	pktNats "ecospectre-be/pkg/nats"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Client-facing messages, returned verbatim.
var (
	ErrCredentialsRequired = errors.New("Email and password are required")
	ErrUserExists          = errors.New("User already exists")
	ErrInvalidCredentials  = errors.New("Invalid credentials")
)

type TokenSigner func(userID, email string, now time.Time) (string, error)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	signToken      TokenSigner
	logger         logger.ILogger
	now            func() time.Time
	hashCost       int
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher, signToken TokenSigner, log logger.ILogger) IAuthService {
	return &authService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		signToken:      signToken,
		logger:         log,
		now:            time.Now,
		hashCost:       bcrypt.DefaultCost,
	}
}

func normalizeCredentials(email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", "", ErrCredentialsRequired
	}
	return email, password, nil
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email, password, err := normalizeCredentials(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Settings:     entity.DefaultUserSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.publish(ctx, events.UserRegistered, user)
	return s.authResponse(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email, password, err := normalizeCredentials(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		return nil, err
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.publish(ctx, events.UserLogin, user)
	return s.authResponse(user)
}

func (s *authService) authResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, err := s.signToken(user.Id.String(), user.Email, s.now())
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, User: ToUserResponse(user)}, nil
}

func (s *authService) publish(ctx context.Context, eventType string, user *entity.User) {
	if s.eventPublisher == nil {
		return
	}
	err := s.eventPublisher.Publish(ctx, events.BaseEvent{
		Type:       eventType,
		Data:       map[string]interface{}{"user_id": user.Id.String(), "email": user.Email},
		OccurredAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("AuthService", "Failed to publish "+eventType, map[string]interface{}{"error": err})
	}
}

func ToUserResponse(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		Id:        user.Id.String(),
		Email:     user.Email,
		Settings:  user.Settings,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
