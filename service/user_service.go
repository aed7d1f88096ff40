// service/user_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vanguard-api/vanguard/auth"
	"github.com/vanguard-api/vanguard/cache"
	apperrors "github.com/vanguard-api/vanguard/errors"
	logger "github.com/vanguard-api/vanguard/logging"
	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/util"
)

// UserRepository is the persistence surface the user service needs.
// *dao.UserDAO is the production implementation.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// IUserService defines the methods for user management and credential
// verification.
type IUserService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, upd model.UserUpdate, principal *auth.Principal) (*model.User, error)
	DeleteUser(ctx context.Context, id string, principal *auth.Principal) error
}

type userService struct {
	userDAO  UserRepository
	cache    *cache.Layer
	eventBus *util.EventBus
}

var _ IUserService = &userService{}

func NewUserService(userDAO UserRepository, cacheLayer *cache.Layer, eventBus *util.EventBus) *userService {
	return &userService{
		userDAO:  userDAO,
		cache:    cacheLayer,
		eventBus: eventBus,
	}
}

func (s *userService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Failed to hash password", zap.Error(err))
		return nil, apperrors.ErrInternalServer
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Roles:        []string{"user"},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userDAO.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logger.Info("User registered", zap.String("userID", user.ID), zap.String("username", user.Username))
	s.eventBus.Publish(ctx, "user.created", user)
	return user, nil
}

func (s *userService) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	user, err := s.userDAO.GetUserByUsername(ctx, req.Username)
	if err != nil {
		// A missing user and a wrong password are indistinguishable to the
		// caller.
		return nil, apperrors.ErrBadCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrBadCredentials
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.userDAO.GetUserByID(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, id string, upd model.UserUpdate, principal *auth.Principal) (*model.User, error) {
	if principal.Subject != id && !principal.HasRole("admin") {
		return nil, apperrors.ErrForbidden
	}

	user, err := s.userDAO.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}
	user.UpdatedAt = time.Now()

	if err := s.userDAO.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, "user.updated", user)

	// The cached representation must be gone before this response is
	// returned, otherwise a follow-up read can observe the old state.
	if err := s.cache.Invalidate(ctx, cache.Key("user", id)); err != nil {
		return user, err
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string, principal *auth.Principal) error {
	if principal.Subject != id && !principal.HasRole("admin") {
		return apperrors.ErrForbidden
	}

	if err := s.userDAO.DeleteUser(ctx, id); err != nil {
		return err
	}

	logger.Info("User deleted", zap.String("userID", id), zap.String("deletedBy", principal.Subject))
	s.eventBus.Publish(ctx, "user.deleted", id)

	return s.cache.Invalidate(ctx, cache.Key("user", id))
}
