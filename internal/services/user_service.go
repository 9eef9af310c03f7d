package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/DFBlok/market-link-app/internal/auth"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/utils"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
)

// RegisterInput is the payload of an account registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// IUserService defines the interface for account operations.
type IUserService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	// Authenticate returns nil, nil when the credentials do not match an account.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.User, error)
}

type userService struct {
	users store.UserStore
	cfg   *config.Config
}

// NewUserService creates a new user service.
func NewUserService(users store.UserStore, cfg *config.Config) IUserService {
	return &userService{users: users, cfg: cfg}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := models.NormalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" || strings.TrimSpace(input.UserType) == "" {
		return nil, validationError("All fields are required")
	}
	userType, ok := models.ParseUserType(input.UserType)
	if !ok {
		return nil, validationError("Invalid user type")
	}
	if len([]rune(name)) < minNameLength {
		return nil, validationError("Name must be at least %d characters", minNameLength)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, validationError("Invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, validationError("Password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, internalError("find user by email", err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		UserType:     userType,
		Role:         models.RoleUser,
		CreatedAt:    models.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, internalError("create user", err)
	}

	metrics.RecordEvent(metrics.EventUserRegistered)
	logger.FromContext(ctx).Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("user_type", string(user.UserType)))
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RecordEvent(metrics.EventLoginFailed)
		return nil, nil
	}
	if err != nil {
		return nil, internalError("find user by email", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		metrics.RecordEvent(metrics.EventLoginFailed)
		logger.FromContext(ctx).Debug("Password mismatch", zap.String("user_id", user.ID.String()))
		return nil, nil
	}
	return user, nil
}

func (s *userService) FindByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, storeError("find user", "User", err)
	}
	return user, nil
}
