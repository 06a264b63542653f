package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook-core/internal/core/domain"
	"github.com/daybook-app/daybook-core/internal/core/ports/driven"
	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

var _ driving.UserService = (*userService)(nil)

// UserServiceConfig wires the user management service.
type UserServiceConfig struct {
	Users    driven.UserStore
	Sessions driven.SessionStore
	Auth     driven.Authenticator
	Logger   *slog.Logger
}

type userService struct {
	users    driven.UserStore
	sessions driven.SessionStore
	auth     driven.Authenticator
	logger   *slog.Logger
}

func NewUserService(cfg UserServiceConfig) driving.UserService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &userService{
		users:    cfg.Users,
		sessions: cfg.Sessions,
		auth:     cfg.Auth,
		logger:   cfg.Logger,
	}
}

// Setup creates the first admin account. It only works on an empty
// instance; once any user exists the endpoint is closed for good.
func (s *userService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, domain.ErrInvalidInput
	}

	existing, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.ErrForbidden
	}

	admin, err := s.Create(ctx, driving.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("initial setup completed", "user_id", admin.ID)
	return &driving.SetupResponse{
		User:    admin,
		Message: "Setup complete. You can now log in.",
	}, nil
}

func (s *userService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" || !req.Role.Valid() {
		return nil, domain.ErrInvalidInput
	}

	email := normalizeEmail(req.Email)
	if existing, _ := s.users.GetByEmail(ctx, email); existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, normalizeEmail(email))
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Update applies the provided fields. Deactivating a user also revokes
// their sessions so they are locked out right away.
func (s *userService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	if req.Active != nil && !*req.Active {
		if err := s.sessions.DeleteByUser(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions for deactivated user", "user_id", id, "error", err)
		}
	}

	return user, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke sessions for deleted user", "user_id", id, "error", err)
	}

	return s.users.Delete(ctx, id)
}

// SetPassword is the admin reset path: no current password required,
// all sessions revoked.
func (s *userService) SetPassword(ctx context.Context, id string, password string) error {
	if password == "" {
		return domain.ErrInvalidInput
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()

	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	return s.sessions.DeleteByUser(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
