package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
)

// UserQuery lists accounts
type UserQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"max=100"`
	Role     string `form:"role" binding:"omitempty,oneof=customer admin"`
	Status   string `form:"status" binding:"omitempty,oneof=active locked disabled"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at email last_login_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SetRoleRequest changes a user's role
type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer admin"`
}

// UserList is one page of accounts
type UserList struct {
	Items    []identityapp.UserResponse `json:"items"`
	Total    int64                      `json:"total"`
	Page     int                        `json:"page"`
	PageSize int                        `json:"page_size"`
}

// UserService lets administrators manage accounts
type UserService struct {
	userRepo  identity.UserRepository
	blacklist auth.TokenBlacklist
	events    shared.EventPublisher
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewUserService creates a new UserService. Disabling a user revokes their
// tokens for revokeTTL, which should match the refresh token lifetime.
func NewUserService(userRepo identity.UserRepository, blacklist auth.TokenBlacklist, events shared.EventPublisher, revokeTTL time.Duration, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:  userRepo,
		blacklist: blacklist,
		events:    events,
		revokeTTL: revokeTTL,
		logger:    logger,
	}
}

// List returns one page of accounts
func (s *UserService) List(ctx context.Context, q UserQuery) (*UserList, error) {
	filter := identity.UserFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
			Search:   q.Search,
		}.Normalize(),
		Role:   identity.Role(q.Role),
		Status: identity.UserStatus(q.Status),
	}
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]identityapp.UserResponse, len(users))
	for i := range users {
		items[i] = identityapp.ToUserResponse(&users[i])
	}
	return &UserList{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// Get returns one account
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*identityapp.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := identityapp.ToUserResponse(user)
	return &resp, nil
}

// SetRole changes a user's role. Existing tokens keep their permissions
// until they are refreshed, so the user's tokens are revoked.
func (s *UserService) SetRole(ctx context.Context, actorID, id uuid.UUID, req SetRoleRequest) (*identityapp.UserResponse, error) {
	if actorID == id {
		return nil, shared.NewDomainError("CANNOT_MODIFY_SELF", "Administrators cannot change their own role")
	}
	return s.mutate(ctx, id, true, func(u *identity.User) error {
		return u.SetRole(identity.Role(req.Role))
	})
}

// Disable blocks an account and revokes its tokens
func (s *UserService) Disable(ctx context.Context, actorID, id uuid.UUID) (*identityapp.UserResponse, error) {
	if actorID == id {
		return nil, shared.NewDomainError("CANNOT_MODIFY_SELF", "Administrators cannot disable themselves")
	}
	return s.mutate(ctx, id, true, (*identity.User).Disable)
}

// Enable re-activates a disabled account
func (s *UserService) Enable(ctx context.Context, id uuid.UUID) (*identityapp.UserResponse, error) {
	return s.mutate(ctx, id, false, (*identity.User).Enable)
}

// Unlock lifts a login lock early
func (s *UserService) Unlock(ctx context.Context, id uuid.UUID) (*identityapp.UserResponse, error) {
	return s.mutate(ctx, id, false, (*identity.User).Unlock)
}

func (s *UserService) mutate(ctx context.Context, id uuid.UUID, revoke bool, fn func(*identity.User) error) (*identityapp.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return nil, err
	}
	if revoke {
		if err := s.blacklist.RevokeUser(ctx, id.String(), s.revokeTTL); err != nil {
			s.logger.Error("Failed to revoke user tokens", zap.String("user_id", id.String()), zap.Error(err))
		}
	}

	events := user.GetDomainEvents()
	user.ClearDomainEvents()
	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish user events", zap.Error(err))
		}
	}
	s.logger.Info("User updated by admin",
		zap.String("user_id", id.String()),
		zap.String("role", string(user.Role)),
		zap.String("status", string(user.Status)))

	resp := identityapp.ToUserResponse(user)
	return &resp, nil
}
