package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/infrastructure/auth"
)

// AccountService manages a signed-in user's own profile and address book
type AccountService struct {
	userRepo  identity.UserRepository
	blacklist auth.TokenBlacklist
	// revokeTTL bounds how long a password change revokes earlier tokens
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewAccountService creates a new AccountService. revokeTTL should be the
// refresh token lifetime.
func NewAccountService(userRepo identity.UserRepository, blacklist auth.TokenBlacklist, revokeTTL time.Duration, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		userRepo:  userRepo,
		blacklist: blacklist,
		revokeTTL: revokeTTL,
		logger:    logger,
	}
}

// GetProfile returns the current user
func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// UpdateProfile changes the display name
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		return u.UpdateProfile(req.DisplayName)
	})
}

// ChangePassword replaces the password and revokes every token issued before
// the change
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	if _, err := s.mutate(ctx, userID, func(u *identity.User) error {
		return u.ChangePassword(req.CurrentPassword, req.NewPassword)
	}); err != nil {
		return err
	}
	if err := s.blacklist.RevokeUser(ctx, userID.String(), s.revokeTTL); err != nil {
		s.logger.Error("Failed to revoke tokens after password change",
			zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

// ListAddresses returns the address book
func (s *AccountService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]identity.Address, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []identity.Address{}, nil
	}
	return user.Addresses, nil
}

// AddAddress appends an address
func (s *AccountService) AddAddress(ctx context.Context, userID uuid.UUID, req AddressRequest) (*identity.Address, error) {
	var added identity.Address
	_, err := s.mutate(ctx, userID, func(u *identity.User) error {
		addr, err := u.AddAddress(req.ToAddress())
		if err != nil {
			return err
		}
		added = *addr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateAddress replaces an address
func (s *AccountService) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, req AddressRequest) (*identity.Address, error) {
	var updated identity.Address
	_, err := s.mutate(ctx, userID, func(u *identity.User) error {
		addr, err := u.UpdateAddress(addressID, req.ToAddress())
		if err != nil {
			return err
		}
		updated = *addr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveAddress deletes an address
func (s *AccountService) RemoveAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	_, err := s.mutate(ctx, userID, func(u *identity.User) error {
		return u.RemoveAddress(addressID)
	})
	return err
}

// SetDefaultAddress marks an address as the default
func (s *AccountService) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) ([]identity.Address, error) {
	resp, err := s.mutate(ctx, userID, func(u *identity.User) error {
		return u.SetDefaultAddress(addressID)
	})
	if err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (s *AccountService) mutate(ctx context.Context, userID uuid.UUID, fn func(*identity.User) error) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		return nil, err
	}
	user.ClearDomainEvents()
	resp := ToUserResponse(user)
	return &resp, nil
}
