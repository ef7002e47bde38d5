package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
)

// Login outcomes reported to the login observer
const (
	LoginResultSuccess  = "success"
	LoginResultInvalid  = "invalid_credentials"
	LoginResultLocked   = "locked"
	LoginResultDisabled = "disabled"
)

// CartMerger folds a guest cart into the signed-in user's cart
type CartMerger interface {
	MergeGuestCart(ctx context.Context, guestToken string, userID uuid.UUID) error
}

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	events     shared.EventPublisher
	carts      CartMerger
	onLogin    func(result string)
	logger     *zap.Logger
}

// AuthServiceOption configures an AuthService
type AuthServiceOption func(*AuthService)

// WithCartMerger merges the guest cart on login and registration
func WithCartMerger(m CartMerger) AuthServiceOption {
	return func(s *AuthService) { s.carts = m }
}

// WithLoginObserver reports every login outcome
func WithLoginObserver(fn func(result string)) AuthServiceOption {
	return func(s *AuthService) { s.onLogin = fn }
}

// WithEventPublisher publishes user events
func WithEventPublisher(p shared.EventPublisher) AuthServiceOption {
	return func(s *AuthService) { s.events = p }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
	opts ...AuthServiceOption,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}

	user, err := identity.NewUser(req.Email, req.Password, req.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
		}
		return nil, err
	}
	s.publish(ctx, user)

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	s.mergeCart(ctx, req.CartToken, user.ID)
	return s.issue(user)
}

// Login authenticates a user and returns tokens. Five consecutive failures
// lock the account; a locked account is rejected before the password is
// checked.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			s.observe(LoginResultInvalid)
			return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
		}
		return nil, err
	}

	if !user.CanLogin() {
		if user.Status == identity.UserStatusDisabled {
			s.logger.Warn("Login attempt for disabled account", zap.String("user_id", user.ID.String()))
			s.observe(LoginResultDisabled)
			return nil, shared.NewDomainError("ACCOUNT_DISABLED", "Account has been disabled")
		}
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		s.observe(LoginResultLocked)
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}

	if !user.VerifyPassword(req.Password) {
		locked := user.RecordLoginFailure()
		if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}
		s.publish(ctx, user)

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedLoginCount))
			s.observe(LoginResultLocked)
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		s.logger.Warn("Invalid password attempt",
			zap.String("user_id", user.ID.String()),
			zap.Int("failed_attempts", user.FailedLoginCount))
		s.observe(LoginResultInvalid)
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	user.RecordLoginSuccess()
	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		// the login itself still succeeds
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.mergeCart(ctx, req.CartToken, user.ID)
	s.observe(LoginResultSuccess)
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()), zap.String("ip", req.IP))
	return result, nil
}

// Refresh rotates a refresh token. The presented refresh token is revoked so
// it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "User no longer exists")
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, shared.NewDomainError("ACCOUNT_DISABLED", "Account can no longer sign in")
	}

	pair, err := s.jwtService.RotateTokenPair(claims, subjectOf(user))
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
	}
	return toAuthResult(pair, user), nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, req LogoutRequest) error {
	if err := s.blacklist.Revoke(ctx, access.ID, access.RemainingTTL()); err != nil {
		return err
	}
	if req.RefreshToken != "" {
		refresh, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
		if err == nil && refresh.UserID == access.UserID {
			if err := s.blacklist.Revoke(ctx, refresh.ID, refresh.RemainingTTL()); err != nil {
				return err
			}
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", access.UserID))
	return nil
}

// Authenticate validates an access token against the blacklist
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	}
	return nil
}

func (s *AuthService) issue(user *identity.User) (*AuthResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(subjectOf(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return toAuthResult(pair, user), nil
}

func (s *AuthService) mergeCart(ctx context.Context, guestToken string, userID uuid.UUID) {
	if s.carts == nil || guestToken == "" {
		return
	}
	if err := s.carts.MergeGuestCart(ctx, guestToken, userID); err != nil {
		s.logger.Warn("Failed to merge guest cart", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *AuthService) observe(result string) {
	if s.onLogin != nil {
		s.onLogin(result)
	}
}

func (s *AuthService) publish(ctx context.Context, user *identity.User) {
	events := user.GetDomainEvents()
	user.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}
}

func subjectOf(user *identity.User) auth.Subject {
	return auth.Subject{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		Permissions: user.Role.Permissions(),
	}
}

func toAuthResult(pair *auth.TokenPair, user *identity.User) *AuthResult {
	return &AuthResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  ToUserResponse(user),
	}
}

// tokenError maps JWT failures to domain errors
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	}
}
