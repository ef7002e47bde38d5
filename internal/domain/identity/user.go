package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/backend/internal/domain/shared"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusLocked   UserStatus = "locked"   // Locked after repeated failed logins
	UserStatusDisabled UserStatus = "disabled" // Disabled by an administrator
)

// Login lockout policy
const (
	MaxFailedLogins = 5
	LockDuration    = 15 * time.Minute
)

// Password cost for bcrypt
const bcryptCost = 12

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	hasLetterRegex = regexp.MustCompile(`[a-zA-Z]`)
	hasNumberRegex = regexp.MustCompile(`[0-9]`)
)

// User is a storefront account, either a shopper or an administrator
type User struct {
	shared.BaseAggregateRoot
	Email            string
	DisplayName      string
	PasswordHash     string
	Role             Role
	Status           UserStatus
	FailedLoginCount int
	LockedUntil      *time.Time
	LastLoginAt      *time.Time
	Addresses        []Address
}

// NewUser registers a new active customer account
func NewUser(email, password, displayName string) (*User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if len(displayName) > 100 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 100 characters")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		DisplayName:       strings.TrimSpace(displayName),
		PasswordHash:      hash,
		Role:              RoleCustomer,
		Status:            UserStatusActive,
		Addresses:         make([]Address, 0),
	}
	user.AddDomainEvent(NewUserRegisteredEvent(user))
	return user, nil
}

// UpdateProfile changes the display name
func (u *User) UpdateProfile(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if len(displayName) > 100 {
		return shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 100 characters")
	}
	u.DisplayName = displayName
	u.UpdatedAt = time.Now()
	return nil
}

// ChangePassword replaces the password after verifying the old one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if oldPassword == newPassword {
		return shared.NewDomainError("INVALID_PASSWORD", "New password must differ from the current one")
	}
	return u.SetPassword(newPassword)
}

// SetPassword replaces the password without checking the old one
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewUserPasswordChangedEvent(u))
	return nil
}

// VerifyPassword checks the password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLoginSuccess resets the failure counter
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.FailedLoginCount = 0
	if u.Status == UserStatusLocked {
		u.Status = UserStatusActive
		u.LockedUntil = nil
	}
	u.UpdatedAt = now
}

// RecordLoginFailure counts a failed attempt and locks the account once the
// limit is reached. It returns true when this attempt caused the lock.
func (u *User) RecordLoginFailure() bool {
	if u.Status == UserStatusLocked && !u.IsLocked() {
		// expired lock, start a fresh window
		u.Status = UserStatusActive
		u.LockedUntil = nil
		u.FailedLoginCount = 0
	}
	u.FailedLoginCount++
	u.UpdatedAt = time.Now()
	if u.FailedLoginCount >= MaxFailedLogins && u.Status == UserStatusActive {
		until := time.Now().Add(LockDuration)
		u.Status = UserStatusLocked
		u.LockedUntil = &until
		u.AddDomainEvent(NewUserStatusChangedEvent(u, UserStatusActive, UserStatusLocked))
		return true
	}
	return false
}

// IsLocked returns true while a lock is in effect
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	if u.LockedUntil != nil && time.Now().After(*u.LockedUntil) {
		return false
	}
	return true
}

// CanLogin returns true if the user may authenticate right now
func (u *User) CanLogin() bool {
	if u.Status == UserStatusDisabled {
		return false
	}
	return !u.IsLocked()
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetRole assigns a role
func (u *User) SetRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

// Disable blocks the account from logging in
func (u *User) Disable() error {
	if u.Status == UserStatusDisabled {
		return shared.NewDomainError("INVALID_STATE", "User is already disabled")
	}
	old := u.Status
	u.Status = UserStatusDisabled
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewUserStatusChangedEvent(u, old, UserStatusDisabled))
	return nil
}

// Enable re-activates a disabled account
func (u *User) Enable() error {
	if u.Status != UserStatusDisabled {
		return shared.NewDomainError("INVALID_STATE", "User is not disabled")
	}
	u.Status = UserStatusActive
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewUserStatusChangedEvent(u, UserStatusDisabled, UserStatusActive))
	return nil
}

// Unlock clears a login lock before it expires
func (u *User) Unlock() error {
	if u.Status != UserStatusLocked {
		return shared.NewDomainError("INVALID_STATE", "User is not locked")
	}
	u.Status = UserStatusActive
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
	u.AddDomainEvent(NewUserStatusChangedEvent(u, UserStatusLocked, UserStatusActive))
	return nil
}

// DisplayNameOrEmail returns the display name if set, otherwise the email
func (u *User) DisplayNameOrEmail() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// AddAddress appends an address. The first address becomes the default.
func (u *User) AddAddress(addr Address) (*Address, error) {
	if len(u.Addresses) >= MaxAddresses {
		return nil, shared.NewDomainError("TOO_MANY_ADDRESSES", "Address book is full")
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	addr.ID = uuid.New()
	if len(u.Addresses) == 0 {
		addr.IsDefault = true
	} else if addr.IsDefault {
		u.clearDefault()
	}
	u.Addresses = append(u.Addresses, addr)
	u.UpdatedAt = time.Now()
	return &u.Addresses[len(u.Addresses)-1], nil
}

// UpdateAddress replaces the fields of an existing address, keeping its ID
func (u *User) UpdateAddress(id uuid.UUID, addr Address) (*Address, error) {
	existing := u.FindAddress(id)
	if existing == nil {
		return nil, shared.NewDomainError("ADDRESS_NOT_FOUND", "Address not found")
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	wasDefault := existing.IsDefault
	if addr.IsDefault && !wasDefault {
		u.clearDefault()
	}
	addr.ID = id
	addr.IsDefault = addr.IsDefault || wasDefault
	*existing = addr
	u.UpdatedAt = time.Now()
	return existing, nil
}

// RemoveAddress deletes an address. Removing the default promotes the first
// remaining address.
func (u *User) RemoveAddress(id uuid.UUID) error {
	for i := range u.Addresses {
		if u.Addresses[i].ID != id {
			continue
		}
		wasDefault := u.Addresses[i].IsDefault
		u.Addresses = append(u.Addresses[:i], u.Addresses[i+1:]...)
		if wasDefault && len(u.Addresses) > 0 {
			u.Addresses[0].IsDefault = true
		}
		u.UpdatedAt = time.Now()
		return nil
	}
	return shared.NewDomainError("ADDRESS_NOT_FOUND", "Address not found")
}

// SetDefaultAddress marks one address as the default
func (u *User) SetDefaultAddress(id uuid.UUID) error {
	addr := u.FindAddress(id)
	if addr == nil {
		return shared.NewDomainError("ADDRESS_NOT_FOUND", "Address not found")
	}
	u.clearDefault()
	addr.IsDefault = true
	u.UpdatedAt = time.Now()
	return nil
}

// FindAddress returns a pointer into Addresses, or nil
func (u *User) FindAddress(id uuid.UUID) *Address {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return &u.Addresses[i]
		}
	}
	return nil
}

// DefaultAddress returns the default address, or nil if the book is empty
func (u *User) DefaultAddress() *Address {
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			return &u.Addresses[i]
		}
	}
	return nil
}

func (u *User) clearDefault() {
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = false
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmail lowercases and trims an email for lookups
func NormalizeEmail(email string) string {
	return normalizeEmail(email)
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !hasLetterRegex.MatchString(password) || !hasNumberRegex.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
