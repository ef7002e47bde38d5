package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/identity"
)

// RegisterRequest creates a customer account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
	// CartToken is the guest cart to adopt after registration
	CartToken string `json:"-"`
}

// LoginRequest authenticates with email and password
type LoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	CartToken string `json:"-"`
	IP        string `json:"-"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally revokes the refresh token alongside the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is returned on register, login and refresh
type AuthResult struct {
	AccessToken           string       `json:"access_token"`
	RefreshToken          string       `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time    `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time    `json:"refresh_token_expires_at"`
	TokenType             string       `json:"token_type"`
	User                  UserResponse `json:"user"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	DisplayName string             `json:"display_name"`
	Role        string             `json:"role"`
	Status      string             `json:"status"`
	Permissions []string           `json:"permissions"`
	Addresses   []identity.Address `json:"addresses"`
	LockedUntil *time.Time         `json:"locked_until,omitempty"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
	Version     int                `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// UpdateProfileRequest changes profile fields
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"max=100"`
}

// ChangePasswordRequest replaces the password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// AddressRequest creates or replaces an address book entry
type AddressRequest struct {
	Label      string `json:"label" binding:"max=50"`
	Recipient  string `json:"recipient" binding:"required,max=100"`
	Line1      string `json:"line1" binding:"required,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100"`
	Region     string `json:"region" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,len=2"`
	Phone      string `json:"phone" binding:"max=30"`
	IsDefault  bool   `json:"is_default"`
}

// ToAddress converts the request into a domain address
func (r AddressRequest) ToAddress() identity.Address {
	return identity.Address{
		Label:      r.Label,
		Recipient:  r.Recipient,
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		Region:     r.Region,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Phone:      r.Phone,
		IsDefault:  r.IsDefault,
	}
}

// ToUserResponse converts a domain user to a response
func ToUserResponse(u *identity.User) UserResponse {
	addresses := u.Addresses
	if addresses == nil {
		addresses = []identity.Address{}
	}
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Permissions: u.Role.Permissions(),
		Addresses:   addresses,
		LockedUntil: u.LockedUntil,
		LastLoginAt: u.LastLoginAt,
		Version:     u.Version,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
