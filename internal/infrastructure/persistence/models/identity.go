package models

import (
	"time"

	"github.com/storefront/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User aggregate
type UserModel struct {
	AggregateModel
	Email            string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	DisplayName      string              `gorm:"type:varchar(100)"`
	PasswordHash     string              `gorm:"type:varchar(255);not null"`
	Role             identity.Role       `gorm:"type:varchar(20);not null;default:'customer';index"`
	Status           identity.UserStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	FailedLoginCount int                 `gorm:"not null;default:0"`
	LockedUntil      *time.Time
	LastLoginAt      *time.Time
	AddressesJSON    string `gorm:"column:addresses;type:jsonb;not null;default:'[]'"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Email:             m.Email,
		DisplayName:       m.DisplayName,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Status:            m.Status,
		FailedLoginCount:  m.FailedLoginCount,
		LockedUntil:       m.LockedUntil,
		LastLoginAt:       m.LastLoginAt,
		Addresses:         make([]identity.Address, 0),
	}
	decodeJSON(m.AddressesJSON, &u.Addresses, "users", m.ID)
	return u
}

// FromDomain populates the model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.DisplayName = u.DisplayName
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Status = u.Status
	m.FailedLoginCount = u.FailedLoginCount
	m.LockedUntil = u.LockedUntil
	m.LastLoginAt = u.LastLoginAt
	m.AddressesJSON = encodeJSON(u.Addresses, "[]")
}

// UserModelFromDomain creates a model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
