package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/identity"
)

// AccountUseCases is what AccountHandler needs from the identity layer
type AccountUseCases interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req identityapp.UpdateProfileRequest) (*identityapp.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req identityapp.ChangePasswordRequest) error
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]identity.Address, error)
	AddAddress(ctx context.Context, userID uuid.UUID, req identityapp.AddressRequest) (*identity.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, req identityapp.AddressRequest) (*identity.Address, error)
	RemoveAddress(ctx context.Context, userID, addressID uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) ([]identity.Address, error)
}

// AccountHandler serves the signed-in customer's profile and address book
type AccountHandler struct {
	BaseHandler
	accounts AccountUseCases
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts AccountUseCases) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GetProfile godoc
// @Summary      Get my profile
// @Tags         account
// @Produce      json
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/me [get]
func (h *AccountHandler) GetProfile(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	profile, err := h.accounts.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, profile)
}

// UpdateProfile godoc
// @Summary      Update my profile
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body identityapp.UpdateProfileRequest true "Profile fields"
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/me [put]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identityapp.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	profile, err := h.accounts.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, profile)
}

// ChangePassword godoc
// @Summary      Change my password
// @Description  Replaces the password and signs out every other session
// @Tags         account
// @Accept       json
// @Param        request body identityapp.ChangePasswordRequest true "Current and new password"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/password [put]
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identityapp.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), userID, req); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// ListAddresses godoc
// @Summary      List my addresses
// @Tags         account
// @Produce      json
// @Success      200 {object} APIResponse[[]identity.Address]
// @Security     BearerAuth
// @Router       /account/addresses [get]
func (h *AccountHandler) ListAddresses(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	addresses, err := h.accounts.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, addresses)
}

// AddAddress godoc
// @Summary      Add an address
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body identityapp.AddressRequest true "Address"
// @Success      201 {object} APIResponse[identity.Address]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/addresses [post]
func (h *AccountHandler) AddAddress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identityapp.AddressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	address, err := h.accounts.AddAddress(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, address)
}

// UpdateAddress godoc
// @Summary      Replace an address
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        id path string true "Address ID" format(uuid)
// @Param        request body identityapp.AddressRequest true "Address"
// @Success      200 {object} APIResponse[identity.Address]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/addresses/{id} [put]
func (h *AccountHandler) UpdateAddress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	addressID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identityapp.AddressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	address, err := h.accounts.UpdateAddress(c.Request.Context(), userID, addressID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, address)
}

// RemoveAddress godoc
// @Summary      Remove an address
// @Tags         account
// @Param        id path string true "Address ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/addresses/{id} [delete]
func (h *AccountHandler) RemoveAddress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	addressID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.RemoveAddress(c.Request.Context(), userID, addressID); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// SetDefaultAddress godoc
// @Summary      Make an address the default
// @Tags         account
// @Produce      json
// @Param        id path string true "Address ID" format(uuid)
// @Success      200 {object} APIResponse[[]identity.Address]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /account/addresses/{id}/default [post]
func (h *AccountHandler) SetDefaultAddress(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	addressID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	addresses, err := h.accounts.SetDefaultAddress(c.Request.Context(), userID, addressID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, addresses)
}
