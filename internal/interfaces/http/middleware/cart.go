package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// Cart owner keys
const (
	CartOwnerKey    = "cart_owner"
	CartTokenCookie = "cart_token"
)

// CartOwnerConfig configures CartOwner
type CartOwnerConfig struct {
	// IssueToken mints a guest token when an anonymous request has none
	IssueToken bool
	NewToken   func() string
	// CookieMaxAge mirrors the guest token into a cookie when positive
	CookieMaxAge time.Duration
}

// CartOwner resolves whose cart a request works on. Signed-in users own
// their user cart. Anonymous requests use the X-Cart-Token header or the
// cart_token cookie; without either the request fails with 401 unless
// IssueToken is set. It must run after OptionalJWTAuth.
func CartOwner(cfg CartOwnerConfig) gin.HandlerFunc {
	if cfg.NewToken == nil {
		cfg.NewToken = uuid.NewString
	}
	return func(c *gin.Context) {
		if userID := GetJWTUserID(c); userID != uuid.Nil {
			c.Set(CartOwnerKey, cart.UserOwner(userID))
			c.Next()
			return
		}

		token := c.GetHeader(CartTokenHeader)
		if token == "" {
			token, _ = c.Cookie(CartTokenCookie)
		}
		if token != "" {
			if _, err := uuid.Parse(token); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeBadRequest, "Invalid cart token", GetRequestID(c)))
				return
			}
		} else {
			if !cfg.IssueToken {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeUnauthorized, "Sign in or send an X-Cart-Token header", GetRequestID(c)))
				return
			}
			token = cfg.NewToken()
		}

		c.Header(CartTokenHeader, token)
		if cfg.CookieMaxAge > 0 {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CartTokenCookie, token, int(cfg.CookieMaxAge.Seconds()), "/", "", false, true)
		}
		c.Set(CartOwnerKey, cart.GuestOwner(token))
		c.Next()
	}
}

// GetCartOwner returns the owner resolved by CartOwner
func GetCartOwner(c *gin.Context) string {
	return c.GetString(CartOwnerKey)
}

// GetCartToken returns the guest token of an anonymous request, if any
func GetCartToken(c *gin.Context) string {
	if token := c.GetHeader(CartTokenHeader); token != "" {
		return token
	}
	token, _ := c.Cookie(CartTokenCookie)
	return token
}
