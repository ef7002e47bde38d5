package identity

import (
	"strings"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// MaxAddresses caps the size of a user's address book
const MaxAddresses = 10

// Address is a shipping address stored in the user's address book
type Address struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label,omitempty"`
	Recipient  string    `json:"recipient"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	Region     string    `json:"region,omitempty"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone,omitempty"`
	IsDefault  bool      `json:"is_default"`
}

// Validate checks the required fields and normalizes the country code
func (a *Address) Validate() error {
	a.Recipient = strings.TrimSpace(a.Recipient)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))

	switch {
	case a.Recipient == "":
		return shared.NewDomainError("INVALID_ADDRESS", "Recipient is required")
	case a.Line1 == "":
		return shared.NewDomainError("INVALID_ADDRESS", "Address line 1 is required")
	case a.City == "":
		return shared.NewDomainError("INVALID_ADDRESS", "City is required")
	case a.PostalCode == "":
		return shared.NewDomainError("INVALID_ADDRESS", "Postal code is required")
	case len(a.Country) != 2:
		return shared.NewDomainError("INVALID_ADDRESS", "Country must be a 2-letter ISO code")
	}
	return nil
}
