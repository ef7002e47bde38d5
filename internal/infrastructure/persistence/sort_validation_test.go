package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase asc", "asc", "ASC"},
		{"padded asc", "  ASC ", "ASC"},
		{"desc", "desc", "DESC"},
		{"empty defaults to DESC", "", "DESC"},
		{"injection attempt", "ASC; DROP TABLE products", "DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	t.Run("maps public key to column", func(t *testing.T) {
		assert.Equal(t, "base_price", ValidateSortField("price", ProductSortFields, "created_at"))
	})
	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, "name", ValidateSortField("NAME", ProductSortFields, "created_at"))
	})
	t.Run("unknown falls back", func(t *testing.T) {
		assert.Equal(t, "created_at", ValidateSortField("password_hash", UserSortFields, "created_at"))
	})
	t.Run("empty falls back", func(t *testing.T) {
		assert.Equal(t, "created_at", ValidateSortField("", OrderSortFields, "created_at"))
	})
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "base_price ASC", orderClause("price", "asc", ProductSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("1=1", "", ProductSortFields, "created_at"))
}
