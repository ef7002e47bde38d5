package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC. Anything else
// becomes DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField maps a requested sort key onto a whitelisted column.
// Unknown or empty keys fall back to defaultField.
func ValidateSortField(sortField string, allowedFields map[string]string, defaultField string) string {
	if column, ok := allowedFields[strings.ToLower(strings.TrimSpace(sortField))]; ok {
		return column
	}
	return defaultField
}

// orderClause builds a safe ORDER BY expression
func orderClause(sortField, sortDir string, allowed map[string]string, defaultField string) string {
	return ValidateSortField(sortField, allowed, defaultField) + " " + ValidateSortOrder(sortDir)
}

// ProductSortFields maps public sort keys to product columns
var ProductSortFields = map[string]string{
	"name":       "name",
	"price":      "base_price",
	"base_price": "base_price",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"stock":      "total_stock",
}

// UserSortFields maps public sort keys to user columns
var UserSortFields = map[string]string{
	"email":         "email",
	"display_name":  "display_name",
	"created_at":    "created_at",
	"last_login_at": "last_login_at",
	"status":        "status",
}

// OrderSortFields maps public sort keys to order columns
var OrderSortFields = map[string]string{
	"number":     "number",
	"total":      "total",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}
