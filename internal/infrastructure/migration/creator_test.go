package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add reviews table", "add_reviews_table"},
		{"Add-Reviews-Table", "add_reviews_table"},
		{"add__reviews__table", "add_reviews_table"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestListMigrations(t *testing.T) {
	src := fstest.MapFS{
		"000002_create_products.up.sql":   {},
		"000002_create_products.down.sql": {},
		"000001_create_categories.up.sql": {},
		"README.md":                       {},
		"notes.sql":                       {},
		"abc_bad.up.sql":                  {},
	}

	entries, err := ListMigrations(src)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Version: 1, Name: "create_categories"}, entries[0])
	assert.Equal(t, Entry{Version: 2, Name: "create_products", HasDown: true}, entries[1])
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i, e := range entries {
		assert.Equal(t, uint(i+1), e.Version, "versions are contiguous")
		assert.True(t, e.HasDown, "migration %d has a down file", e.Version)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create reviews", "Product reviews")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_reviews.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- create reviews")
	assert.Contains(t, string(up), "-- Product reviews")

	second, err := CreateMigration(dir, "add-review-index", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.FileExists(t, second.DownPath)

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}
