package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Linen Shirt", "linen-shirt"},
		{"  Café  Crème  ", "cafe-creme"},
		{"T-Shirt / V-Neck!!", "t-shirt-v-neck"},
		{"100% Cotton", "100-cotton"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}

	long := Slugify(strings.Repeat("ab ", 100))
	assert.LessOrEqual(t, len(long), maxSlugLength)
	assert.NoError(t, ValidateSlug(long))
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, ValidateSlug("summer-sale-2024"))
	assert.Error(t, ValidateSlug(""))
	assert.Error(t, ValidateSlug("Upper"))
	assert.Error(t, ValidateSlug("-leading"))
	assert.Error(t, ValidateSlug("double--dash"))
	assert.Error(t, ValidateSlug("under_score"))
}
