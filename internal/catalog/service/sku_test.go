package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSKU_Format(t *testing.T) {
	skuPattern := regexp.MustCompile(`^ELE-[0-9A-Z]{1,5}-[0-9A-F]{4}$`)

	sku := GenerateSKU("ELE")
	assert.Regexp(t, skuPattern, sku)
}

func TestGenerateSKU_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		sku := GenerateSKU("PRD")
		assert.False(t, seen[sku], "duplicate sku %s", sku)
		seen[sku] = true
	}
}

func TestDeriveVariantSKU_FromAttributes(t *testing.T) {
	tests := []struct {
		name       string
		parent     string
		variant    string
		attributes map[string]string
		want       string
	}{
		{
			name:       "sorted attribute codes",
			parent:     "ELE-ABC12-DEAD",
			variant:    "Red / Large",
			attributes: map[string]string{"size": "Large", "color": "Red"},
			want:       "ELE-ABC12-DEAD-RED-LAR",
		},
		{
			name:    "name fallback without attributes",
			parent:  "ELE-ABC12-DEAD",
			variant: "Special Edition",
			want:    "ELE-ABC12-DEAD-SPEC",
		},
		{
			name:       "non-alphanumeric attribute value",
			parent:     "P",
			variant:    "v",
			attributes: map[string]string{"finish": "---"},
			want:       "P-X",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveVariantSKU(tt.parent, tt.variant, tt.attributes)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSKUCode(t *testing.T) {
	assert.Equal(t, "ELE", skuCode("Electronics", 3, "PRD"))
	assert.Equal(t, "PRD", skuCode("!!!", 3, "PRD"))
	assert.Equal(t, "A1", skuCode("a-1", 3, "PRD"))
}
