package slug

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Wireless Mouse", "wireless-mouse"},
		{"Hello   World!", "hello-world"},
		{"  Trimmed  ", "trimmed"},
		{"Café Crème", "cafe-creme"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER & lower", "upper-lower"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.in))
		})
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{
		"wireless-mouse":   true,
		"wireless-mouse-1": true,
	}
	exists := func(_ context.Context, s string) (bool, error) {
		return taken[s], nil
	}

	got, err := Unique(context.Background(), "Wireless Mouse", exists)
	require.NoError(t, err)
	assert.Equal(t, "wireless-mouse-2", got)

	got, err = Unique(context.Background(), "USB Hub", exists)
	require.NoError(t, err)
	assert.Equal(t, "usb-hub", got)
}
