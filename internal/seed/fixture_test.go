package seed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFixture(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	require.Equal(t, "admin", f.Admin.Username)
	require.Len(t, f.Categories, 3)
	require.Equal(t, 6, f.ProductCount())
	require.True(t, f.Categories[0].Perishable)
	require.Equal(t, "FOOD001", f.Categories[0].Products[0].SKU)
	require.Equal(t, []int{30, 60, 90}, f.Forecasts.OffsetsDays)
	require.Equal(t, 3, f.Stock.BatchesPerProduct)
}

func TestParseRejectsBadRanges(t *testing.T) {
	_, err := Parse([]byte(`
admin: {username: a, password: b}
locations: [X]
stock:
  quantity: {min: 10, max: 1}
`))
	require.Error(t, err)
}

func TestParseRejectsMissingAdmin(t *testing.T) {
	_, err := Parse([]byte(`locations: [X]`))
	require.ErrorContains(t, err, "admin")
}
