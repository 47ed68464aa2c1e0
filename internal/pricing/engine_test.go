package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/pricing"
)

func money(v pricing.Money) *pricing.Money { return &v }

func TestTotal(t *testing.T) {
	items := []pricing.Item{
		{Qty: 2, UnitPrice: money(1500)},
		{Qty: 1},
		{Qty: 0, UnitPrice: money(99999)},
	}
	require.EqualValues(t, 2*1500+4000, pricing.Total(true, items, 4000))
	require.EqualValues(t, 0, pricing.Total(true, nil, 4000))
	require.EqualValues(t, 4000, pricing.Total(false, items, 4000))
	require.EqualValues(t, 4000, pricing.Total(false, nil, 4000))
}

func TestTotalZeroPriceUsesBase(t *testing.T) {
	require.EqualValues(t, 3*4000, pricing.Total(true, []pricing.Item{{Qty: 3, UnitPrice: money(0)}}, 4000))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "1,234,567", pricing.Format(1234567))
	require.Equal(t, "0", pricing.Format(0))
	require.Equal(t, "999", pricing.Format(999))

	f := pricing.NewFormatter("ko-KR", "원")
	require.Equal(t, "3,000", f.Format(3000))
	require.Equal(t, "3,000원", f.WithSuffix(3000))

	fallback := pricing.NewFormatter("", "")
	require.Equal(t, "12,000", fallback.Format(12000))
}
