package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shoplane/storefront-backend/pkg/enums"
)

func TestDeriveFinalPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		base         string
		discountType enums.DiscountType
		value        string
		want         string
	}{
		{name: "none keeps base", base: "1000", discountType: enums.DiscountTypeNone, value: "0", want: "1000"},
		{name: "percent ten", base: "1000", discountType: enums.DiscountTypePercent, value: "10", want: "900"},
		{name: "percent rounds", base: "19.99", discountType: enums.DiscountTypePercent, value: "15", want: "16.99"},
		{name: "percent clamps at hundred", base: "500", discountType: enums.DiscountTypePercent, value: "250", want: "0"},
		{name: "flat subtracts", base: "1000", discountType: enums.DiscountTypeFlat, value: "100", want: "900"},
		{name: "flat clamps at zero", base: "50", discountType: enums.DiscountTypeFlat, value: "80", want: "0"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := deriveFinalPrice(
				decimal.RequireFromString(tc.base),
				tc.discountType,
				decimal.RequireFromString(tc.value),
			)
			want := decimal.RequireFromString(tc.want)
			if !got.Equal(want) {
				t.Fatalf("deriveFinalPrice = %s, want %s", got, want)
			}
			if got.IsNegative() {
				t.Fatalf("final price went negative: %s", got)
			}
			if got.Exponent() < -2 {
				t.Fatalf("more than two decimal places: %s", got)
			}
		})
	}
}
