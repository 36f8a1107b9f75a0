package store

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name     string
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		// 40 * 1.18 + 2 = 49.2, rounded to 49
		{"below free shipping floor", "40", "7.2", "2", "49"},
		// exactly at the floor, shipping waived
		{"at free shipping floor", "50", "9", "0", "59"},
		{"above free shipping floor", "100", "18", "0", "118"},
		{"rounds to nearest unit", "45", "8.1", "2", "55"},
		{"zero subtotal", "0", "0", "2", "2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subtotal, err := decimal.NewFromString(tc.subtotal)
			if err != nil {
				t.Fatalf("parse subtotal: %v", err)
			}

			tax, shipping, total := computeTotals(subtotal)

			if want, _ := decimal.NewFromString(tc.tax); !tax.Equal(want) {
				t.Errorf("tax: got %s, want %s", tax, want)
			}
			if want, _ := decimal.NewFromString(tc.shipping); !shipping.Equal(want) {
				t.Errorf("shipping: got %s, want %s", shipping, want)
			}
			if want, _ := decimal.NewFromString(tc.total); !total.Equal(want) {
				t.Errorf("total: got %s, want %s", total, want)
			}
		})
	}
}

func TestFilterWhereClause(t *testing.T) {
	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(100)
	rating := decimal.NewFromFloat(4)

	filter := ProductFilter{
		Availability: AvailabilityInStock,
		PriceMin:     &min,
		PriceMax:     &max,
		Category:     "electronics",
		MinRating:    &rating,
		Search:       "headphones",
	}

	where, args := filter.whereClause()

	want := "WHERE stock > 5 AND price BETWEEN $1 AND $2 AND category ILIKE $3 AND ratings >= $4 AND (name ILIKE $5 OR description ILIKE $5)"
	if where != want {
		t.Errorf("where clause:\n got  %q\n want %q", where, want)
	}
	if len(args) != 5 {
		t.Errorf("expected 5 args, got %d", len(args))
	}
}

func TestFilterWhereClauseEmpty(t *testing.T) {
	where, args := ProductFilter{}.whereClause()
	if where != "" {
		t.Errorf("expected empty where clause, got %q", where)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %d", len(args))
	}
}
