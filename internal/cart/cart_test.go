package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func line(id string, qty int, price string) types.LineItem {
	return types.LineItem{ProductID: id, Name: "name-" + id, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestConsolidateMergesByProductID(t *testing.T) {
	t.Parallel()

	items := []types.LineItem{line("p1", 2, "10.00"), line("p2", 1, "5.00")}
	incoming := types.LineItem{ProductID: "p1", Name: "renamed", Quantity: 3, UnitPrice: decimal.RequireFromString("12.50")}

	got := Consolidate(items, incoming)

	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ProductID)
	assert.Equal(t, 5, got[0].Quantity)
	assert.Equal(t, "renamed", got[0].Name)
	assert.True(t, got[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 2, items[0].Quantity, "input slice must not be modified")
}

func TestConsolidateAppendsNewProduct(t *testing.T) {
	t.Parallel()

	got := Consolidate([]types.LineItem{line("p1", 1, "1.00")}, line("p2", 4, "2.00"))

	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[1].ProductID)
	assert.Equal(t, 4, got[1].Quantity)
}

func TestConsolidateKeepsProductIDsUnique(t *testing.T) {
	t.Parallel()

	var items []types.LineItem
	for _, id := range []string{"a", "b", "a", "c", "b", "a"} {
		items = Consolidate(items, line(id, 1, "1.00"))
	}

	seen := map[string]int{}
	for _, it := range items {
		seen[it.ProductID]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "product %s appears %d times", id, n)
	}
	a, ok := Cart{Items: items}.Find("a")
	require.True(t, ok)
	assert.Equal(t, 3, a.Quantity)
}

func TestSetQuantity(t *testing.T) {
	t.Parallel()

	items := []types.LineItem{line("p1", 2, "10.00"), line("p2", 1, "5.00")}

	cases := []struct {
		name      string
		productID string
		qty       int
		wantLen   int
		wantP1Qty int
	}{
		{name: "replaces quantity", productID: "p1", qty: 7, wantLen: 2, wantP1Qty: 7},
		{name: "zero removes", productID: "p1", qty: 0, wantLen: 1},
		{name: "negative removes", productID: "p1", qty: -3, wantLen: 1},
		{name: "absent product is a no-op", productID: "missing", qty: 4, wantLen: 2, wantP1Qty: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SetQuantity(items, tc.productID, tc.qty)
			require.Len(t, got, tc.wantLen)
			if tc.wantP1Qty > 0 {
				p1, ok := Cart{Items: got}.Find("p1")
				require.True(t, ok)
				assert.Equal(t, tc.wantP1Qty, p1.Quantity)
			} else {
				_, ok := Cart{Items: got}.Find("p1")
				assert.False(t, ok)
			}
		})
	}
	assert.Equal(t, 2, items[0].Quantity)
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	items := []types.LineItem{line("p1", 1, "1.00"), line("p2", 1, "1.00")}
	once := Remove(items, "p1")
	twice := Remove(once, "p1")

	assert.Equal(t, once, twice)
	require.Len(t, twice, 1)
	assert.Equal(t, "p2", twice[0].ProductID)
}

func TestValidateItem(t *testing.T) {
	t.Parallel()

	item, err := ValidateItem(types.LineItem{ProductID: "  p1 ", Quantity: 1, UnitPrice: decimal.Zero})
	require.NoError(t, err)
	assert.Equal(t, "p1", item.ProductID)
	assert.Equal(t, "p1", item.Name, "name defaults to the product id")

	_, err = ValidateItem(types.LineItem{ProductID: "p1", Quantity: 0, UnitPrice: decimal.Zero})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ValidateItem(types.LineItem{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ValidateItem(types.LineItem{Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidateItemBounds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		qty     int
		price   string
		wantErr bool
	}{
		{name: "max quantity", qty: MaxQuantity, price: "1.00"},
		{name: "over max quantity", qty: MaxQuantity + 1, price: "1.00", wantErr: true},
		{name: "trailing zeros", qty: 1, price: "10.500"},
		{name: "sub-cent price", qty: 1, price: "9.995", wantErr: true},
		{name: "max price", qty: 1, price: "1000000.00"},
		{name: "over max price", qty: 1, price: "1000000.01", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateItem(line("p1", tc.qty, tc.price))
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestCheckLineLimit(t *testing.T) {
	t.Parallel()

	merged := Consolidate([]types.LineItem{line("p1", MaxQuantity, "1.00")}, line("p1", 1, "1.00"))
	err := CheckLineLimit(merged)
	assert.ErrorIs(t, err, ErrQuantityLimit)
	assert.NoError(t, CheckLineLimit([]types.LineItem{line("p1", MaxQuantity, "1.00")}))
}

func TestCartTotal(t *testing.T) {
	t.Parallel()

	c := Cart{Items: []types.LineItem{line("p1", 2, "10.00"), line("p2", 3, "0.10")}}
	assert.True(t, c.Total().Equal(decimal.RequireFromString("20.30")))
	assert.False(t, c.IsEmpty())
	assert.True(t, EmptyCart(" A@B.com ").IsEmpty())
	assert.Equal(t, "a@b.com", EmptyCart(" A@B.com ").OwnerEmail)
	assert.False(t, EmptyCart("a@b.com").Persisted())
}
