package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumLineItems(t *testing.T) {
	items := []LineItem{
		{ProductID: "p1", Quantity: 5, UnitPrice: decimal.RequireFromString("19.99")},
		{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("0.05")},
	}
	assert.True(t, SumLineItems(items).Equal(decimal.RequireFromString("100.00")))
	assert.True(t, SumLineItems(nil).Equal(decimal.Zero))
}

func TestCloneLineItemsDoesNotShareBackingArray(t *testing.T) {
	items := []LineItem{{ProductID: "p1", Quantity: 1}}
	cloned := CloneLineItems(items)
	cloned[0].Quantity = 9

	require.Equal(t, 1, items[0].Quantity)
	assert.Nil(t, CloneLineItems(nil))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
