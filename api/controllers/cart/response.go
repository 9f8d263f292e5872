package cart

import (
	cartdto "github.com/angelmondragon/storefront-backend/api/controllers/cart/dto"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
)

func newCartResponse(c cartsvc.Cart) cartdto.Cart {
	items := make([]cartdto.CartItem, 0, len(c.Items))
	count := 0
	for _, item := range c.Items {
		items = append(items, cartdto.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageRef:  item.ImageRef,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
		count += item.Quantity
	}

	resp := cartdto.Cart{
		OwnerEmail: c.OwnerEmail,
		Items:      items,
		ItemCount:  count,
		Total:      c.Total(),
	}
	// unsaved carts have no identity yet
	if c.Persisted() {
		id := c.ID
		updated := c.UpdatedAt
		resp.ID = &id
		resp.UpdatedAt = &updated
	}
	return resp
}
