package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/storefront-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// cartOp mutates or reads the cart of owner.
type cartOp func(ctx context.Context, owner string, r *http.Request) (cartsvc.Cart, error)

// CartFetch returns the caller's cart; an owner without one gets an empty cart.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(ctx context.Context, owner string, _ *http.Request) (cartsvc.Cart, error) {
		return svc.GetCart(ctx, owner)
	})
}

// CartAddItem consolidates a product into the caller's cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(ctx context.Context, owner string, r *http.Request) (cartsvc.Cart, error) {
		var body cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cartsvc.Cart{}, err
		}
		return svc.AddItem(ctx, owner, types.LineItem{
			ProductID: body.ProductID,
			Name:      validators.Clip(body.Name, 200),
			ImageRef:  strings.TrimSpace(body.ImageRef),
			Quantity:  body.Quantity,
			UnitPrice: body.UnitPrice,
		})
	})
}

// CartSetQuantity overwrites the quantity of one product line.
func CartSetQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(ctx context.Context, owner string, r *http.Request) (cartsvc.Cart, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return cartsvc.Cart{}, err
		}
		var body cartdto.SetQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cartsvc.Cart{}, err
		}
		return svc.SetQuantity(ctx, owner, productID, *body.Quantity)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(ctx context.Context, owner string, r *http.Request) (cartsvc.Cart, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return cartsvc.Cart{}, err
		}
		return svc.RemoveItem(ctx, owner, productID)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable("cart")
		}
		owner, err := ownerFromContext(r)
		if err != nil {
			return err
		}
		if err := svc.ClearCart(r.Context(), owner); err != nil {
			return err
		}
		responses.WriteNoContent(w)
		return nil
	})
}

// serve resolves the owner, runs op and renders the resulting cart.
func serve(svc cartsvc.Service, logg *logger.Logger, op cartOp) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable("cart")
		}
		owner, err := ownerFromContext(r)
		if err != nil {
			return err
		}
		record, err := op(r.Context(), owner, r)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, newCartResponse(record))
		return nil
	})
}

func ownerFromContext(r *http.Request) (string, error) {
	if email := middleware.EmailFromContext(r.Context()); email != "" {
		return email, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
}

func productIDParam(r *http.Request) (string, error) {
	if id := strings.TrimSpace(chi.URLParam(r, "productId")); id != "" {
		return id, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
}
