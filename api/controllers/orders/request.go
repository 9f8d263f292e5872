package orders

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type placeOrderRequest struct {
	ShippingAddress types.Address `json:"shippingAddress" validate:"required"`
	PaymentMethod   string        `json:"paymentMethod" validate:"required,payment_method"`
	PaymentIntentID string        `json:"paymentIntentId" validate:"required,max=255"`
}

type updateStatusRequest struct {
	Status  string `json:"status" validate:"required,order_status"`
	Version *int64 `json:"version" validate:"omitempty,min=1"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,payment_status"`
	Version       *int64 `json:"version" validate:"omitempty,min=1"`
}

type updateShippingAddressRequest struct {
	ShippingAddress types.Address `json:"shippingAddress" validate:"required"`
	Version         *int64        `json:"version" validate:"omitempty,min=1"`
}

func actorFromContext(r *http.Request) (internalorders.Actor, error) {
	email := middleware.EmailFromContext(r.Context())
	if email == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}
	return internalorders.Actor{Email: email, Role: middleware.RoleFromContext(r.Context())}, nil
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

// parseIfMatch reads the expected order version from If-Match. Both strong
// and weak entity tags are accepted; "*" means any version.
func parseIfMatch(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "If-Match must carry an order version")
	}
	return &version, nil
}

// buildCommand resolves the addressed order, the actor and the expected
// version. A version in the body wins over If-Match.
func buildCommand(r *http.Request, bodyVersion *int64) (internalorders.Command, error) {
	id, err := orderIDParam(r)
	if err != nil {
		return internalorders.Command{}, err
	}
	actor, err := actorFromContext(r)
	if err != nil {
		return internalorders.Command{}, err
	}
	expected := bodyVersion
	if expected == nil {
		if expected, err = parseIfMatch(r); err != nil {
			return internalorders.Command{}, err
		}
	}
	return internalorders.Command{OrderID: id, Actor: actor, ExpectedVersion: expected}, nil
}

func setETag(w http.ResponseWriter, order internalorders.Order) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(order.Version, 10)))
}
