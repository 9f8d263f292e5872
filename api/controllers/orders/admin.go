package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

var limitRange = validators.IntRange{Default: pagination.DefaultLimit, Min: 1, Max: pagination.MaxLimit}

// AdminList pages through all orders with optional owner and status filters.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		actor, err := actorFromContext(r)
		if err != nil {
			return err
		}
		limit, err := validators.QueryInt(r, "limit", limitRange)
		if err != nil {
			return err
		}

		query := r.URL.Query()
		param := func(key string) string { return strings.TrimSpace(query.Get(key)) }
		page, err := svc.ListOrders(r.Context(), actor, internalorders.ListQuery{
			Email:         param("email"),
			OrderStatus:   param("status"),
			PaymentStatus: param("paymentStatus"),
			Limit:         limit,
			Cursor:        param("cursor"),
		})
		if err != nil {
			return err
		}
		responses.WritePage(w, page.Orders, page.NextCursor)
		return nil
	})
}

// AdminApproveReturn refunds the payment and moves the order to RETURNED.
func AdminApproveReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.ApproveReturn)
}

func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return edit(svc, logg, func(r *http.Request, cmd internalorders.Command, body updateStatusRequest) (internalorders.Order, error) {
		return svc.UpdateOrderStatus(r.Context(), cmd, body.Status)
	})
}

func AdminUpdatePaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return edit(svc, logg, func(r *http.Request, cmd internalorders.Command, body updatePaymentStatusRequest) (internalorders.Order, error) {
		return svc.UpdatePaymentStatus(r.Context(), cmd, body.PaymentStatus)
	})
}

func AdminUpdateShippingAddress(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return edit(svc, logg, func(r *http.Request, cmd internalorders.Command, body updateShippingAddressRequest) (internalorders.Order, error) {
		return svc.UpdateShippingAddress(r.Context(), cmd, body.ShippingAddress)
	})
}

// AdminDelete removes an order outright.
func AdminDelete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		cmd, err := buildCommand(r, nil)
		if err != nil {
			return err
		}
		if err := svc.DeleteOrder(r.Context(), cmd); err != nil {
			return err
		}
		responses.WriteNoContent(w)
		return nil
	})
}

// versioned is a request body that may pin the expected order version.
type versioned interface {
	expectedVersion() *int64
}

func (b updateStatusRequest) expectedVersion() *int64          { return b.Version }
func (b updatePaymentStatusRequest) expectedVersion() *int64   { return b.Version }
func (b updateShippingAddressRequest) expectedVersion() *int64 { return b.Version }

// edit decodes body B and applies it to the addressed order.
func edit[B versioned](svc internalorders.Service, logg *logger.Logger, apply func(*http.Request, internalorders.Command, B) (internalorders.Order, error)) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		var body B
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		cmd, err := buildCommand(r, body.expectedVersion())
		if err != nil {
			return err
		}
		order, err := apply(r, cmd, body)
		if err != nil {
			return err
		}
		writeOrder(w, http.StatusOK, order)
		return nil
	})
}
