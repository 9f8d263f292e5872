package orders

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const serviceName = "orders"

// Place converts the caller's cart into an order.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		actor, err := actorFromContext(r)
		if err != nil {
			return err
		}
		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}

		order, err := svc.PlaceOrder(r.Context(), actor, internalorders.PlaceOrderInput{
			ShippingAddress:    body.ShippingAddress,
			PaymentMethod:      body.PaymentMethod,
			ExternalPaymentRef: validators.Clip(body.PaymentIntentID, 255),
		})
		if err != nil {
			return err
		}
		writeOrder(w, http.StatusCreated, order)
		return nil
	})
}

// List returns every order of the caller, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		actor, err := actorFromContext(r)
		if err != nil {
			return err
		}
		mine, err := svc.GetOrdersForOwner(r.Context(), actor)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, mine)
		return nil
	})
}

// Detail returns one order; only the owner or an admin may read it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		actor, err := actorFromContext(r)
		if err != nil {
			return err
		}
		id, err := orderIDParam(r)
		if err != nil {
			return err
		}
		order, err := svc.GetOrder(r.Context(), id, actor)
		if err != nil {
			return err
		}
		writeOrder(w, http.StatusOK, order)
		return nil
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.CancelOrder)
}

func RequestReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, internalorders.Service.RequestReturn)
}

// transition serves body-less order commands addressed by path and If-Match.
func transition(svc internalorders.Service, logg *logger.Logger, apply func(internalorders.Service, context.Context, internalorders.Command) (internalorders.Order, error)) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable(serviceName)
		}
		cmd, err := buildCommand(r, nil)
		if err != nil {
			return err
		}
		order, err := apply(svc, r.Context(), cmd)
		if err != nil {
			return err
		}
		writeOrder(w, http.StatusOK, order)
		return nil
	})
}

// writeOrder renders order with its version as the entity tag.
func writeOrder(w http.ResponseWriter, status int, order internalorders.Order) {
	setETag(w, order)
	responses.WriteSuccessStatus(w, status, order)
}
