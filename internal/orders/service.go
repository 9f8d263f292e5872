package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartInvalidator interface {
	Invalidate(ctx context.Context, owner string)
}

// Command addresses one order on behalf of an actor. ExpectedVersion, when
// set, must match the stored version or the command is rejected untouched.
type Command struct {
	OrderID         uuid.UUID
	Actor           Actor
	ExpectedVersion *int64
}

// Service coordinates order persistence, events and refunds around the pure
// state machine.
type Service interface {
	PlaceOrder(ctx context.Context, actor Actor, input PlaceOrderInput) (Order, error)
	GetOrdersForOwner(ctx context.Context, actor Actor) ([]Order, error)
	GetOrder(ctx context.Context, id uuid.UUID, actor Actor) (Order, error)
	CancelOrder(ctx context.Context, cmd Command) (Order, error)
	RequestReturn(ctx context.Context, cmd Command) (Order, error)
	ApproveReturn(ctx context.Context, cmd Command) (Order, error)
	UpdateOrderStatus(ctx context.Context, cmd Command, status string) (Order, error)
	UpdatePaymentStatus(ctx context.Context, cmd Command, status string) (Order, error)
	ConfirmPayment(ctx context.Context, paymentRef string) (Order, error)
	UpdateShippingAddress(ctx context.Context, cmd Command, addr types.Address) (Order, error)
	DeleteOrder(ctx context.Context, cmd Command) error
	ListOrders(ctx context.Context, actor Actor, query ListQuery) (*ListResult, error)
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Carts    cart.Repository
	CartSync cartInvalidator
	Tx       txRunner
	Outbox   outboxEmitter
	Refunds  payments.RefundGateway
	Logger   *logger.Logger
	Metrics  *metrics.StoreMetrics
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	carts    cart.Repository
	cartSync cartInvalidator
	tx       txRunner
	outbox   outboxEmitter
	refunds  payments.RefundGateway
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
	now      func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		cartSync: params.CartSync,
		tx:       params.Tx,
		outbox:   params.Outbox,
		refunds:  params.Refunds,
		logg:     logg,
		metrics:  params.Metrics,
		now:      clock,
	}, nil
}

// PlaceOrder converts the actor's cart into an order, emits order_created and
// deletes the cart, all in one transaction.
func (s *service) PlaceOrder(ctx context.Context, actor Actor, input PlaceOrderInput) (Order, error) {
	owner, err := requireActor(actor)
	if err != nil {
		return Order{}, err
	}

	var placed Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		record, err := carts.FindByOwner(ctx, owner)
		if isNotFound(err) {
			return ErrCartEmpty
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		order, err := NewOrderFromCart(cart.FromModel(record), input, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, toModel(order)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := s.emit(ctx, tx, actor, order.ID, enums.EventOrderCreated, payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OwnerEmail:    order.OwnerEmail,
			TotalPrice:    order.TotalPrice,
			PaymentMethod: order.PaymentMethod,
			ItemCount:     len(order.Items),
		}); err != nil {
			return err
		}
		if _, err := carts.DeleteByOwner(ctx, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		placed = order
		return nil
	})
	s.record(ctx, "place_order", err)
	if err != nil {
		return Order{}, err
	}

	if s.cartSync != nil {
		s.cartSync.Invalidate(ctx, owner)
	}
	s.logg.Info(s.logg.WithOrderID(ctx, placed.ID.String()), "order placed")
	return placed, nil
}

// GetOrdersForOwner lists the actor's own orders, newest first.
func (s *service) GetOrdersForOwner(ctx context.Context, actor Actor) ([]Order, error) {
	owner, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]Order, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// GetOrder returns one order to its owner or to an admin.
func (s *service) GetOrder(ctx context.Context, id uuid.UUID, actor Actor) (Order, error) {
	if _, err := requireActor(actor); err != nil {
		return Order{}, err
	}
	order, err := s.load(ctx, s.repo, Command{OrderID: id, Actor: actor})
	if err != nil {
		return Order{}, err
	}
	if !actor.IsAdmin() && !actor.Owns(order) {
		return Order{}, ErrNotOwner
	}
	return order, nil
}

func (s *service) CancelOrder(ctx context.Context, cmd Command) (Order, error) {
	return s.transition(ctx, cmd, "cancel", func(o Order) (Order, error) {
		return Cancel(o, cmd.Actor)
	}, statusChanged("cancel"))
}

func (s *service) RequestReturn(ctx context.Context, cmd Command) (Order, error) {
	return s.transition(ctx, cmd, "request_return", func(o Order) (Order, error) {
		return RequestReturn(o, cmd.Actor)
	}, statusChanged("request_return"))
}

// ApproveReturn refunds the order total through the gateway and, only when the
// refund is confirmed, records the order as RETURNED/REFUNDED. A failed refund
// leaves the order untouched.
func (s *service) ApproveReturn(ctx context.Context, cmd Command) (Order, error) {
	const operation = "approve_return"
	if err := requireAdmin(cmd.Actor); err != nil {
		s.record(ctx, operation, err)
		return Order{}, err
	}

	current, err := s.load(ctx, s.repo, cmd)
	if err != nil {
		s.record(ctx, operation, err)
		return Order{}, err
	}
	req, err := ApproveReturn(current)
	if err != nil {
		s.record(ctx, operation, err)
		return Order{}, err
	}
	next, err := CompleteReturn(current)
	if err != nil {
		s.record(ctx, operation, err)
		return Order{}, err
	}

	logCtx := s.logg.WithOrderID(ctx, current.ID.String())
	confirmation, err := s.refund(ctx, req)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidRefund) {
			err = ErrNotRefundable.WithCause(err)
		} else {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "refund failed; order left in return requested")
			err = ErrRefundFailed.WithCause(err)
		}
		s.record(ctx, operation, err)
		return Order{}, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		saved, err := s.save(ctx, tx, current, next)
		if err != nil {
			return err
		}
		next = saved
		return s.emit(ctx, tx, cmd.Actor, next.ID, enums.EventOrderRefunded, payloads.OrderRefundedEvent{
			OrderID:          next.ID,
			RefundID:         confirmation.RefundID,
			AmountMinorUnits: req.AmountMinorUnits,
			Version:          next.Version,
		})
	})
	s.record(ctx, operation, err)
	if err != nil {
		s.logg.Error(s.logg.WithField(logCtx, "refund_id", confirmation.RefundID), "refund issued but order update failed", err)
		return Order{}, err
	}
	s.logg.Info(s.logg.WithField(logCtx, "refund_id", confirmation.RefundID), "return approved and refunded")
	return next, nil
}

// refund calls the gateway unless the order total was zero, in which case
// there is no charge to reverse.
func (s *service) refund(ctx context.Context, req payments.RefundRequest) (payments.RefundConfirmation, error) {
	if req.AmountMinorUnits == 0 {
		return payments.RefundConfirmation{Status: "not_required"}, nil
	}
	return s.refunds.Refund(ctx, req)
}

func (s *service) UpdateOrderStatus(ctx context.Context, cmd Command, status string) (Order, error) {
	return s.adminTransition(ctx, cmd, "update_status", func(o Order) (Order, error) {
		return SetStatus(o, status)
	}, statusChanged("admin_override"))
}

func (s *service) UpdatePaymentStatus(ctx context.Context, cmd Command, status string) (Order, error) {
	return s.adminTransition(ctx, cmd, "update_payment_status", func(o Order) (Order, error) {
		return SetPaymentStatus(o, status)
	}, func(prev, next Order) (enums.OutboxEventType, any) {
		return enums.EventOrderPaymentStatusChanged, payloads.OrderPaymentStatusChangedEvent{
			OrderID: next.ID,
			From:    prev.PaymentStatus,
			To:      next.PaymentStatus,
			Version: next.Version,
		}
	})
}

// ConfirmPayment marks the order charged under paymentRef as PAID. Orders
// whose payment already left PENDING are returned as-is so provider retries
// stay harmless.
func (s *service) ConfirmPayment(ctx context.Context, paymentRef string) (Order, error) {
	ref := strings.TrimSpace(paymentRef)
	if ref == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	row, err := s.repo.FindByPaymentRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by payment ref")
	}
	current := FromModel(row)
	if current.PaymentStatus != enums.PaymentStatusPending {
		return current, nil
	}
	version := current.Version
	return s.UpdatePaymentStatus(ctx, Command{
		OrderID:         current.ID,
		Actor:           systemActor,
		ExpectedVersion: &version,
	}, string(enums.PaymentStatusPaid))
}

func (s *service) UpdateShippingAddress(ctx context.Context, cmd Command, addr types.Address) (Order, error) {
	return s.adminTransition(ctx, cmd, "update_shipping_address", func(o Order) (Order, error) {
		return SetShippingAddress(o, addr)
	}, func(_, next Order) (enums.OutboxEventType, any) {
		return enums.EventOrderShippingChanged, payloads.OrderShippingAddressChangedEvent{
			OrderID:         next.ID,
			ShippingAddress: next.ShippingAddress,
			Version:         next.Version,
		}
	})
}

// DeleteOrder removes an order. A missing order is reported as not found.
func (s *service) DeleteOrder(ctx context.Context, cmd Command) error {
	const operation = "delete"
	if err := requireAdmin(cmd.Actor); err != nil {
		s.record(ctx, operation, err)
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, cmd)
		if err != nil {
			return err
		}
		deleted, err := repo.Delete(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if !deleted {
			return ErrOrderNotFound
		}
		return s.emit(ctx, tx, cmd.Actor, current.ID, enums.EventOrderDeleted, payloads.OrderDeletedEvent{
			OrderID:    current.ID,
			OwnerEmail: current.OwnerEmail,
		})
	})
	s.record(ctx, operation, err)
	return err
}

// ListOrders pages through all orders for admins with optional filters.
func (s *service) ListOrders(ctx context.Context, actor Actor, query ListQuery) (*ListResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	filters := ListFilters{OwnerEmail: types.NormalizeEmail(query.Email)}
	if query.OrderStatus != "" {
		status, err := enums.ParseOrderStatus(query.OrderStatus)
		if err != nil {
			return nil, ErrInvalidStatus.WithDetails(map[string]any{"status": query.OrderStatus}).WithCause(err)
		}
		filters.OrderStatus = &status
	}
	if query.PaymentStatus != "" {
		status, err := enums.ParsePaymentStatus(query.PaymentStatus)
		if err != nil {
			return nil, ErrInvalidStatus.WithDetails(map[string]any{"paymentStatus": query.PaymentStatus}).WithCause(err)
		}
		filters.PaymentStatus = &status
	}

	result, err := s.repo.List(ctx, pagination.Params{Limit: query.Limit, Cursor: query.Cursor}, filters)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return result, nil
}

type eventBuilder func(prev, next Order) (enums.OutboxEventType, any)

func statusChanged(operation string) eventBuilder {
	return func(prev, next Order) (enums.OutboxEventType, any) {
		return enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
			OrderID:   next.ID,
			From:      prev.OrderStatus,
			To:        next.OrderStatus,
			Operation: operation,
			Version:   next.Version,
		}
	}
}

func (s *service) adminTransition(ctx context.Context, cmd Command, operation string, apply func(Order) (Order, error), event eventBuilder) (Order, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		s.record(ctx, operation, err)
		return Order{}, err
	}
	return s.transition(ctx, cmd, operation, apply, event)
}

// transition loads the order, applies a pure state change and persists it with
// a version check, staging the matching event in the same transaction.
func (s *service) transition(ctx context.Context, cmd Command, operation string, apply func(Order) (Order, error), event eventBuilder) (Order, error) {
	if _, err := requireActor(cmd.Actor); err != nil {
		s.record(ctx, operation, err)
		return Order{}, err
	}

	var result Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.load(ctx, s.repo.WithTx(tx), cmd)
		if err != nil {
			return err
		}
		next, err := apply(current)
		if err != nil {
			return err
		}
		saved, err := s.save(ctx, tx, current, next)
		if err != nil {
			return err
		}
		eventType, data := event(current, saved)
		if err := s.emit(ctx, tx, cmd.Actor, saved.ID, eventType, data); err != nil {
			return err
		}
		result = saved
		return nil
	})
	s.record(ctx, operation, err)
	if err != nil {
		return Order{}, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  result.ID.String(),
		"operation": operation,
		"status":    result.OrderStatus,
		"version":   result.Version,
	}), "order updated")
	return result, nil
}

func (s *service) load(ctx context.Context, repo Repository, cmd Command) (Order, error) {
	record, err := repo.FindByID(ctx, cmd.OrderID)
	if isNotFound(err) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	order := FromModel(record)
	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != order.Version {
		return Order{}, ErrVersionConflict.WithDetails(map[string]any{
			"expectedVersion": *cmd.ExpectedVersion,
			"currentVersion":  order.Version,
		})
	}
	return order, nil
}

func (s *service) save(ctx context.Context, tx *gorm.DB, current, next Order) (Order, error) {
	model := toModel(next)
	ok, err := s.repo.WithTx(tx).CompareAndSwap(ctx, model, current.Version)
	if err != nil {
		return Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}
	if !ok {
		return Order{}, ErrVersionConflict
	}
	next.Version = model.Version
	next.UpdatedAt = model.UpdatedAt
	return next, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, orderID uuid.UUID, eventType enums.OutboxEventType, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{Email: types.NormalizeEmail(actor.Email), Role: actor.Role.String()},
		Data:          data,
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage order event")
	}
	return nil
}

func (s *service) record(ctx context.Context, operation string, err error) {
	switch {
	case err == nil:
		s.metrics.IncTransition(operation, metrics.OutcomeSuccess)
	case pkgerrors.IsCode(err, pkgerrors.CodeDependency) || pkgerrors.As(err) == nil:
		s.metrics.IncTransition(operation, metrics.OutcomeFailure)
		if !errors.Is(err, ErrRefundFailed) {
			s.logg.Error(s.logg.WithField(ctx, "operation", operation), "order operation failed", err)
		}
	default:
		s.metrics.IncTransition(operation, metrics.OutcomeRejected)
	}
}

// systemActor performs provider-driven transitions such as webhook payment
// confirmations.
var systemActor = Actor{Email: "system@storefront.internal", Role: enums.UserRoleAdmin}

func requireActor(actor Actor) (string, error) {
	email := types.NormalizeEmail(actor.Email)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}
	return email, nil
}

func requireAdmin(actor Actor) error {
	if _, err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}
