package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService        = "order-service"
	useCaseOrderCreate  = "order.create"
	useCaseOrderAddItem = "order.add_item"
	useCaseOrderRemove  = "order.remove_item"
	useCaseOrderClose   = "order.close"
	useCaseOrderGet     = "order.get"
)

var (
	ErrConflict        = domain.ErrConflict
	ErrNotFound        = domain.ErrNotFound
	ErrProductNotFound = catalog.ErrNotFound
	ErrRepository      = errors.New("order: repository failure")
)

// Service runs the purchase order use cases. Every mutation goes through the
// repository's Update so writers of one order are serialized.
type Service struct {
	orders    domain.Repository
	products  catalog.Repository
	ids       IDGenerator
	clock     Clock
	publisher domoutbox.Publisher
	ins       *application.Instruments
}

func NewService(
	orders domain.Repository,
	products catalog.Repository,
	ids IDGenerator,
	clock Clock,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		ins:       application.NewInstruments(tel, orderService),
	}
}

type CreateInput struct {
	Customer customer.Customer
}

func (s *Service) Create(ctx context.Context, in CreateInput) (_ *domain.PurchaseOrder, err error) {
	ctx, run := s.ins.Start(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.customer_email", in.Customer.Email),
	)
	defer func() { run.End(err) }()

	if err := in.Customer.Validate(); err != nil {
		run.Fail("CUSTOMER_INVALID")
		return nil, application.Validation(err)
	}
	if err := run.CheckContext(ctx); err != nil {
		return nil, err
	}

	entity, derr := domain.New(s.ids.NewID(), in.Customer, s.clock.Now())
	if derr != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, fmt.Errorf("order: construct: %w", derr)
	}
	if err := s.orders.Insert(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	run.Annotate(observability.F("order_id", entity.ID))
	run.Span().AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)
	return entity, nil
}

type AddItemInput struct {
	OrderID   string
	ProductID string
	Quantity  int
}

// AddItem looks the product up in the catalog and adds a snapshot of it to the
// order. Quantities of a product already on the order are summed.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (_ *domain.PurchaseOrder, err error) {
	ctx, run := s.ins.Start(ctx, useCaseOrderAddItem, "AddItem",
		attribute.String("order.id", in.OrderID),
		attribute.String("order.product_id", in.ProductID),
		attribute.Int("order.quantity", in.Quantity),
	)
	defer func() { run.End(err) }()
	run.Annotate(observability.F("order_id", in.OrderID))

	if in.OrderID == "" || in.ProductID == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("order id and product id are required")
	}
	if in.Quantity <= 0 {
		run.Fail("QUANTITY_INVALID")
		return nil, application.Validation(domain.ErrInvalidQuantity)
	}
	if err := run.CheckContext(ctx); err != nil {
		return nil, err
	}

	product, perr := s.products.Get(ctx, in.ProductID)
	if perr != nil {
		if errors.Is(perr, catalog.ErrNotFound) {
			run.Fail("PRODUCT_NOT_FOUND")
			return nil, ErrProductNotFound
		}
		run.Fail("CATALOG_LOOKUP_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, perr)
	}

	updated, uerr := s.orders.Update(ctx, in.OrderID, func(o *domain.PurchaseOrder) error {
		return o.AddItem(product, in.Quantity, s.clock.Now())
	})
	if uerr != nil {
		run.Fail(statusFor(uerr))
		return nil, wrapRepositoryError(uerr)
	}

	run.Annotate(observability.F("total", updated.Total()))
	return updated, nil
}

type RemoveItemInput struct {
	OrderID   string
	ProductID string
}

func (s *Service) RemoveItem(ctx context.Context, in RemoveItemInput) (_ *domain.PurchaseOrder, err error) {
	ctx, run := s.ins.Start(ctx, useCaseOrderRemove, "RemoveItem",
		attribute.String("order.id", in.OrderID),
		attribute.String("order.product_id", in.ProductID),
	)
	defer func() { run.End(err) }()
	run.Annotate(observability.F("order_id", in.OrderID))

	if in.OrderID == "" || in.ProductID == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("order id and product id are required")
	}

	updated, uerr := s.orders.Update(ctx, in.OrderID, func(o *domain.PurchaseOrder) error {
		return o.RemoveItem(in.ProductID, s.clock.Now())
	})
	if uerr != nil {
		run.Fail(statusFor(uerr))
		return nil, wrapRepositoryError(uerr)
	}

	run.Annotate(observability.F("total", updated.Total()))
	return updated, nil
}

// Close stops the order from accepting changes and announces order.closed.
func (s *Service) Close(ctx context.Context, orderID string) (_ *domain.PurchaseOrder, err error) {
	ctx, run := s.ins.Start(ctx, useCaseOrderClose, "CloseOrder",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()
	run.Annotate(observability.F("order_id", orderID))

	if orderID == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("order id is required")
	}

	closed, uerr := s.orders.Update(ctx, orderID, func(o *domain.PurchaseOrder) error {
		return o.Close(s.clock.Now())
	})
	if uerr != nil {
		run.Fail(statusFor(uerr))
		return nil, wrapRepositoryError(uerr)
	}

	if perr := s.ins.Publish(ctx, s.publisher, domain.NewOrderClosedEvent(closed)); perr != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.Annotate(observability.F("event_publish_error", perr.Error()))
	}
	run.Span().AddEvent("order.closed",
		trace.WithAttributes(attribute.Int64("order.total", closed.Total())),
	)
	return closed, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (_ *domain.PurchaseOrder, err error) {
	ctx, run := s.ins.Start(ctx, useCaseOrderGet, "GetOrder",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	if orderID == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("order id is required")
	}
	o, gerr := s.orders.Get(ctx, orderID)
	if gerr != nil {
		run.Fail(statusFor(gerr))
		return nil, wrapRepositoryError(gerr)
	}
	return o, nil
}

// statusFor names the failure for logs and span status.
func statusFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrOrderClosed):
		return "ORDER_CLOSED"
	case errors.Is(err, domain.ErrAlreadyClosed):
		return "ORDER_ALREADY_CLOSED"
	case errors.Is(err, domain.ErrEmptyOrder):
		return "ORDER_EMPTY"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "QUANTITY_INVALID"
	case errors.Is(err, domain.ErrAmountOverflow):
		return "AMOUNT_OVERFLOW"
	case errors.Is(err, domain.ErrProductInactive):
		return "PRODUCT_INACTIVE"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "REPO_UPDATE_FAILED"
	}
}

// wrapRepositoryError passes domain rule violations through and marks
// everything else as a repository failure.
func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict
	case errors.Is(err, domain.ErrOrderClosed),
		errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrAmountOverflow),
		errors.Is(err, domain.ErrProductInactive),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
