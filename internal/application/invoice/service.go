package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	dominvoice "github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	invoiceService    = "invoice-service"
	useCaseInvoiceGet = "invoice.get"
	useCaseForOrder   = "invoice.for_order"
)

var (
	ErrNotFound   = dominvoice.ErrNotFound
	ErrRepository = errors.New("invoice: repository failure")
)

type Service struct {
	invoices dominvoice.Repository
	ins      *application.Instruments
}

func NewService(invoices dominvoice.Repository, tel observability.Observability) *Service {
	return &Service{
		invoices: invoices,
		ins:      application.NewInstruments(tel, invoiceService),
	}
}

func (s *Service) Get(ctx context.Context, id string) (_ *dominvoice.Invoice, err error) {
	ctx, run := s.ins.Start(ctx, useCaseInvoiceGet, "GetInvoice",
		attribute.String("invoice.id", id),
	)
	defer func() { run.End(err) }()

	if id == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("invoice id is required")
	}
	inv, gerr := s.invoices.Get(ctx, id)
	if gerr != nil {
		if errors.Is(gerr, dominvoice.ErrNotFound) {
			run.Fail("INVOICE_NOT_FOUND")
			return nil, ErrNotFound
		}
		run.Fail("REPO_GET_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, gerr)
	}
	return inv, nil
}

// ForOrder lists the invoices issued for orderID, oldest first.
func (s *Service) ForOrder(ctx context.Context, orderID string) (_ []*dominvoice.Invoice, err error) {
	ctx, run := s.ins.Start(ctx, useCaseForOrder, "InvoicesForOrder",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	if orderID == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("order id is required")
	}
	list, lerr := s.invoices.ForOrder(ctx, orderID)
	if lerr != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, lerr)
	}
	run.Annotate(observability.F("count", len(list)))
	return list, nil
}
