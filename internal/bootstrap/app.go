package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	appInvoice "github.com/Zhima-Mochi/minishop-checkout/internal/application/invoice"
	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	appPayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/clock"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/payment/gateway"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
)

type IDGenerator interface {
	NewID() string
}

// App is the wired service: repositories, use cases, event bus and workers.
type App struct {
	Config *config.Config

	Products *memory.ProductRepository
	Orders   *memory.OrderRepository
	Invoices *memory.InvoiceRepository

	OrderService    *appOrder.Service
	CheckoutService *checkout.Service
	InvoiceService  *appInvoice.Service
	Methods         *checkout.Methods
	PaymentLedger   *appPayment.Worker

	Bus     *outbox.Bus
	Catalog []catalog.Product

	tel observability.Observability
}

type options struct {
	gateway payment.Gateway
	clock   clock.Clock
	ids     IDGenerator
}

type Option func(*options)

// WithGateway replaces the simulated gateway built from config.
func WithGateway(g payment.Gateway) Option { return func(o *options) { o.gateway = g } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

func WithIDs(ids IDGenerator) Option { return func(o *options) { o.ids = ids } }

// New wires an App from cfg and seeds the catalog. The event bus is started;
// call Close to drain it.
func New(ctx context.Context, cfg *config.Config, tel observability.Observability, opts ...Option) (*App, error) {
	if tel == nil {
		tel = observability.Nop()
	}
	o := options{clock: clock.System{}, ids: id.NewUUIDGenerator()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.gateway == nil {
		o.gateway = gateway.NewSimulated(
			gateway.WithSuccessRate(cfg.Gateway.SuccessRate),
			gateway.WithLatency(cfg.Gateway.Latency),
		)
	}

	app := &App{
		Config:   cfg,
		Products: memory.NewProductRepository(),
		Orders:   memory.NewOrderRepository(),
		Invoices: memory.NewInvoiceRepository(),
		Bus:      outbox.NewBus(tel),
		tel:      tel,
	}

	seeded, err := SeedCatalog(ctx, app.Products, o.ids, tel.Logger())
	if err != nil {
		return nil, err
	}
	app.Catalog = seeded

	if sim, ok := o.gateway.(*gateway.Simulated); ok {
		tel.Logger().Info("payment_gateway_simulated",
			observability.F("success_rate", sim.SuccessRate()),
		)
	}

	app.OrderService = appOrder.NewService(app.Orders, app.Products, o.ids, o.clock, app.Bus, tel)
	app.CheckoutService = checkout.NewService(app.Orders, app.Invoices, o.ids, o.clock, app.Bus, RetryPolicy(cfg.Payment), tel)
	app.InvoiceService = appInvoice.NewService(app.Invoices, tel)
	app.Methods = checkout.NewMethods(o.gateway, cfg.Locale.CurrencyCode(), o.clock)

	app.PaymentLedger = appPayment.NewWorker(app.Bus, tel)
	app.PaymentLedger.Start()
	app.Bus.Start(ctx)

	return app, nil
}

// RetryPolicy turns the payment section of the configuration into a checkout
// retry policy.
func RetryPolicy(cfg config.PaymentConfig) checkout.RetryPolicy {
	return checkout.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     cfg.Retry.Multiplier,
		Jitter:         cfg.Retry.Jitter,
		AttemptTimeout: cfg.Timeout,
	}
}

// Handler returns the HTTP API routed over the App's services.
func (a *App) Handler() http.Handler {
	return httppresentation.NewHandler(httppresentation.Services{
		Orders:   a.OrderService,
		Checkout: a.CheckoutService,
		Methods:  a.Methods,
		Invoices: a.InvoiceService,
		Products: a.Products,
		Ledger:   a.PaymentLedger,
	}, a.Config.Locale, a.tel).Router()
}

// Close drains the event bus, waiting at most timeout.
func (a *App) Close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	a.Bus.Stop(ctx)
}
