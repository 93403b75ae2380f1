// Command demo walks one customer through the checkout flow against the
// in-process service: a paid order with its invoice, a checkout with an
// expired card, and an attempt to close an empty order.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/bootstrap"
	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/logging"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/money"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	okMark  = color.New(color.FgGreen).Sprint("✔")
	badMark = color.New(color.FgRed).Sprint("✘")
	dim     = color.New(color.Faint).SprintFunc()
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "path to a config file (default: search ./application.* and ./config)")
		logLevel    = pflag.String("log-level", "warn", "service log level")
		successRate = pflag.Float64("success-rate", 1, "simulated gateway success rate, overriding the config file")
		noColor     = pflag.Bool("no-color", false, "disable colored output")
	)
	pflag.Parse()
	if *noColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	cfg.Gateway.SuccessRate = *successRate
	if err := run(context.Background(), cfg, *logLevel); err != nil {
		fail(err)
	}
}

func run(ctx context.Context, cfg *config.Config, logLevel string) error {
	logger, err := logging.NewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Env,
		Level:   logLevel,
		Format:  logging.FormatConsole,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	tel := infraobs.New(oteltrace.New(cfg.Service.Name), zaplogger.Wrap(logger), nil, nil)

	app, err := bootstrap.New(ctx, cfg, tel)
	if err != nil {
		return err
	}
	defer app.Close(5 * time.Second)

	d := &demo{app: app, cfg: cfg}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"Paid order", d.paidOrder},
		{"Expired card", d.expiredCard},
		{"Closing an empty order", d.emptyOrder},
	}
	fmt.Printf("settling in %s\n\n", d.app.Methods.Currency())
	for _, step := range steps {
		fmt.Println(heading("== " + step.name))
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		fmt.Println()
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", badMark, err)
	os.Exit(1)
}

type demo struct {
	app *bootstrap.App
	cfg *config.Config
}

func (d *demo) customer() (customer.Customer, error) {
	home, err := customer.NewAddress("1 Infinite Loop", "95014", "Cupertino", "US", "CA")
	if err != nil {
		return customer.Customer{}, err
	}
	return customer.New("Ada", "Lovelace", "ada@example.com", home, home)
}

// openOrder creates an order holding two units of the first catalog product
// and one of the second.
func (d *demo) openOrder(ctx context.Context) (*order.PurchaseOrder, error) {
	c, err := d.customer()
	if err != nil {
		return nil, err
	}
	o, err := d.app.OrderService.Create(ctx, appOrder.CreateInput{Customer: c})
	if err != nil {
		return nil, err
	}
	for i, qty := range []int{2, 1} {
		if i >= len(d.app.Catalog) {
			break
		}
		p := d.app.Catalog[i]
		o, err = d.app.OrderService.AddItem(ctx, appOrder.AddItemInput{OrderID: o.ID, ProductID: p.ID, Quantity: qty})
		if err != nil {
			return nil, err
		}
		fmt.Printf("  added %d × %s @ %s\n", qty, p.Name, d.money(p.Price))
	}
	fmt.Printf("  order %s total %s\n", dim(o.ID), d.money(o.Total()))
	return o, nil
}

func (d *demo) paidOrder(ctx context.Context) error {
	o, err := d.openOrder(ctx)
	if err != nil {
		return err
	}
	if o, err = d.app.OrderService.Close(ctx, o.ID); err != nil {
		return err
	}
	fmt.Printf("  %s order %s\n", okMark, o.Status())

	res, err := d.checkout(ctx, o.ID, card(time.Now().Year()+3))
	if err != nil {
		return err
	}
	d.printOutcome(res)
	if res.Invoice == nil {
		return errors.New("demo: paid order has no invoice")
	}
	d.printInvoice(res.Invoice)
	return nil
}

func (d *demo) expiredCard(ctx context.Context) error {
	o, err := d.openOrder(ctx)
	if err != nil {
		return err
	}
	res, err := d.checkout(ctx, o.ID, card(2020))
	if err != nil {
		return err
	}
	d.printOutcome(res)
	fmt.Printf("  order is still %s\n", res.Order.Status())
	return nil
}

func (d *demo) emptyOrder(ctx context.Context) error {
	c, err := d.customer()
	if err != nil {
		return err
	}
	o, err := d.app.OrderService.Create(ctx, appOrder.CreateInput{Customer: c})
	if err != nil {
		return err
	}
	_, err = d.app.OrderService.Close(ctx, o.ID)
	if !errors.Is(err, order.ErrEmptyOrder) {
		return fmt.Errorf("demo: expected %v, got %v", order.ErrEmptyOrder, err)
	}
	fmt.Printf("  %s refused: %v\n", badMark, err)
	return nil
}

func (d *demo) checkout(ctx context.Context, orderID string, c payment.Card) (*checkout.Result, error) {
	return d.app.CheckoutService.Execute(ctx, checkout.Input{
		OrderID: orderID,
		Method:  d.app.Methods.CreditCard(c),
	})
}

func (d *demo) printOutcome(res *checkout.Result) {
	out := res.Outcome
	if out.Succeeded() {
		fmt.Printf("  %s paid %s (ref %s) after %d attempt(s)\n", okMark, d.money(out.Amount), dim(out.Reference), res.Attempts)
		return
	}
	fmt.Printf("  %s payment %s: %s after %d attempt(s)\n", badMark, out.Kind, out.Error, res.Attempts)
}

func (d *demo) printInvoice(inv *invoice.Invoice) {
	o := inv.Order()
	billing := inv.BillingAddress()
	fmt.Printf("  invoice %s issued %s\n", dim(inv.ID()), inv.IssuedAt().Format(time.RFC1123))
	fmt.Printf("    bill to %s, %s %s, %s\n", o.Customer.FullName(), billing.Line, billing.City, billing.Country)
	for _, li := range o.Items() {
		fmt.Printf("    %-32s %3d  %12s\n", li.Product.Name, li.Quantity, d.money(li.Subtotal()))
	}
	fmt.Printf("    %-32s      %12s\n", "total", d.money(o.Total()))
}

func (d *demo) money(minor int64) string {
	return money.Format(minor, d.cfg.Locale.Currency, d.cfg.Locale.Tag)
}

func card(expYear int) payment.Card {
	return payment.Card{
		Holder:   "Ada Lovelace",
		Number:   "4111111111111111",
		ExpMonth: 12,
		ExpYear:  expYear,
		CVV:      "123",
	}
}
