// Command shop is a terminal storefront: it browses the backend catalog,
// keeps a cart and an order history on disk and places orders.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"storefront/apiclient"
	"storefront/config"
	"storefront/db"
	"storefront/logging"
	"storefront/models"
	"storefront/pricing"
	"storefront/shop"
	"storefront/storage"
)

const usage = `usage: shop [flags] <command> [args]

commands:
  catalog                 list the catalog
  search <query>          search name, description and categories
  add <id>                add one unit to the cart
  remove <id>             take one unit out of the cart
  delete <id>             drop a product from the cart
  set <id> <n>            set the quantity of a product
  cart                    show the cart and its totals
  checkout [flags]        place an order for the cart
  orders [--sync]         show the order history

flags:
`

var errUsage = errors.New("invalid usage")

type globals struct {
	api         string
	dataDir     string
	databaseURL string
	owner       string
	pricing     string
	logLevel    string
}

func main() {
	// Pick up BASE_URL and friends from .env like the server does
	_, _ = config.LoadDotEnv(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(home, ".storefront")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := pflag.NewFlagSet("shop", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVar(&g.api, "api", envOr("BASE_URL", "http://localhost:8080"), "backend base URL")
	fs.StringVar(&g.dataDir, "data-dir", defaultDataDir(), "directory holding the cart and order history")
	fs.StringVar(&g.databaseURL, "database-url", "", "keep the cart in PostgreSQL instead of --data-dir")
	fs.StringVar(&g.owner, "owner", os.Getenv("USER"), "owner recorded on orders and used by --sync")
	fs.StringVar(&g.pricing, "pricing", "", "pricing config JSON (default: $ and a 5.00 delivery fee)")
	fs.StringVar(&g.logLevel, "log-level", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	logger, err := logging.New(false, g.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, closeStore, err := openShop(ctx, g, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	out := &printer{w: stdout, errw: stderr, engine: s.Engine()}

	switch cmd {
	case "catalog":
		refresh(ctx, s, out)
		out.products(s.Products())
	case "search":
		if len(rest) == 0 {
			return usageErr(stderr, "search needs a query")
		}
		refresh(ctx, s, out)
		out.products(s.Search(strings.Join(rest, " ")))
	case "add", "remove", "delete":
		if len(rest) != 1 {
			return usageErr(stderr, cmd+" needs a product id")
		}
		refresh(ctx, s, out)
		if err := cartOp(s, cmd, rest[0]); err != nil {
			return err
		}
		out.cart(s)
	case "set":
		if len(rest) != 2 {
			return usageErr(stderr, "set needs a product id and a quantity")
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return usageErr(stderr, fmt.Sprintf("quantity %q is not a number", rest[1]))
		}
		refresh(ctx, s, out)
		if err := s.SetQuantity(rest[0], n); err != nil {
			return err
		}
		out.cart(s)
	case "cart":
		refresh(ctx, s, out)
		out.cart(s)
	case "checkout":
		refresh(ctx, s, out)
		return checkout(ctx, s, g, rest, out)
	case "orders":
		return orders(ctx, s, g, rest, out)
	default:
		return usageErr(stderr, fmt.Sprintf("unknown command %q", cmd))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func usageErr(w io.Writer, msg string) error {
	fmt.Fprintln(w, msg)
	return errUsage
}

// openShop wires the shop to the backend client and the chosen store
func openShop(ctx context.Context, g globals, logger *zap.Logger) (*shop.Shop, func(), error) {
	client, err := apiclient.New(g.api, apiclient.WithLogger(logger.Named("api")))
	if err != nil {
		return nil, nil, err
	}

	var store storage.Store
	closeStore := func() {}
	if g.databaseURL != "" {
		conn, err := db.Open(ctx, g.databaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		store = storage.NewSQLStore(conn, g.owner)
		closeStore = func() { conn.Close() }
	} else {
		fileStore, err := storage.NewFileStore(g.dataDir)
		if err != nil {
			return nil, nil, err
		}
		store = fileStore
	}

	var engine *pricing.Engine
	if g.pricing != "" {
		if engine, err = pricing.NewEngine(g.pricing, logger.Named("pricing")); err != nil {
			closeStore()
			return nil, nil, err
		}
	}

	s, err := shop.New(shop.Options{
		Source:    client,
		Submitter: client,
		Lister:    client,
		Store:     store,
		Engine:    engine,
		Logger:    logger,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return s, closeStore, nil
}

// refresh loads the catalog; on failure the shop keeps working on the
// fixture or previous snapshot and the shopper is told so
func refresh(ctx context.Context, s *shop.Shop, out *printer) {
	if _, err := s.Refresh(ctx); err != nil {
		fmt.Fprintf(out.errw, "warning: %v\n", err)
		if s.Catalog().IsFixture() {
			fmt.Fprintln(out.errw, "warning: showing the sample catalog")
		}
	}
}

func cartOp(s *shop.Shop, cmd, id string) error {
	switch cmd {
	case "add":
		return s.Add(id)
	case "remove":
		return s.Remove(id)
	default:
		return s.Delete(id)
	}
}

func checkout(ctx context.Context, s *shop.Shop, g globals, args []string, out *printer) error {
	var d models.ShippingDetails
	var payment string
	fs := pflag.NewFlagSet("checkout", pflag.ContinueOnError)
	fs.SetOutput(out.errw)
	fs.StringVar(&d.FirstName, "first-name", "", "first name")
	fs.StringVar(&d.LastName, "last-name", "", "last name")
	fs.StringVar(&d.Email, "email", "", "email address")
	fs.StringVar(&d.Street, "street", "", "street")
	fs.StringVar(&d.City, "city", "", "city")
	fs.StringVar(&d.State, "state", "", "state")
	fs.StringVar(&d.Zipcode, "zipcode", "", "zip code")
	fs.StringVar(&d.Country, "country", "", "country")
	fs.StringVar(&d.Phone, "phone", "", "phone")
	fs.StringVar(&payment, "payment", string(models.PaymentCashOnDelivery), "payment method: cod, stripe or razorpay")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	order, err := s.PlaceOrder(ctx, shop.PlaceOrderRequest{Shipping: d, PaymentMethod: payment, Owner: g.owner})
	if err != nil {
		var verr *shop.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out.errw, "cannot place order: %s (%s)\n", verr.Message, strings.Join(verr.Fields, ", "))
			return errUsage
		}
		return err
	}
	fmt.Fprintf(out.w, "Order %s placed. Tracking %s. Total %s\n", order.OrderID, order.TrackingNumber, out.engine.Format(order.TotalAmount))
	return nil
}

func orders(ctx context.Context, s *shop.Shop, g globals, args []string, out *printer) error {
	var sync bool
	fs := pflag.NewFlagSet("orders", pflag.ContinueOnError)
	fs.SetOutput(out.errw)
	fs.BoolVar(&sync, "sync", false, "refresh statuses from the backend first")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if sync {
		report, err := s.SyncOrders(ctx, g.owner)
		if err != nil {
			fmt.Fprintf(out.errw, "warning: %v\n", err)
		}
		for _, r := range report.Rejected {
			fmt.Fprintf(out.errw, "warning: order %s: ignored status change %s -> %s\n", r.OrderID, r.From, r.To)
		}
	}
	out.orders(s.Orders())
	return nil
}

type printer struct {
	w      io.Writer
	errw   io.Writer
	engine *pricing.Engine
}

func (p *printer) products(products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(p.w, "No products found.")
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE")
	for _, pr := range products {
		category := pr.Category
		if pr.SubCategory != "" {
			category += "/" + pr.SubCategory
		}
		name := pr.Name
		if pr.Bestseller {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", pr.ID, name, category, p.engine.Format(pr.Price))
	}
	tw.Flush()
}

func (p *printer) cart(s *shop.Shop) {
	lines := s.CartLines()
	if len(lines) == 0 {
		fmt.Fprintln(p.w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.Product.ID, l.Product.Name, l.Quantity,
			p.engine.Format(l.Product.Price), p.engine.Format(l.LineTotal))
	}
	b := s.Breakdown()
	fmt.Fprintf(tw, "\t\t\tSubtotal\t%s\n", p.engine.Format(b.Subtotal))
	fmt.Fprintf(tw, "\t\t\tDelivery\t%s\n", p.engine.Format(b.DeliveryFee))
	fmt.Fprintf(tw, "\t\t\tTotal\t%s\n", p.engine.Format(b.Total))
	tw.Flush()
}

func (p *printer) orders(orders []models.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(p.w, "No orders yet.")
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tSTATUS\tTRACKING\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.OrderID, o.OrderDate.Local().Format("2006-01-02 15:04"),
			o.Status, o.TrackingNumber, p.engine.Format(o.TotalAmount))
	}
	tw.Flush()
}
