package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"storefront/models"
	"storefront/pricing"
)

//go:embed templates/receipt.html
var templateFS embed.FS

var paymentLabels = map[models.PaymentMethod]string{
	models.PaymentCashOnDelivery: "Cash on delivery",
	models.PaymentStripe:         "Card (Stripe)",
	models.PaymentRazorpay:       "Card (Razorpay)",
}

// OrderReader loads a single order
type OrderReader interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
}

// ReceiptService renders printable order receipts
type ReceiptService struct {
	orders     OrderReader
	tmpl       *template.Template
	baseURL    string // e.g. "http://localhost:8080"
	chromePath string
	logger     *zap.Logger
}

// NewReceiptService parses the receipt template. Amounts are formatted with engine.
func NewReceiptService(orders OrderReader, engine *pricing.Engine, baseURL, chromePath string, logger *zap.Logger) (*ReceiptService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.New("receipt.html").
		Funcs(template.FuncMap{"money": engine.Format}).
		ParseFS(templateFS, "templates/receipt.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt template: %w", err)
	}
	return &ReceiptService{
		orders:     orders,
		tmpl:       tmpl,
		baseURL:    baseURL,
		chromePath: chromePath,
		logger:     logger,
	}, nil
}

// detectChromePath returns the configured Chrome binary, or the first common
// installation path that exists, or "" to let chromedp look it up
func (s *ReceiptService) detectChromePath() string {
	if s.chromePath != "" {
		if _, err := os.Stat(s.chromePath); err == nil {
			return s.chromePath
		}
	}
	for _, path := range []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// RenderHTML renders the receipt of an order
func (s *ReceiptService) RenderHTML(ctx context.Context, orderID string) ([]byte, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.render(order)
}

func (s *ReceiptService) render(order *models.Order) ([]byte, error) {
	label, ok := paymentLabels[order.PaymentMethod]
	if !ok {
		label = string(order.PaymentMethod)
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, struct {
		Order        *models.Order
		PaymentLabel string
	}{order, label}); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// GeneratePDF prints the HTML receipt endpoint to an A4 PDF with headless Chrome
func (s *ReceiptService) GeneratePDF(ctx context.Context, orderID string) ([]byte, error) {
	// make sure the order exists before starting a browser
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
	if chromePath := s.detectChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	chromedpCtx, chromedpCancel := chromedp.NewContext(allocCtx)
	defer chromedpCancel()

	renderURL := fmt.Sprintf("%s/api/orders/%s/receipt?format=html", s.baseURL, url.PathEscape(orderID))
	s.logger.Info("🖨️ printing receipt", zap.String("order_id", orderID), zap.String("url", renderURL))

	var pdfBuf []byte
	err := chromedp.Run(chromedpCtx,
		chromedp.Navigate(renderURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 = 8.27" x 11.69"; margins come from the @page rule
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdfBuf, nil
}
