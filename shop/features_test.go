package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"storefront/models"
	"storefront/pricing"
	"storefront/storage"
)

type cartTestContext struct {
	store     *storage.MemoryStore
	source    *stubSource
	submitter *stubSubmitter
	fee       decimal.Decimal
	shop      *Shop
	results   []models.Product
	order     models.Order
	err       error
}

func (c *cartTestContext) reset() {
	c.store = storage.NewMemoryStore()
	c.source = &stubSource{}
	c.submitter = &stubSubmitter{}
	c.fee = pricing.DefaultConfig().DeliveryFee
	c.shop = nil
	c.results = nil
	c.order = models.Order{}
	c.err = nil
}

// ensureShop builds the shop lazily so Given steps can configure it first
func (c *cartTestContext) ensureShop() error {
	if c.shop != nil {
		return nil
	}
	engine, err := pricing.NewEngineWithConfig(pricing.PricingConfig{Currency: "$", DeliveryFee: c.fee})
	if err != nil {
		return err
	}
	c.shop, err = New(Options{
		Source:    c.source,
		Submitter: c.submitter,
		Store:     c.store,
		Engine:    engine,
		Now:       fixedClock(orderTime),
	})
	if err != nil {
		return err
	}
	_, err = c.shop.Refresh(context.Background())
	return err
}

func (c *cartTestContext) aCatalogWithProducts(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		cells := row.Cells
		if len(cells) < 4 {
			return fmt.Errorf("row %d: expected 4 columns", i)
		}
		c.source.raws = append(c.source.raws, models.RawProduct{
			ID:       json.RawMessage(`"` + cells[0].Value + `"`),
			Name:     cells[1].Value,
			Price:    json.RawMessage(cells[2].Value),
			Category: cells[3].Value,
		})
	}
	return nil
}

func (c *cartTestContext) aDeliveryFeeOf(fee string) error {
	d, err := decimal.NewFromString(fee)
	if err != nil {
		return err
	}
	c.fee = d
	return nil
}

func (c *cartTestContext) theCartContainsOfAndOf(qa int, a string, qb int, b string) error {
	if err := c.theCartContainsOf(qa, a); err != nil {
		return err
	}
	return c.theCartContainsOf(qb, b)
}

func (c *cartTestContext) theCartContainsOf(qty int, id string) error {
	if err := c.ensureShop(); err != nil {
		return err
	}
	return c.shop.SetQuantity(id, qty)
}

func (c *cartTestContext) theOrderBackendIsUnavailable() error {
	c.submitter.err = errors.New("503 service unavailable")
	return nil
}

func (c *cartTestContext) iRemoveOne(id string) error {
	return c.shop.Remove(id)
}

func (c *cartTestContext) iSetTheQuantityOfTo(id string, n int) error {
	return c.shop.SetQuantity(id, n)
}

func (c *cartTestContext) theStorefrontRestarts() error {
	c.shop = nil
	return c.ensureShop()
}

func (c *cartTestContext) iSearchFor(query string) error {
	if err := c.ensureShop(); err != nil {
		return err
	}
	c.results = c.shop.Search(query)
	return nil
}

func (c *cartTestContext) iPlaceAnOrder() error {
	c.order, c.err = c.shop.PlaceOrder(context.Background(), PlaceOrderRequest{Shipping: validShipping()})
	return nil
}

func (c *cartTestContext) iPlaceAnOrderWithAnEmpty(field string) error {
	shipping := validShipping()
	switch field {
	case "city":
		shipping.City = ""
	case "email":
		shipping.Email = ""
	case "zipcode":
		shipping.Zipcode = ""
	default:
		return fmt.Errorf("unsupported field %q", field)
	}
	c.order, c.err = c.shop.PlaceOrder(context.Background(), PlaceOrderRequest{Shipping: shipping})
	return nil
}

func expectAmount(label string, got decimal.Decimal, want string) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", label, w.StringFixed(2), got.StringFixed(2))
	}
	return nil
}

func (c *cartTestContext) theCartAmountIs(want string) error {
	return expectAmount("amount", c.shop.Amount(), want)
}

func (c *cartTestContext) theCartTotalIs(want string) error {
	return expectAmount("total", c.shop.Total(), want)
}

func (c *cartTestContext) theCartHoldsItems(n int) error {
	if got := c.shop.ItemCount(); got != n {
		return fmt.Errorf("expected %d items, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartHasNoEntryFor(id string) error {
	if q := c.shop.Cart().Quantity(Identity(id)); q != 0 {
		return fmt.Errorf("expected no entry for %q, got quantity %d", id, q)
	}
	for _, e := range c.shop.Cart().Entries() {
		if e.ID == Identity(id) {
			return fmt.Errorf("entry %q still present", id)
		}
	}
	return nil
}

func (c *cartTestContext) theCartQuantityOfIs(id string, n int) error {
	if q := c.shop.Cart().Quantity(Identity(id)); q != n {
		return fmt.Errorf("expected quantity %d for %q, got %d", n, id, q)
	}
	return nil
}

func (c *cartTestContext) theSearchReturnsProducts(n int) error {
	if len(c.results) != n {
		return fmt.Errorf("expected %d results, got %d", n, len(c.results))
	}
	return nil
}

func (c *cartTestContext) theOrderFailsValidationOn(field string) error {
	var ve *ValidationError
	if !errors.As(c.err, &ve) {
		return fmt.Errorf("expected ValidationError, got %v", c.err)
	}
	for _, f := range ve.Fields {
		if f == field {
			return nil
		}
	}
	return fmt.Errorf("expected field %q in %v", field, ve.Fields)
}

func (c *cartTestContext) theOrderFailsToSubmit() error {
	if !IsSubmission(c.err) {
		return fmt.Errorf("expected SubmissionError, got %v", c.err)
	}
	return nil
}

func (c *cartTestContext) everyOrderLineTotalIsUnitPriceTimesQuantity() error {
	if c.err != nil {
		return fmt.Errorf("expected an order but got error: %v", c.err)
	}
	if len(c.order.Items) == 0 {
		return errors.New("order has no items")
	}
	for _, it := range c.order.Items {
		if !it.LineTotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))) {
			return fmt.Errorf("line %s: %s != %s x %d", it.ProductID, it.LineTotal, it.UnitPrice, it.Quantity)
		}
	}
	return nil
}

func (c *cartTestContext) theTrackingNumberEndsWithTheLastDigitsOfTheOrderID(n int) error {
	id := c.order.OrderID
	if len(id) < n {
		return fmt.Errorf("order id %q shorter than %d", id, n)
	}
	if !strings.HasSuffix(c.order.TrackingNumber, id[len(id)-n:]) {
		return fmt.Errorf("tracking number %q does not end with %q", c.order.TrackingNumber, id[len(id)-n:])
	}
	return nil
}

func (c *cartTestContext) theOrderTotalIs(want string) error {
	return expectAmount("order total", c.order.TotalAmount, want)
}

func (c *cartTestContext) theOrderStatusIs(status string) error {
	if string(c.order.Status) != status {
		return fmt.Errorf("expected status %q, got %q", status, c.order.Status)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a catalog with products:$`, tc.aCatalogWithProducts)
	ctx.Step(`^a delivery fee of (\d+(?:\.\d+)?)$`, tc.aDeliveryFeeOf)
	ctx.Step(`^the cart contains (\d+) of "([^"]*)" and (\d+) of "([^"]*)"$`, tc.theCartContainsOfAndOf)
	ctx.Step(`^the cart contains (\d+) of "([^"]*)"$`, tc.theCartContainsOf)
	ctx.Step(`^the order backend is unavailable$`, tc.theOrderBackendIsUnavailable)

	// When steps
	ctx.Step(`^I remove one "([^"]*)"$`, tc.iRemoveOne)
	ctx.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantityOfTo)
	ctx.Step(`^the storefront restarts$`, tc.theStorefrontRestarts)
	ctx.Step(`^I search for "([^"]*)"$`, tc.iSearchFor)
	ctx.Step(`^I place an order$`, tc.iPlaceAnOrder)
	ctx.Step(`^I place an order with an empty "([^"]*)"$`, tc.iPlaceAnOrderWithAnEmpty)

	// Then steps
	ctx.Step(`^the cart amount is (\d+(?:\.\d+)?)$`, tc.theCartAmountIs)
	ctx.Step(`^the cart total is (\d+(?:\.\d+)?)$`, tc.theCartTotalIs)
	ctx.Step(`^the cart holds (\d+) items$`, tc.theCartHoldsItems)
	ctx.Step(`^the cart has no entry for "([^"]*)"$`, tc.theCartHasNoEntryFor)
	ctx.Step(`^the cart quantity of "([^"]*)" is (\d+)$`, tc.theCartQuantityOfIs)
	ctx.Step(`^the search returns (\d+) products$`, tc.theSearchReturnsProducts)
	ctx.Step(`^the order fails validation on "([^"]*)"$`, tc.theOrderFailsValidationOn)
	ctx.Step(`^the order fails to submit$`, tc.theOrderFailsToSubmit)
	ctx.Step(`^every order line total is unit price times quantity$`, tc.everyOrderLineTotalIsUnitPriceTimesQuantity)
	ctx.Step(`^the tracking number ends with the last (\d+) digits of the order id$`, tc.theTrackingNumberEndsWithTheLastDigitsOfTheOrderID)
	ctx.Step(`^the order total is (\d+(?:\.\d+)?)$`, tc.theOrderTotalIs)
	ctx.Step(`^the order status is "([^"]*)"$`, tc.theOrderStatusIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features/cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
