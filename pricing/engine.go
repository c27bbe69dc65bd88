package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/utils"
)

// PricingConfig represents the pricing configuration structure
// Example: {"currency": "$", "deliveryFee": "5.00", "freeDeliveryThreshold": "0"}
type PricingConfig struct {
	Currency              string          `json:"currency"`
	DeliveryFee           decimal.Decimal `json:"deliveryFee"`
	FreeDeliveryThreshold decimal.Decimal `json:"freeDeliveryThreshold"` // zero disables free delivery
}

// DefaultConfig mirrors the storefront defaults: dollars and a flat 5.00 fee
func DefaultConfig() PricingConfig {
	return PricingConfig{
		Currency:    "$",
		DeliveryFee: decimal.NewFromInt(5),
	}
}

// Line is one cart or order line with its unit price already resolved
type Line struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// PricedLine is a line with its computed total
type PricedLine struct {
	Line
	LineTotal decimal.Decimal
}

// Breakdown is the complete pricing result for a set of lines
type Breakdown struct {
	Lines       []PricedLine
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Engine derives subtotals, delivery fees and totals with exact decimal arithmetic
type Engine struct {
	config PricingConfig
}

// NewEngine loads the pricing configuration from a JSON file
func NewEngine(configPath string, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Resolve config path
	if !filepath.IsAbs(configPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(wd, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing config: %w", err)
	}

	var config PricingConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse pricing config: %w", err)
	}

	engine, err := NewEngineWithConfig(config)
	if err != nil {
		return nil, err
	}

	logger.Info("✅ pricing config loaded",
		zap.String("path", configPath),
		zap.String("currency", config.Currency),
		zap.String("delivery_fee", config.DeliveryFee.StringFixed(2)))
	return engine, nil
}

// NewEngineWithConfig builds an engine from an in-memory configuration
func NewEngineWithConfig(config PricingConfig) (*Engine, error) {
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}
	return &Engine{config: config}, nil
}

func validateConfig(config *PricingConfig) error {
	if config.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if config.DeliveryFee.IsNegative() {
		return fmt.Errorf("deliveryFee cannot be negative")
	}
	if config.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("freeDeliveryThreshold cannot be negative")
	}
	return nil
}

// Config returns a copy of the active configuration
func (e *Engine) Config() PricingConfig {
	return e.config
}

// Currency returns the display currency symbol
func (e *Engine) Currency() string {
	return e.config.Currency
}

// LineTotal is unitPrice × quantity; non-positive quantities price to zero
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Amount sums the line totals
func (e *Engine) Amount(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	return sum
}

// DeliveryFeeFor returns the fee charged for a given subtotal
func (e *Engine) DeliveryFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if e.config.FreeDeliveryThreshold.IsPositive() && subtotal.GreaterThanOrEqual(e.config.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return e.config.DeliveryFee
}

// Total returns subtotal plus its delivery fee
func (e *Engine) Total(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(e.DeliveryFeeFor(subtotal))
}

// Calculate prices every line and returns the full breakdown
func (e *Engine) Calculate(lines []Line) Breakdown {
	b := Breakdown{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
	}
	for _, l := range lines {
		total := LineTotal(l.UnitPrice, l.Quantity)
		b.Lines = append(b.Lines, PricedLine{Line: l, LineTotal: total})
		b.Subtotal = b.Subtotal.Add(total)
	}
	b.DeliveryFee = e.DeliveryFeeFor(b.Subtotal)
	b.Total = b.Subtotal.Add(b.DeliveryFee)
	return b
}

// Format renders an amount with the configured currency and two fractional digits
func (e *Engine) Format(amount decimal.Decimal) string {
	return utils.FormatMoney(amount, e.config.Currency)
}
