// Package validation turns raw checkout payloads into validated order drafts.
// The same rules run in the checkout client and again at the order endpoint.
package validation

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"storefront-orders/internal/model"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MinPhoneDigits is the shortest accepted phone number after normalisation.
const MinPhoneDigits = 10

var maxQuantity = decimal.NewFromInt(1<<31 - 1)

// ItemInput is one raw cart line. Numeric fields accept JSON numbers or
// numeric strings.
type ItemInput = model.OrderItemRequest

// CheckoutInput is the raw payload of one checkout attempt.
type CheckoutInput struct {
	Customer       model.Customer
	Items          []ItemInput
	DeliveryCost   model.Scalar
	OrderCode      string
	IdempotencyKey string
}

// FromRequest builds the validator input from an order request.
func FromRequest(req *model.OrderRequest) CheckoutInput {
	return CheckoutInput{
		Customer:       req.Customer,
		Items:          req.Items,
		DeliveryCost:   req.DeliveryCost,
		OrderCode:      req.OrderCode,
		IdempotencyKey: req.IdempotencyKey,
	}
}

var linkPattern = regexp.MustCompile(`(?i)(https?://|www\.|\b[a-z0-9-]+\.(com|net|org|io|co|me|info|biz|iq|app|dev|xyz|ly|link|site|shop|store)\b)`)

// Validator validates and normalises checkout payloads.
type Validator struct {
	policy  *bluemonday.Policy
	newCode func() string
	logger  zerolog.Logger
}

// NewValidator creates a validator that strips all markup from free text.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{
		policy:  bluemonday.StrictPolicy(),
		newCode: GenerateOrderCode,
		logger:  logger.With().Str("component", "validator").Logger(),
	}
}

// Validate cleans, validates and deduplicates input into an OrderDraft.
// Invalid items are dropped with a warning. Every customer rule that fails is
// reported in the returned *model.ValidationError, as is an empty cart.
func (v *Validator) Validate(in CheckoutInput) (*model.OrderDraft, error) {
	var reasons []string

	customer, customerReasons := v.validateCustomer(in.Customer)
	reasons = append(reasons, customerReasons...)

	items, warnings := v.normaliseItems(in.Items)
	if len(items) == 0 {
		reasons = append(reasons, warnings...)
		reasons = append(reasons, "at least one valid item is required")
	}

	deliveryCost := decimal.Zero
	if raw := strings.TrimSpace(in.DeliveryCost.String()); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			reasons = append(reasons, "delivery cost must be a non-negative number")
		} else {
			deliveryCost = d
		}
	}

	if len(reasons) > 0 {
		v.logger.Debug().Strs("reasons", reasons).Msg("checkout payload rejected")
		return nil, model.NewValidationError(reasons...)
	}

	if len(warnings) > 0 {
		v.logger.Warn().Strs("warnings", warnings).Int("kept_items", len(items)).Msg("dropped invalid cart items")
	}

	orderCode := strings.ToUpper(strings.TrimSpace(in.OrderCode))
	if orderCode == "" {
		orderCode = v.newCode()
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		discount = discount.Add(item.LineDiscount())
	}

	draft := &model.OrderDraft{
		OrderCode:      orderCode,
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
		Customer:       customer,
		Items:          items,
		Subtotal:       subtotal,
		DeliveryCost:   deliveryCost,
		Total:          subtotal.Add(deliveryCost),
		SellerName:     CommonSeller(items),
		Warnings:       warnings,
	}
	if !discount.IsZero() {
		draft.DiscountTotal = &discount
	}

	return draft, nil
}

func (v *Validator) validateCustomer(c model.Customer) (model.Customer, []string) {
	var reasons []string

	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		reasons = append(reasons, "customer name is required")
	case ContainsLink(name):
		reasons = append(reasons, "customer name must not contain links")
	}

	phone := NormalizePhone(c.Phone)
	switch {
	case strings.TrimSpace(c.Phone) == "":
		reasons = append(reasons, "customer phone is required")
	case len(phone) < MinPhoneDigits:
		reasons = append(reasons, fmt.Sprintf("customer phone must contain at least %d digits", MinPhoneDigits))
	}

	if ContainsLink(c.Address) {
		reasons = append(reasons, "customer address must not contain links")
	}
	if ContainsLink(c.Notes) {
		reasons = append(reasons, "customer notes must not contain links")
	}

	address := v.sanitize(c.Address)
	city := v.sanitize(c.City)
	if city == "" {
		city = DetectCity(address)
	}

	return model.Customer{
		Name:    v.sanitize(name),
		Phone:   phone,
		Address: address,
		City:    city,
		Notes:   v.sanitize(c.Notes),
	}, reasons
}

func (v *Validator) normaliseItems(raw []ItemInput) ([]model.CartItem, []string) {
	var warnings []string
	items := make([]model.CartItem, 0, len(raw))
	index := make(map[string]int)

	for i, in := range raw {
		item, problem := v.parseItem(in)
		if problem != "" {
			warnings = append(warnings, fmt.Sprintf("item %d dropped: %s", i+1, problem))
			continue
		}

		if at, seen := index[item.ProductID]; seen {
			items[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(items)
		items = append(items, item)
	}

	return items, warnings
}

func (v *Validator) parseItem(in ItemInput) (model.CartItem, string) {
	productID := strings.TrimSpace(in.ProductID.String())
	if productID == "" {
		return model.CartItem{}, "missing product id"
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(in.Quantity.String()))
	if err != nil || !qty.IsInteger() || !qty.IsPositive() || qty.GreaterThan(maxQuantity) {
		return model.CartItem{}, fmt.Sprintf("product %s has an invalid quantity", productID)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price.String()))
	if err != nil || price.IsNegative() {
		return model.CartItem{}, fmt.Sprintf("product %s has an invalid price", productID)
	}

	item := model.CartItem{
		ProductID:      productID,
		ProductName:    v.sanitize(in.ProductName),
		Quantity:       int(qty.IntPart()),
		Price:          price,
		SellerName:     v.sanitize(firstNonEmpty(in.SellerName, in.MainStoreName, in.StoreName, in.MainStore)),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	}
	if item.ProductName == "" {
		item.ProductName = model.UnknownItem
	}
	if item.SellerName == "" {
		item.SellerName = model.UnknownSeller
	}

	if raw := strings.TrimSpace(in.DiscountedPrice.String()); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
			item.DiscountedPrice = &d
		}
	}

	return item, ""
}

func (v *Validator) sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(s)))
}

// ContainsLink reports whether s contains a URL or a bare domain.
func ContainsLink(s string) bool {
	return linkPattern.MatchString(s)
}

// NormalizePhone keeps only the digits of s, mapping Arabic-Indic and
// Persian digits to ASCII.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		}
	}
	return b.String()
}

// CommonSeller returns the seller shared by every item, or the multi-seller
// marker when they differ.
func CommonSeller(items []model.CartItem) string {
	if len(items) == 0 {
		return model.UnknownSeller
	}
	seller := items[0].SellerName
	for _, item := range items[1:] {
		if item.SellerName != seller {
			return model.MultiSeller
		}
	}
	return seller
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
