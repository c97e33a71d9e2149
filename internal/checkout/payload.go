package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/datatypes"
)

var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrInvalidEmail    = errors.New("checkout: billing address needs a first name and a valid email")
	ErrConsentRequired = errors.New("checkout: mandatory contract consents not given")
)

type DraftItem struct {
	ProductID *uint             `json:"productId,omitempty"`
	BundleID  *uint             `json:"bundleId,omitempty"`
	VariantID *uint             `json:"variantId,omitempty"`
	Quantity  uint              `json:"quantity"`
	Price     float64           `json:"price"`
	Variant   map[string]string `json:"variant,omitempty"`
}

type DraftAddress struct {
	AddressID *uint  `json:"addressId,omitempty"`
	Save      bool   `json:"save,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Line1     string `json:"line1,omitempty"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city,omitempty"`
	District  string `json:"district,omitempty"`
	PostCode  string `json:"postCode,omitempty"`
	Country   string `json:"country,omitempty"`
}

type Consents struct {
	TermsAndConditions    bool `json:"termsAndConditions"`
	DistanceSalesContract bool `json:"distanceSalesContract"`
	Newsletter            bool `json:"newsletter,omitempty"`
}

type CouponRef struct {
	ID   *uint  `json:"id,omitempty"`
	Code string `json:"code,omitempty"`
}

type DraftTotals struct {
	Subtotal   float64  `json:"subtotal"`
	Shipping   float64  `json:"shipping"`
	Discount   float64  `json:"discount"`
	GrandTotal *float64 `json:"grandTotal,omitempty"`
}

// DraftPayload is the serialized checkout state parked in a CheckoutDraft row
// while the customer is away at their bank. The totals come either as the
// aggregated object or as the older flat fields; both shapes are still
// produced by clients in the wild and both must keep working.
type DraftPayload struct {
	Items           []DraftItem   `json:"items"`
	BillingAddress  *DraftAddress `json:"billingAddress"`
	ShippingAddress *DraftAddress `json:"shippingAddress,omitempty"`
	Contracts       Consents      `json:"contracts"`
	Coupon          *CouponRef    `json:"coupon,omitempty"`
	Totals          *DraftTotals  `json:"totals,omitempty"`

	// Legacy flat totals, used when Totals is absent.
	Subtotal float64 `json:"subtotal,omitempty"`
	Shipping float64 `json:"shipping,omitempty"`
	Discount float64 `json:"discount,omitempty"`
}

type ResolvedTotals struct {
	Subtotal   float64
	Shipping   float64
	Discount   float64
	GrandTotal float64
}

func (p *DraftPayload) ResolveTotals() ResolvedTotals {
	t := ResolvedTotals{Subtotal: p.Subtotal, Shipping: p.Shipping, Discount: p.Discount}
	var grand *float64
	if p.Totals != nil {
		t.Subtotal = p.Totals.Subtotal
		t.Shipping = p.Totals.Shipping
		t.Discount = p.Totals.Discount
		grand = p.Totals.GrandTotal
	}
	if grand != nil {
		t.GrandTotal = *grand
	} else {
		t.GrandTotal = t.Subtotal + t.Shipping - t.Discount
	}
	return t
}

// Validate is the fail-fast gate of finalization: any error here must fire
// before a single row is written.
func (p *DraftPayload) Validate() error {
	if len(p.Items) == 0 {
		return ErrEmptyCart
	}
	if p.BillingAddress == nil || strings.TrimSpace(p.BillingAddress.FirstName) == "" {
		return ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(p.BillingAddress.Email)); err != nil {
		return ErrInvalidEmail
	}
	if !p.Contracts.TermsAndConditions || !p.Contracts.DistanceSalesContract {
		return ErrConsentRequired
	}
	return nil
}

func (p *DraftPayload) NormalizedEmail() string {
	if p.BillingAddress == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(p.BillingAddress.Email))
}

func ParsePayload(raw datatypes.JSON) (*DraftPayload, error) {
	var p DraftPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("checkout: bad draft payload: %w", err)
	}
	return &p, nil
}
