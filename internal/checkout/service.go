package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fusionmarkt/shop/internal/events"
	"github.com/fusionmarkt/shop/internal/logging"
	"github.com/fusionmarkt/shop/internal/mail"
	"github.com/fusionmarkt/shop/internal/models"
	"github.com/fusionmarkt/shop/internal/payment"
)

type Service struct {
	DB       *gorm.DB
	Gateway  payment.Gateway
	Mailer   mail.Mailer
	Producer *events.Producer
	SiteURL  string
}

// Begin validates the checkout payload, parks it in a draft row and asks the
// gateway to start the 3-D Secure flow. The customer leaves for their bank
// after this; everything else happens in the callback.
func (s *Service) Begin(ctx context.Context, userID *uint, p *DraftPayload) (string, *payment.InitResult, error) {
	if err := p.Validate(); err != nil {
		return "", nil, err
	}
	totals := p.ResolveTotals()

	orderNumber, err := GenerateOrderNumber()
	if err != nil {
		return "", nil, err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("checkout: marshal draft: %w", err)
	}
	draft := models.CheckoutDraft{
		OrderNumber: orderNumber,
		UserID:      userID,
		Payload:     raw,
	}
	if err := s.DB.WithContext(ctx).Create(&draft).Error; err != nil {
		return "", nil, fmt.Errorf("checkout: create draft: %w", err)
	}

	basket := make([]payment.BasketItem, 0, len(p.Items))
	for i, it := range p.Items {
		basket = append(basket, payment.BasketItem{
			ID:    uuid.NewString(),
			Name:  fmt.Sprintf("item-%d", i),
			Price: it.Price * float64(it.Quantity),
		})
	}
	init, err := s.Gateway.Initialize3DS(ctx, payment.InitRequest{
		Locale:         "tr",
		ConversationID: orderNumber,
		Price:          totals.Subtotal,
		PaidPrice:      totals.GrandTotal,
		Currency:       "TRY",
		CallbackURL:    s.SiteURL + "/api/payment/callback",
		BuyerEmail:     p.NormalizedEmail(),
		BuyerName:      p.BillingAddress.FirstName + " " + p.BillingAddress.LastName,
		BasketItems:    basket,
	})
	if err != nil || init.Status != payment.StatusSuccess {
		s.DeleteDraft(ctx, orderNumber)
		if err != nil {
			return "", nil, fmt.Errorf("checkout: gateway init: %w", err)
		}
		return "", init, fmt.Errorf("checkout: gateway refused: %s", init.ErrorMessage)
	}

	return orderNumber, init, nil
}

// ClaimDraft atomically takes ownership of the draft for finalization. The
// delete's affected-row count is the claim: with two concurrent callbacks for
// the same order number only one sees claimed=true, the other must fall back
// to the duplicate-callback path.
func (s *Service) ClaimDraft(ctx context.Context, orderNumber string) (*models.CheckoutDraft, bool, error) {
	var draft models.CheckoutDraft
	err := s.DB.WithContext(ctx).Where("order_number = ?", orderNumber).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	res := s.DB.WithContext(ctx).Where("id = ?", draft.ID).Delete(&models.CheckoutDraft{})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return &draft, true, nil
}

// DeleteDraft is the best-effort cleanup used on failure paths.
func (s *Service) DeleteDraft(ctx context.Context, orderNumber string) {
	if err := s.DB.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Delete(&models.CheckoutDraft{}).Error; err != nil {
		logging.FromContext(ctx).Error("draft delete failed",
			"order_number", orderNumber, "error", err)
	}
}

// GenerateOrderNumber builds the human-facing order number, e.g.
// FM-20260830-483920. Uniqueness is ultimately enforced by the DB index.
func GenerateOrderNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("checkout: order number: %w", err)
	}
	return fmt.Sprintf("FM-%s-%06d", time.Now().Format("20060102"), n.Int64()), nil
}

// GenerateAccessToken issues the opaque token that lets the buyer open their
// contract documents from an emailed link without logging in.
func GenerateAccessToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("checkout: access token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
