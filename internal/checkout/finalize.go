package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fusionmarkt/shop/internal/contracts"
	"github.com/fusionmarkt/shop/internal/events"
	"github.com/fusionmarkt/shop/internal/hash"
	"github.com/fusionmarkt/shop/internal/history"
	"github.com/fusionmarkt/shop/internal/logging"
	"github.com/fusionmarkt/shop/internal/models"
	"github.com/fusionmarkt/shop/internal/payment"
)

// SideEffect is the outcome of one best-effort post-commit action. Failures
// are logged and never change the result of a finalized order: the card has
// already been charged, so refusing the order over bookkeeping would be the
// worse outcome.
type SideEffect struct {
	Name string
	Err  error
}

// Finalize turns a claimed draft plus a successful capture into a durable
// order. Validation failures abort before any write; once the order row is
// committed the remaining steps can only degrade, not fail, the result.
func (s *Service) Finalize(ctx context.Context, draft *models.CheckoutDraft, capture *payment.CaptureResult) (*models.Order, error) {
	p, err := ParsePayload(draft.Payload)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	totals := p.ResolveTotals()

	productNames, bundleNames, err := s.lookupCatalogNames(ctx, p.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var order *models.Order
	var items []models.OrderItem

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := resolveUser(tx, draft.UserID, p)
		if err != nil {
			return err
		}

		billingID, billingSnap, err := resolveAddress(tx, user.ID, p.BillingAddress)
		if err != nil {
			return err
		}
		shippingID, shippingSnap := billingID, billingSnap
		sameAsBilling := p.ShippingAddress == nil
		if !sameAsBilling {
			shippingID, shippingSnap, err = resolveAddress(tx, user.ID, p.ShippingAddress)
			if err != nil {
				return err
			}
		}

		couponID := resolveCoupon(tx, p.Coupon)

		items = buildItems(p.Items, productNames, bundleNames)

		docs, err := renderContracts(draft.OrderNumber, p, items, totals, now)
		if err != nil {
			return err
		}

		token, err := GenerateAccessToken()
		if err != nil {
			return err
		}

		log := history.Log{
			{Change: &history.StatusChange{
				Status:    string(models.OrderStatusPending),
				Note:      "order created",
				Timestamp: now,
			}},
			{Address: &history.AddressSnapshot{
				Billing:               billingSnap,
				Shipping:              shippingSnap,
				ShippingSameAsBilling: sameAsBilling,
				Timestamp:             now,
			}},
			{Contract: &history.ContractAcceptance{
				TermsHTML:             docs.TermsHTML,
				DistanceSalesHTML:     docs.DistanceSalesHTML,
				TermsAccepted:         p.Contracts.TermsAndConditions,
				DistanceSalesAccepted: p.Contracts.DistanceSalesContract,
				NewsletterOptIn:       p.Contracts.Newsletter,
				Timestamp:             now,
			}},
			{Change: &history.StatusChange{
				Status:    string(models.OrderStatusProcessing),
				PaymentID: capture.PaymentID,
				Timestamp: now,
			}},
		}
		rawLog, err := log.Raw()
		if err != nil {
			return err
		}

		var txns datatypes.JSON
		if len(capture.Items) > 0 {
			if data, err := json.Marshal(capture.Items); err == nil {
				txns = data
			}
		}

		order = &models.Order{
			OrderNumber:    draft.OrderNumber,
			UserID:         user.ID,
			Status:         models.OrderStatusProcessing,
			PaymentStatus:  models.PaymentStatusPaid,
			Subtotal:       totals.Subtotal,
			ShippingCost:   totals.Shipping,
			Discount:       totals.Discount,
			Total:          totals.GrandTotal,
			BillingAddrID:  billingID,
			ShippingAddrID: shippingID,
			CouponID:       couponID,
			AccessToken:    token,
			PaymentID:      capture.PaymentID,
			ConversationID: draft.OrderNumber,
			PaymentTxns:    txns,
			StatusHistory:  rawLog,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("checkout: create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("checkout: create order items: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	order.Items = items

	effects := s.decrementStock(ctx, items)
	effects = append(effects, s.notify(ctx, order, items, p.NormalizedEmail())...)
	logSideEffects(ctx, order.OrderNumber, effects)

	return order, nil
}

// lookupCatalogNames resolves product and bundle display names for the
// contract documents. The two lookups are independent and run concurrently.
func (s *Service) lookupCatalogNames(ctx context.Context, items []DraftItem) (map[uint]string, map[uint]string, error) {
	var productIDs, bundleIDs []uint
	for _, it := range items {
		if it.ProductID != nil {
			productIDs = append(productIDs, *it.ProductID)
		}
		if it.BundleID != nil {
			bundleIDs = append(bundleIDs, *it.BundleID)
		}
	}

	productNames := map[uint]string{}
	bundleNames := map[uint]string{}
	var wg sync.WaitGroup
	var prodErr, bundleErr error

	if len(productIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var rows []models.Product
			if err := s.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
				prodErr = err
				return
			}
			for _, r := range rows {
				productNames[r.ID] = r.Name
			}
		}()
	}
	if len(bundleIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var rows []models.Bundle
			if err := s.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", bundleIDs).Find(&rows).Error; err != nil {
				bundleErr = err
				return
			}
			for _, r := range rows {
				bundleNames[r.ID] = r.Name
			}
		}()
	}
	wg.Wait()

	if prodErr != nil {
		return nil, nil, fmt.Errorf("checkout: product lookup: %w", prodErr)
	}
	if bundleErr != nil {
		return nil, nil, fmt.Errorf("checkout: bundle lookup: %w", bundleErr)
	}
	return productNames, bundleNames, nil
}

// resolveUser matches an existing account by normalized email or creates a
// guest account with an unusable random password. The lookup must precede the
// create so one finalization never produces two users for the same email.
func resolveUser(tx *gorm.DB, preResolved *uint, p *DraftPayload) (*models.User, error) {
	if preResolved != nil {
		var user models.User
		if err := tx.First(&user, *preResolved).Error; err == nil {
			return &user, nil
		}
	}

	email := p.NormalizedEmail()
	var user models.User
	err := tx.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checkout: user lookup: %w", err)
	}

	pw, err := hash.RandomPassword()
	if err != nil {
		return nil, err
	}
	pwHash, err := hash.HashPassword(pw)
	if err != nil {
		return nil, err
	}
	user = models.User{
		Email:        email,
		FirstName:    p.BillingAddress.FirstName,
		LastName:     p.BillingAddress.LastName,
		PasswordHash: pwHash,
		Role:         "user",
		Guest:        true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("checkout: create guest user: %w", err)
	}
	return &user, nil
}

// resolveAddress returns the persistent address id (nil when the buyer did
// not opt in to saving it) and the snapshot that always goes into the status
// history regardless.
func resolveAddress(tx *gorm.DB, userID uint, a *DraftAddress) (*uint, history.AddressData, error) {
	snap := history.AddressData{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		District:  a.District,
		PostCode:  a.PostCode,
		Country:   a.Country,
	}
	if a.AddressID != nil {
		return a.AddressID, snap, nil
	}
	if !a.Save {
		return nil, snap, nil
	}
	addr := models.Address{
		UserID:    userID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		District:  a.District,
		PostCode:  a.PostCode,
		Country:   a.Country,
	}
	if err := tx.Create(&addr).Error; err != nil {
		return nil, snap, fmt.Errorf("checkout: save address: %w", err)
	}
	return &addr.ID, snap, nil
}

// resolveCoupon tolerates a missing or invalid code silently: the order
// simply proceeds without a coupon.
func resolveCoupon(tx *gorm.DB, ref *CouponRef) *uint {
	if ref == nil {
		return nil
	}
	if ref.ID != nil {
		return ref.ID
	}
	if ref.Code == "" {
		return nil
	}
	var coupon models.Coupon
	if err := tx.Where("code = ? AND active = ?", ref.Code, true).First(&coupon).Error; err != nil {
		return nil
	}
	return &coupon.ID
}

func buildItems(drafts []DraftItem, productNames, bundleNames map[uint]string) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(drafts))
	for _, d := range drafts {
		name := "Ürün"
		switch {
		case d.ProductID != nil:
			if n, ok := productNames[*d.ProductID]; ok {
				name = n
			}
		case d.BundleID != nil:
			if n, ok := bundleNames[*d.BundleID]; ok {
				name = n
			}
		}
		item := models.OrderItem{
			ProductID: d.ProductID,
			BundleID:  d.BundleID,
			VariantID: d.VariantID,
			Name:      name,
			UnitPrice: d.Price,
			Quantity:  d.Quantity,
			Subtotal:  d.Price * float64(d.Quantity),
		}
		if len(d.Variant) > 0 {
			if data, err := json.Marshal(d.Variant); err == nil {
				item.Variant = data
			}
		}
		items = append(items, item)
	}
	return items
}

func renderContracts(orderNumber string, p *DraftPayload, items []models.OrderItem, totals ResolvedTotals, now time.Time) (*contracts.Documents, error) {
	lines := make([]contracts.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, contracts.Line{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return contracts.Render(contracts.Input{
		OrderNumber: orderNumber,
		Buyer: contracts.Buyer{
			Name:  p.BillingAddress.FirstName + " " + p.BillingAddress.LastName,
			Email: p.NormalizedEmail(),
		},
		Lines:      lines,
		Totals:     contracts.Totals(totals),
		AcceptedAt: now,
	})
}

// decrementStock conditionally reduces stock per line item, guarded so a
// counter never goes negative. An item whose stock cannot cover the quantity
// is left untouched: the payment is captured, the discrepancy is an
// operational follow-up.
func (s *Service) decrementStock(ctx context.Context, items []models.OrderItem) []SideEffect {
	var effects []SideEffect
	for _, it := range items {
		var res *gorm.DB
		switch {
		case it.VariantID != nil:
			res = s.DB.WithContext(ctx).Model(&models.ProductVariant{}).
				Where("id = ? AND stock >= ?", *it.VariantID, it.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
		case it.ProductID != nil:
			res = s.DB.WithContext(ctx).Model(&models.Product{}).
				Where("id = ? AND stock >= ?", *it.ProductID, it.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
		case it.BundleID != nil:
			res = s.DB.WithContext(ctx).Model(&models.Bundle{}).
				Where("id = ? AND stock >= ?", *it.BundleID, it.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
		default:
			continue
		}
		name := fmt.Sprintf("stock_decrement(%s)", it.Name)
		switch {
		case res.Error != nil:
			effects = append(effects, SideEffect{Name: name, Err: res.Error})
		case res.RowsAffected == 0:
			effects = append(effects, SideEffect{Name: name, Err: errors.New("insufficient stock, not decremented")})
		default:
			effects = append(effects, SideEffect{Name: name})
		}
	}
	return effects
}

func (s *Service) notify(ctx context.Context, order *models.Order, items []models.OrderItem, email string) []SideEffect {
	var effects []SideEffect

	if s.Mailer != nil && email != "" {
		contractURL := fmt.Sprintf("%s/api/orders/contracts?token=%s", s.SiteURL, order.AccessToken)
		effects = append(effects, SideEffect{
			Name: "customer_confirmation_mail",
			Err:  s.Mailer.SendOrderConfirmation(order, items, email, contractURL),
		})
	}
	if s.Mailer != nil {
		effects = append(effects, SideEffect{
			Name: "admin_new_order_mail",
			Err:  s.Mailer.SendAdminNewOrder(order),
		})
	}

	event := map[string]any{
		"type":         "order_created",
		"order_number": order.OrderNumber,
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"total":        order.Total,
	}
	effects = append(effects, SideEffect{
		Name: "order_created_event",
		Err:  s.Producer.PublishEvent(ctx, events.TopicOrderEvents, order.OrderNumber, event),
	})
	return effects
}

func logSideEffects(ctx context.Context, orderNumber string, effects []SideEffect) {
	log := logging.FromContext(ctx)
	for _, e := range effects {
		if e.Err != nil {
			log.Error("order side effect failed",
				"order_number", orderNumber, "effect", e.Name, "error", e.Err)
		}
	}
}
