package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/fusionmarkt/shop/internal/checkout"
	"github.com/fusionmarkt/shop/internal/events"
	"github.com/fusionmarkt/shop/internal/history"
	"github.com/fusionmarkt/shop/internal/models"
	"github.com/fusionmarkt/shop/internal/payment"
)

// PaymentHandler terminates the gateway's 3-D Secure callback. Whatever
// happens inside, the response to the gateway and the browser is always a
// 303 redirect; errors only pick which page the customer lands on.
type PaymentHandler struct {
	DB             *gorm.DB
	Checkout       *checkout.Service
	Gateway        payment.Gateway
	Producer       *events.Producer
	SiteURL        string
	CallbackSecret string
}

func (h *PaymentHandler) Callback(c echo.Context) error {
	status := c.FormValue("status")
	paymentID := c.FormValue("paymentId")
	orderNumber := c.FormValue("conversationId")
	conversationData := c.FormValue("conversationData")
	mdStatus := c.FormValue("mdStatus")

	ctx := c.Request().Context()

	if h.CallbackSecret != "" && !h.verifySignature(c, status, paymentID, orderNumber) {
		c.Logger().Errorf("callback signature mismatch for order %s", orderNumber)
		return h.redirectFailure(c, orderNumber, payment.GenericFailureMessage)
	}

	if status != payment.StatusSuccess {
		msg := payment.VerificationFailureMessage(mdStatus)
		h.Checkout.DeleteDraft(ctx, orderNumber)
		return h.redirectFailure(c, orderNumber, msg)
	}

	capture, err := h.Gateway.Capture(ctx, payment.CaptureRequest{
		Locale:           "tr",
		ConversationID:   orderNumber,
		PaymentID:        paymentID,
		ConversationData: conversationData,
	})
	if err != nil {
		c.Logger().Errorf("capture call failed for order %s: %v", orderNumber, err)
		return h.redirectFailure(c, orderNumber, payment.GenericFailureMessage)
	}

	if capture.Status != payment.StatusSuccess {
		msg := payment.CaptureFailureMessage(capture.ErrorCode, capture.ErrorMessage)
		h.markOrderFailed(ctx, orderNumber, capture.ErrorCode)
		h.Checkout.DeleteDraft(ctx, orderNumber)
		if err := h.Producer.PublishEvent(ctx, events.TopicOrderEvents, orderNumber, map[string]any{
			"type":         "payment_failed",
			"order_number": orderNumber,
			"error_code":   capture.ErrorCode,
		}); err != nil {
			c.Logger().Errorf("Kafka publish error: %v", err)
		}
		return h.redirectFailure(c, orderNumber, msg)
	}

	draft, claimed, err := h.Checkout.ClaimDraft(ctx, orderNumber)
	if err != nil {
		c.Logger().Errorf("draft claim failed for order %s: %v", orderNumber, err)
	}
	if claimed {
		// Payment is captured at this point. Even if finalization blows up
		// the customer must see success; reconciliation is an operational
		// follow-up, not a reason to show a charged customer a failure.
		if _, err := h.Checkout.Finalize(ctx, draft, capture); err != nil {
			c.Logger().Errorf("finalization failed for order %s: %v", orderNumber, err)
		}
		return h.redirectSuccess(c, orderNumber, capture.PaymentID)
	}

	// No draft: duplicate gateway callback, or a prior invocation already
	// finalized. Promote the existing order if it is not PAID yet.
	h.promoteExistingOrder(ctx, orderNumber, capture.PaymentID, c)
	return h.redirectSuccess(c, orderNumber, capture.PaymentID)
}

// CallbackProbe answers the GETs some gateways use to probe the endpoint.
func (h *PaymentHandler) CallbackProbe(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, h.SiteURL+"/checkout")
}

func (h *PaymentHandler) promoteExistingOrder(ctx context.Context, orderNumber, paymentID string, c echo.Context) {
	var order models.Order
	if err := h.DB.WithContext(ctx).Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		c.Logger().Errorf("no order found for duplicate callback %s: %v", orderNumber, err)
		return
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return
	}
	raw, err := history.Append(order.StatusHistory, history.Entry{
		Change: &history.StatusChange{
			Status:    string(models.OrderStatusProcessing),
			Note:      "payment confirmed on duplicate callback",
			PaymentID: paymentID,
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		c.Logger().Errorf("history append failed for order %s: %v", orderNumber, err)
		return
	}
	updates := map[string]interface{}{
		"payment_status": models.PaymentStatusPaid,
		"status":         models.OrderStatusProcessing,
		"payment_id":     paymentID,
		"status_history": raw,
	}
	if err := h.DB.WithContext(ctx).Model(&order).Updates(updates).Error; err != nil {
		c.Logger().Errorf("order promote failed for %s: %v", orderNumber, err)
	}
}

// markOrderFailed is best-effort: a capture rejection should leave a trace on
// an existing order but must never change the redirect the customer gets.
func (h *PaymentHandler) markOrderFailed(ctx context.Context, orderNumber, errorCode string) {
	var order models.Order
	if err := h.DB.WithContext(ctx).Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return
	}
	raw, err := history.Append(order.StatusHistory, history.Entry{
		Change: &history.StatusChange{
			Status:    string(models.PaymentStatusFailed),
			Note:      "capture rejected, code " + errorCode,
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		return
	}
	h.DB.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
		"payment_status": models.PaymentStatusFailed,
		"status_history": raw,
	})
}

// verifySignature checks the HMAC the gateway attaches when a shared callback
// secret is configured: hex(HMAC-SHA256(secret, status|paymentId|conversationId)).
func (h *PaymentHandler) verifySignature(c echo.Context, status, paymentID, orderNumber string) bool {
	got := c.Request().Header.Get("X-Callback-Signature")
	if got == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.CallbackSecret))
	mac.Write([]byte(status + "|" + paymentID + "|" + orderNumber))
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(got), []byte(want))
}

func (h *PaymentHandler) redirectSuccess(c echo.Context, orderNumber, paymentID string) error {
	q := url.Values{}
	q.Set("orderNumber", orderNumber)
	q.Set("paymentId", paymentID)
	return c.Redirect(http.StatusSeeOther, h.SiteURL+"/order-confirmation?"+q.Encode())
}

func (h *PaymentHandler) redirectFailure(c echo.Context, orderNumber, msg string) error {
	q := url.Values{}
	q.Set("status", "failed")
	q.Set("error", msg)
	q.Set("orderNumber", orderNumber)
	return c.Redirect(http.StatusSeeOther, h.SiteURL+"/checkout/result?"+q.Encode())
}
