package handlers

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookPayload is the subset of the gateway's delivery we act on.
type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity struct {
				ID         string `json:"id"`
				Status     string `json:"status"`
				PaidCount  int    `json:"paid_count"`
				ChargeAt   int64  `json:"charge_at"`
				EndAt      int64  `json:"end_at"`
				CurrentEnd int64  `json:"current_end"`
			} `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				OrderID  string `json:"order_id"`
				Method   string `json:"method"`
				Status   string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// RazorpayWebhook ingests gateway deliveries. The raw body signature is
// checked first and fails closed; deliveries are deduplicated on the gateway
// event id so redeliveries never double-apply.
func RazorpayWebhook(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			utils.RespondError(c, 400, "Failed to read webhook body", err)
			return
		}

		signature := c.GetHeader("X-Razorpay-Signature")
		secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
		if secret == "" || !utils.VerifyWebhookSignature(body, signature, secret) {
			utils.Logger.Warn("webhook signature rejected", zap.String("eventId", c.GetHeader("X-Razorpay-Event-Id")))
			utils.RespondError(c, 401, "Invalid webhook signature", nil)
			return
		}

		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			utils.RespondError(c, 400, "Malformed webhook payload", err)
			return
		}

		eventID := c.GetHeader("X-Razorpay-Event-Id")
		if eventID == "" {
			utils.RespondError(c, 400, "Missing event id header", nil)
			return
		}

		event := models.WebhookEvent{
			Provider:        "razorpay",
			ProviderEventID: eventID,
			EventType:       payload.Event,
			Payload:         string(body),
			SignatureValid:  true,
		}
		// A conflict on (provider, event id) means a redelivery.
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&event)
		if res.Error != nil {
			utils.RespondError(c, 500, "Failed to record webhook event", res.Error)
			return
		}
		if res.RowsAffected == 0 {
			utils.RespondSuccess(c, 200, "Event already processed", nil)
			return
		}

		processErr := applyWebhookEvent(db, &payload)

		now := time.Now()
		updates := map[string]interface{}{"processed_at": now}
		if processErr != nil {
			updates["processing_error"] = processErr.Error()
			utils.Logger.Error("webhook processing failed",
				zap.String("event", payload.Event), zap.String("eventId", eventID), zap.Error(processErr))
		}
		db.Model(&event).Updates(updates)

		// Always 200 once the event is recorded: the gateway should not
		// redeliver an event we have already stored.
		utils.RespondSuccess(c, 200, "Webhook processed", nil)
	}
}

func applyWebhookEvent(db *gorm.DB, payload *webhookPayload) error {
	if strings.HasPrefix(payload.Event, "subscription.") {
		return applySubscriptionEvent(db, payload)
	}
	// Payment-only events (payment.captured, payment.failed) arrive alongside
	// subscription.charged; the charge path records the payment already.
	return nil
}

func applySubscriptionEvent(db *gorm.DB, payload *webhookPayload) error {
	target, err := models.StatusForEvent(payload.Event)
	if err != nil {
		return err
	}

	gatewaySubID := payload.Payload.Subscription.Entity.ID
	var sub models.PlanSubscription
	if err := db.Where("gateway_subscription_id = ?", gatewaySubID).First(&sub).Error; err != nil {
		return err
	}

	// Settled subscriptions never move again, whatever arrives late.
	if sub.Status.IsSettled() {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"subscription_status": target}

		entity := payload.Payload.Subscription.Entity
		if entity.ChargeAt > 0 {
			updates["next_billing_at"] = time.Unix(entity.ChargeAt, 0)
		}
		if entity.EndAt > 0 {
			updates["expires_at"] = time.Unix(entity.EndAt, 0)
		}
		if target == models.SubStatusCancelled {
			updates["cancelled_at"] = time.Now()
			updates["auto_renew"] = false
		}

		if payload.Event == "subscription.charged" {
			pay := payload.Payload.Payment.Entity
			if pay.ID != "" {
				payment := models.Payment{
					GatewayPaymentID:  pay.ID,
					GatewayOrderID:    pay.OrderID,
					Amount:            pay.Amount,
					Currency:          pay.Currency,
					Method:            pay.Method,
					SubscriptionID:    &sub.ID,
					Status:            models.PaymentCaptured,
					SignatureVerified: true,
					IsSetupCharge:     pay.Amount <= models.SetupChargeThreshold,
				}
				// First writer wins on the unique payment id; the cycle was
				// already counted when the payment first landed.
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&payment)
				if res.Error != nil {
					return res.Error
				}
				// A token verification charge does not consume a cycle.
				if res.RowsAffected > 0 && !payment.IsSetupCharge {
					updates["completed_billing_cycles"] = gorm.Expr("completed_billing_cycles + 1")
				}
			}
		}

		return tx.Model(&sub).Updates(updates).Error
	})
}
