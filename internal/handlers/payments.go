package handlers

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/gateways"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type verifyPaymentInput struct {
	GatewayPaymentID      string `json:"razorpayPaymentId" binding:"required"`
	GatewaySubscriptionID string `json:"razorpaySubscriptionId" binding:"required"`
	Signature             string `json:"razorpaySignature" binding:"required"`
}

// VerifySubscriptionPayment checks the signature returned by the checkout
// after a subscription payment. A bad signature records the payment as failed
// and never activates anything.
func VerifySubscriptionPayment(db *gorm.DB, rzp *gateways.RazorpayClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input verifyPaymentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		var sub models.PlanSubscription
		query := db.Where("gateway_subscription_id = ?", input.GatewaySubscriptionID)
		if userType == string(models.UserTypeVendor) {
			query = query.Where("vendor_id = ?", accountID)
		} else {
			query = query.Where("user_id = ?", accountID)
		}
		if err := query.First(&sub).Error; err != nil {
			utils.RespondError(c, 404, "Subscription not found", nil)
			return
		}

		secret := os.Getenv("RAZORPAY_KEY_SECRET")
		verified := utils.VerifyPaymentSignature(input.GatewayPaymentID, input.GatewaySubscriptionID, input.Signature, secret)

		payment := models.Payment{
			GatewayPaymentID:  input.GatewayPaymentID,
			SubscriptionID:    &sub.ID,
			SignatureVerified: verified,
			Status:            models.PaymentFailed,
		}

		if !verified {
			// First writer wins on the unique payment id; a duplicate failure
			// report is not an error worth surfacing.
			if err := db.Create(&payment).Error; err != nil {
				utils.Logger.Warn("failed payment record insert", zap.String("paymentId", input.GatewayPaymentID), zap.Error(err))
			}
			utils.RespondError(c, 400, "Payment signature verification failed", nil)
			return
		}

		// Enrich from the gateway when reachable; verification already passed.
		if info, err := rzp.FetchPayment(input.GatewayPaymentID); err == nil {
			payment.Amount = info.Amount
			payment.Currency = info.Currency
			payment.GatewayOrderID = info.OrderID
			payment.Method = info.Method
			payment.IsSetupCharge = info.Amount <= models.SetupChargeThreshold
		} else {
			utils.Logger.Warn("payment fetch failed after verification", zap.String("paymentId", input.GatewayPaymentID), zap.Error(err))
		}
		payment.Status = models.PaymentCaptured

		err := db.Transaction(func(tx *gorm.DB) error {
			// The charged webhook may have recorded this payment id already;
			// first writer wins and verification still succeeds.
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&payment)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				utils.Logger.Info("payment already recorded", zap.String("paymentId", input.GatewayPaymentID))
			}
			// The webhook moves the subscription to active; verification only
			// lifts it out of pending so the UI can show progress.
			return tx.Model(&sub).
				Where("subscription_status = ?", models.SubStatusPending).
				Update("subscription_status", models.SubStatusAuthenticated).Error
		})
		if err != nil {
			utils.RespondError(c, 500, "Failed to record payment", err)
			return
		}

		utils.RespondSuccess(c, 200, "Payment verified successfully", gin.H{
			"subscriptionId": sub.ID,
			"paymentId":      input.GatewayPaymentID,
			"verified":       true,
		})
	}
}

// GetPaymentHistory lists the caller's recorded payments.
func GetPaymentHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint("userId")
		userType := c.GetString("userType")

		var subIDs []uint
		subQuery := db.Model(&models.PlanSubscription{})
		if userType == string(models.UserTypeVendor) {
			subQuery = subQuery.Where("vendor_id = ?", accountID)
		} else {
			subQuery = subQuery.Where("user_id = ?", accountID)
		}
		if err := subQuery.Pluck("id", &subIDs).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch payments", err)
			return
		}

		var bookingIDs []uint
		if userType == string(models.UserTypeClient) {
			if err := db.Model(&models.Booking{}).Where("client_id = ?", accountID).
				Pluck("id", &bookingIDs).Error; err != nil {
				utils.RespondError(c, 500, "Failed to fetch payments", err)
				return
			}
		}

		var payments []models.Payment
		query := db.Order("created_at DESC")
		switch {
		case len(subIDs) > 0 && len(bookingIDs) > 0:
			query = query.Where("subscription_id IN (?) OR booking_id IN (?)", subIDs, bookingIDs)
		case len(subIDs) > 0:
			query = query.Where("subscription_id IN (?)", subIDs)
		case len(bookingIDs) > 0:
			query = query.Where("booking_id IN (?)", bookingIDs)
		default:
			utils.RespondSuccess(c, 200, "Payments fetched", []models.Payment{})
			return
		}
		if err := query.Find(&payments).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch payments", err)
			return
		}

		utils.RespondSuccess(c, 200, "Payments fetched", payments)
	}
}
