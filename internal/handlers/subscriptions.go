package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/gateways"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errSubscriptionExists = errors.New("account already has an open subscription")

// GetPlans lists active plans for the caller's account type.
func GetPlans(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		audience := c.GetString("userType")

		var plans []models.Plan
		if err := db.Where("audience = ? AND is_active = ?", audience, true).
			Order("amount ASC").
			Find(&plans).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch plans", err)
			return
		}

		utils.RespondSuccess(c, 200, "Plans fetched", plans)
	}
}

// Subscribe opens a recurring billing agreement on a plan. The local row is
// reserved first so a second request cannot race past the one-open-subscription
// rule, then the gateway agreement is created outside the transaction and
// linked back.
func Subscribe(db *gorm.DB, rzp *gateways.RazorpayClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input struct {
			PlanID uint `json:"planId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		var plan models.Plan
		if err := db.First(&plan, input.PlanID).Error; err != nil {
			utils.RespondError(c, 404, "Plan not found", nil)
			return
		}
		if !plan.IsActive || plan.Audience != userType {
			utils.RespondError(c, 403, "Plan is not available for this account", nil)
			return
		}

		name, contact, email, err := accountContact(db, accountID, userType)
		if err != nil {
			utils.RespondError(c, 500, "Failed to load account", err)
			return
		}

		// Phase one: reserve the pending row under the uniqueness rule.
		sub := models.PlanSubscription{
			PlanID:             plan.ID,
			Status:             models.SubStatusPending,
			TotalBillingCycles: plan.TotalCycles,
		}
		if userType == string(models.UserTypeVendor) {
			sub.VendorID = &accountID
		} else {
			sub.UserID = &accountID
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var open int64
			query := tx.Model(&models.PlanSubscription{}).
				Where("subscription_status NOT IN (?)",
					[]models.SubscriptionStatus{models.SubStatusCancelled, models.SubStatusCompleted})
			if userType == string(models.UserTypeVendor) {
				query = query.Where("vendor_id = ?", accountID)
			} else {
				query = query.Where("user_id = ?", accountID)
			}
			if err := query.Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				return errSubscriptionExists
			}
			return tx.Create(&sub).Error
		})
		if err != nil {
			if errors.Is(err, errSubscriptionExists) {
				utils.RespondError(c, 409, "You already have an active or pending subscription", nil)
				return
			}
			utils.RespondError(c, 500, "Failed to create subscription", err)
			return
		}

		// Phase two: gateway calls happen outside the transaction. On failure
		// the reserved row is released so the account can retry.
		customer, err := rzp.CreateCustomer(name, contact, email)
		if err == nil {
			var gwSub *gateways.Subscription
			gwSub, err = rzp.CreateSubscription(plan.GatewayPlanID, customer.ID, plan.TotalCycles, 0, plan.Currency)
			if err == nil {
				updates := map[string]interface{}{
					"gateway_subscription_id": gwSub.ID,
					"gateway_customer_id":     customer.ID,
				}
				if gwSub.ChargeAt > 0 {
					next := time.Unix(gwSub.ChargeAt, 0)
					updates["next_billing_at"] = next
				}
				if gwSub.EndAt > 0 {
					end := time.Unix(gwSub.EndAt, 0)
					updates["expires_at"] = end
				}
				if dbErr := db.Model(&sub).Updates(updates).Error; dbErr != nil {
					utils.RespondError(c, 500, "Failed to link gateway subscription", dbErr)
					return
				}

				utils.RespondSuccess(c, 201, "Subscription created. Complete the payment to activate.", gin.H{
					"subscriptionId":        sub.ID,
					"gatewaySubscriptionId": gwSub.ID,
					"paymentUrl":            gwSub.ShortURL,
					"status":                models.SubStatusPending,
				})
				return
			}
		}

		utils.Logger.Error("gateway subscription create failed", zap.Uint("planId", plan.ID), zap.Error(err))
		db.Delete(&sub)
		utils.RespondError(c, 502, "Payment gateway is unavailable, please try again", err)
	}
}

// GetMySubscription returns the caller's open subscription, if any.
func GetMySubscription(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint("userId")
		userType := c.GetString("userType")

		var sub models.PlanSubscription
		query := db.Preload("Plan").
			Where("subscription_status NOT IN (?)",
				[]models.SubscriptionStatus{models.SubStatusCancelled, models.SubStatusCompleted})
		if userType == string(models.UserTypeVendor) {
			query = query.Where("vendor_id = ?", accountID)
		} else {
			query = query.Where("user_id = ?", accountID)
		}
		if err := query.Order("created_at DESC").First(&sub).Error; err != nil {
			utils.RespondError(c, 404, "No active subscription found", nil)
			return
		}

		utils.RespondSuccess(c, 200, "Subscription fetched", sub)
	}
}

// CancelSubscription stops the recurring agreement, by default at cycle end.
func CancelSubscription(db *gorm.DB, rzp *gateways.RazorpayClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input struct {
			Immediately bool `json:"immediately"`
		}
		c.ShouldBindJSON(&input)

		var sub models.PlanSubscription
		query := db.Where("subscription_status NOT IN (?)",
			[]models.SubscriptionStatus{models.SubStatusCancelled, models.SubStatusCompleted})
		if userType == string(models.UserTypeVendor) {
			query = query.Where("vendor_id = ?", accountID)
		} else {
			query = query.Where("user_id = ?", accountID)
		}
		if err := query.First(&sub).Error; err != nil {
			utils.RespondError(c, 404, "No active subscription found", nil)
			return
		}

		if sub.GatewaySubscriptionID != "" {
			if _, err := rzp.CancelSubscription(sub.GatewaySubscriptionID, !input.Immediately); err != nil {
				utils.RespondError(c, 502, "Failed to cancel at the payment gateway", err)
				return
			}
		}

		now := time.Now()
		if err := db.Model(&sub).Updates(map[string]interface{}{
			"subscription_status": models.SubStatusCancelled,
			"auto_renew":          false,
			"cancelled_at":        now,
		}).Error; err != nil {
			utils.RespondError(c, 500, "Failed to record cancellation", err)
			return
		}

		utils.RespondSuccess(c, 200, "Subscription cancelled", gin.H{
			"subscriptionId": sub.ID,
			"status":         models.SubStatusCancelled,
		})
	}
}

func accountContact(db *gorm.DB, accountID uint, userType string) (name, contact, email string, err error) {
	if userType == string(models.UserTypeVendor) {
		var vendor models.Vendor
		if err = db.First(&vendor, accountID).Error; err != nil {
			return
		}
		return vendor.FullName, vendor.ContactNumber, vendor.Email, nil
	}
	var user models.User
	if err = db.First(&user, accountID).Error; err != nil {
		return
	}
	return user.FullName, user.ContactNumber, user.Email, nil
}
