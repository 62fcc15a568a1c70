package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxOTPPerHour caps sends per contact regardless of pacing.
const maxOTPPerHour = 5

type requestOTPInput struct {
	ContactNumber string `json:"contactNumber" binding:"required,min=10,max=13"`
	UserType      string `json:"userType" binding:"required,oneof=client vendor"`
	Purpose       string `json:"purpose" binding:"required,oneof=login signup"`
}

// RequestOTP issues a one-time password over SMS for login or signup.
func RequestOTP(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input requestOTPInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		ctx := context.Background()
		if count, err := services.OTPRequestCount(ctx, input.ContactNumber, time.Hour); err == nil && count > maxOTPPerHour {
			utils.RespondError(c, 429, "Too many OTP requests for this number. Try again later.", nil)
			return
		}

		// For login the account must already exist; signup must not collide.
		exists, err := accountExists(db, input.ContactNumber, models.UserType(input.UserType))
		if err != nil {
			utils.RespondError(c, 500, "Failed to look up account", err)
			return
		}
		if input.Purpose == string(models.OTPPurposeLogin) && !exists {
			utils.RespondError(c, 404, "No account found for this number. Please sign up first.", nil)
			return
		}
		if input.Purpose == string(models.OTPPurposeSignup) && exists {
			utils.RespondError(c, 409, "An account already exists for this number. Please log in.", nil)
			return
		}

		timestamp := time.Now().Format("20060102150405")
		uniqueKey := fmt.Sprintf("%s-%s-%s", input.ContactNumber, input.Purpose, timestamp)
		code := utils.GenerateOTP(uniqueKey)

		otp := models.OTP{
			ContactNumber: input.ContactNumber,
			UserType:      models.UserType(input.UserType),
			Purpose:       models.OTPPurpose(input.Purpose),
			ExpiresAt:     time.Now().Add(utils.OTPExpiration),
		}
		if err := otp.HashCode(code); err != nil {
			utils.RespondError(c, 500, "Failed to generate OTP", err)
			return
		}

		if err := db.Create(&otp).Error; err != nil {
			utils.RespondError(c, 500, "Failed to store OTP", err)
			return
		}

		// SMS failure does not block issuance; the code can still be resent.
		if err := utils.SendOTPSMS(input.ContactNumber, code, input.Purpose); err != nil {
			utils.Logger.Warn("otp sms failed", zap.String("contact", input.ContactNumber), zap.Error(err))
		}

		utils.RespondSuccess(c, 200, "OTP sent successfully", gin.H{
			"expiresInSeconds": int(utils.OTPExpiration.Seconds()),
		})
	}
}

type verifyOTPInput struct {
	ContactNumber string `json:"contactNumber" binding:"required"`
	UserType      string `json:"userType" binding:"required,oneof=client vendor"`
	Code          string `json:"code" binding:"required,len=4"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
}

// VerifyOTP checks a submitted code, creates the account on signup, and
// returns a signed token.
func VerifyOTP(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input verifyOTPInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		var otp models.OTP
		if err := db.Where("contact_number = ? AND user_type = ? AND used = ?",
			input.ContactNumber, input.UserType, false).
			Order("created_at DESC").First(&otp).Error; err != nil {
			utils.RespondError(c, 401, "No pending OTP for this number", nil)
			return
		}

		if !otp.IsValid() {
			utils.RespondError(c, 401, "OTP has expired. Please request a new one.", nil)
			return
		}
		if !otp.CheckCode(input.Code) {
			utils.RespondError(c, 401, "Incorrect OTP", nil)
			return
		}

		if err := otp.MarkAsUsed(db); err != nil {
			utils.RespondError(c, 500, "Failed to consume OTP", err)
			return
		}

		var (
			accountID uint
			profile   gin.H
		)

		switch models.UserType(input.UserType) {
		case models.UserTypeClient:
			var user models.User
			err := db.Where("contact_number = ?", input.ContactNumber).First(&user).Error
			if err == gorm.ErrRecordNotFound && otp.Purpose == models.OTPPurposeSignup {
				user = models.User{
					FullName:      input.FullName,
					Email:         input.Email,
					ContactNumber: input.ContactNumber,
					IsVerified:    true,
				}
				err = db.Create(&user).Error
			}
			if err != nil {
				utils.RespondError(c, 500, "Failed to load account", err)
				return
			}
			if !user.IsVerified {
				db.Model(&user).Update("is_verified", true)
			}
			accountID = user.ID
			profile = gin.H{"id": user.ID, "fullName": user.FullName, "contactNumber": user.ContactNumber}

		case models.UserTypeVendor:
			var vendor models.Vendor
			err := db.Where("contact_number = ?", input.ContactNumber).First(&vendor).Error
			if err == gorm.ErrRecordNotFound && otp.Purpose == models.OTPPurposeSignup {
				vendor = models.Vendor{
					FullName:      input.FullName,
					Email:         input.Email,
					ContactNumber: input.ContactNumber,
					IsVerified:    true,
				}
				err = db.Create(&vendor).Error
			}
			if err != nil {
				utils.RespondError(c, 500, "Failed to load account", err)
				return
			}
			if !vendor.IsVerified {
				db.Model(&vendor).Update("is_verified", true)
			}
			accountID = vendor.ID
			profile = gin.H{"id": vendor.ID, "fullName": vendor.FullName, "contactNumber": vendor.ContactNumber}
		}

		token, err := utils.GenerateToken(accountID, input.ContactNumber, input.UserType)
		if err != nil {
			utils.RespondError(c, 500, "Failed to issue token", err)
			return
		}

		utils.RespondSuccess(c, 200, "OTP verified successfully", gin.H{
			"token":    token,
			"userType": input.UserType,
			"profile":  profile,
		})
	}
}

func accountExists(db *gorm.DB, contactNumber string, userType models.UserType) (bool, error) {
	var count int64
	var err error
	if userType == models.UserTypeVendor {
		err = db.Model(&models.Vendor{}).Where("contact_number = ?", contactNumber).Count(&count).Error
	} else {
		err = db.Model(&models.User{}).Where("contact_number = ?", contactNumber).Count(&count).Error
	}
	return count > 0, err
}
