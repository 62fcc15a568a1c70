package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"gorm.io/gorm"
)

// GetProfile retrieves the calling account's profile.
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType == string(models.UserTypeVendor) {
			var vendor models.Vendor
			if err := db.First(&vendor, userID).Error; err != nil {
				utils.RespondError(c, 404, "Account not found", nil)
				return
			}
			utils.RespondSuccess(c, 200, "Profile fetched", gin.H{
				"id":            vendor.ID,
				"fullName":      vendor.FullName,
				"email":         vendor.Email,
				"contactNumber": vendor.ContactNumber,
				"userType":      models.UserTypeVendor,
				"isVerified":    vendor.IsVerified,
			})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			utils.RespondError(c, 404, "Account not found", nil)
			return
		}
		utils.RespondSuccess(c, 200, "Profile fetched", gin.H{
			"id":            user.ID,
			"fullName":      user.FullName,
			"email":         user.Email,
			"contactNumber": user.ContactNumber,
			"userType":      models.UserTypeClient,
			"isVerified":    user.IsVerified,
			"city":          user.City,
			"state":         user.State,
		})
	}
}

// UpdateProfile updates the calling account's profile. The contact number is
// the login identity and cannot be changed here.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input struct {
			FullName *string `json:"fullName"`
			Email    *string `json:"email"`
			City     *string `json:"city"`
			State    *string `json:"state"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		if userType == string(models.UserTypeVendor) {
			var vendor models.Vendor
			if err := db.First(&vendor, userID).Error; err != nil {
				utils.RespondError(c, 404, "Account not found", nil)
				return
			}
			if input.FullName != nil {
				vendor.FullName = *input.FullName
			}
			if input.Email != nil {
				vendor.Email = *input.Email
			}
			if err := db.Save(&vendor).Error; err != nil {
				utils.RespondError(c, 500, "Failed to update profile", err)
				return
			}
			utils.RespondSuccess(c, 200, "Profile updated", gin.H{
				"id":       vendor.ID,
				"fullName": vendor.FullName,
				"email":    vendor.Email,
			})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			utils.RespondError(c, 404, "Account not found", nil)
			return
		}
		if input.FullName != nil {
			user.FullName = *input.FullName
		}
		if input.Email != nil {
			user.Email = *input.Email
		}
		if input.City != nil {
			user.City = *input.City
		}
		if input.State != nil {
			user.State = *input.State
		}
		if err := db.Save(&user).Error; err != nil {
			utils.RespondError(c, 500, "Failed to update profile", err)
			return
		}
		utils.RespondSuccess(c, 200, "Profile updated", gin.H{
			"id":       user.ID,
			"fullName": user.FullName,
			"email":    user.Email,
			"city":     user.City,
			"state":    user.State,
		})
	}
}
