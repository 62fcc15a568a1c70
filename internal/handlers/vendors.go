package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/gateways"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateAvailability toggles whether the vendor is open for new offers.
// Vendors holding a pending offer or on an active trip cannot self-toggle.
func UpdateAvailability(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var input struct {
			Available bool `json:"available"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		var vendor models.Vendor
		if err := db.First(&vendor, vendorID).Error; err != nil {
			utils.RespondError(c, 404, "Vendor not found", nil)
			return
		}

		if vendor.AvailabilityStatus == models.VendorRequested || vendor.AvailabilityStatus == models.VendorOut {
			utils.RespondError(c, 409, "Availability is locked while an offer or trip is active", nil)
			return
		}

		status := models.VendorAvailable
		if !input.Available {
			status = models.VendorIn
		}

		if err := db.Model(&vendor).Updates(map[string]interface{}{
			"availability_status":      status,
			"is_available_for_booking": input.Available,
		}).Error; err != nil {
			utils.RespondError(c, 500, "Failed to update availability", err)
			return
		}

		services.SetVendorAvailability(context.Background(), vendorID, string(status))

		utils.RespondSuccess(c, 200, "Availability updated", gin.H{
			"availabilityStatus":    status,
			"isAvailableForBooking": input.Available,
		})
	}
}

// UpdateVendorLocation records the vendor's position while idle, keeping them
// matchable near their true location.
func UpdateVendorLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		// Pointer binding keeps 0 (equator, prime meridian) a valid coordinate.
		var input struct {
			Lat     *float64 `json:"lat" binding:"required"`
			Lng     *float64 `json:"lng" binding:"required"`
			Heading float64  `json:"heading"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}
		lat, lng := *input.Lat, *input.Lng
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			utils.RespondError(c, 400, "Invalid coordinates", nil)
			return
		}

		now := time.Now()
		res := db.Model(&models.VendorLocation{}).Where("vendor_id = ?", vendorID).
			Updates(map[string]interface{}{
				"latitude":  lat,
				"longitude": lng,
				"heading":   input.Heading,
				"last_seen": now,
			})
		if res.Error != nil {
			utils.RespondError(c, 500, "Failed to update location", res.Error)
			return
		}
		if res.RowsAffected == 0 {
			if err := db.Create(&models.VendorLocation{
				VendorID:  vendorID,
				Latitude:  lat,
				Longitude: lng,
				Heading:   input.Heading,
				LastSeen:  now,
			}).Error; err != nil {
				utils.RespondError(c, 500, "Failed to store location", err)
				return
			}
		}

		services.SetVendorLocation(context.Background(), vendorID, lat, lng, input.Heading)

		utils.RespondSuccess(c, 200, "Location updated", nil)
	}
}

type listVehicleInput struct {
	VehicleNumber  string  `json:"vehicleNumber" binding:"required"`
	VehicleModel   string  `json:"vehicleModel" binding:"required"`
	VehicleLength  float64 `json:"vehicleLength" binding:"required,gt=0"`
	TyreCount      int     `json:"tyreCount" binding:"required,gte=4"`
	WeightCapacity float64 `json:"weightCapacity" binding:"required,gt=0"`
}

// ListVehicle registers the vendor's truck. The listing goes into admin
// review; the vendor only becomes matchable once approved.
func ListVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var input listVehicleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		var vendor models.Vendor
		if err := db.First(&vendor, vendorID).Error; err != nil {
			utils.RespondError(c, 404, "Vendor not found", nil)
			return
		}

		if err := db.Model(&vendor).Updates(map[string]interface{}{
			"vehicle_number":  input.VehicleNumber,
			"vehicle_model":   input.VehicleModel,
			"vehicle_length":  input.VehicleLength,
			"tyre_count":      input.TyreCount,
			"weight_capacity": input.WeightCapacity,
			"vehicle_listed":  true,
			"vehicle_status":  models.VehicleStatusPending,
		}).Error; err != nil {
			utils.RespondError(c, 500, "Failed to list vehicle", err)
			return
		}

		utils.RespondSuccess(c, 200, "Vehicle listed and sent for review", gin.H{
			"vehicleNumber": input.VehicleNumber,
			"vehicleStatus": models.VehicleStatusPending,
		})
	}
}

// GetVendorStatus returns the vendor's own verification and availability state.
func GetVendorStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var vendor models.Vendor
		if err := db.First(&vendor, vendorID).Error; err != nil {
			utils.RespondError(c, 404, "Vendor not found", nil)
			return
		}

		utils.RespondSuccess(c, 200, "Vendor status fetched", gin.H{
			"profile": gin.H{
				"id":            vendor.ID,
				"fullName":      vendor.FullName,
				"contactNumber": vendor.ContactNumber,
				"email":         vendor.Email,
			},
			"kyc": gin.H{
				"aadhaarVerified": vendor.AadhaarVerified,
				"panVerified":     vendor.PanVerified,
				"rcVerified":      vendor.RcVerified,
				"dlVerified":      vendor.DlVerified,
			},
			"vehicle": gin.H{
				"listed":         vendor.VehicleListed,
				"status":         vendor.VehicleStatus,
				"vehicleNumber":  vendor.VehicleNumber,
				"vehicleModel":   vendor.VehicleModel,
				"vehicleLength":  vendor.VehicleLength,
				"tyreCount":      vendor.TyreCount,
				"weightCapacity": vendor.WeightCapacity,
			},
			"availabilityStatus":    vendor.AvailabilityStatus,
			"isAvailableForBooking": vendor.IsAvailableForBooking,
		})
	}
}

// UploadVendorDocument stores a document image (aadhaar/pan/rc/dl) for review.
func UploadVendorDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		docKind := c.PostForm("documentType")
		switch gateways.DocumentKind(docKind) {
		case gateways.DocumentAadhaar, gateways.DocumentPAN, gateways.DocumentRC, gateways.DocumentDL:
		default:
			utils.RespondError(c, 400, "documentType must be one of aadhaar, pan, rc, dl", nil)
			return
		}

		file, err := c.FormFile("document")
		if err != nil {
			utils.RespondError(c, 400, "document file is required", nil)
			return
		}
		if file.Size > 10<<20 {
			utils.RespondError(c, 400, "document must be under 10MB", nil)
			return
		}

		path, err := services.UploadDocument(file, "vendor", vendorID, docKind)
		if err != nil {
			utils.RespondError(c, 500, "Failed to store document", err)
			return
		}

		utils.RespondSuccess(c, 200, "Document uploaded", gin.H{
			"documentType": docKind,
			"url":          services.DocumentURL(path),
		})
	}
}

type verifyDocumentInput struct {
	DocumentType   string `json:"documentType" binding:"required,oneof=aadhaar pan rc dl"`
	DocumentNumber string `json:"documentNumber" binding:"required"`
	HolderName     string `json:"holderName" binding:"required"`
}

// kycFlagColumns maps a document kind to the vendor column it verifies.
var kycFlagColumns = map[gateways.DocumentKind]string{
	gateways.DocumentAadhaar: "aadhaar_verified",
	gateways.DocumentPAN:     "pan_verified",
	gateways.DocumentRC:      "rc_verified",
	gateways.DocumentDL:      "dl_verified",
}

// VerifyVendorDocument runs an online verification against the KYC provider
// and records the outcome on the vendor.
func VerifyVendorDocument(db *gorm.DB, kyc *gateways.KYCClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var input verifyDocumentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		kind := gateways.DocumentKind(input.DocumentType)
		result, err := kyc.VerifyDocument(kind, input.DocumentNumber, input.HolderName)
		if err != nil {
			utils.RespondError(c, 502, "Verification service unavailable", err)
			return
		}

		if !result.Verified {
			utils.RespondError(c, 422, "Document could not be verified: "+result.Message, nil)
			return
		}

		if err := db.Model(&models.Vendor{}).Where("id = ?", vendorID).
			Update(kycFlagColumns[kind], true).Error; err != nil {
			utils.RespondError(c, 500, "Failed to record verification", err)
			return
		}

		utils.RespondSuccess(c, 200, "Document verified successfully", gin.H{
			"documentType": input.DocumentType,
			"verified":     true,
		})
	}
}

// InitDigiLockerFlow starts the DigiLocker consent flow and returns the
// redirect URL for the vendor app.
func InitDigiLockerFlow(kyc *gateways.KYCClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		callbackURL := c.Query("callbackUrl")
		if callbackURL == "" {
			callbackURL = fmt.Sprintf("%s/api/vendors/kyc/digilocker/callback", c.Request.Host)
		}

		session, err := kyc.InitializeDigiLocker(fmt.Sprintf("vendor-%d", vendorID), callbackURL)
		if err != nil {
			utils.RespondError(c, 502, "Failed to start DigiLocker flow", err)
			return
		}

		utils.RespondSuccess(c, 200, "DigiLocker session created", gin.H{
			"sessionId":   session.SessionID,
			"redirectUrl": session.RedirectURL,
		})
	}
}

// CompleteDigiLockerFlow pulls the verified documents for a finished consent
// session and flips the corresponding vendor flags.
func CompleteDigiLockerFlow(db *gorm.DB, kyc *gateways.KYCClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var input struct {
			SessionID string `json:"sessionId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		docs, err := kyc.FetchDigiLockerDocuments(input.SessionID)
		if err != nil {
			utils.RespondError(c, 502, "Failed to fetch DigiLocker documents", err)
			return
		}

		updates := map[string]interface{}{}
		if docs.AadhaarVerified {
			updates["aadhaar_verified"] = true
		}
		if docs.PanVerified {
			updates["pan_verified"] = true
		}
		if docs.DlVerified {
			updates["dl_verified"] = true
		}

		if len(updates) > 0 {
			if err := db.Model(&models.Vendor{}).Where("id = ?", vendorID).Updates(updates).Error; err != nil {
				utils.RespondError(c, 500, "Failed to record verification", err)
				return
			}
		} else {
			utils.Logger.Warn("digilocker session returned no verified documents",
				zap.Uint("vendorId", vendorID), zap.String("message", docs.Message))
		}

		utils.RespondSuccess(c, 200, "DigiLocker verification completed", gin.H{
			"aadhaarVerified": docs.AadhaarVerified,
			"panVerified":     docs.PanVerified,
			"dlVerified":      docs.DlVerified,
		})
	}
}
