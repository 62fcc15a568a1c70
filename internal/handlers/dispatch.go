package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestVendor (re)starts dispatch for a booking owned by the caller. Used
// both right after creation fails to find anyone and when the client wants to
// retry after the pool was exhausted.
func RequestVendor(db *gorm.DB, dispatcher *services.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		clientID := c.GetUint("userId")

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}
		if booking.ClientID != clientID {
			utils.RespondError(c, 403, "Unauthorized for this booking", nil)
			return
		}

		request, err := dispatcher.SendBookingRequest(booking.ID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBookingClosed):
				utils.RespondError(c, 409, "Booking is no longer open for dispatch", nil)
			case errors.Is(err, services.ErrOfferProcessed):
				utils.RespondError(c, 409, "An offer is already pending for this booking", nil)
			case errors.Is(err, services.ErrNoVendorAvailable):
				utils.RespondError(c, 404, "No vendor available near the pickup location", nil)
			default:
				utils.RespondError(c, 500, "Failed to dispatch booking", err)
			}
			return
		}

		utils.RespondSuccess(c, 200, "Offer sent to the nearest vendor", gin.H{
			"requestId":      request.ID,
			"sequenceNumber": request.SequenceNumber,
			"distanceKm":     request.DistanceKm,
			"etaMins":        request.EtaMins,
			"expiresAt":      request.ExpiresAt,
		})
	}
}

// GetPendingOffers lists the calling vendor's open dispatch offers.
func GetPendingOffers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var requests []models.BookingRequest
		if err := db.Where("vendor_id = ? AND status = ? AND expires_at > ?",
			vendorID, models.RequestStatusPending, time.Now()).
			Preload("Booking").
			Order("sent_at DESC").
			Find(&requests).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch offers", err)
			return
		}

		offers := make([]gin.H, 0, len(requests))
		for _, r := range requests {
			offer := gin.H{
				"requestId":  r.ID,
				"bookingId":  r.BookingID,
				"distanceKm": r.DistanceKm,
				"etaMins":    r.EtaMins,
				"sentAt":     r.SentAt,
				"expiresAt":  r.ExpiresAt,
			}
			if r.Booking != nil {
				offer["pickupAddress"] = r.Booking.PickupAddr
				offer["dropAddress"] = r.Booking.DropAddr
				offer["materialType"] = r.Booking.MaterialType
				offer["materialWeight"] = r.Booking.MaterialWeight
				offer["amount"] = r.Booking.FinalAmount
			}
			offers = append(offers, offer)
		}

		utils.RespondSuccess(c, 200, "Pending offers fetched", gin.H{
			"count":  len(offers),
			"offers": offers,
		})
	}
}

// AcceptOffer resolves a dispatch offer in the calling vendor's favor.
func AcceptOffer(db *gorm.DB, dispatcher *services.Dispatcher, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var input struct {
			RequestID uint `json:"requestId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		booking, err := dispatcher.Accept(input.RequestID, vendorID)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				utils.RespondError(c, 404, "Offer not found", nil)
			case errors.Is(err, services.ErrNotOfferOwner):
				utils.RespondError(c, 403, "This offer belongs to another vendor", nil)
			case errors.Is(err, services.ErrOfferExpired):
				utils.RespondError(c, 410, "This offer has expired", nil)
			case errors.Is(err, services.ErrOfferProcessed):
				utils.RespondError(c, 409, "This offer has already been resolved", nil)
			default:
				utils.RespondError(c, 500, "Failed to accept offer", err)
			}
			return
		}

		hub.SendBookingStatusToClient(booking.ClientID, services.BookingStatusUpdate{
			BookingID: booking.ID,
			Status:    string(booking.Status),
			Message:   "A vendor has accepted your booking",
		})

		// The confirmation SMS is best effort; the acceptance already committed.
		var vendor models.Vendor
		if err := db.First(&vendor, vendorID).Error; err != nil {
			utils.Logger.Warn("vendor lookup failed after accept", zap.Uint("vendorId", vendorID), zap.Error(err))
		} else {
			var client models.User
			if err := db.First(&client, booking.ClientID).Error; err != nil {
				utils.Logger.Warn("client lookup failed after accept", zap.Uint("clientId", booking.ClientID), zap.Error(err))
			} else if smsErr := utils.SendBookingConfirmedSMS(client.ContactNumber, vendor.FullName, vendor.VehicleNumber); smsErr != nil {
				utils.Logger.Warn("booking confirmed sms failed", zap.Uint("bookingId", booking.ID), zap.Error(smsErr))
			}
		}

		utils.RespondSuccess(c, 200, "Booking accepted successfully", gin.H{
			"bookingId":     booking.ID,
			"bookingRef":    booking.BookingRef,
			"status":        booking.Status,
			"pickupAddress": booking.PickupAddr,
			"dropAddress":   booking.DropAddr,
			"finalAmount":   booking.FinalAmount,
		})
	}
}

// RejectOffer declines an offer and advances dispatch to the next candidate.
func RejectOffer(db *gorm.DB, dispatcher *services.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var input struct {
			RequestID uint `json:"requestId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		next, err := dispatcher.Reject(input.RequestID, vendorID)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				utils.RespondError(c, 404, "Offer not found", nil)
			case errors.Is(err, services.ErrNotOfferOwner):
				utils.RespondError(c, 403, "This offer belongs to another vendor", nil)
			case errors.Is(err, services.ErrOfferProcessed):
				utils.RespondError(c, 409, "This offer has already been resolved", nil)
			case errors.Is(err, services.ErrBookingClosed):
				utils.RespondSuccess(c, 200, "Offer rejected", gin.H{"nextVendorFound": false})
			default:
				utils.RespondError(c, 500, "Failed to reject offer", err)
			}
			return
		}

		utils.RespondSuccess(c, 200, "Offer rejected", gin.H{
			"nextVendorFound": next != nil,
		})
	}
}
