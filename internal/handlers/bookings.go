package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/gateways"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Coordinates bind as pointers so a legitimate 0 (equator, prime meridian)
// is distinguishable from a missing field.
type createBookingInput struct {
	Pickup struct {
		Lat     *float64 `json:"lat" binding:"required"`
		Lng     *float64 `json:"lng" binding:"required"`
		Address string   `json:"address" binding:"required"`
	} `json:"pickup" binding:"required"`
	Drop struct {
		Lat     *float64 `json:"lat" binding:"required"`
		Lng     *float64 `json:"lng" binding:"required"`
		Address string   `json:"address" binding:"required"`
	} `json:"drop" binding:"required"`
	MaterialType   string  `json:"materialType" binding:"required"`
	MaterialWeight float64 `json:"materialWeight" binding:"required,gt=0"`
	VehicleModel   string  `json:"vehicleModel"`
	PaymentMethod  string  `json:"paymentMethod" binding:"omitempty,oneof=cash online"`
}

// CreateBooking registers a new shipment request, prices it and kicks off
// vendor dispatch.
func CreateBooking(db *gorm.DB, dispatcher *services.Dispatcher, maps *gateways.MapsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetUint("userId")

		var input createBookingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		pickupLat, pickupLng := *input.Pickup.Lat, *input.Pickup.Lng
		dropLat, dropLng := *input.Drop.Lat, *input.Drop.Lng

		if pickupLat < -90 || pickupLat > 90 || dropLat < -90 || dropLat > 90 {
			utils.RespondError(c, 400, "Invalid latitude", nil)
			return
		}
		if pickupLng < -180 || pickupLng > 180 || dropLng < -180 || dropLng > 180 {
			utils.RespondError(c, 400, "Invalid longitude", nil)
			return
		}

		// Road distance from the maps provider, aerial fallback when it is down.
		distance := utils.HaversineDistance(pickupLat, pickupLng, dropLat, dropLng)
		if route, err := maps.GetRoute(pickupLat, pickupLng, dropLat, dropLng); err == nil {
			distance = route.DistanceKm
		} else {
			utils.Logger.Warn("maps route lookup failed, using haversine", zap.Error(err))
		}

		fare := utils.EstimateFreightFare(distance, input.MaterialWeight, input.VehicleModel)

		paymentMethod := input.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = models.PaymentMethodCash
		}

		booking := models.Booking{
			BookingRef:     uuid.NewString(),
			ClientID:       clientID,
			PickupLat:      pickupLat,
			PickupLng:      pickupLng,
			PickupAddr:     input.Pickup.Address,
			DropLat:        dropLat,
			DropLng:        dropLng,
			DropAddr:       input.Drop.Address,
			MaterialType:   input.MaterialType,
			MaterialWeight: input.MaterialWeight,
			VehicleModel:   input.VehicleModel,
			DistanceKm:     fare.Distance,
			EstimatedPrice: fare.TotalFare,
			PaymentMethod:  paymentMethod,
			Status:         models.BookingStatusSearchingVendor,
		}
		booking.FinalAmount = booking.ComputeFinalAmount()
		booking.DistanceRemainingKm = fare.Distance

		if err := db.Create(&booking).Error; err != nil {
			utils.RespondError(c, 500, "Failed to create booking", err)
			return
		}

		request, err := dispatcher.SendBookingRequest(booking.ID)
		if err != nil && err != services.ErrNoVendorAvailable {
			utils.Logger.Error("initial dispatch failed", zap.Uint("bookingId", booking.ID), zap.Error(err))
		}

		message := "Booking created. Searching for a vendor."
		if request != nil {
			message = "Booking created. Offer sent to the nearest vendor."
		} else if err == services.ErrNoVendorAvailable {
			message = "Booking created. No vendor available at the moment."
		}

		utils.RespondSuccess(c, 201, message, gin.H{
			"bookingRef":     booking.BookingRef,
			"bookingId":      booking.ID,
			"status":         booking.Status,
			"distanceKm":     booking.DistanceKm,
			"estimatedPrice": booking.EstimatedPrice,
			"finalAmount":    booking.FinalAmount,
			"fareBreakdown":  fare.Breakdown,
		})
	}
}

// GetBookingStatus retrieves detailed booking information for either party.
func GetBookingStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var booking models.Booking
		if err := db.Preload("Client").Preload("AssignedVendor").First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}

		if !canAccessBooking(&booking, userID, userType) {
			utils.RespondError(c, 403, "Unauthorized to view this booking", nil)
			return
		}

		response := gin.H{
			"bookingRef":          booking.BookingRef,
			"bookingId":           booking.ID,
			"status":              booking.Status,
			"pickup":              gin.H{"lat": booking.PickupLat, "lng": booking.PickupLng, "address": booking.PickupAddr},
			"drop":                gin.H{"lat": booking.DropLat, "lng": booking.DropLng, "address": booking.DropAddr},
			"materialType":        booking.MaterialType,
			"materialWeight":      booking.MaterialWeight,
			"distanceKm":          booking.DistanceKm,
			"estimatedPrice":      booking.EstimatedPrice,
			"adjustedPrice":       booking.AdjustedPrice,
			"finalAmount":         booking.FinalAmount,
			"paymentMethod":       booking.PaymentMethod,
			"paymentStatus":       booking.PaymentStatus,
			"distanceCoveredKm":   booking.DistanceCoveredKm,
			"distanceRemainingKm": booking.DistanceRemainingKm,
		}

		if userType == string(models.UserTypeClient) && booking.AssignedVendor != nil {
			response["vendor"] = gin.H{
				"id":            booking.AssignedVendor.ID,
				"fullName":      booking.AssignedVendor.FullName,
				"contactNumber": booking.AssignedVendor.ContactNumber,
				"vehicleNumber": booking.AssignedVendor.VehicleNumber,
				"vehicleModel":  booking.AssignedVendor.VehicleModel,
			}
		}
		if userType == string(models.UserTypeVendor) && booking.Client != nil {
			response["client"] = gin.H{
				"id":            booking.Client.ID,
				"fullName":      booking.Client.FullName,
				"contactNumber": booking.Client.ContactNumber,
			}
		}

		utils.RespondSuccess(c, 200, "Booking fetched", response)
	}
}

// GetClientBookings retrieves all bookings for the calling client.
func GetClientBookings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var bookings []models.Booking
		if err := db.Where("client_id = ?", userID).
			Preload("AssignedVendor").
			Order("created_at DESC").
			Find(&bookings).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch bookings", err)
			return
		}

		utils.RespondSuccess(c, 200, "Bookings fetched", bookings)
	}
}

// GetVendorBookings retrieves bookings assigned to the calling vendor.
func GetVendorBookings(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := c.GetUint("userId")

		var bookings []models.Booking
		if err := db.Where("assigned_vendor_id = ?", vendorID).
			Preload("Client").
			Order("created_at DESC").
			Find(&bookings).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch bookings", err)
			return
		}

		utils.RespondSuccess(c, 200, "Bookings fetched", bookings)
	}
}

type cancelBookingInput struct {
	Reason string `json:"reason"`
}

// CancelBooking cancels a booking from any pre-completed state. Double
// cancellation is a no-op conflict, not an error cascade.
func CancelBooking(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input cancelBookingInput
		c.ShouldBindJSON(&input)

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}

		if !canAccessBooking(&booking, userID, userType) {
			utils.RespondError(c, 403, "Unauthorized to cancel this booking", nil)
			return
		}

		if booking.Status == models.BookingStatusCancelled {
			utils.RespondError(c, 409, "Booking is already cancelled", nil)
			return
		}
		if booking.Status == models.BookingStatusCompleted {
			utils.RespondError(c, 409, "Completed bookings cannot be cancelled", nil)
			return
		}

		now := time.Now()
		var offeredVendors []uint
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Booking{}).
				Where("id = ? AND status NOT IN (?)", booking.ID,
					[]models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled}).
				Updates(map[string]interface{}{
					"status":        models.BookingStatusCancelled,
					"cancelled_at":  now,
					"cancel_reason": input.Reason,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return services.ErrBookingClosed
			}

			// Kill any offer still on the table and free its vendor; the offer
			// is what holds them in 'requested'.
			if err := tx.Model(&models.BookingRequest{}).
				Where("booking_id = ? AND status = ?", booking.ID, models.RequestStatusPending).
				Pluck("vendor_id", &offeredVendors).Error; err != nil {
				return err
			}
			if len(offeredVendors) > 0 {
				if err := tx.Model(&models.BookingRequest{}).
					Where("booking_id = ? AND status = ?", booking.ID, models.RequestStatusPending).
					Updates(map[string]interface{}{"status": models.RequestStatusExpired, "responded_at": now}).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.Vendor{}).
					Where("id IN (?) AND availability_status = ?", offeredVendors, models.VendorRequested).
					Updates(map[string]interface{}{
						"availability_status":      models.VendorAvailable,
						"is_available_for_booking": true,
					}).Error; err != nil {
					return err
				}
			}

			if booking.AssignedVendorID != nil {
				return tx.Model(&models.Vendor{}).Where("id = ?", *booking.AssignedVendorID).
					Updates(map[string]interface{}{
						"availability_status":      models.VendorAvailable,
						"is_available_for_booking": true,
					}).Error
			}
			return nil
		})
		if err != nil {
			if err == services.ErrBookingClosed {
				utils.RespondError(c, 409, "Booking can no longer be cancelled", nil)
				return
			}
			utils.RespondError(c, 500, "Failed to cancel booking", err)
			return
		}

		ctx := context.Background()
		services.PublishBookingUpdate(ctx, booking.ID, string(models.BookingStatusCancelled), gin.H{"reason": input.Reason})
		for _, id := range offeredVendors {
			services.SetVendorAvailability(ctx, id, string(models.VendorAvailable))
		}
		if booking.AssignedVendorID != nil {
			services.SetVendorAvailability(ctx, *booking.AssignedVendorID, string(models.VendorAvailable))
			hub.SendBookingStatusToVendor(*booking.AssignedVendorID, services.BookingStatusUpdate{
				BookingID: booking.ID,
				Status:    string(models.BookingStatusCancelled),
				Message:   "Booking cancelled",
			})
		}
		hub.SendBookingStatusToClient(booking.ClientID, services.BookingStatusUpdate{
			BookingID: booking.ID,
			Status:    string(models.BookingStatusCancelled),
			Message:   "Booking cancelled successfully",
		})

		utils.RespondSuccess(c, 200, "Booking cancelled successfully", gin.H{
			"bookingId": booking.ID,
			"status":    models.BookingStatusCancelled,
		})
	}
}

type updatePriceInput struct {
	AdjustedPrice float64 `json:"adjustedPrice" binding:"required,gt=0"`
}

// UpdateBookingPrice records a negotiated price and recomputes the amount
// due. Settled bookings are immutable.
func UpdateBookingPrice(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input updatePriceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}

		if !canAccessBooking(&booking, userID, userType) {
			utils.RespondError(c, 403, "Unauthorized to update this booking", nil)
			return
		}

		if booking.Status.IsTerminal() {
			utils.RespondError(c, 409, "Price cannot be changed on a settled booking", nil)
			return
		}

		booking.AdjustedPrice = &input.AdjustedPrice
		booking.FinalAmount = booking.ComputeFinalAmount()
		if err := db.Model(&booking).Updates(map[string]interface{}{
			"adjusted_price": booking.AdjustedPrice,
			"final_amount":   booking.FinalAmount,
		}).Error; err != nil {
			utils.RespondError(c, 500, "Failed to update price", err)
			return
		}

		utils.RespondSuccess(c, 200, "Price updated successfully", gin.H{
			"bookingId":     booking.ID,
			"adjustedPrice": input.AdjustedPrice,
			"finalAmount":   booking.FinalAmount,
		})
	}
}

// GetNearbyVendors previews eligible vendors around a pickup point.
func GetNearbyVendors(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Lat        *float64 `form:"lat" binding:"required"`
			Lng        *float64 `form:"lng" binding:"required"`
			WeightTons float64  `form:"weight"`
			RadiusKm   float64  `form:"radius"`
		}
		if err := c.ShouldBindQuery(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}

		candidates, err := services.FindCandidates(db, *input.Lat, *input.Lng, services.MatchRequirements{
			WeightTons: input.WeightTons,
			RadiusKm:   input.RadiusKm,
		}, nil)
		if err != nil {
			utils.RespondError(c, 500, "Failed to find vendors", err)
			return
		}

		results := make([]gin.H, 0, len(candidates))
		for _, cand := range candidates {
			results = append(results, gin.H{
				"vendorId":       cand.Vendor.ID,
				"vehicleModel":   cand.Vendor.VehicleModel,
				"weightCapacity": cand.Vendor.WeightCapacity,
				"distanceKm":     cand.DistanceKm,
				"etaMins":        cand.EtaMins,
			})
		}

		utils.RespondSuccess(c, 200, "Nearby vendors fetched", gin.H{
			"count":   len(results),
			"vendors": results,
		})
	}
}

func canAccessBooking(booking *models.Booking, userID uint, userType string) bool {
	if userType == string(models.UserTypeClient) {
		return booking.ClientID == userID
	}
	if userType == string(models.UserTypeVendor) {
		return booking.AssignedVendorID != nil && *booking.AssignedVendorID == userID
	}
	return false
}
