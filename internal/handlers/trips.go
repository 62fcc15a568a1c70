package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"gorm.io/gorm"
)

// tripStatusMessages is what the client sees for each vendor-driven transition.
var tripStatusMessages = map[models.BookingStatus]string{
	models.BookingStatusInTransit:  "Vendor is on the way to the pickup point",
	models.BookingStatusArrived:    "Vendor has arrived at the pickup point",
	models.BookingStatusLoading:    "Loading has started",
	models.BookingStatusInProgress: "Your shipment is on the move",
	models.BookingStatusCompleted:  "Your shipment has been delivered",
}

// UpdateTripStatus moves an assigned booking through the trip phases. Only
// the assigned vendor may drive these transitions, and only along the
// transition table.
func UpdateTripStatus(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		vendorID := c.GetUint("userId")

		var input struct {
			Status string `json:"status" binding:"required,oneof=in_transit arrived loading in_progress completed"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondValidationError(c, err.Error())
			return
		}
		target := models.BookingStatus(input.Status)

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}
		if booking.AssignedVendorID == nil || *booking.AssignedVendorID != vendorID {
			utils.RespondError(c, 403, "Booking is not assigned to you", nil)
			return
		}
		if !models.CanTransition(booking.Status, target) {
			utils.RespondError(c, 409, "Invalid status transition from "+string(booking.Status)+" to "+string(target), nil)
			return
		}

		now := time.Now()
		updates := map[string]interface{}{"status": target}
		switch target {
		case models.BookingStatusInTransit:
			updates["trip_started_at"] = now
		case models.BookingStatusCompleted:
			updates["trip_completed_at"] = now
			updates["distance_covered_km"] = booking.DistanceKm
			updates["distance_remaining_km"] = 0.0
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			// Guard against a concurrent transition on the same row.
			res := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", booking.ID, booking.Status).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return services.ErrBookingClosed
			}

			if target == models.BookingStatusCompleted {
				return tx.Model(&models.Vendor{}).Where("id = ?", vendorID).
					Updates(map[string]interface{}{
						"availability_status":      models.VendorAvailable,
						"is_available_for_booking": true,
					}).Error
			}
			return nil
		})
		if err != nil {
			if err == services.ErrBookingClosed {
				utils.RespondError(c, 409, "Booking status changed concurrently, please refresh", nil)
				return
			}
			utils.RespondError(c, 500, "Failed to update trip status", err)
			return
		}

		ctx := context.Background()
		services.PublishBookingUpdate(ctx, booking.ID, string(target), nil)
		if target == models.BookingStatusCompleted {
			services.SetVendorAvailability(ctx, vendorID, string(models.VendorAvailable))
		}

		hub.SendBookingStatusToClient(booking.ClientID, services.BookingStatusUpdate{
			BookingID: booking.ID,
			Status:    string(target),
			Message:   tripStatusMessages[target],
		})

		utils.RespondSuccess(c, 200, "Trip status updated", gin.H{
			"bookingId": booking.ID,
			"status":    target,
		})
	}
}

// UpdateTripLocation records a breadcrumb for an active trip, recomputes
// progress and streams the position to the client.
func UpdateTripLocation(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
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

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}
		if booking.AssignedVendorID == nil || *booking.AssignedVendorID != vendorID {
			utils.RespondError(c, 403, "Booking is not assigned to you", nil)
			return
		}
		if booking.Status.IsTerminal() || booking.Status == models.BookingStatusConfirmed {
			utils.RespondError(c, 409, "Trip is not active", nil)
			return
		}

		now := time.Now()
		remaining := utils.HaversineDistance(lat, lng, booking.DropLat, booking.DropLng)
		if remaining > booking.DistanceKm {
			remaining = booking.DistanceKm
		}
		covered := booking.DistanceKm - remaining

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&models.TripLocationLog{
				BookingID:  booking.ID,
				VendorID:   vendorID,
				Latitude:   lat,
				Longitude:  lng,
				RecordedAt: now,
			}).Error; err != nil {
				return err
			}

			// Keep only the newest breadcrumbs per booking.
			if err := tx.Exec(`DELETE FROM trip_location_logs WHERE booking_id = ? AND id NOT IN (
				SELECT id FROM trip_location_logs WHERE booking_id = ? ORDER BY recorded_at DESC LIMIT ?
			)`, booking.ID, booking.ID, models.MaxTripLocationHistory).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).
				Updates(map[string]interface{}{
					"distance_covered_km":   covered,
					"distance_remaining_km": remaining,
				}).Error; err != nil {
				return err
			}

			loc := models.VendorLocation{
				VendorID:  vendorID,
				Latitude:  lat,
				Longitude: lng,
				Heading:   input.Heading,
				LastSeen:  now,
			}
			res := tx.Model(&models.VendorLocation{}).Where("vendor_id = ?", vendorID).
				Updates(map[string]interface{}{
					"latitude":  lat,
					"longitude": lng,
					"heading":   input.Heading,
					"last_seen": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return tx.Create(&loc).Error
			}
			return nil
		})
		if err != nil {
			utils.RespondError(c, 500, "Failed to record trip location", err)
			return
		}

		services.SetVendorLocation(context.Background(), vendorID, lat, lng, input.Heading)

		hub.SendVendorLocationToClient(booking.ClientID, services.VendorLocationUpdate{
			BookingID:           booking.ID,
			VendorID:            vendorID,
			Lat:                 lat,
			Lng:                 lng,
			DistanceCoveredKm:   covered,
			DistanceRemainingKm: remaining,
		})

		utils.RespondSuccess(c, 200, "Location updated", gin.H{
			"distanceCoveredKm":   covered,
			"distanceRemainingKm": remaining,
		})
	}
}

// GetTripRoute returns the recorded breadcrumb trail for a booking.
func GetTripRoute(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var booking models.Booking
		if err := db.First(&booking, bookingID).Error; err != nil {
			utils.RespondError(c, 404, "Booking not found", nil)
			return
		}
		if !canAccessBooking(&booking, userID, userType) {
			utils.RespondError(c, 403, "Unauthorized to view this trip", nil)
			return
		}

		var logs []models.TripLocationLog
		if err := db.Where("booking_id = ?", booking.ID).
			Order("recorded_at ASC").
			Find(&logs).Error; err != nil {
			utils.RespondError(c, 500, "Failed to fetch trip route", err)
			return
		}

		utils.RespondSuccess(c, 200, "Trip route fetched", gin.H{
			"bookingId": booking.ID,
			"points":    logs,
		})
	}
}
