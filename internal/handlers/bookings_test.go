package handlers

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/internal/services"
	"github.com/truckmitra/truckmitra-backend/pkg/gateways"
	"gorm.io/gorm"
)

func seedTestVendor(t *testing.T, db *gorm.DB, id uint, status models.VendorAvailability, available bool) *models.Vendor {
	t.Helper()
	v := models.Vendor{
		Model:                 gorm.Model{ID: id},
		ContactNumber:         fmt.Sprintf("98000000%02d", id),
		VehicleListed:         true,
		VehicleStatus:         models.VehicleStatusApproved,
		AvailabilityStatus:    status,
		IsAvailableForBooking: available,
		WeightCapacity:        10,
		TyreCount:             6,
		VehicleLength:         14,
	}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	return &v
}

func seedTestBooking(t *testing.T, db *gorm.DB, clientID uint, status models.BookingStatus) *models.Booking {
	t.Helper()
	booking := models.Booking{
		BookingRef:     fmt.Sprintf("ref-%d-%d", clientID, time.Now().UnixNano()),
		ClientID:       clientID,
		PickupLat:      12.9716,
		PickupLng:      77.5946,
		PickupAddr:     "Majestic, Bengaluru",
		DropLat:        13.34,
		DropLng:        77.1,
		DropAddr:       "Tumakuru",
		MaterialType:   "cement",
		MaterialWeight: 5,
		DistanceKm:     55,
		EstimatedPrice: 4200,
		FinalAmount:    4200,
		Status:         status,
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("failed to seed booking: %v", err)
	}
	return &booking
}

func TestCancelBookingReleasesVendorWithOpenOffer(t *testing.T) {
	db := handlerTestDB(t)
	hub := services.NewHub()

	// The open offer is what holds the vendor in 'requested'.
	vendor := seedTestVendor(t, db, 1, models.VendorRequested, false)
	booking := seedTestBooking(t, db, 1, models.BookingStatusPending)
	now := time.Now()
	request := models.BookingRequest{
		BookingID:      booking.ID,
		VendorID:       vendor.ID,
		Status:         models.RequestStatusPending,
		SequenceNumber: 1,
		SentAt:         now,
		ExpiresAt:      now.Add(models.OfferTTL),
	}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	c, w := authedContext(t, "POST", "/bookings/cancel", `{"reason":"changed plans"}`, 1, "client")
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(booking.ID))}}
	CancelBooking(db, hub)(c)
	expectStatus(t, w, 200)

	var b models.Booking
	if err := db.First(&b, booking.ID).Error; err != nil {
		t.Fatalf("failed to reload booking: %v", err)
	}
	if b.Status != models.BookingStatusCancelled {
		t.Errorf("expected cancelled booking, got %s", b.Status)
	}

	var r models.BookingRequest
	if err := db.First(&r, request.ID).Error; err != nil {
		t.Fatalf("failed to reload request: %v", err)
	}
	if r.Status != models.RequestStatusExpired {
		t.Errorf("expected the open offer to expire, got %s", r.Status)
	}

	var v models.Vendor
	if err := db.First(&v, vendor.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorAvailable || !v.IsAvailableForBooking {
		t.Errorf("offered vendor not released on cancel: status=%s available=%v",
			v.AvailabilityStatus, v.IsAvailableForBooking)
	}
}

func TestCancelBookingDoesNotTouchVendorOnAnotherTrip(t *testing.T) {
	db := handlerTestDB(t)
	hub := services.NewHub()

	// The offer is stale but the vendor already moved on to a live trip
	// elsewhere; cancellation must not yank them back into the pool.
	vendor := seedTestVendor(t, db, 1, models.VendorOut, false)
	booking := seedTestBooking(t, db, 1, models.BookingStatusPending)
	now := time.Now()
	request := models.BookingRequest{
		BookingID:      booking.ID,
		VendorID:       vendor.ID,
		Status:         models.RequestStatusPending,
		SequenceNumber: 1,
		SentAt:         now,
		ExpiresAt:      now.Add(models.OfferTTL),
	}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	c, w := authedContext(t, "POST", "/bookings/cancel", `{}`, 1, "client")
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(booking.ID))}}
	CancelBooking(db, hub)(c)
	expectStatus(t, w, 200)

	var v models.Vendor
	if err := db.First(&v, vendor.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorOut || v.IsAvailableForBooking {
		t.Error("vendor on an active trip must keep their status on cancel")
	}
}

func TestCreateBookingAcceptsZeroCoordinates(t *testing.T) {
	db := handlerTestDB(t)
	dispatcher := services.NewDispatcher(db, services.NewHub())
	t.Setenv("MAPS_API_KEY", "")

	body := `{
		"pickup": {"lat": 0, "lng": 0, "address": "Null Island pier"},
		"drop":   {"lat": 0.5, "lng": 6.5, "address": "Gulf of Guinea port"},
		"materialType": "containers",
		"materialWeight": 8
	}`
	c, w := authedContext(t, "POST", "/bookings", body, 1, "client")
	CreateBooking(db, dispatcher, gateways.NewMapsClient())(c)
	expectStatus(t, w, 201)

	var booking models.Booking
	if err := db.Where("client_id = ?", 1).First(&booking).Error; err != nil {
		t.Fatalf("booking was not created: %v", err)
	}
	if booking.PickupLat != 0 || booking.PickupLng != 0 {
		t.Errorf("zero coordinates were mangled: got %f, %f", booking.PickupLat, booking.PickupLng)
	}
}

func TestCreateBookingRejectsMissingCoordinates(t *testing.T) {
	db := handlerTestDB(t)
	dispatcher := services.NewDispatcher(db, services.NewHub())

	body := `{
		"pickup": {"address": "nowhere"},
		"drop":   {"lat": 13.0, "lng": 77.6, "address": "somewhere"},
		"materialType": "cement",
		"materialWeight": 5
	}`
	c, w := authedContext(t, "POST", "/bookings", body, 1, "client")
	CreateBooking(db, dispatcher, gateways.NewMapsClient())(c)
	expectStatus(t, w, 400)
}
