package services

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dispatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if utils.Logger == nil {
		utils.InitLogger()
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	var sqlDB *sql.DB
	if sqlDB, err = db.DB(); err != nil {
		t.Fatalf("failed to get database handle: %v", err)
	}
	// One shared connection so every statement sees the same in-memory store.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{}, &models.Vendor{}, &models.VendorLocation{},
		&models.Booking{}, &models.BookingRequest{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func requestedVendor(id uint) models.Vendor {
	v := matchableVendor(id, 10)
	v.AvailabilityStatus = models.VendorRequested
	v.IsAvailableForBooking = false
	v.ContactNumber = fmt.Sprintf("90000000%02d", id)
	return v
}

func seedDispatchBooking(t *testing.T, db *gorm.DB) *models.Booking {
	t.Helper()
	booking := models.Booking{
		BookingRef:     "ref-dispatch-1",
		ClientID:       1,
		PickupLat:      pickupLat,
		PickupLng:      pickupLng,
		PickupAddr:     "Majestic, Bengaluru",
		DropLat:        pickupLat + 0.5,
		DropLng:        pickupLng,
		DropAddr:       "Tumakuru",
		MaterialType:   "cement",
		MaterialWeight: 5,
		DistanceKm:     55,
		EstimatedPrice: 4200,
		FinalAmount:    4200,
		Status:         models.BookingStatusPending,
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("failed to seed booking: %v", err)
	}
	return &booking
}

func pendingRequest(bookingID, vendorID uint, seq int, ttl time.Duration) models.BookingRequest {
	now := time.Now()
	return models.BookingRequest{
		BookingID:      bookingID,
		VendorID:       vendorID,
		Status:         models.RequestStatusPending,
		SequenceNumber: seq,
		SentAt:         now,
		ExpiresAt:      now.Add(ttl),
	}
}

func TestAcceptIsExclusiveAndReleasesSiblingVendor(t *testing.T) {
	db := dispatchTestDB(t)
	d := NewDispatcher(db, NewHub())

	winner := requestedVendor(1)
	loser := requestedVendor(2)
	if err := db.Create(&winner).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	if err := db.Create(&loser).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	booking := seedDispatchBooking(t, db)

	reqWin := pendingRequest(booking.ID, winner.ID, 1, models.OfferTTL)
	reqLose := pendingRequest(booking.ID, loser.ID, 2, models.OfferTTL)
	if err := db.Create(&reqWin).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}
	if err := db.Create(&reqLose).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	got, err := d.Accept(reqWin.ID, winner.ID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if got.Status != models.BookingStatusConfirmed {
		t.Errorf("expected confirmed booking, got %s", got.Status)
	}
	if got.AssignedVendorID == nil || *got.AssignedVendorID != winner.ID {
		t.Error("booking not assigned to the accepting vendor")
	}

	var reloaded models.BookingRequest
	if err := db.First(&reloaded, reqWin.ID).Error; err != nil {
		t.Fatalf("failed to reload request: %v", err)
	}
	if reloaded.Status != models.RequestStatusAccepted {
		t.Errorf("expected accepted request, got %s", reloaded.Status)
	}
	reloaded = models.BookingRequest{}
	if err := db.First(&reloaded, reqLose.ID).Error; err != nil {
		t.Fatalf("failed to reload request: %v", err)
	}
	if reloaded.Status != models.RequestStatusExpired {
		t.Errorf("expected sibling request expired, got %s", reloaded.Status)
	}

	// The winner goes on the trip; the loser goes back in the pool.
	var v models.Vendor
	if err := db.First(&v, winner.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorOut || v.IsAvailableForBooking {
		t.Errorf("winner should be out: status=%s available=%v", v.AvailabilityStatus, v.IsAvailableForBooking)
	}
	v = models.Vendor{}
	if err := db.First(&v, loser.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorAvailable || !v.IsAvailableForBooking {
		t.Errorf("sibling vendor not released: status=%s available=%v", v.AvailabilityStatus, v.IsAvailableForBooking)
	}

	// The losing vendor acting on their dead offer cannot steal the booking.
	if _, err := d.Accept(reqLose.ID, loser.ID); !errors.Is(err, ErrOfferProcessed) {
		t.Errorf("expected ErrOfferProcessed for the expired sibling, got %v", err)
	}
	if _, err := d.Accept(reqWin.ID, winner.ID); !errors.Is(err, ErrOfferProcessed) {
		t.Errorf("expected ErrOfferProcessed on double accept, got %v", err)
	}
}

func TestAcceptAfterTTLExpiresOfferAndReleasesVendor(t *testing.T) {
	db := dispatchTestDB(t)
	d := NewDispatcher(db, NewHub())

	vendor := requestedVendor(1)
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	booking := seedDispatchBooking(t, db)

	req := pendingRequest(booking.ID, vendor.ID, 1, -time.Minute)
	if err := db.Create(&req).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	if _, err := d.Accept(req.ID, vendor.ID); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}

	var reloaded models.BookingRequest
	if err := db.First(&reloaded, req.ID).Error; err != nil {
		t.Fatalf("failed to reload request: %v", err)
	}
	if reloaded.Status != models.RequestStatusExpired {
		t.Errorf("expected expired request, got %s", reloaded.Status)
	}

	var v models.Vendor
	if err := db.First(&v, vendor.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorAvailable || !v.IsAvailableForBooking {
		t.Errorf("vendor not released after TTL: status=%s available=%v", v.AvailabilityStatus, v.IsAvailableForBooking)
	}

	var b models.Booking
	if err := db.First(&b, booking.ID).Error; err != nil {
		t.Fatalf("failed to reload booking: %v", err)
	}
	if b.AssignedVendorID != nil {
		t.Error("booking must stay unassigned after an expired accept")
	}
}

func TestAcceptRejectsForeignOffer(t *testing.T) {
	db := dispatchTestDB(t)
	d := NewDispatcher(db, NewHub())

	vendor := requestedVendor(1)
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	booking := seedDispatchBooking(t, db)
	req := pendingRequest(booking.ID, vendor.ID, 1, models.OfferTTL)
	if err := db.Create(&req).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	if _, err := d.Accept(req.ID, 99); !errors.Is(err, ErrNotOfferOwner) {
		t.Fatalf("expected ErrNotOfferOwner, got %v", err)
	}

	var reloaded models.BookingRequest
	if err := db.First(&reloaded, req.ID).Error; err != nil {
		t.Fatalf("failed to reload request: %v", err)
	}
	if reloaded.Status != models.RequestStatusPending {
		t.Errorf("foreign accept must not touch the offer, got %s", reloaded.Status)
	}
}

func TestExpireStaleRequestsSweep(t *testing.T) {
	db := dispatchTestDB(t)
	d := NewDispatcher(db, NewHub())

	stale := requestedVendor(1)
	fresh := requestedVendor(2)
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	booking := seedDispatchBooking(t, db)

	staleReq := pendingRequest(booking.ID, stale.ID, 1, -time.Minute)
	freshReq := pendingRequest(booking.ID, fresh.ID, 2, models.OfferTTL)
	if err := db.Create(&staleReq).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}
	if err := db.Create(&freshReq).Error; err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	n, err := d.ExpireStaleRequests()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired request, got %d", n)
	}

	var v models.Vendor
	if err := db.First(&v, stale.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorAvailable || !v.IsAvailableForBooking {
		t.Error("stale offer's vendor not released by the sweep")
	}
	v = models.Vendor{}
	if err := db.First(&v, fresh.ID).Error; err != nil {
		t.Fatalf("failed to reload vendor: %v", err)
	}
	if v.AvailabilityStatus != models.VendorRequested || v.IsAvailableForBooking {
		t.Error("fresh offer's vendor must keep its hold")
	}
}
