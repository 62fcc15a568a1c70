package database

import (
	"github.com/truckmitra/truckmitra-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Vendor{},
		&models.VendorLocation{},
		&models.TripLocationLog{},
		&models.OTP{},
		&models.Booking{},
		&models.BookingRequest{},
		&models.Plan{},
		&models.PlanSubscription{},
		&models.Payment{},
		&models.WebhookEvent{},
	)
	if err != nil {
		return err
	}

	// Status domains as CHECK constraints, enforced below the application.
	db.Exec(`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_status_check`)
	if err := db.Exec(`ALTER TABLE bookings ADD CONSTRAINT bookings_status_check CHECK (status IN
		('searching_vendor', 'pending', 'confirmed', 'in_transit', 'arrived', 'loading', 'in_progress', 'completed', 'cancelled'))`).Error; err != nil {
		return err
	}

	db.Exec(`ALTER TABLE booking_requests DROP CONSTRAINT IF EXISTS booking_requests_status_check`)
	if err := db.Exec(`ALTER TABLE booking_requests ADD CONSTRAINT booking_requests_status_check CHECK (status IN
		('pending', 'accepted', 'rejected', 'expired'))`).Error; err != nil {
		return err
	}

	db.Exec(`ALTER TABLE plan_subscriptions DROP CONSTRAINT IF EXISTS plan_subscriptions_status_check`)
	if err := db.Exec(`ALTER TABLE plan_subscriptions ADD CONSTRAINT plan_subscriptions_status_check CHECK (subscription_status IN
		('pending', 'authenticated', 'active', 'halted', 'paused', 'cancelled', 'completed'))`).Error; err != nil {
		return err
	}

	// At most one accepted offer per booking, whatever the application does.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_booking_requests_one_winner
		ON booking_requests (booking_id) WHERE status = 'accepted'`).Error; err != nil {
		return err
	}

	// At most one open (not settled) subscription per account.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_plan_subscriptions_open_user
		ON plan_subscriptions (user_id)
		WHERE user_id IS NOT NULL AND subscription_status NOT IN ('cancelled', 'completed') AND deleted_at IS NULL`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_plan_subscriptions_open_vendor
		ON plan_subscriptions (vendor_id)
		WHERE vendor_id IS NOT NULL AND subscription_status NOT IN ('cancelled', 'completed') AND deleted_at IS NULL`).Error; err != nil {
		return err
	}

	// Matcher prefilter scans on the location box.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS ix_vendor_locations_lat_lng
		ON vendor_locations (latitude, longitude)`).Error; err != nil {
		return err
	}

	return nil
}
