package services

import (
	"context"
	"errors"
	"time"

	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNoVendorAvailable = errors.New("no vendor available")
	ErrOfferExpired      = errors.New("booking request has expired")
	ErrOfferProcessed    = errors.New("booking request already processed")
	ErrNotOfferOwner     = errors.New("booking request belongs to another vendor")
	ErrBookingClosed     = errors.New("booking is no longer open for dispatch")
)

// Dispatcher offers a booking to one vendor at a time and advances to the
// next candidate on rejection. All winner-selection updates are conditional
// UPDATEs checked by rows-affected, so two concurrent accepts cannot both
// succeed.
type Dispatcher struct {
	DB  *gorm.DB
	Hub *Hub
}

func NewDispatcher(db *gorm.DB, hub *Hub) *Dispatcher {
	return &Dispatcher{DB: db, Hub: hub}
}

// SendBookingRequest creates a dispatch offer for the nearest eligible vendor
// not yet offered this booking. Returns ErrNoVendorAvailable when the pool is
// empty and ErrBookingClosed when the booking already left the dispatch phase.
func (d *Dispatcher) SendBookingRequest(bookingID uint) (*models.BookingRequest, error) {
	var booking models.Booking
	if err := d.DB.First(&booking, bookingID).Error; err != nil {
		return nil, err
	}

	if booking.AssignedVendorID != nil ||
		(booking.Status != models.BookingStatusSearchingVendor && booking.Status != models.BookingStatusPending) {
		return nil, ErrBookingClosed
	}

	// Vendors already offered this booking, in any state, are out of the pool.
	var offered []uint
	if err := d.DB.Model(&models.BookingRequest{}).
		Where("booking_id = ?", bookingID).
		Pluck("vendor_id", &offered).Error; err != nil {
		return nil, err
	}

	// Refuse to stack offers: one open offer per booking at a time.
	var openCount int64
	if err := d.DB.Model(&models.BookingRequest{}).
		Where("booking_id = ? AND status = ? AND expires_at > ?", bookingID, models.RequestStatusPending, time.Now()).
		Count(&openCount).Error; err != nil {
		return nil, err
	}
	if openCount > 0 {
		return nil, ErrOfferProcessed
	}

	reqs := MatchRequirements{WeightTons: booking.MaterialWeight}
	candidates, err := FindCandidates(d.DB, booking.PickupLat, booking.PickupLng, reqs, offered)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// Leave the booking waiting; the client can retry or widen the search.
		d.DB.Model(&booking).Where("status = ?", models.BookingStatusSearchingVendor).
			Update("status", models.BookingStatusPending)
		return nil, ErrNoVendorAvailable
	}

	top := candidates[0]
	now := time.Now()
	request := models.BookingRequest{
		BookingID:      bookingID,
		VendorID:       top.Vendor.ID,
		Status:         models.RequestStatusPending,
		SequenceNumber: len(offered) + 1,
		DistanceKm:     top.DistanceKm,
		EtaMins:        top.EtaMins,
		SentAt:         now,
		ExpiresAt:      now.Add(models.OfferTTL),
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}

		// Reserve the vendor so no other booking offers them concurrently.
		res := tx.Model(&models.Vendor{}).
			Where("id = ? AND is_available_for_booking = ?", top.Vendor.ID, true).
			Updates(map[string]interface{}{
				"availability_status":      models.VendorRequested,
				"is_available_for_booking": false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoVendorAvailable
		}

		return tx.Model(&models.Booking{}).Where("id = ?", bookingID).
			Update("status", models.BookingStatusPending).Error
	})
	if err != nil {
		if errors.Is(err, ErrNoVendorAvailable) {
			// The top candidate was taken between ranking and reserving;
			// fall through to the next one.
			return d.SendBookingRequest(bookingID)
		}
		return nil, err
	}

	ctx := context.Background()
	SetVendorAvailability(ctx, top.Vendor.ID, string(models.VendorRequested))

	d.Hub.SendBookingOffer(top.Vendor.ID, BookingOffer{
		RequestID:  request.ID,
		BookingID:  booking.ID,
		PickupAddr: booking.PickupAddr,
		DropAddr:   booking.DropAddr,
		DistanceKm: top.DistanceKm,
		EtaMins:    top.EtaMins,
		Amount:     booking.FinalAmount,
		ExpiresAt:  request.ExpiresAt.Unix(),
	})

	if smsErr := utils.SendBookingOfferSMS(top.Vendor.ContactNumber, booking.PickupAddr, int(models.OfferTTL.Minutes())); smsErr != nil {
		utils.Logger.Warn("offer sms failed", zap.Uint("vendorId", top.Vendor.ID), zap.Error(smsErr))
	}

	return &request, nil
}

// Accept resolves a dispatch offer in the calling vendor's favor. Exactly one
// request per booking can ever win: the request flip and the booking
// assignment are both conditional updates inside one transaction.
func (d *Dispatcher) Accept(requestID, vendorID uint) (*models.Booking, error) {
	var request models.BookingRequest
	if err := d.DB.First(&request, requestID).Error; err != nil {
		return nil, err
	}
	if request.VendorID != vendorID {
		return nil, ErrNotOfferOwner
	}

	now := time.Now()
	var booking models.Booking
	var siblingVendors []uint

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BookingRequest{}).
			Where("id = ? AND status = ? AND expires_at > ?", requestID, models.RequestStatusPending, now).
			Updates(map[string]interface{}{
				"status":       models.RequestStatusAccepted,
				"responded_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if request.Status != models.RequestStatusPending {
				return ErrOfferProcessed
			}
			return ErrOfferExpired
		}

		// Claim the booking. A sibling accept that won first leaves zero rows.
		res = tx.Model(&models.Booking{}).
			Where("id = ? AND assigned_vendor_id IS NULL AND status IN (?)",
				request.BookingID,
				[]models.BookingStatus{models.BookingStatusSearchingVendor, models.BookingStatusPending}).
			Updates(map[string]interface{}{
				"assigned_vendor_id": vendorID,
				"status":             models.BookingStatusConfirmed,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOfferProcessed
		}

		// Everyone else still waiting on this booking loses their offer, and
		// their vendors go back in the pool.
		if err := tx.Model(&models.BookingRequest{}).
			Where("booking_id = ? AND id <> ? AND status = ?", request.BookingID, requestID, models.RequestStatusPending).
			Pluck("vendor_id", &siblingVendors).Error; err != nil {
			return err
		}
		if len(siblingVendors) > 0 {
			if err := tx.Model(&models.BookingRequest{}).
				Where("booking_id = ? AND id <> ? AND status = ?", request.BookingID, requestID, models.RequestStatusPending).
				Updates(map[string]interface{}{
					"status":       models.RequestStatusExpired,
					"responded_at": now,
				}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Vendor{}).
				Where("id IN (?) AND availability_status = ?", siblingVendors, models.VendorRequested).
				Updates(map[string]interface{}{
					"availability_status":      models.VendorAvailable,
					"is_available_for_booking": true,
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Vendor{}).Where("id = ?", vendorID).
			Updates(map[string]interface{}{
				"availability_status":      models.VendorOut,
				"is_available_for_booking": false,
			}).Error; err != nil {
			return err
		}

		return tx.First(&booking, request.BookingID).Error
	})
	if err != nil {
		if errors.Is(err, ErrOfferExpired) {
			// Reactive expiry: record it and free the vendor for other work.
			d.expireRequest(&request)
		}
		return nil, err
	}

	ctx := context.Background()
	SetVendorAvailability(ctx, vendorID, string(models.VendorOut))
	for _, id := range siblingVendors {
		SetVendorAvailability(ctx, id, string(models.VendorAvailable))
	}
	PublishBookingUpdate(ctx, booking.ID, string(booking.Status), nil)

	return &booking, nil
}

// Reject resolves an offer against the calling vendor and moves the sequencer
// to the next candidate. A nil next request with a nil error means the pool is
// exhausted and the booking stays pending.
func (d *Dispatcher) Reject(requestID, vendorID uint) (*models.BookingRequest, error) {
	var request models.BookingRequest
	if err := d.DB.First(&request, requestID).Error; err != nil {
		return nil, err
	}
	if request.VendorID != vendorID {
		return nil, ErrNotOfferOwner
	}

	now := time.Now()
	res := d.DB.Model(&models.BookingRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":       models.RequestStatusRejected,
			"responded_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOfferProcessed
	}

	d.releaseVendor(vendorID)

	next, err := d.SendBookingRequest(request.BookingID)
	if errors.Is(err, ErrNoVendorAvailable) {
		return nil, nil
	}
	return next, err
}

// ExpireStaleRequests marks offers past their TTL as expired and frees their
// vendors. It deliberately does not offer the booking to the next candidate;
// re-dispatch stays an explicit client action.
func (d *Dispatcher) ExpireStaleRequests() (int, error) {
	var stale []models.BookingRequest
	if err := d.DB.Where("status = ? AND expires_at <= ?", models.RequestStatusPending, time.Now()).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		if d.expireRequest(&stale[i]) {
			expired++
		}
	}
	return expired, nil
}

func (d *Dispatcher) expireRequest(request *models.BookingRequest) bool {
	now := time.Now()
	res := d.DB.Model(&models.BookingRequest{}).
		Where("id = ? AND status = ?", request.ID, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":       models.RequestStatusExpired,
			"responded_at": now,
		})
	if res.Error != nil || res.RowsAffected == 0 {
		return false
	}

	d.releaseVendor(request.VendorID)
	return true
}

// releaseVendor puts a vendor back in the matchable pool, but only if the
// dispatch hold is what made them unavailable.
func (d *Dispatcher) releaseVendor(vendorID uint) {
	res := d.DB.Model(&models.Vendor{}).
		Where("id = ? AND availability_status = ?", vendorID, models.VendorRequested).
		Updates(map[string]interface{}{
			"availability_status":      models.VendorAvailable,
			"is_available_for_booking": true,
		})
	if res.Error == nil && res.RowsAffected > 0 {
		SetVendorAvailability(context.Background(), vendorID, string(models.VendorAvailable))
	}
}
