package models

import (
	"time"

	"gorm.io/gorm"
)

// BookingRequestStatus is the state of a single dispatch offer.
type BookingRequestStatus string

const (
	RequestStatusPending  BookingRequestStatus = "pending"
	RequestStatusAccepted BookingRequestStatus = "accepted"
	RequestStatusRejected BookingRequestStatus = "rejected"
	RequestStatusExpired  BookingRequestStatus = "expired"
)

// OfferTTL is how long a vendor has to act on a dispatch offer.
const OfferTTL = 10 * time.Minute

// BookingRequest is a time-boxed offer of a Booking to one Vendor. At most
// one request per booking may ever be accepted; acceptance forces all sibling
// pending requests to expired.
type BookingRequest struct {
	gorm.Model
	BookingID      uint                 `json:"bookingId" gorm:"not null;index"`
	VendorID       uint                 `json:"vendorId" gorm:"not null;index"`
	Status         BookingRequestStatus `json:"status" gorm:"not null;default:'pending'"`
	SequenceNumber int                  `json:"sequenceNumber" gorm:"not null"`
	DistanceKm     float64              `json:"distanceKm"`
	EtaMins        int                  `json:"etaMins"`
	SentAt         time.Time            `json:"sentAt" gorm:"not null"`
	ExpiresAt      time.Time            `json:"expiresAt" gorm:"not null;index"`
	RespondedAt    *time.Time           `json:"respondedAt,omitempty"`

	Booking *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	Vendor  *Vendor  `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

// TableName specifies the table name
func (BookingRequest) TableName() string {
	return "booking_requests"
}

// IsOpen reports whether the offer can still be acted on at the given instant.
func (r *BookingRequest) IsOpen(now time.Time) bool {
	return r.Status == RequestStatusPending && now.Before(r.ExpiresAt)
}
