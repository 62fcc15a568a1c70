package models

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is the lifecycle state of a shipment booking.
type BookingStatus string

const (
	BookingStatusSearchingVendor BookingStatus = "searching_vendor"
	BookingStatusPending         BookingStatus = "pending"
	BookingStatusConfirmed       BookingStatus = "confirmed"
	BookingStatusInTransit       BookingStatus = "in_transit"
	BookingStatusArrived         BookingStatus = "arrived"
	BookingStatusLoading         BookingStatus = "loading"
	BookingStatusInProgress      BookingStatus = "in_progress"
	BookingStatusCompleted       BookingStatus = "completed"
	BookingStatusCancelled       BookingStatus = "cancelled"
)

// PaymentMethod for a booking.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
)

// bookingTransitions is the closed transition table. cancelled is reachable
// from every state except completed; completed and cancelled are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusSearchingVendor: {BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusPending:         {BookingStatusSearchingVendor, BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:       {BookingStatusInTransit, BookingStatusArrived, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusInTransit:       {BookingStatusArrived, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusArrived:         {BookingStatusLoading, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusLoading:         {BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusInProgress:      {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:       {},
	BookingStatusCancelled:       {},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a booking status admits no further transitions.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking represents one shipment request. The BookingRef UUID is the
// externally visible identifier; the numeric ID stays internal.
type Booking struct {
	gorm.Model
	BookingRef string `json:"bookingRef" gorm:"column:booking_ref;unique;not null"`
	ClientID   uint   `json:"clientId" gorm:"not null;index"`
	Client     *User  `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	PickupLat  float64 `json:"pickupLat" gorm:"not null"`
	PickupLng  float64 `json:"pickupLng" gorm:"not null"`
	PickupAddr string  `json:"pickupAddress" gorm:"not null"`
	DropLat    float64 `json:"dropLat" gorm:"not null"`
	DropLng    float64 `json:"dropLng" gorm:"not null"`
	DropAddr   string  `json:"dropAddress" gorm:"not null"`

	MaterialType   string  `json:"materialType" gorm:"not null"`
	MaterialWeight float64 `json:"materialWeight" gorm:"not null"` // tons
	VehicleModel   string  `json:"vehicleModel"`

	DistanceKm     float64  `json:"distanceKm"`
	EstimatedPrice float64  `json:"estimatedPrice"`
	AdjustedPrice  *float64 `json:"adjustedPrice,omitempty"`
	FinalAmount    float64  `json:"finalAmount"`

	PaymentMethod string `json:"paymentMethod" gorm:"default:'cash'"`
	PaymentStatus string `json:"paymentStatus" gorm:"default:'pending'"`

	Status           BookingStatus `json:"status" gorm:"not null;default:'searching_vendor'"`
	AssignedVendorID *uint         `json:"assignedVendorId,omitempty"`
	AssignedVendor   *Vendor       `json:"assignedVendor,omitempty" gorm:"foreignKey:AssignedVendorID"`

	TripStartedAt   *time.Time `json:"tripStartedAt,omitempty"`
	TripCompletedAt *time.Time `json:"tripCompletedAt,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CancelReason    string     `json:"cancelReason,omitempty"`

	// Live-trip progress, recomputed on vendor location updates
	DistanceCoveredKm   float64 `json:"distanceCoveredKm"`
	DistanceRemainingKm float64 `json:"distanceRemainingKm"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}

// ComputeFinalAmount derives the amount due: the adjusted price when one has
// been negotiated, the original estimate otherwise.
func (b *Booking) ComputeFinalAmount() float64 {
	if b.AdjustedPrice != nil {
		return *b.AdjustedPrice
	}
	return b.EstimatedPrice
}
