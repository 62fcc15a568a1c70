package models

import (
	"time"

	"gorm.io/gorm"
)

// VendorAvailability describes whether a vendor can take new work.
type VendorAvailability string

const (
	VendorAvailable VendorAvailability = "available" // idle, can be offered bookings
	VendorIn        VendorAvailability = "in"        // near end of a trip, still matchable
	VendorRequested VendorAvailability = "requested" // holds a pending dispatch offer
	VendorOut       VendorAvailability = "out"       // on an active trip
)

// VehicleStatus is the admin review state of a listed vehicle.
type VehicleStatus string

const (
	VehicleStatusPending  VehicleStatus = "pending"
	VehicleStatusApproved VehicleStatus = "approved"
	VehicleStatusRejected VehicleStatus = "rejected"
)

// Vendor is a truck owner/driver account with its vehicle specs and
// verification state. Only listed+approved vendors are matchable.
type Vendor struct {
	gorm.Model
	FullName      string `json:"fullName" gorm:"column:full_name"`
	Email         string `json:"email" gorm:"column:email"`
	ContactNumber string `json:"contactNumber" gorm:"column:contact_number;unique;not null"`
	IsVerified    bool   `json:"isVerified" gorm:"column:is_verified;default:false"`

	// KYC verification flags, set by the verification gateway
	AadhaarVerified bool `json:"aadhaarVerified" gorm:"default:false"`
	PanVerified     bool `json:"panVerified" gorm:"default:false"`
	RcVerified      bool `json:"rcVerified" gorm:"default:false"`
	DlVerified      bool `json:"dlVerified" gorm:"default:false"`

	// Vehicle specs
	VehicleNumber  string        `json:"vehicleNumber" gorm:"column:vehicle_number"`
	VehicleModel   string        `json:"vehicleModel" gorm:"column:vehicle_model"`
	VehicleLength  float64       `json:"vehicleLength" gorm:"column:vehicle_length"` // feet
	TyreCount      int           `json:"tyreCount" gorm:"column:tyre_count"`
	WeightCapacity float64       `json:"weightCapacity" gorm:"column:weight_capacity"` // tons
	VehicleListed  bool          `json:"vehicleListed" gorm:"column:vehicle_listed;default:false"`
	VehicleStatus  VehicleStatus `json:"vehicleStatus" gorm:"column:vehicle_status;default:'pending'"`

	AvailabilityStatus    VendorAvailability `json:"availabilityStatus" gorm:"column:availability_status;default:'out'"`
	IsAvailableForBooking bool               `json:"isAvailableForBooking" gorm:"column:is_available_for_booking;default:false"`
}

// TableName specifies the table name
func (Vendor) TableName() string {
	return "vendors"
}

// IsMatchable reports whether the vendor may be considered by the matcher at all.
func (v *Vendor) IsMatchable() bool {
	if !v.VehicleListed || v.VehicleStatus != VehicleStatusApproved {
		return false
	}
	if !v.IsAvailableForBooking {
		return false
	}
	return v.AvailabilityStatus == VendorAvailable || v.AvailabilityStatus == VendorIn
}

// VendorLocation is the vendor's last known position, updated periodically
// from the driver app. A vendor without a row here is never matched.
type VendorLocation struct {
	gorm.Model
	VendorID  uint      `json:"vendorId" gorm:"not null;uniqueIndex"`
	Latitude  float64   `json:"lat" gorm:"not null"`
	Longitude float64   `json:"lng" gorm:"not null"`
	Heading   float64   `json:"heading" gorm:"not null;default:0"`
	LastSeen  time.Time `json:"lastSeen" gorm:"not null"`
	Vendor    *Vendor   `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

// TableName specifies the table name
func (VendorLocation) TableName() string {
	return "vendor_locations"
}

// TripLocationLog is one breadcrumb of a vendor's position during a booking.
// Only the most recent MaxTripLocationHistory entries per booking are kept.
type TripLocationLog struct {
	gorm.Model
	BookingID  uint      `json:"bookingId" gorm:"not null;index"`
	VendorID   uint      `json:"vendorId" gorm:"not null"`
	Latitude   float64   `json:"lat" gorm:"not null"`
	Longitude  float64   `json:"lng" gorm:"not null"`
	RecordedAt time.Time `json:"recordedAt" gorm:"not null"`
}

// TableName specifies the table name
func (TripLocationLog) TableName() string {
	return "trip_location_logs"
}

// MaxTripLocationHistory bounds the per-booking breadcrumb log.
const MaxTripLocationHistory = 100
