package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Plan is a subscription tier purchasable by users or vendors.
type Plan struct {
	gorm.Model
	Name          string  `json:"name" gorm:"not null"`
	Description   string  `json:"description"`
	Audience      string  `json:"audience" gorm:"not null"` // client or vendor
	Amount        int64   `json:"amount" gorm:"not null"`   // minor units per cycle
	Currency      string  `json:"currency" gorm:"default:'INR'"`
	Interval      string  `json:"interval" gorm:"default:'monthly'"`
	TotalCycles   int     `json:"totalCycles" gorm:"default:12"`
	GatewayPlanID string  `json:"gatewayPlanId" gorm:"column:gateway_plan_id"`
	BookingQuota  int     `json:"bookingQuota"`
	Discount      float64 `json:"discount"`
	IsActive      bool    `json:"isActive" gorm:"default:true"`
}

// TableName specifies the table name
func (Plan) TableName() string {
	return "plans"
}

// SubscriptionStatus tracks a plan subscription through its gateway-driven
// lifecycle.
type SubscriptionStatus string

const (
	SubStatusPending       SubscriptionStatus = "pending"
	SubStatusAuthenticated SubscriptionStatus = "authenticated"
	SubStatusActive        SubscriptionStatus = "active"
	SubStatusHalted        SubscriptionStatus = "halted"
	SubStatusPaused        SubscriptionStatus = "paused"
	SubStatusCancelled     SubscriptionStatus = "cancelled"
	SubStatusCompleted     SubscriptionStatus = "completed"
)

// subscriptionEventStatus maps gateway webhook event names to the status the
// subscription moves to. Events map 1:1; unknown events are rejected.
var subscriptionEventStatus = map[string]SubscriptionStatus{
	"subscription.authenticated": SubStatusAuthenticated,
	"subscription.activated":     SubStatusActive,
	"subscription.charged":       SubStatusActive,
	"subscription.pending":       SubStatusPending,
	"subscription.halted":        SubStatusHalted,
	"subscription.paused":        SubStatusPaused,
	"subscription.resumed":       SubStatusActive,
	"subscription.cancelled":     SubStatusCancelled,
	"subscription.completed":     SubStatusCompleted,
}

// StatusForEvent resolves the target status for a gateway subscription event.
func StatusForEvent(event string) (SubscriptionStatus, error) {
	status, ok := subscriptionEventStatus[event]
	if !ok {
		return "", fmt.Errorf("unhandled subscription event: %s", event)
	}
	return status, nil
}

// IsSettled reports whether the subscription can no longer change state.
func (s SubscriptionStatus) IsSettled() bool {
	return s == SubStatusCancelled || s == SubStatusCompleted
}

// PlanSubscription links a user or vendor to a plan and mirrors the gateway
// subscription state. An account holds at most one active-or-pending
// subscription at a time.
type PlanSubscription struct {
	gorm.Model
	PlanID   uint     `json:"planId" gorm:"not null;index"`
	Plan     *Plan    `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	UserID   *uint    `json:"userId,omitempty" gorm:"index"`
	VendorID *uint    `json:"vendorId,omitempty" gorm:"index"`

	GatewaySubscriptionID string `json:"gatewaySubscriptionId" gorm:"column:gateway_subscription_id;index"`
	GatewayCustomerID     string `json:"gatewayCustomerId" gorm:"column:gateway_customer_id"`

	Status                 SubscriptionStatus `json:"status" gorm:"column:subscription_status;not null;default:'pending'"`
	CompletedBillingCycles int                `json:"completedBillingCycles" gorm:"default:0"`
	TotalBillingCycles     int                `json:"totalBillingCycles"`
	AutoRenew              bool               `json:"autoRenew" gorm:"default:true"`
	ExpiresAt              *time.Time         `json:"expiresAt,omitempty"`
	NextBillingAt          *time.Time         `json:"nextBillingAt,omitempty"`
	CancelledAt            *time.Time         `json:"cancelledAt,omitempty"`
}

// TableName specifies the table name
func (PlanSubscription) TableName() string {
	return "plan_subscriptions"
}

// PaymentStatus for a gateway payment.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "created"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// SetupChargeThreshold separates a low-value verification charge from a real
// recurring charge, in minor units.
const SetupChargeThreshold = 100

// Payment records one gateway charge against a booking or a subscription.
// GatewayPaymentID is unique so a replayed webhook cannot record a charge
// twice.
type Payment struct {
	gorm.Model
	Amount   int64  `json:"amount" gorm:"not null"` // minor units
	Currency string `json:"currency" gorm:"default:'INR'"`

	GatewayPaymentID string `json:"gatewayPaymentId" gorm:"column:gateway_payment_id;uniqueIndex;not null"`
	GatewayOrderID   string `json:"gatewayOrderId" gorm:"column:gateway_order_id"`

	BookingID      *uint `json:"bookingId,omitempty" gorm:"index"`
	SubscriptionID *uint `json:"subscriptionId,omitempty" gorm:"index"`

	Status            PaymentStatus `json:"status" gorm:"column:payment_status;not null;default:'created'"`
	SignatureVerified bool          `json:"signatureVerified" gorm:"default:false"`
	IsSetupCharge     bool          `json:"isSetupCharge" gorm:"default:false"`
	Method            string        `json:"method"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

// WebhookEvent stores each gateway delivery with dedup metadata so event
// processing stays idempotent across redeliveries.
type WebhookEvent struct {
	gorm.Model
	Provider        string     `json:"provider" gorm:"not null;uniqueIndex:ux_webhook_provider_event,priority:1"`
	ProviderEventID string     `json:"providerEventId" gorm:"column:provider_event_id;not null;uniqueIndex:ux_webhook_provider_event,priority:2"`
	EventType       string     `json:"eventType" gorm:"not null;index"`
	Payload         string     `json:"payload" gorm:"type:text;not null"`
	SignatureValid  bool       `json:"signatureValid" gorm:"default:false"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	ProcessingError string     `json:"processingError,omitempty"`
}

// TableName specifies the table name
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
