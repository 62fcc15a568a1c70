package models

import (
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingStatusSearchingVendor, BookingStatusPending, true},
		{BookingStatusSearchingVendor, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusSearchingVendor, true},
		{BookingStatusConfirmed, BookingStatusInTransit, true},
		{BookingStatusInTransit, BookingStatusArrived, true},
		{BookingStatusArrived, BookingStatusLoading, true},
		{BookingStatusLoading, BookingStatusInProgress, true},
		{BookingStatusInProgress, BookingStatusCompleted, true},
		{BookingStatusInProgress, BookingStatusCancelled, true},

		// Backwards and skipping moves are rejected
		{BookingStatusInTransit, BookingStatusConfirmed, false},
		{BookingStatusLoading, BookingStatusArrived, false},
		{BookingStatusSearchingVendor, BookingStatusInTransit, false},

		// Terminal states admit nothing
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusCompleted, BookingStatusInProgress, false},
		{BookingStatusCancelled, BookingStatusSearchingVendor, false},
		{BookingStatusCancelled, BookingStatusCompleted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCancelReachableFromEveryNonTerminalState(t *testing.T) {
	states := []BookingStatus{
		BookingStatusSearchingVendor,
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusInTransit,
		BookingStatusArrived,
		BookingStatusLoading,
		BookingStatusInProgress,
	}
	for _, s := range states {
		if !CanTransition(s, BookingStatusCancelled) {
			t.Errorf("expected cancellation to be allowed from %s", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !BookingStatusCompleted.IsTerminal() || !BookingStatusCancelled.IsTerminal() {
		t.Error("completed and cancelled must be terminal")
	}
	if BookingStatusInProgress.IsTerminal() || BookingStatusSearchingVendor.IsTerminal() {
		t.Error("active states must not be terminal")
	}
}

func TestComputeFinalAmount(t *testing.T) {
	b := Booking{EstimatedPrice: 4200}
	if got := b.ComputeFinalAmount(); got != 4200 {
		t.Errorf("expected estimate 4200 without adjustment, got %f", got)
	}

	adjusted := 3800.0
	b.AdjustedPrice = &adjusted
	if got := b.ComputeFinalAmount(); got != 3800 {
		t.Errorf("expected adjusted price 3800, got %f", got)
	}
}
