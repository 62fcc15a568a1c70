package utils

import (
	"testing"
)

func TestEstimateFreightFareMinimumForShortHaul(t *testing.T) {
	// 10 km with a light load is well under the floor.
	fare := EstimateFreightFare(10, 1, "tata_ace")
	if fare.TotalFare != MinimumFare {
		t.Errorf("expected minimum fare %f, got %f", MinimumFare, fare.TotalFare)
	}
	if fare.Breakdown.Total != fare.TotalFare {
		t.Errorf("breakdown total %f does not match fare %f", fare.Breakdown.Total, fare.TotalFare)
	}
}

func TestEstimateFreightFareLongHaul(t *testing.T) {
	// 100 km, 5 tons in a tata_ace: 500 base + 100*18 + 100*5*2.5.
	fare := EstimateFreightFare(100, 5, "tata_ace")
	want := 500.0 + 1800.0 + 1250.0
	if fare.TotalFare != want {
		t.Errorf("expected %f, got %f", want, fare.TotalFare)
	}
	if fare.RatePerKm != 18.0 {
		t.Errorf("expected tata_ace rate 18, got %f", fare.RatePerKm)
	}
}

func TestEstimateFreightFareUnknownModelUsesDefaultRate(t *testing.T) {
	fare := EstimateFreightFare(100, 0, "bullock_cart")
	want := 500.0 + 100.0*DefaultRatePerKm
	if fare.TotalFare != want {
		t.Errorf("expected default-rate fare %f, got %f", want, fare.TotalFare)
	}
}

func TestEstimateFreightFareWeightIncreasesPrice(t *testing.T) {
	light := EstimateFreightFare(200, 2, "eicher_14ft")
	heavy := EstimateFreightFare(200, 8, "eicher_14ft")
	if heavy.TotalFare <= light.TotalFare {
		t.Errorf("expected heavier load to cost more: %f vs %f", heavy.TotalFare, light.TotalFare)
	}
}
