package services

import (
	"testing"
	"time"

	"github.com/truckmitra/truckmitra-backend/internal/models"
	"gorm.io/gorm"
)

const (
	pickupLat = 12.9716
	pickupLng = 77.5946
)

func matchableVendor(id uint, capacityTons float64) models.Vendor {
	return models.Vendor{
		Model:                 gorm.Model{ID: id},
		VehicleListed:         true,
		VehicleStatus:         models.VehicleStatusApproved,
		AvailabilityStatus:    models.VendorAvailable,
		IsAvailableForBooking: true,
		WeightCapacity:        capacityTons,
		TyreCount:             6,
		VehicleLength:         14,
	}
}

func locationAt(vendorID uint, lat, lng float64) models.VendorLocation {
	return models.VendorLocation{
		VendorID:  vendorID,
		Latitude:  lat,
		Longitude: lng,
		LastSeen:  time.Now(),
	}
}

func TestRankVendorsOrdersByDistance(t *testing.T) {
	vendors := []models.Vendor{
		matchableVendor(1, 10),
		matchableVendor(2, 10),
		matchableVendor(3, 10),
	}
	locations := map[uint]models.VendorLocation{
		1: locationAt(1, pickupLat+0.18, pickupLng), // ~20 km
		2: locationAt(2, pickupLat+0.045, pickupLng), // ~5 km
		3: locationAt(3, pickupLat+0.09, pickupLng),  // ~10 km
	}

	candidates := RankVendors(pickupLat, pickupLng, MatchRequirements{WeightTons: 2}, vendors, locations)
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].Vendor.ID != 2 || candidates[1].Vendor.ID != 3 || candidates[2].Vendor.ID != 1 {
		t.Errorf("wrong ordering: got %d, %d, %d",
			candidates[0].Vendor.ID, candidates[1].Vendor.ID, candidates[2].Vendor.ID)
	}
	if candidates[0].DistanceKm >= candidates[1].DistanceKm {
		t.Error("candidates not sorted by ascending distance")
	}
}

func TestRankVendorsDistanceAndEta(t *testing.T) {
	vendors := []models.Vendor{matchableVendor(1, 10)}
	// ~10 km due north of the pickup
	locations := map[uint]models.VendorLocation{
		1: locationAt(1, pickupLat+0.0899, pickupLng),
	}

	candidates := RankVendors(pickupLat, pickupLng, MatchRequirements{WeightTons: 5}, vendors, locations)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.DistanceKm < 9.9 || c.DistanceKm > 10.1 {
		t.Errorf("expected ~10 km, got %f", c.DistanceKm)
	}
	// 10 km at 30 km/h is 20 minutes.
	if c.EtaMins != 20 {
		t.Errorf("expected ETA 20 mins, got %d", c.EtaMins)
	}
}

func TestRankVendorsExcludesVendorsWithoutLocation(t *testing.T) {
	vendors := []models.Vendor{
		matchableVendor(1, 10),
		matchableVendor(2, 10),
	}
	locations := map[uint]models.VendorLocation{
		2: locationAt(2, pickupLat, pickupLng),
	}

	candidates := RankVendors(pickupLat, pickupLng, MatchRequirements{}, vendors, locations)
	if len(candidates) != 1 || candidates[0].Vendor.ID != 2 {
		t.Fatalf("expected only the located vendor, got %d candidates", len(candidates))
	}
}

func TestRankVendorsRadiusCutoff(t *testing.T) {
	vendors := []models.Vendor{
		matchableVendor(1, 10),
		matchableVendor(2, 10),
	}
	locations := map[uint]models.VendorLocation{
		1: locationAt(1, pickupLat+0.09, pickupLng), // ~10 km, inside
		2: locationAt(2, pickupLat+0.45, pickupLng), // ~50 km, outside the 30 km default
	}

	candidates := RankVendors(pickupLat, pickupLng, MatchRequirements{}, vendors, locations)
	if len(candidates) != 1 || candidates[0].Vendor.ID != 1 {
		t.Fatalf("expected only the in-radius vendor, got %d candidates", len(candidates))
	}

	// A widened radius brings the far vendor back in.
	candidates = RankVendors(pickupLat, pickupLng, MatchRequirements{RadiusKm: 60}, vendors, locations)
	if len(candidates) != 2 {
		t.Fatalf("expected both vendors within 60 km, got %d", len(candidates))
	}
}

func TestRankVendorsCapabilityFilters(t *testing.T) {
	small := matchableVendor(1, 2)
	big := matchableVendor(2, 12)
	short := matchableVendor(3, 12)
	short.VehicleLength = 10
	fewTyres := matchableVendor(4, 12)
	fewTyres.TyreCount = 4

	vendors := []models.Vendor{small, big, short, fewTyres}
	locations := map[uint]models.VendorLocation{
		1: locationAt(1, pickupLat, pickupLng),
		2: locationAt(2, pickupLat, pickupLng),
		3: locationAt(3, pickupLat, pickupLng),
		4: locationAt(4, pickupLat, pickupLng),
	}

	reqs := MatchRequirements{WeightTons: 5, MinLengthFt: 12, MinTyreCount: 6}
	candidates := RankVendors(pickupLat, pickupLng, reqs, vendors, locations)
	if len(candidates) != 1 || candidates[0].Vendor.ID != 2 {
		t.Fatalf("expected only the fully capable vendor, got %d candidates", len(candidates))
	}
}

func TestRankVendorsExcludesUnmatchable(t *testing.T) {
	requested := matchableVendor(1, 10)
	requested.AvailabilityStatus = models.VendorRequested
	requested.IsAvailableForBooking = false

	onTrip := matchableVendor(2, 10)
	onTrip.AvailabilityStatus = models.VendorOut
	onTrip.IsAvailableForBooking = false

	unapproved := matchableVendor(3, 10)
	unapproved.VehicleStatus = models.VehicleStatusPending

	nearEndOfTrip := matchableVendor(4, 10)
	nearEndOfTrip.AvailabilityStatus = models.VendorIn

	vendors := []models.Vendor{requested, onTrip, unapproved, nearEndOfTrip}
	locations := map[uint]models.VendorLocation{
		1: locationAt(1, pickupLat, pickupLng),
		2: locationAt(2, pickupLat, pickupLng),
		3: locationAt(3, pickupLat, pickupLng),
		4: locationAt(4, pickupLat, pickupLng),
	}

	candidates := RankVendors(pickupLat, pickupLng, MatchRequirements{}, vendors, locations)
	if len(candidates) != 1 || candidates[0].Vendor.ID != 4 {
		t.Fatalf("expected only the 'in' vendor to be matchable, got %d candidates", len(candidates))
	}
}

func TestRankVendorsStableForEquidistant(t *testing.T) {
	vendors := []models.Vendor{
		matchableVendor(7, 10),
		matchableVendor(8, 10),
	}
	sameSpot := locationAt(0, pickupLat+0.02, pickupLng)
	locations := map[uint]models.VendorLocation{
		7: {VendorID: 7, Latitude: sameSpot.Latitude, Longitude: sameSpot.Longitude, LastSeen: sameSpot.LastSeen},
		8: {VendorID: 8, Latitude: sameSpot.Latitude, Longitude: sameSpot.Longitude, LastSeen: sameSpot.LastSeen},
	}

	candidates := RankVendors(pickupLat, pickupLng, MatchRequirements{}, vendors, locations)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Vendor.ID != 7 || candidates[1].Vendor.ID != 8 {
		t.Error("equidistant vendors must keep their input order")
	}
}
