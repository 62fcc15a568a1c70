package services

import (
	"sort"

	"github.com/truckmitra/truckmitra-backend/internal/models"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"gorm.io/gorm"
)

// DefaultSearchRadiusKm bounds the vendor search around the pickup point.
const DefaultSearchRadiusKm = 30.0

// MatchSpeedKmh is the assumed average speed for arrival estimates.
const MatchSpeedKmh = 30.0

// MatchRequirements filters the candidate pool by load and vehicle needs.
type MatchRequirements struct {
	WeightTons   float64
	MinLengthFt  float64
	MinTyreCount int
	RadiusKm     float64
}

// Candidate is an eligible vendor ranked by proximity to the pickup point.
type Candidate struct {
	Vendor     models.Vendor  `json:"vendor"`
	Lat        float64        `json:"lat"`
	Lng        float64        `json:"lng"`
	DistanceKm float64        `json:"distanceKm"`
	EtaMins    int            `json:"etaMins"`
}

// RankVendors filters and orders vendors by haversine distance from the
// pickup. Vendors without a location entry are excluded entirely, never
// treated as infinitely far. Equidistant vendors keep their input order.
func RankVendors(pickupLat, pickupLng float64, reqs MatchRequirements, vendors []models.Vendor, locations map[uint]models.VendorLocation) []Candidate {
	radius := reqs.RadiusKm
	if radius <= 0 {
		radius = DefaultSearchRadiusKm
	}

	candidates := make([]Candidate, 0, len(vendors))
	for _, vendor := range vendors {
		if !vendor.IsMatchable() {
			continue
		}
		if vendor.WeightCapacity < reqs.WeightTons {
			continue
		}
		if reqs.MinLengthFt > 0 && vendor.VehicleLength < reqs.MinLengthFt {
			continue
		}
		if reqs.MinTyreCount > 0 && vendor.TyreCount < reqs.MinTyreCount {
			continue
		}

		loc, ok := locations[vendor.ID]
		if !ok {
			continue
		}

		distance := utils.HaversineDistance(pickupLat, pickupLng, loc.Latitude, loc.Longitude)
		if distance > radius {
			continue
		}

		candidates = append(candidates, Candidate{
			Vendor:     vendor,
			Lat:        loc.Latitude,
			Lng:        loc.Longitude,
			DistanceKm: distance,
			EtaMins:    utils.CalculateETA(distance, MatchSpeedKmh),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	return candidates
}

// FindCandidates loads matchable vendors near the pickup and ranks them.
// excludeVendorIDs drops vendors this booking has already been offered to.
func FindCandidates(db *gorm.DB, pickupLat, pickupLng float64, reqs MatchRequirements, excludeVendorIDs []uint) ([]Candidate, error) {
	radius := reqs.RadiusKm
	if radius <= 0 {
		radius = DefaultSearchRadiusKm
	}

	// Bounding-box prefilter keeps the haversine pass off the whole table.
	bbox := utils.GetBoundingBox(pickupLat, pickupLng, radius)

	var locationRows []models.VendorLocation
	query := db.Where("latitude BETWEEN ? AND ?", bbox.SouthWest.Lat, bbox.NorthEast.Lat).
		Where("longitude BETWEEN ? AND ?", bbox.SouthWest.Lng, bbox.NorthEast.Lng)
	if len(excludeVendorIDs) > 0 {
		query = query.Where("vendor_id NOT IN (?)", excludeVendorIDs)
	}
	if err := query.Find(&locationRows).Error; err != nil {
		return nil, err
	}
	if len(locationRows) == 0 {
		return nil, nil
	}

	vendorIDs := make([]uint, 0, len(locationRows))
	locations := make(map[uint]models.VendorLocation, len(locationRows))
	for _, loc := range locationRows {
		vendorIDs = append(vendorIDs, loc.VendorID)
		locations[loc.VendorID] = loc
	}

	var vendors []models.Vendor
	if err := db.Where("id IN (?)", vendorIDs).
		Where("vehicle_listed = ? AND vehicle_status = ?", true, models.VehicleStatusApproved).
		Where("is_available_for_booking = ?", true).
		Where("availability_status IN (?)", []models.VendorAvailability{models.VendorAvailable, models.VendorIn}).
		Find(&vendors).Error; err != nil {
		return nil, err
	}

	return RankVendors(pickupLat, pickupLng, reqs, vendors, locations), nil
}
