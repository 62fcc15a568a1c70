package utils

import (
	"math"
)

// FareEstimate contains the calculated freight price and its breakdown
type FareEstimate struct {
	TotalFare    float64       `json:"totalFare"`
	Distance     float64       `json:"distance"`
	RatePerKm    float64       `json:"ratePerKm"`
	MinimumFare  float64       `json:"minimumFare"`
	VehicleModel string        `json:"vehicleModel"`
	Breakdown    FareBreakdown `json:"breakdown"`
}

// FareBreakdown provides a detailed fare breakdown
type FareBreakdown struct {
	BaseFare     float64 `json:"baseFare"`
	DistanceFare float64 `json:"distanceFare"`
	WeightFare   float64 `json:"weightFare"`
	Total        float64 `json:"total"`
}

const (
	// Rates in INR
	DefaultRatePerKm    = 35.0   // Fallback per-km rate
	WeightRatePerTonKm  = 2.5    // Surcharge per ton per km
	MinimumFare         = 1500.0 // Minimum fare for short hauls
	MinimumFareDistance = 25.0   // Distance threshold for minimum fare in km
	BaseFare            = 500.0  // Fixed pickup charge
)

// vehicleRates maps a requested vehicle model to its per-km rate. Models not
// listed fall back to DefaultRatePerKm.
var vehicleRates = map[string]float64{
	"tata_ace":      18.0,
	"pickup_407":    24.0,
	"eicher_14ft":   30.0,
	"eicher_19ft":   38.0,
	"container_22":  46.0,
	"container_32":  55.0,
	"trailer":       70.0,
}

// EstimateFreightFare calculates the estimated price for a shipment based on
// distance, requested vehicle model and material weight in tons.
func EstimateFreightFare(distanceKm, weightTons float64, vehicleModel string) FareEstimate {
	ratePerKm, ok := vehicleRates[vehicleModel]
	if !ok {
		ratePerKm = DefaultRatePerKm
	}

	distanceFare := distanceKm * ratePerKm
	weightFare := distanceKm * weightTons * WeightRatePerTonKm
	totalFare := BaseFare + distanceFare + weightFare

	baseFare := BaseFare
	if distanceKm <= MinimumFareDistance && totalFare < MinimumFare {
		totalFare = MinimumFare
		baseFare = MinimumFare
		distanceFare = 0
		weightFare = 0
	}

	// Round to 2 decimal places
	totalFare = math.Round(totalFare*100) / 100

	return FareEstimate{
		TotalFare:    totalFare,
		Distance:     math.Round(distanceKm*100) / 100,
		RatePerKm:    ratePerKm,
		MinimumFare:  MinimumFare,
		VehicleModel: vehicleModel,
		Breakdown: FareBreakdown{
			BaseFare:     baseFare,
			DistanceFare: math.Round(distanceFare*100) / 100,
			WeightFare:   math.Round(weightFare*100) / 100,
			Total:        totalFare,
		},
	}
}
