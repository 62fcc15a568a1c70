package utils

import (
	"math"
	"testing"
)

func TestHaversineDistanceIdenticalPoints(t *testing.T) {
	d := HaversineDistance(12.9716, 77.5946, 12.9716, 77.5946)
	if d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestHaversineDistanceOneDegreeAtEquator(t *testing.T) {
	// One degree of longitude at the equator is roughly 111.19 km.
	d := HaversineDistance(0, 0, 0, 1)
	if math.Abs(d-111.19) > 0.1 {
		t.Errorf("expected ~111.19 km, got %f", d)
	}
}

func TestHaversineDistanceAntipodal(t *testing.T) {
	// Half the Earth's circumference, pi * R.
	d := HaversineDistance(0, 0, 0, 180)
	if math.Abs(d-20015.09) > 1 {
		t.Errorf("expected ~20015 km for antipodal points, got %f", d)
	}
}

func TestHaversineDistanceSymmetric(t *testing.T) {
	a := HaversineDistance(12.9716, 77.5946, 19.0760, 72.8777)
	b := HaversineDistance(19.0760, 72.8777, 12.9716, 77.5946)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", a, b)
	}
}

func TestCalculateETA(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		speed    float64
		want     int
	}{
		{"exact minutes", 10, 30, 20},
		{"rounds up", 7.1, 30, 15},
		{"minimum one minute", 0.1, 30, 1},
		{"zero distance", 0, 30, 1},
		{"zero speed falls back to default", 5, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateETA(tt.distance, tt.speed)
			if got != tt.want {
				t.Errorf("CalculateETA(%f, %f) = %d, want %d", tt.distance, tt.speed, got, tt.want)
			}
		})
	}
}

func TestGetBoundingBoxContainsNearbyPoint(t *testing.T) {
	center := Point{Lat: 12.9716, Lng: 77.5946}
	bbox := GetBoundingBox(center.Lat, center.Lng, 30)

	// A point about 10 km north of the center must fall inside a 30 km box.
	inside := Point{Lat: center.Lat + 0.09, Lng: center.Lng}
	if !IsPointInBoundingBox(inside, bbox) {
		t.Error("expected nearby point inside the bounding box")
	}

	// A point a full degree away (~111 km) must fall outside.
	outside := Point{Lat: center.Lat + 1.0, Lng: center.Lng}
	if IsPointInBoundingBox(outside, bbox) {
		t.Error("expected distant point outside the bounding box")
	}
}

func TestIsWithinRadius(t *testing.T) {
	if !IsWithinRadius(0, 0, 0, 0.2, 30) {
		t.Error("expected point ~22 km away to be within 30 km")
	}
	if IsWithinRadius(0, 0, 0, 0.5, 30) {
		t.Error("expected point ~55 km away to be outside 30 km")
	}
}
