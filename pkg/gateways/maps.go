package gateways

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// MapsClient wraps the maps provider API for road distance, routes and
// reverse geocoding.
type MapsClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewMapsClient() *MapsClient {
	baseURL := os.Getenv("MAPS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.olamaps.io"
	}
	return &MapsClient{
		APIKey:  os.Getenv("MAPS_API_KEY"),
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type directionsResponse struct {
	Routes []struct {
		Legs []struct {
			Steps []struct {
				Instructions string `json:"instructions"`
				Geometry     string `json:"geometry"`
			} `json:"steps"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
	Status string `json:"status"`
}

// Route is the provider's answer for a pickup→drop leg.
type Route struct {
	DistanceKm   float64
	DurationMins int
	Polyline     string
}

func (c *MapsClient) get(url string, out interface{}) error {
	if c.APIKey == "" {
		return fmt.Errorf("maps API key not set")
	}

	resp, err := c.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return fmt.Errorf("maps api error: %s - %s", resp.Status, string(body))
	}

	return json.Unmarshal(body, out)
}

// GetRoute fetches the road route between two coordinates.
func (c *MapsClient) GetRoute(originLat, originLng, destLat, destLng float64) (*Route, error) {
	url := fmt.Sprintf("%s/routing/v1/directions?origin=%f,%f&destination=%f,%f&api_key=%s",
		c.BaseURL, originLat, originLng, destLat, destLng, c.APIKey)

	var result directionsResponse
	if err := c.get(url, &result); err != nil {
		return nil, err
	}

	if result.Status != "OK" || len(result.Routes) == 0 {
		return nil, fmt.Errorf("no routes found: %s", result.Status)
	}

	route := result.Routes[0]
	if len(route.Legs) == 0 {
		return nil, fmt.Errorf("no legs found in route")
	}

	return &Route{
		DistanceKm:   float64(route.Legs[0].Distance.Value) / 1000.0,
		DurationMins: route.Legs[0].Duration.Value / 60,
		Polyline:     route.OverviewPolyline.Points,
	}, nil
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"`
}

// ReverseGeocode resolves coordinates to a human-readable address.
func (c *MapsClient) ReverseGeocode(lat, lng float64) (string, error) {
	url := fmt.Sprintf("%s/places/v1/reverse-geocode?latlng=%f,%f&api_key=%s",
		c.BaseURL, lat, lng, c.APIKey)

	var result geocodeResponse
	if err := c.get(url, &result); err != nil {
		return "", err
	}

	if len(result.Results) == 0 {
		return "", fmt.Errorf("no address found for %f,%f", lat, lng)
	}
	return result.Results[0].FormattedAddress, nil
}
