package geo

import (
	"math"
	"testing"
)

func TestHaversineZeroForIdenticalPoints(t *testing.T) {
	if d := Haversine(51.5074, -0.1278, 51.5074, -0.1278); d != 0 {
		t.Errorf("distance between identical points = %f, want 0", d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	d1 := Haversine(40.7128, -74.0060, 34.0522, -118.2437)
	d2 := Haversine(34.0522, -118.2437, 40.7128, -74.0060)
	if math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude along a meridian is ~111.19 km on a sphere
	// of radius 6371 km.
	d := Haversine(0, 0, 1, 0)
	if math.Abs(d-111195) > 100 {
		t.Errorf("one degree latitude = %f m, want ~111195 m", d)
	}
}

func TestHaversineOrdering(t *testing.T) {
	near := Haversine(0, 0, 0.1, 0.1)
	far := Haversine(0, 0, 1, 1)
	if near >= far {
		t.Errorf("nearer point not closer: near=%f far=%f", near, far)
	}
}

func TestValidCoordinates(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.01, 0, false},
		{-90.01, 0, false},
		{0, 180.01, false},
		{0, -180.01, false},
	}
	for _, tc := range cases {
		if got := ValidCoordinates(tc.lat, tc.lng); got != tc.want {
			t.Errorf("ValidCoordinates(%f, %f) = %v, want %v", tc.lat, tc.lng, got, tc.want)
		}
	}
}
