// Package triage computes severity scores for pending service requests.
// It is pure computation: no storage, no clock of its own. Callers pass
// the evaluation time so a whole queue is scored against one instant.
package triage

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Severity bands, highest first.
const (
	BandCritical = "critical"
	BandHigh     = "high"
	BandMedium   = "medium"
	BandLow      = "low"
)

// Policy holds the scoring weights. DefaultPolicy is used by the server;
// the knobs exist so operations can tune dispatch pressure without a
// code change.
type Policy struct {
	StatusWeight    map[string]float64
	WaitPerMinute   float64
	// WaitCap bounds the waiting minutes credited to the score, not the
	// resulting points: a request never earns more than
	// WaitCap*WaitPerMinute from waiting.
	WaitCap         float64
	UnassignedBonus float64
	StaleBonus      float64
	StaleAfter      time.Duration

	CriticalAt float64
	HighAt     float64
	MediumAt   float64

	// LocationPrecision is the number of decimal places kept in the
	// masked location hint.
	LocationPrecision int
}

// DefaultPolicy weights unattended requests heaviest: an open request
// outranks an assigned one at equal wait, and anything waiting with no
// nurse at all gets an extra push.
func DefaultPolicy() Policy {
	return Policy{
		StatusWeight: map[string]float64{
			"open":     60,
			"assigned": 40,
			"accepted": 30,
			"enroute":  20,
		},
		WaitPerMinute:     0.5,
		WaitCap:           240,
		UnassignedBonus:   25,
		StaleBonus:        15,
		StaleAfter:        45 * time.Minute,
		CriticalAt:        140,
		HighAt:            100,
		MediumAt:          60,
		LocationPrecision: 2,
	}
}

// Input is one request to score. A zero LastEventAt means nothing has
// happened since creation; staleness then counts from CreatedAt.
type Input struct {
	RequestID   uuid.UUID
	Status      string
	NurseID     *uuid.UUID
	CreatedAt   time.Time
	LastEventAt time.Time
	Lat         float64
	Lng         float64
}

// Result is a scored request. LocationHint carries coordinates rounded
// to the policy's precision (two decimals is roughly 1.1 km) so queue
// views never expose a patient's exact address.
type Result struct {
	RequestID    uuid.UUID `json:"request_id"`
	Status       string    `json:"status"`
	Score        float64   `json:"score"`
	Band         string    `json:"band"`
	WaitMinutes  float64   `json:"wait_minutes"`
	LocationHint string    `json:"location_hint"`
}

// Score evaluates a single request at the given instant. The final
// score is rounded to the nearest integer so operators compare whole
// numbers, not float noise.
func Score(p Policy, in Input, now time.Time) Result {
	wait := now.Sub(in.CreatedAt).Minutes()
	if wait < 0 {
		wait = 0
	}

	score := p.StatusWeight[in.Status]
	score += math.Min(wait, p.WaitCap) * p.WaitPerMinute
	if in.NurseID == nil {
		score += p.UnassignedBonus
	}

	last := in.LastEventAt
	if last.IsZero() {
		last = in.CreatedAt
	}
	if now.Sub(last) >= p.StaleAfter {
		score += p.StaleBonus
	}

	score = math.Round(score)
	return Result{
		RequestID:    in.RequestID,
		Status:       in.Status,
		Score:        score,
		Band:         band(p, score),
		WaitMinutes:  wait,
		LocationHint: LocationHint(in.Lat, in.Lng, p.LocationPrecision),
	}
}

// Rank scores every input and sorts the results: highest score first,
// longest wait breaking score ties, then created time and request id so
// equal inputs always produce the same order.
func Rank(p Policy, inputs []Input, now time.Time) []Result {
	results := make([]Result, len(inputs))
	created := make(map[uuid.UUID]time.Time, len(inputs))
	for i, in := range inputs {
		results[i] = Score(p, in, now)
		created[in.RequestID] = in.CreatedAt
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.WaitMinutes != b.WaitMinutes {
			return a.WaitMinutes > b.WaitMinutes
		}
		ca, cb := created[a.RequestID], created[b.RequestID]
		if !ca.Equal(cb) {
			return ca.Before(cb)
		}
		return a.RequestID.String() < b.RequestID.String()
	})
	return results
}

func band(p Policy, score float64) string {
	switch {
	case score >= p.CriticalAt:
		return BandCritical
	case score >= p.HighAt:
		return BandHigh
	case score >= p.MediumAt:
		return BandMedium
	default:
		return BandLow
	}
}

// LocationHint rounds coordinates to the given number of decimal places
// and formats them as "~lat,lng"; the tilde marks the value as
// approximate. Full-precision coordinates stay in the request row.
func LocationHint(lat, lng float64, precision int) string {
	return fmt.Sprintf("~%.*f,%.*f", precision, lat, precision, lng)
}
