package waves

import (
	"fmt"
	"time"
)

// WaveEvent represents one scheduled arrival or departure of a boat at a stop
type WaveEvent struct {
	Time         time.Time `json:"time"`
	IsArrival    bool      `json:"isArrival"`
	RouteNumber  string    `json:"routeNumber"`
	RouteName    string    `json:"routeName"`
	NeighborStop string    `json:"neighborStop"` // previous stop for arrivals, next stop for departures
	Period       string    `json:"period"`       // schedule period label (GTFS service_id)

	// Provenance used to match realtime updates (not part of the natural key)
	TripID string `json:"tripId,omitempty"`
	StopID string `json:"stopId,omitempty"`
}

// Key returns the natural key (time, route number, direction) of the event.
// Uniqueness is not enforced: two events with the same key are both counted.
func (e WaveEvent) Key() string {
	return fmt.Sprintf("%d_%s_%t", e.Time.Unix(), e.RouteNumber, e.IsArrival)
}

// WaveTimeSlot is a candidate or accepted wave session
type WaveTimeSlot struct {
	StartTime time.Time   `json:"startTime"`
	EndTime   time.Time   `json:"endTime"`
	WaveCount int         `json:"waveCount"`
	Waves     []WaveEvent `json:"waves"`
}

// Duration returns EndTime - StartTime
func (s WaveTimeSlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// WavesPerHour returns the wave density of the slot.
// A zero-length slot yields +Inf, which never occurs for accepted sessions.
func (s WaveTimeSlot) WavesPerHour() float64 {
	return float64(s.WaveCount) / s.Duration().Hours()
}

// SpotAnalytics holds the ranked sessions of one spot, best first
type SpotAnalytics struct {
	SpotID     string         `json:"spotId"`
	SpotName   string         `json:"spotName"`
	TimeSlots  []WaveTimeSlot `json:"timeSlots"`
	AnalyzedAt time.Time      `json:"analyzedAt"`
}

// BestTimeSlot returns the highest ranked slot, or nil when there is none
func (a SpotAnalytics) BestTimeSlot() *WaveTimeSlot {
	if len(a.TimeSlots) == 0 {
		return nil
	}
	return &a.TimeSlots[0]
}

// TotalWaves sums WaveCount over all slots. Overlapping slots count shared waves twice.
func (a SpotAnalytics) TotalWaves() int {
	total := 0
	for _, slot := range a.TimeSlots {
		total += slot.WaveCount
	}
	return total
}

// SunTimes is the daylight reference for one calendar date
type SunTimes struct {
	Sunrise            time.Time `json:"sunrise"`
	Sunset             time.Time `json:"sunset"`
	CivilTwilightBegin time.Time `json:"civilTwilightBegin"`
	CivilTwilightEnd   time.Time `json:"civilTwilightEnd"`
}
