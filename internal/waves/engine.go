package waves

import (
	"sort"
	"time"
)

// Session detection parameters
const (
	MaxWaveGap         = time.Hour     // max gap between consecutive waves inside a session
	MinSessionDuration = time.Hour     // shortest session worth reporting
	MaxSessionDuration = 3 * time.Hour // a session stops growing past this
	MinWavesPerSession = 3
	MaxResults         = 5

	// TwilightPenalty is the score reduction for a session lying fully in twilight
	TwilightPenalty = 0.8
)

// SortEvents returns a chronologically sorted copy of events.
// Equal timestamps keep their input order so repeated runs rank identically.
func SortEvents(events []WaveEvent) []WaveEvent {
	sorted := make([]WaveEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return sorted
}

type scoredSlot struct {
	slot  WaveTimeSlot
	score float64
}

// FindSessions detects wave sessions in events and returns the best MaxResults
// of them, highest score first. Every event is tried as a session start, so the
// returned slots may overlap. sun may be nil, in which case slots are ranked by
// waves per hour alone.
func FindSessions(events []WaveEvent, sun *SunTimes) []WaveTimeSlot {
	sorted := SortEvents(events)
	if len(sorted) == 0 {
		return []WaveTimeSlot{}
	}

	// Not enough time for even one session
	if sorted[len(sorted)-1].Time.Sub(sorted[0].Time) < MinSessionDuration {
		return []WaveTimeSlot{}
	}

	var candidates []scoredSlot
	first := 0 // lowest index whose time is >= the current start
	for i, start := range sorted {
		for first < i && sorted[first].Time.Before(start.Time) {
			first++
		}

		slot, ok := growSession(sorted[first:], start)
		if !ok {
			continue
		}

		score := Score(slot, sun)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scoredSlot{slot: slot, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := len(candidates)
	if n > MaxResults {
		n = MaxResults
	}
	result := make([]WaveTimeSlot, 0, n)
	for _, c := range candidates[:n] {
		result = append(result, c.slot)
	}
	return result
}

// growSession extends a session from start through events (sorted, all at or
// after start.Time) until a gap or the session length limit is exceeded.
func growSession(events []WaveEvent, start WaveEvent) (WaveTimeSlot, bool) {
	var sessionWaves []WaveEvent
	lastWaveTime := start.Time

	for _, e := range events {
		gap := e.Time.Sub(lastWaveTime)
		elapsed := e.Time.Sub(start.Time)
		if gap > MaxWaveGap || elapsed > MaxSessionDuration {
			break
		}
		sessionWaves = append(sessionWaves, e)
		lastWaveTime = e.Time
	}

	if lastWaveTime.Sub(start.Time) < MinSessionDuration || len(sessionWaves) < MinWavesPerSession {
		return WaveTimeSlot{}, false
	}

	return WaveTimeSlot{
		StartTime: start.Time,
		EndTime:   lastWaveTime,
		WaveCount: len(sessionWaves),
		Waves:     sessionWaves,
	}, true
}

// Score rates a slot by waves per hour, reduced by its twilight share.
// Slots lying entirely outside civil twilight score 0.
func Score(slot WaveTimeSlot, sun *SunTimes) float64 {
	base := slot.WavesPerHour()
	if sun == nil {
		return base
	}
	if InDarkness(slot, *sun) {
		return 0
	}
	return base * (1 - TwilightOverlap(slot, *sun)*TwilightPenalty)
}

// TwilightOverlap returns the fraction of the slot that lies before sunrise
// or after sunset. Payload ordering is not validated; with sunrise after
// sunset the result may exceed 1.
func TwilightOverlap(slot WaveTimeSlot, sun SunTimes) float64 {
	duration := slot.Duration()
	if duration <= 0 {
		return 0
	}

	var overlap time.Duration
	if !slot.StartTime.After(sun.Sunrise) {
		end := earliest(slot.EndTime, sun.Sunrise)
		overlap += nonNegative(end.Sub(slot.StartTime))
	}
	if !slot.EndTime.Before(sun.Sunset) {
		begin := latest(slot.StartTime, sun.Sunset)
		overlap += nonNegative(slot.EndTime.Sub(begin))
	}

	return float64(overlap) / float64(duration)
}

// InDarkness reports whether the slot ends by civil dawn or starts at or after civil dusk
func InDarkness(slot WaveTimeSlot, sun SunTimes) bool {
	return !slot.EndTime.After(sun.CivilTwilightBegin) || !slot.StartTime.Before(sun.CivilTwilightEnd)
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
