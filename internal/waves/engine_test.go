package waves

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"
)

var testDay = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return testDay.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func eventsAt(times ...string) []WaveEvent {
	events := make([]WaveEvent, 0, len(times))
	for i, hhmm := range times {
		events = append(events, WaveEvent{
			Time:         at(hhmm),
			IsArrival:    i%2 == 0,
			RouteNumber:  "BAT 3",
			RouteName:    "Zürich Bürkliplatz - Rapperswil",
			NeighborStop: "Thalwil",
			Period:       "summer",
		})
	}
	return events
}

func daylightSun() *SunTimes {
	return &SunTimes{
		Sunrise:            at("07:00"),
		Sunset:             at("20:00"),
		CivilTwilightBegin: at("06:30"),
		CivilTwilightEnd:   at("20:30"),
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFindSessions_DaylightExample(t *testing.T) {
	slots := FindSessions(eventsAt("08:00", "08:20", "08:40", "09:30"), daylightSun())
	if len(slots) == 0 {
		t.Fatal("expected at least one session")
	}

	best := slots[0]
	if !best.StartTime.Equal(at("08:00")) || !best.EndTime.Equal(at("09:30")) {
		t.Errorf("best slot = %s-%s, expected 08:00-09:30",
			best.StartTime.Format("15:04"), best.EndTime.Format("15:04"))
	}
	if best.Duration() != 90*time.Minute {
		t.Errorf("duration = %v, expected 1h30m", best.Duration())
	}
	if best.WaveCount != 4 {
		t.Errorf("waveCount = %d, expected 4", best.WaveCount)
	}
	if score := Score(best, daylightSun()); !approxEqual(score, best.WavesPerHour()) {
		t.Errorf("score = %f, expected undiminished %f", score, best.WavesPerHour())
	}
	if !approxEqual(best.WavesPerHour(), 4/1.5) {
		t.Errorf("wavesPerHour = %f, expected %f", best.WavesPerHour(), 4/1.5)
	}

	// 08:20 also qualifies: three waves over 70 minutes, ranked below 08:00
	if len(slots) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(slots))
	}
	if !slots[1].StartTime.Equal(at("08:20")) || slots[1].WaveCount != 3 {
		t.Errorf("second slot = %s with %d waves, expected 08:20 with 3",
			slots[1].StartTime.Format("15:04"), slots[1].WaveCount)
	}
}

func TestFindSessions_DarkMorningExample(t *testing.T) {
	events := eventsAt("05:00", "05:20", "05:40")
	sun := &SunTimes{
		Sunrise:            at("07:00"),
		Sunset:             at("20:00"),
		CivilTwilightBegin: at("06:30"),
		CivilTwilightEnd:   at("20:30"),
	}

	if slots := FindSessions(events, sun); len(slots) != 0 {
		t.Errorf("expected no sessions, got %d", len(slots))
	}

	// The slot would also be vetoed by darkness
	slot := WaveTimeSlot{StartTime: at("05:00"), EndTime: at("05:40"), WaveCount: 3, Waves: events}
	if score := Score(slot, sun); score != 0 {
		t.Errorf("score = %f, expected 0 for a session before civil dawn", score)
	}
}

func TestFindSessions_EmptyAndSparse(t *testing.T) {
	tests := []struct {
		name   string
		events []WaveEvent
	}{
		{"nil", nil},
		{"single", eventsAt("10:00")},
		{"span just under an hour", eventsAt("10:00", "10:20", "10:40", "10:59")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slots := FindSessions(tc.events, nil)
			if slots == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(slots) != 0 {
				t.Errorf("expected no sessions, got %d", len(slots))
			}
		})
	}
}

func TestFindSessions_GapBreaksSession(t *testing.T) {
	slots := FindSessions(eventsAt("08:00", "08:30", "09:45", "10:00", "10:30", "11:00"), nil)
	if len(slots) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(slots))
	}
	if !slots[0].StartTime.Equal(at("09:45")) || slots[0].WaveCount != 4 {
		t.Errorf("best = %s with %d waves, expected 09:45 with 4",
			slots[0].StartTime.Format("15:04"), slots[0].WaveCount)
	}
	if !slots[1].StartTime.Equal(at("10:00")) || slots[1].WaveCount != 3 {
		t.Errorf("second = %s with %d waves, expected 10:00 with 3",
			slots[1].StartTime.Format("15:04"), slots[1].WaveCount)
	}
	for _, s := range slots {
		if s.StartTime.Before(at("09:45")) {
			t.Errorf("session starting %s spans the 75 minute gap", s.StartTime.Format("15:04"))
		}
	}
}

func TestFindSessions_MaxDurationCapsGrowth(t *testing.T) {
	var times []string
	for m := 8 * 60; m <= 12*60; m += 30 {
		times = append(times, time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04"))
	}

	slots := FindSessions(eventsAt(times...), nil)
	if len(slots) == 0 {
		t.Fatal("expected sessions")
	}
	for _, s := range slots {
		if s.Duration() > MaxSessionDuration {
			t.Errorf("session %s-%s exceeds max duration", s.StartTime.Format("15:04"), s.EndTime.Format("15:04"))
		}
	}

	var from0800 *WaveTimeSlot
	for i := range slots {
		if slots[i].StartTime.Equal(at("08:00")) {
			from0800 = &slots[i]
		}
	}
	if from0800 != nil && (!from0800.EndTime.Equal(at("11:00")) || from0800.WaveCount != 7) {
		t.Errorf("08:00 session = until %s with %d waves, expected until 11:00 with 7",
			from0800.EndTime.Format("15:04"), from0800.WaveCount)
	}
}

func TestFindSessions_DuplicatesCountedSeparately(t *testing.T) {
	events := eventsAt("08:00", "08:30", "09:00")
	dup := events[0]
	events = append(events, dup)

	slots := FindSessions(events, nil)
	if len(slots) != 2 {
		t.Fatalf("expected one candidate per start event (2), got %d", len(slots))
	}
	for _, s := range slots {
		if !s.StartTime.Equal(at("08:00")) {
			t.Errorf("unexpected start %s", s.StartTime.Format("15:04"))
		}
		if s.WaveCount != 4 {
			t.Errorf("waveCount = %d, expected duplicate counted (4)", s.WaveCount)
		}
	}
}

func TestFindSessions_LimitsResults(t *testing.T) {
	var events []WaveEvent
	for m := 0; m < 12*60; m += 10 {
		events = append(events, WaveEvent{Time: testDay.Add(6*time.Hour + time.Duration(m)*time.Minute), RouteNumber: "BAT"})
	}
	if slots := FindSessions(events, nil); len(slots) != MaxResults {
		t.Errorf("expected %d sessions, got %d", MaxResults, len(slots))
	}
}

func TestFindSessions_DarknessVeto(t *testing.T) {
	events := eventsAt("21:00", "21:15", "21:30", "21:45", "22:00", "22:15", "22:30")
	sun := daylightSun()

	if slots := FindSessions(events, sun); len(slots) != 0 {
		t.Errorf("expected all evening sessions vetoed, got %d", len(slots))
	}
	if slots := FindSessions(events, nil); len(slots) == 0 {
		t.Error("expected sessions without daylight data")
	}
}

func TestFindSessions_FullTwilightKeepsTwentyPercent(t *testing.T) {
	events := eventsAt("05:00", "05:30", "06:00", "06:30")
	sun := &SunTimes{
		Sunrise:            at("09:00"),
		Sunset:             at("20:00"),
		CivilTwilightBegin: at("04:00"),
		CivilTwilightEnd:   at("21:00"),
	}

	slots := FindSessions(events, sun)
	if len(slots) == 0 {
		t.Fatal("expected twilight sessions to survive")
	}
	for _, s := range slots {
		if overlap := TwilightOverlap(s, *sun); !approxEqual(overlap, 1) {
			t.Errorf("overlap = %f, expected 1", overlap)
		}
		ratio := Score(s, sun) / s.WavesPerHour()
		if !approxEqual(ratio, 0.2) {
			t.Errorf("score ratio = %f, expected 0.2", ratio)
		}
	}
}

func TestTwilightOverlap(t *testing.T) {
	sun := *daylightSun()
	tests := []struct {
		name       string
		start, end string
		expected   float64
	}{
		{"midday", "10:00", "12:00", 0},
		{"half before sunrise", "06:00", "08:00", 0.5},
		{"quarter after sunset", "17:00", "21:00", 0.25},
		{"ends at sunrise", "06:00", "07:00", 1},
		{"starts at sunset", "20:00", "22:00", 1},
		{"spans whole day", "06:00", "21:00", 2.0 / 15.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slot := WaveTimeSlot{StartTime: at(tc.start), EndTime: at(tc.end), WaveCount: 3}
			if got := TwilightOverlap(slot, sun); !approxEqual(got, tc.expected) {
				t.Errorf("TwilightOverlap(%s-%s) = %f, expected %f", tc.start, tc.end, got, tc.expected)
			}
		})
	}
}

func TestInDarkness(t *testing.T) {
	sun := *daylightSun()
	tests := []struct {
		start, end string
		expected   bool
	}{
		{"05:00", "06:30", true},
		{"05:00", "06:31", false},
		{"20:29", "22:00", false},
		{"20:30", "22:00", true},
		{"12:00", "13:00", false},
	}

	for _, tc := range tests {
		slot := WaveTimeSlot{StartTime: at(tc.start), EndTime: at(tc.end)}
		if got := InDarkness(slot, sun); got != tc.expected {
			t.Errorf("InDarkness(%s-%s) = %v, expected %v", tc.start, tc.end, got, tc.expected)
		}
	}
}

func TestFindSessions_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sun := daylightSun()

	for run := 0; run < 200; run++ {
		n := rng.Intn(40)
		events := make([]WaveEvent, n)
		for i := range events {
			offset := time.Duration(rng.Intn(24*60)) * time.Minute
			events[i] = WaveEvent{Time: testDay.Add(offset), RouteNumber: "BAT", IsArrival: rng.Intn(2) == 0}
		}

		var sunArg *SunTimes
		if run%2 == 0 {
			sunArg = sun
		}

		slots := FindSessions(events, sunArg)
		if len(slots) > MaxResults {
			t.Fatalf("run %d: %d results exceeds max", run, len(slots))
		}
		for i, s := range slots {
			if s.WaveCount != len(s.Waves) {
				t.Fatalf("run %d: waveCount %d != len(waves) %d", run, s.WaveCount, len(s.Waves))
			}
			for _, w := range s.Waves {
				if w.Time.Before(s.StartTime) || w.Time.After(s.EndTime) {
					t.Fatalf("run %d: wave %v outside slot %v-%v", run, w.Time, s.StartTime, s.EndTime)
				}
			}
			if Score(s, sunArg) <= 0 {
				t.Fatalf("run %d: returned slot with non-positive score", run)
			}
			if i > 0 && Score(slots[i-1], sunArg) < Score(s, sunArg) {
				t.Fatalf("run %d: results not sorted by score", run)
			}
			if sunArg != nil && InDarkness(s, *sunArg) {
				t.Fatalf("run %d: dark session returned", run)
			}
		}

		if again := FindSessions(events, sunArg); !reflect.DeepEqual(slots, again) {
			t.Fatalf("run %d: second call returned different output", run)
		}
	}
}

func TestSortEvents_LeavesInputUntouched(t *testing.T) {
	events := eventsAt("10:00", "08:00", "09:00")
	sorted := SortEvents(events)

	if !events[0].Time.Equal(at("10:00")) {
		t.Error("input slice was reordered")
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time.Before(sorted[i-1].Time) {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestSpotAnalytics_Derived(t *testing.T) {
	var empty SpotAnalytics
	if empty.BestTimeSlot() != nil {
		t.Error("expected nil best slot for empty analytics")
	}

	a := SpotAnalytics{
		SpotID: "8503651",
		TimeSlots: []WaveTimeSlot{
			{StartTime: at("08:00"), EndTime: at("09:30"), WaveCount: 4},
			{StartTime: at("08:20"), EndTime: at("09:30"), WaveCount: 3},
		},
	}
	if best := a.BestTimeSlot(); best == nil || best.WaveCount != 4 {
		t.Errorf("best slot = %+v, expected the first one", best)
	}
	if a.TotalWaves() != 7 {
		t.Errorf("TotalWaves = %d, expected 7", a.TotalWaves())
	}
}

func TestWaveEvent_Key(t *testing.T) {
	a := WaveEvent{Time: at("08:00"), RouteNumber: "BAT 3", IsArrival: true, NeighborStop: "Thalwil"}
	b := WaveEvent{Time: at("08:00"), RouteNumber: "BAT 3", IsArrival: true, NeighborStop: "Kilchberg"}
	c := WaveEvent{Time: at("08:00"), RouteNumber: "BAT 3", IsArrival: false}

	if a.Key() != b.Key() {
		t.Error("events differing only outside the natural key should share it")
	}
	if a.Key() == c.Key() {
		t.Error("arrival and departure should not share a key")
	}
}
