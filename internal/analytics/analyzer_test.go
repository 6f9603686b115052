package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

type fakeProvider struct {
	sun   waves.SunTimes
	err   error
	calls int32
}

func (f *fakeProvider) SunTimes(ctx context.Context, date time.Time) (waves.SunTimes, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return waves.SunTimes{}, f.err
	}
	return f.sun, nil
}

var day = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func events(times ...time.Time) []waves.WaveEvent {
	out := make([]waves.WaveEvent, 0, len(times))
	for i, t := range times {
		out = append(out, waves.WaveEvent{Time: t, RouteNumber: fmt.Sprintf("%d", 3000+i), IsArrival: i%2 == 0})
	}
	return out
}

func summerSun() waves.SunTimes {
	return waves.SunTimes{
		Sunrise:            at(5, 45),
		Sunset:             at(21, 20),
		CivilTwilightBegin: at(5, 8),
		CivilTwilightEnd:   at(21, 57),
	}
}

func fixedClock() time.Time { return at(12, 0) }

func TestAnalyzePublishesRankedSessions(t *testing.T) {
	provider := &fakeProvider{sun: summerSun()}
	store := NewStore()
	a := NewAnalyzer(provider, store, WithClock(fixedClock))

	evs := events(at(8, 0), at(8, 20), at(8, 50), at(9, 30), at(15, 0))
	res, err := a.Analyze(context.Background(), "spot-1", "Luzern", evs)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(res.TimeSlots) == 0 {
		t.Fatal("expected at least one session")
	}
	best := res.BestTimeSlot()
	if !best.StartTime.Equal(at(8, 0)) || !best.EndTime.Equal(at(9, 30)) || best.WaveCount != 4 {
		t.Errorf("unexpected best slot: %s-%s (%d waves)", best.StartTime.Format("15:04"), best.EndTime.Format("15:04"), best.WaveCount)
	}
	if !res.AnalyzedAt.Equal(fixedClock()) {
		t.Errorf("expected AnalyzedAt %v, got %v", fixedClock(), res.AnalyzedAt)
	}

	stored, ok := store.Get("spot-1")
	if !ok {
		t.Fatal("expected result in store")
	}
	if stored.SpotName != "Luzern" || len(stored.TimeSlots) != len(res.TimeSlots) {
		t.Errorf("stored result differs from returned result: %+v", stored)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
}

func TestAnalyzeShortSpanSkipsProvider(t *testing.T) {
	tests := []struct {
		name   string
		events []waves.WaveEvent
	}{
		{"no events", nil},
		{"single event", events(at(8, 0))},
		{"span under an hour", events(at(8, 0), at(8, 20), at(8, 59))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{sun: summerSun()}
			store := NewStore()
			a := NewAnalyzer(provider, store)

			res, err := a.Analyze(context.Background(), "spot-1", "Luzern", tt.events)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if res.TimeSlots == nil || len(res.TimeSlots) != 0 {
				t.Errorf("expected empty non-nil slots, got %v", res.TimeSlots)
			}
			if provider.calls != 0 {
				t.Errorf("expected no provider calls, got %d", provider.calls)
			}
			if _, ok := store.Get("spot-1"); !ok {
				t.Error("expected empty result to be published")
			}
		})
	}
}

func TestAnalyzeEmptyResultReplacesStale(t *testing.T) {
	store := NewStore()
	store.Publish(waves.SpotAnalytics{SpotID: "spot-1", TimeSlots: []waves.WaveTimeSlot{{WaveCount: 3}}})

	a := NewAnalyzer(&fakeProvider{sun: summerSun()}, store)
	if _, err := a.Analyze(context.Background(), "spot-1", "Luzern", nil); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	got, _ := store.Get("spot-1")
	if len(got.TimeSlots) != 0 {
		t.Errorf("expected stale slots to be replaced, got %d", len(got.TimeSlots))
	}
}

func TestAnalyzeDegradesWithoutSunTimes(t *testing.T) {
	provider := &fakeProvider{err: errors.New("api down")}
	a := NewAnalyzer(provider, NewStore())

	// Before dawn: vetoed with sun times, ranked without them
	evs := events(at(2, 0), at(2, 30), at(3, 0), at(3, 30))
	res, err := a.Analyze(context.Background(), "spot-1", "Luzern", evs)
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(res.TimeSlots) == 0 {
		t.Fatal("expected sessions ranked by density alone")
	}
	if res.BestTimeSlot().WaveCount != 4 {
		t.Errorf("expected 4 waves in best slot, got %d", res.BestTimeSlot().WaveCount)
	}
}

func TestAnalyzeDarknessVetoWithSunTimes(t *testing.T) {
	a := NewAnalyzer(&fakeProvider{sun: summerSun()}, NewStore())

	evs := events(at(2, 0), at(2, 30), at(3, 0), at(3, 30))
	res, err := a.Analyze(context.Background(), "spot-1", "Luzern", evs)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(res.TimeSlots) != 0 {
		t.Errorf("expected no sessions in darkness, got %d", len(res.TimeSlots))
	}
}

func TestAnalyzeCancelledPublishesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStore()
	a := NewAnalyzer(&fakeProvider{err: context.Canceled}, store)

	_, err := a.Analyze(ctx, "spot-1", "Luzern", events(at(8, 0), at(8, 30), at(9, 0), at(9, 30)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected nothing published, got %d entries", store.Len())
	}
}

func TestAnalyzeAll(t *testing.T) {
	store := NewStore()
	a := NewAnalyzer(&fakeProvider{sun: summerSun()}, store, WithConcurrency(3))

	var inputs []SpotInput
	for i := 0; i < 10; i++ {
		inputs = append(inputs, SpotInput{
			SpotID:   fmt.Sprintf("spot-%02d", i),
			SpotName: fmt.Sprintf("Spot %d", i),
			Events:   events(at(10, 0), at(10, 30), at(11, 0), at(11, 15)),
		})
	}

	results, err := a.AnalyzeAll(context.Background(), inputs)
	if err != nil {
		t.Fatalf("AnalyzeAll failed: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		if r.SpotID != inputs[i].SpotID {
			t.Errorf("result %d: expected %s, got %s", i, inputs[i].SpotID, r.SpotID)
		}
	}
	if store.Len() != len(inputs) {
		t.Errorf("expected %d stored spots, got %d", len(inputs), store.Len())
	}
}

func TestStoreAllSortedAndReplaces(t *testing.T) {
	s := NewStore()
	s.Publish(waves.SpotAnalytics{SpotID: "b"})
	s.Publish(waves.SpotAnalytics{SpotID: "a"})
	s.Publish(waves.SpotAnalytics{SpotID: "b", SpotName: "second"})

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 spots, got %d", len(all))
	}
	if all[0].SpotID != "a" || all[1].SpotID != "b" {
		t.Errorf("expected sorted ids, got %s, %s", all[0].SpotID, all[1].SpotID)
	}
	if all[1].SpotName != "second" {
		t.Errorf("expected replaced value, got %q", all[1].SpotName)
	}
}

func TestStoreConcurrentPublish(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Publish(waves.SpotAnalytics{SpotID: fmt.Sprintf("spot-%d", i%5)})
			s.All()
		}(i)
	}
	wg.Wait()

	if s.Len() != 5 {
		t.Errorf("expected 5 spots, got %d", s.Len())
	}
}
