package daylight

import (
	"fmt"
	"time"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// apiResponse mirrors the sunrise-sunset.org JSON payload (formatted=0)
type apiResponse struct {
	Results apiResults `json:"results"`
	Status  string     `json:"status"`
}

type apiResults struct {
	Sunrise            string `json:"sunrise"`
	Sunset             string `json:"sunset"`
	CivilTwilightBegin string `json:"civil_twilight_begin"`
	CivilTwilightEnd   string `json:"civil_twilight_end"`
}

// toSunTimes parses the UTC ISO-8601 timestamps and moves them to loc.
// Ordering (twilight <= sunrise <= sunset <= twilight) is not validated.
func (r apiResults) toSunTimes(loc *time.Location) (waves.SunTimes, error) {
	var st waves.SunTimes
	fields := []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"sunrise", r.Sunrise, &st.Sunrise},
		{"sunset", r.Sunset, &st.Sunset},
		{"civil_twilight_begin", r.CivilTwilightBegin, &st.CivilTwilightBegin},
		{"civil_twilight_end", r.CivilTwilightEnd, &st.CivilTwilightEnd},
	}

	for _, f := range fields {
		t, err := time.Parse(time.RFC3339, f.value)
		if err != nil {
			return waves.SunTimes{}, fmt.Errorf("invalid %s %q: %w", f.name, f.value, err)
		}
		*f.dst = t.In(loc)
	}

	return st, nil
}
