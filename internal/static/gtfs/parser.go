// Package gtfs reads static GTFS feeds.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Parser reads GTFS zip archives
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser. A nil logger discards warnings.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse reads a GTFS zip file. Missing optional files are skipped; a file
// that cannot be read is logged and left empty. Malformed rows are skipped.
func (p *Parser) Parse(zipPath string) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}
	if _, ok := files["stop_times.txt"]; !ok {
		return nil, fmt.Errorf("%s: stop_times.txt missing", zipPath)
	}

	data := &Data{}
	readers := []struct {
		name string
		read func(row) error
	}{
		{"agency.txt", func(r row) error { data.Agency = append(data.Agency, agencyFrom(r)); return nil }},
		{"routes.txt", func(r row) error { data.Routes = append(data.Routes, routeFrom(r)); return nil }},
		{"stops.txt", func(r row) error { data.Stops = append(data.Stops, stopFrom(r)); return nil }},
		{"trips.txt", func(r row) error { data.Trips = append(data.Trips, tripFrom(r)); return nil }},
		{"stop_times.txt", func(r row) error { data.StopTimes = append(data.StopTimes, stopTimeFrom(r)); return nil }},
		{"calendar.txt", func(r row) error { data.Calendars = append(data.Calendars, calendarFrom(r)); return nil }},
		{"calendar_dates.txt", func(r row) error {
			cd := calendarDateFrom(r)
			if cd.ExceptionType != ServiceAdded && cd.ExceptionType != ServiceRemoved {
				return fmt.Errorf("unknown exception_type %d", cd.ExceptionType)
			}
			data.CalendarDates = append(data.CalendarDates, cd)
			return nil
		}},
	}

	for _, rd := range readers {
		f, ok := files[rd.name]
		if !ok {
			continue
		}
		skipped, err := readRows(f, rd.read)
		if err != nil {
			p.logger.Warn("failed to parse GTFS file", zap.String("file", rd.name), zap.Error(err))
			continue
		}
		if skipped > 0 {
			p.logger.Warn("skipped malformed GTFS rows", zap.String("file", rd.name), zap.Int("rows", skipped))
		}
	}

	p.logger.Info("GTFS parsed",
		zap.String("path", zipPath),
		zap.Int("routes", len(data.Routes)),
		zap.Int("stops", len(data.Stops)),
		zap.Int("trips", len(data.Trips)),
		zap.Int("stop_times", len(data.StopTimes)),
		zap.Int("calendars", len(data.Calendars)),
		zap.Int("calendar_dates", len(data.CalendarDates)))

	return data, nil
}

// row is one CSV record addressed by header name
type row struct {
	record []string
	idx    map[string]int
}

func (r row) str(field string) string {
	if i, ok := r.idx[field]; ok && i < len(r.record) {
		return strings.TrimSpace(r.record[i])
	}
	return ""
}

func (r row) atoi(field string) int {
	v, _ := strconv.Atoi(r.str(field))
	return v
}

func (r row) atof(field string) float64 {
	v, _ := strconv.ParseFloat(r.str(field), 64)
	return v
}

// readRows feeds every record of f to fn and returns how many were skipped
func readRows(f *zip.File, fn func(row) error) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	idx := makeIndex(header)

	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if err := fn(row{record: record, idx: idx}); err != nil {
			skipped++
		}
	}
	return skipped, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func agencyFrom(r row) Agency {
	return Agency{
		AgencyID:   r.str("agency_id"),
		AgencyName: r.str("agency_name"),
		AgencyURL:  r.str("agency_url"),
	}
}

func routeFrom(r row) Route {
	return Route{
		RouteID:        r.str("route_id"),
		AgencyID:       r.str("agency_id"),
		RouteShortName: r.str("route_short_name"),
		RouteLongName:  r.str("route_long_name"),
		RouteType:      r.atoi("route_type"),
		RouteColor:     r.str("route_color"),
		RouteTextColor: r.str("route_text_color"),
	}
}

func stopFrom(r row) Stop {
	return Stop{
		StopID:        r.str("stop_id"),
		StopCode:      r.str("stop_code"),
		StopName:      r.str("stop_name"),
		StopLat:       r.atof("stop_lat"),
		StopLon:       r.atof("stop_lon"),
		LocationType:  r.atoi("location_type"),
		ParentStation: r.str("parent_station"),
	}
}

func tripFrom(r row) Trip {
	return Trip{
		RouteID:      r.str("route_id"),
		ServiceID:    r.str("service_id"),
		TripID:       r.str("trip_id"),
		TripHeadsign: r.str("trip_headsign"),
		DirectionID:  r.atoi("direction_id"),
	}
}

func stopTimeFrom(r row) StopTime {
	return StopTime{
		TripID:        r.str("trip_id"),
		ArrivalTime:   r.str("arrival_time"),
		DepartureTime: r.str("departure_time"),
		StopID:        r.str("stop_id"),
		StopSequence:  r.atoi("stop_sequence"),
	}
}

func calendarFrom(r row) Calendar {
	return Calendar{
		ServiceID: r.str("service_id"),
		Monday:    r.atoi("monday"),
		Tuesday:   r.atoi("tuesday"),
		Wednesday: r.atoi("wednesday"),
		Thursday:  r.atoi("thursday"),
		Friday:    r.atoi("friday"),
		Saturday:  r.atoi("saturday"),
		Sunday:    r.atoi("sunday"),
		StartDate: r.str("start_date"),
		EndDate:   r.str("end_date"),
	}
}

func calendarDateFrom(r row) CalendarDate {
	return CalendarDate{
		ServiceID:     r.str("service_id"),
		Date:          r.str("date"),
		ExceptionType: r.atoi("exception_type"),
	}
}

// ParseTimeToSeconds converts a GTFS HH:MM:SS time to seconds after the
// service day's midnight. Hours of 24 and above denote the following day.
func ParseTimeToSeconds(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}

	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid GTFS time %q", s)
		}
		vals[i] = v
	}
	if vals[1] > 59 || vals[2] > 59 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}

	return vals[0]*3600 + vals[1]*60 + vals[2], nil
}

// FilterRouteType returns a copy of data restricted to routes of the given
// types and the trips, stop times and services that belong to them. Stops and
// agencies are kept unchanged.
func FilterRouteType(data *Data, routeTypes ...int) *Data {
	wanted := make(map[int]bool, len(routeTypes))
	for _, t := range routeTypes {
		wanted[t] = true
	}

	out := &Data{
		Agency: data.Agency,
		Stops:  data.Stops,
	}

	routeIDs := make(map[string]bool)
	for _, r := range data.Routes {
		if wanted[r.RouteType] {
			out.Routes = append(out.Routes, r)
			routeIDs[r.RouteID] = true
		}
	}

	tripIDs := make(map[string]bool)
	serviceIDs := make(map[string]bool)
	for _, t := range data.Trips {
		if routeIDs[t.RouteID] {
			out.Trips = append(out.Trips, t)
			tripIDs[t.TripID] = true
			serviceIDs[t.ServiceID] = true
		}
	}

	for _, st := range data.StopTimes {
		if tripIDs[st.TripID] {
			out.StopTimes = append(out.StopTimes, st)
		}
	}
	for _, c := range data.Calendars {
		if serviceIDs[c.ServiceID] {
			out.Calendars = append(out.Calendars, c)
		}
	}
	for _, cd := range data.CalendarDates {
		if serviceIDs[cd.ServiceID] {
			out.CalendarDates = append(out.CalendarDates, cd)
		}
	}

	return out
}
