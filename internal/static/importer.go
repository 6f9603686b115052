// Package static imports GTFS schedule feeds into the database and keeps
// a downloaded feed fresh.
package static

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pfederi/Next-Wave-sub001/internal/db"
	"github.com/pfederi/Next-Wave-sub001/internal/static/gtfs"
)

// GTFSStore receives imported feed rows
type GTFSStore interface {
	UpsertGTFSDimensionData(ctx context.Context, network string, stops []db.GTFSStop, trips []db.GTFSTrip, stopTimes []db.GTFSStopTime) error
	UpsertGTFSRouteData(ctx context.Context, network string, routes []db.GTFSRoute) error
	UpsertGTFSCalendarData(ctx context.Context, network string, calendars []db.GTFSCalendar, dates []db.GTFSCalendarDate) error
}

// ImportStats counts the rows written by ImportFeed
type ImportStats struct {
	Routes        int
	Stops         int
	Trips         int
	StopTimes     int
	Skipped       int
	Calendars     int
	CalendarDates int
}

// DeriveNetworkName extracts the network identifier from a feed filename
func DeriveNetworkName(filename string) string {
	name := strings.ToLower(strings.TrimSuffix(filename, ".zip"))
	name = strings.TrimSuffix(name, "_gtfs")
	name = strings.TrimPrefix(name, "gtfs_")

	switch {
	case strings.Contains(name, "sgv") || strings.Contains(name, "vierwaldstaettersee"):
		return "sgv"
	case strings.Contains(name, "zsg") || strings.Contains(name, "zuerichsee"):
		return "zsg"
	default:
		return name
	}
}

// ImportFeed parses one GTFS zip, keeps its ferry routes and replaces the
// network's rows in the store
func ImportFeed(ctx context.Context, store GTFSStore, parser *gtfs.Parser, zipPath, network string, logger *zap.Logger) (ImportStats, error) {
	var stats ImportStats

	parsed, err := parser.Parse(zipPath)
	if err != nil {
		return stats, err
	}
	logger.Info("parsed feed",
		zap.Int("routes", len(parsed.Routes)),
		zap.Int("stops", len(parsed.Stops)),
		zap.Int("trips", len(parsed.Trips)),
		zap.Int("stop_times", len(parsed.StopTimes)))

	data := gtfs.FilterRouteType(parsed, gtfs.RouteTypeFerry, gtfs.RouteTypeWaterTransport)
	if len(data.Routes) == 0 {
		return stats, fmt.Errorf("no ferry routes in %s", zipPath)
	}
	logger.Info("filtered to ferry routes",
		zap.Int("routes", len(data.Routes)),
		zap.Int("trips", len(data.Trips)))

	stopTimes := make([]db.GTFSStopTime, 0, len(data.StopTimes))
	usedStops := make(map[string]bool)
	for _, st := range data.StopTimes {
		arrival, err := gtfs.ParseTimeToSeconds(st.ArrivalTime)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping stop time", zap.String("trip", st.TripID), zap.Error(err))
			continue
		}
		departure, err := gtfs.ParseTimeToSeconds(st.DepartureTime)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping stop time", zap.String("trip", st.TripID), zap.Error(err))
			continue
		}
		stopTimes = append(stopTimes, db.GTFSStopTime{
			TripID:           st.TripID,
			StopID:           st.StopID,
			StopSequence:     st.StopSequence,
			ArrivalSeconds:   arrival,
			DepartureSeconds: departure,
		})
		usedStops[st.StopID] = true
	}

	// only stops served by ferries
	stops := make([]db.GTFSStop, 0, len(usedStops))
	for _, s := range data.Stops {
		if !usedStops[s.StopID] {
			continue
		}
		stops = append(stops, db.GTFSStop{
			StopID:   s.StopID,
			StopCode: s.StopCode,
			StopName: s.StopName,
			StopLat:  s.StopLat,
			StopLon:  s.StopLon,
		})
	}

	trips := make([]db.GTFSTrip, 0, len(data.Trips))
	for _, t := range data.Trips {
		trips = append(trips, db.GTFSTrip{
			TripID:       t.TripID,
			RouteID:      t.RouteID,
			ServiceID:    t.ServiceID,
			TripHeadsign: t.TripHeadsign,
			DirectionID:  t.DirectionID,
		})
	}

	if err := store.UpsertGTFSDimensionData(ctx, network, stops, trips, stopTimes); err != nil {
		return stats, fmt.Errorf("insert dimension data: %w", err)
	}
	stats.Stops, stats.Trips, stats.StopTimes = len(stops), len(trips), len(stopTimes)

	routes := make([]db.GTFSRoute, 0, len(data.Routes))
	for _, r := range data.Routes {
		routes = append(routes, db.GTFSRoute{
			RouteID:        r.RouteID,
			RouteShortName: r.RouteShortName,
			RouteLongName:  r.RouteLongName,
			RouteType:      r.RouteType,
			RouteColor:     r.RouteColor,
			RouteTextColor: r.RouteTextColor,
		})
	}
	if err := store.UpsertGTFSRouteData(ctx, network, routes); err != nil {
		return stats, fmt.Errorf("insert routes: %w", err)
	}
	stats.Routes = len(routes)

	calendars := make([]db.GTFSCalendar, 0, len(data.Calendars))
	for _, c := range data.Calendars {
		calendars = append(calendars, db.GTFSCalendar{
			ServiceID: c.ServiceID,
			Monday:    c.Monday,
			Tuesday:   c.Tuesday,
			Wednesday: c.Wednesday,
			Thursday:  c.Thursday,
			Friday:    c.Friday,
			Saturday:  c.Saturday,
			Sunday:    c.Sunday,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
		})
	}
	dates := make([]db.GTFSCalendarDate, 0, len(data.CalendarDates))
	for _, cd := range data.CalendarDates {
		dates = append(dates, db.GTFSCalendarDate{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: cd.ExceptionType,
		})
	}
	if err := store.UpsertGTFSCalendarData(ctx, network, calendars, dates); err != nil {
		return stats, fmt.Errorf("insert calendar: %w", err)
	}
	stats.Calendars, stats.CalendarDates = len(calendars), len(dates)

	return stats, nil
}
