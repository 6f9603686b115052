package db

import (
	"context"
	"database/sql"
	"fmt"
)

// GTFSStop is a stop row for dim_stops
type GTFSStop struct {
	StopID   string
	StopCode string
	StopName string
	StopLat  float64
	StopLon  float64
}

// GTFSRoute is a route row for dim_routes
type GTFSRoute struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteType      int
	RouteColor     string
	RouteTextColor string
}

// GTFSTrip is a trip row for dim_trips
type GTFSTrip struct {
	TripID       string
	RouteID      string
	ServiceID    string
	TripHeadsign string
	DirectionID  int
}

// GTFSStopTime is a stop time row for dim_stop_times, in seconds after service-day midnight
type GTFSStopTime struct {
	TripID           string
	StopID           string
	StopSequence     int
	ArrivalSeconds   int
	DepartureSeconds int
}

// GTFSCalendar is a weekly service pattern row for dim_calendar
type GTFSCalendar struct {
	ServiceID string
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int
	StartDate string
	EndDate   string
}

// GTFSCalendarDate is a service exception row for dim_calendar_dates
type GTFSCalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int
}

// UpsertGTFSDimensionData replaces the stops, trips and stop times of a network
func (db *DB) UpsertGTFSDimensionData(ctx context.Context, network string, stops []GTFSStop, trips []GTFSTrip, stopTimes []GTFSStopTime) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"dim_stops", "dim_trips", "dim_stop_times"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE network = ?", network); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		stopStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dim_stops (network, stop_id, stop_code, stop_name, stop_lat, stop_lon)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (network, stop_id) DO UPDATE SET
				stop_code = excluded.stop_code,
				stop_name = excluded.stop_name,
				stop_lat = excluded.stop_lat,
				stop_lon = excluded.stop_lon
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare stop statement: %w", err)
		}
		defer stopStmt.Close()

		for _, s := range stops {
			if _, err := stopStmt.ExecContext(ctx, network, s.StopID, s.StopCode, s.StopName, s.StopLat, s.StopLon); err != nil {
				return fmt.Errorf("failed to insert stop %s: %w", s.StopID, err)
			}
		}

		tripStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO dim_trips (network, trip_id, route_id, service_id, trip_headsign, direction_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trip statement: %w", err)
		}
		defer tripStmt.Close()

		for _, t := range trips {
			if _, err := tripStmt.ExecContext(ctx, network, t.TripID, t.RouteID, t.ServiceID, t.TripHeadsign, t.DirectionID); err != nil {
				return fmt.Errorf("failed to insert trip %s: %w", t.TripID, err)
			}
		}

		stStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO dim_stop_times (network, trip_id, stop_sequence, stop_id, arrival_seconds, departure_seconds)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare stop time statement: %w", err)
		}
		defer stStmt.Close()

		for _, st := range stopTimes {
			if _, err := stStmt.ExecContext(ctx, network, st.TripID, st.StopSequence, st.StopID, st.ArrivalSeconds, st.DepartureSeconds); err != nil {
				return fmt.Errorf("failed to insert stop time %s/%d: %w", st.TripID, st.StopSequence, err)
			}
		}

		return nil
	})
}

// UpsertGTFSRouteData replaces the routes of a network
func (db *DB) UpsertGTFSRouteData(ctx context.Context, network string, routes []GTFSRoute) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM dim_routes WHERE network = ?", network); err != nil {
			return fmt.Errorf("failed to clear dim_routes: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO dim_routes (network, route_id, route_short_name, route_long_name, route_type, route_color, route_text_color)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare route statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range routes {
			if _, err := stmt.ExecContext(ctx, network, r.RouteID, r.RouteShortName, r.RouteLongName, r.RouteType, r.RouteColor, r.RouteTextColor); err != nil {
				return fmt.Errorf("failed to insert route %s: %w", r.RouteID, err)
			}
		}
		return nil
	})
}

// UpsertGTFSCalendarData replaces the service calendars of a network
func (db *DB) UpsertGTFSCalendarData(ctx context.Context, network string, calendars []GTFSCalendar, dates []GTFSCalendarDate) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"dim_calendar", "dim_calendar_dates"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE network = ?", network); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		calStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO dim_calendar (network, service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare calendar statement: %w", err)
		}
		defer calStmt.Close()

		for _, c := range calendars {
			if _, err := calStmt.ExecContext(ctx, network, c.ServiceID,
				c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday,
				c.StartDate, c.EndDate,
			); err != nil {
				return fmt.Errorf("failed to insert calendar %s: %w", c.ServiceID, err)
			}
		}

		dateStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO dim_calendar_dates (network, service_id, date, exception_type)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare calendar date statement: %w", err)
		}
		defer dateStmt.Close()

		for _, cd := range dates {
			if _, err := dateStmt.ExecContext(ctx, network, cd.ServiceID, cd.Date, cd.ExceptionType); err != nil {
				return fmt.Errorf("failed to insert calendar date %s/%s: %w", cd.ServiceID, cd.Date, err)
			}
		}
		return nil
	})
}
