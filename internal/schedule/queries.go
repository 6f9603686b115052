// Package schedule turns imported GTFS timetables into wave events.
package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// Queries reads timetable data for one stop
type Queries struct {
	db  *sql.DB
	loc *time.Location
}

// NewQueries creates a Queries instance. Service days are interpreted in loc.
func NewQueries(db *sql.DB, loc *time.Location) *Queries {
	return &Queries{db: db, loc: loc}
}

const stopVisitsQuery = `
	WITH active_services AS (
		SELECT c.network, c.service_id
		FROM dim_calendar c
		WHERE c.start_date <= ?
		  AND c.end_date >= ?
		  AND CASE ?
				WHEN 0 THEN c.sunday
				WHEN 1 THEN c.monday
				WHEN 2 THEN c.tuesday
				WHEN 3 THEN c.wednesday
				WHEN 4 THEN c.thursday
				WHEN 5 THEN c.friday
				WHEN 6 THEN c.saturday
			  END = 1
		  AND NOT EXISTS (
			SELECT 1 FROM dim_calendar_dates cd
			WHERE cd.network = c.network
			  AND cd.service_id = c.service_id
			  AND cd.date = ?
			  AND cd.exception_type = 2
		  )
		UNION
		SELECT cd.network, cd.service_id
		FROM dim_calendar_dates cd
		WHERE cd.date = ? AND cd.exception_type = 1
	),
	sequenced AS (
		SELECT
			st.network,
			st.trip_id,
			st.stop_id,
			st.arrival_seconds,
			st.departure_seconds,
			LAG(st.stop_id) OVER w AS prev_stop_id,
			LEAD(st.stop_id) OVER w AS next_stop_id
		FROM dim_stop_times st
		WHERE st.trip_id IN (SELECT trip_id FROM dim_stop_times WHERE stop_id = ?)
		WINDOW w AS (PARTITION BY st.network, st.trip_id ORDER BY st.stop_sequence)
	)
	SELECT
		s.trip_id,
		s.stop_id,
		t.service_id,
		COALESCE(r.route_short_name, ''),
		COALESCE(r.route_long_name, ''),
		s.arrival_seconds,
		s.departure_seconds,
		COALESCE(ps.stop_name, ''),
		COALESCE(ns.stop_name, ''),
		s.prev_stop_id IS NOT NULL,
		s.next_stop_id IS NOT NULL
	FROM sequenced s
	JOIN dim_trips t ON t.network = s.network AND t.trip_id = s.trip_id
	JOIN active_services a ON a.network = t.network AND a.service_id = t.service_id
	LEFT JOIN dim_routes r ON r.network = t.network AND r.route_id = t.route_id
	LEFT JOIN dim_stops ps ON ps.network = s.network AND ps.stop_id = s.prev_stop_id
	LEFT JOIN dim_stops ns ON ns.network = s.network AND ns.stop_id = s.next_stop_id
	WHERE s.stop_id = ?
	ORDER BY s.departure_seconds, s.trip_id
`

// GetStopVisits returns the calls at stopID by trips running on serviceDay
func (q *Queries) GetStopVisits(ctx context.Context, stopID string, serviceDay time.Time) ([]StopVisit, error) {
	day := serviceDay.In(q.loc)
	date := day.Format(GTFSDateLayout)
	dow := int(day.Weekday())

	rows, err := q.db.QueryContext(ctx, stopVisitsQuery,
		date, date, // calendar validity
		dow,        // weekday pattern
		date,       // removed services
		date,       // added services
		stopID,     // trips touching the stop
		stopID,     // final filter
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop visits: %w", err)
	}
	defer rows.Close()

	var visits []StopVisit
	for rows.Next() {
		var v StopVisit
		if err := rows.Scan(
			&v.TripID,
			&v.StopID,
			&v.ServiceID,
			&v.RouteShortName,
			&v.RouteLongName,
			&v.ArrivalSeconds,
			&v.DepartureSeconds,
			&v.PreviousStopName,
			&v.NextStopName,
			&v.HasPrevious,
			&v.HasNext,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stop visit: %w", err)
		}
		visits = append(visits, v)
	}

	return visits, rows.Err()
}

// GetWaveEvents returns the wave events at stopID for serviceDay: a departure
// for every call with a following stop and an arrival for every call with a
// preceding stop, ordered by time.
func (q *Queries) GetWaveEvents(ctx context.Context, stopID string, serviceDay time.Time) ([]waves.WaveEvent, error) {
	visits, err := q.GetStopVisits(ctx, stopID, serviceDay)
	if err != nil {
		return nil, err
	}

	base := ServiceDayStart(serviceDay, q.loc)
	events := make([]waves.WaveEvent, 0, 2*len(visits))
	for _, v := range visits {
		if v.HasPrevious {
			events = append(events, waves.WaveEvent{
				Time:         base.Add(time.Duration(v.ArrivalSeconds) * time.Second),
				IsArrival:    true,
				RouteNumber:  v.RouteShortName,
				RouteName:    v.RouteLongName,
				NeighborStop: v.PreviousStopName,
				Period:       v.ServiceID,
				TripID:       v.TripID,
				StopID:       v.StopID,
			})
		}
		if v.HasNext {
			events = append(events, waves.WaveEvent{
				Time:         base.Add(time.Duration(v.DepartureSeconds) * time.Second),
				IsArrival:    false,
				RouteNumber:  v.RouteShortName,
				RouteName:    v.RouteLongName,
				NeighborStop: v.NextStopName,
				Period:       v.ServiceID,
				TripID:       v.TripID,
				StopID:       v.StopID,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
	return events, nil
}

// ServiceDayStart returns the GTFS reference instant of a service day:
// noon minus twelve hours, which differs from midnight on DST change days.
func ServiceDayStart(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc).Add(-12 * time.Hour)
}

// FormatTimeHHMMSS converts seconds after service-day midnight to HH:MM:SS
func FormatTimeHHMMSS(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
