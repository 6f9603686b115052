package gtfs

// Route types kept by FilterRouteType for ferry feeds
const (
	RouteTypeFerry = 4
	// RouteTypeWaterTransport is the extended (HVT) code used by Swiss feeds
	RouteTypeWaterTransport = 1000
)

// Calendar exception types from calendar_dates.txt
const (
	ServiceAdded   = 1
	ServiceRemoved = 2
)

// Data represents all parsed GTFS data
type Data struct {
	Agency        []Agency
	Routes        []Route
	Stops         []Stop
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	AgencyID       string
	RouteShortName string
	RouteLongName  string
	RouteType      int
	RouteColor     string
	RouteTextColor string
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopCode      string
	StopName      string
	StopLat       float64
	StopLon       float64
	LocationType  int
	ParentStation string
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID      string
	ServiceID    string
	TripID       string
	TripHeadsign string
	DirectionID  int
}

// StopTime represents a stop time from stop_times.txt.
// Times are kept as HH:MM:SS text; hours may exceed 23.
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// Agency represents an agency from agency.txt
type Agency struct {
	AgencyID   string
	AgencyName string
	AgencyURL  string
}

// Calendar is a weekly service pattern from calendar.txt.
// Dates use the GTFS YYYYMMDD form.
type Calendar struct {
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

// CalendarDate is a single-day exception from calendar_dates.txt
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int
}
