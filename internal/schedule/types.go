package schedule

// StopVisit is one scheduled call of a trip at a stop, with its neighbours
// on the same trip
type StopVisit struct {
	TripID           string
	StopID           string
	ServiceID        string
	RouteShortName   string
	RouteLongName    string
	ArrivalSeconds   int // seconds after service-day midnight; may exceed 24h
	DepartureSeconds int
	PreviousStopName string
	NextStopName     string
	HasPrevious      bool
	HasNext          bool
}

// GTFSDateLayout is the YYYYMMDD form used by calendar tables
const GTFSDateLayout = "20060102"
