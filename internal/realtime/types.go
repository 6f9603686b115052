package realtime

// DelayKey looks up a delay by (trip_id, stop_id)
type DelayKey struct {
	TripID string
	StopID string
}

// Delay is the realtime state of one scheduled stop time
type Delay struct {
	ArrivalDelay   *int // seconds, nil when unknown
	DepartureDelay *int
	Skipped        bool
}

// scheduleRelationshipNames maps the StopTimeUpdate enum for logging
var scheduleRelationshipNames = map[int32]string{
	0: "SCHEDULED",
	1: "SKIPPED",
	2: "NO_DATA",
	3: "UNSCHEDULED",
}
