package gtfs

// Stop is a static reference from the schedule data, read-only to the core.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Trip is one scheduled vehicle run through an ordered stop sequence.
type Trip struct {
	ID      string
	RouteID string
}

// StopTime pins a stop into a trip's sequence.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence int
}

// Route groups trips under a public-facing name.
type Route struct {
	ID       string
	LongName string
}
