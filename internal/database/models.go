package database

import (
	"time"
)

// Sample is one congestion measurement for a monitor point. Rows are
// append-only and never mutated after insertion. Speeds the upstream did
// not report are nil.
type Sample struct {
	ID            int64
	PointName     string
	Latitude      float64
	Longitude     float64
	Timestamp     time.Time
	CurrentSpeed  *float64
	FreeFlowSpeed *float64
	Incidents     int
}

// Alert types raised by the alert engine.
const (
	AlertCongestion     = "CONGESTION"
	AlertIncidents      = "INCIDENTS"
	AlertSpeedReduction = "SPEED_REDUCTION"
)

// Alert is one threshold breach for a monitor point. Rows are append-only
// except for the notified flag, which flips once after delivery.
type Alert struct {
	ID        int64
	PointName string
	AlertType string
	Severity  int
	Message   string
	Timestamp time.Time
	Notified  bool
}
