package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Loader reads static schedule tables from a directory of GTFS text files.
type Loader struct {
	dir   string
	store *Store
}

// NewLoader creates a loader for the given GTFS directory
func NewLoader(dir string, store *Store) *Loader {
	return &Loader{
		dir:   dir,
		store: store,
	}
}

// Load reads stops, routes, trips, and stop_times into the store. Missing
// or unreadable files are fatal: the route evaluator cannot run without a
// complete schedule.
func (l *Loader) Load() error {
	log.Println("Loading GTFS schedule data from", l.dir)

	if err := l.processStops(); err != nil {
		return fmt.Errorf("failed to process stops: %w", err)
	}
	if err := l.processRoutes(); err != nil {
		return fmt.Errorf("failed to process routes: %w", err)
	}
	if err := l.processTrips(); err != nil {
		return fmt.Errorf("failed to process trips: %w", err)
	}
	if err := l.processStopTimes(); err != nil {
		return fmt.Errorf("failed to process stop times: %w", err)
	}

	l.store.BuildIndexes()

	log.Printf("GTFS load complete: %d stops, %d trips", l.store.StopCount(), l.store.TripCount())
	return nil
}

func (l *Loader) processStops() error {
	records, err := l.readCSV("stops.txt")
	if err != nil {
		return err
	}

	for _, record := range records {
		stop := &Stop{
			ID:   getString(record, "stop_id"),
			Name: getString(record, "stop_name"),
			Lat:  getFloat(record, "stop_lat"),
			Lon:  getFloat(record, "stop_lon"),
		}
		if stop.ID == "" {
			continue
		}
		l.store.AddStop(stop)
	}
	return nil
}

func (l *Loader) processRoutes() error {
	records, err := l.readCSV("routes.txt")
	if err != nil {
		return err
	}

	for _, record := range records {
		route := &Route{
			ID:       getString(record, "route_id"),
			LongName: getString(record, "route_long_name"),
		}
		if route.ID == "" {
			continue
		}
		l.store.AddRoute(route)
	}
	return nil
}

func (l *Loader) processTrips() error {
	records, err := l.readCSV("trips.txt")
	if err != nil {
		return err
	}

	for _, record := range records {
		trip := &Trip{
			ID:      getString(record, "trip_id"),
			RouteID: getString(record, "route_id"),
		}
		if trip.ID == "" {
			continue
		}
		l.store.AddTrip(trip)
	}
	return nil
}

func (l *Loader) processStopTimes() error {
	records, err := l.readCSV("stop_times.txt")
	if err != nil {
		return err
	}

	for _, record := range records {
		st := &StopTime{
			TripID:       getString(record, "trip_id"),
			StopID:       getString(record, "stop_id"),
			StopSequence: getInt(record, "stop_sequence"),
		}
		if st.TripID == "" || st.StopID == "" {
			continue
		}
		l.store.AddStopTime(st)
	}
	return nil
}

// readCSV reads a file into a slice of header-keyed records
func (l *Loader) readCSV(name string) ([]map[string]string, error) {
	f, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		record := make(map[string]string, len(header))
		for i, field := range header {
			if i < len(row) {
				record[field] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func getString(record map[string]string, field string) string {
	return record[field]
}

func getInt(record map[string]string, field string) int {
	v, err := strconv.Atoi(record[field])
	if err != nil {
		return 0
	}
	return v
}

func getFloat(record map[string]string, field string) float64 {
	v, err := strconv.ParseFloat(record[field], 64)
	if err != nil {
		return 0
	}
	return v
}
