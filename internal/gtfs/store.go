package gtfs

import (
	"sort"
	"strings"
	"sync"
)

// Store provides thread-safe, indexed access to static schedule data. It is
// loaded once at startup and read-only afterward.
type Store struct {
	mu sync.RWMutex

	stops  map[string]*Stop
	trips  map[string]*Trip
	routes map[string]*Route

	// Indexes for O(1) lookups instead of per-query table scans
	stopIDsByName   map[string][]string     // map[lowercased stop name][]stopID
	stopTimesByTrip map[string][]*StopTime  // sorted by stop_sequence
	tripIDsByStop   map[string]map[string]bool // map[stopID]set of tripIDs
}

// NewStore creates an empty schedule store
func NewStore() *Store {
	return &Store{
		stops:           make(map[string]*Stop),
		trips:           make(map[string]*Trip),
		routes:          make(map[string]*Route),
		stopIDsByName:   make(map[string][]string),
		stopTimesByTrip: make(map[string][]*StopTime),
		tripIDsByStop:   make(map[string]map[string]bool),
	}
}

// AddStop adds a stop and indexes it by lowercased name
func (s *Store) AddStop(stop *Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops[stop.ID] = stop
	name := strings.ToLower(strings.TrimSpace(stop.Name))
	s.stopIDsByName[name] = append(s.stopIDsByName[name], stop.ID)
}

// AddTrip adds a trip
func (s *Store) AddTrip(trip *Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = trip
}

// AddRoute adds a route
func (s *Store) AddRoute(route *Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.ID] = route
}

// AddStopTime adds a stop-time entry
func (s *Store) AddStopTime(st *StopTime) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimesByTrip[st.TripID] = append(s.stopTimesByTrip[st.TripID], st)
	if s.tripIDsByStop[st.StopID] == nil {
		s.tripIDsByStop[st.StopID] = make(map[string]bool)
	}
	s.tripIDsByStop[st.StopID][st.TripID] = true
}

// BuildIndexes sorts each trip's stop times by sequence. Call once after
// loading completes.
func (s *Store) BuildIndexes() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tripID := range s.stopTimesByTrip {
		sts := s.stopTimesByTrip[tripID]
		sort.Slice(sts, func(i, j int) bool {
			return sts[i].StopSequence < sts[j].StopSequence
		})
	}
}

// Stop returns a stop by ID
func (s *Store) Stop(stopID string) (*Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stop, ok := s.stops[stopID]
	return stop, ok
}

// StopIDsByName returns the stop IDs matching a name, case-insensitively
func (s *Store) StopIDsByName(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopIDsByName[strings.ToLower(strings.TrimSpace(name))]
}

// TripIDsForStops returns the IDs of trips whose sequence visits any of the
// given stops, in sorted order for deterministic scans
func (s *Store) TripIDsForStops(stopIDs []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, stopID := range stopIDs {
		for tripID := range s.tripIDsByStop[stopID] {
			seen[tripID] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for tripID := range seen {
		ids = append(ids, tripID)
	}
	sort.Strings(ids)
	return ids
}

// StopTimes returns a trip's stop times ordered by stop_sequence
func (s *Store) StopTimes(tripID string) []*StopTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopTimesByTrip[tripID]
}

// RouteName returns the public-facing name of a trip's route, falling back
// to the route ID when no long name is defined
func (s *Store) RouteName(tripID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return ""
	}
	if route, ok := s.routes[trip.RouteID]; ok && route.LongName != "" {
		return route.LongName
	}
	return trip.RouteID
}

// StopCount returns the number of loaded stops
func (s *Store) StopCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stops)
}

// TripCount returns the number of loaded trips
func (s *Store) TripCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trips)
}
