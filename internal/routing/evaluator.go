package routing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/smukkama/traffic-monitor/internal/congestion"
	"github.com/smukkama/traffic-monitor/internal/gtfs"
)

// StopETA is the estimated arrival at one stop of an evaluated trip. ETA is
// empty when the stop had no congestion data.
type StopETA struct {
	StopID     string
	StopName   string
	ETA        time.Time
	HasETA     bool
	Congestion *float64
}

// Display renders the ETA for output, "N/A" when no data was available.
func (s StopETA) Display() string {
	if !s.HasETA {
		return "N/A"
	}
	return s.ETA.Format("15:04")
}

// TripEvaluation scores one candidate trip by live congestion along its
// stop sequence. Recomputed per request, never persisted.
type TripEvaluation struct {
	TripID          string
	RouteName       string
	StopCount       int
	AvgCongestion   float64
	EstDelayMinutes float64
	PerStopETA      []StopETA
	SampleCount     int
}

// Evaluator fuses static schedule topology with live point congestion to
// rank otherwise-equivalent transit trips by expected delay.
type Evaluator struct {
	store    *gtfs.Store
	resolver *congestion.Resolver
}

func NewEvaluator(store *gtfs.Store, resolver *congestion.Resolver) *Evaluator {
	return &Evaluator{
		store:    store,
		resolver: resolver,
	}
}

// FindTrips returns the IDs of trips whose stop sequence visits a stop
// named source strictly before one named destination. Name matching is
// case-insensitive. An unresolved name or no qualifying trip is a valid
// empty result, not an error.
func (e *Evaluator) FindTrips(sourceName, destName string) []string {
	sourceIDs := e.store.StopIDsByName(sourceName)
	destIDs := e.store.StopIDsByName(destName)
	if len(sourceIDs) == 0 || len(destIDs) == 0 {
		return nil
	}

	sourceSet := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		sourceSet[id] = true
	}
	destSet := make(map[string]bool, len(destIDs))
	for _, id := range destIDs {
		destSet[id] = true
	}

	var qualifying []string
	for _, tripID := range e.store.TripIDsForStops(sourceIDs) {
		firstSource, firstDest := -1, -1
		for i, st := range e.store.StopTimes(tripID) {
			if firstSource < 0 && sourceSet[st.StopID] {
				firstSource = i
			}
			if firstDest < 0 && destSet[st.StopID] && firstSource >= 0 && i > firstSource {
				firstDest = i
				break
			}
		}
		if firstSource >= 0 && firstDest > firstSource {
			qualifying = append(qualifying, tripID)
		}
	}
	return qualifying
}

// Evaluate scores each trip by average congestion and total estimated
// delay, computing per-stop ETAs on a running clock. Stops without valid
// speed data are excluded from aggregates and do not advance the clock;
// trips with no usable stops at all are dropped. Results are sorted
// ascending by estimated delay, ties keeping input order.
func (e *Evaluator) Evaluate(ctx context.Context, tripIDs []string) []TripEvaluation {
	now := time.Now()

	var results []TripEvaluation
	for _, tripID := range tripIDs {
		eval, ok := e.evaluateTrip(ctx, tripID, now)
		if ok {
			results = append(results, eval)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].EstDelayMinutes < results[j].EstDelayMinutes
	})
	return results
}

func (e *Evaluator) evaluateTrip(ctx context.Context, tripID string, start time.Time) (TripEvaluation, bool) {
	stopTimes := e.store.StopTimes(tripID)
	if len(stopTimes) == 0 {
		return TripEvaluation{}, false
	}

	eval := TripEvaluation{
		TripID:    tripID,
		RouteName: e.store.RouteName(tripID),
		StopCount: len(stopTimes),
	}

	clock := start
	var congestionSum float64

	for _, st := range stopTimes {
		eta := StopETA{StopID: st.StopID}

		stop, ok := e.store.Stop(st.StopID)
		if !ok {
			eval.PerStopETA = append(eval.PerStopETA, eta)
			continue
		}
		eta.StopName = stop.Name

		speeds, err := e.resolver.Resolve(ctx, stop.Lat, stop.Lon)
		if err != nil || !speeds.Valid() {
			if err != nil {
				fmt.Printf("No congestion data for stop %s: %v\n", stop.Name, err)
			}
			// No data: excluded from aggregation, clock does not advance.
			eval.PerStopETA = append(eval.PerStopETA, eta)
			continue
		}

		index := congestion.Index(speeds)
		delay := congestion.DelayMinutes(speeds)

		congestionSum += index
		eval.SampleCount++
		eval.EstDelayMinutes += delay

		clock = clock.Add(time.Duration(delay * float64(time.Minute)))
		eta.ETA = clock
		eta.HasETA = true
		eta.Congestion = &index
		eval.PerStopETA = append(eval.PerStopETA, eta)
	}

	if eval.SampleCount == 0 {
		return TripEvaluation{}, false
	}
	eval.AvgCongestion = congestionSum / float64(eval.SampleCount)
	return eval, true
}
