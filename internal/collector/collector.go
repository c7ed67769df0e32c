package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smukkama/traffic-monitor/internal/congestion"
	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/internal/upstream"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

// SampleWriter persists one congestion sample.
type SampleWriter interface {
	InsertSample(s *database.Sample) error
}

// IncidentFetcher counts reported incidents around a coordinate.
type IncidentFetcher interface {
	FetchIncidentCount(ctx context.Context, lat, lon, radiusKm float64) (int, error)
}

// RunSummary reports the outcome of one collection run.
type RunSummary struct {
	RunID     string
	Succeeded int
	Total     int
	Duration  time.Duration
}

// Collector polls the monitored-point set once per invocation and persists
// a sample per successfully fetched point. It holds no state between runs.
type Collector struct {
	resolver  *congestion.Resolver
	incidents IncidentFetcher
	store     SampleWriter
	cfg       config.CollectorConfig
}

func New(resolver *congestion.Resolver, incidents IncidentFetcher, store SampleWriter, cfg config.CollectorConfig) *Collector {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Collector{
		resolver:  resolver,
		incidents: incidents,
		store:     store,
		cfg:       cfg,
	}
}

// CollectOnce polls every point. A failure on one point never aborts the
// run; failures are logged and counted and the loop continues. The run can
// be cancelled between points, never mid-sample.
func (c *Collector) CollectOnce(ctx context.Context, points []config.MonitorPoint) RunSummary {
	start := time.Now()
	summary := RunSummary{
		RunID: uuid.NewString(),
		Total: len(points),
	}

	fmt.Printf("Starting collection run %s (%d points)\n", summary.RunID, len(points))

	var mu sync.Mutex
	work := func(ctx context.Context, pts []config.MonitorPoint) {
		for i, point := range pts {
			if ctx.Err() != nil {
				return
			}
			if i > 0 && c.cfg.InterCallWait > 0 {
				// Pacing between upstream calls, not a correctness need.
				time.Sleep(c.cfg.InterCallWait)
			}

			if err := c.collectPoint(ctx, point); err != nil {
				fmt.Printf("Failed to collect %s: %v\n", point.Name, err)
				continue
			}

			mu.Lock()
			summary.Succeeded++
			mu.Unlock()
		}
	}

	if c.cfg.Workers <= 1 || len(points) <= 1 {
		work(ctx, points)
	} else {
		c.runPool(ctx, points, work)
	}

	summary.Duration = time.Since(start)
	fmt.Printf("Collection run %s complete: %d/%d points in %.2fs\n",
		summary.RunID, summary.Succeeded, summary.Total, summary.Duration.Seconds())
	return summary
}

// runPool fans the points out over a bounded worker pool. Each worker
// paces its own upstream calls, so one point's retries never block
// another's progress.
func (c *Collector) runPool(ctx context.Context, points []config.MonitorPoint, work func(context.Context, []config.MonitorPoint)) {
	workers := c.cfg.Workers
	if workers > len(points) {
		workers = len(points)
	}

	pointCh := make(chan config.MonitorPoint)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first := true
			for point := range pointCh {
				if ctx.Err() != nil {
					continue
				}
				if !first && c.cfg.InterCallWait > 0 {
					time.Sleep(c.cfg.InterCallWait)
				}
				first = false
				work(ctx, []config.MonitorPoint{point})
			}
		}()
	}

	for _, point := range points {
		pointCh <- point
	}
	close(pointCh)
	wg.Wait()
}

// collectPoint fetches flow (through the shared cache) and incidents for
// one point and persists the sample. The sample is only written after a
// full, valid fetch.
func (c *Collector) collectPoint(ctx context.Context, point config.MonitorPoint) error {
	speeds, err := c.resolver.Resolve(ctx, point.Lat, point.Lon)
	if err != nil {
		if upstream.IsAuth(err) {
			return fmt.Errorf("credential rejected: %w", err)
		}
		return err
	}

	// Incident lookup failures degrade to a zero count rather than losing
	// the speed sample.
	incidents := 0
	if c.incidents != nil {
		n, err := c.incidents.FetchIncidentCount(ctx, point.Lat, point.Lon, c.cfg.IncidentKM)
		if err != nil {
			fmt.Printf("No incident data for %s: %v\n", point.Name, err)
		} else {
			incidents = n
		}
	}

	sample := &database.Sample{
		PointName: point.Name,
		Latitude:  point.Lat,
		Longitude: point.Lon,
		Timestamp: time.Now().UTC(),
		Incidents: incidents,
	}
	if speeds.Valid() {
		sample.CurrentSpeed = &speeds.Current
		sample.FreeFlowSpeed = &speeds.FreeFlow
	}

	if err := c.store.InsertSample(sample); err != nil {
		return fmt.Errorf("failed to persist sample: %w", err)
	}
	return nil
}
