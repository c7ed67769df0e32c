package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

type fakeSamples struct {
	samples []*database.Sample
	err     error
}

func (f *fakeSamples) SamplesSince(since time.Time) ([]*database.Sample, error) {
	return f.samples, f.err
}

type fakeStore struct {
	inserted []*database.Alert
	notified []int64
	nextID   int64
}

func (f *fakeStore) InsertAlert(a *database.Alert) error {
	f.nextID++
	a.ID = f.nextID
	f.inserted = append(f.inserted, a)
	return nil
}

func (f *fakeStore) MarkAlertNotified(alertID int64) error {
	f.notified = append(f.notified, alertID)
	return nil
}

type fakeDispatcher struct {
	batches [][]*database.Alert
	err     error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, alerts []*database.Alert) error {
	if f.err != nil {
		return f.err
	}
	batch := make([]*database.Alert, len(alerts))
	copy(batch, alerts)
	f.batches = append(f.batches, batch)
	return nil
}

func defaultThresholds() config.AlertConfig {
	return config.AlertConfig{
		CongestionIndex: 80,
		IncidentCount:   3,
		SpeedRatio:      0.4,
	}
}

func speedSample(name string, current, freeFlow float64, incidents int) *database.Sample {
	return &database.Sample{
		PointName:     name,
		CurrentSpeed:  &current,
		FreeFlowSpeed: &freeFlow,
		Incidents:     incidents,
		Timestamp:     time.Now().UTC(),
	}
}

func TestCheckSevereCongestion(t *testing.T) {
	// Ratio 0.2: index 80 trips the congestion rule, ratio trips the
	// speed-reduction rule, both at severity 8
	samples := &fakeSamples{samples: []*database.Sample{speedSample("Silk Board", 10, 50, 0)}}
	store := &fakeStore{}
	engine := NewEngine(samples, store, nil, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}

	byType := make(map[string]*database.Alert)
	for _, a := range alerts {
		byType[a.AlertType] = a
	}

	cong, ok := byType[database.AlertCongestion]
	if !ok {
		t.Fatal("no CONGESTION alert raised")
	}
	if cong.Severity != 8 {
		t.Errorf("congestion severity = %d, want 8", cong.Severity)
	}
	if cong.Message != "Severe congestion detected at Silk Board. Traffic index: 80.0" {
		t.Errorf("congestion message = %q", cong.Message)
	}

	speed, ok := byType[database.AlertSpeedReduction]
	if !ok {
		t.Fatal("no SPEED_REDUCTION alert raised")
	}
	if speed.Severity != 8 {
		t.Errorf("speed-reduction severity = %d, want 8", speed.Severity)
	}
	if speed.Message != "Significant speed reduction at Silk Board. 80.0% below free flow speed" {
		t.Errorf("speed-reduction message = %q", speed.Message)
	}

	if len(store.inserted) != 2 {
		t.Errorf("persisted %d alerts, want 2", len(store.inserted))
	}
}

func TestCheckHealthyTraffic(t *testing.T) {
	samples := &fakeSamples{samples: []*database.Sample{speedSample("MG Road", 45, 50, 0)}}
	store := &fakeStore{}
	engine := NewEngine(samples, store, nil, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("healthy traffic raised %d alerts", len(alerts))
	}
	if len(store.inserted) != 0 {
		t.Errorf("healthy traffic persisted %d alerts", len(store.inserted))
	}
}

func TestCheckIncidents(t *testing.T) {
	samples := &fakeSamples{samples: []*database.Sample{speedSample("Hebbal", 45, 50, 5)}}
	store := &fakeStore{}
	engine := NewEngine(samples, store, nil, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.AlertType != database.AlertIncidents {
		t.Errorf("alert type = %s", a.AlertType)
	}
	if a.Severity != 5 {
		t.Errorf("severity = %d, want 5", a.Severity)
	}
	if a.Message != "5 traffic incidents reported near Hebbal" {
		t.Errorf("message = %q", a.Message)
	}
}

func TestCheckMissingSpeedsOnlyIncidentRuleApplies(t *testing.T) {
	sample := &database.Sample{PointName: "Marathahalli", Incidents: 4, Timestamp: time.Now().UTC()}
	samples := &fakeSamples{samples: []*database.Sample{sample}}
	store := &fakeStore{}
	engine := NewEngine(samples, store, nil, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].AlertType != database.AlertIncidents {
		t.Errorf("got %d alerts, want single INCIDENTS", len(alerts))
	}
}

func TestCheckSeverityClamped(t *testing.T) {
	samples := &fakeSamples{samples: []*database.Sample{speedSample("Silk Board", 45, 50, 25)}}
	store := &fakeStore{}
	engine := NewEngine(samples, store, nil, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Severity != 10 {
		t.Errorf("severity = %d, want clamped 10", alerts[0].Severity)
	}
}

func TestCheckDispatchOrderAndNotified(t *testing.T) {
	// Two points with different severities: the batch must arrive in
	// descending severity order and every record gets its flag set
	samples := &fakeSamples{samples: []*database.Sample{
		speedSample("MG Road", 45, 50, 3),   // INCIDENTS, severity 3
		speedSample("Silk Board", 5, 50, 0), // CONGESTION sev 9 + SPEED_REDUCTION sev 9
	}}
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}
	engine := NewEngine(samples, store, dispatcher, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts, want 3", len(alerts))
	}

	if len(dispatcher.batches) != 1 {
		t.Fatalf("dispatched %d batches, want 1", len(dispatcher.batches))
	}
	batch := dispatcher.batches[0]
	for i := 1; i < len(batch); i++ {
		if batch[i].Severity > batch[i-1].Severity {
			t.Errorf("batch not in descending severity: %d before %d", batch[i-1].Severity, batch[i].Severity)
		}
	}
	if batch[len(batch)-1].AlertType != database.AlertIncidents {
		t.Errorf("lowest severity alert is %s, want INCIDENTS last", batch[len(batch)-1].AlertType)
	}

	if len(store.notified) != 3 {
		t.Errorf("marked %d alerts notified, want 3", len(store.notified))
	}
	for _, a := range alerts {
		if !a.Notified {
			t.Errorf("alert %d not flagged notified", a.ID)
		}
	}
}

func TestCheckDispatchFailureLeavesUnnotified(t *testing.T) {
	samples := &fakeSamples{samples: []*database.Sample{speedSample("Silk Board", 5, 50, 0)}}
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{err: errors.New("broker down")}
	engine := NewEngine(samples, store, dispatcher, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("dispatch failure must not fail the run: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	if len(store.notified) != 0 {
		t.Errorf("marked %d alerts notified after failed dispatch", len(store.notified))
	}
	for _, a := range alerts {
		if a.Notified {
			t.Error("alert flagged notified after failed dispatch")
		}
	}
}

func TestCheckNoRecentData(t *testing.T) {
	engine := NewEngine(&fakeSamples{}, &fakeStore{}, nil, defaultThresholds())

	alerts, err := engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if alerts != nil {
		t.Errorf("empty window raised alerts: %v", alerts)
	}
}

func TestCheckSampleSourceError(t *testing.T) {
	engine := NewEngine(&fakeSamples{err: errors.New("db down")}, &fakeStore{}, nil, defaultThresholds())

	if _, err := engine.Check(context.Background()); err == nil {
		t.Fatal("expected error when sample source fails")
	}
}
