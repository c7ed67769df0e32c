package alerting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/smukkama/traffic-monitor/internal/congestion"
	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

// SampleSource provides the rolling window of recent samples.
type SampleSource interface {
	SamplesSince(since time.Time) ([]*database.Sample, error)
}

// AlertStore persists alerts and their delivery state.
type AlertStore interface {
	InsertAlert(a *database.Alert) error
	MarkAlertNotified(alertID int64) error
}

// Dispatcher delivers one batched notification for a run's alerts.
type Dispatcher interface {
	Dispatch(ctx context.Context, alerts []*database.Alert) error
}

// Engine evaluates the last hour of samples against the three independent
// threshold rules and raises alerts for every breach. Evaluation is
// stateless; results are only as fresh as the last collection run.
type Engine struct {
	samples    SampleSource
	store      AlertStore
	dispatcher Dispatcher
	thresholds config.AlertConfig
}

func NewEngine(samples SampleSource, store AlertStore, dispatcher Dispatcher, thresholds config.AlertConfig) *Engine {
	return &Engine{
		samples:    samples,
		store:      store,
		dispatcher: dispatcher,
		thresholds: thresholds,
	}
}

// Check evaluates recent samples, persists every triggered alert, and, if a
// dispatcher is configured, sends one batched notification sorted by
// descending severity. On successful dispatch each record's notified flag
// is set. Returns the newly raised alerts.
func (e *Engine) Check(ctx context.Context) ([]*database.Alert, error) {
	recent, err := e.samples.SamplesSince(time.Now().UTC().Add(-1 * time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent samples: %w", err)
	}
	if len(recent) == 0 {
		fmt.Println("No recent data available for alert analysis")
		return nil, nil
	}

	now := time.Now().UTC()
	var alerts []*database.Alert
	for _, sample := range recent {
		alerts = append(alerts, e.evaluateSample(sample, now)...)
	}
	if len(alerts) == 0 {
		fmt.Println("No traffic alerts detected")
		return nil, nil
	}

	for _, alert := range alerts {
		if err := e.store.InsertAlert(alert); err != nil {
			return nil, fmt.Errorf("failed to persist alert: %w", err)
		}
	}
	fmt.Printf("Saved %d alerts\n", len(alerts))

	if e.dispatcher != nil {
		sorted := make([]*database.Alert, len(alerts))
		copy(sorted, alerts)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Severity > sorted[j].Severity
		})

		if err := e.dispatcher.Dispatch(ctx, sorted); err != nil {
			fmt.Printf("Alert dispatch failed, records stay unnotified: %v\n", err)
			return alerts, nil
		}
		for _, alert := range alerts {
			if err := e.store.MarkAlertNotified(alert.ID); err != nil {
				fmt.Printf("Failed to mark alert %d notified: %v\n", alert.ID, err)
				continue
			}
			alert.Notified = true
		}
	}

	return alerts, nil
}

// evaluateSample applies the three trigger rules to one sample. The rules
// are independent and non-exclusive: a single point may raise several
// alert types in one pass.
func (e *Engine) evaluateSample(sample *database.Sample, now time.Time) []*database.Alert {
	var alerts []*database.Alert

	speeds := congestion.Speeds{}
	if sample.CurrentSpeed != nil && sample.FreeFlowSpeed != nil {
		speeds = congestion.Speeds{Current: *sample.CurrentSpeed, FreeFlow: *sample.FreeFlowSpeed}
	}

	if speeds.Valid() {
		index := congestion.Index(speeds)
		if index >= e.thresholds.CongestionIndex {
			alerts = append(alerts, &database.Alert{
				PointName: sample.PointName,
				AlertType: database.AlertCongestion,
				Severity:  clampSeverity(int(index / 10)),
				Message:   fmt.Sprintf("Severe congestion detected at %s. Traffic index: %.1f", sample.PointName, index),
				Timestamp: now,
			})
		}

		if ratio := speeds.Ratio(); ratio <= e.thresholds.SpeedRatio {
			alerts = append(alerts, &database.Alert{
				PointName: sample.PointName,
				AlertType: database.AlertSpeedReduction,
				Severity:  clampSeverity(int((1 - ratio) * 10)),
				Message: fmt.Sprintf("Significant speed reduction at %s. %.1f%% below free flow speed",
					sample.PointName, 100*(1-ratio)),
				Timestamp: now,
			})
		}
	}

	if sample.Incidents >= e.thresholds.IncidentCount {
		alerts = append(alerts, &database.Alert{
			PointName: sample.PointName,
			AlertType: database.AlertIncidents,
			Severity:  clampSeverity(sample.Incidents),
			Message:   fmt.Sprintf("%d traffic incidents reported near %s", sample.Incidents, sample.PointName),
			Timestamp: now,
		})
	}

	return alerts
}

// clampSeverity keeps severity on the 1..10 scale.
func clampSeverity(s int) int {
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}
