package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/internal/protocol"
)

// AlertDispatcher publishes one run's alert batch to the alerts topic,
// where the notifier service picks it up for email delivery. The batch is
// keyed by the highest-severity point so repeats for a hotspot land on the
// same partition.
type AlertDispatcher struct {
	producer *Producer
}

func NewAlertDispatcher(producer *Producer) *AlertDispatcher {
	return &AlertDispatcher{producer: producer}
}

// Dispatch encodes and publishes the batch.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alerts []*database.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	batch := &protocol.AlertBatch{
		BatchID:     uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}
	for _, a := range alerts {
		batch.Alerts = append(batch.Alerts, protocol.AlertPayload{
			ID:        a.ID,
			PointName: a.PointName,
			AlertType: a.AlertType,
			Severity:  a.Severity,
			Message:   a.Message,
			Timestamp: a.Timestamp,
		})
	}

	data, err := protocol.EncodeAlertBatch(batch)
	if err != nil {
		return err
	}

	if err := d.producer.Publish(ctx, alerts[0].PointName, data); err != nil {
		return fmt.Errorf("failed to publish alert batch: %w", err)
	}
	return nil
}
