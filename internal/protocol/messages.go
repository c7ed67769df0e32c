package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertPayload is one alert as carried on the wire.
type AlertPayload struct {
	ID        int64     `json:"id"`
	PointName string    `json:"point_name"`
	AlertType string    `json:"alert_type"`
	Severity  int       `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertBatch is the single batched notification produced by one alert
// engine run, already sorted by descending severity.
type AlertBatch struct {
	BatchID     string         `json:"batch_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Alerts      []AlertPayload `json:"alerts"`
}

// EncodeAlertBatch serializes an alert batch for the queue.
func EncodeAlertBatch(batch *AlertBatch) ([]byte, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert batch: %w", err)
	}
	return data, nil
}

// DecodeAlertBatch deserializes an alert batch from the queue.
func DecodeAlertBatch(data []byte) (*AlertBatch, error) {
	var batch AlertBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode alert batch: %w", err)
	}
	return &batch, nil
}
