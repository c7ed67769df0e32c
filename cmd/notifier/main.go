package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/internal/notification"
	"github.com/smukkama/traffic-monitor/internal/protocol"
	"github.com/smukkama/traffic-monitor/internal/queue"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Kafka.Configured() {
		log.Fatal("KAFKA_BROKERS is not set")
	}

	fmt.Println("Starting Notification Service...")

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "notifier-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	notifier := notification.NewEmailNotifier(&cfg.SMTP)

	ctx := context.Background()

	fmt.Println("\n✓ Notification Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	go func() {
		for {
			msg, err := consumer.Consume(ctx)
			if err != nil {
				log.Printf("Failed to consume message: %v\n", err)
				continue
			}

			batch, err := protocol.DecodeAlertBatch(msg.Value)
			if err != nil {
				log.Printf("Failed to decode alert batch: %v\n", err)
				consumer.Commit(ctx, msg)
				continue
			}

			alerts := make([]*database.Alert, 0, len(batch.Alerts))
			for _, p := range batch.Alerts {
				alerts = append(alerts, &database.Alert{
					ID:        p.ID,
					PointName: p.PointName,
					AlertType: p.AlertType,
					Severity:  p.Severity,
					Message:   p.Message,
					Timestamp: p.Timestamp,
				})
			}

			if err := notifier.Dispatch(ctx, alerts); err != nil {
				// Leave the offset uncommitted so the batch is retried.
				log.Printf("Failed to send alert email: %v\n", err)
				continue
			}
			fmt.Printf("Delivered batch %s (%d alerts)\n", batch.BatchID, len(batch.Alerts))

			if err := consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
