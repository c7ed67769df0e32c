package main

import (
	"context"
	"fmt"
	"log"

	"github.com/smukkama/traffic-monitor/internal/alerting"
	"github.com/smukkama/traffic-monitor/internal/database"
	"github.com/smukkama/traffic-monitor/internal/notification"
	"github.com/smukkama/traffic-monitor/internal/queue"
	"github.com/smukkama/traffic-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// With brokers configured the batch goes through Kafka to the notifier
	// service; otherwise it is emailed directly.
	var dispatcher alerting.Dispatcher
	if cfg.Kafka.Configured() {
		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
		defer producer.Close()
		dispatcher = queue.NewAlertDispatcher(producer)
		fmt.Println("Dispatching alerts via Kafka")
	} else {
		dispatcher = notification.NewEmailNotifier(&cfg.SMTP)
		fmt.Println("Dispatching alerts via email")
	}

	ctx := context.Background()

	// Retry alerts persisted by earlier runs whose delivery failed.
	leftover, err := db.UnnotifiedAlerts()
	if err != nil {
		log.Fatalf("Failed to load undelivered alerts: %v", err)
	}
	if len(leftover) > 0 {
		fmt.Printf("Redelivering %d undelivered alert(s)\n", len(leftover))
		if err := dispatcher.Dispatch(ctx, leftover); err != nil {
			fmt.Printf("Redelivery failed: %v\n", err)
		} else {
			for _, a := range leftover {
				if err := db.MarkAlertNotified(a.ID); err != nil {
					fmt.Printf("Failed to mark alert %d notified: %v\n", a.ID, err)
				}
			}
		}
	}

	engine := alerting.NewEngine(db, db, dispatcher, cfg.Alerts)

	alerts, err := engine.Check(ctx)
	if err != nil {
		log.Fatalf("Alert check failed: %v", err)
	}

	for _, alert := range alerts {
		fmt.Printf("[%s] severity %d: %s\n", alert.AlertType, alert.Severity, alert.Message)
	}
	fmt.Printf("%d alert(s) raised\n", len(alerts))
}
