package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// InsertSample appends one congestion measurement
func (db *DB) InsertSample(s *Sample) error {
	query := `
		INSERT INTO traffic_samples (
			point_name, latitude, longitude, timestamp,
			current_speed, free_flow_speed, traffic_incidents
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return db.QueryRow(
		query,
		s.PointName,
		s.Latitude,
		s.Longitude,
		s.Timestamp,
		s.CurrentSpeed,
		s.FreeFlowSpeed,
		s.Incidents,
	).Scan(&s.ID)
}

// SamplesSince returns all samples recorded after the given time, newest
// first
func (db *DB) SamplesSince(since time.Time) ([]*Sample, error) {
	query := `
		SELECT id, point_name, latitude, longitude, timestamp,
		       current_speed, free_flow_speed, traffic_incidents
		FROM traffic_samples
		WHERE timestamp > $1
		ORDER BY timestamp DESC
	`

	rows, err := db.Query(query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(
			&s.ID,
			&s.PointName,
			&s.Latitude,
			&s.Longitude,
			&s.Timestamp,
			&s.CurrentSpeed,
			&s.FreeFlowSpeed,
			&s.Incidents,
		); err != nil {
			return nil, err
		}
		samples = append(samples, &s)
	}

	return samples, rows.Err()
}

// InsertAlert appends a new alert record
func (db *DB) InsertAlert(a *Alert) error {
	query := `
		INSERT INTO traffic_alerts (
			point_name, alert_type, severity, message, timestamp, notified
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return db.QueryRow(
		query,
		a.PointName,
		a.AlertType,
		a.Severity,
		a.Message,
		a.Timestamp,
		a.Notified,
	).Scan(&a.ID)
}

// MarkAlertNotified flips an alert's notified flag after delivery
func (db *DB) MarkAlertNotified(alertID int64) error {
	query := `
		UPDATE traffic_alerts
		SET notified = true
		WHERE id = $1
	`

	_, err := db.Exec(query, alertID)
	return err
}

// UnnotifiedAlerts returns persisted alerts that have not been delivered
// yet, most severe first
func (db *DB) UnnotifiedAlerts() ([]*Alert, error) {
	query := `
		SELECT id, point_name, alert_type, severity, message, timestamp, notified
		FROM traffic_alerts
		WHERE notified = false
		ORDER BY severity DESC, timestamp DESC
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.ID,
			&a.PointName,
			&a.AlertType,
			&a.Severity,
			&a.Message,
			&a.Timestamp,
			&a.Notified,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}
