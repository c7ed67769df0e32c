package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Upstream  UpstreamConfig
	Collector CollectorConfig
	Cache     CacheConfig
	GTFS      GTFSConfig
	Alerts    AlertConfig
	SMTP      SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers     []string
	TopicAlerts string
}

// Configured reports whether a broker list was actually supplied.
func (k KafkaConfig) Configured() bool {
	return len(k.Brokers) > 0 && k.Brokers[0] != ""
}

type UpstreamConfig struct {
	APIKey      string
	FlowURL     string
	IncidentURL string
	Timeout     time.Duration
	MaxRetries  int
}

type CollectorConfig struct {
	PointsFile    string
	InterCallWait time.Duration
	Workers       int
	IncidentKM    float64
}

type CacheConfig struct {
	Backend      string // "file" or "redis"
	SnapshotPath string
	TTL          time.Duration // redis backend only; 0 = no expiry
}

type GTFSConfig struct {
	Dir string
}

type AlertConfig struct {
	CongestionIndex float64
	IncidentCount   int
	SpeedRatio      float64
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "traffic_user"),
			Password: getEnv("DB_PASSWORD", "traffic_pass"),
			DBName:   getEnv("DB_NAME", "traffic_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:     splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			TopicAlerts: getEnv("KAFKA_TOPIC_ALERTS", "traffic.alerts"),
		},
		Upstream: UpstreamConfig{
			APIKey:      getEnv("TOMTOM_API_KEY", ""),
			FlowURL:     getEnv("UPSTREAM_FLOW_URL", "https://api.tomtom.com/traffic/services/4/flowSegmentData/absolute/10/json"),
			IncidentURL: getEnv("UPSTREAM_INCIDENT_URL", "https://api.tomtom.com/traffic/services/4/incidentDetails/s3"),
			Timeout:     getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			MaxRetries:  getEnvAsInt("UPSTREAM_MAX_RETRIES", 3),
		},
		Collector: CollectorConfig{
			PointsFile:    getEnv("POINTS_FILE", "points.yml"),
			InterCallWait: getEnvAsDuration("COLLECTOR_INTER_CALL_WAIT", 1*time.Second),
			Workers:       getEnvAsInt("COLLECTOR_WORKERS", 1),
			IncidentKM:    getEnvAsFloat("COLLECTOR_INCIDENT_RADIUS_KM", 2),
		},
		Cache: CacheConfig{
			Backend:      getEnv("CACHE_BACKEND", "file"),
			SnapshotPath: getEnv("CACHE_SNAPSHOT_PATH", "congestion_cache.json"),
			TTL:          getEnvAsDuration("CACHE_TTL", 0),
		},
		GTFS: GTFSConfig{
			Dir: getEnv("GTFS_DIR", "gtfs_data"),
		},
		Alerts: AlertConfig{
			CongestionIndex: getEnvAsFloat("ALERT_CONGESTION_INDEX", 80),
			IncidentCount:   getEnvAsInt("ALERT_INCIDENT_COUNT", 3),
			SpeedRatio:      getEnvAsFloat("ALERT_SPEED_RATIO", 0.4),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "traffic-monitor@example.com"),
			To:       getEnv("SMTP_TO", "admin@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
