package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable via STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// DefaultMarker is the substring a chat message must contain to be
// treated as an application submission.
const DefaultMarker = "NEW DUBBING TEAM APPLICATION"

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	Telegram TelegramConfig
	Storage  StorageConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Intake   IntakeConfig

	// OTELCollectorEndpoint enables tracing when non-empty.
	OTELCollectorEndpoint string
	// OTELSampleRatio in (0,1) samples that fraction of traces;
	// defaults to sampling everything.
	OTELSampleRatio float64
}

// TelegramConfig holds the bot token and the admin allow-list.
type TelegramConfig struct {
	Token      string
	AdminIDs   []int64
	PollPeriod time.Duration
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend string
	// JSONFile is the database document path for the json backend.
	JSONFile string
	// DatabaseURL is the postgres connection string.
	DatabaseURL string
}

// HTTPConfig holds the intake server settings.
type HTTPConfig struct {
	Port string
}

// KafkaConfig configures the optional lifecycle event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// IntakeConfig configures the background review queue and chat intake.
type IntakeConfig struct {
	QueueSize int
	Marker    string
}

// Load reads configuration from environment.
func Load() (Config, error) {
	cfg := Config{
		Telegram: TelegramConfig{
			Token:      os.Getenv("TELEGRAM_TOKEN"),
			PollPeriod: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", BackendJSON),
			JSONFile:    getEnv("DB_FILE", "applications_db.json"),
			DatabaseURL: os.Getenv("APPLYBOT_DB_URL"),
		},
		HTTP: HTTPConfig{
			Port: getEnv("PORT", "8080"),
		},
		Intake: IntakeConfig{
			QueueSize: getEnvInt("INTAKE_QUEUE_SIZE", 64),
			Marker:    getEnv("APPLICATION_MARKER", DefaultMarker),
		},
		OTELCollectorEndpoint: os.Getenv("OTEL_COLLECTOR_ENDPOINT"),
		OTELSampleRatio:       getEnvFloat("OTEL_SAMPLE_RATIO", 1),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: splitCSV(brokers),
			Topic:   getEnv("KAFKA_EVENTS_TOPIC", "application-events"),
		}
	}

	admins, err := parseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return Config{}, err
	}
	cfg.Telegram.AdminIDs = admins

	switch cfg.Storage.Backend {
	case BackendMemory, BackendJSON:
	case BackendPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return Config{}, fmt.Errorf("STORAGE_BACKEND=postgres requires APPLYBOT_DB_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range splitCSV(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
