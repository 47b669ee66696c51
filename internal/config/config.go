package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the catpoint binaries.
type Config struct {
	// ServerAddress is the gRPC server address for security service connections.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format"`
	// ConfidenceThreshold is the minimum classifier confidence (0-100) for a cat match.
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	// Storage selects and configures the state repository.
	Storage Storage `yaml:"storage"`
	// Classifier selects the image classifier.
	Classifier Classifier `yaml:"classifier"`
	// MQTT configures the status publisher and sensor subscriber; empty broker disables it.
	MQTT MQTT `yaml:"mqtt"`
	// Metrics configures the Prometheus endpoint; empty address disables it.
	Metrics Metrics `yaml:"metrics"`
	// Backup configures snapshot uploads to S3.
	Backup Backup `yaml:"backup"`
}

// Storage selects the state repository backend.
type Storage struct {
	// Backend is one of memory, file, sqlite or redis.
	Backend string `yaml:"backend"`
	// StateFile is the JSON file used by the file backend.
	StateFile string `yaml:"state_file"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
	// RedisURL is the connection URL used by the redis backend.
	RedisURL string `yaml:"redis_url"`
	// RedisPrefix namespaces every key written by the redis backend.
	RedisPrefix string `yaml:"redis_prefix"`
}

// Classifier selects the image classifier.
type Classifier struct {
	// Mode is one of random, always or never.
	Mode string `yaml:"mode"`
	// Probability is the chance of reporting a cat in random mode.
	Probability float64 `yaml:"probability"`
	// Seed makes random mode reproducible when non-zero.
	Seed uint64 `yaml:"seed"`
}

// MQTT configures the broker connection.
type MQTT struct {
	// BrokerURL is the broker address, e.g. tcp://localhost:1883.
	BrokerURL string `yaml:"broker_url"`
	// Username authenticates against the broker.
	Username string `yaml:"username"`
	// Password authenticates against the broker.
	Password string `yaml:"password"`
	// TopicPrefix is prepended to every topic.
	TopicPrefix string `yaml:"topic_prefix"`
	// InsecureSkipVerify disables TLS certificate checks for ssl:// brokers.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Enabled reports whether a broker is configured.
func (m *MQTT) Enabled() bool {
	return m.BrokerURL != ""
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// ListenAddress is where /metrics is served.
	ListenAddress string `yaml:"listen_addr"`
}

// Backup configures snapshot uploads.
type Backup struct {
	// Bucket is the destination S3 bucket.
	Bucket string `yaml:"bucket"`
	// Region is the AWS region of the bucket.
	Region string `yaml:"region"`
	// Prefix is the key prefix for uploaded snapshots.
	Prefix string `yaml:"prefix"`
	// Endpoint overrides the S3 endpoint for S3-compatible storage.
	Endpoint string `yaml:"endpoint"`
	// AccessKeyID is an optional static credential; the default chain is used when empty.
	AccessKeyID string `yaml:"access_key_id"`
	// SecretAccessKey pairs with AccessKeyID.
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Classifier modes.
const (
	ClassifierRandom = "random"
	ClassifierAlways = "always"
	ClassifierNever  = "never"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename for the JSON state.
	DefaultStateFilename = "catpoint-state.json"

	// DefaultSQLiteFilename is the default SQLite database file.
	DefaultSQLiteFilename = "catpoint.db"

	// DefaultRedisPrefix namespaces redis keys.
	DefaultRedisPrefix = "catpoint:"

	// DefaultTopicPrefix is the default MQTT topic prefix.
	DefaultTopicPrefix = "catpoint"

	// DefaultBackupPrefix is the default S3 key prefix.
	DefaultBackupPrefix = "backups"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log line encoding.
	DefaultLogFormat = "console"

	// DefaultConfidenceThreshold is the classifier confidence required to report a cat.
	DefaultConfidenceThreshold float32 = 50

	// DefaultCatProbability is the chance of a random classifier reporting a cat.
	DefaultCatProbability = 0.5

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errRedisURLRequired is returned when the redis backend has no URL.
	errRedisURLRequired = errors.New("redis_url must be provided for the redis backend")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold broker and AWS credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	settings.LogFormat = strings.ToLower(strings.TrimSpace(settings.LogFormat))
	if settings.LogFormat == "" {
		settings.LogFormat = DefaultLogFormat
	}

	if settings.LogFormat != "console" && settings.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", settings.LogFormat)
	}

	if settings.ConfidenceThreshold == 0 {
		settings.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	if settings.ConfidenceThreshold < 0 || settings.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence_threshold must be within 0-100, got %v", settings.ConfidenceThreshold)
	}

	if err := validateStorage(&settings.Storage); err != nil {
		return err
	}

	if err := validateClassifier(&settings.Classifier); err != nil {
		return err
	}

	if err := validateMQTT(&settings.MQTT); err != nil {
		return err
	}

	if settings.Backup.Prefix == "" {
		settings.Backup.Prefix = DefaultBackupPrefix
	}

	return nil
}

// validateStorage normalizes the backend name and fills backend defaults.
func validateStorage(storage *Storage) error {
	storage.Backend = strings.ToLower(strings.TrimSpace(storage.Backend))
	if storage.Backend == "" {
		storage.Backend = StorageFile
	}

	if storage.StateFile == "" {
		storage.StateFile = DefaultStateFilename
	}

	if storage.SQLitePath == "" {
		storage.SQLitePath = DefaultSQLiteFilename
	}

	if storage.RedisPrefix == "" {
		storage.RedisPrefix = DefaultRedisPrefix
	}

	switch storage.Backend {
	case StorageMemory, StorageFile, StorageSQLite:
		return nil
	case StorageRedis:
		if storage.RedisURL == "" {
			return errRedisURLRequired
		}

		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", storage.Backend)
	}
}

// validateClassifier normalizes the mode and checks the probability range.
func validateClassifier(classifier *Classifier) error {
	classifier.Mode = strings.ToLower(strings.TrimSpace(classifier.Mode))
	if classifier.Mode == "" {
		classifier.Mode = ClassifierRandom
	}

	switch classifier.Mode {
	case ClassifierRandom:
		if classifier.Probability == 0 {
			classifier.Probability = DefaultCatProbability
		}

		if classifier.Probability < 0 || classifier.Probability > 1 {
			return fmt.Errorf("classifier probability must be within 0-1, got %v", classifier.Probability)
		}

		return nil
	case ClassifierAlways, ClassifierNever:
		return nil
	default:
		return fmt.Errorf("unknown classifier mode %q", classifier.Mode)
	}
}

// validateMQTT checks the broker URL when MQTT is enabled.
func validateMQTT(settings *MQTT) error {
	if settings.TopicPrefix == "" {
		settings.TopicPrefix = DefaultTopicPrefix
	}

	settings.TopicPrefix = strings.TrimSuffix(settings.TopicPrefix, "/")

	if !settings.Enabled() {
		return nil
	}

	brokerURL, err := url.Parse(settings.BrokerURL)
	if err != nil {
		return fmt.Errorf("invalid mqtt broker url: %w", err)
	}

	if brokerURL.Scheme == "" || brokerURL.Host == "" {
		return fmt.Errorf("invalid mqtt broker url %q", settings.BrokerURL)
	}

	return nil
}
