package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"campus-energy/pkg/database"
)

// ConfigFileEnv names the optional YAML file layered between defaults and environment
const ConfigFileEnv = "CAMPUS_CONFIG_FILE"

// Config holds the configuration shared by every campus-energy binary
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	NATS       NATSConfig       `yaml:"nats"`
	Notify     NotifyConfig     `yaml:"notify"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Simulation SimulationConfig `yaml:"simulation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig configures the dashboard API server
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// DatabaseConfig configures the PostgreSQL reading store
type DatabaseConfig struct {
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	User                string        `yaml:"user"`
	Password            string        `yaml:"password"`
	Database            string        `yaml:"database"`
	SSLMode             string        `yaml:"sslMode"`
	MaxOpenConns        int           `yaml:"maxOpenConns"`
	MaxIdleConns        int           `yaml:"maxIdleConns"`
	ConnMaxLifetime     time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime     time.Duration `yaml:"connMaxIdleTime"`
	PoolMonitorInterval time.Duration `yaml:"poolMonitorInterval"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RedisConfig configures the dashboard response cache
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	PoolSize   int           `yaml:"poolSize"`
	TTL        time.Duration `yaml:"ttl"`
	ArchiveTTL time.Duration `yaml:"archiveTtl"`
}

// KafkaConfig configures the alert topic and the reading change stream
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	AlertTopic   string        `yaml:"alertTopic"`
	ChangeTopic  string        `yaml:"changeTopic"`
	GroupID      string        `yaml:"groupId"`
	RequiredAcks int           `yaml:"requiredAcks"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	BatchSize    int           `yaml:"batchSize"`
	PollTimeout  time.Duration `yaml:"pollTimeout"`
}

// NATSConfig configures the NATS alert transport
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Alert transports
const (
	TransportKafka = "kafka"
	TransportNATS  = "nats"
	TransportLog   = "log"
)

// NotifyConfig selects how alerts and change events leave the platform
type NotifyConfig struct {
	Transport     string `yaml:"transport"`
	DashboardLink string `yaml:"dashboardLink"`
	// ChangeStream publishes a change event per stored reading to Kafka
	ChangeStream bool `yaml:"changeStream"`
}

// Archive backends
const (
	ArchiveFS     = "fs"
	ArchiveGridFS = "gridfs"
)

// ArchiveConfig configures the daily archive blob store
type ArchiveConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
	Bucket        string `yaml:"bucket"`
	Concurrency   int    `yaml:"concurrency"`
}

// SimulationConfig configures the reading simulator
type SimulationConfig struct {
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retentionDays"`
	// Seed makes runs reproducible; 0 seeds from the clock
	Seed        uint64 `yaml:"seed"`
	CatalogFile string `yaml:"catalogFile"`
	Location    string `yaml:"location"`
	Concurrency int    `yaml:"concurrency"`
}

// Retention is how long a reading is kept
func (s SimulationConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// MetricsConfig configures metric export
type MetricsConfig struct {
	Namespace      string `yaml:"namespace"`
	PushgatewayURL string `yaml:"pushgatewayUrl"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Host:                "localhost",
			Port:                5432,
			User:                "postgres",
			Password:            "postgres",
			Database:            "campus_energy",
			SSLMode:             "disable",
			MaxOpenConns:        25,
			MaxIdleConns:        5,
			ConnMaxLifetime:     5 * time.Minute,
			ConnMaxIdleTime:     time.Minute,
			PoolMonitorInterval: 15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			Prefix:     "campus-energy",
			PoolSize:   10,
			TTL:        30 * time.Second,
			ArchiveTTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			AlertTopic:   "campus.energy.alerts",
			ChangeTopic:  "campus.energy.readings",
			GroupID:      "campus-energy-alerter",
			RequiredAcks: -1,
			BatchTimeout: 50 * time.Millisecond,
			BatchSize:    100,
			PollTimeout:  2 * time.Second,
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "campus.energy.alerts",
		},
		Notify: NotifyConfig{
			Transport:     TransportLog,
			DashboardLink: "https://example.com/dashboard",
		},
		Archive: ArchiveConfig{
			Backend:       ArchiveFS,
			Dir:           "./data/archive",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "campus_energy",
			Bucket:        "archive",
			Concurrency:   8,
		},
		Simulation: SimulationConfig{
			Interval:      5 * time.Minute,
			RetentionDays: 30,
			Location:      "UTC",
		},
		Metrics: MetricsConfig{Namespace: "campus_energy"},
	}
}

// LoadConfig layers the YAML file named by CAMPUS_CONFIG_FILE (if any) and
// then environment variables over the defaults
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv(ConfigFileEnv))
}

// LoadConfigFrom is LoadConfig with an explicit file; an empty path skips it
func LoadConfigFrom(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// envReader collects the first parse error so applyEnv reads linearly
type envReader struct {
	lookup lookupFunc
	err    error
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (r *envReader) list(key string, dst *[]string) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func (r *envReader) integer(key string, dst *int) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, raw, err)
		return
	}
	*dst = v
}

func (r *envReader) unsigned(key string, dst *uint64) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		r.fail(key, raw, err)
		return
	}
	*dst = v
}

func (r *envReader) boolean(key string, dst *bool) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, raw, err)
		return
	}
	*dst = v
}

func (r *envReader) duration(key string, dst *time.Duration) {
	var raw string
	r.str(key, &raw)
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, raw, err)
		return
	}
	*dst = v
}

func (r *envReader) fail(key, raw string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
}

func (c *Config) applyEnv(lookup lookupFunc) error {
	r := &envReader{lookup: lookup}

	r.str("SERVER_HOST", &c.Server.Host)
	r.integer("SERVER_PORT", &c.Server.Port)
	r.duration("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	r.duration("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	r.duration("SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout)
	r.duration("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	r.list("CORS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	r.str("DB_HOST", &c.Database.Host)
	r.integer("DB_PORT", &c.Database.Port)
	r.str("DB_USER", &c.Database.User)
	r.str("DB_PASSWORD", &c.Database.Password)
	r.str("DB_NAME", &c.Database.Database)
	r.str("DB_SSLMODE", &c.Database.SSLMode)
	r.integer("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	r.integer("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	r.duration("DB_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetime)
	r.duration("DB_CONN_MAX_IDLE_TIME", &c.Database.ConnMaxIdleTime)

	r.str("LOG_LEVEL", &c.Logging.Level)

	r.boolean("REDIS_ENABLED", &c.Redis.Enabled)
	r.str("REDIS_ADDR", &c.Redis.Addr)
	r.str("REDIS_PASSWORD", &c.Redis.Password)
	r.integer("REDIS_DB", &c.Redis.DB)
	r.str("REDIS_PREFIX", &c.Redis.Prefix)
	r.duration("CACHE_TTL", &c.Redis.TTL)
	r.duration("ARCHIVE_CACHE_TTL", &c.Redis.ArchiveTTL)

	r.list("KAFKA_BROKERS", &c.Kafka.Brokers)
	r.str("KAFKA_ALERT_TOPIC", &c.Kafka.AlertTopic)
	r.str("KAFKA_CHANGE_TOPIC", &c.Kafka.ChangeTopic)
	r.str("KAFKA_GROUP_ID", &c.Kafka.GroupID)

	r.str("NATS_URL", &c.NATS.URL)
	r.str("NATS_SUBJECT", &c.NATS.Subject)

	r.str("ALERT_TRANSPORT", &c.Notify.Transport)
	r.str("DASHBOARD_URL", &c.Notify.DashboardLink)
	r.boolean("CHANGE_STREAM_ENABLED", &c.Notify.ChangeStream)

	r.str("ARCHIVE_BACKEND", &c.Archive.Backend)
	r.str("ARCHIVE_DIR", &c.Archive.Dir)
	r.str("MONGO_URI", &c.Archive.MongoURI)
	r.str("MONGO_DATABASE", &c.Archive.MongoDatabase)
	r.str("ARCHIVE_BUCKET", &c.Archive.Bucket)

	r.duration("SIMULATION_INTERVAL", &c.Simulation.Interval)
	r.integer("RETENTION_DAYS", &c.Simulation.RetentionDays)
	r.unsigned("SIMULATION_SEED", &c.Simulation.Seed)
	r.str("CATALOG_FILE", &c.Simulation.CatalogFile)
	r.str("SIMULATION_LOCATION", &c.Simulation.Location)

	r.str("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)

	return r.err
}

// Validate checks the configuration for values no binary can run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" || c.Database.Database == "" {
		errs = append(errs, errors.New("database host and name are required"))
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, fmt.Errorf("database max idle conns (%d) exceeds max open conns (%d)", c.Database.MaxIdleConns, c.Database.MaxOpenConns))
	}

	switch c.Notify.Transport {
	case TransportLog:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.AlertTopic == "" {
			errs = append(errs, errors.New("kafka transport requires brokers and an alert topic"))
		}
	case TransportNATS:
		if c.NATS.URL == "" || c.NATS.Subject == "" {
			errs = append(errs, errors.New("nats transport requires a url and a subject"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown alert transport %q (want kafka, nats or log)", c.Notify.Transport))
	}
	if c.Notify.ChangeStream && (len(c.Kafka.Brokers) == 0 || c.Kafka.ChangeTopic == "") {
		errs = append(errs, errors.New("change stream requires kafka brokers and a change topic"))
	}

	switch c.Archive.Backend {
	case ArchiveFS:
		if c.Archive.Dir == "" {
			errs = append(errs, errors.New("fs archive requires a directory"))
		}
	case ArchiveGridFS:
		if c.Archive.MongoURI == "" || c.Archive.MongoDatabase == "" || c.Archive.Bucket == "" {
			errs = append(errs, errors.New("gridfs archive requires a mongo uri, database and bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown archive backend %q (want fs or gridfs)", c.Archive.Backend))
	}

	if c.Simulation.Interval <= 0 {
		errs = append(errs, errors.New("simulation interval must be positive"))
	}
	if c.Simulation.RetentionDays <= 0 {
		errs = append(errs, errors.New("retention days must be positive"))
	}
	if _, err := time.LoadLocation(c.Simulation.Location); err != nil {
		errs = append(errs, fmt.Errorf("invalid simulation location: %w", err))
	}

	return errors.Join(errs...)
}

// PostgresConfig converts the database section for pkg/database
func (d DatabaseConfig) PostgresConfig() *database.Config {
	return &database.Config{
		Host:                d.Host,
		Port:                d.Port,
		User:                d.User,
		Password:            d.Password,
		Database:            d.Database,
		SSLMode:             d.SSLMode,
		MaxOpenConns:        d.MaxOpenConns,
		MaxIdleConns:        d.MaxIdleConns,
		ConnMaxLifetime:     d.ConnMaxLifetime,
		ConnMaxIdleTime:     d.ConnMaxIdleTime,
		PoolMonitorInterval: d.PoolMonitorInterval,
	}
}
