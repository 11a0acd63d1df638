package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Durable string `mapstructure:"durable"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// RoutingConfig configures the external routing provider.
type RoutingConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	ModeTimeoutMS int    `mapstructure:"mode_timeout_ms"`
	CacheTTL      int    `mapstructure:"cache_ttl"`
}

// ModeTimeout is the per-mode request deadline.
func (r RoutingConfig) ModeTimeout() time.Duration {
	return time.Duration(r.ModeTimeoutMS) * time.Millisecond
}

type ClusterConfig struct {
	DefaultRadius float64 `mapstructure:"default_radius"`
	MaxPoints     int     `mapstructure:"max_points"`
}

type AlertsConfig struct {
	WindowMinutes      int     `mapstructure:"window_minutes"`
	SearchRadiusMeters float64 `mapstructure:"search_radius"`
}

// Window is the default recency window for stored alerts.
func (a AlertsConfig) Window() time.Duration {
	return time.Duration(a.WindowMinutes) * time.Minute
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
	Cron      string `mapstructure:"cron"`
	// Regions lists the digest regions as "name:lat:lng" entries
	// separated by commas.
	Regions string `mapstructure:"regions"`
}

// Region is one named digest area.
type Region struct {
	Name string
	Lat  float64
	Lng  float64
}

// ParseRegions decodes Regions.
func (t TemporalConfig) ParseRegions() ([]Region, error) {
	var out []Region
	for _, entry := range strings.Split(t.Regions, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("temporal.regions: %q is not name:lat:lng", entry)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("temporal.regions: bad latitude in %q", entry)
		}
		lng, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("temporal.regions: bad longitude in %q", entry)
		}
		out = append(out, Region{Name: parts[0], Lat: lat, Lng: lng})
	}
	return out, nil
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOENGINE_ROUTING_API_KEY → routing.api_key
	v.SetEnvPrefix("GEOENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "geoengine")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "geoengine")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.durable", "alert-store")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("routing.api_key", "")
	v.SetDefault("routing.base_url", "https://routes.googleapis.com")
	v.SetDefault("routing.mode_timeout_ms", 10000)
	v.SetDefault("routing.cache_ttl", 300)
	v.SetDefault("cluster.default_radius", 200)
	v.SetDefault("cluster.max_points", 5000)
	v.SetDefault("alerts.window_minutes", 1440)
	v.SetDefault("alerts.search_radius", 5000)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "geoengine-digest")
	v.SetDefault("temporal.cron", "@every 5m")
	v.SetDefault("temporal.regions", "")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Routing.ModeTimeoutMS <= 0 {
		errs = append(errs, "routing.mode_timeout_ms must be positive")
	}
	if c.Routing.CacheTTL < 0 {
		errs = append(errs, "routing.cache_ttl must not be negative")
	}
	if c.Cluster.DefaultRadius < 0 {
		errs = append(errs, "cluster.default_radius must not be negative")
	}
	if c.Cluster.MaxPoints <= 0 {
		errs = append(errs, "cluster.max_points must be positive")
	}
	if c.Alerts.WindowMinutes <= 0 {
		errs = append(errs, "alerts.window_minutes must be positive")
	}
	if c.Alerts.SearchRadiusMeters <= 0 {
		errs = append(errs, "alerts.search_radius must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
