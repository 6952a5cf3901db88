// Package config loads the settings shared by the server and the worker from
// an optional YAML file and the environment. Environment variables win over
// the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/shotgrid"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "BIDBOARD_CONFIG"

	DefaultPort     = "8080"
	DefaultCacheTTL = 5 * time.Minute
)

type Config struct {
	Port      string          `yaml:"port"`
	Title     string          `yaml:"title"`
	ShotGrid  ShotGridConfig  `yaml:"shotgrid"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Snapshots SnapshotConfig  `yaml:"snapshots"`
	Worker    WorkerConfig    `yaml:"worker"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Reference board.Reference `yaml:"reference"`
}

type ShotGridConfig struct {
	URL         string        `yaml:"url"`
	ScriptName  string        `yaml:"script_name"`
	ScriptKey   string        `yaml:"script_key"`
	ProjectID   int           `yaml:"project_id"`
	PageSize    int           `yaml:"page_size"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// RedisConfig is optional. An empty Addr disables the cache and the job
// queue; a zero CacheTTL disables only the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type SnapshotConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type WorkerConfig struct {
	ID           string        `yaml:"id"`
	PollInterval time.Duration `yaml:"poll_interval"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
	ExportDir    string        `yaml:"export_dir"`
}

type SendGridConfig struct {
	APIKey      string `yaml:"api_key"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
}

func Default() *Config {
	return &Config{
		Port:      DefaultPort,
		Redis:     RedisConfig{CacheTTL: DefaultCacheTTL},
		SendGrid:  SendGridConfig{FromName: "Bid Dashboard", FromAddress: "noreply@example.com"},
		Reference: board.DefaultReference(),
	}
}

// Path picks the config file: the flag value if set, then BIDBOARD_CONFIG.
// An empty result means no file.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// Load reads the file at path (if any) over the defaults and then applies
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decode applies a YAML document over c. A reference block replaces the
// default reference as a whole, so a file that sets only label and days gets
// no breakdown.
func (c *Config) decode(data []byte) error {
	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, ok := top["reference"]; ok {
		c.Reference = board.Reference{}
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.ShotGrid.URL, "SHOTGRID_URL")
	setString(&c.ShotGrid.ScriptName, "SHOTGRID_SCRIPT_NAME")
	setString(&c.ShotGrid.ScriptKey, "SHOTGRID_SCRIPT_KEY")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Postgres.DSN, "POSTGRES_DSN")
	setString(&c.Worker.ID, "WORKER_ID")
	setString(&c.Worker.ExportDir, "EXPORT_DIR")
	setString(&c.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&c.SendGrid.FromName, "FROM_NAME")
	setString(&c.SendGrid.FromAddress, "FROM_ADDRESS")

	return errors.Join(
		setInt(&c.ShotGrid.ProjectID, "SHOTGRID_PROJECT_ID"),
		setDuration(&c.Redis.CacheTTL, "CACHE_TTL"),
		setDuration(&c.Snapshots.Interval, "SNAPSHOT_INTERVAL"),
	)
}

func (c *Config) Validate() error {
	var errs []error

	if c.ShotGrid.URL == "" {
		errs = append(errs, errors.New("SHOTGRID_URL is required"))
	}
	if c.ShotGrid.ScriptName == "" {
		errs = append(errs, errors.New("SHOTGRID_SCRIPT_NAME is required"))
	}
	if c.ShotGrid.ScriptKey == "" {
		errs = append(errs, errors.New("SHOTGRID_SCRIPT_KEY is required"))
	}
	if c.ShotGrid.ProjectID <= 0 {
		errs = append(errs, errors.New("SHOTGRID_PROJECT_ID must be a positive integer"))
	}
	if c.Redis.CacheTTL < 0 {
		errs = append(errs, errors.New("cache TTL must not be negative"))
	}
	if c.Snapshots.Interval < 0 {
		errs = append(errs, errors.New("snapshot interval must not be negative"))
	}

	return errors.Join(errs...)
}

func (s ShotGridConfig) ClientConfig() shotgrid.Config {
	return shotgrid.Config{
		BaseURL:     s.URL,
		ScriptName:  s.ScriptName,
		ScriptKey:   s.ScriptKey,
		PageSize:    s.PageSize,
		Timeout:     s.Timeout,
		MaxAttempts: s.MaxAttempts,
	}
}

func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != "" && c.Redis.CacheTTL > 0
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}

	*dst = n
	return nil
}

// setDuration accepts Go durations ("90s") and bare integers as seconds.
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}

	*dst = d
	return nil
}
