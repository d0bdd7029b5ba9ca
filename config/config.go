package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Mirror describes one external destination that receives a copy of every artifact.
// Settings are backend specific (bucket, region, host, ...).
type Mirror struct {
	Name     string            `toml:"name"`
	Type     string            `toml:"type"` // directServe, s3, gcs, sftp
	Folder   string            `toml:"folder"`
	Settings map[string]string `toml:"settings"`
}

// Config is the full runtime configuration of slidepack.
type Config struct {
	Port         string `toml:"port"`
	BaseURL      string `toml:"base_url"`
	DataDir      string `toml:"data_dir"`
	TempDir      string `toml:"temp_dir"`
	DownloadsDir string `toml:"downloads_dir"`
	StaticDir    string `toml:"static_dir"`

	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`

	// Retention is how long an artifact stays on disk after it is first served.
	Retention Duration `toml:"retention"`
	// UnclaimedTTL removes artifacts that are never downloaded.
	UnclaimedTTL Duration `toml:"unclaimed_ttl"`
	// RecordMaxAge bounds how long ledger records are kept.
	RecordMaxAge Duration `toml:"record_max_age"`

	Concurrency    int      `toml:"concurrency"`
	FetchAttempts  int      `toml:"fetch_attempts"`
	FetchTimeout   Duration `toml:"fetch_timeout"`
	FetchBackoff   Duration `toml:"fetch_backoff"`
	PageTimeout    Duration `toml:"page_timeout"`
	UserAgent      string   `toml:"user_agent"`
	MaxRequestBody int64    `toml:"max_request_body"`

	Mirrors []Mirror `toml:"mirror"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:           "3000",
		DataDir:        "./data",
		TempDir:        filepath.Join(os.TempDir(), "slidepack"),
		DownloadsDir:   "./downloads",
		LogLevel:       "debug",
		Retention:      Duration{5 * time.Minute},
		UnclaimedTTL:   Duration{time.Hour},
		RecordMaxAge:   Duration{30 * 24 * time.Hour},
		Concurrency:    20,
		FetchAttempts:  3,
		FetchTimeout:   Duration{30 * time.Second},
		FetchBackoff:   Duration{time.Second},
		PageTimeout:    Duration{30 * time.Second},
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		MaxRequestBody: 1 << 20,
	}
}

// Load builds the configuration from defaults, an optional TOML file and
// SLIDEPACK_* environment variables, in that order of precedence.
// A missing file at path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides fields from the environment.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SLIDEPACK_PORT":          &c.Port,
		"SLIDEPACK_BASE_URL":      &c.BaseURL,
		"SLIDEPACK_DATA_DIR":      &c.DataDir,
		"SLIDEPACK_TEMP_DIR":      &c.TempDir,
		"SLIDEPACK_DOWNLOADS_DIR": &c.DownloadsDir,
		"SLIDEPACK_STATIC_DIR":    &c.StaticDir,
		"SLIDEPACK_LOG_FILE":      &c.LogFile,
		"SLIDEPACK_LOG_LEVEL":     &c.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*Duration{
		"SLIDEPACK_RETENTION":     &c.Retention,
		"SLIDEPACK_UNCLAIMED_TTL": &c.UnclaimedTTL,
		"SLIDEPACK_FETCH_TIMEOUT": &c.FetchTimeout,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		dst.Duration = d
	}

	if v := os.Getenv("SLIDEPACK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SLIDEPACK_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	} else if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("port %q is not a number", c.Port))
	}
	if c.DataDir == "" || c.TempDir == "" || c.DownloadsDir == "" {
		errs = append(errs, errors.New("data_dir, temp_dir and downloads_dir are required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.FetchAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetch_attempts must be positive, got %d", c.FetchAttempts))
	}
	if c.Retention.Duration <= 0 {
		errs = append(errs, errors.New("retention must be positive"))
	}
	if c.UnclaimedTTL.Duration < c.Retention.Duration {
		errs = append(errs, errors.New("unclaimed_ttl must not be shorter than retention"))
	}
	for i, m := range c.Mirrors {
		switch m.Type {
		case "directServe", "s3", "gcs", "sftp":
		default:
			errs = append(errs, fmt.Errorf("mirror %d: unknown type %q", i, m.Type))
		}
	}
	return errors.Join(errs...)
}

// LedgerPath returns the pebble directory holding artifact and failure records.
// Path: {DataDir}/ledger.db
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// EnsureDirectories creates the data, temp and downloads directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.TempDir, c.DownloadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Duration is a time.Duration written as a string ("5m", "90s") in TOML files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
