package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/cryptox"
)

// Keeper drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const fileName = "config.json"

// Config holds runtime settings. It is built once by the CLI and passed
// explicitly to every component.
type Config struct {
	// KeeperDriver selects the record store backend: sqlite or postgres.
	KeeperDriver string
	// KeeperPath is the SQLite database file.
	KeeperPath string
	// KeeperDSN is the PostgreSQL connection string.
	KeeperDSN string

	// Retain keeps the source file after encryption and the artifact after
	// decryption.
	Retain bool
	// CompressionLevel is the zstd level, -7..22.
	CompressionLevel int
	// IgnoreDirectories are skipped by directory walks, matched by base name
	// or absolute path.
	IgnoreDirectories []string

	// RemoteRoot is the well-known top folder on remote storage.
	RemoteRoot string
	// Concurrency bounds parallel remote calls within one level.
	Concurrency int
	// RemoteTimeout bounds a single remote call attempt.
	RemoteTimeout time.Duration
	// RemoteRetries is how many times a transient remote failure is retried.
	RemoteRetries int

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	// TokenFile holds the session token presented with the static keys.
	TokenFile string
}

// LoadDefaults populates c with defaults. The keeper lives next to the
// config file.
func (c *Config) LoadDefaults() {
	c.KeeperDriver = DriverSQLite
	c.KeeperPath = filepath.Join(appDir(), "keeper.db")
	c.KeeperDSN = ""
	c.Retain = false
	c.CompressionLevel = cryptox.DefaultCompressionLevel
	c.IgnoreDirectories = []string{".git"}
	c.RemoteRoot = common.DefaultRemoteRoot
	c.Concurrency = 4
	c.RemoteTimeout = 30 * time.Second
	c.RemoteRetries = 3
	c.S3Region = "us-east-1"
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(appDir(), fileName)
}

func appDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".config", common.AppDirName)
}

// Load builds a Config from defaults and the JSON file at path. A missing
// file is only an error when required is set (the user named it).
func Load(path string, required bool) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrConfig, err)
	}

	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting. All errors match
// common.ErrConfig; a bad compression level also matches
// common.ErrInvalidLevel.
func (c *Config) Validate() error {
	switch c.KeeperDriver {
	case DriverSQLite:
		if c.KeeperPath == "" {
			return fmt.Errorf("%w: database_path is empty", common.ErrConfig)
		}
	case DriverPostgres:
		if c.KeeperDSN == "" {
			return fmt.Errorf("%w: keeper_dsn is required for the postgres driver", common.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown keeper_driver %q", common.ErrConfig, c.KeeperDriver)
	}

	if err := cryptox.ValidateLevel(c.CompressionLevel); err != nil {
		return err
	}

	if c.RemoteRoot == "" || strings.ContainsAny(c.RemoteRoot, `/\`) {
		return fmt.Errorf("%w: remote_root must be a single folder name, got %q", common.ErrConfig, c.RemoteRoot)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", common.ErrConfig, c.Concurrency)
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("%w: remote_timeout must be positive", common.ErrConfig)
	}
	if c.RemoteRetries < 0 {
		return fmt.Errorf("%w: remote_retries must not be negative", common.ErrConfig)
	}
	return nil
}
