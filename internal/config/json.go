package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	"github.com/dmitrijs2005/cryptkeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration so
// the file may say "30s" instead of nanoseconds.
type JsonConfig struct {
	KeeperDriver      string         `json:"keeper_driver"`
	KeeperPath        string         `json:"database_path"`
	KeeperDSN         string         `json:"keeper_dsn,omitempty"`
	Retain            bool           `json:"retain"`
	CompressionLevel  int            `json:"zstd_level"`
	IgnoreDirectories []string       `json:"ignore_directories"`
	RemoteRoot        string         `json:"remote_root"`
	Concurrency       int            `json:"concurrency"`
	RemoteTimeout     timex.Duration `json:"remote_timeout"`
	RemoteRetries     int            `json:"remote_retries"`
	S3Bucket          string         `json:"s3_bucket,omitempty"`
	S3Region          string         `json:"s3_region,omitempty"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint,omitempty"`
	S3AccessKey       string         `json:"s3_access_key,omitempty"`
	S3SecretKey       string         `json:"s3_secret_key,omitempty"`
	TokenFile         string         `json:"token_file,omitempty"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		KeeperDriver:      c.KeeperDriver,
		KeeperPath:        c.KeeperPath,
		KeeperDSN:         c.KeeperDSN,
		Retain:            c.Retain,
		CompressionLevel:  c.CompressionLevel,
		IgnoreDirectories: slices.Clone(c.IgnoreDirectories),
		RemoteRoot:        c.RemoteRoot,
		Concurrency:       c.Concurrency,
		RemoteTimeout:     timex.Duration{Duration: c.RemoteTimeout},
		RemoteRetries:     c.RemoteRetries,
		S3Bucket:          c.S3Bucket,
		S3Region:          c.S3Region,
		S3BaseEndpoint:    c.S3BaseEndpoint,
		S3AccessKey:       c.S3AccessKey,
		S3SecretKey:       c.S3SecretKey,
		TokenFile:         c.TokenFile,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.KeeperDriver = jc.KeeperDriver
	c.KeeperPath = jc.KeeperPath
	c.KeeperDSN = jc.KeeperDSN
	c.Retain = jc.Retain
	c.CompressionLevel = jc.CompressionLevel
	c.IgnoreDirectories = jc.IgnoreDirectories
	c.RemoteRoot = jc.RemoteRoot
	c.Concurrency = jc.Concurrency
	c.RemoteTimeout = jc.RemoteTimeout.Duration
	c.RemoteRetries = jc.RemoteRetries
	c.S3Bucket = jc.S3Bucket
	c.S3Region = jc.S3Region
	c.S3BaseEndpoint = jc.S3BaseEndpoint
	c.S3AccessKey = jc.S3AccessKey
	c.S3SecretKey = jc.S3SecretKey
	c.TokenFile = jc.TokenFile
}

// parseJson overlays cfg with the JSON file at path. Keys absent from the
// file keep their current values.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfig, err)
	}

	jc := toJson(cfg)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&jc); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrConfig, path, err)
	}

	jc.apply(cfg)
	return nil
}

// Save writes cfg to path as indented JSON with mode 0600, since it may
// carry credentials.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(toJson(c), "", "  ")
	if err != nil {
		return err
	}
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	if err := filex.WriteAtomic(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	return nil
}

// Keys lists the settings accepted by Set, in file order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for _, s := range setters {
		keys = append(keys, s.key)
	}
	return keys
}

var setters = []struct {
	key string
	set func(c *Config, v string) error
}{
	{"keeper_driver", func(c *Config, v string) error { c.KeeperDriver = v; return nil }},
	{"database_path", func(c *Config, v string) error { c.KeeperPath = v; return nil }},
	{"keeper_dsn", func(c *Config, v string) error { c.KeeperDSN = v; return nil }},
	{"retain", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Retain = b
		return err
	}},
	{"zstd_level", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.CompressionLevel = n
		return err
	}},
	{"ignore_directories", func(c *Config, v string) error {
		c.IgnoreDirectories = splitList(v)
		return nil
	}},
	{"remote_root", func(c *Config, v string) error { c.RemoteRoot = v; return nil }},
	{"concurrency", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Concurrency = n
		return err
	}},
	{"remote_timeout", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.RemoteTimeout = d
		return err
	}},
	{"remote_retries", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.RemoteRetries = n
		return err
	}},
	{"s3_bucket", func(c *Config, v string) error { c.S3Bucket = v; return nil }},
	{"s3_region", func(c *Config, v string) error { c.S3Region = v; return nil }},
	{"s3_base_endpoint", func(c *Config, v string) error { c.S3BaseEndpoint = v; return nil }},
	{"s3_access_key", func(c *Config, v string) error { c.S3AccessKey = v; return nil }},
	{"s3_secret_key", func(c *Config, v string) error { c.S3SecretKey = v; return nil }},
	{"token_file", func(c *Config, v string) error { c.TokenFile = v; return nil }},
}

// Set changes one setting by its JSON key, then validates the result. On
// error c is left unchanged.
func (c *Config) Set(key, value string) error {
	for _, s := range setters {
		if s.key != key {
			continue
		}
		next := *c
		next.IgnoreDirectories = slices.Clone(c.IgnoreDirectories)
		if err := s.set(&next, value); err != nil {
			return fmt.Errorf("%w: %s: %v", common.ErrConfig, key, err)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		*c = next
		return nil
	}
	return fmt.Errorf("%w: unknown setting %q (known: %s)", common.ErrConfig, key, strings.Join(Keys(), ", "))
}

// AddIgnore appends dir to IgnoreDirectories unless it is already listed.
func (c *Config) AddIgnore(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("%w: ignore entry is empty", common.ErrConfig)
	}
	if !slices.Contains(c.IgnoreDirectories, dir) {
		c.IgnoreDirectories = append(slices.Clone(c.IgnoreDirectories), dir)
	}
	return nil
}

// RemoveIgnore drops dir from IgnoreDirectories. Removing an entry that is
// not listed is an error.
func (c *Config) RemoveIgnore(dir string) error {
	dir = strings.TrimSpace(dir)
	i := slices.Index(c.IgnoreDirectories, dir)
	if i < 0 {
		return fmt.Errorf("%w: %q is not in ignore_directories", common.ErrConfig, dir)
	}
	c.IgnoreDirectories = slices.Delete(slices.Clone(c.IgnoreDirectories), i, i+1)
	return nil
}

// ResetIgnore restores the default ignore list.
func (c *Config) ResetIgnore() {
	var d Config
	d.LoadDefaults()
	c.IgnoreDirectories = d.IgnoreDirectories
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// String renders the settings for display, secrets masked.
func (c *Config) String() string {
	jc := toJson(c)
	if jc.S3SecretKey != "" {
		jc.S3SecretKey = "********"
	}
	data, _ := json.MarshalIndent(jc, "", "  ")
	return string(data)
}
