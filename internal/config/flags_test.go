package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return f
}

func TestFlags_ApplyOnlyChanged(t *testing.T) {
	withHome(t)
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.S3Bucket = "from-json"

	f := parse(t, "-l", "-3", "--retain", "--ignore", "a,b", "--remote-timeout", "1m", "--keeper", "/tmp/k.db")
	require.NoError(t, f.Apply(cfg))

	assert.Equal(t, -3, cfg.CompressionLevel)
	assert.True(t, cfg.Retain)
	assert.Equal(t, []string{"a", "b"}, cfg.IgnoreDirectories)
	assert.Equal(t, time.Minute, cfg.RemoteTimeout)
	assert.Equal(t, "/tmp/k.db", cfg.KeeperPath)

	assert.Equal(t, "from-json", cfg.S3Bucket, "unset flag must not override")
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestFlags_ExplicitZeroOverrides(t *testing.T) {
	withHome(t)
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.Retain = true

	f := parse(t, "--retain=false", "--level", "0")
	require.NoError(t, f.Apply(cfg))

	assert.False(t, cfg.Retain)
	assert.Equal(t, 0, cfg.CompressionLevel)
}

func TestFlags_BadTimeout(t *testing.T) {
	withHome(t)
	cfg := &Config{}
	cfg.LoadDefaults()

	f := parse(t, "--remote-timeout", "later")
	assert.ErrorIs(t, f.Apply(cfg), common.ErrConfig)
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout)
}
