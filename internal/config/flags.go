package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/spf13/pflag"
)

// Flags holds the values of the configuration flags as parsed by cobra.
// Only flags the user set are applied, so unset flags never mask the JSON
// file.
type Flags struct {
	fs *pflag.FlagSet

	keeperDriver  string
	keeperPath    string
	keeperDSN     string
	retain        bool
	level         int
	ignore        []string
	remoteRoot    string
	concurrency   int
	remoteTimeout string
	remoteRetries int
	s3Bucket      string
	s3Region      string
	s3Endpoint    string
	s3AccessKey   string
	s3SecretKey   string
	tokenFile     string
}

// BindFlags registers the configuration flags on fs.
//
//	--keeper-driver string   sqlite or postgres
//	--keeper string          SQLite keeper file
//	--keeper-dsn string      PostgreSQL DSN
//	-r, --retain             keep sources and artifacts
//	-l, --level int          zstd compression level (-7..22)
//	--ignore strings         directories to skip
//	--remote-root string     remote top folder
//	--concurrency int        parallel remote calls
//	--remote-timeout string  per-call remote timeout, e.g. 30s
//	--remote-retries int     retries on transient remote errors
//	--s3-bucket, --s3-region, --s3-endpoint, --s3-access-key,
//	--s3-secret-key, --token-file
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}

	fs.StringVar(&f.keeperDriver, "keeper-driver", "", "keeper backend: sqlite or postgres")
	fs.StringVar(&f.keeperPath, "keeper", "", "path of the SQLite keeper database")
	fs.StringVar(&f.keeperDSN, "keeper-dsn", "", "PostgreSQL DSN for the keeper")
	fs.BoolVarP(&f.retain, "retain", "r", false, "keep the source file after encrypting and the artifact after decrypting")
	fs.IntVarP(&f.level, "level", "l", 0, "zstd compression level (-7..22)")
	fs.StringSliceVar(&f.ignore, "ignore", nil, "directory names or paths to skip")
	fs.StringVar(&f.remoteRoot, "remote-root", "", "remote top folder name")
	fs.IntVar(&f.concurrency, "concurrency", 0, "parallel remote calls per level")
	fs.StringVar(&f.remoteTimeout, "remote-timeout", "", "timeout of a single remote call, e.g. 30s")
	fs.IntVar(&f.remoteRetries, "remote-retries", 0, "retries on transient remote failures")
	fs.StringVar(&f.s3Bucket, "s3-bucket", "", "S3 bucket")
	fs.StringVar(&f.s3Region, "s3-region", "", "S3 region")
	fs.StringVar(&f.s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	fs.StringVar(&f.s3AccessKey, "s3-access-key", "", "S3 access key id")
	fs.StringVar(&f.s3SecretKey, "s3-secret-key", "", "S3 secret access key")
	fs.StringVar(&f.tokenFile, "token-file", "", "file holding the remote session token")

	return f
}

// Apply overlays cfg with every flag that was set on the command line.
func (f *Flags) Apply(cfg *Config) error {
	changed := func(name string) bool {
		fl := f.fs.Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("keeper-driver") {
		cfg.KeeperDriver = f.keeperDriver
	}
	if changed("keeper") {
		cfg.KeeperPath = f.keeperPath
	}
	if changed("keeper-dsn") {
		cfg.KeeperDSN = f.keeperDSN
	}
	if changed("retain") {
		cfg.Retain = f.retain
	}
	if changed("level") {
		cfg.CompressionLevel = f.level
	}
	if changed("ignore") {
		cfg.IgnoreDirectories = f.ignore
	}
	if changed("remote-root") {
		cfg.RemoteRoot = f.remoteRoot
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("remote-timeout") {
		d, err := time.ParseDuration(f.remoteTimeout)
		if err != nil {
			return fmt.Errorf("%w: --remote-timeout: %v", common.ErrConfig, err)
		}
		cfg.RemoteTimeout = d
	}
	if changed("remote-retries") {
		cfg.RemoteRetries = f.remoteRetries
	}
	if changed("s3-bucket") {
		cfg.S3Bucket = f.s3Bucket
	}
	if changed("s3-region") {
		cfg.S3Region = f.s3Region
	}
	if changed("s3-endpoint") {
		cfg.S3BaseEndpoint = f.s3Endpoint
	}
	if changed("s3-access-key") {
		cfg.S3AccessKey = f.s3AccessKey
	}
	if changed("s3-secret-key") {
		cfg.S3SecretKey = f.s3SecretKey
	}
	if changed("token-file") {
		cfg.TokenFile = f.tokenFile
	}
	return nil
}
