// Package config loads runtime configuration for cryptkeeper.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file, by default $HOME/.config/cryptkeeper/config.json
//     (see DefaultPath), or the file named by --config.
//  3. Command-line flags (see BindFlags / ApplyFlags); only flags that were
//     actually set override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "30s" or integer
// nanoseconds:
//
//	{
//	  "keeper_driver": "sqlite",
//	  "database_path": "/home/me/.config/cryptkeeper/keeper.db",
//	  "retain": false,
//	  "zstd_level": 3,
//	  "ignore_directories": [".git", "node_modules"],
//	  "remote_root": "Crypt",
//	  "concurrency": 4,
//	  "remote_timeout": "30s",
//	  "remote_retries": 3,
//	  "s3_bucket": "my-bucket",
//	  "s3_region": "us-east-1"
//	}
//
// The package does not read environment variables; the AWS SDK still falls
// back to its own credential chain when no static keys are configured.
package config
