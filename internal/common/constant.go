// Package common contains shared constants and sentinel errors used across
// cryptkeeper components.
package common

const (
	// AppDirName is the directory under the user's config dir holding the
	// keeper database and the JSON configuration.
	AppDirName = "cryptkeeper"

	// DefaultRemoteRoot is the well-known remote folder every upload hangs off.
	DefaultRemoteRoot = "Crypt"
)
