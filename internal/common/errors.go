// Package common defines shared constants and sentinel errors used across
// cryptkeeper. Callers should use errors.Is to match these values; the
// specific sentinels wrap their family sentinel so both match.
package common

import (
	"errors"
	"fmt"
)

// Filesystem errors.
var (
	// ErrIO marks local read/write failures.
	ErrIO = errors.New("i/o error")
)

// Artifact errors.
var (
	// ErrFormat marks a malformed artifact header or keeper import row.
	ErrFormat = errors.New("malformed data")
)

// Codec errors.
var (
	ErrCodec = errors.New("codec error")

	// ErrCorrupt marks a compressed stream that cannot be decoded.
	ErrCorrupt = fmt.Errorf("%w: corrupt stream", ErrCodec)
)

// Crypto errors.
var (
	ErrCrypto = errors.New("crypto error")

	// ErrEncryptFailed is returned only on misuse (bad key or nonce size).
	ErrEncryptFailed = fmt.Errorf("%w: encryption failed", ErrCrypto)

	// ErrAuthenticationFailed means the authentication tag did not verify:
	// wrong key, wrong nonce or tampered bytes.
	ErrAuthenticationFailed = fmt.Errorf("%w: authentication failed", ErrCrypto)
)

// Keeper errors.
var (
	// ErrRecordNotFound means the keeper has no record for an identifier.
	// Without the record the artifact cannot be decrypted.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordCollision means a freshly generated identifier already
	// belongs to another record.
	ErrRecordCollision = errors.New("record identifier collision")
)

// Remote errors.
var (
	ErrRemote = errors.New("remote error")

	// ErrRemoteTransient marks failures worth retrying (network, throttling, 5xx).
	ErrRemoteTransient = fmt.Errorf("%w: transient failure", ErrRemote)

	// ErrRemoteAuthExpired marks rejected or expired credentials. Every
	// further call would fail the same way.
	ErrRemoteAuthExpired = fmt.Errorf("%w: authentication expired", ErrRemote)
)

// Configuration errors.
var (
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidLevel is an out-of-range compression level. It is both a
	// codec and a configuration error.
	ErrInvalidLevel = fmt.Errorf("%w: %w: compression level out of range", ErrCodec, ErrConfig)
)

// kinds lists the sentinels from most to least specific.
var kinds = []error{
	ErrInvalidLevel,
	ErrCorrupt,
	ErrEncryptFailed,
	ErrAuthenticationFailed,
	ErrRemoteTransient,
	ErrRemoteAuthExpired,
	ErrRecordNotFound,
	ErrRecordCollision,
	ErrFormat,
	ErrIO,
	ErrCodec,
	ErrCrypto,
	ErrRemote,
	ErrConfig,
}

// Kind returns the most specific sentinel err matches, or nil when err does
// not belong to the taxonomy.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// FileError attaches the offending path and record identifier to an error.
type FileError struct {
	Op   string
	Path string
	ID   string
	Err  error
}

func (e *FileError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s (id %s): %v", e.Op, e.Path, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
