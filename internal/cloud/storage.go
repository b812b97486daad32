// Package cloud is the remote side of synchronization: the Storage contract
// the synchronizer talks to and its S3 implementation.
//
// Remote identifiers are opaque to callers. The root of the remote tree is
// addressed with the empty parent id.
package cloud

import (
	"context"

	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// Storage is a remote folder tree. Every method may fail with
// common.ErrRemoteTransient (worth retrying) or common.ErrRemoteAuthExpired
// (stop, nothing else will succeed).
type Storage interface {
	// FolderExists looks for a folder called name directly under parentID.
	FolderExists(ctx context.Context, parentID, name string) (string, bool, error)

	// CreateFolder creates a folder under parentID and returns its id.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// Upload stores the file at localPath under parentID, keeping its base
	// name, and returns the new remote id.
	Upload(ctx context.Context, localPath, parentID string) (string, error)

	// Replace overwrites the content of an existing remote file and returns
	// its (possibly new) id.
	Replace(ctx context.Context, remoteID, localPath string) (string, error)

	// Download writes the remote file to destPath.
	Download(ctx context.Context, remoteID, destPath string) error

	// IDExists reports whether remoteID still refers to something.
	IDExists(ctx context.Context, remoteID string) (bool, error)

	// Walk returns the tree rooted at rootID.
	Walk(ctx context.Context, rootID string) (*models.RemoteNode, error)
}

// TokenFor picks the token source configured in cfg: the token file when
// set, nothing otherwise.
func TokenFor(cfg *config.Config) TokenProvider {
	if cfg.TokenFile == "" {
		return nil
	}
	return FileToken{Path: cfg.TokenFile}
}
