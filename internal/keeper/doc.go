// Package keeper persists the per-file records: identifier, key, nonce,
// original name and location, and the remote identifier once uploaded.
//
// # Overview
//
// Repository is the storage contract. Two implementations exist:
//
//   - SQLiteRepository: default, a local file through modernc.org/sqlite
//   - PostgresRepository: a shared database through pgx
//
// Both get their schema from the goose migrations embedded in
// keeper/migrations. Store wraps a Repository with a read/write lock and adds
// CSV export and import; the rest of the program only talks to a Store.
//
// Typical Usage
//
//	store, err := keeper.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec, err := store.Get(ctx, id)
//	if errors.Is(err, common.ErrRecordNotFound) {
//	    // the artifact cannot be decrypted without its record
//	}
//
// Records are never deleted one by one. DeleteAll is the only removal and it
// is irreversible: artifacts whose records are purged are lost.
package keeper
