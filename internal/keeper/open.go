package keeper

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to the keeper selected by cfg, applies migrations and
// returns a ready Store.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.KeeperDriver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.KeeperPath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.KeeperDSN)
	default:
		return nil, fmt.Errorf("%w: unknown keeper driver %q", common.ErrConfig, cfg.KeeperDriver)
	}
}

// OpenSQLite opens (creating if needed) the SQLite keeper at path. ":memory:"
// gives a private in-memory keeper.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	// one connection: writers are serialized anyway and an in-memory
	// database only exists on the connection that created it
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	if err := RunMigrations(ctx, db, DialectSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewStore(NewSQLiteRepository(db), db), nil
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(ctx, db, DialectPostgres); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewStore(NewPostgresRepository(db), db), nil
}
