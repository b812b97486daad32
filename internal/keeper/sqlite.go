package keeper

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/dbx"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// SQLiteRepository stores records in a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, rec *models.Record) error {
	return sqliteUpsert(ctx, r.db, rec)
}

func sqliteUpsert(ctx context.Context, db dbx.DBTX, rec *models.Record) error {
	query := `INSERT INTO records (` + recordColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				filename = excluded.filename,
				extension = excluded.extension,
				full_path = excluded.full_path,
				key = excluded.key,
				nonce = excluded.nonce,
				remote_id = excluded.remote_id
	`
	_, err := db.ExecContext(ctx, query,
		rec.ID, rec.FileName, rec.Extension, rec.FullPath, rec.Key, rec.Nonce, rec.RemoteID)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "id "+id)
	}
	return rec, nil
}

// GetByPath returns the most recently created record for the plaintext path.
func (r *SQLiteRepository) GetByPath(ctx context.Context, fullPath string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE full_path = ? ORDER BY rowid DESC LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, fullPath))
	if err != nil {
		return nil, notFound(err, "path "+fullPath)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records ORDER BY full_path, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting records: %w", err)
	}
	return scanRecords(rows)
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to purge records: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertBatch(ctx context.Context, recs []*models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			if err := sqliteUpsert(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
