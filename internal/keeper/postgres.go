package keeper

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/dbx"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// PostgresRepository stores records in PostgreSQL through the pgx stdlib
// driver.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateOrUpdate upserts by id. Exactly one row must be affected.
func (r *PostgresRepository) CreateOrUpdate(ctx context.Context, rec *models.Record) error {
	return postgresUpsert(ctx, r.db, rec)
}

func postgresUpsert(ctx context.Context, db dbx.DBTX, rec *models.Record) error {
	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			filename = EXCLUDED.filename,
			extension = EXCLUDED.extension,
			full_path = EXCLUDED.full_path,
			key = EXCLUDED.key,
			nonce = EXCLUDED.nonce,
			remote_id = EXCLUDED.remote_id;
	`
	res, err := db.ExecContext(ctx, query,
		rec.ID, rec.FileName, rec.Extension, rec.FullPath, rec.Key, rec.Nonce, rec.RemoteID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// Get returns the record with the given id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "id "+id)
	}
	return rec, nil
}

// GetByPath returns the most recently created record for the plaintext path.
func (r *PostgresRepository) GetByPath(ctx context.Context, fullPath string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE full_path = $1 ORDER BY seq DESC LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, fullPath))
	if err != nil {
		return nil, notFound(err, "path "+fullPath)
	}
	return rec, nil
}

// List returns all records ordered by path.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records ORDER BY full_path, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	return scanRecords(rows)
}

// DeleteAll truncates the table.
func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to purge records: %w", err)
	}
	return nil
}

// UpsertBatch upserts all records inside one transaction.
func (r *PostgresRepository) UpsertBatch(ctx context.Context, recs []*models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			if err := postgresUpsert(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
