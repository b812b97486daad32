package keeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// Repository describes the record storage operations.
type Repository interface {
	// CreateOrUpdate inserts the record or overwrites every field of the
	// record with the same ID.
	CreateOrUpdate(ctx context.Context, rec *models.Record) error

	// Get returns the record with the given ID or common.ErrRecordNotFound.
	Get(ctx context.Context, id string) (*models.Record, error)

	// GetByPath returns the record last written for the plaintext at
	// fullPath or common.ErrRecordNotFound.
	GetByPath(ctx context.Context, fullPath string) (*models.Record, error)

	// List returns every record ordered by full path.
	List(ctx context.Context) ([]*models.Record, error)

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	// UpsertBatch applies CreateOrUpdate to all records in one transaction:
	// either all of them are stored or none is.
	UpsertBatch(ctx context.Context, recs []*models.Record) error
}

const recordColumns = `id, filename, extension, full_path, key, nonce, remote_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	r := &models.Record{}
	if err := row.Scan(&r.ID, &r.FileName, &r.Extension, &r.FullPath, &r.Key, &r.Nonce, &r.RemoteID); err != nil {
		return nil, err
	}
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", common.ErrRecordNotFound, what)
	}
	return fmt.Errorf("select record %s: %w", what, err)
}
