package keeper

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/cryptox"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// CSVHeader is the first row of an export.
var CSVHeader = []string{"id", "filename", "extension", "full_path", "key", "nonce", "remote_id"}

// WriteCSV writes recs to w, key and nonce hex encoded.
func WriteCSV(w io.Writer, recs []*models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.ID,
			r.FileName,
			r.Extension,
			r.FullPath,
			hex.EncodeToString(r.Key),
			hex.EncodeToString(r.Nonce),
			r.RemoteID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses an export. Every row is validated before anything is
// returned; the first bad row fails the whole read with common.ErrFormat.
func ReadCSV(r io.Reader) ([]*models.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty keeper export", common.ErrFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", common.ErrFormat, err)
	}
	if !slices.Equal(header, CSVHeader) {
		return nil, fmt.Errorf("%w: unexpected header %v", common.ErrFormat, header)
	}

	var recs []*models.Record
	for row := 2; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", common.ErrFormat, row, err)
		}

		rec, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", common.ErrFormat, row, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseRow(f []string) (*models.Record, error) {
	if f[0] == "" {
		return nil, errors.New("empty id")
	}
	key, err := hex.DecodeString(f[4])
	if err != nil {
		return nil, fmt.Errorf("key: %v", err)
	}
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", cryptox.KeySize, len(key))
	}
	nonce, err := hex.DecodeString(f[5])
	if err != nil {
		return nil, fmt.Errorf("nonce: %v", err)
	}
	if len(nonce) != cryptox.NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", cryptox.NonceSize, len(nonce))
	}

	return &models.Record{
		ID:        f[0],
		FileName:  f[1],
		Extension: f[2],
		FullPath:  f[3],
		Key:       key,
		Nonce:     nonce,
		RemoteID:  f[6],
	}, nil
}

// Export writes every record to path as CSV and returns how many were
// written. The file holds key material and is created with mode 0600.
func (s *Store) Export(ctx context.Context, path string) (int, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		return 0, fmt.Errorf("%w: encode export: %v", common.ErrIO, err)
	}
	if err := filex.WriteAtomic(path, buf.Bytes(), 0o600); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	return len(recs), nil
}

// Import upserts every record of the CSV at path in one transaction, so
// importing the same file twice leaves the keeper unchanged.
func (s *Store) Import(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	defer f.Close()

	recs, err := ReadCSV(f)
	if err != nil {
		return 0, err
	}
	if err := s.UpsertBatch(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}
