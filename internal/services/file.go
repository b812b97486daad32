package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/cryptkeeper/internal/artifact"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/dmitrijs2005/cryptkeeper/internal/cryptox"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	"github.com/dmitrijs2005/cryptkeeper/internal/keeper"
	"github.com/dmitrijs2005/cryptkeeper/internal/logging"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
	"github.com/google/uuid"
)

// newID is a seam for collision tests.
var newID = uuid.NewString

// FileService encrypts and decrypts files against a keeper.
type FileService struct {
	store  keeper.Repository
	cfg    *config.Config
	logger logging.Logger
}

func NewFileService(store keeper.Repository, cfg *config.Config, logger logging.Logger) *FileService {
	return &FileService{store: store, cfg: cfg, logger: logger}
}

// EncryptFile turns the plaintext at path into an artifact next to it.
//
// Encrypting a path that already has a record reuses the record's id and
// remote id with a fresh key and nonce. The record is stored before the
// artifact is written; the source is removed afterwards unless Retain is
// configured.
func (s *FileService) EncryptFile(ctx context.Context, path string) (*Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &common.FileError{Op: "encrypt", Path: path, Err: fmt.Errorf("%w: %v", common.ErrIO, err)}
	}

	out, err := s.encrypt(ctx, abs)
	if err != nil {
		id := ""
		if out != nil {
			id = out.ID
		}
		return nil, &common.FileError{Op: "encrypt", Path: abs, ID: id, Err: err}
	}
	return out, nil
}

func (s *FileService) encrypt(ctx context.Context, abs string) (*Outcome, error) {
	if artifact.IsArtifact(abs) {
		return nil, fmt.Errorf("%w: already encrypted", common.ErrFormat)
	}

	data, err := readRegular(abs)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(data)

	rec, prev, err := s.recordFor(ctx, abs)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Source: abs, Output: artifact.OutputPath(abs), ID: rec.ID, Reused: prev != nil}

	if err := checkTarget(outcome.Output, rec.ID); err != nil {
		return outcome, err
	}

	compressed, err := cryptox.Compress(data, s.cfg.CompressionLevel)
	if err != nil {
		return outcome, err
	}
	ciphertext, err := cryptox.Encrypt(rec.Key, rec.Nonce, compressed)
	common.WipeByteArray(compressed)
	if err != nil {
		return outcome, err
	}

	if err := s.store.CreateOrUpdate(ctx, rec); err != nil {
		return outcome, err
	}

	if err := filex.WriteAtomic(outcome.Output, artifact.Tag(rec.ID, ciphertext), 0o600); err != nil {
		if prev != nil {
			// the old artifact is still on disk and needs the old key
			if rerr := s.store.CreateOrUpdate(ctx, prev); rerr != nil {
				s.logger.Error(ctx, "restore record failed", "id", rec.ID, "error", rerr)
			}
		}
		return outcome, fmt.Errorf("%w: %v", common.ErrIO, err)
	}

	if !s.cfg.Retain {
		if err := os.Remove(abs); err != nil {
			return outcome, fmt.Errorf("%w: remove source: %v", common.ErrIO, err)
		}
	}

	s.logger.Debug(ctx, "encrypted", "path", abs, "id", rec.ID, "artifact", outcome.Output, "reused", outcome.Reused)
	return outcome, nil
}

// recordFor returns the record to encrypt abs with and, for a re-encryption,
// the record as it was before.
func (s *FileService) recordFor(ctx context.Context, abs string) (*models.Record, *models.Record, error) {
	key, err := cryptox.GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	nonce, err := cryptox.GenerateNonce()
	if err != nil {
		return nil, nil, err
	}

	existing, err := s.store.GetByPath(ctx, abs)
	switch {
	case err == nil:
		rec := existing.Clone()
		rec.Key, rec.Nonce = key, nonce
		return rec, existing, nil
	case !errors.Is(err, common.ErrRecordNotFound):
		return nil, nil, err
	}

	id := newID()
	if _, err := s.store.Get(ctx, id); err == nil {
		return nil, nil, fmt.Errorf("%w: %s", common.ErrRecordCollision, id)
	} else if !errors.Is(err, common.ErrRecordNotFound) {
		return nil, nil, err
	}

	stem, ext := artifact.SplitName(filepath.Base(abs))
	return &models.Record{
		ID:        id,
		Key:       key,
		Nonce:     nonce,
		FileName:  stem,
		Extension: ext,
		FullPath:  abs,
	}, nil, nil
}

// checkTarget refuses to overwrite an existing file at out unless it is the
// artifact of the same record.
func checkTarget(out, id string) error {
	ok, err := filex.Exists(out)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	if !ok {
		return nil
	}

	existing, err := artifact.ReadID(out)
	if err != nil || existing != id {
		return fmt.Errorf("%w: %s exists and belongs to another file", common.ErrIO, out)
	}
	return nil
}

// DecryptFile restores the plaintext of the artifact at path.
//
// output may be empty (write next to the artifact under the recorded
// name), an existing directory (write into it under the recorded name) or a
// file path. The artifact is only removed after the plaintext is written,
// and not at all when Retain is configured.
func (s *FileService) DecryptFile(ctx context.Context, path, output string) (*Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &common.FileError{Op: "decrypt", Path: path, Err: fmt.Errorf("%w: %v", common.ErrIO, err)}
	}

	out, err := s.decrypt(ctx, abs, output)
	if err != nil {
		id := ""
		if out != nil {
			id = out.ID
		}
		return nil, &common.FileError{Op: "decrypt", Path: abs, ID: id, Err: err}
	}
	return out, nil
}

func (s *FileService) decrypt(ctx context.Context, abs, output string) (*Outcome, error) {
	data, err := readRegular(abs)
	if err != nil {
		return nil, err
	}

	id, ciphertext, err := artifact.Parse(data)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Source: abs, ID: id}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return outcome, err
	}

	compressed, err := cryptox.Decrypt(rec.Key, rec.Nonce, ciphertext)
	if err != nil {
		return outcome, err
	}
	plaintext, err := cryptox.Decompress(compressed)
	common.WipeByteArray(compressed)
	if err != nil {
		return outcome, err
	}
	defer common.WipeByteArray(plaintext)

	outcome.Output, err = destination(abs, output, rec)
	if err != nil {
		return outcome, err
	}

	if err := filex.WriteAtomic(outcome.Output, plaintext, 0o600); err != nil {
		return outcome, fmt.Errorf("%w: %v", common.ErrIO, err)
	}

	if !s.cfg.Retain {
		if err := os.Remove(abs); err != nil {
			return outcome, fmt.Errorf("%w: remove artifact: %v", common.ErrIO, err)
		}
	}

	s.logger.Debug(ctx, "decrypted", "path", abs, "id", id, "output", outcome.Output)
	return outcome, nil
}

func destination(abs, output string, rec *models.Record) (string, error) {
	if output == "" {
		return filepath.Join(filepath.Dir(abs), rec.OriginalName()), nil
	}

	fi, err := os.Stat(output)
	switch {
	case err == nil && fi.IsDir():
		return filepath.Join(output, rec.OriginalName()), nil
	case err == nil || os.IsNotExist(err):
		return output, nil
	default:
		return "", fmt.Errorf("%w: %v", common.ErrIO, err)
	}
}

func readRegular(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file", common.ErrIO)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	return data, nil
}
