package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/cryptkeeper/internal/artifact"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
)

// EncryptDir encrypts every plain file under root. Artifacts are skipped,
// ignored directories are not entered, and one file failing does not stop
// the others.
func (s *FileService) EncryptDir(ctx context.Context, root string) *BatchReport {
	report := &BatchReport{}

	for info, err := range filex.Walk(root, s.cfg.IgnoreDirectories) {
		if err != nil {
			report.fail(info.FullPath, &common.FileError{Op: "walk", Path: info.FullPath, Err: fmt.Errorf("%w: %v", common.ErrIO, err)})
			continue
		}
		if info.IsDir {
			continue
		}
		if ctx.Err() != nil {
			report.fail(info.FullPath, ctx.Err())
			break
		}
		if artifact.IsArtifact(info.Name) {
			report.Skipped = append(report.Skipped, info.FullPath)
			continue
		}

		out, err := s.EncryptFile(ctx, info.FullPath)
		if err != nil {
			s.logger.Warn(ctx, "encrypt failed", "path", info.FullPath, "error", err)
			report.fail(info.FullPath, err)
			continue
		}
		report.ok(out)
	}

	return report
}

// DecryptDir decrypts every artifact under root. With an output directory
// the layout below root is recreated there; otherwise each plaintext lands
// next to its artifact.
func (s *FileService) DecryptDir(ctx context.Context, root, output string) *BatchReport {
	report := &BatchReport{}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		report.fail(root, &common.FileError{Op: "walk", Path: root, Err: fmt.Errorf("%w: %v", common.ErrIO, err)})
		return report
	}

	for info, err := range filex.Walk(absRoot, s.cfg.IgnoreDirectories) {
		if err != nil {
			report.fail(info.FullPath, &common.FileError{Op: "walk", Path: info.FullPath, Err: fmt.Errorf("%w: %v", common.ErrIO, err)})
			continue
		}
		if info.IsDir {
			continue
		}
		if ctx.Err() != nil {
			report.fail(info.FullPath, ctx.Err())
			break
		}
		if !artifact.IsArtifact(info.Name) {
			report.Skipped = append(report.Skipped, info.FullPath)
			continue
		}

		dest := ""
		if output != "" {
			rel, err := filepath.Rel(absRoot, info.Parent)
			if err != nil {
				report.fail(info.FullPath, err)
				continue
			}
			if dest, err = filex.EnsureDir(filepath.Join(output, rel)); err != nil {
				report.fail(info.FullPath, &common.FileError{Op: "decrypt", Path: info.FullPath, Err: fmt.Errorf("%w: %v", common.ErrIO, err)})
				continue
			}
		}

		out, err := s.DecryptFile(ctx, info.FullPath, dest)
		if err != nil {
			s.logger.Warn(ctx, "decrypt failed", "path", info.FullPath, "error", err)
			report.fail(info.FullPath, err)
			continue
		}
		report.ok(out)
	}

	return report
}

// Encrypt dispatches to EncryptFile or EncryptDir.
func (s *FileService) Encrypt(ctx context.Context, path string) (*BatchReport, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &common.FileError{Op: "encrypt", Path: path, Err: fmt.Errorf("%w: %v", common.ErrIO, err)}
	}
	if fi.IsDir() {
		return s.EncryptDir(ctx, path), nil
	}

	report := &BatchReport{}
	out, err := s.EncryptFile(ctx, path)
	if err != nil {
		report.fail(path, err)
	} else {
		report.ok(out)
	}
	return report, nil
}

// Decrypt dispatches to DecryptFile or DecryptDir.
func (s *FileService) Decrypt(ctx context.Context, path, output string) (*BatchReport, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &common.FileError{Op: "decrypt", Path: path, Err: fmt.Errorf("%w: %v", common.ErrIO, err)}
	}
	if fi.IsDir() {
		return s.DecryptDir(ctx, path, output), nil
	}

	report := &BatchReport{}
	out, err := s.DecryptFile(ctx, path, output)
	if err != nil {
		report.fail(path, err)
	} else {
		report.ok(out)
	}
	return report, nil
}
