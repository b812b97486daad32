package syncer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/cryptkeeper/internal/artifact"
	"github.com/dmitrijs2005/cryptkeeper/internal/cloud"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/config"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	"github.com/dmitrijs2005/cryptkeeper/internal/keeper"
	"github.com/dmitrijs2005/cryptkeeper/internal/logging"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
	"github.com/dmitrijs2005/cryptkeeper/internal/services"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

const defaultBackoff = 250 * time.Millisecond

type Synchronizer struct {
	storage cloud.Storage
	store   keeper.Repository
	files   *services.FileService
	cfg     *config.Config
	logger  logging.Logger

	// backoff is the first retry delay; it doubles on every attempt.
	backoff time.Duration
}

func New(storage cloud.Storage, store keeper.Repository, files *services.FileService, cfg *config.Config, logger logging.Logger) *Synchronizer {
	return &Synchronizer{
		storage: storage,
		store:   store,
		files:   files,
		cfg:     cfg,
		logger:  logger,
		backoff: defaultBackoff,
	}
}

// call runs f with a per-attempt timeout, retrying transient remote
// failures with exponential backoff.
func (s *Synchronizer) call(ctx context.Context, op string, f func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(uint64(s.cfg.RemoteRetries), retry.NewExponential(s.backoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		defer cancel()

		err := f(attemptCtx)
		if errors.Is(err, common.ErrRemoteTransient) {
			s.logger.Debug(ctx, "remote call failed, retrying", "op", op, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// ensureFolder returns the id of folder name under parentID, creating it
// when it does not exist yet.
func (s *Synchronizer) ensureFolder(ctx context.Context, parentID, name string) (string, error) {
	var id string
	err := s.call(ctx, "ensure folder", func(ctx context.Context) error {
		found, ok, err := s.storage.FolderExists(ctx, parentID, name)
		if err != nil {
			return err
		}
		if ok {
			id = found
			return nil
		}
		id, err = s.storage.CreateFolder(ctx, parentID, name)
		return err
	})
	return id, err
}

var walkTree = filex.Walk

// Upload mirrors localPath under the remote root. A directory becomes a
// folder of the same name; a single file goes straight into the root.
//
// Per-item failures are collected in the report. The returned error is
// reserved for failures that stop the whole run: an unreachable root, an
// unreadable local root, rejected credentials or a failed keeper update.
func (s *Synchronizer) Upload(ctx context.Context, localPath string) (*Report, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
	}

	r := newRun(ctx)
	defer r.cancel()

	// an unreadable subtree fails on its own; only a missing root stops the run
	var entries []models.PathInfo
	for info, err := range walkTree(abs, s.cfg.IgnoreDirectories) {
		if err != nil {
			if len(entries) == 0 {
				return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
			}
			s.logger.Warn(ctx, "walk failed", "path", info.FullPath, "error", err)
			r.fail(info.FullPath, &common.FileError{Op: "walk", Path: info.FullPath,
				Err: fmt.Errorf("%w: %v", common.ErrIO, err)})
			continue
		}
		entries = append(entries, info)
	}

	rootID, err := s.ensureFolder(r.ctx, "", s.cfg.RemoteRoot)
	if err != nil {
		return r.report, fmt.Errorf("resolve remote root: %w", err)
	}
	r.report.RootID = rootID

	top := entries[0]
	var files []models.PathInfo
	if top.IsDir {
		id, err := s.ensureFolder(r.ctx, rootID, top.Name)
		if err != nil {
			return r.report, fmt.Errorf("mirror %s: %w", abs, err)
		}
		r.setFolder(abs, id)

		var levels [][]models.PathInfo
		levels, files = byLevel(entries[1:])
		for _, level := range levels {
			s.mirrorLevel(r, level)
		}
	} else {
		r.setFolder(top.Parent, rootID)
		files = entries
	}

	remote := s.uploadFiles(r, files)

	// runs after an abort too, and survives the caller giving up
	if err := s.reconcile(context.WithoutCancel(ctx), remote); err != nil {
		return r.report, err
	}

	s.logger.Info(ctx, "upload finished",
		"path", abs,
		"uploaded", len(r.report.Transferred),
		"failed", len(r.report.Failed),
		"skipped", len(r.report.Skipped))

	if r.report.Aborted {
		return r.report, fmt.Errorf("upload aborted: %w", common.ErrRemoteAuthExpired)
	}
	return r.report, nil
}

// byLevel splits entries into directories grouped by depth, shallowest
// first, and files.
func byLevel(entries []models.PathInfo) ([][]models.PathInfo, []models.PathInfo) {
	var (
		levels [][]models.PathInfo
		files  []models.PathInfo
	)
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e)
			continue
		}
		for len(levels) < e.Depth {
			levels = append(levels, nil)
		}
		levels[e.Depth-1] = append(levels[e.Depth-1], e)
	}
	return levels, files
}

func (s *Synchronizer) mirrorLevel(r *run, level []models.PathInfo) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for _, dir := range level {
		g.Go(func() error {
			if err := r.ctx.Err(); err != nil {
				r.fail(dir.FullPath, err)
				return nil
			}

			parentID, ok := r.folder(dir.Parent)
			if !ok {
				r.fail(dir.FullPath, &common.FileError{Op: "mirror", Path: dir.FullPath,
					Err: fmt.Errorf("%w: parent folder was not mirrored", common.ErrRemote)})
				return nil
			}

			id, err := s.ensureFolder(r.ctx, parentID, dir.Name)
			if err != nil {
				r.fail(dir.FullPath, &common.FileError{Op: "mirror", Path: dir.FullPath, Err: err})
				return nil
			}
			r.setFolder(dir.FullPath, id)
			s.logger.Debug(r.ctx, "folder mirrored", "path", dir.FullPath, "remote_id", id)
			return nil
		})
	}
	_ = g.Wait()
}

// uploadFiles uploads files concurrently and returns the remote id of
// every artifact keyed by record id.
func (s *Synchronizer) uploadFiles(r *run, files []models.PathInfo) map[string]string {
	var (
		mu     sync.Mutex
		remote = map[string]string{}
		g      errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, f := range files {
		g.Go(func() error {
			if err := r.ctx.Err(); err != nil {
				r.fail(f.FullPath, err)
				return nil
			}

			parentID, ok := r.folder(f.Parent)
			if !ok {
				r.fail(f.FullPath, &common.FileError{Op: "upload", Path: f.FullPath,
					Err: fmt.Errorf("%w: parent folder was not mirrored", common.ErrRemote)})
				return nil
			}

			t, err := s.uploadFile(r.ctx, f, parentID)
			if err != nil {
				r.fail(f.FullPath, &common.FileError{Op: "upload", Path: f.FullPath, ID: t.RecordID, Err: err})
				return nil
			}

			r.done(*t)
			if t.RecordID != "" {
				mu.Lock()
				remote[t.RecordID] = t.RemoteID
				mu.Unlock()
			}
			s.logger.Debug(r.ctx, "uploaded", "path", f.FullPath, "id", t.RecordID, "remote_id", t.RemoteID, "replaced", t.Replaced)
			return nil
		})
	}
	_ = g.Wait()

	return remote
}

// uploadFile sends one file. An artifact whose record still points at an
// existing remote file replaces it; anything else is a new upload.
func (s *Synchronizer) uploadFile(ctx context.Context, f models.PathInfo, parentID string) (*Transfer, error) {
	t := &Transfer{Local: f.FullPath}

	var rec *models.Record
	if artifact.IsArtifact(f.Name) {
		id, err := artifact.ReadID(f.FullPath)
		if err != nil {
			return t, err
		}

		rec, err = s.store.Get(ctx, id)
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			s.logger.Warn(ctx, "artifact has no keeper record, uploading untracked", "path", f.FullPath, "id", id)
		case err != nil:
			return t, err
		default:
			t.RecordID = rec.ID
		}
	}

	if rec != nil && rec.RemoteID != "" {
		var exists bool
		err := s.call(ctx, "id exists", func(ctx context.Context) (err error) {
			exists, err = s.storage.IDExists(ctx, rec.RemoteID)
			return err
		})
		if err != nil {
			return t, err
		}

		if exists {
			err = s.call(ctx, "replace", func(ctx context.Context) (err error) {
				t.RemoteID, err = s.storage.Replace(ctx, rec.RemoteID, f.FullPath)
				return err
			})
			t.Replaced = err == nil
			return t, err
		}
		s.logger.Info(ctx, "remote copy is gone, uploading again", "path", f.FullPath, "remote_id", rec.RemoteID)
	}

	err := s.call(ctx, "upload", func(ctx context.Context) (err error) {
		t.RemoteID, err = s.storage.Upload(ctx, f.FullPath, parentID)
		return err
	})
	return t, err
}

// reconcile writes the remote ids learned during a run into the keeper in
// one batch. Records are re-read so nothing else about them is clobbered.
func (s *Synchronizer) reconcile(ctx context.Context, remote map[string]string) error {
	var recs []*models.Record
	for _, id := range slices.Sorted(maps.Keys(remote)) {
		rec, err := s.store.Get(ctx, id)
		if errors.Is(err, common.ErrRecordNotFound) {
			s.logger.Warn(ctx, "record vanished before reconciliation", "id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", id, err)
		}

		if rec.RemoteID == remote[id] {
			continue
		}
		rec.RemoteID = remote[id]
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil
	}
	if err := s.store.UpsertBatch(ctx, recs); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	s.logger.Info(ctx, "keeper reconciled", "records", len(recs))
	return nil
}

// View returns the remote tree at remotePath, a slash separated path
// relative to the remote root. It never touches the keeper.
func (s *Synchronizer) View(ctx context.Context, remotePath string) (*models.RemoteNode, error) {
	id, err := s.resolve(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	var tree *models.RemoteNode
	err = s.call(ctx, "walk", func(ctx context.Context) (err error) {
		tree, err = s.storage.Walk(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (s *Synchronizer) resolve(ctx context.Context, remotePath string) (string, error) {
	segments := append([]string{s.cfg.RemoteRoot}, splitRemote(remotePath)...)

	id := ""
	for i, name := range segments {
		var (
			found string
			ok    bool
		)
		err := s.call(ctx, "folder exists", func(ctx context.Context) (err error) {
			found, ok, err = s.storage.FolderExists(ctx, id, name)
			return err
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: folder %q not found", common.ErrRemote, strings.Join(segments[:i+1], "/"))
		}
		id = found
	}
	return id, nil
}

func splitRemote(p string) []string {
	return slices.DeleteFunc(strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	}), func(s string) bool { return s == "." })
}
