package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cryptkeeper/internal/artifact"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/filex"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
	"golang.org/x/sync/errgroup"
)

type fetch struct {
	remoteID string
	local    string
}

// Download recreates the remote folder at remotePath under dest and
// decrypts every artifact it brings down. Downloads run concurrently;
// decryption runs afterwards, one file at a time.
func (s *Synchronizer) Download(ctx context.Context, remotePath, dest string) (*Report, error) {
	tree, err := s.View(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	root, err := filex.EnsureDir(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
	}

	r := newRun(ctx)
	defer r.cancel()
	r.report.RootID = tree.ID
	r.setFolder(root, tree.ID)

	var jobs []fetch
	s.plan(r, tree, root, &jobs)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if err := r.ctx.Err(); err != nil {
				r.fail(job.local, err)
				return nil
			}

			err := s.call(r.ctx, "download", func(ctx context.Context) error {
				return s.storage.Download(ctx, job.remoteID, job.local)
			})
			if err != nil {
				r.fail(job.local, &common.FileError{Op: "download", Path: job.local, Err: err})
				return nil
			}
			r.done(Transfer{Local: job.local, RemoteID: job.remoteID})
			return nil
		})
	}
	_ = g.Wait()

	for _, t := range r.report.Transferred {
		if !artifact.IsArtifact(t.Local) {
			continue
		}
		if err := r.ctx.Err(); err != nil {
			r.fail(t.Local, err)
			continue
		}

		out, err := s.files.DecryptFile(r.ctx, t.Local, "")
		if err != nil {
			r.fail(t.Local, err)
			continue
		}
		r.report.Decrypted = append(r.report.Decrypted, out)
	}

	s.logger.Info(ctx, "download finished",
		"remote", remotePath,
		"downloaded", len(r.report.Transferred),
		"decrypted", len(r.report.Decrypted),
		"failed", len(r.report.Failed))

	if r.report.Aborted {
		return r.report, fmt.Errorf("download aborted: %w", common.ErrRemoteAuthExpired)
	}
	return r.report, nil
}

// plan creates the local folders for node and queues its files.
func (s *Synchronizer) plan(r *run, node *models.RemoteNode, local string, jobs *[]fetch) {
	for _, c := range node.Children {
		target := filepath.Join(local, c.Name)
		if !safeName(c.Name) {
			r.fail(target, fmt.Errorf("%w: unsafe remote name %q", common.ErrRemote, c.Name))
			continue
		}

		if !c.IsDir {
			*jobs = append(*jobs, fetch{remoteID: c.ID, local: target})
			continue
		}

		dir, err := filex.EnsureDir(target)
		if err != nil {
			r.fail(target, &common.FileError{Op: "download", Path: target, Err: fmt.Errorf("%w: %v", common.ErrIO, err)})
			continue
		}
		r.setFolder(dir, c.ID)
		s.plan(r, c, dir, jobs)
	}
}

func safeName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
