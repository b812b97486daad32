package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/services"
	"go.uber.org/multierr"
)

// Transfer is one file moved between local disk and remote storage.
type Transfer struct {
	Local    string
	RemoteID string
	// RecordID is set for artifacts whose record was found in the keeper.
	RecordID string
	// Replaced is set when an existing remote file was overwritten.
	Replaced bool
}

// Report describes a synchronization run.
type Report struct {
	// RootID is the remote id the run was anchored at.
	RootID string
	// FolderIDs maps local directories to the remote folders mirroring them.
	FolderIDs   map[string]string
	Transferred []Transfer
	// Decrypted lists artifacts restored by a download.
	Decrypted []*services.Outcome
	Failed    []services.Failure
	// Skipped lists items never attempted because the run was aborted.
	Skipped []string
	// Aborted is set when the remote rejected our credentials mid-run.
	Aborted bool
}

// Err combines every item failure.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}

// run holds the state shared by the tasks of one synchronization pass.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	report *Report
}

func newRun(ctx context.Context) *run {
	ctx, cancel := context.WithCancel(ctx)
	return &run{
		ctx:    ctx,
		cancel: cancel,
		report: &Report{FolderIDs: map[string]string{}},
	}
}

// fail records a failed item. Credentials being rejected aborts the run;
// items cut short by that abort count as skipped.
func (r *run) fail(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.report.Aborted && errors.Is(err, context.Canceled) {
		r.report.Skipped = append(r.report.Skipped, path)
		return
	}

	r.report.Failed = append(r.report.Failed, services.Failure{Path: path, Err: err})
	if errors.Is(err, common.ErrRemoteAuthExpired) && !r.report.Aborted {
		r.report.Aborted = true
		r.cancel()
	}
}

func (r *run) done(t Transfer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Transferred = append(r.report.Transferred, t)
}

func (r *run) folder(local string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.report.FolderIDs[local]
	return id, ok
}

func (r *run) setFolder(local, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.FolderIDs[local] = id
}
