package keeper

import (
	"context"
	"io"
	"sync"

	"github.com/dmitrijs2005/cryptkeeper/internal/models"
)

// Store serializes writers and lets readers share access to a Repository.
// Records are read through on every call; nothing is cached.
type Store struct {
	mu     sync.RWMutex
	repo   Repository
	closer io.Closer
}

var _ Repository = (*Store)(nil)

// NewStore wraps repo. closer, when non-nil, is released by Close.
func NewStore(repo Repository, closer io.Closer) *Store {
	return &Store{repo: repo, closer: closer}
}

func (s *Store) CreateOrUpdate(ctx context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.CreateOrUpdate(ctx, rec)
}

func (s *Store) Get(ctx context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.Get(ctx, id)
}

func (s *Store) GetByPath(ctx context.Context, fullPath string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.GetByPath(ctx, fullPath)
}

func (s *Store) List(ctx context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.List(ctx)
}

func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.DeleteAll(ctx)
}

func (s *Store) UpsertBatch(ctx context.Context, recs []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.UpsertBatch(ctx, recs)
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
