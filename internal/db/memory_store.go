package db

import (
	"fmt"
	"sync"
	"time"

	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// DefaultJobTTL is how long finished jobs stay queryable.
const DefaultJobTTL = 24 * time.Hour

// MemoryStore implements JobStore with a mutex-guarded map.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]models.ScanJob
	ttl  time.Duration
}

var _ JobStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A non-positive ttl uses
// DefaultJobTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &MemoryStore{jobs: make(map[string]models.ScanJob), ttl: ttl}
}

func (s *MemoryStore) Create(job models.ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("create %s: %w", job.ID, ErrJobExists)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(id string) (models.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.ScanJob{}, models.ErrJobNotFound
	}
	return job, nil
}

func (s *MemoryStore) Update(id string, fn func(*models.ScanJob) error) (models.ScanJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.ScanJob{}, fmt.Errorf("update %s: %w", id, models.ErrJobNotFound)
	}
	if err := fn(&job); err != nil {
		return s.jobs[id], err
	}
	s.jobs[id] = job
	return job, nil
}

func (s *MemoryStore) EvictExpired(now time.Time) int {
	start := time.Now()
	defer logger.Trace("MemoryStore.EvictExpired", start)

	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// Len is the number of stored jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
