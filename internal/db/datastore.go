// Package db holds the job table behind the scan API.
package db

import (
	"errors"
	"time"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

// ErrJobExists is returned by Create when the id is already taken.
var ErrJobExists = errors.New("scan id already exists")

// JobStore is the table of scan jobs. Implementations must be safe for
// concurrent use and hand out copies, never shared references.
type JobStore interface {
	// Create inserts a new job.
	Create(job models.ScanJob) error
	// Get returns the job or models.ErrJobNotFound.
	Get(id string) (models.ScanJob, error)
	// Update applies fn to the stored job under the store's lock and keeps
	// the result only when fn returns nil.
	Update(id string, fn func(*models.ScanJob) error) (models.ScanJob, error)
	// EvictExpired drops terminal jobs last updated before now minus the
	// store's TTL and returns how many were removed.
	EvictExpired(now time.Time) int
}
