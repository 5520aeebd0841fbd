// Package scan matches the pattern catalog against commit diffs and the
// checked-out working tree, and folds the findings into a result.
package scan

import (
	"context"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

// Scanner runs one pass over a checked-out repository.
type Scanner interface {
	Run(ctx context.Context, repoPath string) ([]models.Finding, error)
}

var _ Scanner = (*TreeScanner)(nil)
