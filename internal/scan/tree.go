package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// Sentinel commit context for findings from the working tree.
const (
	HeadHash    = "HEAD"
	HeadAuthor  = "Current"
	HeadMessage = "Current HEAD"
	HeadBranch  = "HEAD"
)

var scanExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".go": true, ".rb": true, ".php": true, ".env": true,
	".yaml": true, ".yml": true, ".json": true, ".xml": true, ".conf": true,
	".config": true, ".ini": true, ".sh": true, ".bash": true, ".zsh": true,
	".properties": true, ".toml": true, ".tf": true, ".tfvars": true,
	".dockerfile": true, ".sql": true, ".md": true, ".txt": true,
	".cfg": true, ".settings": true,
}

var scanNames = map[string]bool{
	"dockerfile": true, "makefile": true, ".env": true, ".env.local": true,
	".env.development": true, ".env.production": true, ".env.staging": true,
	"secrets": true, "credentials": true, "config": true,
}

// Selected reports whether a file name is part of the working-tree pass.
func Selected(name string) bool {
	lower := strings.ToLower(name)
	return scanExtensions[filepath.Ext(lower)] || scanNames[lower]
}

// TreeScanner scans the files of a checked-out working tree.
type TreeScanner struct {
	engine  *Engine
	exclude []string
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewTreeScanner validates the exclude globs (doublestar syntax, matched
// against slash-separated paths relative to the tree root).
func NewTreeScanner(engine *Engine, exclude []string, log *zap.SugaredLogger) (*TreeScanner, error) {
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, &GlobError{Pattern: p}
		}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &TreeScanner{engine: engine, exclude: exclude, log: log, now: time.Now}, nil
}

// GlobError reports an exclude pattern doublestar cannot parse.
type GlobError struct {
	Pattern string
}

func (e *GlobError) Error() string {
	return fmt.Sprintf("invalid exclude glob %q", e.Pattern)
}

// Run implements Scanner. It walks root and returns every match in the
// selected files, stamped with the HEAD sentinel and the current wall-clock
// time. Unreadable paths are skipped; only cancellation is an error.
func (s *TreeScanner) Run(ctx context.Context, root string) ([]models.Finding, error) {
	start := time.Now()
	defer logger.Trace("TreeScanner.Run", start)
	now := s.now()

	origin := source{
		hash:    HeadHash,
		author:  HeadAuthor,
		date:    now.Format(time.RFC3339),
		message: HeadMessage,
		branch:  HeadBranch,
	}

	var findings []models.Finding
	files := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.log.Debugw("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !Selected(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if s.excluded(rel) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Debugw("skipping unreadable file", "path", rel, "error", err)
			return nil
		}
		files++
		content := strings.ToValidUTF8(string(data), "")
		n := 0
		for line := range strings.SplitSeq(content, "\n") {
			n++
			findings = s.engine.appendFindings(findings, rel, n, strings.TrimSuffix(line, "\r"), origin)
		}
		return nil
	})
	s.log.Debugw("working tree scanned", "root", root, "files", files, "findings", len(findings))
	return findings, err
}

func (s *TreeScanner) excluded(rel string) bool {
	for _, p := range s.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
