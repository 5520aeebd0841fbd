// Package git clones repositories and reads their full history: branch
// and commit enumeration plus per-commit diffs. Only the initial clone can
// fail a scan; every later call degrades to empty output.
package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

/* ============================== Types ============================== */

// History is the view of a repository the scan pipeline needs.
type History interface {
	// CloneFull clones url with its complete history into dest and returns
	// the path of a working copy.
	CloneFull(ctx context.Context, url, dest string) (string, error)
	// ListBranches returns the remote branch names, without the remote prefix.
	ListBranches(ctx context.Context, repoPath string) ([]string, error)
	// ListAllCommits returns every commit reachable from any ref, in
	// emission order, without duplicates.
	ListAllCommits(ctx context.Context, repoPath string) ([]models.Commit, error)
	// ShowCommitDiff returns the unified diff introduced by hash.
	ShowCommitDiff(ctx context.Context, repoPath, hash string) (string, error)
}

// Timeouts bounds every git invocation.
type Timeouts struct {
	Clone       time.Duration
	Materialize time.Duration
	Command     time.Duration
}

// DefaultTimeouts are 600s for the mirror clone and 300s for the rest.
var DefaultTimeouts = Timeouts{
	Clone:       600 * time.Second,
	Materialize: 300 * time.Second,
	Command:     300 * time.Second,
}

const (
	messageLimit = 100
	logFormat    = "--pretty=format:%H|%an|%ai|%s"
)

var defaultBranches = []string{"main", "master"}

/* ============================ CLI backend =========================== */

// CLIHistory implements History by shelling out to git.
type CLIHistory struct {
	runner   *Runner
	timeouts Timeouts
	log      *zap.SugaredLogger
}

// NewCLIHistory returns a History backed by the git binary at gitPath.
func NewCLIHistory(gitPath string, timeouts Timeouts, log *zap.SugaredLogger) *CLIHistory {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CLIHistory{
		runner:   NewRunner(gitPath, log),
		timeouts: timeouts,
		log:      log,
	}
}

// CloneFull mirror-clones url to dest+".git" and then materializes a
// working copy at dest. A failed mirror clone is returned as an error; a
// failed checkout is only logged, leaving history readable through dest if
// it exists.
func (h *CLIHistory) CloneFull(ctx context.Context, url, dest string) (string, error) {
	start := time.Now()
	defer logger.Trace("CloneFull", start)

	mirror := dest + ".git"
	_, err := h.runner.Run(ctx, Call{
		Args:    []string{"clone", "--mirror", url, mirror},
		Timeout: h.timeouts.Clone,
		Policy:  FailHard,
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}

	_, err = h.runner.Run(ctx, Call{
		Args:    []string{"clone", mirror, dest},
		Timeout: h.timeouts.Materialize,
		Policy:  FailHard,
	})
	if err != nil {
		h.log.Warnw("materializing working copy failed", "repo", url, "error", err)
	}
	return dest, nil
}

// ListBranches fetches all remotes and lists remote-tracking branches.
func (h *CLIHistory) ListBranches(ctx context.Context, repoPath string) ([]string, error) {
	if _, err := h.run(ctx, repoPath, "fetch", "--all"); err != nil {
		return nil, err
	}
	out, err := h.run(ctx, repoPath, "branch", "-r")
	if err != nil {
		return nil, err
	}
	return parseBranches(out), nil
}

// ListAllCommits runs git log --all and parses it.
func (h *CLIHistory) ListAllCommits(ctx context.Context, repoPath string) ([]models.Commit, error) {
	start := time.Now()
	defer logger.Trace("ListAllCommits", start)

	out, err := h.run(ctx, repoPath, "log", "--all", logFormat)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// ShowCommitDiff returns added, copied, deleted, modified and renamed
// changes of one commit, with the message suppressed.
func (h *CLIHistory) ShowCommitDiff(ctx context.Context, repoPath, hash string) (string, error) {
	return h.run(ctx, repoPath, "show", "--pretty=format:", "--diff-filter=ACDMR", hash)
}

func (h *CLIHistory) run(ctx context.Context, dir string, args ...string) (string, error) {
	return h.runner.Run(ctx, Call{
		Dir:     dir,
		Args:    args,
		Timeout: h.timeouts.Command,
		Policy:  ReturnEmptyOnFailure,
	})
}

/* ============================== Parsing ============================= */

// parseLog reads "hash|author|date|subject" lines. The subject may itself
// contain '|'; lines with fewer than four fields are skipped.
func parseLog(out string) []models.Commit {
	var commits []models.Commit
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 {
			continue
		}
		hash := parts[0]
		if seen[hash] {
			continue
		}
		seen[hash] = true
		commits = append(commits, models.Commit{
			Hash:    hash,
			Author:  parts[1],
			Date:    parts[2],
			Message: truncate(parts[3], messageLimit),
		})
	}
	return commits
}

func parseBranches(out string) []string {
	var branches []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "HEAD") {
			continue
		}
		name := strings.TrimPrefix(line, "origin/")
		if !seen[name] {
			seen[name] = true
			branches = append(branches, name)
		}
	}
	if len(branches) == 0 {
		return append([]string(nil), defaultBranches...)
	}
	return branches
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
