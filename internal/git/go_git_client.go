package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// dateLayout matches git's %ai.
const dateLayout = "2006-01-02 15:04:05 -0700"

// GoGitHistory implements History in-process with go-git. It needs no git
// binary on the host.
type GoGitHistory struct {
	timeouts Timeouts
	log      *zap.SugaredLogger
}

// NewGoGitHistory returns a go-git backed History.
func NewGoGitHistory(timeouts Timeouts, log *zap.SugaredLogger) *GoGitHistory {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GoGitHistory{timeouts: timeouts, log: log}
}

// CloneFull clones every branch of url into dest with a checked-out
// working tree. Remote branches land under refs/remotes/origin.
func (c *GoGitHistory) CloneFull(ctx context.Context, url, dest string) (string, error) {
	start := time.Now()
	defer logger.Trace("GoGitHistory.CloneFull", start)

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Clone)
	defer cancel()

	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}
	return dest, nil
}

// ListBranches lists remote-tracking branches without their remote name.
func (c *GoGitHistory) ListBranches(ctx context.Context, repoPath string) ([]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return c.degradeBranches("open", repoPath, err), nil
	}
	refs, err := repo.References()
	if err != nil {
		return c.degradeBranches("references", repoPath, err), nil
	}
	var lines []string
	_ = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsRemote() {
			lines = append(lines, ref.Name().Short())
		}
		return nil
	})
	return parseBranches(strings.Join(lines, "\n")), nil
}

// ListAllCommits walks the log from every reference.
func (c *GoGitHistory) ListAllCommits(ctx context.Context, repoPath string) ([]models.Commit, error) {
	start := time.Now()
	defer logger.Trace("GoGitHistory.ListAllCommits", start)

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Command)
	defer cancel()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		c.warn("open", repoPath, err)
		return nil, nil
	}
	iter, err := repo.Log(&git.LogOptions{All: true})
	if err != nil {
		c.warn("log", repoPath, err)
		return nil, nil
	}
	defer iter.Close()

	var commits []models.Commit
	seen := make(map[plumbing.Hash]bool)
	err = iter.ForEach(func(cm *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[cm.Hash] {
			return nil
		}
		seen[cm.Hash] = true
		subject, _, _ := strings.Cut(cm.Message, "\n")
		commits = append(commits, models.Commit{
			Hash:    cm.Hash.String(),
			Author:  cm.Author.Name,
			Date:    cm.Author.When.Format(dateLayout),
			Message: truncate(strings.TrimSpace(subject), messageLimit),
		})
		return nil
	})
	if err != nil {
		c.warn("log walk", repoPath, err)
		return nil, nil
	}
	return commits, nil
}

// ShowCommitDiff renders the patch between the commit's first parent (or
// the empty tree for a root commit) and the commit itself.
func (c *GoGitHistory) ShowCommitDiff(ctx context.Context, repoPath, hash string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Command)
	defer cancel()

	patch, err := c.commitPatch(ctx, repoPath, hash)
	if err != nil {
		c.warn("show "+hash, repoPath, err)
		return "", nil
	}
	return patch, nil
}

func (c *GoGitHistory) commitPatch(ctx context.Context, repoPath, hash string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", err
	}
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return "", err
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return "", err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return "", err
		}
	}
	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return "", err
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", err
	}
	return patch.String(), nil
}

func (c *GoGitHistory) warn(op, repoPath string, err error) {
	c.log.Warnw("go-git operation failed, continuing with empty output",
		"op", op, "repo", repoPath, "error", err)
}

func (c *GoGitHistory) degradeBranches(op, repoPath string, err error) []string {
	c.warn(op, repoPath, err)
	return append([]string(nil), defaultBranches...)
}
