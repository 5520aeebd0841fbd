package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

// gitCmd runs git in dir with a fixed identity and no user/system config.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_AUTHOR_NAME=Alice",
		"GIT_AUTHOR_EMAIL=alice@example.com",
		"GIT_COMMITTER_NAME=Alice",
		"GIT_COMMITTER_EMAIL=alice@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return string(out)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseLog(t *testing.T) {
	out := strings.Join([]string{
		"aaaa1111|Alice|2024-01-02 10:00:00 +0000|add config | with pipe",
		"bbbb2222|Bob|2024-01-01 09:00:00 +0000|initial",
		"aaaa1111|Alice|2024-01-02 10:00:00 +0000|add config | with pipe",
		"malformed line",
		"cccc|only|three",
	}, "\n")

	got := parseLog(out)
	require.Len(t, got, 2)
	assert.Equal(t, models.Commit{Hash: "aaaa1111", Author: "Alice", Date: "2024-01-02 10:00:00 +0000", Message: "add config | with pipe"}, got[0])
	assert.Equal(t, "bbbb2222", got[1].Hash)
}

func TestParseLogTruncatesMessage(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := parseLog("h|a|d|" + long)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Message, 100)
}

func TestParseBranches(t *testing.T) {
	out := "  origin/HEAD -> origin/main\n  origin/main\n  origin/feature/x\n  origin/main\n"
	assert.Equal(t, []string{"main", "feature/x"}, parseBranches(out))
	assert.Equal(t, []string{"main", "master"}, parseBranches(""))
}

// newSourceRepo builds a two-commit repository: the first commit adds a
// key, the second deletes the file.
func newSourceRepo(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	gitCmd(t, src, "init", "-q", "-b", "main")
	writeFile(t, filepath.Join(src, "deploy", "keys.env"), "REGION=us-east-1\nKEY=AKIA1234567890123456\n")
	gitCmd(t, src, "add", ".")
	gitCmd(t, src, "commit", "-q", "-m", "add keys")
	gitCmd(t, src, "rm", "-q", "deploy/keys.env")
	gitCmd(t, src, "commit", "-q", "-m", "remove keys")
	return src
}

func TestCLIHistoryEndToEnd(t *testing.T) {
	requireBinary(t, "git")
	src := newSourceRepo(t)
	h := NewCLIHistory("git", DefaultTimeouts, nil)
	ctx := context.Background()

	dest := filepath.Join(t.TempDir(), "repo")
	path, err := h.CloneFull(ctx, src, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	assert.DirExists(t, dest+".git")

	branches, err := h.ListBranches(ctx, path)
	require.NoError(t, err)
	assert.Contains(t, branches, "main")

	commits, err := h.ListAllCommits(ctx, path)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "remove keys", commits[0].Message)
	assert.Equal(t, "add keys", commits[1].Message)
	assert.Equal(t, "Alice", commits[1].Author)

	diff, err := h.ShowCommitDiff(ctx, path, commits[1].Hash)
	require.NoError(t, err)
	var added []models.DiffLine
	for dl := range ParseDiff(diff) {
		added = append(added, dl)
	}
	require.Len(t, added, 2)
	assert.Equal(t, models.DiffLine{File: "deploy/keys.env", Line: 2, Content: "KEY=AKIA1234567890123456"}, added[1])
}

func TestCLIHistoryCloneFailure(t *testing.T) {
	requireBinary(t, "git")
	h := NewCLIHistory("git", DefaultTimeouts, nil)

	_, err := h.CloneFull(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "repo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clone repository")
}

func TestCLIHistoryDegradesAfterClone(t *testing.T) {
	h := NewCLIHistory("/nonexistent/git", DefaultTimeouts, nil)
	ctx := context.Background()
	dir := t.TempDir()

	commits, err := h.ListAllCommits(ctx, dir)
	assert.NoError(t, err)
	assert.Empty(t, commits)

	diff, err := h.ShowCommitDiff(ctx, dir, "deadbeef")
	assert.NoError(t, err)
	assert.Empty(t, diff)

	branches, err := h.ListBranches(ctx, dir)
	assert.NoError(t, err)
	assert.Equal(t, []string{"main", "master"}, branches)
}
