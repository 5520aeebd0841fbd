// Package services drives scan jobs from submission to a terminal state.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/internal/db"
	"github.com/alamshoaib134/git-secret-scanner/internal/git"
	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/internal/scan"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// ErrEmptyURL rejects a submission without a repository URL.
var ErrEmptyURL = errors.New("git_url must not be empty")

// DefaultMaxCommits caps how many commits one scan walks.
const DefaultMaxCommits = 500

// Progress checkpoints of the pipeline.
const (
	progressClone      = 10
	progressCommits    = 20
	progressCommitSpan = 60
	progressCurrent    = 85
	progressProcessing = 90
)

// Options tunes the pipeline.
type Options struct {
	// MaxCommits caps the commits scanned, in emission order. Zero means
	// DefaultMaxCommits.
	MaxCommits int
	// ScratchDir is the parent of the per-job temporary clone directory.
	// Empty means os.TempDir().
	ScratchDir string
}

// Orchestrator owns the job table and runs the scan pipeline.
type Orchestrator struct {
	store    db.JobStore
	history  git.History
	engine   *scan.Engine
	current  scan.Scanner
	consumer *Consumer
	opts     Options
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewOrchestrator wires the pipeline. consumer may be nil when only
// Execute is used.
func NewOrchestrator(store db.JobStore, history git.History, engine *scan.Engine, current scan.Scanner, consumer *Consumer, opts Options, log *zap.SugaredLogger) *Orchestrator {
	if opts.MaxCommits <= 0 {
		opts.MaxCommits = DefaultMaxCommits
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		store:    store,
		history:  history,
		engine:   engine,
		current:  current,
		consumer: consumer,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// MaxCommits is the effective commit cap.
func (o *Orchestrator) MaxCommits() int { return o.opts.MaxCommits }

// Submit registers a queued job and hands it to the consumer. It returns
// as soon as the job is stored.
func (o *Orchestrator) Submit(ctx context.Context, url string) (models.ScanStatus, error) {
	if o.consumer == nil {
		return models.ScanStatus{}, errors.New("orchestrator has no consumer")
	}
	job, err := o.create(url)
	if err != nil {
		return models.ScanStatus{}, err
	}
	o.log.Infow("scan queued", "scan_id", job.ID, "repo", job.RepoURL)
	o.consumer.Dispatch(job.ID, func(ctx context.Context) {
		o.Run(ctx, job.ID, job.RepoURL)
	})
	return job.View(), nil
}

// Execute creates a job and runs it to completion on the calling goroutine.
func (o *Orchestrator) Execute(ctx context.Context, url string) (models.ScanStatus, error) {
	job, err := o.create(url)
	if err != nil {
		return models.ScanStatus{}, err
	}
	o.Run(ctx, job.ID, job.RepoURL)
	return o.Status(job.ID)
}

// Status returns the client view of a job, or models.ErrJobNotFound.
func (o *Orchestrator) Status(id string) (models.ScanStatus, error) {
	job, err := o.store.Get(id)
	if err != nil {
		return models.ScanStatus{}, err
	}
	return job.View(), nil
}

func (o *Orchestrator) create(url string) (models.ScanJob, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return models.ScanJob{}, ErrEmptyURL
	}
	id, err := uuid.NewV7()
	if err != nil {
		return models.ScanJob{}, fmt.Errorf("generate scan id: %w", err)
	}
	job := models.NewScanJob(id.String(), url, o.now())
	if err := o.store.Create(job); err != nil {
		return models.ScanJob{}, err
	}
	return job, nil
}

// Run drives job id through the pipeline and records the terminal state.
// Errors and panics both end in the failed state.
func (o *Orchestrator) Run(ctx context.Context, id, url string) {
	start := time.Now()
	defer logger.Trace("Orchestrator.Run", start)

	defer func() {
		if r := recover(); r != nil {
			o.log.Errorw("scan panicked", "scan_id", id, "panic", r)
			o.fail(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	result, err := o.pipeline(ctx, id, url)
	if err != nil {
		o.log.Errorw("scan failed", "scan_id", id, "repo", url, "error", err)
		o.fail(id, err.Error())
		return
	}

	msg := fmt.Sprintf("Scan completed! Found %d secrets in %d commits",
		result.Summary.TotalFindings, result.Summary.CommitsScanned)
	if _, err := o.store.Update(id, func(j *models.ScanJob) error {
		return j.Complete(result, msg, o.now())
	}); err != nil {
		o.log.Errorw("could not record completion", "scan_id", id, "error", err)
		return
	}
	o.log.Infow("scan completed", "scan_id", id, "findings", result.Summary.TotalFindings,
		"commits", result.Summary.CommitsScanned, "elapsed", time.Since(start))
}

func (o *Orchestrator) pipeline(ctx context.Context, id, url string) (*models.Result, error) {
	if err := o.advance(id, progressClone, "Cloning repository..."); err != nil {
		return nil, err
	}
	scratch, err := os.MkdirTemp(o.opts.ScratchDir, "secretscan-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			o.log.Warnw("could not remove scratch directory", "path", scratch, "error", err)
		}
	}()

	repoPath, err := o.history.CloneFull(ctx, url, filepath.Join(scratch, "repo"))
	if err != nil {
		return nil, err
	}

	if err := o.advance(id, progressCommits, "Getting all commits..."); err != nil {
		return nil, err
	}
	branches, err := o.history.ListBranches(ctx, repoPath)
	if err != nil {
		o.log.Warnw("listing branches failed", "scan_id", id, "error", err)
	}
	commits, err := o.history.ListAllCommits(ctx, repoPath)
	if err != nil {
		o.log.Warnw("listing commits failed", "scan_id", id, "error", err)
	}
	total := len(commits)
	msg := fmt.Sprintf("Found %d commits across %d branches. Deep scanning...", total, len(branches))
	if err := o.advance(id, progressCommits, msg); err != nil {
		return nil, err
	}
	o.log.Debugw("history enumerated", "scan_id", id, "commits", total, "branches", branches)

	toScan := commits[:min(total, o.opts.MaxCommits)]
	if len(toScan) < total {
		o.log.Infow("commit cap reached, scanning the first emitted commits only",
			"scan_id", id, "total", total, "scanned", len(toScan))
	}

	var findings []models.Finding
	for i, c := range toScan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Scanning commit %d/%d: %s", i+1, len(toScan), c.ShortHash())
		if err := o.advance(id, progressCommits+i*progressCommitSpan/len(toScan), msg); err != nil {
			return nil, err
		}
		diff, err := o.history.ShowCommitDiff(ctx, repoPath, c.Hash)
		if err != nil {
			o.log.Warnw("reading commit diff failed", "scan_id", id, "commit", c.ShortHash(), "error", err)
			continue
		}
		findings = append(findings, o.engine.ScanCommit(c, diff, scan.HistoryBranch)...)
	}

	if err := o.advance(id, progressCurrent, "Scanning current files..."); err != nil {
		return nil, err
	}
	current, err := o.current.Run(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("scan current files: %w", err)
	}
	findings = append(findings, current...)

	if err := o.advance(id, progressProcessing, "Processing results..."); err != nil {
		return nil, err
	}
	result := scan.Aggregate(scan.Dedupe(findings), len(toScan), total, git.NormalizeURL(url))
	return &result, nil
}

func (o *Orchestrator) advance(id string, progress int, msg string) error {
	_, err := o.store.Update(id, func(j *models.ScanJob) error {
		return j.Advance(progress, msg, o.now())
	})
	return err
}

func (o *Orchestrator) fail(id, msg string) {
	if _, err := o.store.Update(id, func(j *models.ScanJob) error {
		return j.Fail(msg, o.now())
	}); err != nil {
		o.log.Errorw("could not record failure", "scan_id", id, "error", err)
	}
}
