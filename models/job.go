package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrJobNotFound is returned when a job id is not in the table.
	ErrJobNotFound = errors.New("scan not found")
	// ErrTerminalState is returned when a completed or failed job is asked to move again.
	ErrTerminalState = errors.New("job already in a terminal state")
)

// Status is the coarse lifecycle label of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// JobState is the tagged lifecycle of a job. Only the four types below
// implement it, so a completed job always carries a result and a failed
// one never does.
type JobState interface {
	Status() Status
	isJobState()
}

type Queued struct{}

type InProgress struct {
	Progress int
	Message  string
}

type Completed struct {
	Result  *Result
	Message string
}

type Failed struct {
	Progress int
	Message  string
}

func (Queued) Status() Status     { return StatusQueued }
func (InProgress) Status() Status { return StatusInProgress }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusFailed }

func (Queued) isJobState()     {}
func (InProgress) isJobState() {}
func (Completed) isJobState()  {}
func (Failed) isJobState()     {}

const queuedMessage = "Scan queued..."

// ScanJob is one asynchronous scan request and its evolving state.
type ScanJob struct {
	ID        string
	RepoURL   string
	State     JobState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewScanJob returns a job in the queued state.
func NewScanJob(id, repoURL string, now time.Time) ScanJob {
	return ScanJob{
		ID:        id,
		RepoURL:   repoURL,
		State:     Queued{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the job has completed or failed.
func (j ScanJob) Terminal() bool {
	switch j.State.(type) {
	case Completed, Failed:
		return true
	}
	return false
}

// Progress returns the current progress percentage.
func (j ScanJob) Progress() int {
	switch s := j.State.(type) {
	case InProgress:
		return s.Progress
	case Completed:
		return 100
	case Failed:
		return s.Progress
	}
	return 0
}

// Advance moves the job to in_progress with the given progress and message.
// Progress never goes backwards: a lower value keeps the previous one.
func (j *ScanJob) Advance(progress int, message string, now time.Time) error {
	if j.Terminal() {
		return fmt.Errorf("advance %s: %w", j.ID, ErrTerminalState)
	}
	progress = min(max(progress, j.Progress(), 0), 100)
	j.State = InProgress{Progress: progress, Message: message}
	j.UpdatedAt = now
	return nil
}

// Complete attaches the result and moves the job to completed.
func (j *ScanJob) Complete(result *Result, message string, now time.Time) error {
	if j.Terminal() {
		return fmt.Errorf("complete %s: %w", j.ID, ErrTerminalState)
	}
	if result == nil {
		return fmt.Errorf("complete %s: nil result", j.ID)
	}
	j.State = Completed{Result: result, Message: message}
	j.UpdatedAt = now
	return nil
}

// Fail moves the job to failed, freezing progress at its last value.
func (j *ScanJob) Fail(message string, now time.Time) error {
	if j.Terminal() {
		return fmt.Errorf("fail %s: %w", j.ID, ErrTerminalState)
	}
	j.State = Failed{Progress: j.Progress(), Message: message}
	j.UpdatedAt = now
	return nil
}

// View renders the job as the status payload returned to clients.
func (j ScanJob) View() ScanStatus {
	state := j.State
	if state == nil {
		state = Queued{}
	}
	st := ScanStatus{
		ScanID:   j.ID,
		Status:   state.Status(),
		Progress: j.Progress(),
	}
	switch s := state.(type) {
	case Queued:
		st.Message = queuedMessage
	case InProgress:
		st.Message = s.Message
	case Completed:
		st.Message = s.Message
		st.Results = s.Result
	case Failed:
		st.Message = s.Message
	}
	return st
}
