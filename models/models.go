package models

// Severity is the rating a pattern assigns to every match it produces.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank orders severities for sorting: critical=0 ... low=3.
// Unknown values return 4 so they sort last.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Commit is one entry of the full-history enumeration.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// ShortHash returns the first 8 characters of the commit hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 8 {
		return c.Hash[:8]
	}
	return c.Hash
}

// DiffLine is a single added line taken from a commit diff.
type DiffLine struct {
	File    string
	Line    int
	Content string
}

// Finding is one located pattern match with its commit context.
type Finding struct {
	FilePath      string   `json:"file_path"`
	LineNumber    int      `json:"line_number"`
	SecretType    string   `json:"secret_type"`
	SecretPreview string   `json:"secret_preview"`
	SecretFull    string   `json:"secret_full"`
	CommitHash    string   `json:"commit_hash"`
	CommitAuthor  string   `json:"commit_author"`
	CommitDate    string   `json:"commit_date"`
	CommitMessage string   `json:"commit_message"`
	Branch        string   `json:"branch"`
	Severity      Severity `json:"severity"`
	Entropy       float64  `json:"entropy"`
}

// Summary holds the aggregate counts of a finished scan.
type Summary struct {
	TotalFindings  int      `json:"total_findings"`
	Critical       int      `json:"critical"`
	High           int      `json:"high"`
	Medium         int      `json:"medium"`
	Low            int      `json:"low"`
	CommitsScanned int      `json:"commits_scanned"`
	TotalCommits   int      `json:"total_commits"`
	SecretTypes    []string `json:"secret_types"`
}

// Result is attached to a job once it completes.
type Result struct {
	Summary  Summary   `json:"summary"`
	Findings []Finding `json:"findings"`
	RepoURL  string    `json:"repo_url"`
}

// ScanRequest is the body accepted by the HTTP API and the SQS intake.
type ScanRequest struct {
	GitURL string `json:"git_url"`
}

// ScanStatus is the externally visible view of a job.
type ScanStatus struct {
	ScanID   string  `json:"scan_id"`
	Status   Status  `json:"status"`
	Progress int     `json:"progress"`
	Message  string  `json:"message"`
	Results  *Result `json:"results"`
}
