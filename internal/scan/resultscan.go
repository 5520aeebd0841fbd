package scan

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strconv"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

// Key is the canonical identity of a finding: file, line, secret type and
// masked preview. Commit metadata is not part of it, so the same secret seen
// in several commits collapses to one finding.
func Key(f models.Finding) string {
	h := sha256.New()
	for i, part := range []string{f.FilePath, strconv.Itoa(f.LineNumber), f.SecretType, f.SecretPreview} {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Dedupe keeps the first finding for every canonical key, in input order.
func Dedupe(findings []models.Finding) []models.Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		k := Key(f)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Aggregate sorts findings by severity (stable) and builds the summary.
// The input slice is not modified.
func Aggregate(findings []models.Finding, commitsScanned, totalCommits int, repoURL string) models.Result {
	sorted := slices.Clone(findings)
	if sorted == nil {
		sorted = []models.Finding{}
	}
	slices.SortStableFunc(sorted, func(a, b models.Finding) int {
		return cmp.Compare(models.SeverityRank(a.Severity), models.SeverityRank(b.Severity))
	})

	sum := models.Summary{
		TotalFindings:  len(sorted),
		CommitsScanned: commitsScanned,
		TotalCommits:   totalCommits,
	}
	for _, f := range sorted {
		switch f.Severity {
		case models.SeverityCritical:
			sum.Critical++
		case models.SeverityHigh:
			sum.High++
		case models.SeverityMedium:
			sum.Medium++
		case models.SeverityLow:
			sum.Low++
		}
	}
	sum.SecretTypes = slices.Sorted(maps.Keys(CountByType(sorted)))
	if sum.SecretTypes == nil {
		sum.SecretTypes = []string{}
	}
	return models.Result{Summary: sum, Findings: sorted, RepoURL: repoURL}
}

// CountByType returns secret type -> number of findings.
func CountByType(findings []models.Finding) map[string]int {
	tally := make(map[string]int)
	for _, f := range findings {
		tally[f.SecretType]++
	}
	return tally
}
