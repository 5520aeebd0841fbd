package scan

import (
	"iter"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/alamshoaib134/git-secret-scanner/internal/git"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// PreviewVisible is how many leading characters a preview keeps.
const PreviewVisible = 4

// HistoryBranch labels findings discovered while walking commit history.
const HistoryBranch = "all"

// Match is one occurrence of a rule inside a line.
type Match struct {
	Pattern Definition
	Value   string
	Preview string
	Entropy float64
}

// Engine evaluates a Catalog against single lines of text.
type Engine struct {
	catalog *Catalog
}

func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the catalog the engine evaluates.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// MatchLine evaluates every rule against line and returns all occurrences,
// grouped by rule in catalog order. Broken rules are skipped.
func (e *Engine) MatchLine(line string) []Match {
	var out []Match
	for _, r := range e.catalog.rules {
		if r.Broken() {
			continue
		}
		for v := range occurrences(r.re, line) {
			out = append(out, Match{
				Pattern: r.Definition,
				Value:   v,
				Preview: Mask(v, PreviewVisible),
				Entropy: Entropy(v),
			})
		}
	}
	return out
}

// ScanCommit matches every line the diff adds and attributes the results
// to commit on the given branch label.
func (e *Engine) ScanCommit(commit models.Commit, diff string, branch string) []models.Finding {
	if diff == "" {
		return nil
	}
	origin := source{
		hash:    commit.ShortHash(),
		author:  commit.Author,
		date:    commit.Date,
		message: commit.Message,
		branch:  branch,
	}
	var out []models.Finding
	for dl := range git.ParseDiff(diff) {
		out = e.appendFindings(out, dl.File, dl.Line, dl.Content, origin)
	}
	return out
}

// source is the commit context stamped on every finding of one pass.
type source struct {
	hash, author, date, message, branch string
}

func (e *Engine) appendFindings(dst []models.Finding, file string, line int, content string, origin source) []models.Finding {
	for _, m := range e.MatchLine(content) {
		dst = append(dst, models.Finding{
			FilePath:      file,
			LineNumber:    line,
			SecretType:    m.Pattern.Name,
			SecretPreview: m.Preview,
			SecretFull:    m.Value,
			CommitHash:    origin.hash,
			CommitAuthor:  origin.author,
			CommitDate:    origin.date,
			CommitMessage: origin.message,
			Branch:        origin.branch,
			Severity:      m.Pattern.Severity,
			Entropy:       m.Entropy,
		})
	}
	return dst
}

// occurrences yields the leftmost match, then restarts the search one rune
// past its start. A match is yielded only when it ends after the previous
// one, so overlapping occurrences are reported but suffixes of an already
// reported match are not. Empty matches are never yielded.
func occurrences(re *regexp.Regexp, s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		pos, prevEnd := 0, -1
		for pos < len(s) {
			loc := re.FindStringIndex(s[pos:])
			if loc == nil {
				return
			}
			start, end := pos+loc[0], pos+loc[1]
			if end > start && end > prevEnd {
				if !yield(s[start:end]) {
					return
				}
				prevEnd = end
			}
			_, size := utf8.DecodeRuneInString(s[start:])
			if size == 0 {
				return
			}
			pos = start + size
		}
	}
}

// Entropy is the Shannon entropy of s in bits per character, rounded to two
// decimals. The empty string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	counts := make([]int, 0, len(freq))
	for _, c := range freq {
		counts = append(counts, c)
	}
	// fixed summation order keeps the result independent of map iteration
	slices.Sort(counts)

	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return math.Round(h*100) / 100
}

// Mask keeps the first visible characters of s and replaces the rest with
// '*'. Strings no longer than visible are masked entirely.
func Mask(s string, visible int) string {
	runes := []rune(s)
	if len(runes) <= visible {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:visible]) + strings.Repeat("*", len(runes)-visible)
}
