package git

import (
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

var hunkStart = regexp.MustCompile(`\+(\d+)`)

const unknownFile = "unknown"

// ParseDiff yields every added line of a unified diff together with its
// file and 1-based line number in the new version of the file.
//
// The file comes from the b/ side of each "diff --git" header. The line
// counter is reset at every file header and seeded from the +N of every
// hunk header. Added and context lines advance it, removed lines do not,
// and only added lines are yielded. Context lines are counted rather than
// skipped outright, so a reported number is the line's real position in
// the new file even when a hunk mixes context and additions.
func ParseDiff(diff string) iter.Seq[models.DiffLine] {
	return func(yield func(models.DiffLine) bool) {
		file := ""
		line := 0
		for raw := range strings.SplitSeq(diff, "\n") {
			raw = strings.TrimSuffix(raw, "\r")
			switch {
			case strings.HasPrefix(raw, "diff --git"):
				if _, b, ok := strings.Cut(raw, " b/"); ok {
					file = b
				}
				line = 0
			case strings.HasPrefix(raw, "@@"):
				if m := hunkStart.FindStringSubmatch(raw); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil {
						line = max(n-1, 0)
					}
				}
			case strings.HasPrefix(raw, "+") && !strings.HasPrefix(raw, "+++"):
				line++
				name := file
				if name == "" {
					name = unknownFile
				}
				if !yield(models.DiffLine{File: name, Line: line, Content: raw[1:]}) {
					return
				}
			case strings.HasPrefix(raw, " "):
				line++
			}
		}
	}
}
