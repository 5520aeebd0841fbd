package git

import "strings"

// NormalizeURL turns a clone URL into the https base used for display
// and file links. The result is never used to fetch.
func NormalizeURL(raw string) string {
	url := strings.TrimSpace(raw)
	url = strings.TrimSuffix(url, ".git")

	// git@host:org/repo
	if rest, ok := strings.CutPrefix(url, "git@"); ok {
		url = "https://" + strings.Replace(rest, ":", "/", 1)
	}
	if rest, ok := strings.CutPrefix(url, "git://"); ok {
		url = "https://" + rest
	}
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}
	return url
}
