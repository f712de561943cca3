package gitops

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PRInfo is the parsed form of a pull request URL.
type PRInfo struct {
	Host     string
	Owner    string
	Repo     string
	PRNumber int
	CloneURL string
}

var prURLRe = regexp.MustCompile(`^https?://([^/]+)/([^/]+)/([^/]+)/pull/(\d+)`)

// ParsePRURL parses URLs like https://github.com/owner/repo/pull/123.
func ParsePRURL(url string) (*PRInfo, error) {
	m := prURLRe.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return nil, fmt.Errorf("invalid pull request URL: %q", url)
	}
	n, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, fmt.Errorf("invalid pull request number in %q", url)
	}
	return &PRInfo{
		Host:     m[1],
		Owner:    m[2],
		Repo:     m[3],
		PRNumber: n,
		CloneURL: fmt.Sprintf("https://%s/%s/%s.git", m[1], m[2], m[3]),
	}, nil
}

// Slug returns owner/repo.
func (p *PRInfo) Slug() string {
	return p.Owner + "/" + p.Repo
}
