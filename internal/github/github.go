package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"

	gh "github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/dshills/sentinel/internal/review"
)

// ErrAuth is returned when GitHub rejects the token.
var ErrAuth = errors.New("github authentication failed")

// Options configures NewClient.
type Options struct {
	// Token defaults to GITHUB_TOKEN.
	Token string
	// BaseURL defaults to GITHUB_API_URL, then api.github.com.
	BaseURL string
	Logger  hclog.Logger
}

// Client posts reviews and fetches pull request diffs.
type Client struct {
	gh  *gh.Client
	log hclog.Logger
}

// NewClient creates a GitHub client authenticated with a static token.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	token := opts.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN environment variable is not set", ErrAuth)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return newClient(httpClient, opts)
}

func newClient(httpClient *http.Client, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	c := gh.NewClient(httpClient)

	base := opts.BaseURL
	if base == "" {
		base = os.Getenv("GITHUB_API_URL")
	}
	if base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing github base url: %w", err)
		}
		c.BaseURL = u
	}
	return &Client{gh: c, log: log.Named("github")}, nil
}

// GetPRDiff fetches the unified diff of a pull request.
func (c *Client) GetPRDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", wrapError(err, fmt.Sprintf("fetching diff of %s/%s#%d", owner, repo, number))
	}
	return diff, nil
}

// PostReview publishes req as a single pull request review. A request with
// no comments makes no API call.
func (c *Client) PostReview(ctx context.Context, owner, repo string, number int, req *gh.PullRequestReviewRequest) error {
	if req == nil || len(req.Comments) == 0 {
		c.log.Debug("nothing to post", "pr", number)
		return nil
	}
	_, _, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, number, req)
	if err != nil {
		return wrapError(err, fmt.Sprintf("posting review to %s/%s#%d", owner, repo, number))
	}
	c.log.Info("review posted", "pr", number, "comments", len(req.Comments))
	return nil
}

func wrapError(err error, what string) error {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch er.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", what, ErrAuth, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: not found: %w", what, err)
		case http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: rejected by github: %w", what, err)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// BuildReview turns validated findings into one COMMENT review with an inline
// comment per finding on the right side of the diff.
func BuildReview(findings []review.ValidatedFinding) *gh.PullRequestReviewRequest {
	comments := make([]*gh.DraftReviewComment, 0, len(findings))
	for _, f := range findings {
		comments = append(comments, &gh.DraftReviewComment{
			Path: gh.String(f.FilePath()),
			Line: gh.Int(f.Line()),
			Side: gh.String("RIGHT"),
			Body: gh.String(CommentBody(f)),
		})
	}
	return &gh.PullRequestReviewRequest{
		Body:     gh.String(SummaryBody(findings)),
		Event:    gh.String("COMMENT"),
		Comments: comments,
	}
}

// CommentBody formats the inline body of a finding.
func CommentBody(f review.ValidatedFinding) string {
	marker := "⚠️"
	if f.Severity() == review.SeverityHigh {
		marker = "🔴"
	}
	sev := f.Severity()
	if sev == "" {
		sev = "UNRATED"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**: %s", marker, sev, f.Issue())
	if f.Suggestion() != "" {
		fmt.Fprintf(&sb, "\n\n**Suggestion:** `%s`", f.Suggestion())
	}
	return sb.String()
}

// SummaryBody formats the review body with counts by severity.
func SummaryBody(findings []review.ValidatedFinding) string {
	s := review.ComputeSummary(findings)
	var sb strings.Builder
	sb.WriteString("## Sentinel Review\n\n")
	sb.WriteString("| Severity | Count |\n|----------|-------|\n")
	fmt.Fprintf(&sb, "| High | %d |\n", s.Counts.High)
	fmt.Fprintf(&sb, "| Medium | %d |\n", s.Counts.Medium)
	fmt.Fprintf(&sb, "| Low | %d |\n", s.Counts.Low)
	return sb.String()
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the origin remote of the repository in
// the working directory.
func DetectRepo() (owner, repo string, err error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("detecting repository: git remote get-url origin: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from an https or ssh remote URL.
func ParseRemoteURL(remote string) (owner, repo string, err error) {
	remote = strings.TrimSuffix(remote, ".git")
	if m := httpsRemoteRe.FindStringSubmatch(remote); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(remote); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", remote)
}
