package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gh "github.com/google/go-github/v47/github"

	"github.com/dshills/sentinel/internal/review"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(context.Background(), Options{Token: "test-token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c
}

func validated(t *testing.T, findings ...review.Finding) []review.ValidatedFinding {
	t.Helper()
	files := map[string]bool{}
	var changed []string
	for _, f := range findings {
		if !files[f.FilePath] {
			files[f.FilePath] = true
			changed = append(changed, f.FilePath)
		}
	}
	out := review.Validate(changed, findings)
	if len(out) != len(findings) {
		t.Fatalf("validated %d of %d findings", len(out), len(findings))
	}
	return out
}

func line(n int) *int { return &n }

func TestGetPRDiff(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization = %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
		}
		if !strings.Contains(r.Header.Get("Accept"), "diff") {
			t.Errorf("Accept = %q, want a diff media type", r.Header.Get("Accept"))
		}
		if r.URL.Path != "/repos/owner/repo/pulls/42" {
			t.Errorf("Path = %q, want %q", r.URL.Path, "/repos/owner/repo/pulls/42")
		}
		w.Write([]byte("diff --git a/file.go b/file.go\n"))
	})

	diff, err := c.GetPRDiff(context.Background(), "owner", "repo", 42)
	if err != nil {
		t.Fatalf("GetPRDiff error: %v", err)
	}
	if diff != "diff --git a/file.go b/file.go\n" {
		t.Errorf("diff = %q", diff)
	}
}

func TestGetPRDiff_404(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := c.GetPRDiff(context.Background(), "owner", "repo", 99)
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if got := err.Error(); !strings.HasPrefix(got, "fetching diff of owner/repo#99: not found: ") {
		t.Errorf("error = %q", got)
	}
	var er *gh.ErrorResponse
	if !errors.As(err, &er) || er.Response.StatusCode != http.StatusNotFound {
		t.Errorf("error chain should keep the 404 response, got %v", err)
	}
}

func TestGetPRDiff_401(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	})

	_, err := c.GetPRDiff(context.Background(), "owner", "repo", 1)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestNewClient_NoToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	_, err := NewClient(context.Background(), Options{})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestPostReview(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/repos/owner/repo/pulls/42/reviews" {
			t.Errorf("Path = %q", r.URL.Path)
		}

		var rev gh.PullRequestReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&rev); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if rev.GetEvent() != "COMMENT" {
			t.Errorf("Event = %q, want COMMENT", rev.GetEvent())
		}
		if len(rev.Comments) != 1 {
			t.Fatalf("Comments count = %d, want 1", len(rev.Comments))
		}
		cm := rev.Comments[0]
		if cm.GetPath() != "main.py" || cm.GetLine() != 12 || cm.GetSide() != "RIGHT" {
			t.Errorf("comment = %s:%d side %s", cm.GetPath(), cm.GetLine(), cm.GetSide())
		}

		w.WriteHeader(200)
		w.Write([]byte(`{"id":1}`))
	})

	findings := validated(t, review.Finding{
		FilePath: "main.py", Line: line(12), Issue: "Division by zero", Severity: review.SeverityHigh,
	})
	if err := c.PostReview(context.Background(), "owner", "repo", 42, BuildReview(findings)); err != nil {
		t.Fatalf("PostReview error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPostReview_EmptyMakesNoCall(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	if err := c.PostReview(context.Background(), "owner", "repo", 42, BuildReview(nil)); err != nil {
		t.Fatalf("PostReview error: %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "HTTPS", url: "https://github.com/dshills/sentinel.git", wantOwner: "dshills", wantRepo: "sentinel"},
		{name: "HTTPS no .git", url: "https://github.com/dshills/sentinel", wantOwner: "dshills", wantRepo: "sentinel"},
		{name: "SSH", url: "git@github.com:dshills/sentinel.git", wantOwner: "dshills", wantRepo: "sentinel"},
		{name: "SSH no .git", url: "git@github.com:dshills/sentinel", wantOwner: "dshills", wantRepo: "sentinel"},
		{name: "invalid", url: "not-a-url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRemoteURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if owner != tt.wantOwner {
				t.Errorf("owner = %q, want %q", owner, tt.wantOwner)
			}
			if repo != tt.wantRepo {
				t.Errorf("repo = %q, want %q", repo, tt.wantRepo)
			}
		})
	}
}

func TestBuildReview(t *testing.T) {
	findings := validated(t,
		review.Finding{FilePath: "src/main.py", Line: line(12), Issue: "Division by zero", Severity: review.SeverityHigh, Suggestion: "if b == 0: raise"},
		review.Finding{FilePath: "src/util.py", Line: line(3), Issue: "Unused import", Severity: review.SeverityLow},
	)

	rev := BuildReview(findings)

	if rev.GetEvent() != "COMMENT" {
		t.Errorf("Event = %q, want COMMENT", rev.GetEvent())
	}
	if len(rev.Comments) != 2 {
		t.Fatalf("Comments count = %d, want 2", len(rev.Comments))
	}
	first := rev.Comments[0]
	if first.GetPath() != "src/main.py" || first.GetLine() != 12 || first.GetSide() != "RIGHT" {
		t.Errorf("first comment = %s:%d %s", first.GetPath(), first.GetLine(), first.GetSide())
	}
	if !strings.HasPrefix(first.GetBody(), "🔴 **HIGH**: Division by zero") {
		t.Errorf("first body = %q", first.GetBody())
	}
	if !strings.Contains(first.GetBody(), "`if b == 0: raise`") {
		t.Errorf("suggestion missing from %q", first.GetBody())
	}
	if !strings.HasPrefix(rev.Comments[1].GetBody(), "⚠️ **LOW**") {
		t.Errorf("second body = %q", rev.Comments[1].GetBody())
	}
	if !strings.Contains(rev.GetBody(), "| High | 1 |") || !strings.Contains(rev.GetBody(), "| Low | 1 |") {
		t.Errorf("summary should hold severity counts, got: %s", rev.GetBody())
	}
}
