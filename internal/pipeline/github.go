package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/everstacklabs/modelsync/internal/config"
	"github.com/everstacklabs/modelsync/internal/diff"
)

const commitMessage = "chore(models): sync Novita model definitions"

// Publisher commits catalog changes to a new branch and opens a pull request.
type Publisher struct {
	gh         *github.Client
	cfg        config.GitHubConfig
	catalogDir string
	now        func() time.Time
}

// NewPublisher creates a Publisher authenticated with the configured token.
func NewPublisher(ctx context.Context, cfg config.GitHubConfig, catalogDir string) *Publisher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	return &Publisher{
		gh:         github.NewClient(oauth2.NewClient(ctx, ts)),
		cfg:        cfg,
		catalogDir: catalogDir,
		now:        time.Now,
	}
}

// withBaseURL points the GitHub client at another API root (GitHub
// Enterprise, test servers).
func (p *Publisher) withBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing GitHub API URL: %w", err)
	}
	p.gh.BaseURL = u
	return nil
}

// BranchName returns the branch used for a sync started at t.
func BranchName(t time.Time) string {
	return "modelsync/" + t.UTC().Format("20060102-150405")
}

// Publish stages the catalog directory, commits, pushes and opens a PR.
func (p *Publisher) Publish(ctx context.Context, cs *diff.ChangeSet, draft bool, reasons []string) (*github.PullRequest, error) {
	branch := BranchName(p.now())

	gitOps, err := OpenRepo(p.catalogDir, p.cfg.Token)
	if err != nil {
		return nil, err
	}
	if err := gitOps.CreateBranch(branch); err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}
	staged, err := gitOps.StageDir(p.catalogDir)
	if err != nil {
		return nil, fmt.Errorf("staging changes: %w", err)
	}
	if _, err := gitOps.Commit(commitMessage); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	if err := gitOps.Push(); err != nil {
		return nil, fmt.Errorf("pushing: %w", err)
	}
	slog.Info("branch pushed", "branch", branch, "files", len(staged))

	return p.openPR(ctx, branch, prBody(cs, reasons), draft)
}

func (p *Publisher) openPR(ctx context.Context, branch, body string, draft bool) (*github.PullRequest, error) {
	title := commitMessage
	pr, _, err := p.gh.PullRequests.Create(ctx, p.cfg.Owner, p.cfg.Repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &branch,
		Base:  github.String(p.cfg.BaseBranch),
		Draft: &draft,
	})
	if err != nil {
		return nil, fmt.Errorf("creating PR: %w", err)
	}

	slog.Info("PR created",
		"number", pr.GetNumber(),
		"draft", draft,
		"url", pr.GetHTMLURL())
	return pr, nil
}

func prBody(cs *diff.ChangeSet, reasons []string) string {
	body := diff.RenderPRBody(cs)
	if len(reasons) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n### Review required\n\nOpened as draft because:\n\n")
	for _, r := range reasons {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}
