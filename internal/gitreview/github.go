package gitreview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/everstacklabs/reviewd/internal/orchestrator"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// PullRequestReviewer reviews GitHub pull requests.
type PullRequestReviewer struct {
	orch   *orchestrator.Service
	client *github.Client
}

// NewPullRequestReviewer builds a reviewer authenticated with token.
func NewPullRequestReviewer(ctx context.Context, orch *orchestrator.Service, token string) *PullRequestReviewer {
	var tc *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		tc = github.NewClient(nil)
	}
	return &PullRequestReviewer{orch: orch, client: tc}
}

// ReviewPullRequest analyzes each changed file's patch in the pull
// request and returns the combined review. When post is true the
// review is also left as a PR comment.
func (r *PullRequestReviewer) ReviewPullRequest(ctx context.Context, owner, repo string, number int, modelID string, respLang prompt.ResponseLanguage, post bool) (string, error) {
	var reviews []FileReview
	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := r.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return "", fmt.Errorf("listing PR files: %w", err)
		}
		for _, f := range files {
			patch := f.GetPatch()
			if patch == "" {
				continue
			}
			res := r.orch.Analyze(ctx, orchestrator.Request{
				ModelID:          modelID,
				Code:             patch,
				Language:         "diff",
				ResponseLanguage: respLang,
			})
			reviews = append(reviews, FileReview{Path: f.GetFilename(), Result: res})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if len(reviews) == 0 {
		return "", fmt.Errorf("pull request %s/%s#%d has no reviewable patches", owner, repo, number)
	}

	body := renderPRComment(reviews)
	if post {
		comment := &github.IssueComment{Body: &body}
		if _, _, err := r.client.Issues.CreateComment(ctx, owner, repo, number, comment); err != nil {
			return body, fmt.Errorf("posting PR comment: %w", err)
		}
		slog.Info("PR review posted", "repo", owner+"/"+repo, "number", number, "files", len(reviews))
	}
	return body, nil
}

func renderPRComment(reviews []FileReview) string {
	var b strings.Builder
	b.WriteString("# Automated Code Review\n\n")
	b.WriteString(RenderReviews(reviews))
	return b.String()
}
