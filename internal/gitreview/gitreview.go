// Package gitreview runs code review over local git changes and GitHub
// pull requests.
package gitreview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/everstacklabs/reviewd/internal/orchestrator"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// maxFileBytes caps the size of a file sent for review.
const maxFileBytes = 128 * 1024

// FileChange is one changed file in a working tree.
type FileChange struct {
	Path     string
	Language string
	Content  string
}

// FileReview pairs a changed file with its analysis.
type FileReview struct {
	Path   string
	Result orchestrator.Result
}

// Reviewer drives the orchestrator over git changes.
type Reviewer struct {
	orch *orchestrator.Service
}

// New builds a Reviewer.
func New(orch *orchestrator.Service) *Reviewer {
	return &Reviewer{orch: orch}
}

// ChangedFiles lists the modified, added, and untracked files of the
// repository at path with their current contents. Deleted and oversized
// files are skipped.
func ChangedFiles(path string) ([]FileChange, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	var names []string
	for name, fs := range status {
		if fs.Worktree == git.Deleted || fs.Staging == git.Deleted {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []FileChange
	for _, name := range names {
		abs := filepath.Join(path, name)
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > maxFileBytes {
			slog.Debug("skipping large file", "file", name, "bytes", info.Size())
			continue
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			slog.Warn("skipping unreadable file", "file", name, "error", err)
			continue
		}
		if !isText(data) {
			continue
		}
		out = append(out, FileChange{
			Path:     name,
			Language: LanguageOf(name),
			Content:  string(data),
		})
	}
	return out, nil
}

// ReviewRepo analyzes every changed file in the repository at path.
func (r *Reviewer) ReviewRepo(ctx context.Context, path, modelID string, respLang prompt.ResponseLanguage) ([]FileReview, error) {
	changes, err := ChangedFiles(path)
	if err != nil {
		return nil, err
	}
	reviews := make([]FileReview, 0, len(changes))
	for _, c := range changes {
		res := r.orch.Analyze(ctx, orchestrator.Request{
			ModelID:          modelID,
			Code:             c.Content,
			Language:         c.Language,
			ResponseLanguage: respLang,
		})
		reviews = append(reviews, FileReview{Path: c.Path, Result: res})
	}
	return reviews, nil
}

// RenderReviews formats file reviews as a single markdown document.
func RenderReviews(reviews []FileReview) string {
	var b strings.Builder
	for i, fr := range reviews {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", fr.Path)
		if fr.Result.Fallback {
			fmt.Fprintf(&b, "> %s\n\n", fr.Result.Warning)
		}
		b.WriteString(fr.Result.Text)
	}
	return b.String()
}

// isText rejects content with NUL bytes, the same heuristic git uses.
func isText(data []byte) bool {
	limit := len(data)
	if limit > 8000 {
		limit = 8000
	}
	for _, c := range data[:limit] {
		if c == 0 {
			return false
		}
	}
	return true
}

var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rb":    "ruby",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".sh":    "bash",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".md":    "markdown",
}

// LanguageOf guesses the language from a file name.
func LanguageOf(name string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(name))]; ok {
		return lang
	}
	return "plain text"
}
