package gitreview

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/everstacklabs/reviewd/internal/adapter/factory"
	"github.com/everstacklabs/reviewd/internal/cache"
	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/httpclient"
	"github.com/everstacklabs/reviewd/internal/orchestrator"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

type staticKeys map[string]string

func (k staticKeys) Key(provider string) string { return k[provider] }

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestChangedFilesListsUntracked(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "util.py", "def f():\n    pass\n")

	changes, err := ChangedFiles(dir)
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2", len(changes))
	}
	if changes[0].Path != "main.go" || changes[0].Language != "go" {
		t.Fatalf("first change = %+v", changes[0])
	}
	if changes[1].Language != "python" {
		t.Fatalf("second change = %+v", changes[1])
	}
}

func TestChangedFilesSkipsBinary(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "ok.go", "package ok\n")

	changes, err := ChangedFiles(dir)
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(changes) != 1 || changes[0].Path != "ok.go" {
		t.Fatalf("changes = %+v", changes)
	}
}

func TestLanguageOf(t *testing.T) {
	cases := map[string]string{
		"a/b/c.go":  "go",
		"script.SH": "bash",
		"README":    "plain text",
		"x.tsx":     "typescript",
	}
	for name, want := range cases {
		if got := LanguageOf(name); got != want {
			t.Errorf("LanguageOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestReviewRepoWithMockModel(t *testing.T) {
	repoDir := initRepo(t)
	writeFile(t, repoDir, "main.go", "package main\n\nfunc main() {}\n")

	work := t.TempDir()
	cat, err := catalog.New(filepath.Join(work, "models.json"), "")
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	store, err := cache.New(false, "", time.Hour)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	fac := factory.New(staticKeys{}, httpclient.New(), prompt.NewBuilder(""), "http://127.0.0.1:11434", time.Minute)
	orch := orchestrator.New(cat, fac, store)

	r := New(orch)
	reviews, err := r.ReviewRepo(context.Background(), repoDir, "mock-model", prompt.ResponseEnglish)
	if err != nil {
		t.Fatalf("ReviewRepo: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}
	if reviews[0].Result.Fallback {
		t.Fatalf("fallback: %s", reviews[0].Result.Warning)
	}

	doc := RenderReviews(reviews)
	if !strings.Contains(doc, "## main.go") {
		t.Fatalf("rendered doc missing file heading:\n%s", doc)
	}
}
