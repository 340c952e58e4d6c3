package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "models.json")
	s, err := New(path, filepath.Join(dir, "models"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, path
}

func TestLoadBuiltinsExactlyOneDefault(t *testing.T) {
	s, _ := newTestService(t)

	defaults := 0
	for _, d := range s.List() {
		if d.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("got %d default models, want 1", defaults)
	}
	if s.DefaultID() != "claude-3-7" {
		t.Fatalf("default = %q, want claude-3-7", s.DefaultID())
	}
}

func TestResolveEmptyReturnsDefault(t *testing.T) {
	s, _ := newTestService(t)

	d, err := s.Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.ID != s.DefaultID() {
		t.Fatalf("Resolve(\"\") = %q, want %q", d.ID, s.DefaultID())
	}

	d, err = s.Resolve("no-such-model")
	if err != nil {
		t.Fatalf("Resolve(no-such-model): %v", err)
	}
	if d.ID != s.DefaultID() {
		t.Fatalf("Resolve(no-such-model) = %q, want the default", d.ID)
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	s, _ := newTestService(t)

	err := s.Add(Descriptor{
		ID:          "gpt-4o",
		DisplayName: "Again",
		Type:        TypeMock,
	})
	if !errors.Is(err, ErrDuplicateModel) {
		t.Fatalf("Add duplicate = %v, want ErrDuplicateModel", err)
	}
}

func TestAddDefaultTransfersFlag(t *testing.T) {
	s, _ := newTestService(t)

	err := s.Add(Descriptor{
		ID:          "my-model",
		DisplayName: "My Model",
		Type:        TypeRemoteAPI,
		IsDefault:   true,
		Config:      ProviderConfig{Provider: "openai", BaseURL: "https://api.example.com/v1"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.DefaultID() != "my-model" {
		t.Fatalf("default = %q, want my-model", s.DefaultID())
	}
	old, err := s.Get("claude-3-7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if old.IsDefault {
		t.Fatal("previous default still flagged")
	}
}

func TestDeleteDefaultRejected(t *testing.T) {
	s, _ := newTestService(t)

	if err := s.Delete(s.DefaultID()); !errors.Is(err, ErrCannotDeleteDefault) {
		t.Fatalf("Delete(default) = %v, want ErrCannotDeleteDefault", err)
	}

	if err := s.Delete("gpt-4o-mini"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("gpt-4o-mini"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMutationsPersistAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.json")

	s, err := New(path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Add(Descriptor{
		ID:          "custom",
		DisplayName: "Custom",
		Type:        TypeRemoteAPI,
		Config:      ProviderConfig{Provider: "openai", BaseURL: "https://api.example.com/v1"},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.SetDefault("custom"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	reloaded, err := New(path, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.DefaultID() != "custom" {
		t.Fatalf("reloaded default = %q, want custom", reloaded.DefaultID())
	}
	if _, err := reloaded.Get("custom"); err != nil {
		t.Fatalf("reloaded Get: %v", err)
	}
}

func TestCorruptCatalogFileFallsBackToBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.DefaultID() != "claude-3-7" {
		t.Fatalf("default = %q, want builtin claude-3-7", s.DefaultID())
	}
}

func TestUpdateValidationRollsBack(t *testing.T) {
	s, _ := newTestService(t)
	prev := s.DefaultID()

	bad := ProviderType("gopher")
	def := true
	err := s.Update("gpt-4o", Update{Type: &bad, IsDefault: &def})
	if err == nil {
		t.Fatal("Update with unknown type succeeded")
	}
	d, gerr := s.Get("gpt-4o")
	if gerr != nil {
		t.Fatalf("Get: %v", gerr)
	}
	if d.Type != TypeRemoteAPI {
		t.Fatalf("type = %q after failed update, want remote-api", d.Type)
	}
	if got := s.DefaultID(); got != prev {
		t.Fatalf("default moved on failed Update: was %q, now %q", prev, got)
	}
}

// unwritableCatalog turns the catalog path into a directory so the
// persist rename fails.
func unwritableCatalog(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func countDefaults(s *Service) int {
	n := 0
	for _, d := range s.List() {
		if d.IsDefault {
			n++
		}
	}
	return n
}

func TestFailedAddLeavesCatalogUnchanged(t *testing.T) {
	s, path := newTestService(t)
	prev := s.DefaultID()
	unwritableCatalog(t, path)

	err := s.Add(Descriptor{
		ID:          "custom-1",
		DisplayName: "Custom",
		Type:        TypeMock,
		IsDefault:   true,
	})
	if err == nil {
		t.Fatal("Add succeeded with unwritable catalog path")
	}
	if got := s.DefaultID(); got != prev {
		t.Fatalf("default moved on failed Add: was %q, now %q", prev, got)
	}
	if _, gerr := s.Get("custom-1"); !errors.Is(gerr, ErrNotFound) {
		t.Fatalf("failed Add left the model behind: %v", gerr)
	}
	if n := countDefaults(s); n != 1 {
		t.Fatalf("got %d default models after failed Add, want 1", n)
	}
}

func TestFailedUpdateKeepsDefault(t *testing.T) {
	s, path := newTestService(t)
	prev := s.DefaultID()
	unwritableCatalog(t, path)

	def := true
	if err := s.Update("gpt-4o", Update{IsDefault: &def}); err == nil {
		t.Fatal("Update succeeded with unwritable catalog path")
	}
	if got := s.DefaultID(); got != prev {
		t.Fatalf("default moved on failed Update: was %q, now %q", prev, got)
	}
	d, err := s.Get(prev)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !d.IsDefault {
		t.Fatalf("previous default %q lost its flag on failed Update", prev)
	}
	if n := countDefaults(s); n != 1 {
		t.Fatalf("got %d default models after failed Update, want 1", n)
	}
}

func TestFailedSetDefaultKeepsDefault(t *testing.T) {
	s, path := newTestService(t)
	prev := s.DefaultID()
	unwritableCatalog(t, path)

	if err := s.SetDefault("gpt-4o"); err == nil {
		t.Fatal("SetDefault succeeded with unwritable catalog path")
	}
	if got := s.DefaultID(); got != prev {
		t.Fatalf("default moved on failed SetDefault: was %q, now %q", prev, got)
	}
	if n := countDefaults(s); n != 1 {
		t.Fatalf("got %d default models after failed SetDefault, want 1", n)
	}
}

func TestLocalModelsFilteredByPath(t *testing.T) {
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(filepath.Join(modelsDir, "mistral-7b-instruct-v0.2"), 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := New(filepath.Join(dir, "models.json"), modelsDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Get("mistral-7b"); err != nil {
		t.Fatalf("present local model missing from catalog: %v", err)
	}
	if _, err := s.Get("codellama-7b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("absent local model = %v, want ErrNotFound", err)
	}
}

func TestLocalEntrySkippedOnIDCollision(t *testing.T) {
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(filepath.Join(modelsDir, "mistral-7b-instruct-v0.2"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := &Service{
		path:      filepath.Join(dir, "models.json"),
		modelsDir: modelsDir,
		models: map[string]*Descriptor{
			"mistral-7b": {ID: "mistral-7b", DisplayName: "Pinned", Type: TypeMock},
		},
	}
	if err := s.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	d, err := s.Get("mistral-7b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Type != TypeMock {
		t.Fatalf("local table overrode existing entry: type = %q", d.Type)
	}
}

func TestOnChangeFiresOnMutation(t *testing.T) {
	s, _ := newTestService(t)

	var fired []string
	s.OnChange(func(id string) { fired = append(fired, id) })

	if err := s.SetDefault("gpt-4o"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if err := s.Delete("deepseek-v3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(fired) != 2 || fired[0] != "gpt-4o" || fired[1] != "deepseek-v3" {
		t.Fatalf("onChange fired = %v", fired)
	}
}

func TestPersistedFileWinsOverBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.json")
	persisted := []Descriptor{{
		ID:          "gpt-4o",
		DisplayName: "Renamed",
		Type:        TypeRemoteAPI,
		IsDefault:   true,
		Config:      ProviderConfig{Provider: "openai", BaseURL: "https://api.openai.com/v1"},
	}}
	data, err := json.Marshal(persisted)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d, err := s.Get("gpt-4o")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.DisplayName != "Renamed" {
		t.Fatalf("display name = %q, want Renamed", d.DisplayName)
	}
	if s.DefaultID() != "gpt-4o" {
		t.Fatalf("default = %q, want persisted gpt-4o", s.DefaultID())
	}
}
