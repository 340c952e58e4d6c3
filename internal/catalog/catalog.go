package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	ErrDuplicateModel      = errors.New("model already exists")
	ErrNotFound            = errors.New("model not found")
	ErrCannotDeleteDefault = errors.New("cannot delete the default model")
)

// Service owns the model catalog: builtin descriptors merged with the
// persisted catalog file. All mutations persist synchronously.
type Service struct {
	mu        sync.Mutex
	path      string
	modelsDir string
	models    map[string]*Descriptor
	defaultID string
	onChange  func(id string)
}

// New builds a Service backed by the catalog file at path. Local model
// availability is checked against modelsDir.
func New(path, modelsDir string) (*Service, error) {
	s := &Service{
		path:      path,
		modelsDir: modelsDir,
		models:    make(map[string]*Descriptor),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// OnChange registers a hook invoked with the model id after every
// successful mutation. Used to evict cached adapter instances.
func (s *Service) OnChange(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Service) load() error {
	for _, d := range builtinDescriptors() {
		d := d
		s.models[d.ID] = &d
	}
	for _, d := range localDescriptors(s.modelsDir) {
		d := d
		// Builtin entries win when a local model reuses an id.
		if _, ok := s.models[d.ID]; ok {
			continue
		}
		s.models[d.ID] = &d
	}

	var persistedDefault string
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var persisted []Descriptor
		if uerr := json.Unmarshal(data, &persisted); uerr != nil {
			slog.Warn("catalog file is corrupt, using builtin models", "path", s.path, "error", uerr)
		} else {
			for _, d := range persisted {
				d := d
				if d.Type == TypeLocal && d.Config.Path != "" {
					if _, serr := os.Stat(d.Config.Path); serr != nil {
						slog.Debug("persisted local model not present, skipping", "model", d.ID, "path", d.Config.Path)
						continue
					}
				}
				s.models[d.ID] = &d
				if d.IsDefault {
					persistedDefault = d.ID
				}
			}
		}
	case os.IsNotExist(err):
		slog.Debug("no catalog file, starting from builtin models", "path", s.path)
	default:
		return fmt.Errorf("read catalog %s: %w", s.path, err)
	}

	s.normalizeDefault(persistedDefault)
	return nil
}

// normalizeDefault ensures exactly one descriptor carries the default
// flag. A default from the catalog file outranks a builtin default.
func (s *Service) normalizeDefault(preferred string) {
	if preferred != "" {
		if _, ok := s.models[preferred]; ok {
			s.setDefaultLocked(preferred)
			return
		}
	}
	var flagged []string
	for id, d := range s.models {
		if d.IsDefault {
			flagged = append(flagged, id)
		}
	}
	sort.Strings(flagged)

	switch len(flagged) {
	case 0:
		if len(s.models) == 0 {
			mock := Descriptor{
				ID:          "mock-model",
				DisplayName: "Mock Model",
				Type:        TypeMock,
				Description: "Deterministic output for testing without real API calls",
			}
			s.models[mock.ID] = &mock
		}
		ids := s.sortedIDs()
		s.defaultID = ids[0]
		if d, ok := s.models["mock-model"]; ok {
			s.defaultID = d.ID
		}
	case 1:
		s.defaultID = flagged[0]
	default:
		s.defaultID = flagged[len(flagged)-1]
	}

	for id, d := range s.models {
		d.IsDefault = id == s.defaultID
	}
}

func (s *Service) sortedIDs() []string {
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns all descriptors sorted by id, default first.
func (s *Service) List() []Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Descriptor, 0, len(s.models))
	for _, id := range s.sortedIDs() {
		out = append(out, *s.models[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsDefault && !out[j].IsDefault
	})
	return out
}

// Get returns the descriptor for id.
func (s *Service) Get(id string) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.models[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *d, nil
}

// Resolve returns the descriptor for id. An empty or unknown id
// resolves to the default descriptor; Resolve fails only when the
// catalog is empty, which load guards against.
func (s *Service) Resolve(id string) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if d, ok := s.models[id]; ok {
			return *d, nil
		}
		slog.Warn("unknown model, using default", "model", id, "default", s.defaultID)
	}
	d, ok := s.models[s.defaultID]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, s.defaultID)
	}
	return *d, nil
}

// DefaultID returns the id of the current default model.
func (s *Service) DefaultID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultID
}

// Add inserts a new descriptor. A descriptor flagged default takes over
// the default role from the previous holder.
func (s *Service) Add(d Descriptor) error {
	if err := Validate(d); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, d.ID)
	}
	prevDefault := s.defaultID
	s.models[d.ID] = &d
	if d.IsDefault {
		s.setDefaultLocked(d.ID)
	}
	if err := s.persistLocked(); err != nil {
		delete(s.models, d.ID)
		s.setDefaultLocked(prevDefault)
		return err
	}
	s.fireLocked(d.ID)
	return nil
}

// Update applies the non-nil fields of u to the descriptor for id.
func (s *Service) Update(id string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.models[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := *d
	prevDefault := s.defaultID
	if u.DisplayName != nil {
		d.DisplayName = *u.DisplayName
	}
	if u.Type != nil {
		d.Type = *u.Type
	}
	if u.Description != nil {
		d.Description = *u.Description
	}
	if u.Config != nil {
		d.Config = *u.Config
	}
	if u.IsDefault != nil && *u.IsDefault {
		s.setDefaultLocked(id)
	}
	if err := Validate(*d); err != nil {
		*d = prev
		s.setDefaultLocked(prevDefault)
		return err
	}
	if err := s.persistLocked(); err != nil {
		*d = prev
		s.setDefaultLocked(prevDefault)
		return err
	}
	s.fireLocked(id)
	return nil
}

// SetDefault makes id the default model.
func (s *Service) SetDefault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prevDefault := s.defaultID
	s.setDefaultLocked(id)
	if err := s.persistLocked(); err != nil {
		s.setDefaultLocked(prevDefault)
		return err
	}
	s.fireLocked(id)
	return nil
}

// Delete removes the descriptor for id. The default model cannot be
// removed; reassign the default first.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if id == s.defaultID {
		return fmt.Errorf("%w: %s", ErrCannotDeleteDefault, id)
	}
	removed := s.models[id]
	delete(s.models, id)
	if err := s.persistLocked(); err != nil {
		s.models[id] = removed
		return err
	}
	s.fireLocked(id)
	return nil
}

func (s *Service) setDefaultLocked(id string) {
	for mid, d := range s.models {
		d.IsDefault = mid == id
	}
	s.defaultID = id
}

func (s *Service) fireLocked(id string) {
	if s.onChange != nil {
		s.onChange(id)
	}
}

// persistLocked writes the whole catalog to the backing file via a
// temp-file rename.
func (s *Service) persistLocked() error {
	out := make([]Descriptor, 0, len(s.models))
	for _, id := range s.sortedIDs() {
		out = append(out, *s.models[id])
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
