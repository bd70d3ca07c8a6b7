// Package store implements file-backed persistence for WorkflowDefinition
// values (§6.3) plus the built-in template factories that get installed
// into it at startup (§4.8 initialize()'s "fallback template simple").
// Grounded on original_source/backend/service/workflow/workflow_store.py's
// WorkflowStore: one sanitized-id JSON file per workflow under a
// directory, re-expressed with the teacher's repository-interface shape
// (internal/infrastructure/storage/workflow_repository.go) but targeting
// the local filesystem instead of Postgres/bun — the bun/pgdialect stack
// is kept but re-wired to the optional execution event journal instead
// (internal/infrastructure/storage/eventlog), see DESIGN.md.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/flowglyph/agentflow/pkg/models"
)

// WorkflowStore persists WorkflowDefinition values as individual JSON
// files under Dir. Concurrent writes to the same workflow id are
// serialized by mu, matching §5's "WorkflowStore is single-writer,
// file-backed" shared-resource rule.
type WorkflowStore struct {
	mu  sync.Mutex
	dir string
}

// New creates a WorkflowStore rooted at dir, creating it if necessary.
func New(dir string) (*WorkflowStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workflow store: create dir: %w", err)
	}
	return &WorkflowStore{dir: dir}, nil
}

// Save creates or updates a workflow definition, bumping UpdatedAt and
// writing it to its sanitized-id file (§6.3).
func (s *WorkflowStore) Save(def *models.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def.Touch()
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow store: marshal %s: %w", def.ID, err)
	}
	path := s.pathFor(def.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("workflow store: write %s: %w", def.ID, err)
	}
	return nil
}

// Load reads a single workflow by id. A missing file is reported via
// models.ErrWorkflowNotFound rather than a bare os.ErrNotExist, so
// callers can match the spec's error taxonomy (§7).
func (s *WorkflowStore) Load(id string) (*models.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *WorkflowStore) load(id string) (*models.WorkflowDefinition, error) {
	path := s.pathFor(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrWorkflowNotFound, id)
		}
		return nil, fmt.Errorf("workflow store: read %s: %w", id, err)
	}
	var def models.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("workflow store: unmarshal %s: %w", id, err)
	}
	return &def, nil
}

// Delete removes a workflow definition. It reports whether a file was
// actually removed (the teacher's workflow_store.py's delete() boolean).
func (s *WorkflowStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("workflow store: delete %s: %w", id, err)
	}
	return true, nil
}

// Exists reports whether a workflow with id is on disk.
func (s *WorkflowStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

// ListAll loads every workflow definition in the store directory, sorted
// by filename for deterministic ordering. A malformed or unreadable file
// is skipped and its error returned in the second result, matching the
// teacher's list_all()'s "skip and warn" behavior rather than aborting
// the whole listing over one bad file.
func (s *WorkflowStore) ListAll() ([]*models.WorkflowDefinition, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, []error{fmt.Errorf("workflow store: read dir: %w", err)}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []*models.WorkflowDefinition
	var errs []error
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("workflow store: read %s: %w", name, err))
			continue
		}
		var def models.WorkflowDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			errs = append(errs, fmt.Errorf("workflow store: malformed file %s: %w", name, err))
			continue
		}
		out = append(out, &def)
	}
	return out, errs
}

// ListTemplates returns only template workflows.
func (s *WorkflowStore) ListTemplates() ([]*models.WorkflowDefinition, []error) {
	all, errs := s.ListAll()
	var out []*models.WorkflowDefinition
	for _, d := range all {
		if d.IsTemplate {
			out = append(out, d)
		}
	}
	return out, errs
}

// ListUserWorkflows returns only non-template (user-created) workflows.
func (s *WorkflowStore) ListUserWorkflows() ([]*models.WorkflowDefinition, []error) {
	all, errs := s.ListAll()
	var out []*models.WorkflowDefinition
	for _, d := range all {
		if !d.IsTemplate {
			out = append(out, d)
		}
	}
	return out, errs
}

// FindByTemplateName loads the first stored template whose TemplateName
// matches, used by the Session Façade's workflowId/graphName resolution
// fallback (§4.8 initialize()).
func (s *WorkflowStore) FindByTemplateName(name string) (*models.WorkflowDefinition, error) {
	templates, _ := s.ListTemplates()
	for _, t := range templates {
		if t.TemplateName == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: template %s", models.ErrWorkflowNotFound, name)
}

// pathFor sanitizes id to [A-Za-z0-9_-] before joining it to Dir (§6.3),
// preventing path traversal through a crafted workflow id.
func (s *WorkflowStore) pathFor(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	safeID := b.String()
	return filepath.Join(s.dir, safeID+".json")
}
