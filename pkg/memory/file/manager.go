// Package file provides a reference MemoryManager (§6.2, §9 "Default
// MemoryManager") backed by the local filesystem: one directory per
// session holding a transcript file and a set of filename-keyed memory
// entries, searched by substring scoring rather than embeddings (no
// vector store, out of scope per spec.md §1).
//
// Grounded on the teacher's WorkflowResource (pkg/models/workflow.go): a
// resource is addressed by a stable alias independent of its storage
// location, which this package repurposes as a memory entry addressed by
// filename independent of where its content came from.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const transcriptFile = "transcript.json"

// Manager implements executor.MemoryManager against a per-session
// directory. It is owned by exactly one session (§5 "MemoryManager is
// single-owner per session").
type Manager struct {
	mu        sync.Mutex
	dir       string
	sessionID string
	entries   map[string]string // filename -> content
	transcript []models.ChatMessage
}

// New constructs a Manager rooted at filepath.Join(baseDir, sessionID).
func New(baseDir, sessionID string) *Manager {
	return &Manager{dir: filepath.Join(baseDir, sessionID), sessionID: sessionID, entries: map[string]string{}}
}

var _ executor.MemoryManager = (*Manager)(nil)

// Initialize creates the session directory (if absent) and loads any
// existing transcript and memory entries from a prior run.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("memory manager: create session dir: %w", err)
	}

	if data, err := os.ReadFile(filepath.Join(m.dir, transcriptFile)); err == nil {
		if err := json.Unmarshal(data, &m.transcript); err != nil {
			return fmt.Errorf("memory manager: unmarshal transcript: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("memory manager: read transcript: %w", err)
	}

	return m.loadEntries()
}

// loadEntries reads every non-transcript file in the session directory
// into the in-memory search index, keyed by base filename.
func (m *Manager) loadEntries() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("memory manager: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == transcriptFile {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		m.entries[e.Name()] = string(data)
	}
	return nil
}

// RecordMessage appends one turn to the transcript and persists it
// immediately, matching the executor's expectation (§4.7 step 2, §4.3
// "Transcript Record") that a recorded message survives process
// restarts without an explicit flush call.
func (m *Manager) RecordMessage(ctx context.Context, role models.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcript = append(m.transcript, models.ChatMessage{Role: role, Content: content})
	return m.writeTranscript()
}

func (m *Manager) writeTranscript() error {
	data, err := json.MarshalIndent(m.transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("memory manager: marshal transcript: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, transcriptFile), data, 0o644); err != nil {
		return fmt.Errorf("memory manager: write transcript: %w", err)
	}
	return nil
}

// Put adds or replaces a filename-keyed memory entry and writes it to
// disk, making it visible to future Search calls. Not part of the
// executor.MemoryManager interface — it's the side door callers use to
// seed memory outside of the transcript (e.g. uploaded reference docs).
func (m *Manager) Put(filename, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[filename] = content
	if err := os.WriteFile(filepath.Join(m.dir, filename), []byte(content), 0o644); err != nil {
		return fmt.Errorf("memory manager: write entry %s: %w", filename, err)
	}
	return nil
}

// Search scores every memory entry by how many query tokens it contains
// (case-insensitive substring match), returning the top maxResults
// entries with a nonzero score, highest first. This is deliberately not
// a vector/embedding search (§1 non-goal); it trades recall for zero
// external dependencies.
func (m *Manager) Search(ctx context.Context, query string, maxResults int) ([]executor.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 || len(m.entries) == 0 {
		return nil, nil
	}

	var hits []executor.SearchResult
	for filename, content := range m.entries {
		lower := strings.ToLower(content)
		var matches int
		for _, tok := range tokens {
			matches += strings.Count(lower, tok)
		}
		if matches == 0 {
			continue
		}
		hits = append(hits, executor.SearchResult{
			Entry: models.MemoryRef{
				Filename:  filename,
				Source:    "file",
				CharCount: len(content),
			},
			Score: float64(matches) / float64(len(tokens)),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.Filename < hits[j].Entry.Filename
	})

	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits, nil
}

// AutoFlush persists the in-memory transcript to disk. RecordMessage
// already writes through on every call, so AutoFlush is a no-op safety
// net for callers that batch messages some other way before the session
// ends.
func (m *Manager) AutoFlush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeTranscript()
}
