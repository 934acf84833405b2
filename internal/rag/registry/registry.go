package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

// Registry is the persisted record of which chunk ids belong to which source
// document. It is a single logical resource: every read-modify-write is
// serialized behind one mutex, and the file is replaced by atomic rename so a
// crash never leaves a torn registry on disk.
type Registry struct {
	mu      sync.RWMutex
	path    string
	entries map[string]docModel.RegistryEntry
	logger  *logger_i.Logger
}

func Open(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		entries: make(map[string]docModel.RegistryEntry),
		logger:  logger_i.NewLogger("Registry"),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}
	return r, nil
}

func (r *Registry) Get(documentId string) (docModel.RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[documentId]
	return e, ok
}

// FindByHash reports whether a document with identical content is already
// indexed, enabling incremental re-indexing to skip unchanged files.
func (r *Registry) FindByHash(contentHash string) (docModel.RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ContentHash == contentHash {
			return e, true
		}
	}
	return docModel.RegistryEntry{}, false
}

func (r *Registry) List() []docModel.RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]docModel.RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentId < out[j].DocumentId })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Put records a document's chunk ids and persists. Replacing an existing
// entry is the caller's re-index path; the old chunk ids must already have
// been removed from the vector store.
func (r *Registry) Put(documentId, filename, contentHash string, chunkIds []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[documentId] = docModel.RegistryEntry{
		DocumentId:  documentId,
		Filename:    filename,
		ChunkIds:    append([]string(nil), chunkIds...),
		ContentHash: contentHash,
		IndexedAt:   time.Now().UTC(),
	}
	return r.persistLocked()
}

// Remove drops the entry and persists, returning the chunk ids the entry
// held so the caller can delete the matching vector rows.
func (r *Registry) Remove(documentId string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[documentId]
	if !ok {
		return nil, nil
	}
	delete(r.entries, documentId)
	if err := r.persistLocked(); err != nil {
		// restore in-memory state so registry and file stay consistent
		r.entries[documentId] = e
		return nil, err
	}
	return e.ChunkIds, nil
}

func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(r.path), 0750); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	r.logger.Debug("registry persisted", "documents", len(r.entries))
	return nil
}
