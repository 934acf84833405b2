package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/registry"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
)

// --- Mocks ---

type mockStore struct {
	upserted    []docModel.DocumentChunk
	upsertCalls int
	removed     []string
	removeErr   error
}

func (m *mockStore) Upsert(ctx context.Context, chunks []docModel.DocumentChunk, vectors [][]float32) error {
	m.upsertCalls++
	m.upserted = append(m.upserted, chunks...)
	return nil
}
func (m *mockStore) Remove(ctx context.Context, documentId string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, documentId)
	return nil
}
func (m *mockStore) Search(ctx context.Context, v []float32, topK int, documentId string) ([]vectorDB.SearchResult, error) {
	return nil, nil
}
func (m *mockStore) ScrollAll(ctx context.Context) ([]docModel.DocumentChunk, error) {
	return nil, nil
}
func (m *mockStore) Stats(ctx context.Context) (vectorDB.Stats, error) {
	return vectorDB.Stats{}, nil
}

type mockEmbedder struct {
	calls   int
	onEmbed func()
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.onEmbed != nil {
		m.onEmbed()
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (m *mockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (m *mockEmbedder) Clear() {}

func writeTempDoc(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatalf("writing temp doc: %v", err)
	}
	return path
}

func newTestIndexer(t *testing.T) (*Indexer, *registry.Registry, *mockStore, *mockEmbedder) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	store := &mockStore{}
	emb := &mockEmbedder{}
	return New(reg, store, emb), reg, store, emb
}

// --- Unit Tests ---

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected docType
	}{
		{"test.pdf", pdfDoc},
		{"DOC.DOCX", textDoc},
		{"notes.txt", textDoc},
		{"report.odt", textDoc},
		{"image.png", unknownDoc},
	}

	for _, tt := range tests {
		if got := getDocType(tt.path); got != tt.expected {
			t.Errorf("getDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestIndexFile_TextDocument(t *testing.T) {
	ix, reg, store, _ := newTestIndexer(t)
	body := strings.Repeat("The earthing resistance shall not exceed 10 ohms at any station. ", 20)
	path := writeTempDoc(t, "earthing.txt", body)

	entry, err := ix.IndexFile(context.Background(), "doc-1", "earthing.txt", path)
	if err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}
	if entry.DocumentId != "doc-1" || len(entry.ChunkIds) == 0 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(store.upserted) != len(entry.ChunkIds) {
		t.Errorf("upserted %d chunks but registry lists %d", len(store.upserted), len(entry.ChunkIds))
	}
	for _, c := range store.upserted {
		if c.DocumentId != "doc-1" || c.DocName != "earthing.txt" {
			t.Errorf("chunk %s carries wrong document metadata: %+v", c.Id, c)
		}
		if c.PageOrSheet == "" {
			t.Errorf("chunk %s has no page locator", c.Id)
		}
	}
	if reg.Count() != 1 {
		t.Errorf("registry has %d entries; want 1", reg.Count())
	}
}

func TestIndexFile_IdenticalContentIsNotReindexed(t *testing.T) {
	ix, _, store, emb := newTestIndexer(t)
	body := strings.Repeat("Cable cross-section is 240 mm2 for the main DC runs. ", 20)

	first, err := ix.IndexFile(context.Background(), "doc-1", "cables.txt", writeTempDoc(t, "cables.txt", body))
	if err != nil {
		t.Fatalf("first IndexFile failed: %v", err)
	}
	callsAfterFirst := emb.calls
	upsertsAfterFirst := len(store.upserted)

	second, err := ix.IndexFile(context.Background(), "doc-2", "cables-copy.txt", writeTempDoc(t, "cables-copy.txt", body))
	if err != nil {
		t.Fatalf("second IndexFile failed: %v", err)
	}

	if second.DocumentId != first.DocumentId {
		t.Errorf("identical content created a new entry %s; want reuse of %s", second.DocumentId, first.DocumentId)
	}
	if emb.calls != callsAfterFirst || len(store.upserted) != upsertsAfterFirst {
		t.Error("identical content triggered new embedding or upsert work")
	}
}

func TestIndexFile_UnsupportedExtension(t *testing.T) {
	ix, _, _, _ := newTestIndexer(t)
	if _, err := ix.IndexFile(context.Background(), "doc-1", "photo.png", "photo.png"); err == nil {
		t.Error("expected error for unsupported document type")
	}
}

func TestDeleteDocument(t *testing.T) {
	ix, reg, store, _ := newTestIndexer(t)
	body := strings.Repeat("Inverter stations are numbered PS1 through PS8. ", 20)
	if _, err := ix.IndexFile(context.Background(), "doc-1", "stations.txt", writeTempDoc(t, "stations.txt", body)); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	removed, err := ix.DeleteDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if removed == 0 {
		t.Error("DeleteDocument reported zero removed chunks")
	}
	if len(store.removed) != 1 || store.removed[0] != "doc-1" {
		t.Errorf("vector store removals = %v; want [doc-1]", store.removed)
	}
	if reg.Count() != 0 {
		t.Error("registry entry survived deletion")
	}
}

func TestDeleteDocument_Unknown(t *testing.T) {
	ix, _, _, _ := newTestIndexer(t)
	if _, err := ix.DeleteDocument(context.Background(), "ghost"); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("got %v; want ErrNotIndexed", err)
	}
}

func TestDeleteDocument_VectorFailureKeepsRegistryEntry(t *testing.T) {
	ix, reg, store, _ := newTestIndexer(t)
	body := strings.Repeat("Fence height is 2.4 metres along the perimeter. ", 20)
	if _, err := ix.IndexFile(context.Background(), "doc-1", "fence.txt", writeTempDoc(t, "fence.txt", body)); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	store.removeErr = errors.New("backend down")
	if _, err := ix.DeleteDocument(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error when vector removal fails")
	}
	if _, ok := reg.Get("doc-1"); !ok {
		t.Error("registry entry dropped although vectors were not removed")
	}
}

func TestIndexFile_CommitsWholeDocumentInOneUpsert(t *testing.T) {
	ix, _, store, emb := newTestIndexer(t)
	body := strings.Repeat("Transformer bays are spaced 25 metres apart along the access road. ", 400)
	path := writeTempDoc(t, "layout.txt", body)

	// While embedding is still in flight nothing may be readable: a search
	// racing the ingest must see the document fully absent, never a partial
	// chunk set.
	emb.onEmbed = func() {
		if len(store.upserted) != 0 {
			t.Errorf("%d chunks visible in the store before embedding finished", len(store.upserted))
		}
	}

	entry, err := ix.IndexFile(context.Background(), "doc-1", "layout.txt", path)
	if err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}
	if len(entry.ChunkIds) < 2 {
		t.Fatalf("document produced %d chunks; test needs a multi-chunk document", len(entry.ChunkIds))
	}
	if store.upsertCalls != 1 {
		t.Errorf("document committed over %d upserts; want a single atomic write", store.upsertCalls)
	}
	if len(store.upserted) != len(entry.ChunkIds) {
		t.Errorf("store holds %d chunks but registry lists %d", len(store.upserted), len(entry.ChunkIds))
	}
}
