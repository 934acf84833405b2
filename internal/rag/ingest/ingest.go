package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/chunker"
	"github.com/akolanti/DocGuard/internal/rag/embedding"
	"github.com/akolanti/DocGuard/internal/rag/registry"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

// ErrNotIndexed is returned when a delete names a document the registry does
// not know.
var ErrNotIndexed = errors.New("document not indexed")

type docType int

const (
	unknownDoc docType = iota
	pdfDoc
	textDoc
)

// Indexer drives document ingestion end to end: extraction, chunking,
// embedding and the registry/vector-store writes.
type Indexer struct {
	registry *registry.Registry
	store    vectorDB.Store
	embedder embedding.Embedder
	logger   *logger_i.Logger
}

func New(reg *registry.Registry, store vectorDB.Store, embedder embedding.Embedder) *Indexer {
	return &Indexer{
		registry: reg,
		store:    store,
		embedder: embedder,
		logger:   logger_i.NewLogger("Ingest"),
	}
}

// IndexFile extracts, chunks, embeds and indexes one staged file. When the
// extracted content hashes to an already-indexed document the existing entry
// is returned untouched; re-indexing a known documentId replaces its chunks.
func (ix *Indexer) IndexFile(ctx context.Context, documentId string, filename string, path string) (docModel.RegistryEntry, error) {
	log := ix.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "filename", filename)

	dt := getDocType(filename)
	if dt == unknownDoc {
		return docModel.RegistryEntry{}, fmt.Errorf("unsupported document type: %s", filepath.Ext(filename))
	}

	pages, pageCount, err := extractText(path, dt)
	if err != nil {
		return docModel.RegistryEntry{}, fmt.Errorf("extracting %s: %w", filename, err)
	}
	if len(pages) == 0 {
		return docModel.RegistryEntry{}, fmt.Errorf("no extractable text in %s", filename)
	}

	hash := contentHash(pages)
	if existing, ok := ix.registry.FindByHash(hash); ok {
		log.Info("identical content already indexed", "documentId", existing.DocumentId)
		return existing, nil
	}

	doc := docModel.ParsedDocument{
		DocumentId: documentId,
		Filename:   filename,
		Pages:      pages,
		PageCount:  pageCount,
	}
	chunks := chunker.ChunkDocument(doc, chunker.DefaultOptions())
	if len(chunks) == 0 {
		return docModel.RegistryEntry{}, fmt.Errorf("document %s produced no chunks", filename)
	}
	log.Debug("document chunked", "pages", len(pages), "chunks", len(chunks))

	// re-index path: drop the old vectors before writing the new generation
	if _, ok := ix.registry.Get(documentId); ok {
		if err := ix.store.Remove(ctx, documentId); err != nil {
			return docModel.RegistryEntry{}, fmt.Errorf("removing stale vectors for %s: %w", documentId, err)
		}
	}

	if err := ix.embedAndCommit(ctx, chunks); err != nil {
		return docModel.RegistryEntry{}, err
	}

	chunkIds := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIds[i] = c.Id
	}
	if err := ix.registry.Put(documentId, filename, hash, chunkIds); err != nil {
		return docModel.RegistryEntry{}, fmt.Errorf("recording %s in registry: %w", documentId, err)
	}

	entry, _ := ix.registry.Get(documentId)
	log.Info("document indexed", "documentId", documentId, "chunks", len(chunkIds))
	return entry, nil
}

// DeleteDocument removes the document's vectors and then its registry entry.
// Vector removal comes first so a failure never leaves vectors the registry
// no longer tracks; a concurrent search observes the document fully present
// or fully gone.
func (ix *Indexer) DeleteDocument(ctx context.Context, documentId string) (int, error) {
	entry, ok := ix.registry.Get(documentId)
	if !ok {
		return 0, ErrNotIndexed
	}
	if err := ix.store.Remove(ctx, documentId); err != nil {
		return 0, fmt.Errorf("removing vectors for %s: %w", documentId, err)
	}
	if _, err := ix.registry.Remove(documentId); err != nil {
		return 0, fmt.Errorf("removing registry entry for %s: %w", documentId, err)
	}
	ix.logger.Info("document removed", "documentId", documentId, "chunks", len(entry.ChunkIds))
	return len(entry.ChunkIds), nil
}

// embedAndCommit embeds every chunk and then writes the whole document with
// one Upsert. The embedder batches its provider calls internally; nothing
// reaches the store until all vectors exist, so a concurrent search sees the
// document either fully absent or fully present, never partially indexed.
func (ix *Indexer) embedAndCommit(ctx context.Context, chunks []docModel.DocumentChunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding document failed: %w", err)
	}
	if err := ix.store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upserting document failed: %w", err)
	}
	return nil
}

func getDocType(filename string) docType {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return pdfDoc
	case ".docx", ".odt", ".txt", ".rtf":
		return textDoc
	default:
		return unknownDoc
	}
}

func extractText(path string, dt docType) ([]docModel.Page, int, error) {
	switch dt {
	case pdfDoc:
		return extractPDF(path)
	case textDoc:
		return extractDocxTxtRtf(path)
	default:
		return nil, 0, fmt.Errorf("unsupported content type")
	}
}

// contentHash fingerprints the extracted text, not the file bytes, so the
// same content re-uploaded under a different name is still recognized.
func contentHash(pages []docModel.Page) string {
	h := sha256.New()
	for _, p := range pages {
		io.WriteString(h, p.Text)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
