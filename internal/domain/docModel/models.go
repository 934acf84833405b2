package docModel

import (
	"fmt"
	"time"
)

// ParsedDocument is what the document parsers hand us: plain text with
// locators. The chunker never sees binary formats.
type ParsedDocument struct {
	DocumentId string `json:"document_id"`
	Filename   string `json:"filename"`
	Pages      []Page `json:"pages"`
	// PageCount is set when the parser knows how many pages the source had
	// but could not attach per-page markers (single-blob extractors).
	PageCount int `json:"page_count,omitempty"`
}

type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	SheetName  string `json:"sheet_name,omitempty"`
}

// DocumentChunk is the unit of retrieval.
type DocumentChunk struct {
	Id          string   `json:"chunk_id"`
	DocumentId  string   `json:"document_id"`
	DocName     string   `json:"doc_name"`
	Content     string   `json:"content"`
	Ordinal     int      `json:"ordinal"`
	PageOrSheet string   `json:"page_or_sheet,omitempty"`
	Headings    []string `json:"headings,omitempty"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
}

// ChunkId derives the stable chunk id from the document id and ordinal.
func ChunkId(documentId string, ordinal int) string {
	return fmt.Sprintf("%s:%d", documentId, ordinal)
}

// SourceRef formats the traceable source label used in evidence blocks and
// citations, e.g. "spec.pdf | Page 12" or "boq.xlsx | Sheet: Summary".
func (c DocumentChunk) SourceRef() string {
	if c.PageOrSheet == "" {
		return c.DocName
	}
	return fmt.Sprintf("%s | %s", c.DocName, c.PageOrSheet)
}

// EmbeddingRecord is one cached embedding: the content hash it is keyed by,
// the vector, and the provider-reported token count for the embedded text.
type EmbeddingRecord struct {
	ContentHash string    `json:"content_hash"`
	Vector      []float32 `json:"vector"`
	TokenCount  int       `json:"token_count"`
}

type RegistryEntry struct {
	DocumentId  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ChunkIds    []string  `json:"chunk_ids"`
	ContentHash string    `json:"content_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// RetrievalCandidate pairs a chunk with its per-query scores. At least one of
// VectorScore/LexicalScore is set. Never persisted.
type RetrievalCandidate struct {
	Chunk         DocumentChunk
	VectorScore   float64
	HasVector     bool
	LexicalScore  float64
	HasLexical    bool
	CombinedScore float64
}

type GuardStage string

type GuardOutcome string

type ReasonCode string

const (
	StagePre  GuardStage = "PRE"
	StagePost GuardStage = "POST"

	OutcomePass GuardOutcome = "PASS"
	OutcomeFail GuardOutcome = "FAIL"

	ReasonNone             ReasonCode = ""
	ReasonNoResults        ReasonCode = "NO_RESULTS"
	ReasonLowScore         ReasonCode = "LOW_SCORE"
	ReasonNoKeywordOverlap ReasonCode = "NO_KEYWORD_OVERLAP"
	ReasonMissingSource    ReasonCode = "MISSING_SOURCE"
	ReasonMissingCitation  ReasonCode = "MISSING_CITATION"
	ReasonForbiddenLang    ReasonCode = "FORBIDDEN_LANGUAGE"
	ReasonComplianceClaim  ReasonCode = "COMPLIANCE_CLAIM"
	ReasonOutsideKnowledge ReasonCode = "OUTSIDE_KNOWLEDGE"
	ReasonProviderError    ReasonCode = "PROVIDER_ERROR"
)

// GuardDecision is produced once per stage per query and drives the
// orchestrator's branch. Immutable.
type GuardDecision struct {
	Stage    GuardStage
	Outcome  GuardOutcome
	Reason   ReasonCode
	Evidence string
}

func (d GuardDecision) Passed() bool {
	return d.Outcome == OutcomePass
}
