package retriever

import (
	"context"
	"sort"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/embedding"
	"github.com/akolanti/DocGuard/internal/rag/lexical"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

type Options struct {
	TopK          int
	VectorK       int
	VectorWeight  float64
	LexicalWeight float64
	BM25          lexical.Options
}

func DefaultOptions() Options {
	return Options{
		TopK:          config.TopKResults,
		VectorK:       config.VectorSearchK,
		VectorWeight:  config.VectorWeight,
		LexicalWeight: config.LexicalWeight,
		BM25:          lexical.DefaultOptions(),
	}
}

// Retriever merges vector similarity and BM25 over the same candidate
// population into one ranked list. The vector search picks the population;
// the lexical scorer re-scores exactly those chunks, so the two signals are
// always comparable.
type Retriever struct {
	store    vectorDB.Store
	embedder embedding.Embedder
	opts     Options
	logger   *logger_i.Logger
}

func New(store vectorDB.Store, embedder embedding.Embedder, opts Options) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		opts:     opts,
		logger:   logger_i.NewLogger("Retriever"),
	}
}

// Retrieve returns the topK candidates for a query, ordered by combined
// score. documentId narrows the search to one document when non-empty.
// An embedding or vector-search failure degrades to lexical-only ranking
// instead of failing the query.
func (r *Retriever) Retrieve(ctx context.Context, query string, documentId string) ([]docModel.RetrievalCandidate, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	hits, vectorOk := r.vectorCandidates(ctx, query, documentId, log)

	var population []docModel.DocumentChunk
	vectorScores := make(map[string]float64, len(hits))
	if vectorOk {
		for _, h := range hits {
			population = append(population, h.Chunk)
			vectorScores[h.Chunk.Id] = h.Score
		}
	} else {
		all, err := r.store.ScrollAll(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range all {
			if documentId != "" && c.DocumentId != documentId {
				continue
			}
			population = append(population, c)
		}
	}

	if len(population) == 0 {
		return nil, nil
	}

	ranked := lexical.Score(query, population, r.opts.BM25)
	maxLex := 0.0
	for _, s := range ranked {
		if s.Score > maxLex {
			maxLex = s.Score
		}
	}

	candidates := make([]docModel.RetrievalCandidate, 0, len(ranked))
	for _, s := range ranked {
		c := docModel.RetrievalCandidate{
			Chunk:        s.Chunk,
			LexicalScore: s.Score,
			HasLexical:   true,
		}
		lexNorm := 0.0
		if maxLex > 0 {
			lexNorm = s.Score / maxLex
		}
		if vectorOk {
			vs := vectorScores[s.Chunk.Id]
			c.VectorScore = vs
			c.HasVector = true
			c.CombinedScore = r.opts.VectorWeight*clamp01(vs) + r.opts.LexicalWeight*lexNorm
		} else {
			c.CombinedScore = lexNorm
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		return candidates[i].Chunk.Id < candidates[j].Chunk.Id
	})

	if len(candidates) > r.opts.TopK {
		candidates = candidates[:r.opts.TopK]
	}
	log.Debug("retrieval done", "candidates", len(candidates), "vector", vectorOk)
	return candidates, nil
}

// vectorCandidates runs the embedding plus vector search leg, reporting
// whether the vector signal is usable for this query.
func (r *Retriever) vectorCandidates(ctx context.Context, query string, documentId string, log *logger_i.Logger) ([]vectorDB.SearchResult, bool) {
	if r.embedder == nil || r.store == nil {
		return nil, false
	}

	queryVector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		log.Warn("query embedding failed, using lexical-only ranking", "error", err)
		return nil, false
	}

	hits, err := r.store.Search(ctx, queryVector, r.opts.VectorK, documentId)
	if err != nil {
		log.Warn("vector search failed, using lexical-only ranking", "error", err)
		return nil, false
	}
	if len(hits) == 0 {
		return nil, false
	}
	return hits, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
