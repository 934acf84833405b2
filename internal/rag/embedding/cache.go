package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

// CachedEmbedder wraps a Provider with an in-memory content-hash cache of
// EmbeddingRecords. Keys are derived from the model name and the exact text
// sent downstream, so identical chunks across documents resolve to one
// provider call, and the token spend of each entry stays attributable.
type CachedEmbedder struct {
	provider      Provider
	mu            sync.RWMutex
	cache         map[string]docModel.EmbeddingRecord
	logger        *logger_i.Logger
	maxRetries    int
	retryBaseWait time.Duration
}

func NewCachedEmbedder(provider Provider) *CachedEmbedder {
	return &CachedEmbedder{
		provider:      provider,
		cache:         make(map[string]docModel.EmbeddingRecord),
		logger:        logger_i.NewLogger("EmbeddingCache"),
		maxRetries:    config.EmbeddingMaxRetries,
		retryBaseWait: config.EmbeddingRetryBaseWait,
	}
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Truncate bounds a text to the provider's input budget, cutting back to a
// rune boundary. Truncation happens before hashing so a cached vector always
// matches what was actually embedded.
func Truncate(text string) string {
	if len(text) <= config.EmbeddingMaxChars {
		return text
	}
	cut := config.EmbeddingMaxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// Embed returns one vector per text, in input order. Cache hits are served
// locally; misses are batched to the provider and cached on success together
// with their token counts.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.provider.Model()
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	e.mu.RLock()
	for i, t := range texts {
		t = Truncate(t)
		if rec, ok := e.cache[cacheKey(model, t)]; ok {
			out[i] = rec.Vector
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, t)
		}
	}
	e.mu.RUnlock()

	if len(missTexts) == 0 {
		return out, nil
	}
	e.logger.Debug("embedding cache lookup", "texts", len(texts), "misses", len(missTexts))

	for start := 0; start < len(missTexts); start += config.EmbeddingBatchSize {
		end := min(start+config.EmbeddingBatchSize, len(missTexts))
		batch := missTexts[start:end]

		vectors, tokenCounts, err := e.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) || len(tokenCounts) != len(batch) {
			return nil, fmt.Errorf("provider returned %d vectors and %d token counts for %d texts",
				len(vectors), len(tokenCounts), len(batch))
		}

		batchTokens := 0
		e.mu.Lock()
		for j, v := range vectors {
			out[missIdx[start+j]] = v
			key := cacheKey(model, batch[j])
			e.cache[key] = docModel.EmbeddingRecord{
				ContentHash: key,
				Vector:      v,
				TokenCount:  tokenCounts[j],
			}
			batchTokens += tokenCounts[j]
		}
		e.mu.Unlock()
		e.logger.Debug("embedded batch", "texts", len(batch), "tokens", batchTokens)
	}

	return out, nil
}

func (e *CachedEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CacheStats reports the number of cached entries and the total token count
// they represent.
func (e *CachedEmbedder) CacheStats() (entries int, tokens int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, rec := range e.cache {
		tokens += rec.TokenCount
	}
	return len(e.cache), tokens
}

func (e *CachedEmbedder) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Info("clearing embedding cache", "entries", len(e.cache))
	e.cache = make(map[string]docModel.EmbeddingRecord)
}

// embedWithRetry backs off only on transient failures (rate limits, backend
// unavailability, per-call timeouts). Anything else, a bad request or an auth
// failure, returns immediately: retrying cannot fix it.
func (e *CachedEmbedder) embedWithRetry(ctx context.Context, batch []string) ([][]float32, []int, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			wait := e.retryBaseWait << (attempt - 1)
			e.logger.Warn("retrying embedding batch", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, config.EmbeddingCallTimeout)
		vectors, tokenCounts, err := e.provider.EmbedBatch(callCtx, batch)
		cancel()
		if err == nil {
			return vectors, tokenCounts, nil
		}
		if !errors.Is(err, ErrTransient) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("embedding failed: %w", err)
		}
		lastErr = err
	}
	return nil, nil, fmt.Errorf("embedding failed after %d retries: %w", e.maxRetries, lastErr)
}
