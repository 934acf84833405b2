package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/vectorDB"
	"github.com/akolanti/DocGuard/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var qdrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingDimension)
var collectionName = config.CollectionName

const scrollPageSize = 256

type ClientHolder struct {
	QObj *qdrant.Client
}

// GetQdrantClient returns the shared qdrant-backed store, or nil when the
// server cannot be reached so the caller can fall back to the local store.
func GetQdrantClient(ctx context.Context) vectorDB.Store {

	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			qdrantInstance = res
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if qdrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: qdrantInstance,
	}
}

func newClient() *qdrant.Client {

	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	err = createCollection(context.Background(), client, collectionName)
	if err != nil {
		logger.Error("could not create collection: ", "collectionName", collectionName, "error:", err)
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

// pointId derives a stable qdrant UUID from the chunk id, so re-indexing a
// document overwrites its points instead of duplicating them.
func pointId(chunkId string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkId)).String())
}

func (db *ClientHolder) Upsert(ctx context.Context, chunks []docModel.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))

	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      pointId(chunk.Id),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":     chunk.Id,
				"document_id":  chunk.DocumentId,
				"doc_name":     chunk.DocName,
				"content":      chunk.Content,
				"ordinal":      int64(chunk.Ordinal),
				"page":         chunk.PageOrSheet,
				"headings":     strings.Join(chunk.Headings, "\n"),
				"start_offset": int64(chunk.StartOffset),
				"end_offset":   int64(chunk.EndOffset),
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})

	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	return nil
}

func (db *ClientHolder) Remove(ctx context.Context, documentId string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentId)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, queryVector []float32, topK int, documentId string) ([]vectorDB.SearchResult, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	query := &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if documentId != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentId)},
		}
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	results := make([]vectorDB.SearchResult, 0, len(result))
	for _, hit := range result {
		results = append(results, vectorDB.SearchResult{
			Chunk: chunkFromPayload(hit.Payload),
			Score: float64(hit.Score),
		})
	}

	loggr.Debug("qdrant search done", "hits", len(results))
	return results, nil
}

func (db *ClientHolder) ScrollAll(ctx context.Context) ([]docModel.DocumentChunk, error) {
	var out []docModel.DocumentChunk
	var offset *qdrant.PointId

	for {
		points, err := db.QObj.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collectionName,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll failed: %w", err)
		}
		if len(points) == 0 {
			return out, nil
		}
		for _, p := range points {
			out = append(out, chunkFromPayload(p.Payload))
		}
		if len(points) < scrollPageSize {
			return out, nil
		}
		offset = points[len(points)-1].Id
	}
}

func (db *ClientHolder) Stats(ctx context.Context) (vectorDB.Stats, error) {
	chunks, err := db.ScrollAll(ctx)
	if err != nil {
		return vectorDB.Stats{}, err
	}
	docs := make(map[string]bool)
	for _, c := range chunks {
		docs[c.DocumentId] = true
	}
	return vectorDB.Stats{TotalChunks: len(chunks), TotalDocuments: len(docs)}, nil
}

func chunkFromPayload(payload map[string]*qdrant.Value) docModel.DocumentChunk {
	var headings []string
	if raw := payload["headings"].GetStringValue(); raw != "" {
		headings = strings.Split(raw, "\n")
	}
	return docModel.DocumentChunk{
		Id:          payload["chunk_id"].GetStringValue(),
		DocumentId:  payload["document_id"].GetStringValue(),
		DocName:     payload["doc_name"].GetStringValue(),
		Content:     payload["content"].GetStringValue(),
		Ordinal:     int(payload["ordinal"].GetIntegerValue()),
		PageOrSheet: payload["page"].GetStringValue(),
		Headings:    headings,
		StartOffset: int(payload["start_offset"].GetIntegerValue()),
		EndOffset:   int(payload["end_offset"].GetIntegerValue()),
	}
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err
}
