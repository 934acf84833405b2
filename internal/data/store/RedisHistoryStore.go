package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/data/redisStore"
	"github.com/akolanti/DocGuard/internal/domain/jobModel"
	"github.com/akolanti/DocGuard/pkg/logger_i"
)

type RedisHistoryStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisHistoryStore(ctx context.Context) *RedisHistoryStore {
	return &RedisHistoryStore{
		store:  redisStore.GetRedisStore(ctx, config.RedisHistoryStore),
		logger: logger_i.NewLogger("HistoryStore"),
	}
}

func (s *RedisHistoryStore) ValidateProjectId(ctx context.Context, projectId string) bool {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "project Id", projectId)
	log.Debug("validating projectId")
	isFound, err := s.store.Exists(ctx, projectId)
	if s.store.IsNil(err) {
		return false
	} else if err != nil {
		log.Error("Failed to check if projectId exists", "err", err)
		return false
	}
	return isFound
}

func (s *RedisHistoryStore) AppendHistory(ctx context.Context, projectId string, payload jobModel.JobPayload) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "project Id", projectId)
	if s.ValidateProjectId(ctx, projectId) == false {
		err := errors.New("unknown project id")
		log.Error("Failed validation before saving history", "err", err)
		return err
	}
	return s.pushEntry(ctx, projectId, payload)
}

func (s *RedisHistoryStore) pushEntry(ctx context.Context, projectId string, payload jobModel.JobPayload) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "project Id", projectId)
	err := s.store.ListPush(ctx, projectId, marshallJson(payload, s.logger))
	if err != nil {
		log.Error("error saving history entry", "error:", err)
		return err
	}
	// refresh the window on every write so active projects never expire mid-use
	if err := s.store.Expire(ctx, projectId, config.RedisHistoryStoreTTL); err != nil {
		log.Error("error refreshing history TTL", "error:", err)
	}
	log.Debug("Saved history entry successfully")
	return nil
}

// InitProject seeds the project key with an empty marker entry so later
// ValidateProjectId calls can distinguish known projects from typos.
func (s *RedisHistoryStore) InitProject(ctx context.Context, projectId string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "project Id", projectId)
	log.Debug("Initializing new project")
	err := s.store.Del(ctx, projectId)
	if err != nil && !s.store.IsNil(err) {
		log.Error("Error initializing project", "error:", err)
	}
	return s.pushEntry(ctx, projectId, jobModel.JobPayload{})
}

func marshallJson(payload jobModel.JobPayload, logger *logger_i.Logger) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error marshalling json :", err)
	}
	return data
}

func (s *RedisHistoryStore) GetHistory(ctx context.Context, projectId string) ([]jobModel.JobPayload, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "project Id", projectId)
	log.Debug("Getting query history")

	res, err := s.store.ListGetRecent(ctx, projectId, config.HistoryWindow)
	if err != nil {
		log.Error("Error getting history", "error:", err)
		return nil, err
	}

	history := make([]jobModel.JobPayload, 0, len(res))
	for _, raw := range res {
		var entry jobModel.JobPayload
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error("Skipping corrupt history entry", "error:", err)
			continue
		}
		if entry.Question == "" && entry.Answer == "" {
			continue // init marker
		}
		history = append(history, entry)
	}
	return history, nil
}

func TestHistoryStore(store *redisStore.Store) *RedisHistoryStore {
	return &RedisHistoryStore{
		store:  store,
		logger: logger_i.NewLogger("test redis history"),
	}
}
