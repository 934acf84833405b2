package store

import (
	"context"
	"sync"

	"github.com/akolanti/DocGuard/internal/domain/jobModel"
)

type InMemoryHistoryStore struct {
	projectLock *sync.RWMutex
	projectMap  map[string][]jobModel.JobPayload
}

func InitHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		projectLock: new(sync.RWMutex),
		projectMap:  make(map[string][]jobModel.JobPayload),
	}
}

func (store *InMemoryHistoryStore) ValidateProjectId(ctx context.Context, projectId string) bool {
	store.projectLock.RLock()
	defer store.projectLock.RUnlock()
	_, ok := store.projectMap[projectId]
	return ok
}

func (store *InMemoryHistoryStore) AppendHistory(ctx context.Context, projectId string, payload jobModel.JobPayload) error {
	if store.ValidateProjectId(ctx, projectId) == false {
		return nil
	}
	store.projectLock.Lock()
	defer store.projectLock.Unlock()
	store.projectMap[projectId] = append(store.projectMap[projectId], payload)
	inMemLogger.Info(projectId, " : Saved entry to history store")
	return nil
}

func (store *InMemoryHistoryStore) InitProject(ctx context.Context, projectId string) error {
	store.projectLock.Lock()
	defer store.projectLock.Unlock()
	store.projectMap[projectId] = make([]jobModel.JobPayload, 0)
	return nil
}

func (store *InMemoryHistoryStore) GetHistory(ctx context.Context, projectId string) ([]jobModel.JobPayload, error) {
	store.projectLock.RLock()
	defer store.projectLock.RUnlock()
	history := store.projectMap[projectId]
	out := make([]jobModel.JobPayload, len(history))
	copy(out, history)
	return out, nil
}
