package storage

import (
	"context"
	"sort"
	"sync"

	"rocket-backend/internal/model"
)

type MemoryStorage struct {
	sessions map[string]*model.SessionRecord
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.SessionRecord),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Backup() error {
	return nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, record *model.SessionRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[record.UserID] = record.Clone()
	return nil
}

func (m *MemoryStorage) GetSession(ctx context.Context, userID string) (*model.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.sessions[userID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return record.Clone(), nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[userID]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStorage) ListSessions(ctx context.Context) ([]*model.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*model.SessionRecord, 0, len(m.sessions))
	for _, record := range m.sessions {
		records = append(records, record.Clone())
	}

	sortByUpdated(records)
	return records, nil
}

// sortByUpdated 最近更新的在前
func sortByUpdated(records []*model.SessionRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
}
