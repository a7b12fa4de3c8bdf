package storage

import (
	"context"

	"rocket-backend/internal/model"
)

// Storage 会话记录持久化，以登录用户的会话标识（UserID）为键
type Storage interface {
	// 会话记录管理
	SaveSession(ctx context.Context, record *model.SessionRecord) error
	GetSession(ctx context.Context, userID string) (*model.SessionRecord, error)
	DeleteSession(ctx context.Context, userID string) error
	ListSessions(ctx context.Context) ([]*model.SessionRecord, error)

	// 存储管理
	Init() error
	Close() error
	Backup() error
}
