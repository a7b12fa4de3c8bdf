package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisStorage 每条记录一个键（prefix+userID，带 TTL），另用一个 set 作为索引
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

func NewRedisStorage(opts RedisOptions) *RedisStorage {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = "rocket:session:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return NewRedisStorageWithClient(client, opts.Prefix, opts.TTL)
}

func NewRedisStorageWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStorage) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	logger.Info("Redis storage initialized successfully")
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Backup 触发 redis 的后台快照
func (r *RedisStorage) Backup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.BgSave(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, record *model.SessionRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(record.UserID), raw, r.ttl)
	pipe.SAdd(ctx, r.setKey(), record.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (r *RedisStorage) GetSession(ctx context.Context, userID string) (*model.SessionRecord, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record model.SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return &record, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, userID string) error {
	deleted, err := r.client.Del(ctx, r.sessionKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := r.client.SRem(ctx, r.setKey(), userID).Err(); err != nil {
		return fmt.Errorf("failed to update session index: %w", err)
	}
	if deleted == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListSessions 顺带清理索引中已过期的成员
func (r *RedisStorage) ListSessions(ctx context.Context) ([]*model.SessionRecord, error) {
	userIDs, err := r.client.SMembers(ctx, r.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	records := make([]*model.SessionRecord, 0, len(userIDs))
	for _, userID := range userIDs {
		record, err := r.GetSession(ctx, userID)
		if errors.Is(err, ErrSessionNotFound) {
			if err := r.client.SRem(ctx, r.setKey(), userID).Err(); err != nil {
				logger.Warnf("Failed to prune expired session %s from index: %v", userID, err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	sortByUpdated(records)
	return records, nil
}

func (r *RedisStorage) sessionKey(userID string) string {
	return r.prefix + userID
}

func (r *RedisStorage) setKey() string {
	return r.prefix + "set"
}
