package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rocket-backend/internal/config"
	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/model"
	"rocket-backend/internal/storage"
	"rocket-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNoSession 用户没有打开的会话，也没有可恢复的记录
var ErrNoSession = errors.New("no active dashboard session")

const persistTimeout = 5 * time.Second

// DashboardService 按登录用户管理会话：打开时从存储恢复，变更时持久化，登出时清除
type DashboardService struct {
	storage   storage.Storage
	generator dashboard.GenerationService
	presets   *dashboard.PresetChipProvider
	timeout   time.Duration
	config    *config.SessionConfig

	mu       sync.RWMutex
	sessions map[string]*dashboard.Session

	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewDashboardService(cfg *config.Config, store storage.Storage, gen dashboard.GenerationService) *DashboardService {
	ctx, stop := context.WithCancel(context.Background())
	s := &DashboardService{
		storage:   store,
		generator: gen,
		presets:   dashboard.NewPresetChipProvider(cfg.Presets.Topics, cfg.Presets.Games),
		timeout:   cfg.Generation.Timeout,
		config:    &cfg.Session,
		sessions:  make(map[string]*dashboard.Session),
		stop:      stop,
		done:      make(chan struct{}),
	}

	go s.cleanupIdleSessions(ctx)

	return s
}

func (s *DashboardService) Presets() *dashboard.PresetChipProvider {
	return s.presets
}

// OpenSession 已打开时直接返回；否则从存储恢复，没有记录时新建并立即持久化
func (s *DashboardService) OpenSession(ctx context.Context, userID string) (*dashboard.Session, bool, error) {
	if userID == "" {
		return nil, false, dashboard.ErrAuthRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		sess.Touch()
		return sess, false, nil
	}

	record, err := s.storage.GetSession(ctx, userID)
	created := false
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		now := time.Now()
		record = &model.SessionRecord{
			ID:                 uuid.New().String(),
			UserID:             userID,
			PlatformPreference: model.PlatformTwitch,
			GameChips:          []model.StoredChip{},
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.storage.SaveSession(ctx, record); err != nil {
			return nil, false, fmt.Errorf("failed to create session: %w", err)
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	sess := s.newSession(record)
	s.sessions[userID] = sess

	logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sess.ID,
		"created":    created,
	}).Info("dashboard session opened")

	return sess, created, nil
}

func (s *DashboardService) newSession(record *model.SessionRecord) *dashboard.Session {
	userID := record.UserID
	return dashboard.NewSession(dashboard.SessionOptions{
		ID:      record.ID,
		UserID:  userID,
		Record:  record,
		Presets: s.presets,
		Service: s.generator,
		Timeout: s.timeout,
		Persist: func(rec *model.SessionRecord) error {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := s.storage.SaveSession(ctx, rec); err != nil {
				logger.WithFields(logrus.Fields{"user_id": userID}).
					Errorf("Failed to persist session record: %v", err)
				return err
			}
			return nil
		},
	})
}

// Session 返回已打开的会话；进程重启后首次访问时从存储恢复
func (s *DashboardService) Session(ctx context.Context, userID string) (*dashboard.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		sess.Touch()
		return sess, nil
	}

	if _, err := s.storage.GetSession(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess, _, err := s.OpenSession(ctx, userID)
	return sess, err
}

// SignOut 取消进行中的生成并清除持久化记录
func (s *DashboardService) SignOut(ctx context.Context, userID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if ok {
		sess.Close()
	}

	if err := s.storage.DeleteSession(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			if !ok {
				return ErrNoSession
			}
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	logger.WithFields(logrus.Fields{"user_id": userID}).Info("dashboard session signed out")
	return nil
}

func (s *DashboardService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupIdleSessions 关闭长时间无操作的会话，并删除过期的持久化记录
func (s *DashboardService) cleanupIdleSessions(ctx context.Context) {
	defer close(s.done)

	interval := s.config.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expire(ctx, time.Now().Add(-s.config.TTL))
		}
	}
}

func (s *DashboardService) expire(ctx context.Context, cutoff time.Time) {
	s.mu.Lock()
	var idle []*dashboard.Session
	for userID, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, userID)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.Close()
		logger.Infof("Closed idle dashboard session: %s (user %s)", sess.ID, sess.UserID)
	}

	records, err := s.storage.ListSessions(ctx)
	if err != nil {
		logger.Errorf("Failed to list sessions for cleanup: %v", err)
		return
	}

	for _, record := range records {
		if !record.UpdatedAt.Before(cutoff) {
			continue
		}
		s.mu.RLock()
		_, active := s.sessions[record.UserID]
		s.mu.RUnlock()
		if active {
			continue
		}
		if err := s.storage.DeleteSession(ctx, record.UserID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			logger.Errorf("Failed to delete expired session %s: %v", record.UserID, err)
		} else {
			logger.Infof("Cleaned up expired session record: %s", record.UserID)
		}
	}
}

// Close 停止清理循环、关闭所有会话并备份存储；持久化记录保留。可重复调用
func (s *DashboardService) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close()
	})
	return s.closeErr
}

func (s *DashboardService) close() error {
	s.stop()
	<-s.done

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*dashboard.Session)
	s.mu.Unlock()

	var g errgroup.Group
	for _, sess := range sessions {
		g.Go(func() error {
			sess.Close()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.storage.Backup(); err != nil {
		logger.Errorf("Failed to back up session storage: %v", err)
		return fmt.Errorf("failed to back up storage: %w", err)
	}
	logger.Info("session storage backed up")
	return nil
}
