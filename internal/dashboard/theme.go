package dashboard

import (
	"sync"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"
)

// ThemePreferenceStore 保存平台偏好（Twitch/Kick），切换后持久化并同步通知订阅者
type ThemePreferenceStore struct {
	emitMu  sync.Mutex
	mu      sync.RWMutex
	current model.Platform
	persist func(model.Platform) error
	subs    listeners[model.Platform]
}

// NewThemePreferenceStore 非法的初始值回退为 Twitch；persist 可为 nil
func NewThemePreferenceStore(initial model.Platform, persist func(model.Platform) error) *ThemePreferenceStore {
	if !initial.Valid() {
		initial = model.PlatformTwitch
	}
	return &ThemePreferenceStore{
		current: initial,
		persist: persist,
	}
}

// Toggle 总是成功；持久化失败只记录日志，内存中的值仍然生效
func (s *ThemePreferenceStore) Toggle() model.Platform {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.current = s.current.Toggled()
	next := s.current
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist(next); err != nil {
			logger.Errorf("Failed to persist platform preference %s: %v", next, err)
		}
	}

	s.subs.emit(next)
	return next
}

func (s *ThemePreferenceStore) Current() model.Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *ThemePreferenceStore) Subscribe(fn func(model.Platform)) func() {
	return s.subs.add(fn)
}
