package dashboard

import (
	"fmt"
	"sync"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"
)

// Canceller 切换模式时用于取消进行中的生成请求
type Canceller interface {
	CancelCurrent() bool
}

// ModeController 当前内容模式；切换时取消进行中的请求并清除上一个模式的校验错误提示。
// 标签集合和话题输入的内容在切换时保留。
type ModeController struct {
	emitMu      sync.Mutex
	mu          sync.RWMutex
	current     model.ContentMode
	canceller   Canceller
	clearErrors func()
	subs        listeners[model.ContentMode]
}

func NewModeController(canceller Canceller, clearErrors func()) *ModeController {
	return &ModeController{
		current:     model.ModeGame,
		canceller:   canceller,
		clearErrors: clearErrors,
	}
}

// SwitchMode 目标模式与当前相同时为空操作，返回 false
func (m *ModeController) SwitchMode(next model.ContentMode) (bool, error) {
	if !next.Valid() {
		return false, fmt.Errorf("unknown content mode: %q", next)
	}

	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.RLock()
	prev := m.current
	m.mu.RUnlock()
	if prev == next {
		return false, nil
	}

	if m.canceller != nil && m.canceller.CancelCurrent() {
		logger.Debugf("mode switch %s -> %s superseded in-flight generation", prev, next)
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	if m.clearErrors != nil {
		m.clearErrors()
	}

	m.subs.emit(next)
	return true, nil
}

func (m *ModeController) Current() model.ContentMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *ModeController) Subscribe(fn func(model.ContentMode)) func() {
	return m.subs.add(fn)
}
