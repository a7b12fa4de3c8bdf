package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventTheme      EventType = "theme"
	EventMode       EventType = "mode"
	EventChips      EventType = "chips"
	EventTopic      EventType = "topic"
	EventStatus     EventType = "status"
	EventValidation EventType = "validation"
)

// Event 变更通知，Payload 总是完整的当前值
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type ChipsPayload struct {
	Chips     []model.GameChip `json:"chips"`
	Remaining int              `json:"remaining"`
}

// SessionState 会话的完整快照
type SessionState struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Theme       model.Platform    `json:"theme"`
	Mode        model.ContentMode `json:"mode"`
	Chips       []model.GameChip  `json:"chips"`
	Remaining   int               `json:"remaining"`
	Topic       model.TopicValue  `json:"topic"`
	Generation  GenerationRequest `json:"generation"`
	InlineError *ErrorView        `json:"inline_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	LastActive  time.Time         `json:"last_active"`
}

type SessionOptions struct {
	ID      string
	UserID  string
	Record  *model.SessionRecord // 为 nil 时使用默认值
	Presets *PresetChipProvider
	Service GenerationService
	Timeout time.Duration
	Persist func(*model.SessionRecord) error
}

// Session 登录后创建、登出时销毁的会话上下文，持有所有组件
type Session struct {
	ID     string
	UserID string

	Theme      *ThemePreferenceStore
	Presets    *PresetChipProvider
	Chips      *ChipCollection
	Topic      *TopicInput
	Mode       *ModeController
	Generation *GenerationRequestManager

	persist   func(*model.SessionRecord) error
	createdAt time.Time

	// persistMu 串行化写回；快照在锁内生成，后写入的记录总是更新的状态
	persistMu sync.Mutex

	// opMu 串行化提交与模式切换
	opMu sync.Mutex

	mu         sync.RWMutex
	inlineErr  error
	phrases    map[string]model.PhraseSet
	lastActive time.Time
	closed     bool

	events listeners[Event]
	unsubs []func()
}

func NewSession(opts SessionOptions) *Session {
	now := time.Now()
	s := &Session{
		ID:         opts.ID,
		UserID:     opts.UserID,
		Presets:    opts.Presets,
		persist:    opts.Persist,
		createdAt:  now,
		lastActive: now,
		phrases:    make(map[string]model.PhraseSet),
	}
	if s.Presets == nil {
		s.Presets = NewPresetChipProvider(nil, nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	initial := model.PlatformTwitch
	s.Chips = NewChipCollection()
	if rec := opts.Record; rec != nil {
		initial = rec.PlatformPreference
		s.Chips.Restore(rec.GameChips)
		if !rec.CreatedAt.IsZero() {
			s.createdAt = rec.CreatedAt
		}
		if s.ID == "" {
			s.ID = rec.ID
		}
	}

	s.Theme = NewThemePreferenceStore(initial, func(model.Platform) error {
		return s.persistRecord()
	})
	s.Topic = NewTopicInput()
	s.Generation = NewGenerationRequestManager(opts.Service, opts.Timeout)
	s.Generation.SetValidator(s.checkCapacity)
	s.Mode = NewModeController(s.Generation, s.clearErrors)

	s.unsubs = append(s.unsubs,
		s.Theme.Subscribe(func(p model.Platform) {
			s.events.emit(Event{Type: EventTheme, Payload: p})
		}),
		s.Mode.Subscribe(func(m model.ContentMode) {
			s.events.emit(Event{Type: EventMode, Payload: m})
		}),
		s.Chips.Subscribe(func(chips []model.GameChip) {
			if err := s.persistRecord(); err != nil {
				logger.Errorf("Failed to persist chips for session %s: %v", s.ID, err)
			}
			s.events.emit(Event{Type: EventChips, Payload: ChipsPayload{
				Chips:     chips,
				Remaining: MaxChips - len(chips),
			}})
		}),
		s.Topic.Subscribe(func(v model.TopicValue) {
			s.events.emit(Event{Type: EventTopic, Payload: v})
		}),
		s.Generation.Subscribe(s.onGeneration),
	)

	return s
}

// checkCapacity Game 模式下提交一个尚未添加的标签时，集合已满则直接失败
func (s *Session) checkCapacity(mode model.ContentMode, normalized string) error {
	if mode != model.ModeGame {
		return nil
	}
	if !s.Chips.Contains(normalized) && s.Chips.Remaining() <= 0 {
		return newValidationError(ReasonLimitExceeded, normalized)
	}
	return nil
}

func (s *Session) onGeneration(req GenerationRequest) {
	if req.Status == StatusSucceeded && req.Result != nil {
		s.mu.Lock()
		s.phrases[phraseKey(req.Mode, req.Input)] = *req.Result
		s.mu.Unlock()

		if req.Mode == model.ModeGame && !s.Chips.Contains(req.Input) {
			if _, err := s.Chips.Add(req.Input); err != nil {
				logger.WithFields(logrus.Fields{"session_id": s.ID, "label": req.Input}).
					Warnf("generated phrases but could not add chip: %v", err)
			}
		}
	}
	s.events.emit(Event{Type: EventStatus, Payload: req})
}

func phraseKey(mode model.ContentMode, normalized string) string {
	return string(mode) + ":" + labelKey(normalized)
}

func (s *Session) ToggleTheme() model.Platform {
	s.Touch()
	return s.Theme.Toggle()
}

func (s *Session) SwitchMode(next model.ContentMode) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.Touch()
	return s.Mode.SwitchMode(next)
}

// AddChip 校验失败时设置输入框旁的提示，成功时清除
func (s *Session) AddChip(rawLabel string) (string, error) {
	s.Touch()
	id, err := s.Chips.Add(rawLabel)
	s.setInlineError(validationOnly(err))
	return id, err
}

func (s *Session) AddPresetChip(label string) (string, error) {
	s.Touch()
	id, err := s.Chips.AddPreset(label)
	s.setInlineError(validationOnly(err))
	return id, err
}

func (s *Session) RemoveChip(id string) bool {
	s.Touch()
	return s.Chips.Remove(id)
}

func (s *Session) SetTopic(raw string) {
	s.Touch()
	s.Topic.SetValue(raw)
}

// Submit 以当前模式提交；Just Chatting 模式下 selection 为空时使用话题输入框的值
func (s *Session) Submit(ctx context.Context, selection string) (GenerationRequest, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return GenerationRequest{}, ErrSessionClosed
	}
	s.Touch()

	mode := s.Mode.Current()
	if mode == model.ModeJustChatting && Normalize(selection) == "" {
		selection = s.Topic.Value().Raw
	}

	req, err := s.Generation.Submit(ctx, mode, selection)
	if errors.Is(err, ErrBusy) {
		return req, err
	}
	s.setInlineError(validationOnly(err))
	return req, err
}

func (s *Session) CancelGeneration() bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.Touch()
	return s.Generation.CancelCurrent()
}

// Phrases 返回该会话最近一次为指定标签生成的短语
func (s *Session) Phrases(mode model.ContentMode, label string) (model.PhraseSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.phrases[phraseKey(mode, Normalize(label))]
	return p, ok
}

func (s *Session) InlineError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inlineErr
}

func (s *Session) setInlineError(err error) {
	s.mu.Lock()
	prev := s.inlineErr
	s.inlineErr = err
	s.mu.Unlock()

	if prev == nil && err == nil {
		return
	}
	s.events.emit(Event{Type: EventValidation, Payload: DescribeError(err)})
}

// clearErrors 模式切换时清除上一个模式的校验提示
func (s *Session) clearErrors() {
	s.setInlineError(nil)
	s.Generation.DismissValidationFailure()
}

func validationOnly(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// Record 当前需要持久化的会话记录
func (s *Session) Record() *model.SessionRecord {
	return &model.SessionRecord{
		ID:                 s.ID,
		UserID:             s.UserID,
		PlatformPreference: s.Theme.Current(),
		GameChips:          s.Chips.Stored(),
		CreatedAt:          s.createdAt,
		UpdatedAt:          time.Now(),
	}
}

func (s *Session) persistRecord() error {
	if s.persist == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil
	}
	return s.persist(s.Record())
}

func (s *Session) Snapshot() SessionState {
	chips := s.Chips.Chips()
	s.mu.RLock()
	inline := DescribeError(s.inlineErr)
	lastActive := s.lastActive
	s.mu.RUnlock()

	return SessionState{
		ID:          s.ID,
		UserID:      s.UserID,
		Theme:       s.Theme.Current(),
		Mode:        s.Mode.Current(),
		Chips:       chips,
		Remaining:   MaxChips - len(chips),
		Topic:       s.Topic.Value(),
		Generation:  s.Generation.Status(),
		InlineError: inline,
		CreatedAt:   s.createdAt,
		LastActive:  lastActive,
	}
}

func (s *Session) Subscribe(fn func(Event)) func() {
	return s.events.add(fn)
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Close 取代进行中的请求并停止通知；之后的状态变更不再持久化
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	s.Generation.Close()
	for _, unsub := range unsubs {
		unsub()
	}
}
