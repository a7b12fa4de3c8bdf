package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"rocket-backend/internal/model"

	"github.com/google/uuid"
)

// IntervalPreset 两条模拟消息之间的随机间隔范围
type IntervalPreset struct {
	Name string        `json:"name"`
	Min  time.Duration `json:"min"`
	Max  time.Duration `json:"max"`
}

const DefaultIntervalPreset = "normal"

var IntervalPresets = map[string]IntervalPreset{
	"slow":   {Name: "slow", Min: 4 * time.Second, Max: 7 * time.Second},
	"normal": {Name: "normal", Min: 2 * time.Second, Max: 4 * time.Second},
	"fast":   {Name: "fast", Min: time.Second, Max: 2 * time.Second},
	"turbo":  {Name: "turbo", Min: 500 * time.Millisecond, Max: time.Second},
}

// ParseIntervalPreset 空字符串返回默认档位
func ParseIntervalPreset(name string) (IntervalPreset, error) {
	if name == "" {
		name = DefaultIntervalPreset
	}
	p, ok := IntervalPresets[name]
	if !ok {
		return IntervalPreset{}, fmt.Errorf("unknown interval preset: %q", name)
	}
	return p, nil
}

var defaultUsernames = []string{
	"ProGaming", "Viewer42", "Player123", "NoobMaster", "GamerPro",
	"EpicPlayer", "LegendaryKing", "DarkNinja", "ShadowGamer", "DragonSlayer",
	"MasterChief", "PixelWarrior", "StreamFan", "LiveViewer", "CoolDude69",
	"xXProXx", "GamingTV", "PlayerOne", "RetroGamer", "SpeedRunner",
}

type categoryWeight struct {
	category model.MessageCategory
	weight   float64
}

var categoryWeights = []categoryWeight{
	{model.CategoryGameplay, 0.4},
	{model.CategoryReactions, 0.3},
	{model.CategoryQuestions, 0.2},
	{model.CategoryEmotes, 0.1},
}

// ChatSimulator 生成模拟的直播聊天消息
type ChatSimulator struct {
	cache *PhraseCache

	mu  sync.Mutex
	rng *rand.Rand
}

func NewChatSimulator(cache *PhraseCache, rng *rand.Rand) *ChatSimulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &ChatSimulator{cache: cache, rng: rng}
}

// PhrasesFor 短语来源顺序：会话最近结果 -> 全局缓存 -> 内置短语 -> 通用短语
func (s *ChatSimulator) PhrasesFor(mode model.ContentMode, label string, session *model.PhraseSet) model.PhraseSet {
	if session != nil && !session.Empty() {
		return *session
	}
	if s.cache != nil {
		if p, ok := s.cache.Get(mode, label); ok && !p.Empty() {
			return p
		}
	}
	if mode == model.ModeGame {
		if p, ok := builtinFor(label); ok {
			return p
		}
	}
	return fallbackPhrases
}

// Message 按类别权重挑选一条短语；所选类别为空时使用通用短语
func (s *ChatSimulator) Message(phrases model.PhraseSet) model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := s.pickCategoryLocked()
	pool := phrases.ByCategory(category)
	if len(pool) == 0 {
		pool = fallbackPhrases.ByCategory(category)
	}

	return model.ChatMessage{
		ID:        uuid.New().String(),
		Username:  defaultUsernames[s.rng.IntN(len(defaultUsernames))],
		Content:   pool[s.rng.IntN(len(pool))],
		Timestamp: time.Now().UnixMilli(),
		Category:  category,
	}
}

func (s *ChatSimulator) pickCategoryLocked() model.MessageCategory {
	r := s.rng.Float64()
	var sum float64
	for _, cw := range categoryWeights {
		sum += cw.weight
		if r < sum {
			return cw.category
		}
	}
	return model.CategoryGameplay
}

// NextInterval 在 [Min, Max] 内均匀取值
func (s *ChatSimulator) NextInterval(p IntervalPreset) time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.Min + time.Duration(s.rng.Int64N(int64(p.Max-p.Min)+1))
}

// Run 按间隔持续发送消息，直到 ctx 结束或 emit 返回错误
func (s *ChatSimulator) Run(ctx context.Context, phrases model.PhraseSet, preset IntervalPreset, emit func(model.ChatMessage) error) error {
	timer := time.NewTimer(s.NextInterval(preset))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := emit(s.Message(phrases)); err != nil {
				return err
			}
			timer.Reset(s.NextInterval(preset))
		}
	}
}
