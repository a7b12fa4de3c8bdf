package dashboard

import (
	"sync"

	"rocket-backend/internal/model"
)

// TopicInput Just Chatting 模式的话题输入；赋值时不校验，提交时才校验
type TopicInput struct {
	emitMu sync.Mutex
	mu     sync.RWMutex
	value  model.TopicValue
	subs   listeners[model.TopicValue]
}

func NewTopicInput() *TopicInput {
	return &TopicInput{}
}

func (t *TopicInput) SetValue(raw string) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	v := model.TopicValue{Raw: raw, Normalized: Normalize(raw)}
	t.mu.Lock()
	t.value = v
	t.mu.Unlock()

	t.subs.emit(v)
}

func (t *TopicInput) Clear() {
	t.SetValue("")
}

func (t *TopicInput) Value() model.TopicValue {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

func (t *TopicInput) Validate() error {
	return ValidateTopic(t.Value().Normalized)
}

func (t *TopicInput) Subscribe(fn func(model.TopicValue)) func() {
	return t.subs.add(fn)
}

// ValidateTopic 纯函数：2 <= len(normalized) <= 50
func ValidateTopic(normalized string) error {
	return validateLength(Normalize(normalized))
}
