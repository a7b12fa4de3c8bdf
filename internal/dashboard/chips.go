package dashboard

import (
	"sync"

	"rocket-backend/internal/model"

	"github.com/google/uuid"
)

// ChipCollection 有序、去重、容量为 4 的游戏标签集合
type ChipCollection struct {
	emitMu sync.Mutex
	mu     sync.RWMutex
	chips  []model.GameChip
	subs   listeners[[]model.GameChip]
}

func NewChipCollection() *ChipCollection {
	return &ChipCollection{}
}

// Add 添加用户输入的标签，返回新标签的 id
func (c *ChipCollection) Add(rawLabel string) (string, error) {
	return c.add(rawLabel, model.OriginTyped)
}

// AddPreset 添加预设标签，校验规则与 Add 相同
func (c *ChipCollection) AddPreset(label string) (string, error) {
	return c.add(label, model.OriginPreset)
}

func (c *ChipCollection) add(rawLabel string, origin model.ChipOrigin) (string, error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	chip, err := c.insertLocked(rawLabel, origin)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		return "", err
	}

	c.subs.emit(snapshot)
	return chip.ID, nil
}

// insertLocked 检查顺序：长度 -> 重复 -> 容量
func (c *ChipCollection) insertLocked(rawLabel string, origin model.ChipOrigin) (model.GameChip, error) {
	label := Normalize(rawLabel)
	if err := validateLength(label); err != nil {
		return model.GameChip{}, err
	}
	if c.indexLocked(label) >= 0 {
		return model.GameChip{}, newValidationError(ReasonDuplicate, label)
	}
	if len(c.chips) >= MaxChips {
		return model.GameChip{}, newValidationError(ReasonLimitExceeded, label)
	}

	chip := model.GameChip{
		ID:     uuid.New().String(),
		Label:  label,
		Origin: origin,
	}
	c.chips = append(c.chips, chip)
	return chip, nil
}

// Remove 不存在时为空操作，返回是否删除
func (c *ChipCollection) Remove(id string) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	idx := -1
	for i, chip := range c.chips {
		if chip.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.chips = append(c.chips[:idx:idx], c.chips[idx+1:]...)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.subs.emit(snapshot)
	return true
}

// Restore 从持久化记录恢复，不合法的条目被跳过，不触发通知
func (c *ChipCollection) Restore(stored []model.StoredChip) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.chips = nil
	for _, s := range stored {
		origin := s.Origin
		if origin != model.OriginPreset {
			origin = model.OriginTyped
		}
		_, _ = c.insertLocked(s.Label, origin)
	}
}

func (c *ChipCollection) Chips() []model.GameChip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *ChipCollection) Stored() []model.StoredChip {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.StoredChip, len(c.chips))
	for i, chip := range c.chips {
		out[i] = model.StoredChip{Label: chip.Label, Origin: chip.Origin}
	}
	return out
}

func (c *ChipCollection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chips)
}

func (c *ChipCollection) Remaining() int {
	return MaxChips - c.Size()
}

// Contains 按忽略大小写、去除首尾空白后的标签判断
func (c *ChipCollection) Contains(label string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexLocked(Normalize(label)) >= 0
}

func (c *ChipCollection) Subscribe(fn func([]model.GameChip)) func() {
	return c.subs.add(fn)
}

func (c *ChipCollection) indexLocked(normalized string) int {
	key := labelKey(normalized)
	for i, chip := range c.chips {
		if labelKey(chip.Label) == key {
			return i
		}
	}
	return -1
}

func (c *ChipCollection) snapshotLocked() []model.GameChip {
	out := make([]model.GameChip, len(c.chips))
	copy(out, c.chips)
	return out
}
