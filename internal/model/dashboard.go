package model

import (
	"fmt"
	"time"
)

// Platform 平台偏好（主题）
type Platform string

const (
	PlatformTwitch Platform = "twitch"
	PlatformKick   Platform = "kick"
)

func (p Platform) Valid() bool {
	return p == PlatformTwitch || p == PlatformKick
}

// Toggled 返回另一个平台
func (p Platform) Toggled() Platform {
	if p == PlatformKick {
		return PlatformTwitch
	}
	return PlatformKick
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform: %q", s)
	}
	return p, nil
}

// ContentMode 内容模式
type ContentMode string

const (
	ModeGame         ContentMode = "game"
	ModeJustChatting ContentMode = "just_chatting"
)

func (m ContentMode) Valid() bool {
	return m == ModeGame || m == ModeJustChatting
}

func ParseContentMode(s string) (ContentMode, error) {
	m := ContentMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown content mode: %q", s)
	}
	return m, nil
}

type ChipOrigin string

const (
	OriginTyped  ChipOrigin = "typed"
	OriginPreset ChipOrigin = "preset"
)

type GameChip struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Origin ChipOrigin `json:"origin"`
}

type TopicValue struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// PhraseSet 按类别分组的聊天短语
type PhraseSet struct {
	Gameplay  []string `json:"gameplay"`
	Reactions []string `json:"reactions"`
	Questions []string `json:"questions"`
	Emotes    []string `json:"emotes"`
}

type MessageCategory string

const (
	CategoryGameplay  MessageCategory = "gameplay"
	CategoryReactions MessageCategory = "reactions"
	CategoryQuestions MessageCategory = "questions"
	CategoryEmotes    MessageCategory = "emotes"
)

// ByCategory 返回指定类别的短语
func (p PhraseSet) ByCategory(c MessageCategory) []string {
	switch c {
	case CategoryGameplay:
		return p.Gameplay
	case CategoryReactions:
		return p.Reactions
	case CategoryQuestions:
		return p.Questions
	case CategoryEmotes:
		return p.Emotes
	}
	return nil
}

func (p PhraseSet) Len() int {
	return len(p.Gameplay) + len(p.Reactions) + len(p.Questions) + len(p.Emotes)
}

func (p PhraseSet) Empty() bool {
	return p.Len() == 0
}

// ChatMessage 模拟直播聊天中的一条消息
type ChatMessage struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Content   string          `json:"content"`
	Timestamp int64           `json:"timestamp"`
	Category  MessageCategory `json:"category"`
}

type StoredChip struct {
	Label  string     `json:"label"`
	Origin ChipOrigin `json:"origin"`
}

// SessionRecord 会话级持久化记录，以登录用户的会话标识为键
type SessionRecord struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"user_id"`
	PlatformPreference Platform     `json:"platform_preference"`
	GameChips          []StoredChip `json:"game_chips"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.GameChips = append([]StoredChip(nil), r.GameChips...)
	return &c
}
