package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rocket-backend/internal/model"
)

// ErrInvalidTopic 模型判断话题无意义
var ErrInvalidTopic = errors.New("topic rejected by model")

const invalidTopicMarker = "INVALID_TOPIC"

type phrasePayload struct {
	Gameplay  []string `json:"gameplay"`
	Reactions []string `json:"reactions"`
	Questions []string `json:"questions"`
	Emotes    []string `json:"emotes"`
	Error     string   `json:"error"`
}

// ParsePhrases 解析模型回复；容忍 markdown 代码块和 JSON 前后的多余文本
func ParsePhrases(raw string) (model.PhraseSet, error) {
	body := stripFences(raw)
	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var payload phrasePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return model.PhraseSet{}, fmt.Errorf("decode phrases: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(payload.Error), invalidTopicMarker) {
		return model.PhraseSet{}, ErrInvalidTopic
	}

	return model.PhraseSet{
		Gameplay:  cleanPhrases(payload.Gameplay),
		Reactions: cleanPhrases(payload.Reactions),
		Questions: cleanPhrases(payload.Questions),
		Emotes:    cleanPhrases(payload.Emotes),
	}, nil
}

func stripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// cleanPhrases 去除空白条目和重复条目，结果非 nil
func cleanPhrases(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
