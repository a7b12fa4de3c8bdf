package dashboard

var (
	DefaultPresetTopics = []string{
		"Mi vida",
		"Música",
		"Viajes",
		"Tecnología",
		"Películas y series",
		"Comida",
		"Deporte",
		"Anime",
	}

	DefaultPresetGames = []string{
		"Minecraft",
		"Red Dead Redemption 2",
		"Baldur's Gate 3",
	}
)

// PresetChipProvider 只读的预设话题/游戏目录，会话开始时提供
type PresetChipProvider struct {
	topics []string
	games  []string
}

// NewPresetChipProvider 为空的列表使用默认目录；不合法或重复的条目被丢弃
func NewPresetChipProvider(topics, games []string) *PresetChipProvider {
	if len(topics) == 0 {
		topics = DefaultPresetTopics
	}
	if len(games) == 0 {
		games = DefaultPresetGames
	}
	return &PresetChipProvider{
		topics: cleanCatalog(topics),
		games:  cleanCatalog(games),
	}
}

func cleanCatalog(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, raw := range labels {
		label := Normalize(raw)
		if validateLength(label) != nil {
			continue
		}
		key := labelKey(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}

func (p *PresetChipProvider) Topics() []string {
	return append([]string(nil), p.topics...)
}

func (p *PresetChipProvider) Games() []string {
	return append([]string(nil), p.games...)
}

func (p *PresetChipProvider) IsPresetGame(label string) bool {
	return containsLabel(p.games, label)
}

func (p *PresetChipProvider) IsPresetTopic(label string) bool {
	return containsLabel(p.topics, label)
}

func containsLabel(catalog []string, label string) bool {
	key := labelKey(Normalize(label))
	for _, item := range catalog {
		if labelKey(item) == key {
			return true
		}
	}
	return false
}
