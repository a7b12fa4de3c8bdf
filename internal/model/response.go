package model

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ChipsResponse struct {
	ID        string     `json:"id,omitempty"`
	Chips     []GameChip `json:"chips"`
	Remaining int        `json:"remaining"`
}

type PresetsResponse struct {
	Topics []string `json:"topics"`
	Games  []string `json:"games"`
}

type ThemeResponse struct {
	Platform Platform `json:"platform"`
}

type ModeResponse struct {
	Mode    ContentMode `json:"mode"`
	Changed bool        `json:"changed"`
}

type ProviderHealth struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	KeyPrefix  string `json:"key_prefix"`
}

type HealthResponse struct {
	Status         string           `json:"status"`
	Timestamp      int64            `json:"timestamp"`
	Providers      []ProviderHealth `json:"providers"`
	CachedPhrases  int              `json:"cached_phrases"`
	ActiveSessions int              `json:"active_sessions"`
	Errors         []string         `json:"errors"`
}
