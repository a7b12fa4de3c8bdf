package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"rocket-backend/internal/config"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformToggled(t *testing.T) {
	assert.Equal(t, PlatformKick, PlatformTwitch.Toggled())
	assert.Equal(t, PlatformTwitch, PlatformKick.Toggled())
	assert.Equal(t, PlatformTwitch, PlatformTwitch.Toggled().Toggled())

	_, err := ParsePlatform("youtube")
	assert.Error(t, err)
}

func TestParseContentMode(t *testing.T) {
	m, err := ParseContentMode("just_chatting")
	require.NoError(t, err)
	assert.Equal(t, ModeJustChatting, m)

	_, err = ParseContentMode("irl")
	assert.Error(t, err)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "NOT SET", MaskKey(""))
	assert.Equal(t, "gsk_abcd...", MaskKey("gsk_abcdefghijk"))
	assert.Equal(t, "ab...", MaskKey("abcd"))
}

func TestSanitizeJSON(t *testing.T) {
	out := SanitizeJSON(`{"model":"m","api_key":"secret-value","Token": "t"}`)
	assert.NotContains(t, out, "secret-value")
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)
	assert.Contains(t, out, `"model":"m"`)
}

func TestNewChatModel_UnknownKind(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.ProviderConfig{Name: "x", Kind: "grpc"})
	assert.Error(t, err)
}

func TestOpenAIChatModel_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hola"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cm, err := NewChatModel(context.Background(), config.ProviderConfig{
		Name: "groq", Kind: "openai", APIKey: "test-key", BaseURL: srv.URL, Model: "llama",
	})
	require.NoError(t, err)

	msg, err := cm.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		{Role: schema.Assistant, Content: ""},
		schema.UserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", msg.Content)

	assert.Equal(t, "llama", got["model"])
	// 空的assistant消息会被跳过
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIChatModel_RequiresKey(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.ProviderConfig{Name: "groq", Kind: "openai", Model: "m"})
	assert.Error(t, err)
}
