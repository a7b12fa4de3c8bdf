package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"rocket-backend/internal/config"
	"rocket-backend/internal/utils"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"
)

// NewChatModel 根据服务配置创建短语生成使用的模型客户端
func NewChatModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	switch cfg.Kind {
	case "openai":
		return newOpenAIChatModel(ctx, cfg, newProviderHTTPClient(cfg))
	case "qwen":
		return createQwenModel(ctx, cfg)
	case "ark":
		return createArkModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider kind: %s", cfg.Kind)
	}
}

// MaskKey 只保留前 8 个字符，用于健康检查和日志
func MaskKey(key string) string {
	if key == "" {
		return "NOT SET"
	}
	if len(key) <= 8 {
		return key[:len(key)/2] + "..."
	}
	return key[:8] + "..."
}

func newProviderHTTPClient(cfg config.ProviderConfig) *http.Client {
	client := utils.NewHTTPClient(cfg.Timeout)
	client.Transport = NewDebugTransport(client.Transport, cfg.Name, cfg.DebugRequest)
	return client
}

func createArkModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	logrus.WithFields(logrus.Fields{"provider": cfg.Name, "model": cfg.Model, "key": MaskKey(cfg.APIKey)}).
		Debug("creating ark chat model")

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create ark model %s: %w", cfg.Name, err)
	}

	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	logrus.WithFields(logrus.Fields{"provider": cfg.Name, "model": cfg.Model, "base_url": cfg.BaseURL}).
		Debug("creating qwen chat model")

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  newProviderHTTPClient(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model %s: %w", cfg.Name, err)
	}

	return chatModel, nil
}

// DebugTransport 自定义HTTP传输层，开启时记录请求体（敏感字段脱敏）
type DebugTransport struct {
	base         http.RoundTripper
	provider     string
	debugEnabled bool
	logger       *logrus.Logger
}

func NewDebugTransport(base http.RoundTripper, provider string, debugEnabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	return &DebugTransport{
		base:         base,
		provider:     provider,
		debugEnabled: debugEnabled,
		logger:       logger,
	}
}

// RoundTrip 实现http.RoundTripper接口
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.debugEnabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.debugEnabled {
		t.logger.WithField("provider", t.provider).Errorf("request failed: %v", err)
	}

	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	entry := t.logger.WithFields(logrus.Fields{"provider": t.provider, "method": req.Method, "url": req.URL.String()})

	headers := make([]string, 0, len(req.Header))
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			headers = append(headers, name+": [REDACTED]")
		} else {
			headers = append(headers, name+": "+strings.Join(values, ", "))
		}
	}
	entry = entry.WithField("headers", headers)

	if req.Body == nil {
		entry.Debug("outgoing request (empty body)")
		return
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		entry.Errorf("failed to read request body: %v", err)
		return
	}
	// 恢复请求体，以免影响实际请求
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	entry.WithField("size", len(bodyBytes)).Debugf("outgoing request body: %s", SanitizeJSON(string(bodyBytes)))
}

var sensitiveFieldPattern = regexp.MustCompile(`("(?i:api_key|apiKey|password|secret|token)"\s*:\s*)"[^"]*"`)

// SanitizeJSON 清理JSON中的敏感字段值
func SanitizeJSON(body string) string {
	return sensitiveFieldPattern.ReplaceAllString(body, `$1"[REDACTED]"`)
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range []string{"authorization", "x-api-key", "x-auth-token", "cookie"} {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
