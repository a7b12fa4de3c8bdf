package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"rocket-backend/internal/config"
	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

// ErrNoProviders 没有任何可用的模型提供方
var ErrNoProviders = errors.New("no generation providers configured")

// Provider 一个已命名的聊天模型
type Provider struct {
	Name  string
	Model einoModel.BaseChatModel
}

// ProviderPool 轮询使用提供方，失败时依次切换到下一个
type ProviderPool struct {
	providers []Provider
	next      atomic.Uint64
}

func NewProviderPool(providers ...Provider) *ProviderPool {
	return &ProviderPool{providers: providers}
}

// NewProviderPoolFromConfig 跳过没有配置 API Key 的提供方
func NewProviderPoolFromConfig(ctx context.Context, cfgs []config.ProviderConfig) (*ProviderPool, error) {
	providers := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.APIKey == "" {
			logger.Warnf("Provider %s has no API key, skipping", cfg.Name)
			continue
		}
		cm, err := model.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create provider %s: %w", cfg.Name, err)
		}
		providers = append(providers, Provider{Name: cfg.Name, Model: cm})
		logger.Infof("Provider %s ready (kind=%s, model=%s)", cfg.Name, cfg.Kind, cfg.Model)
	}
	return NewProviderPool(providers...), nil
}

func (p *ProviderPool) Len() int {
	return len(p.providers)
}

func (p *ProviderPool) Names() []string {
	names := make([]string, len(p.providers))
	for i, prov := range p.providers {
		names[i] = prov.Name
	}
	return names
}

// Chat 返回完整的回复文本以及实际使用的提供方名称。
// 所有提供方都失败时返回最后一个错误。
func (p *ProviderPool) Chat(ctx context.Context, msgs []*schema.Message) (string, string, error) {
	n := len(p.providers)
	if n == 0 {
		return "", "", dashboard.NewServiceError(dashboard.ServicePermanent, ErrNoProviders)
	}

	// 起点只取一次，并发调用不会打乱本次的轮换顺序
	start := p.next.Add(1) - 1

	var lastErr error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		prov := p.providers[(start+uint64(i))%uint64(n)]
		content, err := collect(ctx, prov.Model, msgs)
		if err == nil {
			logger.Debugf("Provider %s answered (%d bytes)", prov.Name, len(content))
			return content, prov.Name, nil
		}

		lastErr = err
		logger.WithFields(logrus.Fields{"provider": prov.Name, "attempt": i + 1}).
			Warnf("provider failed, trying next: %v", err)
	}

	return "", "", fmt.Errorf("all %d providers failed: %w", n, lastErr)
}

// collect 消费流式输出并拼接为完整文本
func collect(ctx context.Context, cm einoModel.BaseChatModel, msgs []*schema.Message) (string, error) {
	stream, err := cm.Stream(ctx, msgs)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if chunk != nil {
			sb.WriteString(chunk.Content)
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("empty completion")
	}
	return sb.String(), nil
}
