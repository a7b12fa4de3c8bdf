package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"

	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "rocket-backend/generator"

// Chatter 向语言模型发送消息并返回完整回复
type Chatter interface {
	Chat(ctx context.Context, msgs []*schema.Message) (content string, provider string, err error)
}

type Options struct {
	Timeout time.Duration
	Tracer  trace.Tracer
}

// Generator 实现 dashboard.GenerationService：
// 先查全局缓存，未命中时同一个键的并发请求只会调用一次模型。
type Generator struct {
	chat    Chatter
	cache   *PhraseCache
	group   singleflight.Group
	timeout time.Duration
	tracer  trace.Tracer
}

var _ dashboard.GenerationService = (*Generator)(nil)

func New(chat Chatter, cache *PhraseCache, opts Options) *Generator {
	if cache == nil {
		cache = NewPhraseCache(0, 0)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Generator{
		chat:    chat,
		cache:   cache,
		timeout: opts.Timeout,
		tracer:  opts.Tracer,
	}
}

func (g *Generator) Cache() *PhraseCache {
	return g.cache
}

func (g *Generator) Generate(ctx context.Context, mode model.ContentMode, selection string) (model.PhraseSet, error) {
	ctx, span := g.tracer.Start(ctx, "generator.Generate", trace.WithAttributes(
		attribute.String("generation.mode", string(mode)),
		attribute.String("generation.selection", selection),
	))
	defer span.End()

	if phrases, ok := g.cache.Get(mode, selection); ok {
		span.SetAttributes(attribute.Bool("generation.cache_hit", true))
		return phrases, nil
	}
	span.SetAttributes(attribute.Bool("generation.cache_hit", false))

	key := CacheKey(mode, selection)
	ch := g.group.DoChan(key, func() (any, error) {
		// 共享调用不受单个调用方取消的影响
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.generate(callCtx, mode, selection)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return model.PhraseSet{}, res.Err
		}
		span.SetAttributes(attribute.Bool("generation.shared", res.Shared))
		return res.Val.(model.PhraseSet), nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "caller context done")
		return model.PhraseSet{}, ctx.Err()
	}
}

func (g *Generator) generate(ctx context.Context, mode model.ContentMode, selection string) (model.PhraseSet, error) {
	msgs, err := buildMessages(ctx, mode, selection)
	if err != nil {
		return model.PhraseSet{}, dashboard.NewServiceError(dashboard.ServicePermanent, err)
	}

	start := time.Now()
	content, provider, err := g.chat.Chat(ctx, msgs)
	if err != nil {
		var se *dashboard.ServiceError
		if errors.As(err, &se) {
			return model.PhraseSet{}, err
		}
		return model.PhraseSet{}, dashboard.NewServiceError(dashboard.ServiceTransient, err)
	}

	phrases, err := ParsePhrases(content)
	switch {
	case errors.Is(err, ErrInvalidTopic):
		return model.PhraseSet{}, dashboard.NewServiceError(dashboard.ServicePermanent, err)
	case err != nil:
		logger.WithFields(logrus.Fields{"provider": provider, "mode": mode}).
			Errorf("unparseable model response: %v", err)
		return model.PhraseSet{}, dashboard.NewServiceError(dashboard.ServiceTransient, err)
	case phrases.Empty():
		return model.PhraseSet{}, dashboard.NewServiceError(dashboard.ServiceTransient,
			fmt.Errorf("provider %s returned no phrases", provider))
	}

	g.cache.Set(mode, selection, phrases)
	logger.WithFields(logrus.Fields{
		"provider": provider,
		"mode":     mode,
		"phrases":  phrases.Len(),
		"elapsed":  time.Since(start).String(),
	}).Info("phrases generated")

	return phrases, nil
}
