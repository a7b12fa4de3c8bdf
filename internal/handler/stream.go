package handler

import (
	"context"
	"errors"
	"time"

	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/generator"
	"rocket-backend/internal/model"
	"rocket-backend/internal/utils"
	"rocket-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	heartbeatInterval = 30 * time.Second
	eventBufferSize   = 64
)

// StreamEvents 先推送一次完整状态，之后转发会话的变更通知，直到客户端断开
func (h *DashboardHandler) StreamEvents(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	events := make(chan dashboard.Event, eventBufferSize)
	unsubscribe := sess.Subscribe(func(ev dashboard.Event) {
		select {
		case events <- ev:
		default:
			// 消费过慢时丢弃；每个事件都携带完整值，下一条会覆盖
			logger.Warnf("Dropped %s event for session %s", ev.Type, sess.ID)
		}
	})
	defer unsubscribe()

	sse := utils.NewSSEWriter(c.Writer)
	if err := sse.WriteJSON("state", sess.Snapshot()); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := sse.WriteJSON(string(ev.Type), ev); err != nil {
				logger.Debugf("Event stream closed: %v", err)
				return
			}
		case <-heartbeat.C:
			if err := sse.WriteJSON("heartbeat", gin.H{"timestamp": time.Now().Unix()}); err != nil {
				return
			}
		}
	}
}

// StreamChat 按选定的间隔档位推送模拟聊天消息，直到客户端断开
func (h *DashboardHandler) StreamChat(c *gin.Context) {
	var q model.ChatStreamQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	preset, err := generator.ParseIntervalPreset(q.Interval)
	if err != nil {
		badRequest(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	mode := sess.Mode.Current()
	var own *model.PhraseSet
	if p, found := sess.Phrases(mode, q.Label); found {
		own = &p
	}
	phrases := h.simulator.PhrasesFor(mode, q.Label, own)

	logger.WithFields(logrus.Fields{
		"user_id":  sess.UserID,
		"label":    q.Label,
		"interval": preset.Name,
		"phrases":  phrases.Len(),
	}).Info("chat stream started")

	sse := utils.NewSSEWriter(c.Writer)
	err = h.simulator.Run(c.Request.Context(), phrases, preset, func(msg model.ChatMessage) error {
		return sse.WriteJSON("message", msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("Chat stream ended: %v", err)
	}
}
