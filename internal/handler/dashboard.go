package handler

import (
	"errors"
	"io"
	"net/http"

	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/generator"
	"rocket-backend/internal/model"
	"rocket-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	service   *service.DashboardService
	simulator *generator.ChatSimulator
}

func NewDashboardHandler(svc *service.DashboardService, simulator *generator.ChatSimulator) *DashboardHandler {
	return &DashboardHandler{
		service:   svc,
		simulator: simulator,
	}
}

// session 取当前用户的会话，失败时已写回错误响应
func (h *DashboardHandler) session(c *gin.Context) (*dashboard.Session, bool) {
	sess, err := h.service.Session(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sess, true
}

func (h *DashboardHandler) OpenSession(c *gin.Context) {
	sess, created, err := h.service.OpenSession(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, sess.Snapshot())
}

func (h *DashboardHandler) SignOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context(), currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DashboardHandler) GetState(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *DashboardHandler) GetTheme(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.ThemeResponse{Platform: sess.Theme.Current()})
}

func (h *DashboardHandler) ToggleTheme(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.ThemeResponse{Platform: sess.ToggleTheme()})
}

func (h *DashboardHandler) SwitchMode(c *gin.Context) {
	var req model.SwitchModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	mode, err := model.ParseContentMode(req.Mode)
	if err != nil {
		badRequest(c, err)
		return
	}

	sess, ok := h.session(c)
	if !ok {
		return
	}
	changed, err := sess.SwitchMode(mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ModeResponse{Mode: sess.Mode.Current(), Changed: changed})
}

func (h *DashboardHandler) GetPresets(c *gin.Context) {
	presets := h.service.Presets()
	c.JSON(http.StatusOK, model.PresetsResponse{
		Topics: presets.Topics(),
		Games:  presets.Games(),
	})
}

func (h *DashboardHandler) AddChip(c *gin.Context) {
	h.addChip(c, false)
}

func (h *DashboardHandler) AddPresetChip(c *gin.Context) {
	h.addChip(c, true)
}

func (h *DashboardHandler) addChip(c *gin.Context, preset bool) {
	var req model.AddChipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, ok := h.session(c)
	if !ok {
		return
	}

	var id string
	var err error
	if preset {
		if !sess.Presets.IsPresetGame(req.Label) {
			badRequest(c, errors.New("not a preset game"))
			return
		}
		id, err = sess.AddPresetChip(req.Label)
	} else {
		id, err = sess.AddChip(req.Label)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.ChipsResponse{
		ID:        id,
		Chips:     sess.Chips.Chips(),
		Remaining: sess.Chips.Remaining(),
	})
}

func (h *DashboardHandler) RemoveChip(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if !sess.RemoveChip(c.Param("chip_id")) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "chip not found", Kind: "not_found"})
		return
	}
	c.JSON(http.StatusOK, model.ChipsResponse{
		Chips:     sess.Chips.Chips(),
		Remaining: sess.Chips.Remaining(),
	})
}

func (h *DashboardHandler) SetTopic(c *gin.Context) {
	var req model.SetTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.SetTopic(req.Topic)
	c.JSON(http.StatusOK, gin.H{
		"topic": sess.Topic.Value(),
		"error": dashboard.DescribeError(sess.Topic.Validate()),
	})
}

// Generate 请求体可以为空；校验失败时同步返回 422，否则 202 并在后台生成
func (h *DashboardHandler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	genReq, err := sess.Submit(c.Request.Context(), req.Selection)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, genReq)
}

func (h *DashboardHandler) CancelGeneration(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	cancelled := sess.CancelGeneration()
	c.JSON(http.StatusOK, gin.H{
		"cancelled":  cancelled,
		"generation": sess.Generation.Status(),
	})
}

func (h *DashboardHandler) GenerationStatus(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Generation.Status())
}
