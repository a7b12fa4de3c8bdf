package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// GenerationService 外部短语生成服务，每次提交最多调用一次
type GenerationService interface {
	Generate(ctx context.Context, mode model.ContentMode, selection string) (model.PhraseSet, error)
}

type RequestStatus string

const (
	StatusIdle       RequestStatus = "idle"
	StatusValidating RequestStatus = "validating"
	StatusGenerating RequestStatus = "generating"
	StatusSucceeded  RequestStatus = "succeeded"
	StatusFailed     RequestStatus = "failed"
)

// GenerationRequest 一次提交尝试的快照；Succeeded/Failed 为终态
type GenerationRequest struct {
	ID     uint64
	Mode   model.ContentMode
	Input  string
	Status RequestStatus
	Result *model.PhraseSet
	Err    error
}

// ErrorView 错误的对外表示
type ErrorView struct {
	Kind      string `json:"kind"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable"`
}

type requestView struct {
	ID     uint64            `json:"id"`
	Mode   model.ContentMode `json:"mode,omitempty"`
	Input  string            `json:"input,omitempty"`
	Status RequestStatus     `json:"status"`
	Result *model.PhraseSet  `json:"result,omitempty"`
	Error  *ErrorView        `json:"error,omitempty"`
}

func (r GenerationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestView{
		ID:     r.ID,
		Mode:   r.Mode,
		Input:  r.Input,
		Status: r.Status,
		Result: r.Result,
		Error:  DescribeError(r.Err),
	})
}

// DescribeError 将错误映射为对外的 kind/reason，不包含具体文案
func DescribeError(err error) *ErrorView {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ErrorView{Kind: "validation", Reason: string(ve.Reason)}
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return &ErrorView{Kind: "service", Reason: string(se.Kind), Retryable: se.Retryable()}
	}
	if errors.Is(err, ErrBusy) {
		return &ErrorView{Kind: "busy"}
	}
	return &ErrorView{Kind: "internal"}
}

// GenerationRequestManager 管理生成请求的生命周期：
// 同一时刻最多一个请求处于 Generating；过期（被取消或被取代）的响应被静默丢弃。
type GenerationRequestManager struct {
	service GenerationService
	timeout time.Duration

	emitMu   sync.Mutex
	mu       sync.Mutex
	lastID   uint64
	activeID uint64 // 仍然有效的请求 id，0 表示没有
	current  GenerationRequest
	closed   bool
	subs     listeners[GenerationRequest]

	// extraValidate 在模式校验通过后执行的附加校验，例如标签容量
	extraValidate func(mode model.ContentMode, normalized string) error

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewGenerationRequestManager(service GenerationService, timeout time.Duration) *GenerationRequestManager {
	ctx, stop := context.WithCancel(context.Background())
	return &GenerationRequestManager{
		service: service,
		timeout: timeout,
		current: GenerationRequest{Status: StatusIdle},
		ctx:     ctx,
		stop:    stop,
	}
}

// Submit 校验同步完成；校验通过后异步调用生成服务并立即返回 Generating 快照。
// 正在生成时返回 ErrBusy，不分配新 id。
func (m *GenerationRequestManager) Submit(ctx context.Context, mode model.ContentMode, selection string) (GenerationRequest, error) {
	if !mode.Valid() {
		return GenerationRequest{}, fmt.Errorf("unknown content mode: %q", mode)
	}

	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return GenerationRequest{}, ErrSessionClosed
	}
	if m.current.Status == StatusGenerating {
		busyID := m.current.ID
		m.mu.Unlock()
		logger.Debugf("generation request rejected: request %d still generating", busyID)
		return GenerationRequest{}, ErrBusy
	}

	m.lastID++
	req := GenerationRequest{
		ID:     m.lastID,
		Mode:   mode,
		Input:  Normalize(selection),
		Status: StatusValidating,
	}
	m.activeID = req.ID
	m.current = req
	extra := m.extraValidate
	m.mu.Unlock()
	m.subs.emit(req)

	err := validateSelection(mode, req.Input)
	if err == nil && extra != nil {
		err = extra(mode, req.Input)
	}
	if err != nil {
		req.Status = StatusFailed
		req.Err = err
		m.setCurrent(req, true)
		m.subs.emit(req)
		return req, err
	}

	req.Status = StatusGenerating
	m.mu.Lock()
	m.current = req
	m.wg.Add(1)
	m.mu.Unlock()
	m.subs.emit(req)

	go m.run(context.WithoutCancel(ctx), req)

	return req, nil
}

// SetValidator 注册附加校验，需在第一次 Submit 之前调用
func (m *GenerationRequestManager) SetValidator(fn func(mode model.ContentMode, normalized string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extraValidate = fn
}

func validateSelection(mode model.ContentMode, normalized string) error {
	if mode == model.ModeJustChatting {
		return ValidateTopic(normalized)
	}
	return validateLength(normalized)
}

func (m *GenerationRequestManager) run(parent context.Context, req GenerationRequest) {
	defer m.wg.Done()

	phrases, err := m.call(parent, req)

	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.activeID != req.ID {
		m.mu.Unlock()
		logger.WithFields(logrus.Fields{"request_id": req.ID, "mode": req.Mode}).
			Debug("discarding stale generation response")
		return
	}

	switch {
	case err != nil:
		req.Status = StatusFailed
		req.Err = classifyServiceError(err)
		logger.WithFields(logrus.Fields{"request_id": req.ID, "mode": req.Mode, "input": req.Input}).
			Warnf("generation failed: %v", err)
	case phrases.Empty():
		req.Status = StatusFailed
		req.Err = NewServiceError(ServiceTransient, errors.New("generation returned no phrases"))
	default:
		req.Status = StatusSucceeded
		req.Result = &phrases
	}
	m.current = req
	m.activeID = 0
	m.mu.Unlock()

	m.subs.emit(req)
}

// call 以 timeout 约束服务调用；超时与服务失败一样处理
func (m *GenerationRequestManager) call(parent context.Context, req GenerationRequest) (model.PhraseSet, error) {
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	type outcome struct {
		phrases model.PhraseSet
		err     error
	}
	done := make(chan outcome, 1)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		phrases, err := m.service.Generate(ctx, req.Mode, req.Input)
		done <- outcome{phrases: phrases, err: err}
	}()

	select {
	case out := <-done:
		return out.phrases, out.err
	case <-ctx.Done():
		return model.PhraseSet{}, ctx.Err()
	}
}

// CancelCurrent 将进行中的请求标记为已取代，可见状态回到 Idle；不会中断底层网络调用
func (m *GenerationRequestManager) CancelCurrent() bool {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.current.Status != StatusGenerating {
		m.mu.Unlock()
		return false
	}
	superseded := m.current.ID
	idle := GenerationRequest{Status: StatusIdle}
	m.activeID = 0
	m.current = idle
	m.mu.Unlock()

	logger.Debugf("generation request %d superseded", superseded)
	m.subs.emit(idle)
	return true
}

// DismissValidationFailure 当前状态为校验失败时回到 Idle
func (m *GenerationRequestManager) DismissValidationFailure() bool {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	var ve *ValidationError
	if m.current.Status != StatusFailed || !errors.As(m.current.Err, &ve) {
		m.mu.Unlock()
		return false
	}
	idle := GenerationRequest{Status: StatusIdle}
	m.current = idle
	m.mu.Unlock()

	m.subs.emit(idle)
	return true
}

func (m *GenerationRequestManager) setCurrent(req GenerationRequest, release bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = req
	if release && m.activeID == req.ID {
		m.activeID = 0
	}
}

func (m *GenerationRequestManager) Status() GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// LastID 最近分配的请求 id
func (m *GenerationRequestManager) LastID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastID
}

func (m *GenerationRequestManager) Subscribe(fn func(GenerationRequest)) func() {
	return m.subs.add(fn)
}

// Close 取代所有进行中的请求，可见状态回到 Idle，取消其上下文并等待后台 goroutine 退出
func (m *GenerationRequestManager) Close() {
	m.emitMu.Lock()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.emitMu.Unlock()
		return
	}
	m.closed = true
	m.activeID = 0
	wasGenerating := m.current.Status == StatusGenerating
	if wasGenerating {
		m.current = GenerationRequest{Status: StatusIdle}
	}
	m.mu.Unlock()
	if wasGenerating {
		m.subs.emit(GenerationRequest{Status: StatusIdle})
	}
	m.emitMu.Unlock()

	m.stop()
	m.wg.Wait()
}
