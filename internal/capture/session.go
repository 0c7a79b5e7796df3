// Package capture 客户端签到流程状态机：
// 选择签到类型、定位、拍照、确认并提交
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status 会话状态
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLocating  Status = "locating"
	StatusReady     Status = "ready"
	StatusCapturing Status = "capturing"
	StatusSending   Status = "sending"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// 签到类型
const (
	CheckTypeIn  = "IN"
	CheckTypeOut = "OUT"
)

const (
	// DefaultSuccessResetDelay 成功状态展示时长
	DefaultSuccessResetDelay = 2500 * time.Millisecond
	// DefaultErrorResetDelay 为 0 表示出错后立即回到 idle
	DefaultErrorResetDelay = 0
)

var (
	ErrInvalidTransition    = errors.New("capture: invalid transition")
	ErrInvalidCheckType     = errors.New("capture: check type must be IN or OUT")
	ErrEmptyPhoto           = errors.New("capture: photo is empty")
	ErrIncompleteSubmission = errors.New("capture: identity, check type, location and photo are required")
	ErrLocateFailed         = errors.New("capture: location unavailable")
	ErrSubmitFailed         = errors.New("capture: submission failed")
)

// Location 定位结果
type Location struct {
	Latitude  float64
	Longitude float64
}

// Photo 拍摄的照片
type Photo struct {
	Data []byte
}

// Submission 一次提交所需的全部数据
type Submission struct {
	Username  string
	CheckType string
	Location  Location
	Photo     Photo
}

// Receipt 提交成功后的服务端回执
type Receipt struct {
	Message  string
	RecordID uint64
}

// Locator 获取当前位置
type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// Submitter 发送提交
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (*Receipt, error)
}

// Scheduler 延迟 d 后执行 f，返回取消函数
type Scheduler func(d time.Duration, f func()) (cancel func())

func timerScheduler(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Config 会话配置，延迟为 0 表示立即复位
type Config struct {
	Username          string
	SuccessResetDelay time.Duration
	ErrorResetDelay   time.Duration
	// OnTransition 在持锁状态下调用，
	// 回调内不得再调用 Session 方法
	OnTransition func(from, to Status)
	Scheduler    Scheduler
	Logger       *zap.Logger
}

// DefaultConfig 使用默认复位延迟
func DefaultConfig(username string) Config {
	return Config{
		Username:          username,
		SuccessResetDelay: DefaultSuccessResetDelay,
		ErrorResetDelay:   DefaultErrorResetDelay,
	}
}

// Snapshot 会话状态快照
type Snapshot struct {
	Status    Status
	Username  string
	CheckType string
	Location  *Location
	HasPhoto  bool
	LastError error
}

// Session 签到状态机，方法可并发调用
type Session struct {
	mu sync.Mutex

	cfg       Config
	locator   Locator
	submitter Submitter

	status    Status
	checkType string
	location  *Location
	photo     []byte
	lastErr   error

	// gen 流程重启时作废进行中的操作和待执行的复位
	gen         uint64
	cancelReset func()
}

// NewSession 创建 idle 状态的 Session
func NewSession(cfg Config, locator Locator, submitter Submitter) *Session {
	if cfg.Scheduler == nil {
		cfg.Scheduler = timerScheduler
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		cfg:       cfg,
		locator:   locator,
		submitter: submitter,
		status:    StatusIdle,
	}
}

// Status 当前状态
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot 复制当前状态
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:    s.status,
		Username:  s.cfg.Username,
		CheckType: s.checkType,
		HasPhoto:  len(s.photo) > 0,
		LastError: s.lastErr,
	}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	return snap
}

// SelectCheckType 开始流程并定位
// 阻塞至 Locator 返回；定位失败进入 error
func (s *Session) SelectCheckType(ctx context.Context, checkType string) error {
	checkType = strings.ToUpper(strings.TrimSpace(checkType))
	if checkType != CheckTypeIn && checkType != CheckTypeOut {
		return ErrInvalidCheckType
	}

	s.mu.Lock()
	if s.status != StatusIdle {
		defer s.mu.Unlock()
		return s.invalid("select check type")
	}
	s.checkType = checkType
	s.lastErr = nil
	s.setStatus(StatusLocating)
	gen := s.gen
	s.mu.Unlock()

	loc, err := s.locator.Locate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.status != StatusLocating {
		return ErrInvalidTransition
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLocateFailed, err)
		s.fail(err)
		return err
	}

	s.location = &loc
	s.setStatus(StatusReady)
	return nil
}

// Capture 暂存照片待确认；空照片时保持 ready
func (s *Session) Capture(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusReady {
		return s.invalid("capture")
	}
	if len(data) == 0 {
		return ErrEmptyPhoto
	}

	s.photo = append([]byte(nil), data...)
	s.setStatus(StatusCapturing)
	return nil
}

// Discard 丢弃暂存照片以便重拍
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusCapturing {
		return s.invalid("discard")
	}
	s.photo = nil
	s.setStatus(StatusReady)
	return nil
}

// Confirm 提交暂存照片
// 数据不完整时返回 ErrIncompleteSubmission，不发请求、不改状态
func (s *Session) Confirm(ctx context.Context) (*Receipt, error) {
	s.mu.Lock()
	if s.status != StatusCapturing {
		defer s.mu.Unlock()
		return nil, s.invalid("confirm")
	}

	sub, ok := s.submission()
	if !ok {
		s.mu.Unlock()
		return nil, ErrIncompleteSubmission
	}
	s.setStatus(StatusSending)
	gen := s.gen
	s.mu.Unlock()

	receipt, err := s.submitter.Submit(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// 发送期间已复位，结果属于已放弃的流程
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		}
		return receipt, nil
	}

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		s.fail(err)
		return nil, err
	}

	s.cfg.Logger.Info("check-in submitted",
		zap.String("username", sub.Username),
		zap.String("check_type", sub.CheckType),
		zap.Uint64("record_id", receipt.RecordID),
	)
	s.setStatus(StatusSuccess)
	s.scheduleReset(s.cfg.SuccessResetDelay)
	return receipt, nil
}

// Reset 放弃当前流程回到 idle，发送中不允许
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSending {
		return s.invalid("reset")
	}
	s.resetLocked()
	return nil
}

// ── 内部方法（需持有 s.mu） ──

func (s *Session) submission() (Submission, bool) {
	username := strings.TrimSpace(s.cfg.Username)
	if username == "" || s.checkType == "" || s.location == nil || len(s.photo) == 0 {
		return Submission{}, false
	}
	return Submission{
		Username:  username,
		CheckType: s.checkType,
		Location:  *s.location,
		Photo:     Photo{Data: s.photo},
	}, true
}

func (s *Session) fail(err error) {
	s.lastErr = err
	s.cfg.Logger.Warn("check-in flow failed", zap.String("status", string(s.status)), zap.Error(err))
	s.setStatus(StatusError)
	s.scheduleReset(s.cfg.ErrorResetDelay)
}

func (s *Session) scheduleReset(d time.Duration) {
	if d <= 0 {
		s.resetLocked()
		return
	}
	gen := s.gen
	s.cancelReset = s.cfg.Scheduler(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.gen {
			s.resetLocked()
		}
	})
}

func (s *Session) resetLocked() {
	if s.cancelReset != nil {
		s.cancelReset()
		s.cancelReset = nil
	}
	s.gen++
	s.checkType = ""
	s.location = nil
	s.photo = nil
	s.setStatus(StatusIdle)
}

func (s *Session) setStatus(to Status) {
	from := s.status
	if from == to {
		return
	}
	s.status = to
	if s.cfg.OnTransition != nil {
		s.cfg.OnTransition(from, to)
	}
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, s.status)
}
