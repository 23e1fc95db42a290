package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/devicelock"
	"github.com/taoyao-code/loadbank/internal/logging"
	"github.com/taoyao-code/loadbank/internal/metrics"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/session"
	"github.com/taoyao-code/loadbank/internal/transport"
)

// Controller 串行化对控制板的访问：加锁 → 打开连接 → 交互 → 关闭连接 → 解锁
// 每次请求独占一条新连接，与原有的"每次调用打开一次设备"模型一致
type Controller struct {
	dialer  transport.Dialer
	locker  devicelock.Locker
	breaker *Breaker
	metrics *metrics.AppMetrics
	logger  *zap.Logger

	mu   sync.RWMutex
	last *Exchange
}

// Exchange 最近一次请求的结果，用于健康检查
type Exchange struct {
	Time     time.Time     `json:"time"`
	Op       string        `json:"op"`
	Result   string        `json:"result"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Option 控制器选项
type Option func(*Controller)

// WithBreaker 设置熔断器
func WithBreaker(b *Breaker) Option { return func(c *Controller) { c.breaker = b } }

// WithMetrics 设置指标
func WithMetrics(m *metrics.AppMetrics) Option { return func(c *Controller) { c.metrics = m } }

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.logger = l } }

// NewController 创建控制器
func NewController(dialer transport.Dialer, locker devicelock.Locker, opts ...Option) *Controller {
	c := &Controller{dialer: dialer, locker: locker}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNopMetrics()
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(0, 0)
	}
	c.breaker.OnStateChange(func(from, to State) {
		c.metrics.BreakerState.Set(float64(to))
		c.logger.Warn("device breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("target", c.dialer.Target()))
	})
	return c
}

// Do 处理一次请求；设置命令成功后返回设备回读的状态
// 参数非法时直接返回，不加锁也不打开设备
func (c *Controller) Do(ctx context.Context, req loadbank.Request) (loadbank.Response, error) {
	payload, err := req.Build()
	if err != nil {
		c.record(req.Op, 0, err)
		return loadbank.Response{}, err
	}
	return c.DoPayload(ctx, req.Op, payload)
}

// DoPayload 使用预先构造的 payload 处理一次请求
func (c *Controller) DoPayload(ctx context.Context, op loadbank.Op, payload []byte) (loadbank.Response, error) {
	var resp loadbank.Response
	start := time.Now()
	err := c.Run(ctx, func(s *session.Session) error {
		var err error
		resp, err = s.HandlePayload(op, payload)
		return err
	})
	c.record(op, time.Since(start), err)
	return resp, err
}

// Sequence 在一次加锁内依次处理多个请求，遇到第一个错误即停止
// 返回已完成请求的结果
func (c *Controller) Sequence(ctx context.Context, reqs []loadbank.Request) ([]loadbank.Response, error) {
	payloads := make([][]byte, len(reqs))
	for i, req := range reqs {
		p, err := req.Build()
		if err != nil {
			return nil, err
		}
		payloads[i] = p
	}

	out := make([]loadbank.Response, 0, len(reqs))
	ran := false
	err := c.Run(ctx, func(s *session.Session) error {
		ran = true
		for i, req := range reqs {
			start := time.Now()
			resp, err := s.HandlePayload(req.Op, payloads[i])
			c.record(req.Op, time.Since(start), err)
			if err != nil {
				return err
			}
			out = append(out, resp)
		}
		return nil
	})
	if err != nil && !ran && len(reqs) > 0 {
		c.record(reqs[0].Op, 0, err)
	}
	return out, err
}

// Run 持有设备锁和一条打开的连接执行 fn
// ctx 结束时连接会被关闭，阻塞中的读写随即返回
func (c *Controller) Run(ctx context.Context, fn func(*session.Session) error) error {
	lockStart := time.Now()
	release, err := c.locker.Acquire(ctx)
	c.metrics.LockWaitSeconds.WithLabelValues(c.locker.Backend()).Observe(time.Since(lockStart).Seconds())
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil {
			c.logger.Error("release device lock failed", zap.Error(rerr))
		}
	}()

	if err := c.breaker.Allow(); err != nil {
		return err
	}

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		c.settle(ctx, true)
		return &session.TransportError{Stage: session.StageDial, Err: err}
	}

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { _ = conn.Close() }) }
	stop := context.AfterFunc(ctx, closeConn)
	defer func() {
		stop()
		closeConn()
	}()

	err = fn(session.New(conn, session.WithFrameHook(c.frameHook)))
	if ctx.Err() != nil && err != nil {
		// 连接被 watchdog 关闭导致的读写错误
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	c.settle(ctx, isLinkFailure(err))
	return err
}

// settle 结算熔断器；调用方取消的请求不说明链路好坏
func (c *Controller) settle(ctx context.Context, failed bool) {
	if isCanceled(ctx) {
		c.breaker.Abandon()
		return
	}
	c.breaker.Record(failed)
}

// Stats 设备访问状态
type Stats struct {
	Transport   string       `json:"transport"`
	Target      string       `json:"target"`
	LockBackend string       `json:"lock_backend"`
	Breaker     BreakerStats `json:"breaker"`
	Last        *Exchange    `json:"last_exchange,omitempty"`
}

// Stats 返回当前状态快照
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	var last *Exchange
	if c.last != nil {
		cp := *c.last
		last = &cp
	}
	c.mu.RUnlock()
	return Stats{
		Transport:   c.dialer.Name(),
		Target:      c.dialer.Target(),
		LockBackend: c.locker.Backend(),
		Breaker:     c.breaker.Stats(),
		Last:        last,
	}
}

// BreakerState 熔断器状态
func (c *Controller) BreakerState() State { return c.breaker.State() }

func (c *Controller) frameHook(dir session.Direction, payload []byte) {
	if ce := c.logger.Check(zap.DebugLevel, "device frame "+dir.String()); ce != nil {
		ce.Write(logging.Frame(payload)...)
	}
}

func (c *Controller) record(op loadbank.Op, d time.Duration, err error) {
	result := Result(err)
	c.metrics.CommandsTotal.WithLabelValues(op.String(), result).Inc()
	if d > 0 {
		c.metrics.ExchangeSeconds.WithLabelValues(op.String()).Observe(d.Seconds())
	}

	var de *session.DeviceError
	if errors.As(err, &de) {
		c.metrics.DeviceErrorsTotal.WithLabelValues(deviceErrorKind(de)).Inc()
	}

	ex := &Exchange{Time: time.Now(), Op: op.String(), Result: result, Duration: d}
	fields := []zap.Field{zap.String("op", op.String()), zap.String("result", result), zap.Duration("duration", d)}
	switch result {
	case "ok":
		c.logger.Debug("device request done", fields...)
	case "invalid":
		c.logger.Info("device request rejected locally", append(fields, zap.Error(err))...)
	case "device_error", "zcs_timeout", "unexpected":
		ex.Error = err.Error()
		c.logger.Warn("device replied with error", append(fields, zap.Error(err))...)
	default:
		ex.Error = err.Error()
		c.logger.Error("device request failed", append(fields, zap.Error(err))...)
	}

	// 本地参数错误没有访问设备，不更新最近一次交互
	if result == "invalid" {
		return
	}
	c.mu.Lock()
	c.last = ex
	c.mu.Unlock()
}

// Result 将错误归类为指标标签
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, loadbank.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, session.ErrZCSTimeout):
		return "zcs_timeout"
	case errors.Is(err, session.ErrDeviceRejected):
		return "device_error"
	case errors.Is(err, session.ErrUnexpectedResponse):
		return "unexpected"
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, devicelock.ErrLockTimeout):
		return "rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, session.ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}

// deviceErrorKind 设备 ERR 文本归类，避免原文进入指标标签
func deviceErrorKind(de *session.DeviceError) string {
	switch {
	case de.ZCSTimeout():
		return "zcs_timeout"
	case de.BadRequest():
		return "bad_request"
	default:
		return "other"
	}
}

func isLinkFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, session.ErrTransport) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, loadbank.ErrMalformedReport) ||
		errors.Is(err, context.DeadlineExceeded)
}

func isCanceled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
