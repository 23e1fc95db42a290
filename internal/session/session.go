package session

import (
	"io"
	"sync"

	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
)

// Direction 帧方向
type Direction int

const (
	Tx Direction = iota // 发往设备
	Rx                  // 来自设备
)

func (d Direction) String() string {
	if d == Tx {
		return "tx"
	}
	return "rx"
}

// FrameHook 每收发一帧调用一次，用于调试日志；会话本身不打日志
type FrameHook func(dir Direction, payload []byte)

// Option 会话选项
type Option func(*Session)

// WithFrameHook 设置帧钩子
func WithFrameHook(h FrameHook) Option {
	return func(s *Session) { s.hook = h }
}

// Session 在一条已打开的字节流上完成"一问一答"
// 协议没有请求 ID，同一 Session 上的交互通过互斥锁串行化，不做流水线
type Session struct {
	mu   sync.Mutex
	rw   io.ReadWriter
	hook FrameHook
}

// New 基于任意双向字节流创建会话
func New(rw io.ReadWriter, opts ...Option) *Session {
	s := &Session{rw: rw}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute 构造 → 成帧 → 写出 → 读帧 → 分类
// 设备的 ERR 应答以 KindError 返回而不是 error，由 Handle 解释
func (s *Session) Execute(req loadbank.Request) (loadbank.Response, error) {
	payload, err := req.Build()
	if err != nil {
		return loadbank.Response{}, err
	}
	return s.Exchange(req.Op, payload)
}

// Exchange 发送已构造好的 payload 并读取一条应答
func (s *Session) Exchange(op loadbank.Op, payload []byte) (loadbank.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeLocked(op, payload)
}

// exchangeLocked 调用方必须持有 s.mu
func (s *Session) exchangeLocked(op loadbank.Op, payload []byte) (loadbank.Response, error) {
	frame, err := loadbank.EncodeFrame(payload)
	if err != nil {
		return loadbank.Response{}, err
	}

	s.emit(Tx, payload)
	if err := writeAll(s.rw, frame); err != nil {
		return loadbank.Response{}, &TransportError{Op: op, Stage: StageWrite, Err: err}
	}

	reply, err := loadbank.ReadFrame(s.rw)
	if err != nil {
		return loadbank.Response{}, &TransportError{Op: op, Stage: StageRead, Err: err}
	}
	s.emit(Rx, reply)

	return loadbank.Classify(reply)
}

// Handle 处理一次用户请求
// 查询命令直接返回报告；设置命令收到 OK 后自动发送对应查询，
// 返回设备回读的真实状态；非 OK 应答跳过查询并直接返回错误
func (s *Session) Handle(req loadbank.Request) (loadbank.Response, error) {
	payload, err := req.Build()
	if err != nil {
		return loadbank.Response{}, err
	}
	return s.HandlePayload(req.Op, payload)
}

// HandlePayload 与 Handle 相同，但使用调用方预先构造的 payload（如按掩码构造的命令）
// 设置命令与随后的回查在同一次持锁内完成，其他调用不会插入中间
func (s *Session) HandlePayload(op loadbank.Op, payload []byte) (loadbank.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.exchangeLocked(op, payload)
	if err != nil {
		return resp, err
	}
	if err := expect(op, resp); err != nil {
		return resp, err
	}
	if !op.IsSet() {
		return resp, nil
	}

	query := op.Query()
	qpayload, err := loadbank.Request{Op: query}.Build()
	if err != nil {
		return loadbank.Response{}, err
	}
	qresp, err := s.exchangeLocked(query, qpayload)
	if err != nil {
		return qresp, err
	}
	return qresp, expect(query, qresp)
}

func (s *Session) emit(dir Direction, payload []byte) {
	if s.hook != nil {
		s.hook(dir, payload)
	}
}

// expect 检查应答类型是否符合命令预期
func expect(op loadbank.Op, resp loadbank.Response) error {
	if resp.Kind == loadbank.KindError {
		return &DeviceError{Op: op, Message: resp.Message}
	}
	if resp.Kind != expectedKind(op) {
		return &UnexpectedResponseError{Op: op, Response: resp}
	}
	return nil
}

func expectedKind(op loadbank.Op) loadbank.Kind {
	switch op {
	case loadbank.OpSwitchQuery:
		return loadbank.KindSwitchReport
	case loadbank.OpPhaseQuery:
		return loadbank.KindPhaseReport
	case loadbank.OpZCSQuery:
		return loadbank.KindZCSReport
	default:
		return loadbank.KindAck
	}
}

// writeAll 处理部分写（串口驱动可能分多次接收）
func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
