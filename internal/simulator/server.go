package simulator

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/logging"
	"github.com/taoyao-code/loadbank/internal/metrics"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
)

// Server 以 TCP 暴露 Board，行为与串口服务器 + 控制板一致
type Server struct {
	cfg     cfgpkg.SimulatorConfig
	board   *Board
	limiter *ConnectionLimiter
	metrics *metrics.AppMetrics
	logger  *zap.Logger

	ln    net.Listener
	wg    sync.WaitGroup
	stopC chan struct{}
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer 创建模拟器服务
func NewServer(cfg cfgpkg.SimulatorConfig, board *Board, m *metrics.AppMetrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	return &Server{
		cfg:     cfg,
		board:   board,
		limiter: NewConnectionLimiter(cfg.MaxConnections, cfg.QueueTimeout),
		metrics: m,
		logger:  logger,
		stopC:   make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Addr 实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("simulator listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.ln.Accept()
			if err != nil {
				select {
				case <-s.stopC:
					return
				default:
				}
				// 短暂错误等待后重试
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.metrics.SimConnectionsTotal.Inc()

			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.serve(c)
			}(conn)
		}
	}()
	return nil
}

func (s *Server) serve(c net.Conn) {
	defer c.Close()
	s.track(c, true)
	defer s.track(c, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopC:
			cancel()
		case <-ctx.Done():
		}
	}()

	// 排队等待，串口同一时间只属于一个客户端
	if err := s.limiter.Acquire(ctx); err != nil {
		s.logger.Warn("simulator connection rejected",
			zap.String("remote", c.RemoteAddr().String()),
			zap.Int64("rejected_total", s.limiter.RejectedCount()),
			zap.Error(err))
		return
	}
	s.metrics.SimActiveConnections.Set(float64(s.limiter.Current()))
	defer func() {
		s.limiter.Release()
		s.metrics.SimActiveConnections.Set(float64(s.limiter.Current()))
	}()

	log := s.logger.With(zap.String("remote", c.RemoteAddr().String()))
	log.Debug("simulator client attached", zap.Int("active", s.limiter.Current()))

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = c.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		req, err := loadbank.ReadFrame(c)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug("simulator read ended", zap.Error(err))
			}
			return
		}
		reply := s.board.Handle(req)
		s.metrics.SimFramesTotal.WithLabelValues(Kind(reply)).Inc()
		if ce := log.Check(zap.DebugLevel, "simulator frame"); ce != nil {
			ce.Write(append(logging.Frame(req), zap.String("reply", string(reply)))...)
		}
		if err := loadbank.WriteFrame(c, reply); err != nil {
			log.Debug("simulator write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		select {
		case <-s.stopC:
			_ = c.Close()
			return
		default:
		}
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// Stats 连接统计
type Stats struct {
	Active   int   `json:"active"`
	Rejected int64 `json:"rejected"`
}

// Stats 当前占用串口的客户端数与累计排队超时被拒绝的连接数
func (s *Server) Stats() Stats {
	return Stats{Active: s.limiter.Current(), Rejected: s.limiter.RejectedCount()}
}

// Shutdown 关闭监听与所有连接并等待退出
func (s *Server) Shutdown(ctx context.Context) error {
	st := s.Stats()
	s.logger.Info("simulator shutting down", zap.Int("active", st.Active), zap.Int64("rejected_total", st.Rejected))
	close(s.stopC)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
