package device

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/loadbank/internal/devicelock"
	"github.com/taoyao-code/loadbank/internal/metrics"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/session"
	"github.com/taoyao-code/loadbank/internal/simulator"
)

// pipeDialer 每次 Dial 创建一条内存管道，另一端由模拟控制板应答
type pipeDialer struct {
	board   *simulator.Board
	dialErr error
	mute    bool // 只读不答，模拟设备无响应
	dials   atomic.Int32
	open    atomic.Int32
}

func (d *pipeDialer) Name() string   { return "pipe" }
func (d *pipeDialer) Target() string { return "memory" }

func (d *pipeDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	d.dials.Add(1)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	client, dev := net.Pipe()
	d.open.Add(1)
	go func() {
		defer dev.Close()
		if d.mute {
			_, _ = io.Copy(io.Discard, dev)
			return
		}
		_ = d.board.Serve(dev)
	}()
	return &countedConn{Conn: client, open: &d.open}, nil
}

type countedConn struct {
	net.Conn
	open *atomic.Int32
	once sync.Once
}

func (c *countedConn) Close() error {
	c.once.Do(func() { c.open.Add(-1) })
	return c.Conn.Close()
}

func newTestController(d *pipeDialer, opts ...Option) *Controller {
	return NewController(d, devicelock.NewLocal(time.Second), opts...)
}

func TestController_SwitchSet(t *testing.T) {
	d := &pipeDialer{board: simulator.NewBoard()}
	c := newTestController(d)

	resp, err := c.Do(context.Background(), loadbank.Request{Op: loadbank.OpSwitchSet, Arg: "101010101010101010"})
	require.NoError(t, err)
	assert.Equal(t, loadbank.KindSwitchReport, resp.Kind)
	assert.Equal(t, "101010101010101010", resp.SwitchString())

	// 每次请求一条连接，结束后关闭
	assert.Equal(t, int32(1), d.dials.Load())
	assert.Equal(t, int32(0), d.open.Load())

	stats := c.Stats()
	require.NotNil(t, stats.Last)
	assert.Equal(t, "ok", stats.Last.Result)
	assert.Equal(t, "SW", stats.Last.Op)
	assert.Equal(t, "local", stats.LockBackend)
}

func TestController_InvalidArgumentSkipsDevice(t *testing.T) {
	d := &pipeDialer{board: simulator.NewBoard()}
	c := newTestController(d)

	_, err := c.Do(context.Background(), loadbank.Request{Op: loadbank.OpPhaseSet, Arg: "1234"})
	assert.ErrorIs(t, err, loadbank.ErrInvalidArgument)
	assert.Zero(t, d.dials.Load())
	assert.Nil(t, c.Stats().Last)
}

func TestController_DeviceErrorDoesNotTripBreaker(t *testing.T) {
	board := simulator.NewBoard()
	board.SetZeroCrossFault(true)
	d := &pipeDialer{board: board}
	m := metrics.NewNopMetrics()
	c := newTestController(d, WithBreaker(NewBreaker(1, time.Minute)), WithMetrics(m))

	_, err := c.Do(context.Background(), loadbank.Request{Op: loadbank.OpZCSSet, Arg: "ON"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = c.Do(context.Background(), loadbank.Request{Op: loadbank.OpSwitchSet, Arg: "111111111111111111"})
		assert.ErrorIs(t, err, session.ErrZCSTimeout)
	}
	assert.Equal(t, StateClosed, c.BreakerState())
	assert.Equal(t, "zcs_timeout", c.Stats().Last.Result)

	// 设备错误按类别计数，不使用设备原文作标签
	var mt dto.Metric
	require.NoError(t, m.DeviceErrorsTotal.WithLabelValues("zcs_timeout").Write(&mt))
	assert.Equal(t, 3.0, mt.GetCounter().GetValue())
}

func TestController_CanceledProbeKeepsBreakerHalfOpen(t *testing.T) {
	d := &pipeDialer{dialErr: errors.New("connection refused")}
	c := newTestController(d, WithBreaker(NewBreaker(1, 10*time.Millisecond)))

	_, err := c.Do(context.Background(), loadbank.Request{Op: loadbank.OpSwitchQuery})
	assert.ErrorIs(t, err, session.ErrTransport)
	require.Equal(t, StateOpen, c.BreakerState())
	time.Sleep(20 * time.Millisecond)

	// 探测请求进行中被调用方取消
	d.dialErr = nil
	d.mute = true
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(30*time.Millisecond, cancel)
	defer timer.Stop()
	_, err = c.Do(ctx, loadbank.Request{Op: loadbank.OpSwitchQuery})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, StateHalfOpen, c.BreakerState())
	assert.Equal(t, 1, c.Stats().Breaker.Failures)
	// 探测名额已让出
	assert.NoError(t, c.breaker.Allow())
}

func TestDeviceErrorKind(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"过零超时", "ZCS TMOUT", "zcs_timeout"},
		{"非法请求", "BAD REQUEST", "bad_request"},
		{"其他", "OVERHEAT 93C", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deviceErrorKind(&session.DeviceError{Message: tt.msg}))
		})
	}
}

func TestController_BreakerOpensOnDialFailures(t *testing.T) {
	d := &pipeDialer{dialErr: errors.New("connection refused")}
	m := metrics.NewNopMetrics()
	c := newTestController(d, WithBreaker(NewBreaker(2, time.Minute)), WithMetrics(m))

	for i := 0; i < 2; i++ {
		_, err := c.Do(context.Background(), loadbank.Request{Op: loadbank.OpSwitchQuery})
		assert.ErrorIs(t, err, session.ErrTransport)
	}
	assert.Equal(t, StateOpen, c.BreakerState())

	_, err := c.Do(context.Background(), loadbank.Request{Op: loadbank.OpSwitchQuery})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), d.dials.Load())
	assert.Equal(t, "rejected", c.Stats().Last.Result)
}

func TestController_WatchdogClosesHungConnection(t *testing.T) {
	d := &pipeDialer{mute: true}
	c := newTestController(d)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Do(ctx, loadbank.Request{Op: loadbank.OpPhaseQuery})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, session.ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(0), d.open.Load())

	// 锁已释放
	release, err := c.locker.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestController_LockTimeout(t *testing.T) {
	d := &pipeDialer{board: simulator.NewBoard()}
	locker := devicelock.NewLocal(30 * time.Millisecond)
	c := NewController(d, locker)

	release, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = c.Do(context.Background(), loadbank.Request{Op: loadbank.OpZCSQuery})
	assert.ErrorIs(t, err, devicelock.ErrLockTimeout)
	assert.Zero(t, d.dials.Load())
}

func TestController_Serialized(t *testing.T) {
	d := &pipeDialer{board: simulator.NewBoard()}
	c := newTestController(d)

	var maxOpen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Run(context.Background(), func(s *session.Session) error {
				if n := d.open.Load(); n > maxOpen.Load() {
					maxOpen.Store(n)
				}
				_, err := s.Handle(loadbank.Request{Op: loadbank.OpSwitchQuery})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxOpen.Load())
}

func TestController_Sequence(t *testing.T) {
	board := simulator.NewBoard()
	d := &pipeDialer{board: board}
	c := newTestController(d)

	resps, err := c.Sequence(context.Background(), []loadbank.Request{
		{Op: loadbank.OpPhaseSet, Arg: "111111222222333333"},
		{Op: loadbank.OpZCSSet, Arg: "ON"},
		{Op: loadbank.OpSwitchSet, Arg: "111111111111111111"},
	})
	require.NoError(t, err)
	require.Len(t, resps, 3)
	assert.Equal(t, int32(1), d.dials.Load())

	s, err := resps[0].PhaseString()
	require.NoError(t, err)
	assert.Equal(t, "111111222222333333", s)
	assert.True(t, resps[1].ZCS)
	assert.Equal(t, "111111111111111111", resps[2].SwitchString())

	// 参数错误时不执行任何步骤
	_, err = c.Sequence(context.Background(), []loadbank.Request{
		{Op: loadbank.OpZCSSet, Arg: "OFF"},
		{Op: loadbank.OpSwitchSet, Arg: "x"},
	})
	assert.ErrorIs(t, err, loadbank.ErrInvalidArgument)
	_, _, zcs := board.Snapshot()
	assert.True(t, zcs)
}

func TestController_SequenceStopsAtFirstError(t *testing.T) {
	board := simulator.NewBoard()
	board.SetZeroCrossFault(true)
	c := newTestController(&pipeDialer{board: board})

	resps, err := c.Sequence(context.Background(), []loadbank.Request{
		{Op: loadbank.OpZCSSet, Arg: "ON"},
		{Op: loadbank.OpSwitchSet, Arg: "111111111111111111"},
		{Op: loadbank.OpZCSSet, Arg: "OFF"},
	})
	assert.ErrorIs(t, err, session.ErrZCSTimeout)
	assert.Len(t, resps, 1)
	_, _, zcs := board.Snapshot()
	assert.True(t, zcs)
}

func TestResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"成功", nil, "ok"},
		{"参数错误", &loadbank.BuildError{Op: loadbank.OpSwitchSet}, "invalid"},
		{"过零超时", &session.DeviceError{Message: "ZCS TMOUT"}, "zcs_timeout"},
		{"设备拒绝", &session.DeviceError{Message: "BAD REQUEST"}, "device_error"},
		{"应答不匹配", &session.UnexpectedResponseError{}, "unexpected"},
		{"熔断", ErrCircuitOpen, "rejected"},
		{"锁超时", devicelock.ErrLockTimeout, "rejected"},
		{"传输错误", &session.TransportError{Err: io.EOF}, "transport_error"},
		{"取消", context.Canceled, "canceled"},
		{"其他", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Result(tt.err))
		})
	}
}
