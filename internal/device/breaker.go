package device

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen 连续传输失败后熔断，暂不访问设备
var ErrCircuitOpen = errors.New("device: circuit breaker is open")

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常访问设备
	StateHalfOpen              // 冷却结束，放行一个探测请求
	StateOpen                  // 熔断中，直接拒绝
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker 设备熔断器
// 只统计传输层失败（连不上、读写超时）；设备返回 ERR 说明链路正常，不计入失败
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int // 连续失败次数
	probing      bool
	openedAt     time.Time
	lastChange   time.Time
	lastFailure  time.Time
	tripCount    int64
	threshold    int
	cooldown     time.Duration
	now          func() time.Time
	stateChanged func(from, to State)
}

// NewBreaker 创建熔断器；threshold/cooldown 非正数时使用默认值 5 次 / 30 秒
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	b := &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
	b.lastChange = b.now()
	return b
}

// OnStateChange 设置状态变化回调（在持锁状态下同步调用，回调内不得再访问 Breaker）
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.stateChanged = fn
	b.mu.Unlock()
}

// Allow 请求前检查；返回 nil 时调用方必须随后调用 Record 或 Abandon
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		// 同一时间只放行一个探测请求
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record 记录一次请求结果
func (b *Breaker) Record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if !failed {
		b.failures = 0
		b.transition(StateClosed)
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		if b.state != StateOpen {
			b.tripCount++
		}
		b.transition(StateOpen)
	}
}

// Abandon 请求被调用方取消，结果不计入统计，只让出探测名额
func (b *Breaker) Abandon() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// State 当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 手动恢复
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.transition(StateClosed)
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.lastChange = b.now()
	if b.stateChanged != nil {
		b.stateChanged(from, to)
	}
}

// BreakerStats 熔断器统计信息
type BreakerStats struct {
	State           string    `json:"state"`
	Failures        int       `json:"consecutive_failures"`
	TripCount       int64     `json:"trip_count"`
	LastStateChange time.Time `json:"last_state_change"`
	LastFailure     time.Time `json:"last_failure,omitempty"`
}

// Stats 获取统计信息
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:           b.state.String(),
		Failures:        b.failures,
		TripCount:       b.tripCount,
		LastStateChange: b.lastChange,
		LastFailure:     b.lastFailure,
	}
}
