package device

import (
	"testing"
	"time"
)

// fakeClock 手动推进的时钟
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	b := NewBreaker(threshold, cooldown)
	b.now = clk.now
	return b, clk
}

func TestBreaker(t *testing.T) {
	t.Run("熔断器状态转换", func(t *testing.T) {
		b, clk := newTestBreaker(3, time.Second)

		if b.State() != StateClosed {
			t.Fatalf("初始状态应该是Closed，实际: %v", b.State())
		}

		for i := 0; i < 3; i++ {
			if err := b.Allow(); err != nil {
				t.Fatalf("Closed状态应该放行: %v", err)
			}
			b.Record(true)
		}
		if b.State() != StateOpen {
			t.Fatalf("3次失败后应该是Open状态，实际: %v", b.State())
		}
		if err := b.Allow(); err != ErrCircuitOpen {
			t.Fatalf("Open状态应该返回ErrCircuitOpen，实际: %v", err)
		}

		clk.advance(2 * time.Second)
		if err := b.Allow(); err != nil {
			t.Fatalf("冷却结束后应该放行探测请求: %v", err)
		}
		if b.State() != StateHalfOpen {
			t.Fatalf("应该进入HalfOpen状态，实际: %v", b.State())
		}
		// 探测未完成前拒绝其他请求
		if err := b.Allow(); err != ErrCircuitOpen {
			t.Fatalf("HalfOpen探测期间应该拒绝，实际: %v", err)
		}

		b.Record(false)
		if b.State() != StateClosed {
			t.Fatalf("探测成功后应该恢复Closed，实际: %v", b.State())
		}
	})

	t.Run("半开状态失败立即熔断", func(t *testing.T) {
		b, clk := newTestBreaker(2, time.Second)
		b.Record(true)
		b.Record(true)
		clk.advance(2 * time.Second)
		_ = b.Allow()
		b.Record(true)

		if b.State() != StateOpen {
			t.Fatalf("HalfOpen失败应该立即回到Open，实际: %v", b.State())
		}
		if got := b.Stats().TripCount; got != 2 {
			t.Fatalf("熔断次数应该为2，实际: %d", got)
		}
	})

	t.Run("成功重置连续失败计数", func(t *testing.T) {
		b, _ := newTestBreaker(3, time.Second)
		b.Record(true)
		b.Record(true)
		b.Record(false)
		b.Record(true)
		b.Record(true)
		if b.State() != StateClosed {
			t.Fatalf("非连续失败不应该熔断，实际: %v", b.State())
		}
		if b.Stats().Failures != 2 {
			t.Fatalf("连续失败计数应该为2，实际: %d", b.Stats().Failures)
		}
	})

	t.Run("取消的请求不计入结果", func(t *testing.T) {
		b, clk := newTestBreaker(3, time.Second)
		b.Record(true)
		b.Record(true)
		_ = b.Allow()
		b.Abandon()
		if b.Stats().Failures != 2 {
			t.Fatalf("取消不应该清零失败计数，实际: %d", b.Stats().Failures)
		}

		b.Record(true)
		clk.advance(2 * time.Second)
		if err := b.Allow(); err != nil {
			t.Fatalf("冷却结束后应该放行探测请求: %v", err)
		}
		b.Abandon()
		if b.State() != StateHalfOpen {
			t.Fatalf("探测被取消后应该保持HalfOpen，实际: %v", b.State())
		}
		if err := b.Allow(); err != nil {
			t.Fatalf("取消后应该允许新的探测请求: %v", err)
		}
	})

	t.Run("状态变化回调", func(t *testing.T) {
		b, _ := newTestBreaker(1, time.Second)
		var changes []string
		b.OnStateChange(func(from, to State) { changes = append(changes, from.String()+"->"+to.String()) })
		b.Record(true)
		b.Reset()
		if len(changes) != 2 || changes[0] != "closed->open" || changes[1] != "open->closed" {
			t.Fatalf("回调记录不符合预期: %v", changes)
		}
	})
}
