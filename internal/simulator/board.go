package simulator

import (
	"bytes"
	"io"
	"sync"

	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
)

// 设备侧应答
var (
	replyOK         = []byte("OK\n")
	replyBadRequest = []byte("ERR " + loadbank.DeviceErrBadRequest + "\n")
	replyZCSTimeout = []byte("ERR " + loadbank.DeviceErrZCSTimeout + "\n")
)

const validMask = uint32(1)<<loadbank.NumSwitches - 1

// Board 控制板状态机，按设备侧协议应答每一帧
type Board struct {
	mu             sync.Mutex
	switches       uint32
	phases         loadbank.PhaseAssignment
	zcs            bool
	zeroCrossFault bool
}

// NewBoard 创建控制板；上电状态为全部断开、全部开关在第 1 相、ZCS 关闭
func NewBoard() *Board {
	return &Board{phases: loadbank.PhaseAssignment{validMask, 0, 0}}
}

// SetZeroCrossFault 模拟交流侧无过零点：ZCS 打开时开关命令返回 ERR ZCS TMOUT
func (b *Board) SetZeroCrossFault(on bool) {
	b.mu.Lock()
	b.zeroCrossFault = on
	b.mu.Unlock()
}

// Snapshot 当前状态
func (b *Board) Snapshot() (switches uint32, phases loadbank.PhaseAssignment, zcs bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.switches, b.phases, b.zcs
}

// Kind 应答类别，用于指标
func Kind(reply []byte) string {
	switch {
	case bytes.HasPrefix(reply, []byte("OK")):
		return "ack"
	case bytes.HasPrefix(reply, []byte("ERR")):
		return "error"
	default:
		return "report"
	}
}

// Handle 处理一条命令 payload 并返回应答 payload
func (b *Board) Handle(payload []byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch string(payload) {
	case "ZCS ON\n":
		b.zcs = true
		return replyOK
	case "ZCS OFF\n":
		b.zcs = false
		return replyOK
	case "ZCS?\n":
		if b.zcs {
			return []byte("ZCS ON\n")
		}
		return []byte("ZCS OFF\n")
	case "SW?\n":
		return b.switchReport()
	case "PHASE?\n":
		return b.phaseReport()
	}

	switch {
	case isSet(payload, "SW ", loadbank.MaskSize):
		if b.zcs && b.zeroCrossFault {
			return replyZCSTimeout
		}
		b.switches = maskAt(payload, len("SW ")) & validMask
		return replyOK

	case isSet(payload, "PHASE ", loadbank.NumPhases*loadbank.MaskSize):
		var p loadbank.PhaseAssignment
		for i := range p {
			p[i] = maskAt(payload, len("PHASE ")+i*loadbank.MaskSize) & validMask
		}
		if p.Validate(loadbank.NumSwitches) != nil {
			return replyBadRequest
		}
		b.phases = p
		return replyOK
	}
	return replyBadRequest
}

// Serve 在任意字节流上逐帧应答，直到读写出错
func (b *Board) Serve(rw io.ReadWriter) error {
	for {
		req, err := loadbank.ReadFrame(rw)
		if err != nil {
			return err
		}
		if err := loadbank.WriteFrame(rw, b.Handle(req)); err != nil {
			return err
		}
	}
}

func (b *Board) switchReport() []byte {
	m := loadbank.MaskToBytes(b.switches)
	out := append([]byte("SW "), m[:]...)
	return append(out, '\n')
}

func (b *Board) phaseReport() []byte {
	out := append([]byte("PHASE "), b.phases.Bytes()...)
	return append(out, '\n')
}

// isSet 判断是否为 "<prefix><n 字节>\n" 形式的设置命令
func isSet(payload []byte, prefix string, n int) bool {
	return len(payload) == len(prefix)+n+1 &&
		bytes.HasPrefix(payload, []byte(prefix)) &&
		payload[len(payload)-1] == '\n'
}

func maskAt(b []byte, off int) uint32 {
	var buf [loadbank.MaskSize]byte
	copy(buf[:], b[off:])
	return loadbank.BytesToMask(buf)
}
