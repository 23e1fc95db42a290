package loadbank

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind 应答类型
type Kind int

const (
	KindRawText      Kind = iota // 无法识别的应答，原样保留
	KindAck                      // OK
	KindError                    // ERR <msg>
	KindSwitchReport             // SW <4 字节掩码>
	KindPhaseReport              // PHASE <12 字节掩码>
	KindZCSReport                // ZCS ON / ZCS OFF
)

func (k Kind) String() string {
	switch k {
	case KindRawText:
		return "raw"
	case KindAck:
		return "ack"
	case KindError:
		return "error"
	case KindSwitchReport:
		return "switch_report"
	case KindPhaseReport:
		return "phase_report"
	case KindZCSReport:
		return "zcs_report"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Response 解析后的设备应答
type Response struct {
	Kind     Kind
	Switches uint32          // KindSwitchReport
	Phases   PhaseAssignment // KindPhaseReport
	ZCS      bool            // KindZCSReport
	Message  string          // KindError: 去掉 "ERR " 的错误文本；KindRawText: 原文
	Payload  []byte          // 原始 payload
}

// IsZCSTimeout 设备在内部等待窗口内未检测到交流过零点
func (r Response) IsZCSTimeout() bool {
	return r.Kind == KindError && strings.HasPrefix(r.Message, DeviceErrZCSTimeout)
}

// SwitchString 开关状态的 0/1 字符串
func (r Response) SwitchString() string {
	return MaskToBinString(r.Switches, NumSwitches)
}

// PhaseString 相位字符串；存在未分配开关时返回错误
func (r Response) PhaseString() (string, error) {
	return MasksToPhaseString(r.Phases, NumSwitches)
}

func (r Response) String() string {
	switch r.Kind {
	case KindAck:
		return "OK"
	case KindError:
		return "ERR " + r.Message
	case KindSwitchReport:
		return "SW " + r.SwitchString()
	case KindPhaseReport:
		if s, err := r.PhaseString(); err == nil {
			return "PHASE " + s
		}
		return "PHASE " + strings.Join(r.Phases.BinStrings(NumSwitches), "/")
	case KindZCSReport:
		if r.ZCS {
			return "ZCS ON"
		}
		return "ZCS OFF"
	default:
		return r.Message
	}
}

// Classify 按固定前缀识别应答：SW → PHASE → ZCS → OK → ERR → 原文兜底
func Classify(payload []byte) (Response, error) {
	resp := Response{Payload: payload}
	switch {
	case bytes.HasPrefix(payload, []byte(respSwitch)):
		if len(payload) < switchMaskOffset+MaskSize {
			return resp, &CodecError{Kind: MalformedReport, Len: len(payload)}
		}
		resp.Kind = KindSwitchReport
		resp.Switches = maskAt(payload, switchMaskOffset)

	case bytes.HasPrefix(payload, []byte(respPhase)):
		if len(payload) < phaseMaskOffset+NumPhases*MaskSize {
			return resp, &CodecError{Kind: MalformedReport, Len: len(payload)}
		}
		resp.Kind = KindPhaseReport
		for i := range resp.Phases {
			resp.Phases[i] = maskAt(payload, phaseMaskOffset+i*MaskSize)
		}

	case bytes.HasPrefix(payload, []byte(respZCSOn)):
		resp.Kind = KindZCSReport
		resp.ZCS = true

	case bytes.HasPrefix(payload, []byte(respZCSOff)):
		resp.Kind = KindZCSReport

	case bytes.HasPrefix(payload, []byte(respOK)):
		resp.Kind = KindAck

	case bytes.HasPrefix(payload, []byte(respErr)):
		resp.Kind = KindError
		resp.Message = trimText(payload[len(respErr):])

	default:
		resp.Kind = KindRawText
		resp.Message = string(payload)
	}
	return resp, nil
}

func trimText(b []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}
