package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/taoyao-code/loadbank/internal/device"
	"github.com/taoyao-code/loadbank/internal/devicelock"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/session"
)

// Result 面向调用方的结果，JSON 形状与原有接口保持一致：
//
//	{"status": "OK", "switches": "101010101010101010"}
//	{"status": "OK", "phases": "111111222222333333", "phase_masks": [...]}
//	{"status": "OK", "zcs": "1"}
//	{"status": "Bad Request", "msg": "..."}
type Result struct {
	Status     string   `json:"status"`
	Msg        string   `json:"msg,omitempty"`
	Switches   string   `json:"switches,omitempty"`
	Phases     string   `json:"phases,omitempty"`
	PhaseMasks []string `json:"phase_masks,omitempty"`
	ZCS        string   `json:"zcs,omitempty"`
	Response   string   `json:"response,omitempty"`
	Code       int      `json:"-"`
}

// ZCSTimeoutMsg 过零检测超时提示（设备内部等待 10 秒）
const ZCSTimeoutMsg = "No Zero-Crossing detected for 10 seconds"

// FromResponse 将设备应答转换为结果
func FromResponse(resp loadbank.Response) Result {
	r := Result{Status: http.StatusText(http.StatusOK), Code: http.StatusOK}
	switch resp.Kind {
	case loadbank.KindSwitchReport:
		r.Switches = resp.SwitchString()
	case loadbank.KindPhaseReport:
		r.PhaseMasks = resp.Phases.BinStrings(loadbank.NumSwitches)
		if s, err := resp.PhaseString(); err == nil {
			r.Phases = s
		} else {
			r.Msg = err.Error()
		}
	case loadbank.KindZCSReport:
		r.ZCS = "0"
		if resp.ZCS {
			r.ZCS = "1"
		}
	case loadbank.KindAck:
		r.Response = "OK"
	default:
		r.Response = resp.String()
	}
	return r
}

// FromError 将错误转换为结果，req 用于生成与原接口一致的提示
func FromError(req loadbank.Request, err error) Result {
	code := StatusFor(err)
	r := Result{Status: http.StatusText(code), Code: code}
	switch code {
	case http.StatusBadRequest:
		r.Msg = badRequestMsg(req, err)
	case http.StatusRequestTimeout:
		r.Msg = ZCSTimeoutMsg
	default:
		r.Msg = err.Error()
	}
	return r
}

// StatusFor 错误对应的 HTTP 状态码
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, loadbank.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrZCSTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, session.ErrDeviceRejected):
		return http.StatusBadRequest
	case errors.Is(err, device.ErrCircuitOpen), errors.Is(err, devicelock.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func badRequestMsg(req loadbank.Request, err error) string {
	if errors.Is(err, session.ErrDeviceRejected) {
		var de *session.DeviceError
		if errors.As(err, &de) && (de.Op != req.Op || req.Arg == "") {
			return fmt.Sprintf("Device rejected %s: ERR %s", de.Op, de.Message)
		}
	}
	switch req.Op {
	case loadbank.OpSwitchSet:
		return "Argument had incorrect length, or characters other than '0' or '1'"
	case loadbank.OpPhaseSet:
		return fmt.Sprintf("Argument %q had incorrect length, or characters other than '1', '2', and '3'", req.Arg)
	case loadbank.OpZCSSet:
		return fmt.Sprintf(`Argument %q is not "ON" or "OFF"`, req.Arg)
	default:
		return err.Error()
	}
}

// JSON 输出单行 JSON
func JSON(w io.Writer, r Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// Text 输出人类可读格式
func Text(w io.Writer, r Result) error {
	var b strings.Builder
	switch {
	case r.Code != http.StatusOK:
		fmt.Fprintf(&b, "%s: %s\n", r.Status, r.Msg)
	case r.Switches != "":
		fmt.Fprintf(&b, "Current Switch State:\n\t%s\n", r.Switches)
	case r.PhaseMasks != nil:
		b.WriteString("Current Phase Definitions:\n")
		for i, m := range r.PhaseMasks {
			fmt.Fprintf(&b, "\tPhase %d: %s\n", i+1, m)
		}
		if r.Phases != "" {
			fmt.Fprintf(&b, "\tPhases:  %s\n", r.Phases)
		}
	case r.ZCS != "":
		state := "OFF"
		if r.ZCS == "1" {
			state = "ON"
		}
		fmt.Fprintf(&b, "Zero-Cross Suppression: %s\n", state)
	default:
		fmt.Fprintf(&b, "Response received: %s\n", r.Response)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Writer 按格式输出
func Writer(format string) (func(io.Writer, Result) error, error) {
	switch format {
	case "json", "":
		return JSON, nil
	case "text":
		return Text, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want json or text)", format)
	}
}
