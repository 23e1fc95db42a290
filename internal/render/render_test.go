package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/loadbank/internal/device"
	"github.com/taoyao-code/loadbank/internal/devicelock"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/session"
)

func classify(t *testing.T, payload []byte) loadbank.Response {
	t.Helper()
	resp, err := loadbank.Classify(payload)
	require.NoError(t, err)
	return resp
}

func TestJSON_Reports(t *testing.T) {
	phases := loadbank.PhaseAssignment{0x3F, 0xFC0, 0x3F000}
	tests := []struct {
		name string
		resp loadbank.Response
		want string
	}{
		{
			"开关",
			classify(t, []byte{'S', 'W', ' ', 0x00, 0x01, 0x55, 0x55}),
			`{"status":"OK","switches":"101010101010101010"}`,
		},
		{
			"相位",
			classify(t, append([]byte("PHASE "), phases.Bytes()...)),
			`{"status":"OK","phases":"111111222222333333","phase_masks":["111111000000000000","000000111111000000","000000000000111111"]}`,
		},
		{"ZCS 开", classify(t, []byte("ZCS ON")), `{"status":"OK","zcs":"1"}`},
		{"ZCS 关", classify(t, []byte("ZCS OFF")), `{"status":"OK","zcs":"0"}`},
		{"确认", classify(t, []byte("OK")), `{"status":"OK","response":"OK"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, JSON(&buf, FromResponse(tt.resp)))
			assert.JSONEq(t, tt.want, buf.String())
		})
	}
}

func TestFromResponse_UnassignedPhase(t *testing.T) {
	r := FromResponse(classify(t, append([]byte("PHASE "), loadbank.PhaseAssignment{1, 2, 0}.Bytes()...)))
	assert.Empty(t, r.Phases)
	assert.Len(t, r.PhaseMasks, 3)
	assert.Contains(t, r.Msg, "switch 2")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"成功", nil, http.StatusOK},
		{"参数错误", &loadbank.BuildError{Op: loadbank.OpSwitchSet}, http.StatusBadRequest},
		{"请求解析错误", fmt.Errorf("%w: bad", loadbank.ErrInvalidArgument), http.StatusBadRequest},
		{"设备拒绝", &session.DeviceError{Message: "BAD REQUEST"}, http.StatusBadRequest},
		{"过零超时", &session.DeviceError{Message: "ZCS TMOUT"}, http.StatusRequestTimeout},
		{"熔断", device.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"锁超时", fmt.Errorf("%w: ctx", devicelock.ErrLockTimeout), http.StatusServiceUnavailable},
		{"截止时间", fmt.Errorf("%w: %w", context.DeadlineExceeded, &session.TransportError{Err: io.ErrClosedPipe}), http.StatusGatewayTimeout},
		{"传输错误", &session.TransportError{Err: io.EOF}, http.StatusInternalServerError},
		{"其他", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, StatusFor(tt.err))
		})
	}
}

func TestFromError_Messages(t *testing.T) {
	sw := loadbank.Request{Op: loadbank.OpSwitchSet, Arg: "12"}
	_, err := sw.Build()
	r := FromError(sw, err)
	assert.Equal(t, "Bad Request", r.Status)
	assert.Equal(t, "Argument had incorrect length, or characters other than '0' or '1'", r.Msg)

	ph := loadbank.Request{Op: loadbank.OpPhaseSet, Arg: "9"}
	_, err = ph.Build()
	assert.Equal(t, `Argument "9" had incorrect length, or characters other than '1', '2', and '3'`, FromError(ph, err).Msg)

	zcs := loadbank.Request{Op: loadbank.OpZCSSet, Arg: "MAYBE"}
	_, err = zcs.Build()
	assert.Equal(t, `Argument "MAYBE" is not "ON" or "OFF"`, FromError(zcs, err).Msg)

	r = FromError(sw, &session.DeviceError{Op: loadbank.OpSwitchSet, Message: "ZCS TMOUT"})
	assert.Equal(t, "Request Timeout", r.Status)
	assert.Equal(t, ZCSTimeoutMsg, r.Msg)
	assert.Equal(t, http.StatusRequestTimeout, r.Code)

	// 回查阶段被拒绝
	r = FromError(sw, &session.DeviceError{Op: loadbank.OpSwitchQuery, Message: "BAD REQUEST"})
	assert.Equal(t, "Device rejected SW?: ERR BAD REQUEST", r.Msg)

	// 掩码形式的设置请求没有原始参数
	r = FromError(loadbank.Request{Op: loadbank.OpPhaseSet}, &session.DeviceError{Op: loadbank.OpPhaseSet, Message: "BAD REQUEST"})
	assert.Equal(t, "Device rejected PHASE: ERR BAD REQUEST", r.Msg)

	r = FromError(sw, device.ErrCircuitOpen)
	assert.Equal(t, "Service Unavailable", r.Status)
	assert.Equal(t, device.ErrCircuitOpen.Error(), r.Msg)
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, FromResponse(classify(t, []byte{'S', 'W', ' ', 0, 0, 0, 1}))))
	assert.Equal(t, "Current Switch State:\n\t100000000000000000\n", buf.String())

	buf.Reset()
	require.NoError(t, Text(&buf, FromResponse(classify(t, append([]byte("PHASE "), loadbank.PhaseAssignment{1, 0, 0}.Bytes()...)))))
	assert.Equal(t, "Current Phase Definitions:\n"+
		"\tPhase 1: 100000000000000000\n"+
		"\tPhase 2: 000000000000000000\n"+
		"\tPhase 3: 000000000000000000\n", buf.String())

	buf.Reset()
	require.NoError(t, Text(&buf, FromResponse(classify(t, []byte("ZCS ON")))))
	assert.Equal(t, "Zero-Cross Suppression: ON\n", buf.String())

	buf.Reset()
	require.NoError(t, Text(&buf, FromError(loadbank.Request{}, errors.New("dial tcp: refused"))))
	assert.Equal(t, "Internal Server Error: dial tcp: refused\n", buf.String())
}

func TestWriter(t *testing.T) {
	_, err := Writer("json")
	assert.NoError(t, err)
	_, err = Writer("text")
	assert.NoError(t, err)
	_, err = Writer("xml")
	assert.Error(t, err)
}
