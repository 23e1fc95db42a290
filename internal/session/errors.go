package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
)

var (
	// ErrTransport 读写字节流失败
	ErrTransport = errors.New("session: transport failure")
	// ErrDeviceRejected 设备返回 ERR（过零超时除外）
	ErrDeviceRejected = errors.New("session: device rejected command")
	// ErrZCSTimeout 设备在等待窗口内未检测到过零点，调用方可自行重试
	ErrZCSTimeout = errors.New("session: no zero-crossing detected")
	// ErrUnexpectedResponse 应答类型与命令不匹配
	ErrUnexpectedResponse = errors.New("session: unexpected response")
)

// Stage 传输失败发生的阶段
type Stage string

const (
	StageDial  Stage = "dial"
	StageWrite Stage = "write"
	StageRead  Stage = "read"
)

// TransportError 字节流读写错误，会话不做任何重试
type TransportError struct {
	Op    loadbank.Op
	Stage Stage
	Err   error
}

func (e *TransportError) Error() string {
	if e.Op == 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DeviceError 设备拒绝命令，Message 为 "ERR " 之后的原文
type DeviceError struct {
	Op      loadbank.Op
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: device replied ERR %s", e.Op, e.Message)
}

// ZCSTimeout 是否为过零检测超时
func (e *DeviceError) ZCSTimeout() bool {
	return strings.HasPrefix(e.Message, loadbank.DeviceErrZCSTimeout)
}

// BadRequest 设备认为请求非法
func (e *DeviceError) BadRequest() bool {
	return strings.HasPrefix(e.Message, loadbank.DeviceErrBadRequest)
}

// Retryable 只有过零超时值得调用方重试
func (e *DeviceError) Retryable() bool { return e.ZCSTimeout() }

func (e *DeviceError) Is(target error) bool {
	if e.ZCSTimeout() {
		return target == ErrZCSTimeout
	}
	return target == ErrDeviceRejected
}

// UnexpectedResponseError 应答可以解析但不是该命令期望的类型
type UnexpectedResponseError struct {
	Op       loadbank.Op
	Response loadbank.Response
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected %s response %q", e.Op, e.Response.Kind, e.Response.Payload)
}

func (e *UnexpectedResponseError) Is(target error) bool { return target == ErrUnexpectedResponse }
