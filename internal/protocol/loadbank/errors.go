package loadbank

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument 请求参数非法，命令不会被发送
	ErrInvalidArgument = errors.New("loadbank: invalid argument")
	// ErrPayloadTooLong 报文超过单字节长度前缀可表示的范围
	ErrPayloadTooLong = errors.New("loadbank: payload too long")
	// ErrUnassignedPosition 某个开关未分配到任何一相，无法用相位字符串表示
	ErrUnassignedPosition = errors.New("loadbank: unassigned position")
	// ErrMalformedReport 设备上报的 SW/PHASE 报文长度不足
	ErrMalformedReport = errors.New("loadbank: malformed report")
	// ErrPhaseOverlap 同一开关同时出现在多相掩码中
	ErrPhaseOverlap = errors.New("loadbank: switch assigned to more than one phase")
)

// ParseErrorKind 字符串解析错误类别
type ParseErrorKind int

const (
	InvalidCharacter ParseErrorKind = iota // 出现字母表之外的字符
	Truncated                              // 相位字符串不足 width 个字符
)

// ParseError 用户输入的 0/1 或 1/2/3 字符串格式错误（仅本地错误，不会发往设备）
type ParseError struct {
	Kind ParseErrorKind
	Pos  int
	Char rune
}

func (e *ParseError) Error() string {
	if e.Kind == Truncated {
		return fmt.Sprintf("unexpected end of input at position %d", e.Pos)
	}
	return fmt.Sprintf("invalid character %q at position %d", e.Char, e.Pos)
}

// CodecErrorKind 编解码不变量被破坏的类别
type CodecErrorKind int

const (
	PayloadTooLong CodecErrorKind = iota
	UnassignedPosition
	MalformedReport
	PhaseOverlap
)

// CodecError 编解码错误，给定合法输入时不应出现，但必须显式检查
type CodecError struct {
	Kind CodecErrorKind
	Pos  int // UnassignedPosition / PhaseOverlap: 开关序号
	Len  int // PayloadTooLong / MalformedReport: 实际长度
}

func (e *CodecError) Error() string {
	switch e.Kind {
	case PayloadTooLong:
		return fmt.Sprintf("payload too long: %d bytes (max %d)", e.Len, MaxPayloadLen)
	case UnassignedPosition:
		return fmt.Sprintf("switch %d is not assigned to any phase", e.Pos)
	case MalformedReport:
		return fmt.Sprintf("malformed report: %d bytes", e.Len)
	case PhaseOverlap:
		return fmt.Sprintf("switch %d is assigned to more than one phase", e.Pos)
	default:
		return fmt.Sprintf("codec error kind %d", e.Kind)
	}
}

// Is 支持 errors.Is(err, ErrPayloadTooLong) 等哨兵判断
func (e *CodecError) Is(target error) bool {
	switch e.Kind {
	case PayloadTooLong:
		return target == ErrPayloadTooLong
	case UnassignedPosition:
		return target == ErrUnassignedPosition
	case MalformedReport:
		return target == ErrMalformedReport
	case PhaseOverlap:
		return target == ErrPhaseOverlap
	}
	return false
}

// BuildError 构造命令失败（发生在任何 I/O 之前）
type BuildError struct {
	Op  Op
	Arg string
	Err error // 底层原因，可能是 *ParseError
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build %s %q: %v", e.Op, e.Arg, e.Err)
	}
	return fmt.Sprintf("build %s %q: invalid argument", e.Op, e.Arg)
}

func (e *BuildError) Unwrap() error { return e.Err }

func (e *BuildError) Is(target error) bool { return target == ErrInvalidArgument }

func invalidArg(op Op, arg string, cause error) error {
	return &BuildError{Op: op, Arg: arg, Err: cause}
}
