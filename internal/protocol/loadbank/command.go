package loadbank

import (
	"fmt"
	"strings"
)

// Op 请求类型
type Op int

const (
	OpZCSSet Op = iota + 1
	OpZCSQuery
	OpSwitchSet
	OpSwitchQuery
	OpPhaseSet
	OpPhaseQuery
)

func (op Op) String() string {
	switch op {
	case OpZCSSet:
		return "ZCS"
	case OpZCSQuery:
		return "ZCS?"
	case OpSwitchSet:
		return "SW"
	case OpSwitchQuery:
		return "SW?"
	case OpPhaseSet:
		return "PHASE"
	case OpPhaseQuery:
		return "PHASE?"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// IsSet 是否为设置类命令（成功后需要回查）
func (op Op) IsSet() bool {
	return op == OpZCSSet || op == OpSwitchSet || op == OpPhaseSet
}

// Query 返回设置命令对应的查询命令；查询命令返回自身
func (op Op) Query() Op {
	switch op {
	case OpZCSSet:
		return OpZCSQuery
	case OpSwitchSet:
		return OpSwitchQuery
	case OpPhaseSet:
		return OpPhaseQuery
	default:
		return op
	}
}

// Request 一次用户请求：命令类型 + 参数（仅设置命令使用）
type Request struct {
	Op  Op
	Arg string
}

func (r Request) String() string {
	if r.Arg == "" {
		return r.Op.String()
	}
	return r.Op.String() + " " + r.Arg
}

// Build 按请求类型构造 payload
func (r Request) Build() ([]byte, error) {
	switch r.Op {
	case OpZCSSet:
		return BuildZCSSet(r.Arg)
	case OpSwitchSet:
		return BuildSwitchSet(r.Arg)
	case OpPhaseSet:
		return BuildPhaseSet(r.Arg)
	case OpZCSQuery:
		return []byte(cmdZCSQuery), nil
	case OpSwitchQuery:
		return []byte(cmdSwitchQuery), nil
	case OpPhaseQuery:
		return []byte(cmdPhaseQuery), nil
	default:
		return nil, invalidArg(r.Op, r.Arg, nil)
	}
}

// BuildZCSSet 构造过零抑制开关命令，参数必须严格为 ON 或 OFF
func BuildZCSSet(arg string) ([]byte, error) {
	switch arg {
	case "ON":
		return []byte(cmdZCSOn), nil
	case "OFF":
		return []byte(cmdZCSOff), nil
	default:
		return nil, invalidArg(OpZCSSet, arg, nil)
	}
}

// BuildSwitchSet 构造开关设置命令，values 必须是恰好 18 位的 0/1 字符串
func BuildSwitchSet(values string) ([]byte, error) {
	if len(values) != NumSwitches {
		return nil, invalidArg(OpSwitchSet, values, fmt.Errorf("want %d characters, got %d", NumSwitches, len(values)))
	}
	if i := strings.IndexAny(values, "\r\n"); i >= 0 {
		return nil, invalidArg(OpSwitchSet, values, &ParseError{Kind: InvalidCharacter, Pos: i, Char: rune(values[i])})
	}
	mask, err := BinStringToMask(values, NumSwitches)
	if err != nil {
		return nil, invalidArg(OpSwitchSet, values, err)
	}
	return BuildSwitchSetMask(mask), nil
}

// BuildSwitchSetMask 由已解析的掩码构造开关设置命令
func BuildSwitchSetMask(mask uint32) []byte {
	b := MaskToBytes(mask)
	payload := make([]byte, 0, len(prefixSwitch)+MaskSize+1)
	payload = append(payload, prefixSwitch...)
	payload = append(payload, b[:]...)
	return append(payload, '\n')
}

// BuildPhaseSet 构造相位设置命令，values 必须是恰好 18 位的 1/2/3 字符串
func BuildPhaseSet(values string) ([]byte, error) {
	if len(values) != NumSwitches {
		return nil, invalidArg(OpPhaseSet, values, fmt.Errorf("want %d characters, got %d", NumSwitches, len(values)))
	}
	masks, err := PhaseStringToMasks(values, NumSwitches)
	if err != nil {
		return nil, invalidArg(OpPhaseSet, values, err)
	}
	return BuildPhaseSetMasks(masks), nil
}

// BuildPhaseSetMasks 由三相掩码构造相位设置命令
func BuildPhaseSetMasks(masks PhaseAssignment) []byte {
	payload := make([]byte, 0, len(prefixPhase)+NumPhases*MaskSize+1)
	payload = append(payload, prefixPhase...)
	payload = append(payload, masks.Bytes()...)
	return append(payload, '\n')
}

// ParseRequest 解析原始命令行形式：ZCS? | ZCS ON|OFF | SW? | SW <bits> | PHASE? | PHASE <phases>
// 设置命令的参数在此不做校验，交由 Build 处理
func ParseRequest(args []string) (Request, error) {
	if len(args) == 0 || len(args) > 2 {
		return Request{}, fmt.Errorf("%w: want 1 or 2 arguments, got %d", ErrInvalidArgument, len(args))
	}
	verb := args[0]
	arg := ""
	if len(args) == 2 {
		arg = args[1]
	}

	var op Op
	switch verb {
	case "ZCS?":
		op = OpZCSQuery
	case "ZCS":
		op = OpZCSSet
	case "SW?":
		op = OpSwitchQuery
	case "SW":
		op = OpSwitchSet
	case "PHASE?":
		op = OpPhaseQuery
	case "PHASE":
		op = OpPhaseSet
	default:
		return Request{}, fmt.Errorf("%w: invalid request %s", ErrInvalidArgument, strings.Join(args, " "))
	}

	if op.IsSet() && len(args) != 2 {
		return Request{}, fmt.Errorf("%w: %s requires an argument", ErrInvalidArgument, verb)
	}
	if !op.IsSet() && len(args) != 1 {
		return Request{}, fmt.Errorf("%w: %s takes no argument", ErrInvalidArgument, verb)
	}
	return Request{Op: op, Arg: arg}, nil
}
