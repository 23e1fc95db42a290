package loadbank

// 板卡规格与协议常量
const (
	NumSwitches   = 18  // 负载开关数量
	NumPhases     = 3   // 三相
	MaskSize      = 4   // 单个掩码在报文中的字节数（大端）
	MaxPayloadLen = 255 // 长度前缀为单字节
)

// 报文偏移：SW 与 PHASE 报告中掩码字节的起始位置
const (
	switchMaskOffset = len("SW ")
	phaseMaskOffset  = len("PHASE ")
)

// 固定命令文本（换行符属于报文内容，计入长度字节）
const (
	cmdZCSOn       = "ZCS ON\n"
	cmdZCSOff      = "ZCS OFF\n"
	cmdZCSQuery    = "ZCS?\n"
	cmdSwitchQuery = "SW?\n"
	cmdPhaseQuery  = "PHASE?\n"

	prefixSwitch = "SW "
	prefixPhase  = "PHASE "
)

// 应答前缀
const (
	respSwitch = "SW"
	respPhase  = "PHASE"
	respZCSOn  = "ZCS ON"
	respZCSOff = "ZCS OFF"
	respOK     = "OK"
	respErr    = "ERR"
)

// 设备已知错误文本
const (
	DeviceErrBadRequest = "BAD REQUEST"
	DeviceErrZCSTimeout = "ZCS TMOUT"
)
