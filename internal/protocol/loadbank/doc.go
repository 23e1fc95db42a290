// Package loadbank 负载箱控制板通信协议编解码
//
// 帧格式：len(1) + payload(len)，payload 为以换行结尾的文本命令，
// 其中 SW/PHASE 命令携带大端原始掩码字节：
//
//	ZCS ON\n | ZCS OFF\n | ZCS?\n
//	SW <mask(4)>\n | SW?\n
//	PHASE <mask1(4)><mask2(4)><mask3(4)>\n | PHASE?\n
//
// 应答：OK | ERR BAD REQUEST | ERR ZCS TMOUT | SW <mask(4)> | PHASE <mask(12)> | ZCS ON/OFF
//
// 本包只做纯编解码，不打日志、不做重试，所有错误以返回值交给调用方。
package loadbank
