package loadbank

import (
	"encoding/binary"
	"strings"
)

// PhaseAssignment 三相定义：下标 0/1/2 对应第 1/2/3 相的开关掩码
type PhaseAssignment [NumPhases]uint32

// MaskToBytes 32 位掩码转大端 4 字节
func MaskToBytes(mask uint32) [MaskSize]byte {
	var buf [MaskSize]byte
	binary.BigEndian.PutUint32(buf[:], mask)
	return buf
}

// BytesToMask 大端 4 字节还原为掩码，每个字节都按无符号处理
func BytesToMask(buf [MaskSize]byte) uint32 {
	return binary.BigEndian.Uint32(buf[:])
}

// BinStringToMask 将 0/1 字符串（开关状态）转换为掩码
// 最多扫描 width 个字符；遇到换行/回车视为输入结束（交互输入带尾随换行）
func BinStringToMask(s string, width int) (uint32, error) {
	var mask uint32
	for i, ch := range []byte(s) {
		if i >= width {
			break
		}
		switch ch {
		case '\n', '\r':
			return mask, nil
		case '1':
			mask |= 1 << uint(i)
		case '0':
			mask &^= 1 << uint(i)
		default:
			return 0, &ParseError{Kind: InvalidCharacter, Pos: i, Char: rune(ch)}
		}
	}
	return mask, nil
}

// MaskToBinString 掩码转 0/1 字符串，固定输出 width 个字符
func MaskToBinString(mask uint32, width int) string {
	var b strings.Builder
	b.Grow(width)
	for i := 0; i < width; i++ {
		if mask&(1<<uint(i)) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// PhaseStringToMasks 将 1/2/3 相位字符串转换为三相掩码
// 与开关字符串不同，这里必须完整给出 width 个字符，不做提前结束
func PhaseStringToMasks(s string, width int) (PhaseAssignment, error) {
	var masks PhaseAssignment
	for i := 0; i < width; i++ {
		if i >= len(s) {
			return PhaseAssignment{}, &ParseError{Kind: Truncated, Pos: i}
		}
		switch ch := s[i]; ch {
		case '1', '2', '3':
			masks[ch-'1'] |= 1 << uint(i)
		default:
			return PhaseAssignment{}, &ParseError{Kind: InvalidCharacter, Pos: i, Char: rune(ch)}
		}
	}
	return masks, nil
}

// MasksToPhaseString 三相掩码转相位字符串
// 未分配到任何相的位置返回 UnassignedPosition；重叠时序号小的相优先
func MasksToPhaseString(masks PhaseAssignment, width int) (string, error) {
	var b strings.Builder
	b.Grow(width)
	for i := 0; i < width; i++ {
		bit := uint32(1) << uint(i)
		switch {
		case masks[0]&bit != 0:
			b.WriteByte('1')
		case masks[1]&bit != 0:
			b.WriteByte('2')
		case masks[2]&bit != 0:
			b.WriteByte('3')
		default:
			return "", &CodecError{Kind: UnassignedPosition, Pos: i}
		}
	}
	return b.String(), nil
}

// Validate 检查前 width 个开关最多只属于一相
func (p PhaseAssignment) Validate(width int) error {
	for i := 0; i < width; i++ {
		bit := uint32(1) << uint(i)
		n := 0
		for _, m := range p {
			if m&bit != 0 {
				n++
			}
		}
		if n > 1 {
			return &CodecError{Kind: PhaseOverlap, Pos: i}
		}
	}
	return nil
}

// Bytes 三相掩码依次编码为 12 字节
func (p PhaseAssignment) Bytes() []byte {
	out := make([]byte, 0, NumPhases*MaskSize)
	for _, m := range p {
		b := MaskToBytes(m)
		out = append(out, b[:]...)
	}
	return out
}

// BinStrings 每相各自的 0/1 字符串，可表示未分配的开关
func (p PhaseAssignment) BinStrings(width int) []string {
	out := make([]string, NumPhases)
	for i, m := range p {
		out[i] = MaskToBinString(m, width)
	}
	return out
}

func maskAt(b []byte, off int) uint32 {
	var buf [MaskSize]byte
	copy(buf[:], b[off:off+MaskSize])
	return BytesToMask(buf)
}
