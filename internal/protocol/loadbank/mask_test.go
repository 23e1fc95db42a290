package loadbank

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskBytesRoundTrip(t *testing.T) {
	for mask := uint32(0); mask < 1<<NumSwitches; mask++ {
		if got := BytesToMask(MaskToBytes(mask)); got != mask {
			t.Fatalf("round trip mismatch: mask=%#x got=%#x", mask, got)
		}
	}
}

func TestMaskToBytes_BigEndian(t *testing.T) {
	assert.Equal(t, [4]byte{0x12, 0x34, 0x56, 0x78}, MaskToBytes(0x12345678))
	assert.Equal(t, [4]byte{0x00, 0x03, 0xFF, 0xFF}, MaskToBytes(1<<NumSwitches-1))
}

func TestBytesToMask_HighBytesUnsigned(t *testing.T) {
	// 0x80 以上的字节不能发生符号扩展
	assert.Equal(t, uint32(0xFFFFFFFF), BytesToMask([4]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	assert.Equal(t, uint32(0x000000FF), BytesToMask([4]byte{0x00, 0x00, 0x00, 0xFF}))
	assert.Equal(t, uint32(0x00800080), BytesToMask([4]byte{0x00, 0x80, 0x00, 0x80}))
}

func TestBinStringToMask(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want uint32
	}{
		{"全部断开", "000000000000000000", 0},
		{"全部闭合", "111111111111111111", 1<<NumSwitches - 1},
		{"首位为最低位", "100000000000000000", 1},
		{"末位为第17位", "000000000000000001", 1 << 17},
		{"交替", "101010101010101010", 0b010101010101010101},
		{"空输入", "", 0},
		{"换行提前结束", "11\n111111111111111", 0b11},
		{"回车提前结束", "1\r1", 0b1},
		{"超出宽度的字符被忽略", "000000000000000000x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinStringToMask(tt.in, NumSwitches)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinStringToMask_InvalidCharacter(t *testing.T) {
	base := []byte("101010101010101010")
	for k := 0; k < NumSwitches; k++ {
		in := append([]byte(nil), base...)
		in[k] = '2'
		_, err := BinStringToMask(string(in), NumSwitches)

		var pe *ParseError
		require.True(t, errors.As(err, &pe), "pos %d: want *ParseError, got %v", k, err)
		assert.Equal(t, InvalidCharacter, pe.Kind)
		assert.Equal(t, k, pe.Pos)
		assert.Equal(t, '2', pe.Char)
	}
}

func TestBinStringRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		b := make([]byte, NumSwitches)
		for j := range b {
			b[j] = '0' + byte(r.Intn(2))
		}
		s := string(b)
		mask, err := BinStringToMask(s, NumSwitches)
		require.NoError(t, err)
		require.Equal(t, s, MaskToBinString(mask, NumSwitches))
	}
}

func TestMaskToBinString_IgnoresHighBits(t *testing.T) {
	assert.Equal(t, "100000000000000000", MaskToBinString(1|1<<20|1<<31, NumSwitches))
}

func TestPhaseStringToMasks(t *testing.T) {
	masks, err := PhaseStringToMasks("123123123123123123", NumSwitches)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b001001001001001001), masks[0])
	assert.Equal(t, uint32(0b010010010010010010), masks[1])
	assert.Equal(t, uint32(0b100100100100100100), masks[2])
	assert.NoError(t, masks.Validate(NumSwitches))
}

func TestPhaseStringToMasks_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind ParseErrorKind
		pos  int
	}{
		{"非法字符", "111114111111111111", InvalidCharacter, 5},
		{"零不是相位", "011111111111111111", InvalidCharacter, 0},
		{"换行不提前结束", "11111111\n111111111", InvalidCharacter, 8},
		{"长度不足", "1111", Truncated, 4},
		{"空输入", "", Truncated, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PhaseStringToMasks(tt.in, NumSwitches)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.pos, pe.Pos)
		})
	}
}

func TestPhaseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		var masks PhaseAssignment
		for pos := 0; pos < NumSwitches; pos++ {
			masks[r.Intn(NumPhases)] |= 1 << uint(pos)
		}
		s, err := MasksToPhaseString(masks, NumSwitches)
		require.NoError(t, err)
		back, err := PhaseStringToMasks(s, NumSwitches)
		require.NoError(t, err)
		require.Equal(t, masks, back)
	}
}

func TestMasksToPhaseString_Unassigned(t *testing.T) {
	var masks PhaseAssignment
	for pos := 0; pos < NumSwitches; pos++ {
		if pos == 5 {
			continue
		}
		masks[pos%NumPhases] |= 1 << uint(pos)
	}

	s, err := MasksToPhaseString(masks, NumSwitches)
	assert.Empty(t, s)

	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, UnassignedPosition, ce.Kind)
	assert.Equal(t, 5, ce.Pos)
	assert.ErrorIs(t, err, ErrUnassignedPosition)
}

func TestMasksToPhaseString_OverlapLowestPhaseWins(t *testing.T) {
	all := uint32(1<<NumSwitches - 1)
	s, err := MasksToPhaseString(PhaseAssignment{0, all, all}, NumSwitches)
	require.NoError(t, err)
	assert.Equal(t, "222222222222222222", s)
}

func TestPhaseAssignment_Validate(t *testing.T) {
	masks := PhaseAssignment{1 << 3, 1 << 3, 0}
	err := masks.Validate(NumSwitches)
	assert.ErrorIs(t, err, ErrPhaseOverlap)

	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Pos)

	// 未分配的开关是合法的
	assert.NoError(t, PhaseAssignment{1, 2, 4}.Validate(NumSwitches))
}

func TestPhaseAssignment_Bytes(t *testing.T) {
	b := PhaseAssignment{0x01020304, 0x05060708, 0x090A0B0C}.Bytes()
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, b)
}

func TestPhaseAssignment_BinStrings(t *testing.T) {
	got := PhaseAssignment{1, 2, 0}.BinStrings(NumSwitches)
	assert.Equal(t, []string{
		"100000000000000000",
		"010000000000000000",
		"000000000000000000",
	}, got)
}
