package loadbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuild(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []byte
	}{
		{"ZCS 开", Request{Op: OpZCSSet, Arg: "ON"}, []byte("ZCS ON\n")},
		{"ZCS 关", Request{Op: OpZCSSet, Arg: "OFF"}, []byte("ZCS OFF\n")},
		{"ZCS 查询", Request{Op: OpZCSQuery}, []byte("ZCS?\n")},
		{"开关查询", Request{Op: OpSwitchQuery}, []byte("SW?\n")},
		{"相位查询", Request{Op: OpPhaseQuery}, []byte("PHASE?\n")},
		{
			"开关设置",
			Request{Op: OpSwitchSet, Arg: "101010101010101010"},
			[]byte{'S', 'W', ' ', 0x00, 0x01, 0x55, 0x55, '\n'},
		},
		{
			"相位设置",
			Request{Op: OpPhaseSet, Arg: "111111222222333333"},
			[]byte{
				'P', 'H', 'A', 'S', 'E', ' ',
				0x00, 0x00, 0x00, 0x3F,
				0x00, 0x00, 0x0F, 0xC0,
				0x00, 0x03, 0xF0, 0x00,
				'\n',
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestBuild_InvalidArgument(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"ZCS 小写", Request{Op: OpZCSSet, Arg: "on"}},
		{"ZCS 前缀不再接受", Request{Op: OpZCSSet, Arg: "ONX"}},
		{"ZCS 空参数", Request{Op: OpZCSSet}},
		{"开关长度不足", Request{Op: OpSwitchSet, Arg: "1010"}},
		{"开关长度超出", Request{Op: OpSwitchSet, Arg: "1010101010101010101"}},
		{"开关非法字符", Request{Op: OpSwitchSet, Arg: "10101010101010101x"}},
		{"开关内嵌换行", Request{Op: OpSwitchSet, Arg: "10101010\n010101010"}},
		{"相位长度不足", Request{Op: OpPhaseSet, Arg: "123"}},
		{"相位非法字符", Request{Op: OpPhaseSet, Arg: "123123123123123120"}},
		{"未知命令", Request{Op: Op(99)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Build()
			assert.Nil(t, got)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)

			var be *BuildError
			assert.ErrorAs(t, err, &be)
		})
	}
}

func TestBuildSwitchSet_ParseErrorPosition(t *testing.T) {
	_, err := BuildSwitchSet("000000000000x00000")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 12, pe.Pos)
	assert.Equal(t, 'x', pe.Char)
}

func TestBuildSetMasks(t *testing.T) {
	assert.Equal(t, []byte{'S', 'W', ' ', 0, 0, 0, 0x07, '\n'}, BuildSwitchSetMask(0x07))

	p := BuildPhaseSetMasks(PhaseAssignment{1, 2, 4})
	assert.Len(t, p, len("PHASE ")+12+1)
	assert.Equal(t, byte('\n'), p[len(p)-1])
	assert.Equal(t, byte(4), p[len(p)-2])
}

func TestOp(t *testing.T) {
	assert.Equal(t, OpSwitchQuery, OpSwitchSet.Query())
	assert.Equal(t, OpPhaseQuery, OpPhaseSet.Query())
	assert.Equal(t, OpZCSQuery, OpZCSSet.Query())
	assert.Equal(t, OpSwitchQuery, OpSwitchQuery.Query())
	assert.True(t, OpPhaseSet.IsSet())
	assert.False(t, OpPhaseQuery.IsSet())
	assert.Equal(t, "PHASE?", OpPhaseQuery.String())
	assert.Equal(t, "SW 111", Request{Op: OpSwitchSet, Arg: "111"}.String())
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Request
	}{
		{"ZCS 查询", []string{"ZCS?"}, Request{Op: OpZCSQuery}},
		{"ZCS 设置", []string{"ZCS", "OFF"}, Request{Op: OpZCSSet, Arg: "OFF"}},
		{"开关查询", []string{"SW?"}, Request{Op: OpSwitchQuery}},
		{"开关设置", []string{"SW", "111111111111111111"}, Request{Op: OpSwitchSet, Arg: "111111111111111111"}},
		{"相位查询", []string{"PHASE?"}, Request{Op: OpPhaseQuery}},
		{"相位设置", []string{"PHASE", "123"}, Request{Op: OpPhaseSet, Arg: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"HELLO"},
		{"SW"},
		{"SW?", "1"},
		{"ZCS", "ON", "extra"},
		{"sw?"},
	} {
		_, err := ParseRequest(args)
		assert.ErrorIs(t, err, ErrInvalidArgument, "args=%q", args)
	}
}
