package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeStringNamesEveryDefinedOpcode(t *testing.T) {
	cases := []struct {
		op   Opcode
		name string
	}{
		{OpResponse, "RESPONSE"},
		{OpPrint, "PRINT"},
		{OpVersion, "VERSION"},
		{OpTimeout, "TIMEOUT"},
		{OpOpen, "OPEN"},
		{OpOpenCyclic, "OPEN_CYCLIC"},
		{OpClose, "CLOSE"},
		{OpReadAttr, "READ_ATTR"},
		{OpReadDbgAttr, "READ_DBG_ATTR"},
		{OpReadBufAttr, "READ_BUF_ATTR"},
		{OpReadChnAttr, "READ_CHN_ATTR"},
		{OpWriteAttr, "WRITE_ATTR"},
		{OpWriteDbgAttr, "WRITE_DBG_ATTR"},
		{OpWriteBufAttr, "WRITE_BUF_ATTR"},
		{OpWriteChnAttr, "WRITE_CHN_ATTR"},
		{OpReadBuf, "READBUF"},
		{OpWriteBuf, "WRITEBUF"},
		{OpGetTrig, "GETTRIG"},
		{OpSetTrig, "SETTRIG"},
		{OpSetBufCnt, "SETBUFCNT"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.name, tc.op.String())
	}
}

func TestOpcodeStringOnUnknownValue(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Opcode(200).String())
}

func TestOpcodeIsResponse(t *testing.T) {
	assert.True(t, OpResponse.IsResponse())
	assert.False(t, OpPrint.IsResponse())
	assert.False(t, OpReadBuf.IsResponse())
}
