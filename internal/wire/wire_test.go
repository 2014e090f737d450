package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	buf := EncodeHeader(0x1234, 7, 2, -42)
	clientID, op, dev, code := DecodeHeader(buf[:])

	assert.Equal(t, uint16(0x1234), clientID)
	assert.Equal(t, uint8(7), op)
	assert.Equal(t, uint8(2), dev)
	assert.Equal(t, int32(-42), code)
}

func TestRWAllRejectsEmptyOrOversizedDescriptorSet(t *testing.T) {
	_, err := RWAll(nil, 0, true, func(bufs [][]byte) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrInvalidArgument)

	many := make([][]byte, MaxDescriptors+1)
	for i := range many {
		many[i] = make([]byte, 1)
	}
	_, err = RWAll(many, 0, true, func(bufs [][]byte) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRWAllResumesAcrossShortWrites(t *testing.T) {
	data := []byte("hello, world")
	var written []byte
	calls := 0

	n, err := RWAll([][]byte{data}, 0, false, func(bufs [][]byte) (int, error) {
		calls++
		take := 3
		if take > len(bufs[0]) {
			take = len(bufs[0])
		}
		written = append(written, bufs[0][:take]...)
		return take, nil
	})

	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, written)
	assert.Greater(t, calls, 1)
}

func TestRWAllAcrossMultipleDescriptors(t *testing.T) {
	a := []byte("abc")
	b := []byte("defgh")
	var got []byte

	n, err := RWAll([][]byte{a, b}, 0, false, func(bufs [][]byte) (int, error) {
		// Always accept exactly one byte from the first remaining descriptor.
		got = append(got, bufs[0][0])
		return 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "abcdefgh", string(got))
}

func TestRWAllTruncatesAtByteCap(t *testing.T) {
	buf := make([]byte, 16)
	src := []byte("0123456789ABCDEF")
	cursor := 0

	n, err := RWAll([][]byte{buf}, 5, true, func(bufs [][]byte) (int, error) {
		k := copy(bufs[0], src[cursor:])
		cursor += k
		return k, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "01234", string(buf[:5]))
}

func TestRWAllTruncatesWithinSecondDescriptor(t *testing.T) {
	hdr := make([]byte, 4)
	payload := make([]byte, 10)
	src := []byte("HEADpayload-data")
	cursor := 0
	const chunk = 4 // simulate a transport that only ever moves 4 bytes per call

	n, err := RWAll([][]byte{hdr, payload}, 7, true, func(bufs [][]byte) (int, error) {
		total, left := 0, chunk
		for _, b := range bufs {
			if left == 0 {
				break
			}
			k := copy(b[:min(len(b), left)], src[cursor:])
			cursor += k
			total += k
			left -= k
			if k < len(b) {
				break
			}
		}
		return total, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "HEAD", string(hdr))
	assert.Equal(t, "pay", string(payload[:3]))
}

func TestRWAllReturnsClosedOnZeroRead(t *testing.T) {
	buf := make([]byte, 4)
	_, err := RWAll([][]byte{buf}, 0, true, func(bufs [][]byte) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRWAllPropagatesTransportError(t *testing.T) {
	boom := assert.AnError
	buf := make([]byte, 4)

	n, err := RWAll([][]byte{buf}, 0, false, func(bufs [][]byte) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}
