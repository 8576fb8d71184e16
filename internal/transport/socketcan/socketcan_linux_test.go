// internal/transport/socketcan/socketcan_linux_test.go
package socketcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/tamzrod/servoscan/internal/moteus"
)

func TestEncodeFrameExtendedID(t *testing.T) {
	raw, err := encodeFrame(moteus.Frame{ArbitrationID: 0x8005, Data: []byte{0x11, 0x00}})
	require.NoError(t, err)
	require.Len(t, raw, canfdMTU)

	assert.Equal(t, []byte{0x05, 0x80, 0x00, 0x80}, raw[0:4])
	assert.Equal(t, byte(2), raw[4])
	assert.Equal(t, []byte{0x11, 0x00}, raw[8:10])
}

func TestEncodeFrameStandardID(t *testing.T) {
	raw, err := encodeFrame(moteus.Frame{ArbitrationID: 0x005})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00}, raw[0:4])

	_, err = encodeFrame(moteus.Frame{Data: make([]byte, 65)})
	require.Error(t, err)
}

func TestDecodeFrame(t *testing.T) {
	raw, err := encodeFrame(moteus.Frame{ArbitrationID: 0x0b00, Data: []byte{0x21, 0x00, 0x0a}})
	require.NoError(t, err)

	f, err := decodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0b00), f.ArbitrationID)
	assert.Equal(t, []byte{0x21, 0x00, 0x0a}, f.Data)

	classic := make([]byte, canMTU)
	classic[0] = 0x05
	classic[3] = byte(unix.CAN_EFF_FLAG >> 24)
	classic[4] = 1
	classic[8] = 0x50
	f, err = decodeFrame(classic)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x05), f.ArbitrationID)
	assert.Equal(t, []byte{0x50}, f.Data)

	_, err = decodeFrame(make([]byte, 10))
	require.Error(t, err)

	bad := make([]byte, canMTU)
	bad[4] = 12
	_, err = decodeFrame(bad)
	require.Error(t, err)
}
