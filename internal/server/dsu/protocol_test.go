package dsu

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmux/padmux/pad"
)

// verifyChecksum recomputes the CRC of a finished packet and compares it to
// the stored field.
func verifyChecksum(t *testing.T, b []byte) {
	t.Helper()
	sum := binary.LittleEndian.Uint32(b[8:12])
	cp := append([]byte(nil), b...)
	binary.LittleEndian.PutUint32(cp[8:12], 0)
	assert.Equal(t, crc32.ChecksumIEEE(cp), sum)
}

func TestVersionPacket(t *testing.T) {
	b := versionPacket(0xAABBCCDD)

	require.Len(t, b, 24)
	assert.Equal(t, "DSUS", string(b[0:4]))
	assert.EqualValues(t, 1001, binary.LittleEndian.Uint16(b[4:6]))
	assert.EqualValues(t, 8, binary.LittleEndian.Uint16(b[6:8]))
	assert.EqualValues(t, 0xAABBCCDD, binary.LittleEndian.Uint32(b[12:16]))
	assert.EqualValues(t, msgVersion, binary.LittleEndian.Uint32(b[16:20]))
	assert.EqualValues(t, 1001, binary.LittleEndian.Uint16(b[20:22]))
	verifyChecksum(t, b)
}

func TestInfoPacket(t *testing.T) {
	ch := controllerHeader{
		Slot:       2,
		State:      stateConnected,
		Model:      gyroFull,
		Connection: 2,
		MAC:        [6]byte{0xAA, 0xBB, 0xCC, 0x01, 0x02, 0x03},
		Battery:    0x05,
	}
	b := infoPacket(7, ch)

	require.Len(t, b, 32)
	assert.EqualValues(t, 16, binary.LittleEndian.Uint16(b[6:8]))
	assert.EqualValues(t, msgInfo, binary.LittleEndian.Uint32(b[16:20]))
	assert.EqualValues(t, 2, b[20])
	assert.EqualValues(t, stateConnected, b[21])
	assert.EqualValues(t, gyroFull, b[22])
	assert.EqualValues(t, 2, b[23])
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0x01, 0x02, 0x03}, b[24:30])
	assert.EqualValues(t, 0x05, b[30])
	assert.EqualValues(t, 0, b[31])
	verifyChecksum(t, b)
}

func TestDataPacketLayout(t *testing.T) {
	st := pad.State{
		Buttons: pad.ButtonCross | pad.ButtonShare | pad.ButtonL2,
		DPad:    pad.DPadUp | pad.DPadLeft,
		LX:      -128,
		LY:      -128,
		RX:      127,
		RY:      0,
		L2:      200,
		R2:      55,
		Battery: pad.BatteryHigh,
		Touch1:  pad.Touch{ID: 3, Active: true, X: 1919, Y: 941},
		Motion:  &pad.Motion{GyroX: 160},
	}
	ch := controllerHeader{
		Slot:       1,
		State:      stateConnected,
		Model:      gyroFull,
		Connection: 1,
		MAC:        [6]byte{0xAA, 0, 1, 2, 3, 4},
		Battery:    uint8(pad.BatteryHigh),
	}

	b := dataPacket(77, ch, 9, st, 123456)

	require.Len(t, b, 100)
	assert.EqualValues(t, 84, binary.LittleEndian.Uint16(b[6:8]))
	assert.EqualValues(t, msgData, binary.LittleEndian.Uint32(b[16:20]))
	assert.EqualValues(t, 1, b[20])
	assert.EqualValues(t, 1, b[31], "connected flag")
	assert.EqualValues(t, 9, binary.LittleEndian.Uint32(b[32:36]))

	p := b[36:]

	// Share + dpad up + dpad left.
	assert.EqualValues(t, 0x91, p[0])
	// L2 + cross.
	assert.EqualValues(t, 0x41, p[1])
	assert.EqualValues(t, 0, p[2], "ps")
	assert.EqualValues(t, 0, p[3], "touchpad click")

	// Sticks shift to unsigned; Y flips because DSU counts up as positive.
	assert.EqualValues(t, 0, p[4])
	assert.EqualValues(t, 255, p[5])
	assert.EqualValues(t, 255, p[6])
	assert.EqualValues(t, 127, p[7])

	// Analog dpad left/down/right/up.
	assert.EqualValues(t, 0xFF, p[8])
	assert.EqualValues(t, 0, p[9])
	assert.EqualValues(t, 0, p[10])
	assert.EqualValues(t, 0xFF, p[11])

	// Analog face buttons mirror the bitmask order: only cross pressed.
	assert.EqualValues(t, 0, p[12])
	assert.EqualValues(t, 0xFF, p[13])
	assert.EqualValues(t, 0, p[14])
	assert.EqualValues(t, 0, p[15])

	assert.EqualValues(t, 0, p[16], "r1 analog")
	assert.EqualValues(t, 0, p[17], "l1 analog")
	assert.EqualValues(t, 55, p[18], "r2 analog")
	assert.EqualValues(t, 200, p[19], "l2 analog")

	// First touch frame.
	assert.EqualValues(t, 1, p[20])
	assert.EqualValues(t, 3, p[21])
	assert.EqualValues(t, 1919, binary.LittleEndian.Uint16(p[22:24]))
	assert.EqualValues(t, 941, binary.LittleEndian.Uint16(p[24:26]))
	// Second frame stays zero.
	assert.EqualValues(t, 0, p[26])

	assert.EqualValues(t, 123456, binary.LittleEndian.Uint64(p[32:40]))

	accelX := math.Float32frombits(binary.LittleEndian.Uint32(p[40:44]))
	assert.Zero(t, accelX)
	// 160 counts at 16 counts/dps is exactly 10 degrees per second.
	pitch := math.Float32frombits(binary.LittleEndian.Uint32(p[52:56]))
	assert.EqualValues(t, 10.0, pitch)

	verifyChecksum(t, b)
}

func TestDataPacketNoMotion(t *testing.T) {
	b := dataPacket(1, controllerHeader{State: stateConnected}, 1, pad.State{}, 0)
	p := b[36:]
	for i := 40; i < 64; i++ {
		require.Zero(t, p[i], "imu byte %d", i)
	}
}

// clientPacket builds a well-formed request the way a DSU client would.
func clientPacket(msgType uint32, payload []byte) []byte {
	b := make([]byte, headerSize+4+len(payload))
	copy(b[0:4], magicClient)
	binary.LittleEndian.PutUint16(b[4:6], protocolVersion)
	binary.LittleEndian.PutUint16(b[6:8], uint16(4+len(payload)))
	binary.LittleEndian.PutUint32(b[12:16], 0xCAFE)
	binary.LittleEndian.PutUint32(b[16:20], msgType)
	copy(b[20:], payload)
	return finish(b)
}

func TestParseRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req, err := parseRequest(clientPacket(msgData, []byte{0, 0, 1, 2, 3, 4, 5, 6}))
		require.NoError(t, err)
		assert.EqualValues(t, 0xCAFE, req.id)
		assert.EqualValues(t, msgData, req.msgType)
		assert.Equal(t, []byte{0, 0, 1, 2, 3, 4, 5, 6}, req.payload)
	})

	t.Run("trailing bytes ignored", func(t *testing.T) {
		pkt := append(clientPacket(msgVersion, nil), 0xDE, 0xAD)
		req, err := parseRequest(pkt)
		require.NoError(t, err)
		assert.EqualValues(t, msgVersion, req.msgType)
		assert.Empty(t, req.payload)
	})

	t.Run("corrupted", func(t *testing.T) {
		pkt := clientPacket(msgVersion, nil)
		pkt[len(pkt)-1] ^= 0x01
		_, err := parseRequest(pkt)
		require.ErrorContains(t, err, "checksum mismatch")
	})

	t.Run("too short", func(t *testing.T) {
		_, err := parseRequest([]byte("DSUC"))
		require.ErrorContains(t, err, "packet too short")
	})

	t.Run("bad magic", func(t *testing.T) {
		pkt := clientPacket(msgVersion, nil)
		copy(pkt[0:4], magicServer)
		_, err := parseRequest(pkt)
		require.ErrorContains(t, err, "bad magic")
	})

	t.Run("bad length", func(t *testing.T) {
		pkt := clientPacket(msgVersion, nil)
		binary.LittleEndian.PutUint16(pkt[6:8], 2)
		_, err := parseRequest(pkt)
		require.ErrorContains(t, err, "bad length")
	})
}

func TestSlotMAC(t *testing.T) {
	assert.Equal(t,
		[6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		slotMAC("aa:bb:cc:dd:ee:ff"))

	// Non-MAC addresses hash to a stable synthetic value.
	usb := slotMAC("1-1")
	assert.Equal(t, usb, slotMAC("1-1"))
	assert.NotEqual(t, usb, slotMAC("1-2"))
	assert.NotEqual(t, [6]byte{}, usb)
}

func TestModelAndConnectionBytes(t *testing.T) {
	assert.EqualValues(t, gyroFull, modelByte(pad.ModelDualShock4))
	assert.EqualValues(t, gyroPartial, modelByte(pad.ModelDualShock3))
	assert.EqualValues(t, gyroNone, modelByte(pad.Model(0)))

	assert.EqualValues(t, 1, connByte(pad.TransportUSB))
	assert.EqualValues(t, 2, connByte(pad.TransportBluetooth))
	assert.EqualValues(t, 0, connByte(pad.Transport(0)))
}
