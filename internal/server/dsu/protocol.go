// Package dsu implements the cemuhook pad-data protocol over UDP, the
// de-facto interface motion-aware emulators read controller and IMU state
// from. Hub slots stream as DSU controller slots 0-3.
package dsu

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"hash/fnv"
	"math"
	"net"

	"github.com/padmux/padmux/pad"
)

// Wire constants. Everything on the wire is little-endian; the CRC32 field
// covers the whole packet with itself zeroed.
const (
	magicServer = "DSUS"
	magicClient = "DSUC"

	protocolVersion = 1001

	msgVersion = 0x100000
	msgInfo    = 0x100001
	msgData    = 0x100002

	headerSize = 16

	// Payload sizes, message type included.
	versionPayloadSize = 8
	infoPayloadSize    = 16
	dataPayloadSize    = 84
)

// maxSlots is fixed by the protocol: DSU clients address slots 0-3 only.
const maxSlots = 4

// Slot state byte.
const (
	stateDisconnected = 0
	stateConnected    = 2
)

// Gyro model byte.
const (
	gyroNone    = 0
	gyroPartial = 1
	gyroFull    = 2
)

const gravity = 9.80665 // m/s² per g, for the accelerometer floats

// controllerHeader is the 11-byte slot description shared by info and data
// packets.
type controllerHeader struct {
	Slot       uint8
	State      uint8
	Model      uint8
	Connection uint8
	MAC        [6]byte
	Battery    uint8
}

func (c *controllerHeader) put(b []byte) {
	b[0] = c.Slot
	b[1] = c.State
	b[2] = c.Model
	b[3] = c.Connection
	copy(b[4:10], c.MAC[:])
	b[10] = c.Battery
}

// newPacket allocates a response packet and fills every header field except
// the checksum, which finish computes once the payload is in place.
func newPacket(payloadSize int, msgType, id uint32) []byte {
	b := make([]byte, headerSize+payloadSize)
	copy(b[0:4], magicServer)
	binary.LittleEndian.PutUint16(b[4:6], protocolVersion)
	binary.LittleEndian.PutUint16(b[6:8], uint16(payloadSize))
	binary.LittleEndian.PutUint32(b[12:16], id)
	binary.LittleEndian.PutUint32(b[16:20], msgType)
	return b
}

func finish(b []byte) []byte {
	binary.LittleEndian.PutUint32(b[8:12], 0)
	binary.LittleEndian.PutUint32(b[8:12], crc32.ChecksumIEEE(b))
	return b
}

func versionPacket(id uint32) []byte {
	b := newPacket(versionPayloadSize, msgVersion, id)
	binary.LittleEndian.PutUint16(b[20:22], protocolVersion)
	return finish(b)
}

func infoPacket(id uint32, ch controllerHeader) []byte {
	b := newPacket(infoPayloadSize, msgInfo, id)
	ch.put(b[20:31])
	// b[31] stays zero, terminating the controller block.
	return finish(b)
}

// dataPacket renders one controller snapshot. Axes convert from the signed
// canonical range to the unsigned DSU one; the Y axes flip because DSU
// counts up as positive.
func dataPacket(id uint32, ch controllerHeader, counter uint32, st pad.State, timestampUS uint64) []byte {
	b := newPacket(dataPayloadSize, msgData, id)
	ch.put(b[20:31])
	b[31] = 1 // connected
	binary.LittleEndian.PutUint32(b[32:36], counter)

	p := b[36:]

	var b1 uint8
	if st.Pressed(pad.ButtonShare) {
		b1 |= 0x01
	}
	if st.Pressed(pad.ButtonL3) {
		b1 |= 0x02
	}
	if st.Pressed(pad.ButtonR3) {
		b1 |= 0x04
	}
	if st.Pressed(pad.ButtonOptions) {
		b1 |= 0x08
	}
	if st.DPad&pad.DPadUp != 0 {
		b1 |= 0x10
	}
	if st.DPad&pad.DPadRight != 0 {
		b1 |= 0x20
	}
	if st.DPad&pad.DPadDown != 0 {
		b1 |= 0x40
	}
	if st.DPad&pad.DPadLeft != 0 {
		b1 |= 0x80
	}
	p[0] = b1

	var b2 uint8
	if st.Pressed(pad.ButtonL2) {
		b2 |= 0x01
	}
	if st.Pressed(pad.ButtonR2) {
		b2 |= 0x02
	}
	if st.Pressed(pad.ButtonL1) {
		b2 |= 0x04
	}
	if st.Pressed(pad.ButtonR1) {
		b2 |= 0x08
	}
	if st.Pressed(pad.ButtonTriangle) {
		b2 |= 0x10
	}
	if st.Pressed(pad.ButtonCircle) {
		b2 |= 0x20
	}
	if st.Pressed(pad.ButtonCross) {
		b2 |= 0x40
	}
	if st.Pressed(pad.ButtonSquare) {
		b2 |= 0x80
	}
	p[1] = b2

	p[2] = onOff(st.Pressed(pad.ButtonPS))
	p[3] = onOff(st.Pressed(pad.ButtonTouchpadClick))

	p[4] = uint8(int(st.LX) + 128)
	p[5] = uint8(127 - int(st.LY))
	p[6] = uint8(int(st.RX) + 128)
	p[7] = uint8(127 - int(st.RY))

	p[8] = onOff(st.DPad&pad.DPadLeft != 0)
	p[9] = onOff(st.DPad&pad.DPadDown != 0)
	p[10] = onOff(st.DPad&pad.DPadRight != 0)
	p[11] = onOff(st.DPad&pad.DPadUp != 0)
	p[12] = onOff(st.Pressed(pad.ButtonSquare))
	p[13] = onOff(st.Pressed(pad.ButtonCross))
	p[14] = onOff(st.Pressed(pad.ButtonCircle))
	p[15] = onOff(st.Pressed(pad.ButtonTriangle))
	p[16] = onOff(st.Pressed(pad.ButtonR1))
	p[17] = onOff(st.Pressed(pad.ButtonL1))
	p[18] = st.R2
	p[19] = st.L2

	putTouch(p[20:26], st.Touch1)
	putTouch(p[26:32], st.Touch2)

	binary.LittleEndian.PutUint64(p[32:40], timestampUS)

	var m pad.Motion
	if st.Motion != nil {
		m = *st.Motion
	}
	putFloat(p[40:44], float32(m.AccelX)/(pad.AccelCountsPerMS2*gravity))
	putFloat(p[44:48], float32(m.AccelY)/(pad.AccelCountsPerMS2*gravity))
	putFloat(p[48:52], float32(m.AccelZ)/(pad.AccelCountsPerMS2*gravity))
	putFloat(p[52:56], float32(m.GyroX)/pad.GyroCountsPerDps)
	putFloat(p[56:60], float32(m.GyroY)/pad.GyroCountsPerDps)
	putFloat(p[60:64], float32(m.GyroZ)/pad.GyroCountsPerDps)

	return finish(b)
}

func onOff(pressed bool) uint8 {
	if pressed {
		return 0xFF
	}
	return 0
}

func putTouch(b []byte, t pad.Touch) {
	if !t.Active {
		return
	}
	b[0] = 1
	b[1] = t.ID
	binary.LittleEndian.PutUint16(b[2:4], t.X)
	binary.LittleEndian.PutUint16(b[4:6], t.Y)
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// request is one parsed client message.
type request struct {
	id      uint32
	msgType uint32
	payload []byte
}

func parseRequest(b []byte) (request, error) {
	if len(b) < headerSize+4 {
		return request{}, fmt.Errorf("packet too short: %d bytes", len(b))
	}
	if string(b[0:4]) != magicClient {
		return request{}, fmt.Errorf("bad magic %q", b[0:4])
	}
	length := int(binary.LittleEndian.Uint16(b[6:8]))
	if length < 4 || headerSize+length > len(b) {
		return request{}, fmt.Errorf("bad length %d for %d-byte packet", length, len(b))
	}
	b = b[:headerSize+length]

	sum := binary.LittleEndian.Uint32(b[8:12])
	binary.LittleEndian.PutUint32(b[8:12], 0)
	if crc32.ChecksumIEEE(b) != sum {
		return request{}, fmt.Errorf("checksum mismatch")
	}

	return request{
		id:      binary.LittleEndian.Uint32(b[12:16]),
		msgType: binary.LittleEndian.Uint32(b[16:20]),
		payload: b[20:],
	}, nil
}

// slotMAC derives the 6-byte hardware address DSU clients identify
// controllers by. Bluetooth addresses parse directly; other address forms
// hash to a stable synthetic MAC.
func slotMAC(addr string) (mac [6]byte) {
	if hw, err := net.ParseMAC(addr); err == nil && len(hw) >= 6 {
		copy(mac[:], hw[:6])
		return mac
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(addr))
	sum := h.Sum64()
	for i := range mac {
		mac[i] = byte(sum >> (uint(i) * 8))
	}
	return mac
}

func modelByte(m pad.Model) uint8 {
	switch m {
	case pad.ModelDualShock4:
		return gyroFull
	case pad.ModelDualShock3:
		return gyroPartial
	default:
		return gyroNone
	}
}

// connByte maps a transport to the DSU connection type. The pad transport
// enum already uses the DSU values.
func connByte(t pad.Transport) uint8 {
	if t == pad.TransportUSB || t == pad.TransportBluetooth {
		return uint8(t)
	}
	return 0
}
