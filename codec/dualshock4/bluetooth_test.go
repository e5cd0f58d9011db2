package dualshock4_test

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmux/padmux/codec"
	"github.com/padmux/padmux/codec/dualshock4"
	"github.com/padmux/padmux/pad"
)

var crcTable = crc32.MakeTable(crc32.IEEE)

// btInputFrame wraps a usb-layout payload in the bluetooth 0x11 framing and
// appends a valid crc over the input transaction header and frame body.
func btInputFrame(payload []byte) []byte {
	b := make([]byte, dualshock4.ReportSizeBt)
	b[0] = 0x11
	b[1] = 0xC0
	copy(b[3:74], payload)

	sum := crc32.Update(0, crcTable, []byte{0xA1})
	sum = crc32.Update(sum, crcTable, b[:74])
	binary.LittleEndian.PutUint32(b[74:], sum)
	return b
}

func TestDecodeBtMatchesUSB(t *testing.T) {
	usbC := codec.Lookup(pad.ModelDualShock4, pad.TransportUSB)
	btC := codec.Lookup(pad.ModelDualShock4, pad.TransportBluetooth)
	require.NotNil(t, usbC)
	require.NotNil(t, btC)

	report := neutralUSBReport()
	report[1] = 0x20
	report[5] = 0x08 | 0x20
	report[6] = 0x40
	report[8] = 0x7F
	report[35] = 0x05
	report[36] = 0xFF
	report[37] = 0x13
	report[38] = 0x21

	fromUSB, err := usbC.Decode(report)
	require.NoError(t, err)

	fromBt, err := btC.Decode(btInputFrame(report[1:]))
	require.NoError(t, err)

	assert.Equal(t, fromUSB, fromBt)
}

func TestDecodeBtTooShort(t *testing.T) {
	c := codec.Lookup(pad.ModelDualShock4, pad.TransportBluetooth)
	require.NotNil(t, c)

	full := btInputFrame(neutralUSBReport()[1:])
	for _, l := range []int{0, 1, 63, dualshock4.ReportSizeBt - 1} {
		_, err := c.Decode(full[:l])

		var de *codec.DecodeError
		require.ErrorAs(t, err, &de, "length %d", l)
		assert.Equal(t, codec.TooShort, de.Kind, "length %d", l)
	}
}

func TestDecodeBtChecksumMismatch(t *testing.T) {
	c := codec.Lookup(pad.ModelDualShock4, pad.TransportBluetooth)
	require.NotNil(t, c)

	valid := btInputFrame(neutralUSBReport()[1:])
	_, err := c.Decode(valid)
	require.NoError(t, err)

	// Flipping any single bit of the crc trailer must be caught.
	for off := 74; off < 78; off++ {
		for bit := 0; bit < 8; bit++ {
			raw := btInputFrame(neutralUSBReport()[1:])
			raw[off] ^= 1 << bit

			_, err := c.Decode(raw)
			var de *codec.DecodeError
			require.ErrorAs(t, err, &de, "offset %d bit %d", off, bit)
			assert.Equal(t, codec.ChecksumMismatch, de.Kind)
			assert.NotEqual(t, de.Want, de.Got)
		}
	}

	// A corrupted frame body no longer matches the trailer either.
	raw := btInputFrame(neutralUSBReport()[1:])
	raw[10] ^= 0x80
	_, err = c.Decode(raw)
	var de *codec.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, codec.ChecksumMismatch, de.Kind)
}

func TestEncodeBt(t *testing.T) {
	usbC := codec.Lookup(pad.ModelDualShock4, pad.TransportUSB)
	btC := codec.Lookup(pad.ModelDualShock4, pad.TransportBluetooth)
	require.NotNil(t, usbC)
	require.NotNil(t, btC)

	fb := pad.Feedback{
		RumbleSmall: 0x44,
		RumbleLarge: 0x88,
		Led:         pad.Led{R: 0x20, G: 0x00, B: 0x40},
		FlashOn:     0x3C,
		FlashOff:    0x3C,
	}

	got := btC.Encode(fb)
	require.Len(t, got, dualshock4.ReportSizeBt)

	assert.Equal(t, uint8(0x11), got[0])
	assert.Equal(t, uint8(0xC4), got[1])

	// The payload must match the usb layout shifted behind the bt header.
	usbOut := usbC.Encode(fb)
	assert.Equal(t, usbOut[1:], got[3:3+len(usbOut)-1])

	sum := crc32.Update(0, crcTable, []byte{0xA2})
	sum = crc32.Update(sum, crcTable, got[:74])
	assert.Equal(t, sum, binary.LittleEndian.Uint32(got[74:]))
}
