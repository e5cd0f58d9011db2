package hidraw

import (
	"testing"

	hidapi "github.com/karalabe/hid"
	"github.com/stretchr/testify/assert"

	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
)

func TestSniffTransport(t *testing.T) {
	tests := []struct {
		name  string
		model pad.Model
		first []byte
		want  pad.Transport
	}{
		{"ds4 bluetooth frame", pad.ModelDualShock4, []byte{0x11, 0xC0, 0x00}, pad.TransportBluetooth},
		{"ds4 usb report", pad.ModelDualShock4, []byte{0x01, 0x80, 0x80}, pad.TransportUSB},
		{"ds3 always usb framing", pad.ModelDualShock3, []byte{0x01, 0x00}, pad.TransportUSB},
		{"empty report", pad.ModelDualShock4, nil, pad.TransportUSB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffTransport(tt.model, tt.first))
		})
	}
}

func TestAddrFor(t *testing.T) {
	withSerial := hidapi.DeviceInfo{Path: "/dev/hidraw3", Serial: "AA:BB:CC:DD:EE:FF"}
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", addrFor(withSerial))

	withoutSerial := hidapi.DeviceInfo{Path: "/dev/hidraw3"}
	assert.Equal(t, "/dev/hidraw3", addrFor(withoutSerial))
}

func TestModelFor(t *testing.T) {
	assert.Equal(t, pad.ModelDualShock3, modelFor(hid.ProductDualShock3))
	assert.Equal(t, pad.ModelDualShock4, modelFor(hid.ProductDualShock4))
	assert.Equal(t, pad.ModelDualShock4, modelFor(hid.ProductDualShock4V2))
	assert.EqualValues(t, 0, modelFor(0x1234))
}
