// Package dualshock3 implements the report codecs for DualShock 3 and
// Sixaxis controllers over USB and Bluetooth. Unlike the DualShock 4 the
// report layout is identical on both transports; Bluetooth only prepends an
// HIDP transaction header, with no checksum trailer.
//
// Sensor samples are passed through as zero-centered raw counts. The Sixaxis
// reports 10-bit accelerometer axes and a single z-axis gyro; no rescaling to
// the DualShock 4 IMU ranges is attempted.
package dualshock3

import (
	"encoding/binary"

	"github.com/padmux/padmux/codec"
	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
)

func init() {
	codec.Register(pad.ModelDualShock3, pad.TransportUSB, usbCodec{})
	codec.Register(pad.ModelDualShock3, pad.TransportBluetooth, btCodec{})
}

type usbCodec struct{}

func (usbCodec) Decode(raw []byte) (pad.State, error) {
	if len(raw) < InputReportSizeUSB {
		return pad.State{}, &codec.DecodeError{Kind: codec.TooShort, Got: uint32(len(raw)), Want: InputReportSizeUSB}
	}
	if raw[0] != ReportID {
		return pad.State{}, &codec.DecodeError{Kind: codec.UnexpectedReportID, Got: uint32(raw[0]), Want: ReportID}
	}
	return decodePayload(raw[payloadOffsetUSB:]), nil
}

func (usbCodec) Encode(fb pad.Feedback) []byte {
	b := make([]byte, OutputReportSizeUSB)
	b[0] = ReportID
	encodePayload(b[payloadOffsetUSB:], fb)
	return b
}

var buttons1Map = []struct {
	mask uint8
	btn  pad.Button
}{
	{btnSelect, pad.ButtonShare},
	{btnL3, pad.ButtonL3},
	{btnR3, pad.ButtonR3},
	{btnStart, pad.ButtonOptions},
}

var buttons2Map = []struct {
	mask uint8
	btn  pad.Button
}{
	{btnL2, pad.ButtonL2},
	{btnR2, pad.ButtonR2},
	{btnL1, pad.ButtonL1},
	{btnR1, pad.ButtonR1},
	{btnTriangle, pad.ButtonTriangle},
	{btnCircle, pad.ButtonCircle},
	{btnCross, pad.ButtonCross},
	{btnSquare, pad.ButtonSquare},
}

var dpadMap = []struct {
	mask uint8
	dir  uint8
}{
	{btnUp, pad.DPadUp},
	{btnRight, pad.DPadRight},
	{btnDown, pad.DPadDown},
	{btnLeft, pad.DPadLeft},
}

func decodePayload(p []byte) pad.State {
	st := pad.State{
		LX: int8(p[inOffSticks] - 0x80),
		LY: int8(p[inOffSticks+1] - 0x80),
		RX: int8(p[inOffSticks+2] - 0x80),
		RY: int8(p[inOffSticks+3] - 0x80),
		L2: p[inOffL2],
		R2: p[inOffR2],
	}

	var buttons pad.Button
	for _, m := range buttons1Map {
		if p[inOffButtons1]&m.mask != 0 {
			buttons |= m.btn
		}
	}
	for _, m := range buttons2Map {
		if p[inOffButtons2]&m.mask != 0 {
			buttons |= m.btn
		}
	}
	if p[inOffButtons3]&btnPS != 0 {
		buttons |= pad.ButtonPS
	}
	st.Buttons = buttons

	for _, m := range dpadMap {
		if p[inOffButtons1]&m.mask != 0 {
			st.DPad |= m.dir
		}
	}

	st.Battery = batteryFromRaw(p[inOffBattery])

	st.Motion = &pad.Motion{
		AccelX: sensor(p[inOffAccelX : inOffAccelX+2]),
		AccelY: sensor(p[inOffAccelY : inOffAccelY+2]),
		AccelZ: sensor(p[inOffAccelZ : inOffAccelZ+2]),
		GyroZ:  sensor(p[inOffGyroZ : inOffGyroZ+2]),
	}
	return st
}

// sensor extracts one 10-bit big-endian sample and centers it on zero.
func sensor(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b)&sensorMask) - sensorRest
}

// batteryFromRaw maps the raw battery byte to the canonical enum. While on
// cable the controller reports a charging marker instead of a level; wireless
// levels run 0 to 5.
func batteryFromRaw(raw uint8) pad.Battery {
	switch {
	case raw == batteryCharging:
		return pad.BatteryCharging
	case raw == batteryCharged:
		return pad.BatteryFull
	case raw > batteryLevelMax:
		return pad.BatteryUnknown
	case raw == 0x05:
		return pad.BatteryFull
	case raw == 0x04:
		return pad.BatteryHigh
	case raw == 0x03:
		return pad.BatteryMedium
	case raw == 0x02:
		return pad.BatteryLow
	default:
		return pad.BatteryDying
	}
}

func encodePayload(p []byte, fb pad.Feedback) {
	p[outOffRumbleSmallDur] = rumbleForever
	if fb.RumbleSmall > 0 {
		p[outOffRumbleSmallOn] = 0x01
	}
	p[outOffRumbleLargeDur] = rumbleForever
	p[outOffRumbleLarge] = fb.RumbleLarge

	p[outOffLedBitmap] = ledBitmap(fb.Player)

	dutyOff, dutyOn := uint8(0x00), uint8(ledDutyOn)
	if fb.Flashing() {
		dutyOff, dutyOn = fb.FlashOff, fb.FlashOn
	}
	// LED blocks are stored in reverse order: the first block drives LED 4,
	// the last drives LED 1.
	for k := 0; k < 4; k++ {
		off := outOffLedBlocks + 5*k
		p[off] = ledTimeEnabled
		p[off+1] = ledDutyLength
		p[off+2] = ledEnabled
		p[off+3] = dutyOff
		p[off+4] = dutyOn
	}
}

// ledBitmap selects the numbered LED for a 1-based player. LED 1 sits at
// bit 1 of the bitmap; player numbers past four wrap around.
func ledBitmap(player uint8) uint8 {
	if player == 0 {
		return 0
	}
	return 1 << ((player-1)%4 + 1)
}

type btCodec struct{}

func (btCodec) Decode(raw []byte) (pad.State, error) {
	if len(raw) < ReportSizeBt {
		return pad.State{}, &codec.DecodeError{Kind: codec.TooShort, Got: uint32(len(raw)), Want: ReportSizeBt}
	}
	if raw[0] != hid.TransactionDataInput {
		return pad.State{}, &codec.DecodeError{Kind: codec.UnexpectedReportID, Got: uint32(raw[0]), Want: hid.TransactionDataInput}
	}
	if raw[1] != ReportID {
		return pad.State{}, &codec.DecodeError{Kind: codec.UnexpectedReportID, Got: uint32(raw[1]), Want: ReportID}
	}
	return decodePayload(raw[payloadOffsetBt:]), nil
}

func (btCodec) Encode(fb pad.Feedback) []byte {
	b := make([]byte, ReportSizeBt)
	b[0] = hid.TransactionSetReportOutput
	b[1] = ReportID
	encodePayload(b[payloadOffsetBt:], fb)
	return b
}
