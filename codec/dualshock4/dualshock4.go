// Package dualshock4 implements the report codecs for DualShock 4
// controllers over USB and Bluetooth. The two transports share one payload
// layout; Bluetooth shifts it by two header bytes and appends a CRC32
// trailer seeded with the HIDP transaction byte.
package dualshock4

import (
	"encoding/binary"

	"github.com/padmux/padmux/codec"
	"github.com/padmux/padmux/pad"
)

func init() {
	codec.Register(pad.ModelDualShock4, pad.TransportUSB, usbCodec{})
	codec.Register(pad.ModelDualShock4, pad.TransportBluetooth, btCodec{})
}

type usbCodec struct{}

func (usbCodec) Decode(raw []byte) (pad.State, error) {
	if len(raw) < InputReportSizeUSB {
		return pad.State{}, &codec.DecodeError{Kind: codec.TooShort, Got: uint32(len(raw)), Want: InputReportSizeUSB}
	}
	if raw[0] != ReportIDInput {
		return pad.State{}, &codec.DecodeError{Kind: codec.UnexpectedReportID, Got: uint32(raw[0]), Want: ReportIDInput}
	}
	return decodePayload(raw[payloadOffsetUSB:]), nil
}

func (usbCodec) Encode(fb pad.Feedback) []byte {
	b := make([]byte, OutputReportSizeUSB)
	b[0] = ReportIDOutput
	encodePayload(b[payloadOffsetUSB:], fb)
	return b
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

	st.DPad = dpadFromHat(p[inOffDPad] & dpadMask)

	buttons := pad.Button(p[inOffDPad]&0xF0) | pad.Button(p[inOffButtons])<<8
	if p[inOffSpecial]&buttonPSBit != 0 {
		buttons |= pad.ButtonPS
	}
	if p[inOffSpecial]&buttonTouchBit != 0 {
		buttons |= pad.ButtonTouchpadClick
	}
	st.Buttons = buttons

	st.Battery = batteryFromRaw(p[inOffBattery])

	st.Motion = &pad.Motion{
		GyroX:  int16(binary.LittleEndian.Uint16(p[inOffGyro : inOffGyro+2])),
		GyroY:  int16(binary.LittleEndian.Uint16(p[inOffGyro+2 : inOffGyro+4])),
		GyroZ:  int16(binary.LittleEndian.Uint16(p[inOffGyro+4 : inOffGyro+6])),
		AccelX: int16(binary.LittleEndian.Uint16(p[inOffAccel : inOffAccel+2])),
		AccelY: int16(binary.LittleEndian.Uint16(p[inOffAccel+2 : inOffAccel+4])),
		AccelZ: int16(binary.LittleEndian.Uint16(p[inOffAccel+4 : inOffAccel+6])),
	}

	st.Touch1 = decodeTouch(p[inOffTouch1 : inOffTouch1+4])
	st.Touch2 = decodeTouch(p[inOffTouch2 : inOffTouch2+4])
	return st
}

// decodeTouch unpacks one 4-byte touch frame: a counter byte (active flag in
// the high bit, contact id below) followed by 12-bit packed coordinates.
func decodeTouch(b []byte) pad.Touch {
	return pad.Touch{
		ID:     b[0] & touchIDMask,
		Active: b[0]&touchInactiveMask == 0,
		X:      uint16(b[1]) | uint16(b[2]&0x0F)<<8,
		Y:      uint16(b[2]>>4) | uint16(b[3])<<4,
	}
}

var hatToDPad = [...]uint8{
	pad.DPadUp,
	pad.DPadUp | pad.DPadRight,
	pad.DPadRight,
	pad.DPadDown | pad.DPadRight,
	pad.DPadDown,
	pad.DPadDown | pad.DPadLeft,
	pad.DPadLeft,
	pad.DPadUp | pad.DPadLeft,
	0,
}

func dpadFromHat(hat uint8) uint8 {
	if int(hat) < len(hatToDPad) {
		return hatToDPad[hat]
	}
	return 0
}

// batteryFromRaw maps the raw battery byte to the canonical enum. The low
// nibble is the charge level (0-10 scale, 11 = charge complete); bit 4 is
// set while a cable is attached.
func batteryFromRaw(raw uint8) pad.Battery {
	level := raw & batteryLevelMask
	if raw&batteryCableFlag != 0 {
		if level >= batteryFullLevel {
			return pad.BatteryFull
		}
		return pad.BatteryCharging
	}
	switch {
	case level >= 8:
		return pad.BatteryFull
	case level >= 6:
		return pad.BatteryHigh
	case level >= 4:
		return pad.BatteryMedium
	case level >= 2:
		return pad.BatteryLow
	default:
		return pad.BatteryDying
	}
}

func encodePayload(p []byte, fb pad.Feedback) {
	p[outOffFlags1] = 0xFF
	p[outOffFlags2] = 0x04
	p[outOffRumbleSmall] = fb.RumbleSmall
	p[outOffRumbleLarge] = fb.RumbleLarge
	p[outOffLedRed] = fb.Led.R
	p[outOffLedGreen] = fb.Led.G
	p[outOffLedBlue] = fb.Led.B
	p[outOffFlashOn] = fb.FlashOn
	p[outOffFlashOff] = fb.FlashOff
}
