package dualshock4

const (
	ReportIDInput  = 0x01 // USB input
	ReportIDOutput = 0x05 // USB output
	ReportIDBt     = 0x11 // Bluetooth, both directions
)

const (
	InputReportSizeUSB  = 64
	OutputReportSizeUSB = 32
	ReportSizeBt        = 78

	payloadOffsetUSB = 1
	payloadOffsetBt  = 3
	crcOffsetBt      = 74

	// btOutputFlags marks the frame as HID data with a CRC trailer and
	// requests a 4-slot Bluetooth poll interval.
	btOutputFlags = 0xC4
)

// Input report offsets, relative to the payload start (the byte after the
// report id on USB, two bytes further on Bluetooth).
const (
	inOffSticks  = 0 // LX LY RX RY, unsigned with 0x80 center
	inOffDPad    = 4 // dpad hat low nibble, face buttons high nibble
	inOffButtons = 5 // L1..R3
	inOffSpecial = 6 // PS, touchpad click, 6-bit report counter
	inOffL2      = 7
	inOffR2      = 8
	inOffGyro    = 12 // int16 LE x,y,z
	inOffAccel   = 18 // int16 LE x,y,z
	inOffBattery = 29
	inOffTouch1  = 34 // 4-byte touch frame
	inOffTouch2  = 38
)

const (
	buttonPSBit    = 0x01
	buttonTouchBit = 0x02

	dpadMask    = 0x0F
	dpadNeutral = 0x08
)

const (
	batteryLevelMask = 0x0F
	batteryCableFlag = 0x10
	batteryFullLevel = 0x0B
)

const (
	touchInactiveMask = 0x80
	touchIDMask       = 0x7F

	TouchpadMaxX = 1920
	TouchpadMaxY = 942
)

// Output report offsets, payload-relative like the input offsets.
const (
	outOffFlags1      = 0 // 0xFF: enable rumble, lightbar and flash updates
	outOffFlags2      = 1
	outOffRumbleSmall = 3
	outOffRumbleLarge = 4
	outOffLedRed      = 5
	outOffLedGreen    = 6
	outOffLedBlue     = 7
	outOffFlashOn     = 8 // units of 2.5ms
	outOffFlashOff    = 9 // units of 2.5ms
)
