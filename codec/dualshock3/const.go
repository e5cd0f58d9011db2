package dualshock3

const (
	// ReportID is used by both input and output reports.
	ReportID = 0x01
)

const (
	InputReportSizeUSB  = 49
	OutputReportSizeUSB = 49
	ReportSizeBt        = 50

	payloadOffsetUSB = 1
	payloadOffsetBt  = 2
)

// Input report offsets, relative to the payload start (the byte after the
// report id on USB, after the HIDP header and report id on Bluetooth).
const (
	inOffButtons1 = 1 // select, l3, r3, start, dpad
	inOffButtons2 = 2 // triggers, bumpers, face buttons
	inOffButtons3 = 3 // ps
	inOffSticks   = 5 // LX LY RX RY, unsigned with 0x80 center
	inOffL2       = 17
	inOffR2       = 18
	inOffBattery  = 29
	inOffAccelX   = 40 // 10-bit big endian, 512 at rest
	inOffAccelY   = 42
	inOffAccelZ   = 44
	inOffGyroZ    = 46
)

const (
	btnSelect = 0x01
	btnL3     = 0x02
	btnR3     = 0x04
	btnStart  = 0x08
	btnUp     = 0x10
	btnRight  = 0x20
	btnDown   = 0x40
	btnLeft   = 0x80

	btnL2       = 0x01
	btnR2       = 0x02
	btnL1       = 0x04
	btnR1       = 0x08
	btnTriangle = 0x10
	btnCircle   = 0x20
	btnCross    = 0x40
	btnSquare   = 0x80

	btnPS = 0x01
)

const (
	batteryCharging = 0xEE
	batteryCharged  = 0xEF
	batteryLevelMax = 0x05
)

const (
	sensorMask = 0x3FF
	sensorRest = 512
)

// Output report offsets, payload-relative. The small motor is binary; its
// force byte is an on/off flag. Durations of 0xFF run until replaced.
const (
	outOffRumbleSmallDur = 1
	outOffRumbleSmallOn  = 2
	outOffRumbleLargeDur = 3
	outOffRumbleLarge    = 4
	outOffLedBitmap      = 9
	outOffLedBlocks      = 10 // four 5-byte blocks

	rumbleForever = 0xFF

	ledTimeEnabled = 0xFF
	ledDutyLength  = 0x27
	ledEnabled     = 0x10
	ledDutyOn      = 0x32
)
