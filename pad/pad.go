// Package pad defines the canonical, transport-independent controller state
// exchanged between codecs, sessions and slot consumers.
package pad

// Button is a bit in the canonical button bitmask.
type Button = uint16

const (
	ButtonPS            Button = 0x0001
	ButtonTouchpadClick Button = 0x0002

	ButtonSquare   Button = 0x0010
	ButtonCross    Button = 0x0020
	ButtonCircle   Button = 0x0040
	ButtonTriangle Button = 0x0080

	ButtonL1      Button = 0x0100
	ButtonR1      Button = 0x0200
	ButtonL2      Button = 0x0400
	ButtonR2      Button = 0x0800
	ButtonShare   Button = 0x1000
	ButtonOptions Button = 0x2000
	ButtonL3      Button = 0x4000
	ButtonR3      Button = 0x8000
)

// DPad direction bits. Diagonals are combinations of two adjacent bits.
const (
	DPadUp    uint8 = 0x01
	DPadDown  uint8 = 0x02
	DPadLeft  uint8 = 0x04
	DPadRight uint8 = 0x08
)

// Touch is a single touchpad contact. Coordinates use the native
// 1920x942 touchpad range.
type Touch struct {
	ID     uint8
	Active bool
	X, Y   uint16
}

// Motion carries one gyro/accelerometer sample in the fixed-point raw
// representation of the sensor (see GyroCountsPerDps / AccelCountsPerMS2).
type Motion struct {
	GyroX, GyroY, GyroZ    int16
	AccelX, AccelY, AccelZ int16
}

// Motion fields are fixed-point physical units so no float serialization is
// needed between codecs and consumers.
//
// Gyro: degrees/second scaled by GyroCountsPerDps.
// Accel: m/s² scaled by AccelCountsPerMS2.
const (
	GyroCountsPerDps  = 16.0
	AccelCountsPerMS2 = 512.0
)

// State is one fully decoded input snapshot. Values are immutable once
// produced; a State is published to at most one slot and may be read by any
// number of observers without locking.
type State struct {
	Buttons Button
	DPad    uint8

	LX, LY int8
	RX, RY int8

	L2, R2 uint8

	Battery Battery

	Touch1, Touch2 Touch

	// Motion is nil for models without an IMU.
	Motion *Motion
}

// Pressed reports whether all bits of b are set.
func (s State) Pressed(b Button) bool { return s.Buttons&b == b }

// Battery is the coarse charge level reported by a controller. The numeric
// values match the DSU/cemuhook battery enum so motion-feed consumers can use
// them directly.
type Battery uint8

const (
	BatteryUnknown  Battery = 0x00
	BatteryDying    Battery = 0x01
	BatteryLow      Battery = 0x02
	BatteryMedium   Battery = 0x03
	BatteryHigh     Battery = 0x04
	BatteryFull     Battery = 0x05
	BatteryCharging Battery = 0xEE
)

func (b Battery) String() string {
	switch b {
	case BatteryDying:
		return "dying"
	case BatteryLow:
		return "low"
	case BatteryMedium:
		return "medium"
	case BatteryHigh:
		return "high"
	case BatteryFull:
		return "full"
	case BatteryCharging:
		return "charging"
	default:
		return "unknown"
	}
}

// Low reports whether the level is low enough to warn the user about.
func (b Battery) Low() bool { return b == BatteryLow || b == BatteryDying }
