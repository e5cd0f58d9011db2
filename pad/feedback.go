package pad

// Led is an RGB lightbar color. Models without an RGB lightbar ignore it and
// use the Player number instead.
type Led struct {
	R, G, B uint8
}

// Feedback is one output command for a controller: rumble intensities, LED
// color or player number, and an optional flash pattern. A Feedback is
// consumed once per encode; stale commands are superseded, never queued.
type Feedback struct {
	RumbleSmall uint8
	RumbleLarge uint8

	Led Led
	// Player selects the numbered LED (1-based) on models without an RGB
	// lightbar. Zero leaves the player LEDs untouched.
	Player uint8

	// Flash on/off durations in units of 2.5ms. Both zero disables flashing.
	FlashOn  uint8
	FlashOff uint8
}

// Flashing reports whether the command carries a flash pattern.
func (f Feedback) Flashing() bool { return f.FlashOn != 0 || f.FlashOff != 0 }

var slotLeds = []Led{
	{R: 0x00, G: 0x00, B: 0x40}, // blue
	{R: 0x40, G: 0x00, B: 0x00}, // red
	{R: 0x00, G: 0x40, B: 0x00}, // green
	{R: 0x20, G: 0x00, B: 0x20}, // pink
}

// SlotLed returns the conventional player color for a slot index so the
// physical controller shows its assignment. Indexes beyond the four player
// colors wrap around.
func SlotLed(slot int) Led {
	if slot < 0 {
		return Led{}
	}
	return slotLeds[slot%len(slotLeds)]
}
