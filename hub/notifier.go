package hub

// Cue identifies a user-facing notification moment.
type Cue uint8

const (
	// CueConnect plays when a controller takes a slot.
	CueConnect Cue = iota + 1
	// CueDisconnect plays when a controller gives its slot up.
	CueDisconnect
	// CueBatteryLow plays once per discharge when a controller's charge
	// drops to a level worth warning about.
	CueBatteryLow
)

func (c Cue) String() string {
	switch c {
	case CueConnect:
		return "connect"
	case CueDisconnect:
		return "disconnect"
	case CueBatteryLow:
		return "battery-low"
	default:
		return "unknown"
	}
}

// Notifier receives cues as controllers come and go. Play is called from hub
// goroutines and must not block.
type Notifier interface {
	Play(c Cue)
}

type nopNotifier struct{}

func (nopNotifier) Play(Cue) {}
