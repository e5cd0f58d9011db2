package hub

import "fmt"

// Defaults for a zero Config.
const (
	DefaultMaxSlots        = 4
	DefaultDegradeAfter    = 10
	DefaultDisconnectAfter = 40
)

// Config tunes slot capacity and the session failure thresholds.
type Config struct {
	MaxSlots        int `help:"Number of virtual controller slots." default:"4" env:"PADMUX_MAX_SLOTS"`
	DegradeAfter    int `help:"Consecutive undecodable reports before a session is degraded." default:"10" env:"PADMUX_DEGRADE_AFTER"`
	DisconnectAfter int `help:"Consecutive undecodable reports before a session is dropped." default:"40" env:"PADMUX_DISCONNECT_AFTER"`
}

// withDefaults fills zero fields so a zero Config is usable as is.
func (c Config) withDefaults() Config {
	if c.MaxSlots == 0 {
		c.MaxSlots = DefaultMaxSlots
	}
	if c.DegradeAfter == 0 {
		c.DegradeAfter = DefaultDegradeAfter
	}
	if c.DisconnectAfter == 0 {
		c.DisconnectAfter = DefaultDisconnectAfter
	}
	return c
}

func (c Config) validate() error {
	if c.MaxSlots < 1 {
		return fmt.Errorf("max slots must be at least 1, have %d", c.MaxSlots)
	}
	if c.DegradeAfter < 1 {
		return fmt.Errorf("degrade threshold must be at least 1, have %d", c.DegradeAfter)
	}
	if c.DisconnectAfter <= c.DegradeAfter {
		return fmt.Errorf("disconnect threshold %d must exceed degrade threshold %d", c.DisconnectAfter, c.DegradeAfter)
	}
	return nil
}
