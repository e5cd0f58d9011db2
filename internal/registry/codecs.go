package registry

import (
	_ "github.com/padmux/padmux/codec/dualshock3" // Register DualShock 3 codecs
	_ "github.com/padmux/padmux/codec/dualshock4" // Register DualShock 4 codecs
)
