package pad

import "fmt"

// Model identifies a supported controller family.
type Model uint8

const (
	ModelUnknown    Model = 0
	ModelDualShock3 Model = 1
	ModelDualShock4 Model = 2
)

func (m Model) String() string {
	switch m {
	case ModelDualShock3:
		return "dualshock3"
	case ModelDualShock4:
		return "dualshock4"
	default:
		return "unknown"
	}
}

// Transport is the physical connection kind a controller is reached over.
// The numeric values match the DSU connection-type enum.
type Transport uint8

const (
	TransportUSB       Transport = 1
	TransportBluetooth Transport = 2
)

func (t Transport) String() string {
	switch t {
	case TransportUSB:
		return "usb"
	case TransportBluetooth:
		return "bluetooth"
	default:
		return "unknown"
	}
}

// Identity is the stable key for one physical controller: its model, the
// transport it is connected over, and a transport-level address (MAC for
// Bluetooth, bus/port path or serial for USB). Identities de-duplicate
// arrival notifications and survive reconnects of the same device.
type Identity struct {
	Model     Model
	Transport Transport
	Addr      string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Model, id.Transport, id.Addr)
}
