package hub

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on every call after the
	// first. A hub runs at most once; create a new one to run again.
	ErrAlreadyStarted = errors.New("hub: already started")

	// ErrSlotRange is returned for slot indexes outside [0, MaxSlots).
	ErrSlotRange = errors.New("hub: slot out of range")
)
