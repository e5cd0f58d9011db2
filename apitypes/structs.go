package apitypes

import (
	"fmt"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// PadState is the wire rendering of one slot's controller state. Stick axes
// are signed with 0 at center, triggers run 0..255.
type PadState struct {
	Buttons uint16  `json:"buttons"`
	DPad    uint8   `json:"dpad"`
	LX      int8    `json:"lx"`
	LY      int8    `json:"ly"`
	RX      int8    `json:"rx"`
	RY      int8    `json:"ry"`
	L2      uint8   `json:"l2"`
	R2      uint8   `json:"r2"`
	Battery string  `json:"battery"`
	Motion  *Motion `json:"motion,omitempty"`
	Touches []Touch `json:"touches,omitempty"`
}

// Motion carries raw IMU counts; omitted entirely for controllers without
// an IMU.
type Motion struct {
	GyroX  int16 `json:"gyroX"`
	GyroY  int16 `json:"gyroY"`
	GyroZ  int16 `json:"gyroZ"`
	AccelX int16 `json:"accelX"`
	AccelY int16 `json:"accelY"`
	AccelZ int16 `json:"accelZ"`
}

// Touch is one active touchpad contact.
type Touch struct {
	ID uint8  `json:"id"`
	X  uint16 `json:"x"`
	Y  uint16 `json:"y"`
}

type SlotInfo struct {
	Index    int    `json:"index"`
	Occupied bool   `json:"occupied"`
	Device   string `json:"device,omitempty"`
	State    string `json:"state,omitempty"`
	Battery  string `json:"battery,omitempty"`
}

type SlotListResponse struct {
	Slots   []SlotInfo `json:"slots"`
	Pending int        `json:"pending"`
}

type DeviceInfo struct {
	Model     string `json:"model"`
	Transport string `json:"transport"`
	Addr      string `json:"addr"`
	State     string `json:"state"`
	Slot      int    `json:"slot"`
	Pending   bool   `json:"pending"`
}

type DevicesListResponse struct {
	Devices []DeviceInfo `json:"devices"`
}

type FeedbackResponse struct {
	Slot int `json:"slot"`
}

// Led is an RGB lightbar color.
type Led struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// FeedbackRequest is the payload for slot/{index}/feedback. A nil Led keeps
// the slot's player color; flash fields are lightbar on/off times in units
// of 2.5ms, both zero for steady light.
type FeedbackRequest struct {
	RumbleSmall uint8 `json:"rumbleSmall"`
	RumbleLarge uint8 `json:"rumbleLarge"`
	Led         *Led  `json:"led,omitempty"`
	FlashOn     uint8 `json:"flashOn,omitempty"`
	FlashOff    uint8 `json:"flashOff,omitempty"`
}

// Event is one line of the events stream.
type Event struct {
	Kind      string `json:"kind"`
	Slot      int    `json:"slot"`
	Model     string `json:"model,omitempty"`
	Transport string `json:"transport,omitempty"`
	Addr      string `json:"addr,omitempty"`
	Battery   string `json:"battery,omitempty"`
}
