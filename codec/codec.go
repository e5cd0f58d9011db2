// Package codec converts raw transport report bytes to and from the canonical
// pad types. Codecs are pure: Decode never performs I/O and never panics on
// malformed input; Encode is deterministic and infallible.
//
// Concrete codecs live in per-model subpackages and register themselves
// keyed by (model, transport), so supporting a new model or transport is
// additive and never touches shared logic.
package codec

import (
	"fmt"
	"sync"

	"github.com/padmux/padmux/pad"
)

// Codec translates between one controller model's report framing on one
// transport and the canonical pad types.
type Codec interface {
	// Decode parses a single raw input report into a canonical state.
	// Malformed input yields a *DecodeError; the caller owns the
	// retry/degrade policy.
	Decode(raw []byte) (pad.State, error)
	// Encode builds the raw output report for a feedback command.
	// Out-of-range values are clamped, never rejected.
	Encode(fb pad.Feedback) []byte
}

// ErrorKind classifies a decode failure.
type ErrorKind uint8

const (
	TooShort ErrorKind = iota + 1
	UnexpectedReportID
	ChecksumMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case TooShort:
		return "too short"
	case UnexpectedReportID:
		return "unexpected report id"
	case ChecksumMismatch:
		return "checksum mismatch"
	default:
		return "malformed"
	}
}

// DecodeError describes why a raw report could not be decoded. Want and Got
// carry kind-specific detail: lengths for TooShort, report ids for
// UnexpectedReportID, checksums for ChecksumMismatch.
type DecodeError struct {
	Kind ErrorKind
	Want uint32
	Got  uint32
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case TooShort:
		return fmt.Sprintf("report too short: %d bytes, want at least %d", e.Got, e.Want)
	case UnexpectedReportID:
		return fmt.Sprintf("unexpected report id 0x%02x, want 0x%02x", e.Got, e.Want)
	case ChecksumMismatch:
		return fmt.Sprintf("report checksum 0x%08x, computed 0x%08x", e.Got, e.Want)
	default:
		return "malformed report"
	}
}

type key struct {
	model     pad.Model
	transport pad.Transport
}

var (
	registry   = make(map[key]Codec)
	registryMu sync.RWMutex
)

// Register makes a codec available for lookup under (model, transport).
// It should be called from codec package init() functions; a later
// registration for the same key replaces the earlier one.
func Register(model pad.Model, transport pad.Transport, c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key{model: model, transport: transport}] = c
}

// Lookup returns the codec registered for (model, transport), or nil when
// the combination is unsupported.
func Lookup(model pad.Model, transport pad.Transport) Codec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[key{model: model, transport: transport}]
}
