// Package render schedules time-stamped parameter ramps and MIDI events against a kernel's
// audio rendering so that every event lands on its exact sample.
package render

import (
	"cmp"
	"fmt"
	"slices"
)

// ParamAddress identifies a kernel parameter.
type ParamAddress uint64

// EventKind tags the payload carried by an Event.
type EventKind uint8

const (
	EventParameterRamp EventKind = iota
	EventMIDI
)

func (k EventKind) String() string {
	switch k {
	case EventParameterRamp:
		return "ramp"
	case EventMIDI:
		return "midi"
	default:
		return "unknown"
	}
}

// MIDIEvent is a short MIDI message as delivered by the host. Length is the length of
// the delivered message; only the first three bytes are kept.
type MIDIEvent struct {
	Cable  uint8
	Length uint8
	Data   [3]byte
}

// MIDIFromBytes copies a raw message. Messages longer than three bytes keep their real
// Length so kernels can reject them.
func MIDIFromBytes(b []byte) MIDIEvent {
	var m MIDIEvent
	n := len(b)
	if n > 255 {
		n = 255
	}
	m.Length = uint8(n)
	copy(m.Data[:], b)
	return m
}

// Bytes returns the stored message bytes without copying.
func (m *MIDIEvent) Bytes() []byte {
	n := int(m.Length)
	if n > len(m.Data) {
		n = len(m.Data)
	}
	return m.Data[:n]
}

// Status returns the status nibble with the channel bits masked off.
func (m *MIDIEvent) Status() byte { return m.Data[0] & 0xF0 }

// Event is a render event: a parameter ramp or a MIDI message, positioned at Offset
// samples from the start of the render call.
type Event struct {
	Kind   EventKind
	Offset int

	// EventParameterRamp
	Address  ParamAddress
	Value    float32
	Duration uint32

	// EventMIDI
	MIDI MIDIEvent
}

// Ramp builds a parameter ramp event.
func Ramp(offset int, address ParamAddress, value float32, duration uint32) Event {
	return Event{Kind: EventParameterRamp, Offset: offset, Address: address, Value: value, Duration: duration}
}

// MIDI builds a MIDI event from raw bytes.
func MIDI(offset int, data []byte) Event {
	return Event{Kind: EventMIDI, Offset: offset, MIDI: MIDIFromBytes(data)}
}

func (e Event) String() string {
	switch e.Kind {
	case EventParameterRamp:
		return fmt.Sprintf("Ramp{addr:%d, value:%g, duration:%d, offset:%d}", e.Address, e.Value, e.Duration, e.Offset)
	case EventMIDI:
		return fmt.Sprintf("MIDI{cable:%d, data:% X, offset:%d}", e.MIDI.Cable, e.MIDI.Bytes(), e.Offset)
	default:
		return fmt.Sprintf("Event{kind:%d, offset:%d}", e.Kind, e.Offset)
	}
}

// SortEvents orders events by offset, keeping arrival order for equal offsets. Hosts call
// it while building a block; it is not meant for the render thread.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
}
