// Package sequence turns note lists and Standard MIDI Files into sample-timed render
// events that a host slices block by block.
package sequence

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"sort"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/aukernel-go/internal/render"
)

var ErrEmpty = errors.New("sequence: no playable events")

// Target selects which kernel of an instrument -> effect chain receives an event.
type Target uint8

const (
	TargetInstrument Target = iota
	TargetEffect
)

func (t Target) String() string {
	switch t {
	case TargetInstrument:
		return "instrument"
	case TargetEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// Event is a render event at an absolute sample position. Event.Offset is unused until
// the event is sliced into a block.
type Event struct {
	Frame  int64
	Target Target
	Event  render.Event
}

// Timeline is a sorted list of events. Events at the same frame keep insertion order.
type Timeline struct {
	SampleRate float64
	Events     []Event
}

func New(sampleRate float64) *Timeline {
	return &Timeline{SampleRate: sampleRate}
}

// Add appends an event. Call Sort before slicing if events were added out of order.
func (tl *Timeline) Add(frame int64, target Target, ev render.Event) {
	tl.Events = append(tl.Events, Event{Frame: frame, Target: target, Event: ev})
}

// AddMIDI appends a raw MIDI message for the instrument.
func (tl *Timeline) AddMIDI(frame int64, msg midi.Message) {
	tl.Add(frame, TargetInstrument, render.MIDI(0, []byte(msg)))
}

// Sort orders events by frame, stably.
func (tl *Timeline) Sort() {
	slices.SortStableFunc(tl.Events, func(a, b Event) int {
		return cmp.Compare(a.Frame, b.Frame)
	})
}

// Length returns the frame after the last event, or 0 for an empty timeline.
func (tl *Timeline) Length() int64 {
	if len(tl.Events) == 0 {
		return 0
	}
	return tl.Events[len(tl.Events)-1].Frame + 1
}

// Frame converts seconds to a sample position.
func (tl *Timeline) Frame(seconds float64) int64 {
	return int64(math.Round(seconds * tl.SampleRate))
}

// EventsFor appends the target's events in [blockStart, blockStart+frames) to dst with
// offsets relative to blockStart.
func (tl *Timeline) EventsFor(blockStart int64, frames int, target Target, dst []render.Event) []render.Event {
	end := blockStart + int64(frames)
	i := sort.Search(len(tl.Events), func(i int) bool {
		return tl.Events[i].Frame >= blockStart
	})
	for ; i < len(tl.Events) && tl.Events[i].Frame < end; i++ {
		ev := tl.Events[i]
		if ev.Target != target {
			continue
		}
		out := ev.Event
		out.Offset = int(ev.Frame - blockStart)
		dst = append(dst, out)
	}
	return dst
}

// Note is a single note in seconds.
type Note struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
	Start    float64
	Duration float64
}

// FromNotes builds a timeline from note-on/note-off pairs.
func FromNotes(notes []Note, sampleRate float64) (*Timeline, error) {
	if len(notes) == 0 {
		return nil, ErrEmpty
	}
	tl := New(sampleRate)
	for _, n := range notes {
		on := tl.Frame(n.Start)
		off := tl.Frame(n.Start + n.Duration)
		if off <= on {
			off = on + 1
		}
		tl.AddMIDI(on, midi.NoteOn(n.Channel, n.Key, n.Velocity))
		tl.AddMIDI(off, midi.NoteOff(n.Channel, n.Key))
	}
	tl.Sort()
	return tl, nil
}

// DemoNotes is a two-bar arpeggio over C, A minor, F and G, one note per eighth at
// 120 BPM.
func DemoNotes() []Note {
	chords := [][]uint8{
		{60, 64, 67, 72},
		{57, 60, 64, 69},
		{53, 57, 60, 65},
		{55, 59, 62, 67},
	}
	const step = 0.25
	notes := make([]Note, 0, 16)
	t := 0.0
	for _, chord := range chords {
		for _, key := range chord {
			notes = append(notes, Note{Key: key, Velocity: 100, Start: t, Duration: step * 0.9})
			t += step
		}
	}
	return notes
}

// Demo returns DemoNotes as a timeline.
func Demo(sampleRate float64) *Timeline {
	tl, _ := FromNotes(DemoNotes(), sampleRate)
	return tl
}
