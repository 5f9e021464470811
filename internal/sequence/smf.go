package sequence

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// FromSMF reads every track of a Standard MIDI File and keeps note and controller
// messages, timed by the file's tempo map.
func FromSMF(r io.Reader, sampleRate float64) (*Timeline, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sequence: invalid sample rate %v", sampleRate)
	}
	tl := New(sampleRate)
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		msg := midi.Message(te.Message)
		var ch, key, vel, ctl, val uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
		case msg.GetNoteEnd(&ch, &key):
		case msg.GetControlChange(&ch, &ctl, &val):
		default:
			return
		}
		tl.AddMIDI(tl.Frame(float64(te.AbsMicroSeconds)/1e6), msg)
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("sequence: read smf: %w", err)
	}
	if len(tl.Events) == 0 {
		return nil, ErrEmpty
	}
	tl.Sort()
	return tl, nil
}

const smfResolution = smf.MetricTicks(960)

// WriteSMF writes notes as a single-track Standard MIDI File at a fixed tempo.
func WriteSMF(w io.Writer, notes []Note, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("sequence: invalid tempo %v", bpm)
	}
	ticksPerSecond := float64(smfResolution.Ticks4th()) * bpm / 60
	tick := func(seconds float64) uint32 {
		return uint32(math.Round(seconds * ticksPerSecond))
	}

	type stamped struct {
		tick uint32
		msg  midi.Message
	}
	msgs := make([]stamped, 0, 2*len(notes))
	for _, n := range notes {
		msgs = append(msgs,
			stamped{tick(n.Start), midi.NoteOn(n.Channel, n.Key, n.Velocity)},
			stamped{tick(n.Start + n.Duration), midi.NoteOff(n.Channel, n.Key)},
		)
	}
	slices.SortStableFunc(msgs, func(a, b stamped) int {
		return cmp.Compare(a.tick, b.tick)
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	var last uint32
	for _, m := range msgs {
		tr.Add(m.tick-last, m.msg)
		last = m.tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smfResolution
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("sequence: build smf: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("sequence: write smf: %w", err)
	}
	return nil
}
