// Package synth implements a 128-note polyphonic sine-cubed instrument. Each MIDI note
// number owns one fixed voice; sounding voices are threaded on an index-linked list so
// rendering only visits what is playing.
package synth

import (
	"fmt"
	"math"

	"github.com/cbegin/aukernel-go/internal/ramp"
	"github.com/cbegin/aukernel-go/internal/render"
)

const (
	ParamAttack  render.ParamAddress = 0
	ParamRelease render.ParamAddress = 1
)

// Envelope times in seconds.
const (
	MinEnvelopeTime = 0.001
	MaxEnvelopeTime = 10.0
	DefaultAttack   = 0.01
	DefaultRelease  = 0.1

	outputGain = 0.1
)

// MIDI controllers that silence every note.
const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

type Kernel struct {
	notes   [noteCount]note
	head    int16
	playing int

	sampleRate     float64
	attackSamples  uint32
	releaseSamples uint32

	// Times are published through rampers with no dezipper so control-thread writes
	// never race the render thread.
	attack  ramp.Ramper
	release ramp.Ramper

	outL, outR []float32
}

func New() *Kernel {
	k := &Kernel{sampleRate: 44100}
	k.attack.Init(DefaultAttack)
	k.release.Init(DefaultRelease)
	k.unlinkAll()
	k.refreshEnvelope()
	return k
}

// Init prepares the kernel for stereo output at sampleRate.
func (k *Kernel) Init(channelCount int, sampleRate float64) error {
	if channelCount != 2 {
		return fmt.Errorf("synth: output must be stereo, got %d channels", channelCount)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("synth: invalid sample rate %v", sampleRate)
	}
	k.sampleRate = sampleRate
	k.Reset()
	return nil
}

// Reset silences every note and applies pending envelope times.
func (k *Kernel) Reset() {
	k.unlinkAll()
	k.attack.Reset()
	k.release.Reset()
	k.refreshEnvelope()
}

func (k *Kernel) unlinkAll() {
	for i := range k.notes {
		n := &k.notes[i]
		n.clear()
		n.prev, n.next = none, none
	}
	k.head = none
	k.playing = 0
}

// SetBuffers binds the stereo output. The instrument reads no input.
func (k *Kernel) SetBuffers(_, out [][]float32) {
	if len(out) < 2 {
		k.outL, k.outR = nil, nil
		return
	}
	k.outL, k.outR = out[0], out[1]
}

// SetParameter publishes an envelope time in seconds. NaN is ignored. Control thread.
func (k *Kernel) SetParameter(address render.ParamAddress, value float32) {
	if value != value {
		return
	}
	switch address {
	case ParamAttack:
		k.attack.SetTarget(clampTime(value), 0)
	case ParamRelease:
		k.release.SetTarget(clampTime(value), 0)
	}
}

func (k *Kernel) Parameter(address render.ParamAddress) float32 {
	switch address {
	case ParamAttack:
		return k.attack.UIValue()
	case ParamRelease:
		return k.release.UIValue()
	default:
		return 0
	}
}

// StartRamp applies an envelope time immediately; envelope times are not ramped.
func (k *Kernel) StartRamp(address render.ParamAddress, value float32, _ uint32) {
	if value != value {
		return
	}
	switch address {
	case ParamAttack:
		k.attack.StartRamp(clampTime(value), 0)
	case ParamRelease:
		k.release.StartRamp(clampTime(value), 0)
	default:
		return
	}
	k.refreshEnvelope()
}

func (k *Kernel) refreshEnvelope() {
	k.attack.DezipperCheck(0)
	k.release.DezipperCheck(0)
	k.attackSamples = k.secondsToSamples(k.attack.Value())
	k.releaseSamples = k.secondsToSamples(k.release.Value())
}

func (k *Kernel) secondsToSamples(seconds float32) uint32 {
	n := uint32(math.Round(float64(seconds) * k.sampleRate))
	if n < 1 {
		return 1
	}
	return n
}

// AttackSamples and ReleaseSamples report the envelope lengths in use on the render thread.
func (k *Kernel) AttackSamples() uint32  { return k.attackSamples }
func (k *Kernel) ReleaseSamples() uint32 { return k.releaseSamples }

// HandleMIDIEvent applies a three-byte channel message on any channel. Everything else,
// including messages with out-of-range data bytes, is ignored.
func (k *Kernel) HandleMIDIEvent(ev render.MIDIEvent) {
	if ev.Length != 3 {
		return
	}
	data1, data2 := ev.Data[1], ev.Data[2]
	if data1 > 127 || data2 > 127 {
		return
	}
	k.refreshEnvelope()

	switch ev.Status() {
	case 0x80:
		k.noteOff(data1)
	case 0x90:
		if data2 == 0 {
			k.noteOff(data1)
		} else {
			k.noteOn(data1, data2)
		}
	case 0xB0:
		if data1 == ccAllNotesOff || data1 == ccAllSoundOff {
			k.allNotesOff()
		}
	}
}

func (k *Kernel) noteOn(number, velocity uint8) {
	n := &k.notes[number]
	if n.stage == StageOff {
		k.link(int16(number))
	}
	n.start(number, velocity, k.sampleRate, k.attackSamples)
}

func (k *Kernel) noteOff(number uint8) {
	k.notes[number].stop(k.releaseSamples)
}

func (k *Kernel) allNotesOff() {
	for i := k.head; i != none; {
		next := k.notes[i].next
		k.notes[i].clear()
		k.unlink(i)
		i = next
	}
}

func (k *Kernel) link(i int16) {
	n := &k.notes[i]
	n.prev = none
	n.next = k.head
	if k.head != none {
		k.notes[k.head].prev = i
	}
	k.head = i
	k.playing++
}

func (k *Kernel) unlink(i int16) {
	n := &k.notes[i]
	if n.prev != none {
		k.notes[n.prev].next = n.next
	} else {
		k.head = n.next
	}
	if n.next != none {
		k.notes[n.next].prev = n.prev
	}
	n.prev, n.next = none, none
	k.playing--
}

// Process renders frameCount stereo samples at bufferOffset, replacing the span's
// previous contents. It does nothing until SetBuffers has bound two outputs.
func (k *Kernel) Process(frameCount, bufferOffset int) {
	if k.outL == nil || frameCount <= 0 {
		return
	}
	k.refreshEnvelope()

	outL := k.outL[bufferOffset : bufferOffset+frameCount]
	outR := k.outR[bufferOffset : bufferOffset+frameCount]
	clear(outL)
	clear(outR)

	for i := k.head; i != none; {
		n := &k.notes[i]
		next := n.next
		if n.stage == StageOff {
			panic(fmt.Sprintf("synth: note %d is on the playing list while off", i))
		}
		if n.render(outL, outR) {
			n.clear()
			k.unlink(i)
		}
		i = next
	}

	for j := range outL {
		outL[j] *= outputGain
		outR[j] *= outputGain
	}
}

// PlayingCount returns the number of sounding notes.
func (k *Kernel) PlayingCount() int { return k.playing }

// Stage returns the envelope stage of a MIDI note number.
func (k *Kernel) Stage(number int) Stage { return k.notes[number].stage }

// PlayingNotes appends the sounding note numbers in list order, most recent first.
func (k *Kernel) PlayingNotes(dst []int) []int {
	for i := k.head; i != none; i = k.notes[i].next {
		dst = append(dst, int(i))
	}
	return dst
}

func clampTime(seconds float32) float32 {
	if seconds < MinEnvelopeTime {
		return MinEnvelopeTime
	}
	if seconds > MaxEnvelopeTime {
		return MaxEnvelopeTime
	}
	return seconds
}
