package aukernel

import (
	"errors"
	"fmt"

	"github.com/cbegin/aukernel-go/internal/filter"
	"github.com/cbegin/aukernel-go/internal/render"
	"github.com/cbegin/aukernel-go/internal/sequence"
	"github.com/cbegin/aukernel-go/internal/synth"
)

var ErrBlockTooLarge = errors.New("aukernel: block larger than the chain's maximum")

// Target routes an event or parameter to one kernel of a Chain.
type Target = sequence.Target

const (
	TargetInstrument = sequence.TargetInstrument
	TargetEffect     = sequence.TargetEffect
)

// Chain renders the instrument into stereo buffers and runs the filter over them in
// place, one block at a time.
type Chain struct {
	instrument *render.Scheduler[*synth.Kernel]
	effect     *render.Scheduler[*filter.Kernel]
	bufs       [][]float32
	maxFrames  int
	sampleRate float64
	frames     int
}

func NewChain(sampleRate float64, maxFrames int, opts ...SchedulerOption) (*Chain, error) {
	if maxFrames <= 0 {
		return nil, fmt.Errorf("aukernel: invalid block size %d", maxFrames)
	}
	inst := synth.New()
	if err := inst.Init(2, sampleRate); err != nil {
		return nil, err
	}
	fx := filter.New()
	if err := fx.Init(2, sampleRate); err != nil {
		return nil, err
	}
	c := &Chain{
		instrument: render.NewScheduler(inst, opts...),
		effect:     render.NewScheduler(fx),
		bufs:       [][]float32{make([]float32, maxFrames), make([]float32, maxFrames)},
		maxFrames:  maxFrames,
		sampleRate: sampleRate,
	}
	inst.SetBuffers(nil, c.bufs)
	fx.SetBuffers(c.bufs, c.bufs)
	return c, nil
}

func (c *Chain) SampleRate() float64 { return c.sampleRate }
func (c *Chain) MaxFrames() int      { return c.maxFrames }

// Process renders one block. Instrument MIDI thru, if enabled, goes to midiOut.
func (c *Chain) Process(timestamp int64, frames int, instrumentEvents, effectEvents []Event, midiOut MIDIOutFunc) error {
	if frames > c.maxFrames {
		return ErrBlockTooLarge
	}
	c.render(timestamp, frames, instrumentEvents, effectEvents, midiOut)
	return nil
}

// render is Process for callers that already bound frames by MaxFrames.
func (c *Chain) render(timestamp int64, frames int, instrumentEvents, effectEvents []Event, midiOut MIDIOutFunc) {
	c.instrument.ProcessWithEvents(timestamp, frames, instrumentEvents, midiOut)
	c.effect.ProcessWithEvents(timestamp, frames, effectEvents, nil)
	c.frames = max(frames, 0)
}

// Output returns the last rendered block, per channel.
func (c *Chain) Output() (left, right []float32) {
	return c.bufs[0][:c.frames], c.bufs[1][:c.frames]
}

// Interleave copies the last block into dst as L/R pairs and returns the frames copied.
func (c *Chain) Interleave(dst []float32) int {
	n := min(c.frames, len(dst)/2)
	l, r := c.bufs[0], c.bufs[1]
	for i := 0; i < n; i++ {
		dst[2*i] = l[i]
		dst[2*i+1] = r[i]
	}
	return n
}

func (c *Chain) Reset() {
	c.instrument.Kernel().Reset()
	c.effect.Kernel().Reset()
}

// SetParameter publishes a parameter target on one kernel. Control thread.
func (c *Chain) SetParameter(target Target, address ParamAddress, value float32) {
	switch target {
	case TargetInstrument:
		c.instrument.Kernel().SetParameter(address, value)
	case TargetEffect:
		c.effect.Kernel().SetParameter(address, value)
	}
}

func (c *Chain) Parameter(target Target, address ParamAddress) float32 {
	switch target {
	case TargetInstrument:
		return c.instrument.Kernel().Parameter(address)
	case TargetEffect:
		return c.effect.Kernel().Parameter(address)
	}
	return 0
}

// PlayingCount returns the number of sounding instrument notes. Render thread.
func (c *Chain) PlayingCount() int { return c.instrument.Kernel().PlayingCount() }
