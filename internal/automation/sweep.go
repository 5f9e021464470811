package automation

import (
	"errors"

	"github.com/cbegin/aukernel-go/internal/render"
)

// Sweep drives one kernel parameter from an LFO. Each block gets a single ramp that
// starts at the block's first sample and lands on the LFO value at the block's end,
// so the kernel's own ramper interpolates between blocks.
type Sweep struct {
	address    render.ParamAddress
	sampleRate float64
	lfo        LFO
	lo, hi     float64
}

type SweepOption func(*Sweep)

// WithClamp limits emitted values to [lo, hi].
func WithClamp(lo, hi float64) SweepOption {
	return func(s *Sweep) {
		s.lo, s.hi = lo, hi
	}
}

func NewSweep(address render.ParamAddress, sampleRate, center, depth, rateHz float64, waveform Waveform, opts ...SweepOption) (*Sweep, error) {
	if sampleRate <= 0 {
		return nil, errors.New("automation: sampleRate must be positive")
	}
	if rateHz < 0 {
		return nil, errors.New("automation: rate must not be negative")
	}
	s := &Sweep{address: address, sampleRate: sampleRate}
	s.lfo.Set(center, depth, rateHz, waveform)
	s.lo, s.hi = s.lfo.Bounds()
	for _, opt := range opts {
		opt(s)
	}
	if s.lo > s.hi {
		return nil, errors.New("automation: clamp range is empty")
	}
	return s, nil
}

// Next advances the sweep by one block and returns the ramp event for it.
func (s *Sweep) Next(frames int) render.Event {
	s.lfo.Advance(frames, s.sampleRate)
	v := s.lfo.Value()
	if v < s.lo {
		v = s.lo
	} else if v > s.hi {
		v = s.hi
	}
	duration := uint32(0)
	if frames > 0 {
		duration = uint32(frames)
	}
	return render.Ramp(0, s.address, float32(v), duration)
}

// Reset restarts the oscillator.
func (s *Sweep) Reset() { s.lfo.Reset() }

func (s *Sweep) Address() render.ParamAddress { return s.address }
