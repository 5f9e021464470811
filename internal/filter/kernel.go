// Package filter implements a resonant low-pass biquad kernel whose cutoff and resonance
// are dezippered and whose coefficients are recomputed on every sample.
package filter

import (
	"fmt"
	"math"

	"github.com/cbegin/aukernel-go/internal/ramp"
	"github.com/cbegin/aukernel-go/internal/render"
)

const (
	ParamCutoff    render.ParamAddress = 0
	ParamResonance render.ParamAddress = 1
)

// Cutoff is held normalized to Nyquist. The bounds map to 12 Hz and 20 kHz at 44.1 kHz
// and keep the poles away from the Nyquist boundary.
const (
	MinCutoff        = 0.0005444
	MaxCutoff        = 0.9070295
	MinResonance     = -20.0
	MaxResonance     = 20.0
	DefaultCutoff    = 400.0 / 44100.0
	DefaultResonance = 20.0

	dezipperSeconds = 0.02
)

// State holds one channel's feedback registers.
type State struct {
	X1, X2 float32
	Y1, Y2 float32
}

func (s *State) clear() { *s = State{} }

// scrub zeroes denormal, infinite and NaN registers so a blow-up cannot latch.
func (s *State) scrub() {
	s.X1 = flushBad(s.X1)
	s.X2 = flushBad(s.X2)
	s.Y1 = flushBad(s.Y1)
	s.Y2 = flushBad(s.Y2)
}

// flushBad passes x through when 1e-15 < |x| < 1e15. NaN fails both comparisons.
func flushBad(x float32) float32 {
	ax := float32(math.Abs(float64(x)))
	if ax > 1e-15 && ax < 1e15 {
		return x
	}
	return 0
}

type Kernel struct {
	states []State
	coeffs Coefficients

	sampleRate       float64
	nyquist          float64
	inverseNyquist   float64
	dezipperDuration uint32

	cutoff    ramp.Ramper
	resonance ramp.Ramper

	in, out [][]float32
}

func New() *Kernel {
	k := &Kernel{}
	k.setSampleRate(44100)
	k.cutoff.Init(DefaultCutoff)
	k.resonance.Init(DefaultResonance)
	return k
}

func (k *Kernel) setSampleRate(sampleRate float64) {
	k.sampleRate = sampleRate
	k.nyquist = 0.5 * sampleRate
	k.inverseNyquist = 1 / k.nyquist
	k.dezipperDuration = uint32(math.Floor(dezipperSeconds * sampleRate))
}

// Init allocates per-channel state. Call it before rendering, off the render thread.
func (k *Kernel) Init(channelCount int, sampleRate float64) error {
	if channelCount <= 0 {
		return fmt.Errorf("filter: channel count %d must be positive", channelCount)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("filter: invalid sample rate %v", sampleRate)
	}
	k.states = make([]State, channelCount)
	k.setSampleRate(sampleRate)
	k.cutoff.Init(k.cutoff.UIValue())
	k.resonance.Init(k.resonance.UIValue())
	k.coeffs = Coefficients{}
	return nil
}

// Reset clears filter memory and snaps both ramps to their targets.
func (k *Kernel) Reset() {
	for i := range k.states {
		k.states[i].clear()
	}
	k.coeffs = Coefficients{}
	k.cutoff.Reset()
	k.resonance.Reset()
}

// SetBuffers binds the channel buffers used by Process. in and out may be the same.
func (k *Kernel) SetBuffers(in, out [][]float32) {
	k.in = in
	k.out = out
}

// ChannelCount returns the number of channels allocated by Init.
func (k *Kernel) ChannelCount() int { return len(k.states) }

// State returns a copy of a channel's feedback registers.
func (k *Kernel) State(channel int) State { return k.states[channel] }

// SetParameter publishes a new target. Cutoff is in Hz, resonance in dB. NaN is ignored.
func (k *Kernel) SetParameter(address render.ParamAddress, value float32) {
	if isNaN(value) {
		return
	}
	switch address {
	case ParamCutoff:
		k.cutoff.SetUIValue(k.normalizeCutoff(value))
	case ParamResonance:
		k.resonance.SetUIValue(clamp(value, MinResonance, MaxResonance))
	}
}

// Parameter returns the published target, never the ramping value.
func (k *Kernel) Parameter(address render.ParamAddress) float32 {
	switch address {
	case ParamCutoff:
		hz := float64(k.cutoff.UIValue()) * k.nyquist
		return float32(math.Round(hz*100) / 100)
	case ParamResonance:
		return k.resonance.UIValue()
	default:
		return 0
	}
}

// StartRamp begins a ramp at the current sample. Render thread.
func (k *Kernel) StartRamp(address render.ParamAddress, value float32, duration uint32) {
	if isNaN(value) {
		return
	}
	switch address {
	case ParamCutoff:
		k.cutoff.StartRamp(k.normalizeCutoff(value), duration)
	case ParamResonance:
		k.resonance.StartRamp(clamp(value, MinResonance, MaxResonance), duration)
	}
}

// HandleMIDIEvent is a no-op: the filter has no MIDI behaviour.
func (k *Kernel) HandleMIDIEvent(render.MIDIEvent) {}

func (k *Kernel) normalizeCutoff(hz float32) float32 {
	return clamp(float32(float64(hz)*k.inverseNyquist), MinCutoff, MaxCutoff)
}

// Process filters frameCount samples of every channel starting at bufferOffset.
func (k *Kernel) Process(frameCount, bufferOffset int) {
	k.cutoff.DezipperCheck(k.dezipperDuration)
	k.resonance.DezipperCheck(k.dezipperDuration)

	channels := len(k.states)
	if len(k.in) < channels {
		channels = len(k.in)
	}
	if len(k.out) < channels {
		channels = len(k.out)
	}

	c := &k.coeffs
	for i := 0; i < frameCount; i++ {
		// Coefficients follow the ramps sample by sample.
		cutoff := float64(k.cutoff.GetAndStep())
		resonance := float64(k.resonance.GetAndStep())
		c.SetLowpass(cutoff, resonance)

		frame := bufferOffset + i
		for ch := 0; ch < channels; ch++ {
			st := &k.states[ch]
			x0 := k.in[ch][frame]
			y0 := c.B0*x0 + c.B1*st.X1 + c.B2*st.X2 - c.A1*st.Y1 - c.A2*st.Y2
			k.out[ch][frame] = y0

			st.X2 = st.X1
			st.X1 = x0
			st.Y2 = st.Y1
			st.Y1 = y0
		}
	}

	for ch := range k.states {
		k.states[ch].scrub()
	}
}

// MagnitudeForFrequency returns the response magnitude at a Nyquist-normalized frequency
// for the current parameter targets. Safe to call from the control thread.
func (k *Kernel) MagnitudeForFrequency(freq float64) float64 {
	var c Coefficients
	c.SetLowpass(float64(k.cutoff.UIValue()), float64(k.resonance.UIValue()))
	return c.MagnitudeForFrequency(freq)
}

// MagnitudesForFrequencies evaluates the response at each frequency in Hz and appends
// the magnitudes to dst.
func (k *Kernel) MagnitudesForFrequencies(hz []float64, dst []float64) []float64 {
	var c Coefficients
	c.SetLowpass(float64(k.cutoff.UIValue()), float64(k.resonance.UIValue()))
	for _, f := range hz {
		dst = append(dst, c.MagnitudeForFrequency(f*k.inverseNyquist))
	}
	return dst
}

func isNaN(v float32) bool { return v != v }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
