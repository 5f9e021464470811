// Package automation generates parameter ramp events from low-frequency oscillators so a
// host can sweep kernel parameters without touching the control thread.
package automation

import (
	"fmt"
	"math"
	"strings"
)

type Waveform int

const (
	WaveSaw Waveform = iota
	WaveSquare
	WaveTriangle
	WaveRandom
	WaveSine
)

func (w Waveform) String() string {
	switch w {
	case WaveSaw:
		return "saw"
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	case WaveRandom:
		return "random"
	case WaveSine:
		return "sine"
	default:
		return "unknown"
	}
}

// ParseWaveform accepts the names returned by Waveform.String.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "saw":
		return WaveSaw, nil
	case "square":
		return WaveSquare, nil
	case "triangle", "tri":
		return WaveTriangle, nil
	case "random", "s&h":
		return WaveRandom, nil
	case "sine", "sin":
		return WaveSine, nil
	default:
		return 0, fmt.Errorf("automation: unknown waveform %q", name)
	}
}

// LFO oscillates around a center value. It advances in whole blocks rather than per
// sample.
type LFO struct {
	center   float64
	depth    float64
	rateHz   float64
	waveform Waveform
	phase    float64 // [0, 1)
	randVal  float64 // held value for sample-and-hold
}

// Set configures the oscillator. Unknown waveforms fall back to triangle.
func (l *LFO) Set(center, depth, rateHz float64, waveform Waveform) {
	l.center = center
	l.depth = depth
	l.rateHz = rateHz
	if waveform < WaveSaw || waveform > WaveSine {
		waveform = WaveTriangle
	}
	l.waveform = waveform
}

// Value returns the oscillator output at the current phase, in [center-depth, center+depth].
func (l *LFO) Value() float64 {
	if !l.Active() {
		return l.center
	}
	return l.center + l.shape()*l.depth
}

func (l *LFO) shape() float64 {
	switch l.waveform {
	case WaveSaw:
		return 1.0 - 2.0*l.phase
	case WaveSquare:
		if l.phase < 0.5 {
			return 1.0
		}
		return -1.0
	case WaveRandom:
		return l.randVal
	case WaveSine:
		return math.Sin(2 * math.Pi * l.phase)
	default:
		if l.phase < 0.5 {
			return 4.0*l.phase - 1.0
		}
		return 3.0 - 4.0*l.phase
	}
}

// Advance moves the phase forward by frames samples.
func (l *LFO) Advance(frames int, sampleRate float64) {
	if !l.Active() || sampleRate <= 0 || frames <= 0 {
		return
	}
	l.phase += float64(frames) * l.rateHz / sampleRate
	if l.phase < 1.0 {
		return
	}
	l.phase -= math.Floor(l.phase)
	if l.waveform == WaveRandom {
		// sine hash, refreshed once per completed cycle
		v := math.Sin(l.phase*12345.6789+l.randVal*67890.1234) * 2.0
		v -= math.Floor(v)
		l.randVal = v*2.0 - 1.0
	}
}

// Active reports whether the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Reset zeros the phase.
func (l *LFO) Reset() {
	l.phase = 0
	l.randVal = 0
}

// Bounds returns the range Value can take.
func (l *LFO) Bounds() (lo, hi float64) {
	d := math.Abs(l.depth)
	return l.center - d, l.center + d
}
