// Package aukernel hosts real-time audio kernels: a dezippered resonant low-pass filter
// and a polyphonic MIDI instrument, driven by sample-accurate render events.
package aukernel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cbegin/aukernel-go/internal/filter"
	"github.com/cbegin/aukernel-go/internal/render"
	"github.com/cbegin/aukernel-go/internal/synth"
)

var (
	ErrUnknownKernel  = errors.New("aukernel: unknown kernel kind")
	ErrNotInitialized = errors.New("aukernel: engine not initialized")
)

type (
	ParamAddress = render.ParamAddress
	Event        = render.Event
	MIDIOutFunc  = render.MIDIOutFunc
)

const (
	ParamCutoff    = filter.ParamCutoff
	ParamResonance = filter.ParamResonance
	ParamAttack    = synth.ParamAttack
	ParamRelease   = synth.ParamRelease
)

const defaultSampleRate = 44100

// RampEvent schedules a parameter ramp offset samples into a render call.
func RampEvent(offset int, address ParamAddress, value float32, duration uint32) Event {
	return render.Ramp(offset, address, value, duration)
}

// MIDIEvent schedules a raw MIDI message offset samples into a render call.
func MIDIEvent(offset int, data []byte) Event {
	return render.MIDI(offset, data)
}

// KernelKind selects the DSP kernel an Engine runs.
type KernelKind string

const (
	KernelFilter     KernelKind = "filter"
	KernelInstrument KernelKind = "instrument"
)

func ParseKernelKind(name string) (KernelKind, error) {
	switch KernelKind(strings.ToLower(strings.TrimSpace(name))) {
	case KernelFilter:
		return KernelFilter, nil
	case KernelInstrument:
		return KernelInstrument, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
}

// SchedulerOption configures the event scheduler inside an Engine.
type SchedulerOption = render.Option

// WithMIDIThru echoes every applied MIDI event to the render call's MIDIOutFunc.
func WithMIDIThru() SchedulerOption { return render.WithMIDIThru() }

// Engine runs one kernel behind a sample-accurate event scheduler. Render-thread methods
// are ProcessWithEvents and Reset; SetParameter, Parameter and Parameters are safe from
// one other thread.
type Engine struct {
	kind       KernelKind
	filter     *render.Scheduler[*filter.Kernel]
	synth      *render.Scheduler[*synth.Kernel]
	sampleRate float64
	ready      bool
}

func NewEngine(kind KernelKind, opts ...SchedulerOption) (*Engine, error) {
	e := &Engine{kind: kind, sampleRate: defaultSampleRate}
	switch kind {
	case KernelFilter:
		e.filter = render.NewScheduler(filter.New(), opts...)
	case KernelInstrument:
		e.synth = render.NewScheduler(synth.New(), opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, kind)
	}
	return e, nil
}

func (e *Engine) Kind() KernelKind { return e.kind }

// Init allocates kernel state. The instrument requires two channels.
func (e *Engine) Init(channelCount int, sampleRate float64) error {
	var err error
	switch e.kind {
	case KernelFilter:
		err = e.filter.Kernel().Init(channelCount, sampleRate)
	case KernelInstrument:
		err = e.synth.Kernel().Init(channelCount, sampleRate)
	}
	if err != nil {
		return err
	}
	e.sampleRate = sampleRate
	e.ready = true
	return nil
}

func (e *Engine) Reset() {
	switch e.kind {
	case KernelFilter:
		e.filter.Kernel().Reset()
	case KernelInstrument:
		e.synth.Kernel().Reset()
	}
}

// SetBuffers binds per-channel input and output buffers. The filter may run in place;
// the instrument ignores in.
func (e *Engine) SetBuffers(in, out [][]float32) {
	switch e.kind {
	case KernelFilter:
		e.filter.Kernel().SetBuffers(in, out)
	case KernelInstrument:
		e.synth.Kernel().SetBuffers(in, out)
	}
}

// ProcessWithEvents renders frameCount samples into the bound buffers, applying events
// at their offsets.
func (e *Engine) ProcessWithEvents(timestamp int64, frameCount int, events []Event, midiOut MIDIOutFunc) error {
	if !e.ready {
		return ErrNotInitialized
	}
	switch e.kind {
	case KernelFilter:
		e.filter.ProcessWithEvents(timestamp, frameCount, events, midiOut)
	case KernelInstrument:
		e.synth.ProcessWithEvents(timestamp, frameCount, events, midiOut)
	}
	return nil
}

func (e *Engine) SetParameter(address ParamAddress, value float32) {
	switch e.kind {
	case KernelFilter:
		e.filter.Kernel().SetParameter(address, value)
	case KernelInstrument:
		e.synth.Kernel().SetParameter(address, value)
	}
}

func (e *Engine) Parameter(address ParamAddress) float32 {
	switch e.kind {
	case KernelFilter:
		return e.filter.Kernel().Parameter(address)
	case KernelInstrument:
		return e.synth.Kernel().Parameter(address)
	}
	return 0
}

// Parameters describes the kernel's parameters.
func (e *Engine) Parameters() []ParameterInfo {
	return parametersFor(e.kind, e.sampleRate)
}

// MagnitudesForFrequencies returns the filter's response at each frequency in Hz for the
// current parameter targets.
func (e *Engine) MagnitudesForFrequencies(hz []float64, dst []float64) ([]float64, error) {
	if e.kind != KernelFilter {
		return dst, fmt.Errorf("aukernel: %s kernel has no frequency response: %w", e.kind, errors.ErrUnsupported)
	}
	return e.filter.Kernel().MagnitudesForFrequencies(hz, dst), nil
}

// PlayingNotes appends the instrument's sounding notes, most recent first. Render thread.
func (e *Engine) PlayingNotes(dst []int) []int {
	if e.kind != KernelInstrument {
		return dst
	}
	return e.synth.Kernel().PlayingNotes(dst)
}
