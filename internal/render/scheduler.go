package render

// Kernel is the render-thread surface a scheduler drives.
type Kernel interface {
	// StartRamp begins a parameter ramp at the current sample.
	StartRamp(address ParamAddress, value float32, duration uint32)
	// HandleMIDIEvent applies a MIDI message at the current sample.
	HandleMIDIEvent(ev MIDIEvent)
	// Process renders frameCount samples starting bufferOffset samples into the bound
	// buffers. The span never contains an event.
	Process(frameCount, bufferOffset int)
}

// MIDIOutFunc receives MIDI emitted during a render call, stamped with its absolute
// sample time.
type MIDIOutFunc func(sampleTime int64, cable uint8, data []byte)

type schedulerConfig struct {
	midiThru bool
}

// Option configures a Scheduler.
type Option func(*schedulerConfig)

// WithMIDIThru echoes every applied MIDI event to the render call's MIDIOutFunc.
func WithMIDIThru() Option {
	return func(cfg *schedulerConfig) {
		cfg.midiThru = true
	}
}

// Scheduler splits each render call at event offsets. It is used from the render thread
// only and never allocates.
type Scheduler[K Kernel] struct {
	kernel     K
	midiThru   bool
	scheduling bool
}

func NewScheduler[K Kernel](kernel K, opts ...Option) *Scheduler[K] {
	var cfg schedulerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler[K]{kernel: kernel, midiThru: cfg.midiThru}
}

// Kernel returns the scheduled kernel.
func (s *Scheduler[K]) Kernel() K { return s.kernel }

// ProcessWithEvents renders frameCount samples, applying each event at its offset.
//
// Events are expected sorted by offset. An event whose offset lies behind the current
// position is applied late, at the current position. An event at or past frameCount is
// clamped to the last sample of the call. A call with frameCount <= 0 does nothing.
func (s *Scheduler[K]) ProcessWithEvents(timestamp int64, frameCount int, events []Event, midiOut MIDIOutFunc) {
	if frameCount <= 0 {
		return
	}
	if s.scheduling {
		panic("render: re-entrant ProcessWithEvents")
	}
	s.scheduling = true

	now := 0
	i := 0
	for now < frameCount {
		if i >= len(events) {
			s.kernel.Process(frameCount-now, now)
			break
		}
		at := eventPosition(events[i].Offset, now, frameCount)
		if at > now {
			s.kernel.Process(at-now, now)
			now = at
		}
		for i < len(events) && eventPosition(events[i].Offset, now, frameCount) == now {
			s.perform(timestamp+int64(now), &events[i], midiOut)
			i++
		}
	}

	s.scheduling = false
}

func (s *Scheduler[K]) perform(sampleTime int64, ev *Event, midiOut MIDIOutFunc) {
	switch ev.Kind {
	case EventParameterRamp:
		s.kernel.StartRamp(ev.Address, ev.Value, ev.Duration)
	case EventMIDI:
		s.kernel.HandleMIDIEvent(ev.MIDI)
		if s.midiThru && midiOut != nil {
			midiOut(sampleTime, ev.MIDI.Cable, ev.MIDI.Bytes())
		}
	}
}

func eventPosition(offset, now, frameCount int) int {
	if offset >= frameCount {
		offset = frameCount - 1
	}
	if offset < now {
		offset = now
	}
	return offset
}
