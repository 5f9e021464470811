package aukernel

import (
	"errors"
	"sync"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"

	intaudio "github.com/cbegin/aukernel-go/internal/audio"
	"github.com/cbegin/aukernel-go/internal/render"
)

var ErrQueueFull = errors.New("aukernel: event queue full")

type Backend = intaudio.Backend

const (
	BackendEbiten = intaudio.BackendEbiten
	BackendOto    = intaudio.BackendOto
)

func ParseBackend(name string) (Backend, error) {
	return intaudio.ParseBackend(name)
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	backend   Backend
	blockSize int
	queueSize int
	sampleTap func([]float32)
	midiOut   MIDIOutFunc
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{backend: BackendEbiten, blockSize: DefaultBlockSize, queueSize: 256}
}

func WithBackend(backend Backend) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = backend
	}
}

// WithPlayerBlockSize sets the largest block rendered between event drains.
func WithPlayerBlockSize(frames int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.blockSize = frames
	}
}

// WithEventQueue sets how many events may wait for the audio thread.
func WithEventQueue(size int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.queueSize = size
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// WithMIDIOut echoes every note and controller the instrument receives. The callback
// runs on the audio thread.
func WithMIDIOut(fn MIDIOutFunc) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.midiOut = fn
	}
}

type hostEvent struct {
	target Target
	event  Event
}

// Player plays the instrument -> filter chain live. Note and ramp calls are queued for
// the audio thread and applied at the start of the next block; SetParameter goes
// straight to the kernels' dezippered parameters.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	backend    Backend
	chain      *Chain
	output     intaudio.Output
	events     chan hostEvent
	dropped    atomic.Int64

	// audio thread only
	frame     int64
	inst, fx  []Event
	sampleTap func([]float32)
	midiOut   MIDIOutFunc
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.queueSize <= 0 {
		return nil, errors.New("event queue size must be positive")
	}
	var schedOpts []SchedulerOption
	if cfg.midiOut != nil {
		schedOpts = append(schedOpts, WithMIDIThru())
	}
	chain, err := NewChain(float64(sampleRate), cfg.blockSize, schedOpts...)
	if err != nil {
		return nil, err
	}
	return &Player{
		sampleRate: sampleRate,
		backend:    cfg.backend,
		chain:      chain,
		events:     make(chan hostEvent, cfg.queueSize),
		inst:       make([]Event, 0, cfg.queueSize),
		fx:         make([]Event, 0, cfg.queueSize),
		sampleTap:  cfg.sampleTap,
		midiOut:    cfg.midiOut,
	}, nil
}

func (p *Player) SampleRate() int { return p.sampleRate }

func (p *Player) enqueue(target Target, ev Event) error {
	select {
	case p.events <- hostEvent{target: target, event: ev}:
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

func (p *Player) sendMIDI(msg midi.Message) error {
	return p.enqueue(TargetInstrument, render.MIDI(0, msg))
}

func (p *Player) NoteOn(channel, key, velocity uint8) error {
	return p.sendMIDI(midi.NoteOn(channel, key, velocity))
}

func (p *Player) NoteOff(channel, key uint8) error {
	return p.sendMIDI(midi.NoteOff(channel, key))
}

// AllNotesOff silences the instrument immediately.
func (p *Player) AllNotesOff() error {
	return p.sendMIDI(midi.ControlChange(0, 123, 0))
}

// SendMIDI queues a raw message for the instrument.
func (p *Player) SendMIDI(data []byte) error {
	return p.enqueue(TargetInstrument, render.MIDI(0, data))
}

// SetParameter publishes a new target; the kernel dezippers it.
func (p *Player) SetParameter(target Target, address ParamAddress, value float32) {
	p.chain.SetParameter(target, address, value)
}

func (p *Player) Parameter(target Target, address ParamAddress) float32 {
	return p.chain.Parameter(target, address)
}

// RampParameter queues an explicit ramp over duration samples.
func (p *Player) RampParameter(target Target, address ParamAddress, value float32, duration uint32) error {
	return p.enqueue(target, render.Ramp(0, address, value, duration))
}

// Dropped returns how many events were rejected because the queue was full.
func (p *Player) Dropped() int64 { return p.dropped.Load() }

// Process renders interleaved stereo into dst. It is the audio-thread entry point.
func (p *Player) Process(dst []float32) {
	frames := len(dst) / 2
	block := p.chain.MaxFrames()
	for done := 0; done < frames; {
		n := min(block, frames-done)
		p.drain()
		p.chain.render(p.frame, n, p.inst, p.fx, p.midiOut)
		p.chain.Interleave(dst[done*2:])
		p.frame += int64(n)
		done += n
	}
	if p.sampleTap != nil {
		p.sampleTap(dst)
	}
}

// drain moves queued events into the block's event lists without blocking.
func (p *Player) drain() {
	p.inst = p.inst[:0]
	p.fx = p.fx[:0]
	for len(p.inst) < cap(p.inst) && len(p.fx) < cap(p.fx) {
		select {
		case ev := <-p.events:
			switch ev.target {
			case TargetInstrument:
				p.inst = append(p.inst, ev.event)
			case TargetEffect:
				p.fx = append(p.fx, ev.event)
			}
		default:
			return
		}
	}
}

// Play opens the audio backend on first use and starts output.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output == nil {
		out, err := intaudio.Open(p.backend, p.sampleRate, p)
		if err != nil {
			return err
		}
		p.output = out
	}
	p.output.Play()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output != nil {
		p.output.Pause()
	}
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output != nil && p.output.IsPlaying()
}

// Stop closes the backend. A later Play opens a new one.
func (p *Player) Stop() error {
	p.mu.Lock()
	out := p.output
	p.output = nil
	p.mu.Unlock()
	if out == nil {
		return nil
	}
	return out.Close()
}

// PlaybackPosition returns the current output position of the audio driver in samples,
// i.e. what the listener actually hears right now. Returns 0 if not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	out := p.output
	p.mu.Unlock()
	if out == nil {
		return 0
	}
	return int64(out.Position().Seconds() * float64(p.sampleRate))
}
