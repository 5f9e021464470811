package aukernel

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cbegin/aukernel-go/internal/automation"
	"github.com/cbegin/aukernel-go/internal/sequence"
)

type (
	Timeline = sequence.Timeline
	Note     = sequence.Note
	Waveform = automation.Waveform
)

const (
	WaveSaw      = automation.WaveSaw
	WaveSquare   = automation.WaveSquare
	WaveTriangle = automation.WaveTriangle
	WaveRandom   = automation.WaveRandom
	WaveSine     = automation.WaveSine
)

const DefaultBlockSize = 512

// TimelineFromSMF reads a Standard MIDI File into a sample-timed timeline.
func TimelineFromSMF(r io.Reader, sampleRate float64) (*Timeline, error) {
	return sequence.FromSMF(r, sampleRate)
}

func TimelineFromNotes(notes []Note, sampleRate float64) (*Timeline, error) {
	return sequence.FromNotes(notes, sampleRate)
}

// DemoNotes is a short arpeggio for trying the instrument.
func DemoNotes() []Note {
	return sequence.DemoNotes()
}

// DemoTimeline is DemoNotes at sampleRate.
func DemoTimeline(sampleRate float64) *Timeline {
	return sequence.Demo(sampleRate)
}

// WriteSMF saves notes as a Standard MIDI File at bpm.
func WriteSMF(w io.Writer, notes []Note, bpm float64) error {
	return sequence.WriteSMF(w, notes, bpm)
}

func ParseWaveform(name string) (Waveform, error) {
	return automation.ParseWaveform(name)
}

type RenderOption func(*renderConfig)

type sweepConfig struct {
	center, depth, rateHz float64
	waveform              Waveform
}

type paramSetting struct {
	target  Target
	address ParamAddress
	value   float32
}

type renderConfig struct {
	blockSize int
	tail      float64
	sweep     *sweepConfig
	params    []paramSetting
	progress  func(done, total int64)
}

func defaultRenderConfig() renderConfig {
	return renderConfig{blockSize: DefaultBlockSize, tail: 1}
}

// WithBlockSize sets the render block size in frames.
func WithBlockSize(frames int) RenderOption {
	return func(cfg *renderConfig) {
		cfg.blockSize = frames
	}
}

// WithTail renders extra seconds after the last event so releases can finish.
func WithTail(seconds float64) RenderOption {
	return func(cfg *renderConfig) {
		cfg.tail = seconds
	}
}

// WithCutoffSweep modulates the filter cutoff (Hz) with an LFO, one ramp per block.
func WithCutoffSweep(centerHz, depthHz, rateHz float64, waveform Waveform) RenderOption {
	return func(cfg *renderConfig) {
		cfg.sweep = &sweepConfig{center: centerHz, depth: depthHz, rateHz: rateHz, waveform: waveform}
	}
}

// WithParameter sets a kernel parameter before rendering starts, without a ramp.
func WithParameter(target Target, address ParamAddress, value float32) RenderOption {
	return func(cfg *renderConfig) {
		cfg.params = append(cfg.params, paramSetting{target, address, value})
	}
}

// WithProgress is called after every block with the frames rendered so far.
func WithProgress(fn func(done, total int64)) RenderOption {
	return func(cfg *renderConfig) {
		cfg.progress = fn
	}
}

// RenderTimeline plays a timeline through the instrument -> filter chain and returns
// interleaved stereo samples.
func RenderTimeline(tl *Timeline, opts ...RenderOption) ([]float32, error) {
	if tl == nil {
		return nil, errors.New("aukernel: nil timeline")
	}
	if tl.SampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultRenderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize <= 0 {
		return nil, fmt.Errorf("aukernel: invalid block size %d", cfg.blockSize)
	}
	if cfg.tail < 0 {
		return nil, fmt.Errorf("aukernel: invalid tail %v", cfg.tail)
	}

	chain, err := NewChain(tl.SampleRate, cfg.blockSize)
	if err != nil {
		return nil, err
	}
	for _, p := range cfg.params {
		chain.SetParameter(p.target, p.address, p.value)
	}
	chain.Reset()

	var sweep *automation.Sweep
	if s := cfg.sweep; s != nil {
		info := parametersFor(KernelFilter, tl.SampleRate)[ParamCutoff]
		sweep, err = automation.NewSweep(ParamCutoff, tl.SampleRate, s.center, s.depth, s.rateHz, s.waveform,
			automation.WithClamp(float64(info.Min), float64(info.Max)))
		if err != nil {
			return nil, err
		}
	}

	total := tl.Length() + int64(math.Round(cfg.tail*tl.SampleRate))
	out := make([]float32, total*2)
	block := int64(cfg.blockSize)
	inst := make([]Event, 0, 64)
	fx := make([]Event, 0, 64)
	for start := int64(0); start < total; start += block {
		n := int(min(block, total-start))
		inst = tl.EventsFor(start, n, TargetInstrument, inst[:0])
		fx = fx[:0]
		if sweep != nil {
			fx = append(fx, sweep.Next(n))
		}
		fx = tl.EventsFor(start, n, TargetEffect, fx)
		if err := chain.Process(start, n, inst, fx, nil); err != nil {
			return nil, err
		}
		chain.Interleave(out[start*2:])
		if cfg.progress != nil {
			cfg.progress(start+int64(n), total)
		}
	}
	return out, nil
}

// WriteWAV encodes interleaved stereo samples as 16-bit PCM. Samples are clipped to
// [-1, 1].
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("sampleRate must be positive")
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(float64(clip(s)) * 32767))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("aukernel: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("aukernel: close wav: %w", err)
	}
	return nil
}

func clip(s float32) float32 {
	switch {
	case s != s:
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
