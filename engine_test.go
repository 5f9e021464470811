package aukernel

import (
	"errors"
	"math"
	"testing"
)

func TestNewEngineRejectsUnknownKind(t *testing.T) {
	if _, err := NewEngine("reverb"); !errors.Is(err, ErrUnknownKernel) {
		t.Fatalf("err = %v, want ErrUnknownKernel", err)
	}
	if _, err := ParseKernelKind("delay"); !errors.Is(err, ErrUnknownKernel) {
		t.Fatalf("err = %v, want ErrUnknownKernel", err)
	}
	kind, err := ParseKernelKind(" Filter ")
	if err != nil || kind != KernelFilter {
		t.Fatalf("ParseKernelKind = %q, %v", kind, err)
	}
}

func TestEngineRequiresInit(t *testing.T) {
	e, err := NewEngine(KernelFilter)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ProcessWithEvents(0, 64, nil, nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
	if err := e.Init(0, 44100); err == nil {
		t.Fatalf("expected error for zero channels")
	}
	if err := e.ProcessWithEvents(0, 64, nil, nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("failed Init left the engine usable")
	}
}

func TestInstrumentEngineRendersNotes(t *testing.T) {
	e, err := NewEngine(KernelInstrument)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Init(2, 48000); err != nil {
		t.Fatal(err)
	}
	out := [][]float32{make([]float32, 512), make([]float32, 512)}
	e.SetBuffers(nil, out)

	events := []Event{
		MIDIEvent(100, []byte{0x90, 60, 100}),
		MIDIEvent(100, []byte{0x90, 64, 100}),
	}
	if err := e.ProcessWithEvents(0, 512, events, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if out[0][i] != 0 || out[1][i] != 0 {
			t.Fatalf("sample %d before the note-on is not silent", i)
		}
	}
	var energy float64
	for i := 100; i < 512; i++ {
		energy += float64(out[0][i] * out[0][i])
	}
	if energy == 0 {
		t.Fatalf("no output after note-on")
	}
	if got := e.PlayingNotes(nil); len(got) != 2 {
		t.Fatalf("playing = %v, want two notes", got)
	}

	e.Reset()
	if got := e.PlayingNotes(nil); len(got) != 0 {
		t.Fatalf("playing after reset = %v", got)
	}
}

func TestFilterEngineInPlace(t *testing.T) {
	e, err := NewEngine(KernelFilter)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Init(1, 44100); err != nil {
		t.Fatal(err)
	}
	buf := [][]float32{make([]float32, 4096)}
	for i := range buf[0] {
		buf[0][i] = 1
	}
	e.SetBuffers(buf, buf)
	e.SetParameter(ParamCutoff, 1000)
	e.SetParameter(ParamResonance, 0)
	if err := e.ProcessWithEvents(0, 4096, nil, nil); err != nil {
		t.Fatal(err)
	}
	// unity DC gain: a step settles at 1
	if got := buf[0][4095]; math.Abs(float64(got)-1) > 1e-3 {
		t.Fatalf("settled output = %v, want 1", got)
	}
	if got := e.Parameter(ParamCutoff); math.Abs(float64(got)-1000) > 0.01 {
		t.Fatalf("cutoff = %v, want 1000", got)
	}
}

func TestEngineRampEventReachesKernel(t *testing.T) {
	e, err := NewEngine(KernelFilter)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Init(2, 44100); err != nil {
		t.Fatal(err)
	}
	bufs := [][]float32{make([]float32, 256), make([]float32, 256)}
	e.SetBuffers(bufs, bufs)
	if err := e.ProcessWithEvents(0, 256, []Event{RampEvent(10, ParamCutoff, 5000, 128)}, nil); err != nil {
		t.Fatal(err)
	}
	if got := e.Parameter(ParamCutoff); math.Abs(float64(got)-5000) > 0.01 {
		t.Fatalf("cutoff after ramp event = %v, want 5000", got)
	}
}

func TestMIDIThruOption(t *testing.T) {
	e, err := NewEngine(KernelInstrument, WithMIDIThru())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Init(2, 44100); err != nil {
		t.Fatal(err)
	}
	e.SetBuffers(nil, [][]float32{make([]float32, 64), make([]float32, 64)})
	var stamps []int64
	out := func(at int64, _ uint8, _ []byte) { stamps = append(stamps, at) }
	if err := e.ProcessWithEvents(640, 64, []Event{MIDIEvent(3, []byte{0x90, 60, 1})}, out); err != nil {
		t.Fatal(err)
	}
	if len(stamps) != 1 || stamps[0] != 643 {
		t.Fatalf("thru stamps = %v, want [643]", stamps)
	}
}

func TestParametersMetadata(t *testing.T) {
	e, err := NewEngine(KernelFilter)
	if err != nil {
		t.Fatal(err)
	}
	params := e.Parameters()
	if len(params) != 2 || params[0].Identifier != "cutoff" || params[1].Identifier != "resonance" {
		t.Fatalf("filter parameters = %+v", params)
	}
	if math.Abs(float64(params[0].Min)-12) > 0.01 || math.Abs(float64(params[0].Max)-20000) > 0.01 {
		t.Fatalf("cutoff range = [%v, %v], want [12, 20000]", params[0].Min, params[0].Max)
	}

	p, ok := ParameterByIdentifier(KernelInstrument, "release")
	if !ok || p.Address != ParamRelease || p.Default != 0.1 || p.Unit != "s" {
		t.Fatalf("release = %+v, %v", p, ok)
	}
	if _, ok := ParameterByIdentifier(KernelInstrument, "cutoff"); ok {
		t.Fatalf("instrument has no cutoff parameter")
	}
}

func TestMagnitudesOnlyForFilter(t *testing.T) {
	e, err := NewEngine(KernelInstrument)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.MagnitudesForFrequencies([]float64{100}, nil); !errors.Is(err, errors.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}

	f, err := NewEngine(KernelFilter)
	if err != nil {
		t.Fatal(err)
	}
	mags, err := f.MagnitudesForFrequencies([]float64{0, 100, 1000}, nil)
	if err != nil || len(mags) != 3 {
		t.Fatalf("magnitudes = %v, %v", mags, err)
	}
}
