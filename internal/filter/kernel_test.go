package filter

import (
	"math"
	"testing"
)

func newTestKernel(t *testing.T, channels int) (*Kernel, [][]float32) {
	t.Helper()
	k := New()
	if err := k.Init(channels, 44100); err != nil {
		t.Fatalf("Init: %v", err)
	}
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = make([]float32, 1024)
	}
	k.SetBuffers(bufs, bufs)
	return k, bufs
}

func TestInitRejectsBadArguments(t *testing.T) {
	k := New()
	if err := k.Init(0, 44100); err == nil {
		t.Fatalf("expected error for zero channels")
	}
	if err := k.Init(2, 0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if err := k.Init(2, math.NaN()); err == nil {
		t.Fatalf("expected error for NaN sample rate")
	}
	if err := k.Init(2, 48000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if k.ChannelCount() != 2 {
		t.Fatalf("channels = %d, want 2", k.ChannelCount())
	}
	if k.dezipperDuration != 960 {
		t.Fatalf("dezipper = %d, want 960", k.dezipperDuration)
	}
}

func TestStableAtMaximumResonance(t *testing.T) {
	const samples = 10000
	k := New()
	if err := k.Init(1, 44100); err != nil {
		t.Fatal(err)
	}
	k.SetParameter(ParamResonance, 20)
	k.SetParameter(ParamCutoff, 5000)
	k.Reset()

	in := make([]float32, samples)
	out := make([]float32, samples)
	in[0] = 1
	k.SetBuffers([][]float32{in}, [][]float32{out})
	k.Process(samples, 0)

	var peak float64
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("sample %d is %v", i, v)
		}
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak > 10 {
		t.Fatalf("impulse response peak = %v, expected bounded", peak)
	}
	tail := math.Abs(float64(out[samples-1]))
	if tail > 1e-6 {
		t.Fatalf("impulse response has not decayed: last sample %v", tail)
	}
}

func TestCutoffSweepAtMaximumResonanceStaysFinite(t *testing.T) {
	k, bufs := newTestKernel(t, 2)
	k.SetParameter(ParamResonance, 20)
	k.Reset()
	for block := 0; block < 20; block++ {
		for ch := range bufs {
			for i := range bufs[ch] {
				bufs[ch][i] = float32(math.Sin(float64(block*1024+i) * 0.37))
			}
		}
		k.StartRamp(ParamCutoff, float32(20+block*1000), 1024)
		k.Process(1024, 0)
		for ch := range bufs {
			for i, v := range bufs[ch] {
				if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 100 {
					t.Fatalf("block %d ch %d sample %d = %v", block, ch, i, v)
				}
			}
		}
	}
}

func TestNaNInputIsScrubbed(t *testing.T) {
	k, bufs := newTestKernel(t, 1)
	bufs[0][0] = float32(math.NaN())
	k.Process(4, 0)

	st := k.State(0)
	if st != (State{}) {
		t.Fatalf("registers after NaN span = %+v, want zero", st)
	}

	for i := range bufs[0] {
		bufs[0][i] = 0.5
	}
	k.Process(64, 0)
	for i, v := range bufs[0][:64] {
		if math.IsNaN(float64(v)) {
			t.Fatalf("sample %d still NaN after scrub", i)
		}
	}
}

func TestFlushBad(t *testing.T) {
	for _, tc := range []struct {
		in   float32
		want float32
	}{
		{0.5, 0.5},
		{-0.5, -0.5},
		{1e-16, 0},
		{-1e-16, 0},
		{1e16, 0},
		{float32(math.Inf(1)), 0},
		{float32(math.Inf(-1)), 0},
		{float32(math.NaN()), 0},
		{1e-14, 1e-14},
	} {
		if got := flushBad(tc.in); got != tc.want {
			t.Errorf("flushBad(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParameterClamping(t *testing.T) {
	k := New()
	if err := k.Init(2, 44100); err != nil {
		t.Fatal(err)
	}

	k.SetParameter(ParamCutoff, 1)
	if got, want := k.Parameter(ParamCutoff), float32(math.Round(MinCutoff*22050*100)/100); got != want {
		t.Fatalf("low cutoff = %v, want %v", got, want)
	}
	k.SetParameter(ParamCutoff, 1e6)
	if got, want := k.Parameter(ParamCutoff), float32(math.Round(float64(float32(MaxCutoff))*22050*100)/100); got != want {
		t.Fatalf("high cutoff = %v, want %v", got, want)
	}
	k.SetParameter(ParamCutoff, 1000)
	if got := k.Parameter(ParamCutoff); math.Abs(float64(got)-1000) > 0.01 {
		t.Fatalf("cutoff = %v, want 1000", got)
	}

	k.SetParameter(ParamResonance, 99)
	if got := k.Parameter(ParamResonance); got != MaxResonance {
		t.Fatalf("resonance = %v, want %v", got, MaxResonance)
	}
	k.SetParameter(ParamResonance, -99)
	if got := k.Parameter(ParamResonance); got != MinResonance {
		t.Fatalf("resonance = %v, want %v", got, MinResonance)
	}

	if got := k.Parameter(42); got != 0 {
		t.Fatalf("unknown address = %v, want 0", got)
	}
	k.SetParameter(42, 1)
}

func TestNaNParameterIsIgnored(t *testing.T) {
	k, bufs := newTestKernel(t, 1)
	k.SetParameter(ParamCutoff, 1000)
	k.SetParameter(ParamResonance, 6)
	nan := float32(math.NaN())

	k.SetParameter(ParamCutoff, nan)
	k.SetParameter(ParamResonance, nan)
	k.StartRamp(ParamCutoff, nan, 64)
	k.StartRamp(ParamResonance, nan, 0)
	if got := k.Parameter(ParamCutoff); math.Abs(float64(got)-1000) > 0.01 {
		t.Fatalf("cutoff = %v, want 1000", got)
	}
	if got := k.Parameter(ParamResonance); got != 6 {
		t.Fatalf("resonance = %v, want 6", got)
	}

	for block := 0; block < 50; block++ {
		for i := range bufs[0] {
			bufs[0][i] = 0.5
		}
		k.Process(len(bufs[0]), 0)
		for i, v := range bufs[0] {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("block %d sample %d = %v", block, i, v)
			}
		}
	}
	// settled on the DC input
	if got := bufs[0][len(bufs[0])-1]; math.Abs(float64(got)-0.5) > 1e-3 {
		t.Fatalf("settled output = %v, want 0.5", got)
	}
}

func TestDefaults(t *testing.T) {
	k := New()
	// 400/44100 of Nyquist at 44.1 kHz
	if got := k.Parameter(ParamCutoff); got != 200 {
		t.Fatalf("default cutoff = %v Hz, want 200", got)
	}
	if got := k.Parameter(ParamResonance); got != DefaultResonance {
		t.Fatalf("default resonance = %v, want %v", got, DefaultResonance)
	}
}

func TestSetParameterIsDezippered(t *testing.T) {
	k, _ := newTestKernel(t, 1)
	k.SetParameter(ParamCutoff, 2000)
	k.Process(1, 0)
	if got, want := k.cutoff.Remaining(), k.dezipperDuration-1; got != want {
		t.Fatalf("remaining = %d, want %d", got, want)
	}
	k.Process(1000, 0)
	if k.cutoff.Remaining() != 0 {
		t.Fatalf("ramp still running after %d samples", 1001)
	}
}

func TestStartRampUpdatesReportedValue(t *testing.T) {
	k, _ := newTestKernel(t, 1)
	k.StartRamp(ParamCutoff, 3000, 256)
	if got := k.Parameter(ParamCutoff); math.Abs(float64(got)-3000) > 0.01 {
		t.Fatalf("cutoff = %v, want 3000", got)
	}
	if k.cutoff.Remaining() != 256 {
		t.Fatalf("remaining = %d, want 256", k.cutoff.Remaining())
	}
	k.StartRamp(ParamResonance, 50, 0)
	if got := k.resonance.Value(); got != MaxResonance {
		t.Fatalf("resonance = %v, want %v", got, MaxResonance)
	}
}

func TestResetClearsRegistersAndSnapsRamps(t *testing.T) {
	k, bufs := newTestKernel(t, 2)
	for ch := range bufs {
		for i := range bufs[ch] {
			bufs[ch][i] = 0.25
		}
	}
	k.SetParameter(ParamCutoff, 800)
	k.Process(16, 0)
	if k.State(0) == (State{}) {
		t.Fatalf("expected non-zero registers after rendering")
	}

	k.Reset()
	for ch := 0; ch < 2; ch++ {
		if st := k.State(ch); st != (State{}) {
			t.Fatalf("channel %d registers = %+v, want zero", ch, st)
		}
	}
	if k.cutoff.Remaining() != 0 {
		t.Fatalf("cutoff ramp still running after reset")
	}
	if got, want := k.cutoff.Value(), k.cutoff.UIValue(); got != want {
		t.Fatalf("cutoff value = %v, want %v", got, want)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	render := func(k *Kernel) []float32 {
		in := make([]float32, 256)
		for i := range in {
			in[i] = float32(math.Sin(float64(i) * 0.1))
		}
		out := make([]float32, 256)
		k.SetBuffers([][]float32{in}, [][]float32{out})
		k.Process(256, 0)
		return out
	}

	fresh := New()
	if err := fresh.Init(1, 44100); err != nil {
		t.Fatal(err)
	}
	want := render(fresh)

	used := New()
	if err := used.Init(1, 44100); err != nil {
		t.Fatal(err)
	}
	render(used)
	used.Reset()
	used.Reset()
	got := render(used)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d after reset = %v, fresh kernel = %v", i, got[i], want[i])
		}
	}
}

func TestDCGainIsUnity(t *testing.T) {
	for _, res := range []float32{-20, 0, 20} {
		k := New()
		k.SetParameter(ParamCutoff, 2000)
		k.SetParameter(ParamResonance, res)
		if m := k.MagnitudeForFrequency(0); math.Abs(m-1) > 1e-3 {
			t.Fatalf("resonance %v: DC magnitude = %v, want 1", res, m)
		}
	}
}

func TestResonancePeaksNearCutoff(t *testing.T) {
	k := New()
	if err := k.Init(1, 44100); err != nil {
		t.Fatal(err)
	}
	k.SetParameter(ParamCutoff, 2205)
	k.SetParameter(ParamResonance, 20)

	mags := k.MagnitudesForFrequencies([]float64{0, 2205, 20000}, nil)
	if len(mags) != 3 {
		t.Fatalf("got %d magnitudes, want 3", len(mags))
	}
	if mags[1] < 5 {
		t.Fatalf("magnitude at cutoff = %v, expected a resonant peak", mags[1])
	}
	if mags[2] >= mags[0] {
		t.Fatalf("high frequency %v not attenuated relative to DC %v", mags[2], mags[0])
	}
}

func TestCoefficientsAgainstKnownValues(t *testing.T) {
	var c Coefficients
	c.SetLowpass(0.5, 0)
	// r = 1, k = 0.5, c1 = 1/3, c2 = 0, c3 = 1/3
	want := Coefficients{A1: 0, A2: 1.0 / 3, B0: 1.0 / 3, B1: 2.0 / 3, B2: 1.0 / 3}
	near := func(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-6 }
	if !near(c.A1, want.A1) || !near(c.A2, want.A2) || !near(c.B0, want.B0) || !near(c.B1, want.B1) || !near(c.B2, want.B2) {
		t.Fatalf("coefficients = %+v, want %+v", c, want)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	k, _ := newTestKernel(t, 2)
	allocs := testing.AllocsPerRun(50, func() {
		k.SetParameter(ParamCutoff, 1200)
		k.Process(512, 0)
	})
	if allocs != 0 {
		t.Fatalf("allocations per Process = %v, want 0", allocs)
	}
}

func BenchmarkProcessStereo(b *testing.B) {
	k := New()
	if err := k.Init(2, 44100); err != nil {
		b.Fatal(err)
	}
	bufs := [][]float32{make([]float32, 512), make([]float32, 512)}
	k.SetBuffers(bufs, bufs)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k.Process(512, 0)
	}
}
