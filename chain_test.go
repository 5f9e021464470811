package aukernel

import (
	"errors"
	"math"
	"testing"
)

func TestNewChainValidates(t *testing.T) {
	if _, err := NewChain(44100, 0); err == nil {
		t.Fatalf("expected error for zero block size")
	}
	if _, err := NewChain(0, 64); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestChainRejectsOversizedBlock(t *testing.T) {
	c, err := NewChain(44100, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Process(0, 65, nil, nil, nil); !errors.Is(err, ErrBlockTooLarge) {
		t.Fatalf("err = %v, want ErrBlockTooLarge", err)
	}
}

func TestChainRoutesEvents(t *testing.T) {
	c, err := NewChain(44100, 256)
	if err != nil {
		t.Fatal(err)
	}
	inst := []Event{MIDIEvent(0, []byte{0x90, 69, 127})}
	fx := []Event{
		RampEvent(0, ParamCutoff, 8000, 0),
		RampEvent(0, ParamResonance, 0, 0),
	}
	if err := c.Process(0, 256, inst, fx, nil); err != nil {
		t.Fatal(err)
	}
	if c.PlayingCount() != 1 {
		t.Fatalf("playing = %d, want 1", c.PlayingCount())
	}
	if got := c.Parameter(TargetEffect, ParamCutoff); math.Abs(float64(got)-8000) > 0.01 {
		t.Fatalf("cutoff = %v, want 8000", got)
	}
	if got := c.Parameter(TargetEffect, ParamResonance); got != 0 {
		t.Fatalf("resonance = %v, want 0", got)
	}

	left, right := c.Output()
	if len(left) != 256 || len(right) != 256 {
		t.Fatalf("output lengths = %d/%d, want 256", len(left), len(right))
	}
	var energy float64
	for i := range left {
		energy += float64(left[i]*left[i] + right[i]*right[i])
	}
	if energy == 0 {
		t.Fatalf("chain output is silent")
	}
}

func TestChainInterleave(t *testing.T) {
	c, err := NewChain(44100, 32)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Process(0, 32, []Event{MIDIEvent(0, []byte{0x90, 40, 100})}, nil, nil); err != nil {
		t.Fatal(err)
	}
	left, right := c.Output()

	dst := make([]float32, 2*32)
	if n := c.Interleave(dst); n != 32 {
		t.Fatalf("interleaved %d frames, want 32", n)
	}
	for i := range left {
		if dst[2*i] != left[i] || dst[2*i+1] != right[i] {
			t.Fatalf("frame %d = (%v, %v), want (%v, %v)", i, dst[2*i], dst[2*i+1], left[i], right[i])
		}
	}

	short := make([]float32, 2*10)
	if n := c.Interleave(short); n != 10 {
		t.Fatalf("interleaved %d frames into a short buffer, want 10", n)
	}
}

func TestChainResetSilences(t *testing.T) {
	c, err := NewChain(44100, 128)
	if err != nil {
		t.Fatal(err)
	}
	_ = c.Process(0, 128, []Event{MIDIEvent(0, []byte{0x90, 60, 100})}, nil, nil)
	c.Reset()
	if c.PlayingCount() != 0 {
		t.Fatalf("playing after reset = %d", c.PlayingCount())
	}
	if err := c.Process(128, 128, nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	left, right := c.Output()
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("sample %d not silent after reset", i)
		}
	}
}
