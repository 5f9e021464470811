// Package ramp smooths parameter changes over a fixed number of samples so that a
// control-thread write never produces an audible step on the render thread.
package ramp

import (
	"math"
	"sync/atomic"
)

// Unbounded is the requested duration used by SetUIValue: the ramp length is then
// decided entirely by the dezipper cap the kernel passes to DezipperCheck.
const Unbounded = math.MaxUint32

// Ramper hands a parameter from the control thread to the render thread. The control
// thread publishes a (target, duration) pair as one atomic word; the render thread picks
// it up in DezipperCheck and interpolates linearly towards it.
//
// The published word has two writers: SetTarget on the control thread and StartRamp on
// the render thread, which republishes a scheduled ramp's goal so UIValue reports it.
// Each store is atomic and the last one wins, so a SetTarget racing a scheduled ramp may
// be superseded by the ramp's goal.
type Ramper struct {
	published atomic.Uint64 // low 32 bits: float32 target, high 32 bits: duration
	changes   atomic.Uint32

	// render thread only
	seen      uint32
	goal      float32
	slope     float32 // value = goal + slope*remaining
	remaining uint32
}

// New returns a ramper holding value with no ramp in progress.
func New(value float32) *Ramper {
	r := &Ramper{}
	r.Init(value)
	return r
}

// Init sets the initial value. It must be called before rendering starts.
func (r *Ramper) Init(value float32) {
	r.published.Store(pack(value, 0))
	r.seen = r.changes.Load()
	r.SetImmediate(value)
}

// SetImmediate jumps to value without a ramp. Render thread, init/reset only.
func (r *Ramper) SetImmediate(value float32) {
	r.goal = value
	r.slope = 0
	r.remaining = 0
}

// SetTarget requests a ramp to value over duration samples. Control thread only.
func (r *Ramper) SetTarget(value float32, duration uint32) {
	r.published.Store(pack(value, duration))
	r.changes.Add(1)
}

// SetUIValue publishes value with an unbounded duration, so the kernel's dezipper cap
// sets the ramp length.
func (r *Ramper) SetUIValue(value float32) {
	r.SetTarget(value, Unbounded)
}

// UIValue returns the most recently published target. It never reads the live ramp.
func (r *Ramper) UIValue() float32 {
	v, _ := unpack(r.published.Load())
	return v
}

// DezipperCheck starts a ramp to a newly published target, bounded by maxDuration
// samples. Render thread, once per rendered span.
func (r *Ramper) DezipperCheck(maxDuration uint32) {
	snap := r.changes.Load()
	if snap == r.seen {
		return
	}
	r.seen = snap
	target, duration := unpack(r.published.Load())
	if duration > maxDuration {
		duration = maxDuration
	}
	r.startRamp(target, duration)
}

// StartRamp begins a ramp immediately and republishes value as the UI value without
// signalling a change. It overwrites any target the control thread published since the
// last DezipperCheck. Render thread only.
func (r *Ramper) StartRamp(value float32, duration uint32) {
	r.published.Store(pack(value, duration))
	r.startRamp(value, duration)
}

func (r *Ramper) startRamp(value float32, duration uint32) {
	if duration == 0 {
		r.SetImmediate(value)
		return
	}
	current := r.Value()
	r.slope = (current - value) / float32(duration)
	r.remaining = duration
	r.goal = value
}

// Value returns the live value. Render thread only.
func (r *Ramper) Value() float32 {
	if r.remaining == 0 {
		return r.goal
	}
	return r.goal + r.slope*float32(r.remaining)
}

// Goal returns the value the current ramp ends at. Render thread only.
func (r *Ramper) Goal() float32 { return r.goal }

// Remaining returns the number of samples left in the current ramp.
func (r *Ramper) Remaining() uint32 { return r.remaining }

// GetAndStep returns the live value and advances the ramp by one sample.
func (r *Ramper) GetAndStep() float32 {
	if r.remaining == 0 {
		return r.goal
	}
	v := r.goal + r.slope*float32(r.remaining)
	r.remaining--
	if r.remaining == 0 {
		r.slope = 0
	}
	return v
}

// StepBy advances the ramp by n samples without reading it.
func (r *Ramper) StepBy(n uint32) {
	if n >= r.remaining {
		r.remaining = 0
		r.slope = 0
		return
	}
	r.remaining -= n
}

// Reset snaps the live value to the published target and drops pending changes.
// Render thread only.
func (r *Ramper) Reset() {
	r.seen = r.changes.Load()
	r.SetImmediate(r.UIValue())
}

func pack(value float32, duration uint32) uint64 {
	return uint64(math.Float32bits(value)) | uint64(duration)<<32
}

func unpack(word uint64) (float32, uint32) {
	return math.Float32frombits(uint32(word)), uint32(word >> 32)
}
