package synth

import "math"

// Stage is a note's envelope stage. A note is on the playing list exactly when its stage
// is not StageOff.
type Stage uint8

const (
	StageOff Stage = iota
	StageAttack
	StageSustain
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageOff:
		return "off"
	case StageAttack:
		return "attack"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

const (
	noteCount = 128
	none      = -1
	twoPi     = 2 * math.Pi
)

type note struct {
	prev, next int16

	stage Stage
	phase float64 // radians
	freq  float64 // radians per sample

	// Gains and the envelope accumulate in float64 so long ramps land on their
	// end value.
	ampL, ampR float64

	envLevel       float64
	envSlope       float64
	envRampSamples uint32
}

// clear silences the note. Its list links are left to the caller.
func (n *note) clear() {
	n.stage = StageOff
	n.phase = 0
	n.freq = 0
	n.ampL = 0
	n.ampR = 0
	n.envLevel = 0
	n.envSlope = 0
	n.envRampSamples = 0
}

func (n *note) start(number, velocity uint8, sampleRate float64, attackSamples uint32) {
	n.freq = 440 * math.Pow(2, (float64(number)-69)/12) * twoPi / sampleRate

	pan := (float64(number) - 66) / 42
	v := float64(velocity) / 127
	amp := v * v * 0.2
	n.ampL = amp * panValue(-pan)
	n.ampR = amp * panValue(pan)

	n.phase = 0
	n.stage = StageAttack
	n.envRampSamples = attackSamples
	n.envSlope = (1 - n.envLevel) / float64(attackSamples)
}

func (n *note) stop(releaseSamples uint32) {
	if n.stage != StageAttack && n.stage != StageSustain {
		return
	}
	n.stage = StageRelease
	n.envRampSamples = releaseSamples
	n.envSlope = -n.envLevel / float64(releaseSamples)
}

// render adds the note into outL/outR and reports whether it finished its release.
func (n *note) render(outL, outR []float32) (finished bool) {
	for i := range outL {
		s := math.Sin(n.phase)
		x := n.envLevel * s * s * s
		outL[i] += float32(n.ampL * x)
		outR[i] += float32(n.ampR * x)

		n.phase += n.freq
		if n.phase >= twoPi {
			n.phase = math.Mod(n.phase, twoPi)
		}

		switch n.stage {
		case StageAttack:
			n.envLevel += n.envSlope
			n.envRampSamples--
			if n.envRampSamples == 0 {
				n.stage = StageSustain
				n.envLevel = 1
				n.envSlope = 0
			}
		case StageRelease:
			n.envLevel += n.envSlope
			n.envRampSamples--
			if n.envRampSamples == 0 {
				return true
			}
		}
	}
	return false
}

// panValue maps a pan position in [-1, 1] onto an equal-power gain.
func panValue(x float64) float64 {
	if x < -1 {
		x = -1
	} else if x > 1 {
		x = 1
	}
	return math.Cos(math.Pi / 2 * (0.5*x + 0.5))
}
