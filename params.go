package aukernel

import (
	"github.com/cbegin/aukernel-go/internal/filter"
	"github.com/cbegin/aukernel-go/internal/synth"
)

// ParameterInfo describes one kernel parameter the way a host presents it.
type ParameterInfo struct {
	Address    ParamAddress
	Identifier string
	Name       string
	Unit       string
	Min        float32
	Max        float32
	Default    float32
}

func parametersFor(kind KernelKind, sampleRate float64) []ParameterInfo {
	switch kind {
	case KernelFilter:
		nyquist := 0.5 * sampleRate
		return []ParameterInfo{
			{
				Address:    ParamCutoff,
				Identifier: "cutoff",
				Name:       "Cutoff",
				Unit:       "Hz",
				Min:        float32(filter.MinCutoff * nyquist),
				Max:        float32(filter.MaxCutoff * nyquist),
				Default:    float32(filter.DefaultCutoff * nyquist),
			},
			{
				Address:    ParamResonance,
				Identifier: "resonance",
				Name:       "Resonance",
				Unit:       "dB",
				Min:        filter.MinResonance,
				Max:        filter.MaxResonance,
				Default:    filter.DefaultResonance,
			},
		}
	case KernelInstrument:
		return []ParameterInfo{
			{
				Address:    ParamAttack,
				Identifier: "attack",
				Name:       "Attack",
				Unit:       "s",
				Min:        synth.MinEnvelopeTime,
				Max:        synth.MaxEnvelopeTime,
				Default:    synth.DefaultAttack,
			},
			{
				Address:    ParamRelease,
				Identifier: "release",
				Name:       "Release",
				Unit:       "s",
				Min:        synth.MinEnvelopeTime,
				Max:        synth.MaxEnvelopeTime,
				Default:    synth.DefaultRelease,
			},
		}
	}
	return nil
}

// ParameterByIdentifier finds a parameter of kind by its identifier.
func ParameterByIdentifier(kind KernelKind, identifier string) (ParameterInfo, bool) {
	for _, p := range parametersFor(kind, defaultSampleRate) {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return ParameterInfo{}, false
}
