package filter

import "math"

// Coefficients of a normalized biquad (a0 == 1).
type Coefficients struct {
	A1, A2     float32
	B0, B1, B2 float32
}

// SetLowpass derives resonant low-pass coefficients. cutoff is normalized to Nyquist
// (0..1), resonance is in dB.
func (c *Coefficients) SetLowpass(cutoff, resonance float64) {
	r := math.Pow(10, 0.05*-resonance)

	k := 0.5 * r * math.Sin(math.Pi*cutoff)
	c1 := (1 - k) / (1 + k)
	c2 := (1 + c1) * math.Cos(math.Pi*cutoff)
	c3 := (1 + c1 - c2) * 0.25

	c.B0 = float32(c3)
	c.B1 = float32(2 * c3)
	c.B2 = float32(c3)
	c.A1 = float32(-c2)
	c.A2 = float32(c1)
}

// MagnitudeForFrequency evaluates |H(z)| on the unit circle at a frequency normalized to
// Nyquist.
func (c *Coefficients) MagnitudeForFrequency(freq float64) float64 {
	b0, b1, b2 := float64(c.B0), float64(c.B1), float64(c.B2)
	a1, a2 := float64(c.A1), float64(c.A2)

	zr := math.Cos(math.Pi * freq)
	zi := math.Sin(math.Pi * freq)

	// zeros
	numR := b0*(zr*zr-zi*zi) + b1*zr + b2
	numI := 2*b0*zr*zi + b1*zi
	num := math.Hypot(numR, numI)

	// poles
	denR := zr*zr - zi*zi + a1*zr + a2
	denI := 2*zr*zi + a1*zi
	den := math.Hypot(denR, denI)

	return num / den
}
