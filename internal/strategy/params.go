package strategy

// Params expresses the tunable thresholds of the flow policy. Zero fields take the defaults.
type Params struct {
	ChopStrength   float64 // below this regime strength nothing fires
	StrongStrength float64 // regime strength required by the strong override

	MomentumZ   float64 // |z| required by the momentum branch
	ReversalZ   float64 // |z| required by the reversal branch, never below MomentumZ
	StrongZ     float64 // |z| required by the strong override
	ExhaustionZ float64 // |z| at which the exhaustion guard engages

	ReversalScore float64 // |score| required by the reversal branch
	MomentumScore float64 // |score| that substitutes for a matching bias

	BurstHigh     float64 // tick-rate ratio adding a positive burst term
	BurstLow      float64 // tick-rate ratio adding a negative burst term
	BurstStrong   float64 // tick-rate ratio treated as participation
	BurstFadeKeep float64 // fraction of the previous ratio that must be kept
	RunLength     int     // consecutive ticks that substitute for a burst

	SlopeWeight float64
	AccelWeight float64
	BurstWeight float64
	TrendWeight float64
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		ChopStrength:   0.00025,
		StrongStrength: 0.00045,
		MomentumZ:      0.7,
		ReversalZ:      1.0,
		StrongZ:        2.0,
		ExhaustionZ:    3.8,
		ReversalScore:  2.0,
		MomentumScore:  0.8,
		BurstHigh:      1.05,
		BurstLow:       0.95,
		BurstStrong:    1.10,
		BurstFadeKeep:  0.95,
		RunLength:      3,
		SlopeWeight:    1.0,
		AccelWeight:    0.7,
		BurstWeight:    0.5,
		TrendWeight:    0.6,
	}
}

// withDefaults fills unset fields.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&p.ChopStrength, d.ChopStrength)
	fill(&p.StrongStrength, d.StrongStrength)
	fill(&p.MomentumZ, d.MomentumZ)
	fill(&p.ReversalZ, d.ReversalZ)
	fill(&p.StrongZ, d.StrongZ)
	fill(&p.ExhaustionZ, d.ExhaustionZ)
	fill(&p.ReversalScore, d.ReversalScore)
	fill(&p.MomentumScore, d.MomentumScore)
	fill(&p.BurstHigh, d.BurstHigh)
	fill(&p.BurstLow, d.BurstLow)
	fill(&p.BurstStrong, d.BurstStrong)
	fill(&p.BurstFadeKeep, d.BurstFadeKeep)
	fill(&p.SlopeWeight, d.SlopeWeight)
	fill(&p.AccelWeight, d.AccelWeight)
	fill(&p.BurstWeight, d.BurstWeight)
	fill(&p.TrendWeight, d.TrendWeight)
	if p.RunLength <= 0 {
		p.RunLength = d.RunLength
	}
	if p.ReversalZ < p.MomentumZ {
		p.ReversalZ = p.MomentumZ
	}
	return p
}
