package consensus

// Bias attribution cross-tabulates label support by responder origin and
// flags labels whose support is concentrated in one origin. The flag is a
// heuristic, not a hypothesis test: panels are small, and a skewed tab is a
// prompt for a human to look, not evidence of bias on its own.

// SkewFlag marks one label whose support clusters in a single origin.
type SkewFlag struct {
	Label  string  `json:"label"`
	Origin string  `json:"origin"`
	Share  float64 `json:"share"`
}

// BiasReport is the origin × label cross-tab plus any skew flags.
type BiasReport struct {
	Matrix map[string]map[string]int `json:"matrix"`
	Flags  []SkewFlag                `json:"flags,omitempty"`
	Note   string                    `json:"note"`
}

const biasNote = "origin skew is a heuristic signal, not a hypothesis test"

// skewShare is the single-origin support share at which a label is flagged.
// Labels with a lone supporter are never flagged; one vote is always 100%
// of itself.
const skewShare = 0.70

// AttributeBias builds the bias report from an agreement report.
func AttributeBias(rep *Report) *BiasReport {
	out := &BiasReport{
		Matrix: make(map[string]map[string]int),
		Note:   biasNote,
	}
	for _, lbl := range rep.Labels {
		row := make(map[string]int)
		for _, sup := range lbl.Supporters {
			row[sup.Origin]++
		}
		out.Matrix[lbl.Canonical] = row

		if lbl.Count < 2 {
			continue
		}
		for origin, n := range row {
			share := float64(n) / float64(lbl.Count)
			if share >= skewShare {
				out.Flags = append(out.Flags, SkewFlag{
					Label:  lbl.Canonical,
					Origin: origin,
					Share:  share,
				})
			}
		}
	}
	return out
}
