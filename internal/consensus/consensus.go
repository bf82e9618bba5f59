// Package consensus tallies normalized responder records into a label
// agreement report. Every parseable record casts exactly one vote, its
// primary conclusion, so the label fractions always sum to one over the
// parseable set. Unparseable records are reported beside the tally, never
// inside it, and minority labels are kept no matter how small.
package consensus

import (
	"sort"
	"strings"

	"conclave/internal/normalize"
)

// Tier classifies a label by its share of the parseable vote.
type Tier string

const (
	TierPrimary     Tier = "primary"
	TierAlternative Tier = "alternative"
	TierMinority    Tier = "minority"
)

// Strength summarizes how decisive the overall agreement is.
type Strength string

const (
	StrengthStrong  Strength = "strong"
	StrengthPartial Strength = "partial"
	StrengthNone    Strength = "none"
)

// Supporter records one responder's vote for a label.
type Supporter struct {
	ResponderID string   `json:"responder_id"`
	Origin      string   `json:"origin"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// Label is one conclusion with its support across the panel. Display keeps
// the casing of the first responder to state the label; Canonical is the
// form votes were matched on.
type Label struct {
	Canonical  string      `json:"canonical"`
	Display    string      `json:"display"`
	Count      int         `json:"count"`
	Fraction   float64     `json:"fraction"`
	Tier       Tier        `json:"tier"`
	Supporters []Supporter `json:"supporters"`
	// OriginDiversity is the number of distinct supporter origins behind
	// this label, reported alongside the fraction. Informational only; it
	// never moves the tier.
	OriginDiversity int `json:"origin_diversity"`
}

// Report is the full agreement picture for one panel run.
type Report struct {
	Labels          []Label  `json:"labels"`
	Strength        Strength `json:"strength"`
	Parseable       int      `json:"parseable"`
	Total           int      `json:"total"`
	UnparsedCount   int      `json:"unparsed_count"`
	UnparsedShare   float64  `json:"unparsed_share"`
	OriginDiversity int      `json:"origin_diversity"`
}

// Config carries the tier cut points. Shares at a boundary round up into
// the higher tier.
type Config struct {
	PrimaryThreshold     float64
	AlternativeThreshold float64
}

// Aggregator tallies records under a fixed synonym table.
type Aggregator struct {
	cfg      Config
	synonyms *SynonymTable
}

func NewAggregator(cfg Config, synonyms *SynonymTable) *Aggregator {
	if cfg.PrimaryThreshold <= 0 {
		cfg.PrimaryThreshold = 0.30
	}
	if cfg.AlternativeThreshold <= 0 {
		cfg.AlternativeThreshold = 0.10
	}
	if synonyms == nil {
		synonyms = NewSynonymTable(nil)
	}
	return &Aggregator{cfg: cfg, synonyms: synonyms}
}

// Aggregate builds the agreement report for one run's records.
func (a *Aggregator) Aggregate(records []*normalize.Record) *Report {
	rep := &Report{Total: len(records)}
	byLabel := make(map[string]*Label)
	origins := make(map[string]struct{})

	for _, rec := range records {
		if !rec.Parseable() {
			rep.UnparsedCount++
			continue
		}
		rep.Parseable++
		origins[rec.Origin] = struct{}{}

		canonical := a.synonyms.Canonicalize(rec.Conclusion)
		lbl, ok := byLabel[canonical]
		if !ok {
			lbl = &Label{Canonical: canonical, Display: strings.TrimSpace(rec.Conclusion)}
			byLabel[canonical] = lbl
		}
		lbl.Count++
		lbl.Supporters = append(lbl.Supporters, Supporter{
			ResponderID: rec.ResponderID,
			Origin:      rec.Origin,
			Confidence:  rec.Confidence,
		})
	}

	if rep.Total > 0 {
		rep.UnparsedShare = float64(rep.UnparsedCount) / float64(rep.Total)
	}
	rep.OriginDiversity = len(origins)

	for _, lbl := range byLabel {
		lbl.Fraction = float64(lbl.Count) / float64(rep.Parseable)
		lbl.Tier = a.tierFor(lbl.Fraction)
		lbl.OriginDiversity = distinctOrigins(lbl.Supporters)
		rep.Labels = append(rep.Labels, *lbl)
	}
	sort.Slice(rep.Labels, func(i, j int) bool {
		if rep.Labels[i].Count != rep.Labels[j].Count {
			return rep.Labels[i].Count > rep.Labels[j].Count
		}
		return rep.Labels[i].Canonical < rep.Labels[j].Canonical
	})

	rep.Strength = strengthFor(rep.Labels)
	return rep
}

func (a *Aggregator) tierFor(fraction float64) Tier {
	switch {
	case fraction >= a.cfg.PrimaryThreshold:
		return TierPrimary
	case fraction >= a.cfg.AlternativeThreshold:
		return TierAlternative
	default:
		return TierMinority
	}
}

func distinctOrigins(sups []Supporter) int {
	seen := make(map[string]struct{}, len(sups))
	for _, s := range sups {
		seen[s.Origin] = struct{}{}
	}
	return len(seen)
}

func strengthFor(labels []Label) Strength {
	if len(labels) == 0 {
		return StrengthNone
	}
	top := labels[0].Fraction
	switch {
	case top >= 0.75:
		return StrengthStrong
	case top >= 0.5:
		return StrengthPartial
	default:
		return StrengthNone
	}
}
