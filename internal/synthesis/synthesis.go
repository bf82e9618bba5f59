// Package synthesis renders the panel outcome into three independent
// narrative facets: what the panel concluded, what it recommends doing, and
// what its origin mix says about skew. The facets are synthesized by
// separate model calls so a failure or an oversized prompt in one facet
// degrades only that facet.
package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"

	"conclave/internal/consensus"
	"conclave/internal/normalize"
	"conclave/internal/responder"
)

// Facet identifies one synthesis output.
type Facet string

const (
	FacetConclusions Facet = "conclusions"
	FacetActions     Facet = "actions"
	FacetBias        Facet = "bias"
)

// Facets lists all facets in presentation order.
var Facets = []Facet{FacetConclusions, FacetActions, FacetBias}

// FallbackText is returned for a facet whose synthesis call failed. The
// computed tallies are still in the run result; only the narrative is lost.
const FallbackText = "synthesis unavailable"

// FacetResult is one facet's narrative, or its fallback.
type FacetResult struct {
	Facet    Facet                `json:"facet"`
	Text     string               `json:"text"`
	Fallback bool                 `json:"fallback,omitempty"`
	Error    string               `json:"error,omitempty"`
	Tokens   responder.TokenUsage `json:"tokens"`
}

// Input carries everything a synthesis run narrates.
type Input struct {
	Query   string
	Report  *consensus.Report
	Bias    *consensus.BiasReport
	Records []*normalize.Record
}

// Synthesizer fans the three facet prompts out to a single synthesis model.
type Synthesizer struct {
	client responder.Client
	ref    string
	budget int
	logger *slog.Logger
}

// New builds a Synthesizer. ref is the model the facet prompts are sent to;
// budget caps each rendered prompt in characters.
func New(client responder.Client, ref string, budget int, logger *slog.Logger) (*Synthesizer, error) {
	if client == nil {
		return nil, fmt.Errorf("synthesis: client is required")
	}
	if ref == "" {
		return nil, fmt.Errorf("synthesis: model ref is required")
	}
	if budget <= 0 {
		budget = 8192
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{client: client, ref: ref, budget: budget, logger: logger}, nil
}

// Run synthesizes all facets concurrently. It never fails the run: a facet
// whose call errors comes back as its fallback.
func (s *Synthesizer) Run(ctx context.Context, in Input) map[Facet]FacetResult {
	data := buildPromptData(in)
	results := make([]FacetResult, len(Facets))

	var g errgroup.Group
	for i, facet := range Facets {
		g.Go(func() error {
			results[i] = s.runFacet(ctx, facet, data)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Facet]FacetResult, len(results))
	for _, r := range results {
		out[r.Facet] = r
	}
	return out
}

func (s *Synthesizer) runFacet(ctx context.Context, facet Facet, data promptData) FacetResult {
	prompt, err := renderWithinBudget(templateFor(facet), data, s.budget)
	if err != nil {
		s.logger.Error("facet prompt render failed", "facet", facet, "error", err)
		return FacetResult{Facet: facet, Text: FallbackText, Fallback: true, Error: err.Error()}
	}

	raw, err := s.client.Call(ctx, responder.Request{
		ResponderID: s.ref,
		Prompt:      prompt,
	})
	if err != nil {
		s.logger.Warn("facet synthesis failed", "facet", facet, "model", s.ref, "error", err)
		return FacetResult{Facet: facet, Text: FallbackText, Fallback: true, Error: err.Error()}
	}
	return FacetResult{Facet: facet, Text: strings.TrimSpace(raw.Payload), Tokens: raw.Tokens}
}

func templateFor(facet Facet) *template.Template {
	switch facet {
	case FacetActions:
		return actionsTmpl
	case FacetBias:
		return biasTmpl
	default:
		return conclusionsTmpl
	}
}

func buildPromptData(in Input) promptData {
	data := promptData{Query: in.Query}
	if in.Report != nil {
		data.Strength = string(in.Report.Strength)
		data.UnparsedCount = in.Report.UnparsedCount
		data.UnparsedShare = in.Report.UnparsedShare
		data.Origins = in.Report.OriginDiversity
		for _, lbl := range in.Report.Labels {
			data.Labels = append(data.Labels, labelView{
				Display:    lbl.Display,
				Count:      lbl.Count,
				Fraction:   lbl.Fraction,
				Tier:       string(lbl.Tier),
				Confidence: meanConfidence(lbl.Supporters),
				Origins:    lbl.OriginDiversity,
			})
		}
	}
	if in.Bias != nil {
		data.Note = in.Bias.Note
		for _, f := range in.Bias.Flags {
			data.Flags = append(data.Flags, skewView{Label: f.Label, Origin: f.Origin, Share: f.Share})
		}
	}
	for _, rec := range in.Records {
		if !rec.Parseable() {
			continue
		}
		data.Excerpts = append(data.Excerpts, excerptView{
			ResponderID: rec.ResponderID,
			Origin:      rec.Origin,
			Conclusion:  rec.Conclusion,
			Rationale:   rec.Rationale,
			Caveats:     rec.Caveats,
		})
	}
	return data
}

func meanConfidence(sups []consensus.Supporter) string {
	sum, n := 0.0, 0
	for _, s := range sups {
		if s.Confidence != nil {
			sum += *s.Confidence
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", sum/float64(n))
}

// renderWithinBudget renders the prompt and, when it overruns the budget,
// shrinks only the rationale excerpts, proportionally to their lengths. The
// tallies and fractions in the header are never cut.
func renderWithinBudget(tmpl *template.Template, data promptData, budget int) (string, error) {
	full, err := render(tmpl, data)
	if err != nil {
		return "", err
	}
	if len(full) <= budget {
		return full, nil
	}

	stripped := data
	stripped.Excerpts = make([]excerptView, len(data.Excerpts))
	totalRationale := 0
	for i, e := range data.Excerpts {
		totalRationale += len(e.Rationale)
		e.Rationale = ""
		stripped.Excerpts[i] = e
	}
	base, err := render(tmpl, stripped)
	if err != nil {
		return "", err
	}

	remaining := budget - len(base)
	if remaining <= 0 || totalRationale == 0 {
		return base, nil
	}
	for i, e := range data.Excerpts {
		allowance := remaining * len(e.Rationale) / totalRationale
		stripped.Excerpts[i].Rationale = truncate(e.Rationale, allowance)
	}
	return render(tmpl, stripped)
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return ""
	}
	// The ellipsis is three bytes; leave room for it.
	runes := []rune(s)
	for len(runes) > 0 && len(string(runes)) > max-3 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
