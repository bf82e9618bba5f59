package synthesis

import "text/template"

// Each facet gets its own prompt so one oversized or failed synthesis
// cannot take the others down with it. The tallies and fractions are
// computed upstream and passed through verbatim; the synthesis model is
// asked to narrate them, never to recount.

type labelView struct {
	Display    string
	Count      int
	Fraction   float64
	Tier       string
	Confidence string
	Origins    int
}

type excerptView struct {
	ResponderID string
	Origin      string
	Conclusion  string
	Rationale   string
	Caveats     []string
}

type skewView struct {
	Label  string
	Origin string
	Share  float64
}

type promptData struct {
	Query         string
	Strength      string
	Labels        []labelView
	Excerpts      []excerptView
	UnparsedCount int
	UnparsedShare float64
	Origins       int
	Flags         []skewView
	Note          string
}

func newTmpl(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"mulf": func(a, b float64) float64 { return a * b },
	}).Parse(body))
}

var conclusionsTmpl = newTmpl("conclusions", `You are summarizing a panel of independent responders.

Question put to the panel:
{{.Query}}

Agreement (computed, do not recount): strength={{.Strength}}
{{range .Labels}}- {{.Display}}: {{.Count}} votes ({{printf "%.0f%%" (mulf .Fraction 100)}}, tier={{.Tier}}, origins={{.Origins}}{{if .Confidence}}, mean confidence {{.Confidence}}{{end}})
{{end}}{{if .UnparsedCount}}{{.UnparsedCount}} of the responses ({{printf "%.0f%%" (mulf .UnparsedShare 100)}}) could not be parsed and are excluded from the tally.
{{end}}
Responder reasoning:
{{range .Excerpts}}[{{.ResponderID}}] concluded "{{.Conclusion}}": {{.Rationale}}
{{end}}
Write a concise narrative of where the panel agrees and where it splits. Keep every minority position visible. Do not invent agreement that the tally above does not show.`)

var actionsTmpl = newTmpl("actions", `You are extracting recommended next steps from a panel of independent responders.

Question put to the panel:
{{.Query}}

Positions held (computed, do not recount):
{{range .Labels}}- {{.Display}}: {{.Count}} votes, tier={{.Tier}}
{{end}}
Responder reasoning and caveats:
{{range .Excerpts}}[{{.ResponderID}}] "{{.Conclusion}}": {{.Rationale}}{{range .Caveats}}
  caveat: {{.}}{{end}}
{{end}}
List the concrete actions the responders recommend, noting which position each action serves. Include actions attached to minority positions.`)

var biasTmpl = newTmpl("bias", `You are reviewing a panel of independent responders for origin-linked skew.

Question put to the panel:
{{.Query}}

The panel drew on {{.Origins}} distinct responder origins.
{{range .Labels}}- "{{.Display}}" is held across {{.Origins}} distinct origin{{if ne .Origins 1}}s{{end}} ({{.Count}} votes)
{{end}}{{if .Flags}}Flagged concentrations (computed, do not recount):
{{range .Flags}}- "{{.Label}}" is supported {{printf "%.0f%%" (mulf .Share 100)}} by responders of origin {{.Origin}}
{{end}}{{else}}No origin concentration crossed the flag threshold.
{{end}}{{.Note}}.

Describe in plain language what these concentrations might mean for a reader weighing the panel's positions, and what they cannot prove.`)
