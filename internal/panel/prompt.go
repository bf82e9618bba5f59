package panel

// DefaultPromptVersion tags the current answer-format instructions. Bumping
// it invalidates cached payloads produced under the old instructions, since
// the version participates in the cache fingerprint.
const DefaultPromptVersion = "v1"

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2
)

// systemPrompt asks every responder for the structured answer shape the
// normalizer parses. Responders that ignore it fall through to the free-text
// heuristics, so the instructions are a preference, not a protocol.
const systemPrompt = `You are one voice on a panel of independent experts. Answer the question on your own; you will not see the other panelists' answers.

Respond with a single JSON object:
{
  "conclusion": "<your single primary conclusion, as a short label>",
  "alternatives": [{"label": "<other plausible conclusion>", "confidence": <0..1>}],
  "rationale": "<why you reached the conclusion>",
  "caveats": ["<important limitation or uncertainty>"],
  "confidence": <your confidence in the primary conclusion, 0..1>
}

State exactly one primary conclusion. Put every other position you considered under alternatives.`
