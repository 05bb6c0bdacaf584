package corroborate

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Outcome is the result of classifying an unstructured source response.
type Outcome int

const (
	// OutcomeAmbiguous means the response could not be confidently
	// classified; callers treat it as a low-confidence pass-through.
	OutcomeAmbiguous Outcome = iota
	OutcomeConfirmed
	OutcomeContradicted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeContradicted:
		return "contradicted"
	default:
		return "ambiguous"
	}
}

// Classification captures both the outcome and which phrase families
// matched, so callers can flag responses that confirm and contradict at
// the same time instead of silently resolving them.
type Classification struct {
	Outcome       Outcome
	Confirming    bool
	Contradicting bool
}

var confirmPhrases = []string{
	"is correct",
	"is accurate",
	"confirmed",
	"that is right",
	"matches the official",
	"yes,",
}

var contradictPhrases = []string{
	"is incorrect",
	"is not correct",
	"is inaccurate",
	"is wrong",
	"does not match",
	"contradict",
	"no,",
	"has been postponed",
	"has been rescheduled",
	"has been canceled",
	"has been cancelled",
	"is no longer",
}

// ClassifyText classifies a natural-language response using
// confirmation-vs-contradiction phrase heuristics. The upstream sources
// have no structured schema, so this is deliberately coarse: when both
// phrase families match, or neither does, the outcome is ambiguous.
func ClassifyText(text string) Classification {
	lower := strings.ToLower(text)

	c := Classification{}
	for _, phrase := range confirmPhrases {
		if strings.Contains(lower, phrase) {
			c.Confirming = true
			break
		}
	}
	for _, phrase := range contradictPhrases {
		if strings.Contains(lower, phrase) {
			c.Contradicting = true
			break
		}
	}

	switch {
	case c.Confirming && !c.Contradicting:
		c.Outcome = OutcomeConfirmed
	case c.Contradicting && !c.Confirming:
		c.Outcome = OutcomeContradicted
	default:
		c.Outcome = OutcomeAmbiguous
	}

	return c
}

// stalenessDecay returns the confidence penalty for evidence observed in
// the past: 5 points per year, capped at 20.
func stalenessDecay(observedAt, now time.Time) int {
	if observedAt.IsZero() || !observedAt.Before(now) {
		return 0
	}
	years := now.Sub(observedAt).Hours() / (24 * 365)
	decay := int(years * 5)
	if decay > 20 {
		decay = 20
	}
	return decay
}

// clampConfidence keeps a score inside 0-100.
func clampConfidence(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// decodeLoose extracts a JSON object from an untyped upstream payload.
// Responses routinely wrap JSON in prose or markdown fences, so it
// locates the outermost braces rather than trusting the whole body.
// A failure here is a ParseAmbiguity, never a crash.
func decodeLoose(raw string) (map[string]interface{}, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// extractString reads a string field from an untyped payload.
func extractString(payload map[string]interface{}, key string) (string, bool) {
	val, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), s != ""
}

// extractStringSlice reads a string-array field from an untyped payload,
// dropping non-string elements rather than failing.
func extractStringSlice(payload map[string]interface{}, key string) []string {
	val, ok := payload[key]
	if !ok {
		return nil
	}
	items, ok := val.([]interface{})
	if !ok {
		return nil
	}

	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// extractURLs pulls deduplicated URLs out of free text.
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}
