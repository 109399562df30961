package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseAnalysis parses the model's raw JSON reply and cross-checks it
// against the candidate set. The chosen template id must resolve to a member
// of templates (first match wins); confidence is coerced to an integer but
// deliberately not range-clamped here, the threshold check in the analyzer
// is the single enforcement point. Optional fields default to empty values,
// never nil.
func parseAnalysis(raw string, templates []Template) Suggestion {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return failure(fmt.Sprintf("Failed to parse AI response: %v", err))
	}

	rawID, hasID := payload["best_template_id"]
	rawConfidence, hasConfidence := payload["confidence_score"]
	if !hasID || rawID == nil || !hasConfidence || rawConfidence == nil {
		return failure("AI response missing required fields")
	}

	id, ok := coerceID(rawID)
	if !ok {
		return failure("AI suggested invalid template ID")
	}

	var best *Template
	for i := range templates {
		if templates[i].ID == id {
			best = &templates[i]
			break
		}
	}
	if best == nil {
		// The model hallucinated an id outside the candidate set.
		return failure("AI suggested invalid template ID")
	}

	chosen := *best
	return Suggestion{
		Success:                true,
		Template:               &chosen,
		Confidence:             coerceInt(rawConfidence),
		DetectedLanguage:       stringField(payload, "detected_language"),
		Reasoning:              stringField(payload, "reasoning"),
		SuggestedModifications: stringField(payload, "suggested_modifications"),
		Alternatives:           idList(payload["alternatives"]),
	}
}

// coerceID converts a JSON value to a template id. Numeric strings and
// integral floats are accepted; anything else does not identify a template.
func coerceID(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// coerceInt converts a JSON value to an int, truncating fractional values
// toward zero. Unparseable values become 0.
func coerceInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}

// stringField reads an optional string field, defaulting to "".
func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

// idList reads the optional alternatives array, keeping the model's order
// and skipping entries that are not ids. Always returns a non-nil slice.
func idList(v any) []int64 {
	items, ok := v.([]any)
	if !ok {
		return []int64{}
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if id, ok := coerceID(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
