package classification

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"triage_server/core/domain"
)

// NormalizeCategory accepts only taxonomy labels; anything else is General.
func NormalizeCategory(v any) domain.Category {
	s, _ := v.(string)
	return domain.ParseCategory(s)
}

// NormalizeConfidence maps the model's confidence into [0, 1]. Absent, zero,
// false and non-numeric values become the default of 0.5. Numeric strings
// are read as numbers and true counts as 1.
func NormalizeConfidence(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return domain.DefaultConfidence
		}
		f = n
	case bool:
		if x {
			f = 1
		}
	default:
		return domain.DefaultConfidence
	}

	if f == 0 || math.IsNaN(f) {
		return domain.DefaultConfidence
	}
	return math.Min(math.Max(f, 0), 1)
}

// NormalizePriority accepts high, medium or low; anything else is medium.
func NormalizePriority(v any) domain.Priority {
	s, _ := v.(string)
	return domain.ParsePriority(s)
}

// NormalizeTags keeps the first MaxTags entries of a list, in order. A
// non-list yields an empty, non-nil slice. Non-string entries are rendered
// as their JSON text.
func NormalizeTags(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	if len(list) > domain.MaxTags {
		list = list[:domain.MaxTags]
	}
	tags := make([]string, 0, len(list))
	for _, t := range list {
		tags = append(tags, tagString(t))
	}
	return tags
}

func tagString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// NormalizeActionRequired follows truthiness: false, zero, empty string and
// null are false, everything else is true.
func NormalizeActionRequired(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	}
	return true
}

// NormalizeReasoning returns the model's explanation or the completion
// placeholder when it is missing or empty.
func NormalizeReasoning(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return domain.ReasoningCompleted
}

// NormalizeEnriched builds a single-mode result for e from a decoded object.
func NormalizeEnriched(e domain.Email, obj map[string]any) domain.EnrichedClassification {
	return domain.EnrichedClassification{
		Email:      e,
		Category:   NormalizeCategory(obj["category"]),
		Confidence: NormalizeConfidence(obj["confidence"]),
		Reasoning:  NormalizeReasoning(obj["reasoning"]),
	}
}

// NormalizeAdvanced builds an advanced result for e from a decoded object.
func NormalizeAdvanced(e domain.Email, obj map[string]any) domain.AdvancedClassification {
	return domain.AdvancedClassification{
		ID:             e.ID,
		Category:       NormalizeCategory(obj["category"]),
		Confidence:     NormalizeConfidence(obj["confidence"]),
		Priority:       NormalizePriority(obj["priority"]),
		Tags:           NormalizeTags(obj["tags"]),
		ActionRequired: NormalizeActionRequired(obj["actionRequired"]),
		Reasoning:      NormalizeReasoning(obj["reasoning"]),
	}
}

// NormalizeBatch pairs decoded rows with emails by position. Callers check
// that the lengths agree. A row that is not an object is read as empty.
func NormalizeBatch(emails []domain.Email, rows []any) []domain.BatchClassification {
	results := make([]domain.BatchClassification, len(emails))
	for i, e := range emails {
		var row map[string]any
		if i < len(rows) {
			row, _ = rows[i].(map[string]any)
		}
		results[i] = domain.BatchClassification{
			ID:         e.ID,
			Category:   NormalizeCategory(row["category"]),
			Confidence: NormalizeConfidence(row["confidence"]),
		}
	}
	return results
}

// Fallback results substitute for a per-item classification that could not
// be produced. A parse failure keeps the neutral confidence; an invocation
// failure reports zero.

func enrichedFallback(e domain.Email, parseFailure bool) domain.EnrichedClassification {
	confidence, reasoning := fallbackValues(parseFailure)
	return domain.EnrichedClassification{
		Email:      e,
		Category:   domain.CategoryGeneral,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}

func advancedFallback(e domain.Email, parseFailure bool) domain.AdvancedClassification {
	confidence, reasoning := fallbackValues(parseFailure)
	return domain.AdvancedClassification{
		ID:             e.ID,
		Category:       domain.CategoryGeneral,
		Confidence:     confidence,
		Priority:       domain.PriorityMedium,
		Tags:           []string{},
		ActionRequired: false,
		Reasoning:      reasoning,
	}
}

func fallbackValues(parseFailure bool) (float64, string) {
	if parseFailure {
		return domain.DefaultConfidence, domain.ReasoningParseError
	}
	return 0, domain.ReasoningError
}
