package domain

// Mode selects one of the three classification strategies.
type Mode string

const (
	// ModeSingle classifies each email in its own model call and echoes the
	// email fields alongside the result.
	ModeSingle Mode = "single"
	// ModeBatch classifies every email in one model call, associating output
	// rows with inputs by position.
	ModeBatch Mode = "batch-list"
	// ModeAdvanced classifies each email in its own call with priority, tags
	// and an action flag.
	ModeAdvanced Mode = "advanced"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeSingle, ModeBatch, ModeAdvanced:
		return true
	}
	return false
}

// ParseMode accepts the mode names and the short aliases used by the CLI.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "single", "simple":
		return ModeSingle, true
	case "batch-list", "batch":
		return ModeBatch, true
	case "advanced":
		return ModeAdvanced, true
	}
	return "", false
}

// Fallback reasoning strings.
const (
	ReasoningCompleted  = "Classification completed"
	ReasoningParseError = "Unable to parse classification response"
	ReasoningError      = "Error during classification"
)

const (
	// DefaultConfidence replaces an absent or zero model confidence.
	DefaultConfidence = 0.5
	// MaxTags is the number of tags kept from an advanced classification.
	MaxTags = 5
)

// Classification is implemented by every result shape so the merge layer can
// treat them uniformly.
type Classification interface {
	EmailID() string
	Record() ClassificationRecord
}

// EnrichedClassification is the single-mode result: the original email with
// category, confidence and reasoning attached.
type EnrichedClassification struct {
	Email
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

func (c EnrichedClassification) EmailID() string { return c.ID }

func (c EnrichedClassification) Record() ClassificationRecord {
	return ClassificationRecord{Category: c.Category, Confidence: c.Confidence}
}

// BatchClassification is one row of a batch-list result.
type BatchClassification struct {
	ID         string   `json:"id"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

func (c BatchClassification) EmailID() string { return c.ID }

func (c BatchClassification) Record() ClassificationRecord {
	return ClassificationRecord{Category: c.Category, Confidence: c.Confidence}
}

// AdvancedClassification is the multi-field result.
type AdvancedClassification struct {
	ID             string   `json:"id"`
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	Priority       Priority `json:"priority"`
	Tags           []string `json:"tags"`
	ActionRequired bool     `json:"actionRequired"`
	Reasoning      string   `json:"reasoning"`
}

func (c AdvancedClassification) EmailID() string { return c.ID }

func (c AdvancedClassification) Record() ClassificationRecord {
	return ClassificationRecord{
		Category:       c.Category,
		Confidence:     c.Confidence,
		Priority:       c.Priority,
		ActionRequired: c.ActionRequired,
	}
}

// ClassificationRecord is the value persisted per email id in the client's
// classified map.
type ClassificationRecord struct {
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	Priority       Priority `json:"priority,omitempty"`
	ActionRequired bool     `json:"actionRequired,omitempty"`
}

// PriorityOrDefault returns the stored priority, or medium when the record
// came from a mode without priorities.
func (r ClassificationRecord) PriorityOrDefault() Priority {
	if r.Priority == "" {
		return PriorityMedium
	}
	return r.Priority
}

// ClassificationResult is the mode-agnostic wire shape a client decodes a
// classify response into. Fields absent from the mode stay zero.
type ClassificationResult struct {
	ID             string   `json:"id"`
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	Priority       Priority `json:"priority,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ActionRequired bool     `json:"actionRequired,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

func (c ClassificationResult) EmailID() string { return c.ID }

func (c ClassificationResult) Record() ClassificationRecord {
	return ClassificationRecord{
		Category:       c.Category,
		Confidence:     c.Confidence,
		Priority:       c.Priority,
		ActionRequired: c.ActionRequired,
	}
}

// Records indexes a result set by email id. Later entries for the same id win.
func Records[T Classification](results []T) map[string]ClassificationRecord {
	out := make(map[string]ClassificationRecord, len(results))
	for _, r := range results {
		out[r.EmailID()] = r.Record()
	}
	return out
}
