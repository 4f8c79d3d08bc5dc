package domain

// Email is a message fetched from the mail provider. It is never mutated
// after fetch; classification produces separate records keyed by ID.
type Email struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	Subject      string `json:"subject"`
	Snippet      string `json:"snippet,omitempty"`
	Body         string `json:"body,omitempty"`
	InternalDate string `json:"internalDate,omitempty"` // provider epoch millis, as returned
}

// EmailView is an email annotated with its persisted classification,
// the row the dashboard lists.
type EmailView struct {
	Email
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	Priority       Priority `json:"priority"`
	ActionRequired bool     `json:"actionRequired"`
}

// IsClassified reports whether a classification has been recorded for the row.
func (v EmailView) IsClassified() bool {
	return v.Category != CategoryUnclassified
}

// Apply overwrites the classification fields of the view with rec.
func (v *EmailView) Apply(rec ClassificationRecord) {
	v.Category = rec.Category
	v.Confidence = rec.Confidence
	v.Priority = rec.PriorityOrDefault()
	v.ActionRequired = rec.ActionRequired
}

// NewEmailView annotates e with rec, or marks it Unclassified when rec is nil.
func NewEmailView(e Email, rec *ClassificationRecord) EmailView {
	v := EmailView{
		Email:      e,
		Category:   CategoryUnclassified,
		Confidence: 0,
		Priority:   PriorityMedium,
	}
	if rec != nil && rec.Category != "" {
		v.Apply(*rec)
	}
	return v
}
