package domain

// Category is a label from the closed classification taxonomy.
type Category string

const (
	CategoryImportant  Category = "Important"
	CategoryPromotions Category = "Promotions"
	CategorySocial     Category = "Social"
	CategoryMarketing  Category = "Marketing"
	CategorySpam       Category = "Spam"
	CategoryGeneral    Category = "General"

	// CategoryUnclassified is a dashboard-only marker for emails without a
	// persisted classification. It is never a valid model output.
	CategoryUnclassified Category = "Unclassified"

	// CategoryAll is the dashboard filter value that matches every row.
	CategoryAll Category = "All"
)

// Categories is the taxonomy in prompt order.
var Categories = []Category{
	CategoryImportant,
	CategoryPromotions,
	CategorySocial,
	CategoryMarketing,
	CategorySpam,
	CategoryGeneral,
}

// FilterCategories lists every value the dashboard can filter by.
var FilterCategories = append(append([]Category{CategoryAll}, Categories...), CategoryUnclassified)

// IsValid reports whether c belongs to the taxonomy.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory returns the taxonomy label for s, or General for anything
// outside the taxonomy. Matching is exact, as the model is asked for exact labels.
func ParseCategory(s string) Category {
	c := Category(s)
	if c.IsValid() {
		return c
	}
	return CategoryGeneral
}

// CategoryNames returns the taxonomy as plain strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// Priority is the advanced classifier's urgency bucket.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is one of high, medium or low.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority returns the priority for s, defaulting to medium.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if p.IsValid() {
		return p
	}
	return PriorityMedium
}
