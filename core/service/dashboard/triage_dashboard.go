// Package dashboard is the client-side merge layer: it annotates fetched mail
// with persisted classifications, classifies what is pending and folds the
// results back into the device-local map.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"
)

// ErrNothingToClassify is returned when every loaded email already has a
// classification.
var ErrNothingToClassify = errors.New("all emails are already classified")

// NothingToClassifyMessage is the user-facing text for ErrNothingToClassify.
const NothingToClassifyMessage = "All emails are already classified"

// DefaultMode is the mode the dashboard classifies with.
const DefaultMode = domain.ModeAdvanced

var _ in.DashboardService = (*Service)(nil)

type Service struct {
	mail       out.MailProvider
	classifier out.RemoteClassifier
	store      out.ClassificationStore
	maxResults int64
	log        *logger.Logger
}

func NewService(mail out.MailProvider, classifier out.RemoteClassifier, store out.ClassificationStore, maxResults int64) *Service {
	return &Service{
		mail:       mail,
		classifier: classifier,
		store:      store,
		maxResults: maxResults,
		log:        logger.WithField("component", "dashboard"),
	}
}

// Load fetches recent mail and annotates each email from the persisted map.
func (s *Service) Load(ctx context.Context) ([]domain.EmailView, error) {
	emails, err := s.mail.FetchRecent(ctx, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifications: %w", err)
	}

	return Annotate(emails, records), nil
}

// Annotate pairs each email with its stored record, or marks it Unclassified.
func Annotate(emails []domain.Email, records map[string]domain.ClassificationRecord) []domain.EmailView {
	views := make([]domain.EmailView, len(emails))
	for i, e := range emails {
		var rec *domain.ClassificationRecord
		if r, ok := records[e.ID]; ok {
			rec = &r
		}
		views[i] = domain.NewEmailView(e, rec)
	}
	return views
}

// ClassifyPending sends every Unclassified view to the classifier, merges
// the results into the persisted map and returns the updated views with the
// number of emails classified. Nothing is persisted unless the whole call
// succeeds; on failure the input views are returned unchanged.
func (s *Service) ClassifyPending(ctx context.Context, views []domain.EmailView, mode domain.Mode) ([]domain.EmailView, int, error) {
	if mode == "" {
		mode = DefaultMode
	}

	var pending []domain.Email
	for _, v := range views {
		if !v.IsClassified() {
			pending = append(pending, v.Email)
		}
	}
	if len(pending) == 0 {
		return views, 0, ErrNothingToClassify
	}

	results, err := s.classifier.Classify(ctx, mode, pending)
	if err != nil {
		return views, 0, fmt.Errorf("failed to classify emails: %w", err)
	}

	records := domain.Records(results)
	if err := s.store.Merge(ctx, records); err != nil {
		return views, 0, fmt.Errorf("failed to save classifications: %w", err)
	}

	s.log.WithFields(map[string]any{
		"mode":       string(mode),
		"classified": len(records),
	}).Info("classified %d pending emails", len(records))

	return ApplyRecords(views, records), len(records), nil
}

// ApplyRecords returns a copy of views where every view with a record takes
// that record's classification.
func ApplyRecords(views []domain.EmailView, records map[string]domain.ClassificationRecord) []domain.EmailView {
	updated := slices.Clone(views)
	for i := range updated {
		if rec, ok := records[updated[i].ID]; ok {
			updated[i].Apply(rec)
		}
	}
	return updated
}

// Clear forgets every persisted classification.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// CategoryCount is one row of the category distribution.
type CategoryCount struct {
	Category domain.Category `json:"category"`
	Count    int             `json:"count"`
}

// Stats summarizes a set of views.
type Stats struct {
	Total          int                     `json:"total"`
	Classified     int                     `json:"classified"`
	Unclassified   int                     `json:"unclassified"`
	RatePercent    int                     `json:"ratePercent"`
	ByCategory     map[domain.Category]int `json:"byCategory"`
	Distribution   []CategoryCount         `json:"distribution"`
	ActionRequired int                     `json:"actionRequired"`
}

// TopCategory returns the most frequent category, if any.
func (s Stats) TopCategory() (CategoryCount, bool) {
	if len(s.Distribution) == 0 {
		return CategoryCount{}, false
	}
	return s.Distribution[0], true
}

// ComputeStats counts views per category, Unclassified included. The
// distribution is sorted by count descending; ties keep first-seen order.
func ComputeStats(views []domain.EmailView) Stats {
	st := Stats{
		Total:        len(views),
		ByCategory:   make(map[domain.Category]int),
		Distribution: []CategoryCount{},
	}

	var order []domain.Category
	for _, v := range views {
		cat := v.Category
		if cat == "" {
			cat = domain.CategoryUnclassified
		}
		if _, seen := st.ByCategory[cat]; !seen {
			order = append(order, cat)
		}
		st.ByCategory[cat]++

		if cat == domain.CategoryUnclassified {
			st.Unclassified++
		} else {
			st.Classified++
		}
		if v.ActionRequired {
			st.ActionRequired++
		}
	}

	if st.Total > 0 {
		st.RatePercent = int(math.Round(float64(st.Classified) / float64(st.Total) * 100))
	}

	for _, cat := range order {
		st.Distribution = append(st.Distribution, CategoryCount{Category: cat, Count: st.ByCategory[cat]})
	}
	slices.SortStableFunc(st.Distribution, func(a, b CategoryCount) int {
		return b.Count - a.Count
	})
	return st
}

// Filter keeps views in category (All matches every view) whose subject or
// sender contains search, case-insensitively. An empty search matches all.
func Filter(views []domain.EmailView, category domain.Category, search string) []domain.EmailView {
	if category == "" {
		category = domain.CategoryAll
	}
	needle := strings.ToLower(search)

	out := make([]domain.EmailView, 0, len(views))
	for _, v := range views {
		if category != domain.CategoryAll && v.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(v.Subject), needle) &&
			!strings.Contains(strings.ToLower(v.From), needle) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ParseFilterCategory accepts All, a taxonomy label or Unclassified,
// case-insensitively.
func ParseFilterCategory(s string) (domain.Category, bool) {
	if s == "" {
		return domain.CategoryAll, true
	}
	for _, c := range domain.FilterCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
