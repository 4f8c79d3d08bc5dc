package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage_server/adapter/out/persistence"
	"triage_server/core/domain"
)

type fakeMail struct {
	emails []domain.Email
	err    error
	asked  int64
}

func (m *fakeMail) FetchRecent(ctx context.Context, maxResults int64) ([]domain.Email, error) {
	m.asked = maxResults
	return m.emails, m.err
}

type fakeRemote struct {
	calls  int
	mode   domain.Mode
	sent   []domain.Email
	result func([]domain.Email) []domain.ClassificationResult
	err    error
}

func (r *fakeRemote) Classify(ctx context.Context, mode domain.Mode, emails []domain.Email) ([]domain.ClassificationResult, error) {
	r.calls++
	r.mode = mode
	r.sent = emails
	if r.err != nil {
		return nil, r.err
	}
	return r.result(emails), nil
}

var inbox = []domain.Email{
	{ID: "m1", From: "Boss <boss@corp.com>", Subject: "Board meeting"},
	{ID: "m2", From: "deals@shop.com", Subject: "Flash SALE"},
	{ID: "m3", From: "friend@social.net", Subject: "Photos"},
}

func allImportant(emails []domain.Email) []domain.ClassificationResult {
	out := make([]domain.ClassificationResult, len(emails))
	for i, e := range emails {
		out[i] = domain.ClassificationResult{ID: e.ID, Category: domain.CategoryImportant, Confidence: 0.9,
			Priority: domain.PriorityHigh, ActionRequired: true}
	}
	return out
}

func newTestService(remote *fakeRemote) (*Service, *persistence.ClassifiedMap) {
	store := persistence.NewClassifiedMap(persistence.NewMemoryStore())
	return NewService(&fakeMail{emails: inbox}, remote, store, 20), store
}

func TestLoadAnnotatesFromStore(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(&fakeRemote{})
	require.NoError(t, store.Merge(ctx, map[string]domain.ClassificationRecord{
		"m2":   {Category: domain.CategoryPromotions, Confidence: 0.8},
		"gone": {Category: domain.CategorySpam, Confidence: 1},
	}))

	views, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, domain.CategoryUnclassified, views[0].Category)
	assert.Equal(t, 0.0, views[0].Confidence)
	assert.Equal(t, domain.PriorityMedium, views[0].Priority)
	assert.False(t, views[0].ActionRequired)

	assert.Equal(t, domain.CategoryPromotions, views[1].Category)
	assert.Equal(t, 0.8, views[1].Confidence)
	assert.Equal(t, domain.PriorityMedium, views[1].Priority, "records without priority default to medium")
}

func TestLoadFetchError(t *testing.T) {
	store := persistence.NewClassifiedMap(persistence.NewMemoryStore())
	svc := NewService(&fakeMail{err: errors.New("401")}, &fakeRemote{}, store, 20)

	_, err := svc.Load(context.Background())
	assert.Error(t, err)
}

func TestClassifyPending(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{result: allImportant}
	svc, store := newTestService(remote)
	require.NoError(t, store.Merge(ctx, map[string]domain.ClassificationRecord{
		"m2":    {Category: domain.CategoryPromotions, Confidence: 0.8},
		"older": {Category: domain.CategorySpam, Confidence: 1},
	}))

	views, err := svc.Load(ctx)
	require.NoError(t, err)

	updated, n, err := svc.ClassifyPending(ctx, views, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, DefaultMode, remote.mode)
	assert.Equal(t, []string{"m1", "m3"}, []string{remote.sent[0].ID, remote.sent[1].ID}, "only unclassified emails are sent")

	assert.Equal(t, domain.CategoryImportant, updated[0].Category)
	assert.Equal(t, domain.PriorityHigh, updated[0].Priority)
	assert.True(t, updated[0].ActionRequired)
	assert.Equal(t, domain.CategoryPromotions, updated[1].Category, "classified views are untouched")
	assert.Equal(t, domain.CategoryUnclassified, views[0].Category, "input views are not mutated")

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, 4, "merge keeps entries for emails not in this batch")
	assert.Equal(t, domain.CategorySpam, persisted["older"].Category)
	assert.Equal(t, domain.CategoryImportant, persisted["m3"].Category)

	_, _, err = svc.ClassifyPending(ctx, updated, domain.ModeAdvanced)
	assert.ErrorIs(t, err, ErrNothingToClassify)
	assert.Equal(t, 1, remote.calls)
}

func TestClassifyPendingFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{err: errors.New("Batch classification failed")}
	svc, store := newTestService(remote)

	views, err := svc.Load(ctx)
	require.NoError(t, err)

	got, n, err := svc.ClassifyPending(ctx, views, domain.ModeBatch)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, views, got)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestComputeStats(t *testing.T) {
	views := []domain.EmailView{
		{Category: domain.CategoryUnclassified},
		{Category: domain.CategorySpam},
		{Category: domain.CategoryImportant, ActionRequired: true},
		{Category: domain.CategoryImportant},
		{Category: domain.CategorySpam},
		{Category: domain.CategoryImportant},
	}

	st := ComputeStats(views)
	assert.Equal(t, 6, st.Total)
	assert.Equal(t, 5, st.Classified)
	assert.Equal(t, 1, st.Unclassified)
	assert.Equal(t, 83, st.RatePercent)
	assert.Equal(t, 1, st.ActionRequired)
	assert.Equal(t, []CategoryCount{
		{Category: domain.CategoryImportant, Count: 3},
		{Category: domain.CategorySpam, Count: 2},
		{Category: domain.CategoryUnclassified, Count: 1},
	}, st.Distribution)

	top, ok := st.TopCategory()
	require.True(t, ok)
	assert.Equal(t, domain.CategoryImportant, top.Category)

	empty := ComputeStats(nil)
	assert.Equal(t, 0, empty.RatePercent)
	_, ok = empty.TopCategory()
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	views := Annotate(inbox, map[string]domain.ClassificationRecord{
		"m2":   {Category: domain.CategoryPromotions, Confidence: 0.8},
	})

	tests := []struct {
		name     string
		category domain.Category
		search   string
		want     []string
	}{
		{name: "all", category: domain.CategoryAll, want: []string{"m1", "m2", "m3"}},
		{name: "empty category means all", category: "", want: []string{"m1", "m2", "m3"}},
		{name: "by category", category: domain.CategoryPromotions, want: []string{"m2"}},
		{name: "unclassified", category: domain.CategoryUnclassified, want: []string{"m1", "m3"}},
		{name: "subject search is case-insensitive", category: domain.CategoryAll, search: "sale", want: []string{"m2"}},
		{name: "sender search", category: domain.CategoryAll, search: "BOSS@", want: []string{"m1"}},
		{name: "category and search combine", category: domain.CategoryUnclassified, search: "sale", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(views, tt.category, tt.search)
			ids := make([]string, 0, len(got))
			for _, v := range got {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestParseFilterCategory(t *testing.T) {
	c, ok := ParseFilterCategory("spam")
	assert.True(t, ok)
	assert.Equal(t, domain.CategorySpam, c)

	c, ok = ParseFilterCategory("")
	assert.True(t, ok)
	assert.Equal(t, domain.CategoryAll, c)

	_, ok = ParseFilterCategory("Newsletters")
	assert.False(t, ok)
}
