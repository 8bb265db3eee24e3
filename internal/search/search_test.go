package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"janusprop/server/internal/auth"
	"janusprop/server/internal/errs"
	"janusprop/server/internal/models"
)

// fakeStore applies the same structured push-down contract as the real
// store: is_active scope plus the conjunctive filters, ordered by
// recency. Access control is left to the engine.
type fakeStore struct {
	rows []*models.Property
	err  error
}

func (f *fakeStore) CandidateProperties(_ context.Context, p Params) ([]*models.Property, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Property
	for _, row := range f.rows {
		if !row.IsActive {
			continue
		}
		if p.PropertyType != "" && !strings.EqualFold(row.PropertyType, p.PropertyType) {
			continue
		}
		if p.State != "" && !strings.EqualFold(row.State, p.State) {
			continue
		}
		if p.City != "" && !strings.Contains(strings.ToLower(row.City), strings.ToLower(p.City)) {
			continue
		}
		if p.MinPrice != nil && (row.ListPrice == nil || *row.ListPrice < *p.MinPrice) {
			continue
		}
		if p.MaxPrice != nil && (row.ListPrice == nil || *row.ListPrice > *p.MaxPrice) {
			continue
		}
		if p.MinBedrooms != nil && (row.Bedrooms == nil || *row.Bedrooms < *p.MinBedrooms) {
			continue
		}
		if p.MaxBedrooms != nil && (row.Bedrooms == nil || *row.Bedrooms > *p.MaxBedrooms) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func austinFixtures() []*models.Property {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []*models.Property{
		{
			ID:           "prop-main",
			Address:      "123 Main St",
			City:         "Austin",
			State:        "TX",
			PropertyType: "residential",
			ListPrice:    floatPtr(300000),
			Bedrooms:     intPtr(3),
			Status:       models.StatusActive,
			IsActive:     true,
			CreatedAt:    base,
		},
		{
			ID:           "prop-oak",
			Address:      "456 Oak Ave",
			City:         "Austin",
			State:        "TX",
			PropertyType: "residential",
			ListPrice:    floatPtr(450000),
			Bedrooms:     intPtr(4),
			Status:       models.StatusActive,
			IsActive:     true,
			CreatedAt:    base.Add(time.Hour),
		},
	}
}

func newTestEngine(rows []*models.Property) *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewEngine(&fakeStore{rows: rows}, logger)
}

func TestSearch_PriceFilter(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	results, err := engine.Search(context.Background(), nil, Params{
		City:     "Austin",
		MinPrice: floatPtr(350000),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "prop-oak", results[0].ID)
}

func TestSearch_TermFilterAndRank(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	results, err := engine.Search(context.Background(), nil, Params{
		SearchTerm: "Main",
		City:       "Austin",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "prop-main", results[0].ID)
	assert.Greater(t, results[0].SimilarityScore, 0.0)
}

func TestSearch_NoArgsLimitOne(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	results, err := engine.Search(context.Background(), nil, Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	// Empty term ranks by recency only; prop-oak is newer.
	assert.Equal(t, "prop-oak", results[0].ID)
	assert.Equal(t, 0.0, results[0].SimilarityScore)
}

func TestSearch_ExactAddressRanksFirstWithFullScore(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	results, err := engine.Search(context.Background(), nil, Params{
		SearchTerm: "123 Main St",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "prop-main", results[0].ID)
	assert.Equal(t, 1.0, results[0].SimilarityScore)
}

func TestSearch_InvertedBoundsYieldEmptySet(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	results, err := engine.Search(context.Background(), nil, Params{
		MinPrice: floatPtr(500000),
		MaxPrice: floatPtr(100000),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_OffMarketVisibility(t *testing.T) {
	rows := austinFixtures()
	rows[0].Status = models.StatusOffMarket
	engine := newTestEngine(rows)

	// Anonymous callers never see an off-market row.
	results, err := engine.Search(context.Background(), nil, Params{City: "Austin"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "prop-oak", results[0].ID)

	// An authenticated caller running the identical search does.
	caller := &auth.Caller{UserID: "user-1"}
	results, err = engine.Search(context.Background(), caller, Params{City: "Austin"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_AssignedAgentSeesHiddenRow(t *testing.T) {
	rows := austinFixtures()
	rows[0].Status = models.StatusOffMarket
	rows[0].AssignedAgentID = strPtr("agent-7")
	engine := newTestEngine(rows)

	caller := &auth.Caller{UserID: "user-2", AgentID: "agent-7"}
	results, err := engine.Search(context.Background(), caller, Params{SearchTerm: "Main"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "prop-main", results[0].ID)
}

func TestSearch_LimitBound(t *testing.T) {
	var rows []*models.Property
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 80; i++ {
		rows = append(rows, &models.Property{
			ID:           "prop-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Address:      "1 Test Way",
			City:         "Austin",
			State:        "TX",
			PropertyType: "residential",
			Status:       models.StatusActive,
			IsActive:     true,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	engine := newTestEngine(rows)

	// Default limit caps the result set.
	results, err := engine.Search(context.Background(), nil, Params{})
	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)

	results, err = engine.Search(context.Background(), nil, Params{Limit: 7})
	require.NoError(t, err)
	assert.Len(t, results, 7)
}

func TestSearch_NegativeLimitIsInvalid(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	_, err := engine.Search(context.Background(), nil, Params{Limit: -1})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestSearch_Idempotent(t *testing.T) {
	engine := newTestEngine(austinFixtures())
	params := Params{SearchTerm: "Austin", State: "TX"}

	first, err := engine.Search(context.Background(), nil, params)
	require.NoError(t, err)
	second, err := engine.Search(context.Background(), nil, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearch_TermMustMatchSubstring(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	results, err := engine.Search(context.Background(), nil, Params{SearchTerm: "Dallas"})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = engine.Search(context.Background(), nil, Params{SearchTerm: "aus"})
	require.NoError(t, err)
	// Case-insensitive substring of the city matches both rows.
	assert.Len(t, results, 2)
}

func TestSearch_StoreErrorPropagates(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	engine := NewEngine(&fakeStore{err: errs.ErrUnavailable}, logger)

	_, err := engine.Search(context.Background(), nil, Params{})
	assert.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestSearch_CancelledContext(t *testing.T) {
	engine := newTestEngine(austinFixtures())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Search(ctx, nil, Params{})
	assert.True(t, errors.Is(err, context.Canceled))
}
