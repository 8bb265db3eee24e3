package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"janusprop/server/internal/auth"
	"janusprop/server/internal/errs"
	"janusprop/server/internal/models"
	"janusprop/server/internal/search"
)

var writer = &auth.Caller{UserID: "user-1"}

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations())
	return db
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func newProperty(address, city, state string) *models.Property {
	return &models.Property{
		Address:      address,
		City:         city,
		State:        state,
		PropertyType: "residential",
		Status:       models.StatusActive,
		IsActive:     true,
	}
}

func TestCreateAndGetProperty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("123 Main St", "Austin", "TX")
	p.ListPrice = floatPtr(300000)
	p.Bedrooms = intPtr(3)
	p.Features = models.AttrBag{"pool": models.BoolAttr(true)}
	require.NoError(t, db.CreateProperty(ctx, writer, p))
	require.NotEmpty(t, p.ID)

	got, err := db.GetProperty(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "123 Main St", got.Address)
	assert.Equal(t, "Austin", got.City)
	require.NotNil(t, got.ListPrice)
	assert.Equal(t, 300000.0, *got.ListPrice)
	require.NotNil(t, got.Bedrooms)
	assert.Equal(t, 3, *got.Bedrooms)
	assert.True(t, got.Features.Contains(models.AttrBag{"pool": models.BoolAttr(true)}))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestCreateProperty_Validation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Anonymous writes are forbidden.
	err := db.CreateProperty(ctx, nil, newProperty("1 A St", "Austin", "TX"))
	assert.ErrorIs(t, err, errs.ErrForbidden)

	// Required fields.
	err = db.CreateProperty(ctx, writer, newProperty("", "Austin", "TX"))
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	// Negative numerics are malformed, not a filter mismatch.
	bad := newProperty("1 A St", "Austin", "TX")
	bad.ListPrice = floatPtr(-5)
	err = db.CreateProperty(ctx, writer, bad)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

// Reusing a client-supplied identifier is a caller mistake, not a
// storage outage, so it must not surface as retryable.
func TestCreateProperty_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("123 Main St", "Austin", "TX")
	p.ID = "fixed-id"
	require.NoError(t, db.CreateProperty(ctx, writer, p))

	dup := newProperty("456 Oak Ave", "Austin", "TX")
	dup.ID = "fixed-id"
	err := db.CreateProperty(ctx, writer, dup)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.NotErrorIs(t, err, errs.ErrUnavailable)
}

func TestGetProperty_HiddenRowIsNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("9 Quiet Ln", "Austin", "TX")
	p.Status = models.StatusOffMarket
	require.NoError(t, db.CreateProperty(ctx, writer, p))

	// Anonymous read of a hidden row is indistinguishable from absence.
	_, err := db.GetProperty(ctx, nil, p.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// An authenticated caller sees it.
	got, err := db.GetProperty(ctx, writer, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// And so does the assigned agent, even anonymously otherwise hidden.
	agentID := "agent-1"
	require.NoError(t, db.CreateAgent(ctx, writer, &models.Agent{ID: agentID, Name: "A", AgentType: "listing", IsActive: true}))
	got.AssignedAgentID = &agentID
	require.NoError(t, db.UpdateProperty(ctx, writer, got))

	agentCaller := &auth.Caller{UserID: "user-agent", AgentID: agentID}
	_, err = db.GetProperty(ctx, agentCaller, p.ID)
	assert.NoError(t, err)
}

func TestUpdateProperty_BumpsUpdatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("123 Main St", "Austin", "TX")
	require.NoError(t, db.CreateProperty(ctx, writer, p))
	created := p.CreatedAt

	time.Sleep(10 * time.Millisecond)
	p.ListPrice = floatPtr(310000)
	require.NoError(t, db.UpdateProperty(ctx, writer, p))

	got, err := db.GetProperty(ctx, writer, p.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(created))
	assert.True(t, got.CreatedAt.Equal(created) || got.CreatedAt.Sub(created) < time.Millisecond)
}

func TestUpdateProperty_MissingRow(t *testing.T) {
	db := setupTestDB(t)

	p := newProperty("123 Main St", "Austin", "TX")
	p.ID = "does-not-exist"
	err := db.UpdateProperty(context.Background(), writer, p)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSoftDeletePreservesHistory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("123 Main St", "Austin", "TX")
	require.NoError(t, db.CreateProperty(ctx, writer, p))
	require.NoError(t, db.SoftDeleteProperty(ctx, writer, p.ID))

	// Hidden from anonymous callers, retained for authenticated ones.
	_, err := db.GetProperty(ctx, nil, p.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := db.GetProperty(ctx, writer, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.StatusOffMarket, got.Status)

	// Retired rows leave the search scope entirely.
	candidates, err := db.CandidateProperties(ctx, search.Params{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestDestroyPropertyCascadesInsights(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("123 Main St", "Austin", "TX")
	require.NoError(t, db.CreateProperty(ctx, writer, p))

	insight := &models.AIInsight{
		PropertyID:      p.ID,
		InsightType:     "valuation",
		Title:           "Undervalued",
		ConfidenceScore: 0.8,
		AIModel:         "gemini-pro",
		IsActive:        true,
	}
	require.NoError(t, db.CreateInsight(ctx, writer, insight))

	require.NoError(t, db.DestroyProperty(ctx, writer, p.ID))

	_, err := db.GetProperty(ctx, writer, p.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	var count int
	require.NoError(t, db.GetDB().QueryRow(
		"SELECT COUNT(*) FROM ai_insights WHERE property_id = ?", p.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestDeleteAgentClearsWeakReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := &models.Agent{Name: "Carol", AgentType: "listing", IsActive: true}
	require.NoError(t, db.CreateAgent(ctx, writer, agent))

	p := newProperty("123 Main St", "Austin", "TX")
	p.AssignedAgentID = &agent.ID
	require.NoError(t, db.CreateProperty(ctx, writer, p))

	require.NoError(t, db.DeleteAgent(ctx, writer, agent.ID))

	got, err := db.GetProperty(ctx, writer, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedAgentID)
}

func TestCreateInsight_ConfidenceBounds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("123 Main St", "Austin", "TX")
	require.NoError(t, db.CreateProperty(ctx, writer, p))

	insight := &models.AIInsight{
		PropertyID:      p.ID,
		InsightType:     "valuation",
		Title:           "Bad score",
		ConfidenceScore: 1.5,
		AIModel:         "gemini-pro",
	}
	err := db.CreateInsight(ctx, writer, insight)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestListInsights_FollowsPropertyVisibility(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := newProperty("9 Quiet Ln", "Austin", "TX")
	p.Status = models.StatusOffMarket
	require.NoError(t, db.CreateProperty(ctx, writer, p))
	require.NoError(t, db.CreateInsight(ctx, writer, &models.AIInsight{
		PropertyID:      p.ID,
		InsightType:     "valuation",
		Title:           "Hidden insight",
		ConfidenceScore: 0.5,
		AIModel:         "gemini-pro",
		IsActive:        true,
	}))

	_, err := db.ListInsightsForProperty(ctx, nil, p.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	insights, err := db.ListInsightsForProperty(ctx, writer, p.ID)
	require.NoError(t, err)
	assert.Len(t, insights, 1)
}

func TestCandidateProperties_StructuredFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	main := newProperty("123 Main St", "Austin", "TX")
	main.ListPrice = floatPtr(300000)
	main.Bedrooms = intPtr(3)
	require.NoError(t, db.CreateProperty(ctx, writer, main))

	oak := newProperty("456 Oak Ave", "Austin", "TX")
	oak.ListPrice = floatPtr(450000)
	oak.Bedrooms = intPtr(4)
	require.NoError(t, db.CreateProperty(ctx, writer, oak))

	dallas := newProperty("789 Elm Rd", "Dallas", "TX")
	dallas.ListPrice = floatPtr(400000)
	require.NoError(t, db.CreateProperty(ctx, writer, dallas))

	// Price bound drops the cheaper Austin row.
	rows, err := db.CandidateProperties(ctx, search.Params{City: "Austin", MinPrice: floatPtr(350000)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, oak.ID, rows[0].ID)

	// City is a case-insensitive substring match.
	rows, err = db.CandidateProperties(ctx, search.Params{City: "aust"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Bedroom bounds exclude rows with unknown counts.
	rows, err = db.CandidateProperties(ctx, search.Params{MinBedrooms: intPtr(1)})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Inverted bounds produce an empty set, not an error.
	rows, err = db.CandidateProperties(ctx, search.Params{MinPrice: floatPtr(500000), MaxPrice: floatPtr(100000)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// The search_text column narrows term queries before the engine's field
// gate runs.
func TestCandidateProperties_TermPrefilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	main := newProperty("123 Main St", "Austin", "TX")
	require.NoError(t, db.CreateProperty(ctx, writer, main))

	oak := newProperty("456 Oak Ave", "Dallas", "TX")
	oak.Description = "Quiet street near the main hospital"
	require.NoError(t, db.CreateProperty(ctx, writer, oak))

	elm := newProperty("789 Elm Rd", "Houston", "TX")
	require.NoError(t, db.CreateProperty(ctx, writer, elm))

	// The prefilter matches the full search text, case-insensitively, so
	// the description hit survives alongside the address hit.
	rows, err := db.CandidateProperties(ctx, search.Params{SearchTerm: "MAIN"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.NotEqual(t, elm.ID, r.ID)
	}

	rows, err = db.CandidateProperties(ctx, search.Params{SearchTerm: "nowhere at all"})
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The engine's gate then drops the description-only hit.
	engine := search.NewEngine(db, nil)
	results, err := engine.Search(ctx, nil, search.Params{SearchTerm: "Main"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, main.ID, results[0].ID)
}

func TestListLeads(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := &models.Agent{Name: "Carol", AgentType: "listing", IsActive: true}
	require.NoError(t, db.CreateAgent(ctx, writer, agent))

	require.NoError(t, db.CreateLead(ctx, writer, &models.Lead{Name: "Alice", AssignedAgentID: &agent.ID}))
	require.NoError(t, db.CreateLead(ctx, writer, &models.Lead{Name: "Bob"}))

	// Leads are never public; anonymous callers see an empty list.
	leads, err := db.ListLeads(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, leads)

	leads, err = db.ListLeads(ctx, writer, "")
	require.NoError(t, err)
	assert.Len(t, leads, 2)

	leads, err = db.ListLeads(ctx, writer, agent.ID)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Alice", leads[0].Name)
}

// End-to-end: the engine over the real store.
func TestSearchEngine_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	main := newProperty("123 Main St", "Austin", "TX")
	main.ListPrice = floatPtr(300000)
	main.Bedrooms = intPtr(3)
	require.NoError(t, db.CreateProperty(ctx, writer, main))

	// Distinct created_at stamps keep the recency tie-break deterministic.
	time.Sleep(5 * time.Millisecond)

	oak := newProperty("456 Oak Ave", "Austin", "TX")
	oak.ListPrice = floatPtr(450000)
	oak.Bedrooms = intPtr(4)
	require.NoError(t, db.CreateProperty(ctx, writer, oak))

	engine := search.NewEngine(db, nil)

	results, err := engine.Search(ctx, nil, search.Params{SearchTerm: "Main", City: "Austin"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, main.ID, results[0].ID)

	results, err = engine.Search(ctx, nil, search.Params{SearchTerm: "123 Main St"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, main.ID, results[0].ID)
	assert.Equal(t, 1.0, results[0].SimilarityScore)

	results, err = engine.Search(ctx, nil, search.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, oak.ID, results[0].ID)
}
