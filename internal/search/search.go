package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"janusprop/server/internal/auth"
	"janusprop/server/internal/errs"
	"janusprop/server/internal/models"
)

// DefaultLimit bounds result sets when the caller does not ask for a
// specific size.
const DefaultLimit = 50

// Params are the search inputs. Every field except Limit is optional;
// nil/empty disables the corresponding filter. Filters are permissive:
// inverted bounds yield an empty result set, not an error.
type Params struct {
	SearchTerm   string
	PropertyType string
	City         string
	State        string
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	MaxBedrooms  *int
	Limit        int
}

// Store supplies candidate rows for ranking. Implementations push the
// structured filters and the is_active scope down into the index; they do
// not apply access control, which lives solely in this package's pipeline.
type Store interface {
	CandidateProperties(ctx context.Context, p Params) ([]*models.Property, error)
}

// Engine is the search and ranking function: filter-then-rank over the
// rows visible to the caller.
type Engine struct {
	store  Store
	logger *logrus.Logger
}

func NewEngine(store Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{store: store, logger: logger}
}

type scoredRow struct {
	result    models.SearchResult
	score     float64
	createdAt time.Time
	id        string
}

// Search returns at most p.Limit rows visible to caller, ordered by
// similarity to p.SearchTerm descending and recency as the tie-break.
// Repeating the call against an unchanged store yields the identical
// ordered result.
func (e *Engine) Search(ctx context.Context, caller *auth.Caller, p Params) ([]models.SearchResult, error) {
	if p.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive", errs.ErrInvalidArgument)
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}

	candidates, err := e.store.CandidateProperties(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	term := strings.ToLower(strings.TrimSpace(p.SearchTerm))
	scored := make([]scoredRow, 0, len(candidates))
	for _, prop := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !auth.CanReadProperty(caller, prop) {
			continue
		}
		if term != "" && !matchesTerm(prop, term) {
			continue
		}

		score := 0.0
		if term != "" {
			score = maxSimilarity(term, prop.Address, prop.City, prop.State)
		}
		scored = append(scored, scoredRow{
			result:    prop.Projection(score),
			score:     score,
			createdAt: prop.CreatedAt,
			id:        prop.ID,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if !scored[i].createdAt.Equal(scored[j].createdAt) {
			return scored[i].createdAt.After(scored[j].createdAt)
		}
		return scored[i].id < scored[j].id
	})

	if len(scored) > p.Limit {
		scored = scored[:p.Limit]
	}

	results := make([]models.SearchResult, len(scored))
	for i, row := range scored {
		results[i] = row.result
	}

	e.logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"returned":   len(results),
		"term":       term,
	}).Debug("Search completed")

	return results, nil
}

// matchesTerm applies the relevance gate: the term must appear as a
// case-insensitive substring of address, city or state. Rows failing the
// gate are excluded entirely, not down-ranked.
func matchesTerm(p *models.Property, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(p.Address), lowerTerm) ||
		strings.Contains(strings.ToLower(p.City), lowerTerm) ||
		strings.Contains(strings.ToLower(p.State), lowerTerm)
}

func maxSimilarity(term string, fields ...string) float64 {
	best := 0.0
	for _, f := range fields {
		if s := Similarity(term, f); s > best {
			best = s
		}
	}
	return best
}
