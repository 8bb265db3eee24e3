package models

import (
	"strings"
	"time"
)

// Property lifecycle statuses.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusSold      = "sold"
	StatusOffMarket = "off_market"
)

type Property struct {
	ID              string     `json:"id" gorm:"primaryKey;column:id"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zip_code"`
	PropertyType    string     `json:"property_type"`
	PropertySubtype string     `json:"property_subtype"`
	Bedrooms        *int       `json:"bedrooms"`
	Bathrooms       *float64   `json:"bathrooms"`
	SquareFeet      *int       `json:"square_feet"`
	LotSize         *int       `json:"lot_size"`
	YearBuilt       *int       `json:"year_built"`
	ListPrice       *float64   `json:"list_price"`
	EstimatedValue  *float64   `json:"estimated_value"`
	LastSoldPrice   *float64   `json:"last_sold_price"`
	LastSoldDate    *time.Time `json:"last_sold_date"`
	TaxAssessment   *float64   `json:"tax_assessment"`
	Status          string     `json:"status"`
	IsActive        bool       `json:"is_active"`
	Description     string     `json:"description"`
	Neighborhood    string     `json:"neighborhood"`
	Features        AttrBag    `json:"features" gorm:"type:text"`
	MarketData      AttrBag    `json:"market_data" gorm:"type:text"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	AssignedAgentID *string    `json:"assigned_agent_id"`
	// SearchText is the denormalized blob the similarity index reads.
	// It must be recomputed inside the same transaction as every mutation.
	SearchText string    `json:"-" gorm:"column:search_text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Property) TableName() string {
	return "properties"
}

// ComputeSearchText rebuilds the lowercased text blob used for similarity
// ranking. Callers persist the result together with the row.
func (p *Property) ComputeSearchText() string {
	parts := []string{p.Address, p.City, p.State, p.Description, p.Neighborhood}
	nonEmpty := parts[:0]
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// PubliclyVisible reports whether the row is visible without an
// authenticated identity.
func (p *Property) PubliclyVisible() bool {
	return p.IsActive && p.Status != StatusOffMarket
}

// SearchResult is the row projection returned by the search function.
type SearchResult struct {
	ID              string   `json:"id"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	PropertyType    string   `json:"property_type"`
	ListPrice       *float64 `json:"list_price"`
	Bedrooms        *int     `json:"bedrooms"`
	Bathrooms       *float64 `json:"bathrooms"`
	SquareFeet      *int     `json:"square_feet"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	SimilarityScore float64  `json:"similarity_score"`
}

// Projection builds the search result row for a property.
func (p *Property) Projection(score float64) SearchResult {
	return SearchResult{
		ID:              p.ID,
		Address:         p.Address,
		City:            p.City,
		State:           p.State,
		PropertyType:    p.PropertyType,
		ListPrice:       p.ListPrice,
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		SquareFeet:      p.SquareFeet,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		SimilarityScore: score,
	}
}
