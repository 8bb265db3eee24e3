package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"janusprop/server/internal/models"
)

// The ingestion path writes through gorm so batches share one upsert
// transaction. The query path stays on raw SQL; both operate on the same
// schema created by RunMigrations.

// NewGormDB opens the ingestion handle on the same database file.
func NewGormDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	return db, nil
}

// upsertColumns are the attributes refreshed when an ingested row
// collides with an existing identifier. The identifier and created_at
// are immutable.
var upsertColumns = []string{
	"address", "city", "state", "zip_code", "property_type", "property_subtype",
	"bedrooms", "bathrooms", "square_feet", "lot_size", "year_built",
	"list_price", "estimated_value", "last_sold_price", "last_sold_date", "tax_assessment",
	"status", "is_active", "description", "neighborhood", "features", "market_data",
	"latitude", "longitude", "assigned_agent_id", "search_text", "updated_at",
}

// UpsertProperties writes a batch inside the caller's transaction. The
// search text is rebuilt per row so the similarity index is maintained
// transactionally with the mutation.
func UpsertProperties(tx *gorm.DB, batch []*models.Property) error {
	if len(batch) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, p := range batch {
		if err := validateProperty(p); err != nil {
			return fmt.Errorf("invalid property in batch: %w", err)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Status == "" {
			p.Status = models.StatusActive
			p.IsActive = true
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		p.SearchText = p.ComputeSearchText()
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(batch).Error
}
