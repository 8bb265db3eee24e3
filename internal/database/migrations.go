package database

import "fmt"

// RunMigrations creates the schema and the indexes backing the search
// function. Index maintenance is synchronous: every statement that
// mutates a row updates the indexed columns (including search_text) in
// the same transaction, so the structured filters and the similarity
// ranking never observe a stale index.
func (d *Database) RunMigrations() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			agent_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			config TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			address TEXT NOT NULL,
			city TEXT NOT NULL,
			state TEXT NOT NULL,
			zip_code TEXT NOT NULL DEFAULT '',
			property_type TEXT NOT NULL,
			property_subtype TEXT NOT NULL DEFAULT '',
			bedrooms INTEGER,
			bathrooms REAL,
			square_feet INTEGER,
			lot_size INTEGER,
			year_built INTEGER,
			list_price REAL,
			estimated_value REAL,
			last_sold_price REAL,
			last_sold_date TIMESTAMP,
			tax_assessment REAL,
			status TEXT NOT NULL DEFAULT 'active',
			is_active INTEGER NOT NULL DEFAULT 1,
			description TEXT NOT NULL DEFAULT '',
			neighborhood TEXT NOT NULL DEFAULT '',
			features TEXT,
			market_data TEXT,
			latitude REAL,
			longitude REAL,
			assigned_agent_id TEXT REFERENCES agents(id) ON DELETE SET NULL,
			search_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ai_insights (
			id TEXT PRIMARY KEY,
			property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			insight_type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			confidence_score REAL NOT NULL DEFAULT 0,
			ai_model TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'new',
			assigned_agent_id TEXT REFERENCES agents(id) ON DELETE SET NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		// Composite equality index for the structured filters.
		`CREATE INDEX IF NOT EXISTS idx_properties_location
			ON properties(city, state, property_type)`,
		// Range index for price bounds.
		`CREATE INDEX IF NOT EXISTS idx_properties_list_price
			ON properties(list_price)`,
		// Recency index for the ranking tie-break and default ordering.
		`CREATE INDEX IF NOT EXISTS idx_properties_created_at
			ON properties(created_at)`,
		// Text blob backing the similarity ranking.
		`CREATE INDEX IF NOT EXISTS idx_properties_search_text
			ON properties(search_text)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_coordinates
			ON properties(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_assigned_agent
			ON properties(assigned_agent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ai_insights_property
			ON ai_insights(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_assigned_agent
			ON leads(assigned_agent_id)`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
