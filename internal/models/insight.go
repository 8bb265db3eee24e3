package models

import "time"

// AIInsight belongs to exactly one property and is removed with it when
// the property is destroyed.
type AIInsight struct {
	ID              string    `json:"id" gorm:"primaryKey;column:id"`
	PropertyID      string    `json:"property_id"`
	InsightType     string    `json:"insight_type"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ConfidenceScore float64   `json:"confidence_score"`
	AIModel         string    `json:"ai_model" gorm:"column:ai_model"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (AIInsight) TableName() string {
	return "ai_insights"
}
