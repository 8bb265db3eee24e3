package models

import "time"

// Lead is an independent prospect record, optionally assigned to an agent.
type Lead struct {
	ID              string    `json:"id" gorm:"primaryKey;column:id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Source          string    `json:"source"`
	Status          string    `json:"status"`
	AssignedAgentID *string   `json:"assigned_agent_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}
