package models

import "time"

// Agent is an assignable owner of properties and leads. Properties hold a
// weak reference to it: deleting an agent clears the reference instead of
// cascading.
type Agent struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Name        string    `json:"name"`
	AgentType   string    `json:"agent_type"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	Config      AttrBag   `json:"config"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Agent) TableName() string {
	return "agents"
}
