package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"janusprop/server/internal/auth"
	"janusprop/server/internal/errs"
	"janusprop/server/internal/models"
)

// Agent, insight and lead access. These are sibling entities of the
// property core; the same per-row predicate discipline applies.

func (d *Database) CreateAgent(ctx context.Context, caller *auth.Caller, a *models.Agent) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.AgentType) == "" {
		return fmt.Errorf("%w: name and agent_type are required", errs.ErrInvalidArgument)
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, agent_type, description, is_active, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.AgentType, a.Description, a.IsActive, a.Config, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if constraintViolated(err) {
			return fmt.Errorf("%w: agent %s already exists", errs.ErrInvalidArgument, a.ID)
		}
		return storageErr(err)
	}
	return nil
}

func (d *Database) GetAgent(ctx context.Context, caller *auth.Caller, id string) (*models.Agent, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, agent_type, description, is_active, config, created_at, updated_at
		FROM agents WHERE id = ?`, id)

	var a models.Agent
	err := row.Scan(&a.ID, &a.Name, &a.AgentType, &a.Description, &a.IsActive, &a.Config, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, storageErr(err)
	}
	if !auth.CanReadAgent(caller, &a) {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}

// ListAgents filters per row: an anonymous caller sees an empty list
// rather than an error, so nothing leaks about what exists.
func (d *Database) ListAgents(ctx context.Context, caller *auth.Caller) ([]*models.Agent, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, agent_type, description, is_active, config, created_at, updated_at
		FROM agents ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	agents := []*models.Agent{}
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.AgentType, &a.Description, &a.IsActive, &a.Config, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, storageErr(err)
		}
		if auth.CanReadAgent(caller, &a) {
			agents = append(agents, &a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return agents, nil
}

// DeleteAgent removes the agent row. Properties and leads hold weak
// references: the schema clears assigned_agent_id instead of cascading.
func (d *Database) DeleteAgent(ctx context.Context, caller *auth.Caller, id string) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}

	res, err := d.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateInsight attaches an insight to an existing property. Confidence
// is a normalized score; anything outside [0,1] is malformed input.
func (d *Database) CreateInsight(ctx context.Context, caller *auth.Caller, insight *models.AIInsight) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}
	if insight.ConfidenceScore < 0 || insight.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence_score must be within [0,1]", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(insight.InsightType) == "" || strings.TrimSpace(insight.AIModel) == "" {
		return fmt.Errorf("%w: insight_type and ai_model are required", errs.ErrInvalidArgument)
	}

	// The owning property must exist; for writes the caller is
	// authenticated, so visibility is unconditional.
	if _, err := d.GetProperty(ctx, caller, insight.PropertyID); err != nil {
		return err
	}

	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	insight.CreatedAt = now
	insight.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO ai_insights (id, property_id, insight_type, title, description, confidence_score, ai_model, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insight.ID, insight.PropertyID, insight.InsightType, insight.Title, insight.Description,
		insight.ConfidenceScore, insight.AIModel, insight.IsActive, insight.CreatedAt, insight.UpdatedAt,
	)
	if err != nil {
		if constraintViolated(err) {
			return fmt.Errorf("%w: insight %s violates a constraint", errs.ErrInvalidArgument, insight.ID)
		}
		return storageErr(err)
	}
	return nil
}

// ListInsightsForProperty returns the active insights of a property the
// caller can read. A hidden property yields NotFound, same as an absent
// one.
func (d *Database) ListInsightsForProperty(ctx context.Context, caller *auth.Caller, propertyID string) ([]*models.AIInsight, error) {
	owner, err := d.GetProperty(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, property_id, insight_type, title, description, confidence_score, ai_model, is_active, created_at, updated_at
		FROM ai_insights
		WHERE property_id = ? AND is_active = 1
		ORDER BY created_at DESC, id ASC`, owner.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	insights := []*models.AIInsight{}
	for rows.Next() {
		var ins models.AIInsight
		if err := rows.Scan(&ins.ID, &ins.PropertyID, &ins.InsightType, &ins.Title, &ins.Description,
			&ins.ConfidenceScore, &ins.AIModel, &ins.IsActive, &ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, storageErr(err)
		}
		if auth.CanReadInsight(caller, &ins, owner) {
			insights = append(insights, &ins)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return insights, nil
}

func (d *Database) CreateLead(ctx context.Context, caller *auth.Caller, l *models.Lead) error {
	if !auth.CanWriteProperty(caller) {
		return errs.ErrForbidden
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrInvalidArgument)
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = "new"
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, source, status, assigned_agent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Email, l.Phone, l.Source, l.Status, l.AssignedAgentID, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if constraintViolated(err) {
			return fmt.Errorf("%w: lead %s violates a constraint", errs.ErrInvalidArgument, l.ID)
		}
		return storageErr(err)
	}
	return nil
}

// ListLeads returns leads visible to the caller, optionally narrowed to
// one agent's assignments.
func (d *Database) ListLeads(ctx context.Context, caller *auth.Caller, agentID string) ([]*models.Lead, error) {
	query := `
		SELECT id, name, email, phone, source, status, assigned_agent_id, created_at, updated_at
		FROM leads`
	var args []interface{}
	if agentID != "" {
		query += ` WHERE assigned_agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	leads := []*models.Lead{}
	for rows.Next() {
		var l models.Lead
		var assigned sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Source, &l.Status, &assigned, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, storageErr(err)
		}
		if assigned.Valid {
			l.AssignedAgentID = &assigned.String
		}
		if auth.CanReadLead(caller, &l) {
			leads = append(leads, &l)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return leads, nil
}
