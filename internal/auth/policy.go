package auth

import (
	"janusprop/server/internal/models"
)

// Row-visibility policies. Each is a pure function of (caller, row);
// results are computed per request and never cached, since both identity
// and row state can change between calls.
//
// Read rules compose with OR: the most permissive matching rule wins.
// Writes require an authenticated identity.

// CanReadProperty decides read visibility of a single property row. The
// assigned-agent rule stands on its own so that an agent-scoped
// credential carrying no user identity still reaches its own rows.
func CanReadProperty(caller *Caller, p *models.Property) bool {
	if p == nil {
		return false
	}
	if p.PubliclyVisible() {
		return true
	}
	if isAssignedAgent(caller, p.AssignedAgentID) {
		return true
	}
	return !caller.IsAnonymous()
}

// CanWriteProperty decides whether the caller may create, update or
// retire property rows. Permission is flat: any authenticated identity.
func CanWriteProperty(caller *Caller) bool {
	return !caller.IsAnonymous()
}

// CanReadAgent gates agent records to authenticated callers.
func CanReadAgent(caller *Caller, a *models.Agent) bool {
	return a != nil && !caller.IsAnonymous()
}

// CanReadInsight ties insight visibility to the owning property: whoever
// can see the property can see its insights.
func CanReadInsight(caller *Caller, insight *models.AIInsight, owner *models.Property) bool {
	if insight == nil || owner == nil {
		return false
	}
	return CanReadProperty(caller, owner)
}

// CanReadLead gates lead records to authenticated callers; leads carry
// contact details and are never public.
func CanReadLead(caller *Caller, l *models.Lead) bool {
	return l != nil && !caller.IsAnonymous()
}

func isAssignedAgent(caller *Caller, assigned *string) bool {
	if caller == nil || caller.AgentID == "" || assigned == nil {
		return false
	}
	return caller.AgentID == *assigned
}
