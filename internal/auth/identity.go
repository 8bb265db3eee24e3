package auth

// Caller is the identity a request runs as. A nil *Caller means the
// request is anonymous. Every core operation takes the caller explicitly;
// nothing reads identity from ambient state.
type Caller struct {
	UserID string
	// AgentID is set when the identity is linked to an agent record,
	// resolved upstream at token-issue time.
	AgentID string
}

// IsAnonymous reports whether the caller lacks an authenticated identity.
func (c *Caller) IsAnonymous() bool {
	return c == nil || c.UserID == ""
}
