package models

// OptimizationRun is the persisted summary of one optimization session.
// It is written when a session produces results, fails, is applied or closed.
type OptimizationRun struct {
	// ID is the session ID (UUID format).
	ID string `json:"id"`

	// UserID is the authenticated caller, empty for anonymous sessions.
	UserID string `json:"user_id,omitempty"`

	// ListID is the shopping list the items came from, if known.
	ListID string `json:"list_id,omitempty"`

	// State is the session state at the time of the write.
	State string `json:"state"`

	// Outcome is "plan", "no_viable_plan" or empty when no run finished.
	Outcome string `json:"outcome,omitempty"`

	CandidateStores int `json:"candidate_stores"`
	FailedStores    int `json:"failed_stores"`

	TotalPotentialSavings float64 `json:"total_potential_savings"`

	// AppliedItems and FailedItems count write-back results after acceptance.
	AppliedItems int `json:"applied_items"`
	FailedItems  int `json:"failed_items"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}
