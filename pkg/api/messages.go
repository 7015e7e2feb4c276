package api

import "github.com/mmynk/cartsaver/internal/models"

type CreateSessionRequest struct {
	// ListID loads the list's items from the item store when Items is empty.
	ListID string                `json:"list_id,omitempty"`
	Items  []models.ShoppingItem `json:"items,omitempty"`
}

type SetLocationRequest struct {
	SessionID string          `json:"session_id"`
	Location  models.Location `json:"location"`
}

type OptimizeRequest struct {
	SessionID   string                           `json:"session_id"`
	Constraints map[string]models.ItemConstraint `json:"constraints,omitempty"`
}

// StartSessionRequest creates a session, sets its location and optimizes in one call.
type StartSessionRequest struct {
	ListID      string                           `json:"list_id,omitempty"`
	Items       []models.ShoppingItem            `json:"items,omitempty"`
	Location    *models.Location                 `json:"location"`
	Constraints map[string]models.ItemConstraint `json:"constraints,omitempty"`
}

type AcceptPlanRequest struct {
	SessionID string `json:"session_id"`
}

type RejectPlanRequest struct {
	SessionID string `json:"session_id"`
}

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

type ItemFailure struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// SessionResponse is returned by every session RPC.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`

	// Outcome is "plan" or "no_viable_plan" once a run finished.
	Outcome               string                  `json:"outcome,omitempty"`
	OptimizedGroups       []models.StoreGroup     `json:"optimized_groups,omitempty"`
	TotalPotentialSavings float64                 `json:"total_potential_savings"`
	Warnings              []string                `json:"warnings,omitempty"`
	FailedStores          int                     `json:"failed_stores"`
	CandidateStores       []models.StoreCandidate `json:"candidate_stores,omitempty"`
	ItemCount             int                     `json:"item_count"`

	// Set after AcceptPlan.
	AppliedItems []string      `json:"applied_items,omitempty"`
	SkippedItems []string      `json:"skipped_items,omitempty"`
	FailedItems  []ItemFailure `json:"failed_items,omitempty"`

	// Error is the last run error for sessions in the failed state.
	Error string `json:"error,omitempty"`
}

type ListRunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListRunsResponse struct {
	Runs []*models.OptimizationRun `json:"runs"`
}

func (r *SetLocationRequest) GetSessionID() string { return r.SessionID }
func (r *OptimizeRequest) GetSessionID() string    { return r.SessionID }
func (r *AcceptPlanRequest) GetSessionID() string  { return r.SessionID }
func (r *RejectPlanRequest) GetSessionID() string  { return r.SessionID }
func (r *GetSessionRequest) GetSessionID() string  { return r.SessionID }
func (r *SessionResponse) GetSessionID() string    { return r.SessionID }
