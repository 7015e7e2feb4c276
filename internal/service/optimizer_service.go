package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/cartsaver/internal/middleware"
	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/optimizer"
	"github.com/mmynk/cartsaver/internal/session"
	"github.com/mmynk/cartsaver/internal/storage"
	"github.com/mmynk/cartsaver/pkg/api"
)

// OptimizerService implements the Connect OptimizerService on top of the
// session manager.
type OptimizerService struct {
	sessions *session.Manager
	runs     storage.RunStore
}

var _ api.OptimizerServiceHandler = (*OptimizerService)(nil)

// NewOptimizerService creates a new OptimizerService.
func NewOptimizerService(sessions *session.Manager, runs storage.RunStore) *OptimizerService {
	return &OptimizerService{sessions: sessions, runs: runs}
}

// CreateSession opens a session from inline items or a stored list.
func (s *OptimizerService) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	userID := middleware.GetUserID(ctx)

	v, err := s.sessions.Create(ctx, userID, req.Msg.ListID, req.Msg.Items)
	if err != nil {
		slog.Error("CreateSession failed", "list_id", req.Msg.ListID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toResponse(v)), nil
}

// SetLocation records where the shopper is.
func (s *OptimizerService) SetLocation(ctx context.Context, req *connect.Request[api.SetLocationRequest]) (*connect.Response[api.SessionResponse], error) {
	if err := s.authorize(ctx, req.Msg.SessionID); err != nil {
		return nil, err
	}

	v, err := s.sessions.SetLocation(ctx, req.Msg.SessionID, req.Msg.Location)
	if err != nil {
		slog.Warn("SetLocation failed", "session_id", req.Msg.SessionID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toResponse(v)), nil
}

// Optimize runs the engine for a session with the supplied constraints.
func (s *OptimizerService) Optimize(ctx context.Context, req *connect.Request[api.OptimizeRequest]) (*connect.Response[api.SessionResponse], error) {
	if err := s.authorize(ctx, req.Msg.SessionID); err != nil {
		return nil, err
	}

	slog.Debug("Optimize requested", "session_id", req.Msg.SessionID, "constraints", len(req.Msg.Constraints))
	v, err := s.sessions.Optimize(ctx, req.Msg.SessionID, req.Msg.Constraints)
	if err != nil {
		slog.Error("Optimize failed", "session_id", req.Msg.SessionID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toResponse(v)), nil
}

// StartSession creates a session and optimizes it in one call.
func (s *OptimizerService) StartSession(ctx context.Context, req *connect.Request[api.StartSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	userID := middleware.GetUserID(ctx)

	v, err := s.sessions.Start(ctx, userID, req.Msg.ListID, req.Msg.Items, req.Msg.Location, req.Msg.Constraints)
	if err != nil {
		slog.Error("StartSession failed", "list_id", req.Msg.ListID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Session started",
		"session_id", v.ID,
		"user_id", userID,
		"outcome", v.Result.Outcome,
		"total_potential_savings", v.Result.TotalPotentialSavings,
	)
	return connect.NewResponse(toResponse(v)), nil
}

// AcceptPlan writes the session's plan back to the item store.
func (s *OptimizerService) AcceptPlan(ctx context.Context, req *connect.Request[api.AcceptPlanRequest]) (*connect.Response[api.SessionResponse], error) {
	if err := s.authorize(ctx, req.Msg.SessionID); err != nil {
		return nil, err
	}

	v, err := s.sessions.Accept(ctx, req.Msg.SessionID)
	if err != nil {
		slog.Error("AcceptPlan failed", "session_id", req.Msg.SessionID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toResponse(v)), nil
}

// RejectPlan closes the session without touching any item.
func (s *OptimizerService) RejectPlan(ctx context.Context, req *connect.Request[api.RejectPlanRequest]) (*connect.Response[api.SessionResponse], error) {
	if err := s.authorize(ctx, req.Msg.SessionID); err != nil {
		return nil, err
	}

	v, err := s.sessions.Reject(ctx, req.Msg.SessionID)
	if err != nil {
		slog.Warn("RejectPlan failed", "session_id", req.Msg.SessionID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toResponse(v)), nil
}

// GetSession returns the current state of a session.
func (s *OptimizerService) GetSession(ctx context.Context, req *connect.Request[api.GetSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	if err := s.authorize(ctx, req.Msg.SessionID); err != nil {
		return nil, err
	}

	v, err := s.sessions.Get(req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toResponse(v)), nil
}

// ListRuns returns recorded runs for the caller, newest first.
func (s *OptimizerService) ListRuns(ctx context.Context, req *connect.Request[api.ListRunsRequest]) (*connect.Response[api.ListRunsResponse], error) {
	userID := middleware.GetUserID(ctx)

	runs, err := s.runs.ListRuns(ctx, userID, req.Msg.Limit)
	if err != nil {
		slog.Error("Failed to list runs", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to list runs: %w", err))
	}
	if runs == nil {
		runs = []*models.OptimizationRun{}
	}
	return connect.NewResponse(&api.ListRunsResponse{Runs: runs}), nil
}

// authorize rejects callers that do not own the session. Sessions created
// anonymously are open to everyone.
func (s *OptimizerService) authorize(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	v, err := s.sessions.Get(sessionID)
	if err != nil {
		return toConnectError(err)
	}
	if v.UserID != "" && v.UserID != middleware.GetUserID(ctx) {
		return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("session belongs to another user"))
	}
	return nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, optimizer.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrNoPlan):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrAbandoned), errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, optimizer.ErrApplyFailed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toResponse(v *session.View) *api.SessionResponse {
	resp := &api.SessionResponse{
		SessionID: v.ID,
		State:     string(v.State),
		ItemCount: v.ItemCount,
		Error:     v.Error,
	}

	if r := v.Result; r != nil {
		resp.Outcome = string(r.Outcome)
		resp.TotalPotentialSavings = r.TotalPotentialSavings
		resp.FailedStores = r.FailedStores
		resp.CandidateStores = r.CandidateStores
		for _, w := range r.Warnings {
			resp.Warnings = append(resp.Warnings, string(w))
		}
		if r.Plan != nil {
			resp.OptimizedGroups = r.Plan.Groups
		}
	}

	if a := v.ApplyResult; a != nil {
		resp.AppliedItems = a.Applied
		resp.SkippedItems = a.Skipped
		for _, f := range a.Failed {
			resp.FailedItems = append(resp.FailedItems, api.ItemFailure{ItemID: f.ItemID, Error: f.Error})
		}
		for _, w := range a.Warnings {
			resp.Warnings = append(resp.Warnings, string(w))
		}
	}
	return resp
}
