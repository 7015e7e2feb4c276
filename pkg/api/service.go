package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// OptimizerServiceName is the fully-qualified name of the service.
const OptimizerServiceName = "cartsaver.v1.OptimizerService"

// Procedure paths, suitable for net/http routing and interceptor filters.
const (
	OptimizerServiceCreateSessionProcedure = "/cartsaver.v1.OptimizerService/CreateSession"
	OptimizerServiceSetLocationProcedure   = "/cartsaver.v1.OptimizerService/SetLocation"
	OptimizerServiceOptimizeProcedure      = "/cartsaver.v1.OptimizerService/Optimize"
	OptimizerServiceStartSessionProcedure  = "/cartsaver.v1.OptimizerService/StartSession"
	OptimizerServiceAcceptPlanProcedure    = "/cartsaver.v1.OptimizerService/AcceptPlan"
	OptimizerServiceRejectPlanProcedure    = "/cartsaver.v1.OptimizerService/RejectPlan"
	OptimizerServiceGetSessionProcedure    = "/cartsaver.v1.OptimizerService/GetSession"
	OptimizerServiceListRunsProcedure      = "/cartsaver.v1.OptimizerService/ListRuns"
)

// OptimizerServiceHandler is implemented by the server.
type OptimizerServiceHandler interface {
	CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[SessionResponse], error)
	SetLocation(context.Context, *connect.Request[SetLocationRequest]) (*connect.Response[SessionResponse], error)
	Optimize(context.Context, *connect.Request[OptimizeRequest]) (*connect.Response[SessionResponse], error)
	StartSession(context.Context, *connect.Request[StartSessionRequest]) (*connect.Response[SessionResponse], error)
	AcceptPlan(context.Context, *connect.Request[AcceptPlanRequest]) (*connect.Response[SessionResponse], error)
	RejectPlan(context.Context, *connect.Request[RejectPlanRequest]) (*connect.Response[SessionResponse], error)
	GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error)
	ListRuns(context.Context, *connect.Request[ListRunsRequest]) (*connect.Response[ListRunsResponse], error)
}

// NewOptimizerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewOptimizerServiceHandler(svc OptimizerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	handlers := map[string]http.Handler{
		OptimizerServiceCreateSessionProcedure: connect.NewUnaryHandler(OptimizerServiceCreateSessionProcedure, svc.CreateSession, opts...),
		OptimizerServiceSetLocationProcedure:   connect.NewUnaryHandler(OptimizerServiceSetLocationProcedure, svc.SetLocation, opts...),
		OptimizerServiceOptimizeProcedure:      connect.NewUnaryHandler(OptimizerServiceOptimizeProcedure, svc.Optimize, opts...),
		OptimizerServiceStartSessionProcedure:  connect.NewUnaryHandler(OptimizerServiceStartSessionProcedure, svc.StartSession, opts...),
		OptimizerServiceAcceptPlanProcedure:    connect.NewUnaryHandler(OptimizerServiceAcceptPlanProcedure, svc.AcceptPlan, opts...),
		OptimizerServiceRejectPlanProcedure:    connect.NewUnaryHandler(OptimizerServiceRejectPlanProcedure, svc.RejectPlan, opts...),
		OptimizerServiceGetSessionProcedure:    connect.NewUnaryHandler(OptimizerServiceGetSessionProcedure, svc.GetSession, opts...),
		OptimizerServiceListRunsProcedure:      connect.NewUnaryHandler(OptimizerServiceListRunsProcedure, svc.ListRuns, opts...),
	}

	return "/" + OptimizerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// OptimizerServiceClient is a client for cartsaver.v1.OptimizerService.
type OptimizerServiceClient interface {
	CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[SessionResponse], error)
	SetLocation(context.Context, *connect.Request[SetLocationRequest]) (*connect.Response[SessionResponse], error)
	Optimize(context.Context, *connect.Request[OptimizeRequest]) (*connect.Response[SessionResponse], error)
	StartSession(context.Context, *connect.Request[StartSessionRequest]) (*connect.Response[SessionResponse], error)
	AcceptPlan(context.Context, *connect.Request[AcceptPlanRequest]) (*connect.Response[SessionResponse], error)
	RejectPlan(context.Context, *connect.Request[RejectPlanRequest]) (*connect.Response[SessionResponse], error)
	GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error)
	ListRuns(context.Context, *connect.Request[ListRunsRequest]) (*connect.Response[ListRunsResponse], error)
}

// NewOptimizerServiceClient constructs a client. baseURL is the server root,
// e.g. http://localhost:8080.
func NewOptimizerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) OptimizerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &optimizerServiceClient{
		createSession: connect.NewClient[CreateSessionRequest, SessionResponse](httpClient, baseURL+OptimizerServiceCreateSessionProcedure, opts...),
		setLocation:   connect.NewClient[SetLocationRequest, SessionResponse](httpClient, baseURL+OptimizerServiceSetLocationProcedure, opts...),
		optimize:      connect.NewClient[OptimizeRequest, SessionResponse](httpClient, baseURL+OptimizerServiceOptimizeProcedure, opts...),
		startSession:  connect.NewClient[StartSessionRequest, SessionResponse](httpClient, baseURL+OptimizerServiceStartSessionProcedure, opts...),
		acceptPlan:    connect.NewClient[AcceptPlanRequest, SessionResponse](httpClient, baseURL+OptimizerServiceAcceptPlanProcedure, opts...),
		rejectPlan:    connect.NewClient[RejectPlanRequest, SessionResponse](httpClient, baseURL+OptimizerServiceRejectPlanProcedure, opts...),
		getSession:    connect.NewClient[GetSessionRequest, SessionResponse](httpClient, baseURL+OptimizerServiceGetSessionProcedure, opts...),
		listRuns:      connect.NewClient[ListRunsRequest, ListRunsResponse](httpClient, baseURL+OptimizerServiceListRunsProcedure, opts...),
	}
}

type optimizerServiceClient struct {
	createSession *connect.Client[CreateSessionRequest, SessionResponse]
	setLocation   *connect.Client[SetLocationRequest, SessionResponse]
	optimize      *connect.Client[OptimizeRequest, SessionResponse]
	startSession  *connect.Client[StartSessionRequest, SessionResponse]
	acceptPlan    *connect.Client[AcceptPlanRequest, SessionResponse]
	rejectPlan    *connect.Client[RejectPlanRequest, SessionResponse]
	getSession    *connect.Client[GetSessionRequest, SessionResponse]
	listRuns      *connect.Client[ListRunsRequest, ListRunsResponse]
}

func (c *optimizerServiceClient) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) SetLocation(ctx context.Context, req *connect.Request[SetLocationRequest]) (*connect.Response[SessionResponse], error) {
	return c.setLocation.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) Optimize(ctx context.Context, req *connect.Request[OptimizeRequest]) (*connect.Response[SessionResponse], error) {
	return c.optimize.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) StartSession(ctx context.Context, req *connect.Request[StartSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.startSession.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) AcceptPlan(ctx context.Context, req *connect.Request[AcceptPlanRequest]) (*connect.Response[SessionResponse], error) {
	return c.acceptPlan.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) RejectPlan(ctx context.Context, req *connect.Request[RejectPlanRequest]) (*connect.Response[SessionResponse], error) {
	return c.rejectPlan.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *optimizerServiceClient) ListRuns(ctx context.Context, req *connect.Request[ListRunsRequest]) (*connect.Response[ListRunsResponse], error) {
	return c.listRuns.CallUnary(ctx, req)
}
