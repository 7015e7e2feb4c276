package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/cartsaver/internal/auth"
)

// sessionScoped is implemented by session RPC requests and responses.
type sessionScoped interface {
	GetSessionID() string
}

// Interceptors returns the server's interceptor chain. Auth is outermost so
// the caller is known by the time the call is logged. A nil jwtManager
// leaves every caller anonymous.
func Interceptors(jwtManager *auth.JWTManager) []connect.Interceptor {
	var chain []connect.Interceptor
	if jwtManager != nil {
		chain = append(chain, OptionalAuth(jwtManager))
	}
	return append(chain, LoggingInterceptor())
}

// LoggingInterceptor logs one line per RPC. Session RPCs carry the session
// ID, taken from the request or, for calls that open a session, the response.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"user_id", GetUserID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id := sessionID(req, resp, err); id != "" {
				attrs = append(attrs, "session_id", id)
			}

			var connectErr *connect.Error
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal && connectErr.Code() != connect.CodeUnavailable:
				slog.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
			default:
				slog.Error("RPC failed", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}

func sessionID(req connect.AnyRequest, resp connect.AnyResponse, err error) string {
	if m, ok := req.Any().(sessionScoped); ok && m.GetSessionID() != "" {
		return m.GetSessionID()
	}
	if err != nil || resp == nil {
		return ""
	}
	if m, ok := resp.Any().(sessionScoped); ok {
		return m.GetSessionID()
	}
	return ""
}
