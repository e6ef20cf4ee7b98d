package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// Context keys set by SessionAuth.
const (
	CtxAccountID    = "account_id"
	CtxSessionToken = "session_token"
	CtxSession      = "session"
)

// SessionCookie is read when no Authorization header is sent.
const SessionCookie = "session_token"

// SessionValidator resolves a bearer token to its session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.SessionInfo, error)
}

// RequireSession rejects requests without a usable session.
func RequireSession(v SessionValidator) echo.MiddlewareFunc { return sessionAuth(v, true) }

// OptionalSession authenticates when a token is presented and lets
// anonymous requests through.  A presented but unusable token is still
// rejected so clients notice a stale login.
func OptionalSession(v SessionValidator) echo.MiddlewareFunc { return sessionAuth(v, false) }

func sessionAuth(v SessionValidator, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				if required {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
				}
				return next(c)
			}
			info, err := v.Validate(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, service.ErrNoSession) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
				}
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable"})
			}
			c.Set(CtxAccountID, info.AccountID)
			c.Set(CtxSessionToken, raw)
			c.Set(CtxSession, info)
			req := c.Request()
			c.SetRequest(req.WithContext(logger.ContextWithAccountID(req.Context(), info.AccountID)))
			return next(c)
		}
	}
}

// AccountID returns the authenticated account, if any.
func AccountID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxAccountID).(uint64)
	return id, ok
}

// Session returns the validated session, if any.
func Session(c echo.Context) *model.SessionInfo {
	s, _ := c.Get(CtxSession).(*model.SessionInfo)
	return s
}

// SessionToken returns the raw token the request authenticated with.
func SessionToken(c echo.Context) string {
	s, _ := c.Get(CtxSessionToken).(string)
	return s
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}
