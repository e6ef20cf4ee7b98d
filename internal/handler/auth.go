package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// AuthHandler bundles the account and session endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
	Sessions *service.SessionStore
}

func NewAuthHandler(a *service.AccountService, s *service.SessionStore) *AuthHandler {
	return &AuthHandler{Accounts: a, Sessions: s}
}

// ----- DTOs -----

type loginReq struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResp struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResp struct {
	ID        uint64     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	IPAddress *string    `json:"ip_address,omitempty"`
	UserAgent *string    `json:"user_agent,omitempty"`
	Current   bool       `json:"current"`
}

type loginResp struct {
	Token   string      `json:"token"`
	Account accountResp `json:"account"`
}

func toAccountResp(a *model.Account) accountResp {
	return accountResp{
		ID: a.ID, Email: a.Email, Username: a.Username,
		FirstName: a.FirstName, LastName: a.LastName, CreatedAt: a.CreatedAt,
	}
}

// Register opens an account.  It does not log the caller in.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	acc, err := h.Accounts.Register(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toAccountResp(acc))
}

// Login checks credentials and issues a new session token.  The raw token
// is returned once, in the body and as an HttpOnly cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	login := req.Login
	if login == "" {
		login = req.Email
	}
	ctx := c.Request().Context()
	acc, err := h.Accounts.Authenticate(ctx, login, req.Password)
	if err != nil {
		if service.KindOf(err) == service.KindInvalidCredentials {
			metrics.SessionEvent("login_failed", 1)
		}
		return writeError(c, err)
	}
	token, err := h.Sessions.Issue(ctx, acc.ID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return writeError(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, loginResp{Token: token, Account: toAccountResp(acc)})
}

// Logout revokes the session the request authenticated with.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Sessions.Revoke(c.Request().Context(), middleware.SessionToken(c)); err != nil {
		return writeError(c, err)
	}
	clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every active session of the caller's account.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	id, _ := middleware.AccountID(c)
	n, err := h.Sessions.RevokeAll(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	clearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	id, _ := middleware.AccountID(c)
	acc, err := h.Accounts.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResp(acc))
}

// ListSessions lists the caller's active sessions, newest first.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	id, _ := middleware.AccountID(c)
	list, err := h.Sessions.ListActive(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	var current uint64
	if s := middleware.Session(c); s != nil {
		current = s.ID
	}
	out := make([]sessionResp, 0, len(list))
	for _, s := range list {
		out = append(out, sessionResp{
			ID: s.ID, CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt,
			IPAddress: s.IPAddress, UserAgent: s.UserAgent, Current: s.ID == current,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
