package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gouveags/moviescore/cmd/identity"
	"github.com/gouveags/moviescore/cmd/internal/auth/account"
)

// Handler wires the auth HTTP routes to the account service.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth *account.Service

	audit    AuditSink
	limiter  Limiter
	metrics  *Metrics
	validate *validator.Validate
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditSink records auth events. Without one, auditing is off.
func WithAuditSink(sink AuditSink) HandlerOption {
	return func(h *Handler) {
		if h == nil || sink == nil {
			return
		}
		h.audit = sink
	}
}

// WithLimiter overrides the default in-memory throttle.
func WithLimiter(l Limiter) HandlerOption {
	return func(h *Handler) {
		if h == nil || l == nil {
			return
		}
		h.limiter = l
	}
}

// WithMetrics sets the auth event counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// WithClock overrides time.Now for throttling and audit timestamps.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *account.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("auth: nil account service")
	}
	if log == nil {
		log = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = def.AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = def.RefreshTTL
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		auth:     svc,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if cfg.ThrottleMax > 0 && cfg.ThrottleWindow > 0 {
		h.limiter = NewMemoryLimiter(cfg.ThrottleMax, cfg.ThrottleWindow)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	return h, nil
}

// Register mounts the auth routes under /api/auth.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}
	r.Route("/api/auth", func(r chi.Router) {
		r.With(h.throttle("register")).Post("/register", h.handleRegister)
		r.With(h.throttle("login")).Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)

		r.With(h.throttle("recovery")).Post("/recovery/request", h.handleRecoveryRequest)
		r.With(h.throttle("recovery")).Post("/recovery/confirm", h.handleRecoveryConfirm)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.handleMe)
			r.Post("/2fa/setup", h.handleTwoFactorSetup)
			r.With(h.throttle("2fa")).Post("/2fa/enable", h.handleTwoFactorEnable)
			r.With(h.throttle("2fa")).Post("/2fa/disable", h.handleTwoFactorDisable)
		})
	})
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.readRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	res, err := h.auth.Register(ctx, account.RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	h.metrics.event("register", kindLabel(err))
	if err != nil {
		h.writeAuthError(w, "auth.register", err)
		return
	}

	h.auditSignedIn(ctx, "auth.register", r, res.User.UserID, res.Session.SessionID)
	h.setSessionCookies(w, res.Session)
	writeJSON(w, http.StatusCreated, userEnvelope{User: toUserResponse(res.User)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.readRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	res, err := h.auth.Login(ctx, account.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		TOTPCode:     req.TOTPCode,
		RecoveryCode: req.RecoveryCode,
	})
	h.metrics.event("login", kindLabel(err))
	if err != nil {
		h.auditLoginFailed(ctx, r, req.Email, err)
		h.writeAuthError(w, "auth.login", err)
		return
	}

	h.auditSignedIn(ctx, "auth.login.success", r, res.User.UserID, res.Session.SessionID)
	h.setSessionCookies(w, res.Session)
	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(res.User)})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := cookieValue(r, RefreshCookieName)
	if refreshToken == "" {
		h.metrics.event("refresh", identity.ErrUnauthorized.Error())
		writeError(w, http.StatusUnauthorized, identity.ErrUnauthorized.Error(), "Missing refresh token.")
		return
	}

	ctx := r.Context()
	res, err := h.auth.Refresh(ctx, refreshToken)
	h.metrics.event("refresh", kindLabel(err))
	if err != nil {
		h.clearSessionCookies(w)
		h.writeAuthError(w, "auth.refresh", err)
		return
	}

	h.auditSignedIn(ctx, "auth.refresh.success", r, res.User.UserID, res.Session.SessionID)
	h.setSessionCookies(w, res.Session)
	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(res.User)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.auth.Logout(ctx, cookieValue(r, RefreshCookieName))
	h.metrics.event("logout", kindLabel(err))

	h.clearSessionCookies(w)
	if err != nil {
		h.writeAuthError(w, "auth.logout", err)
		return
	}

	h.insertAudit(ctx, "auth.logout", nil, nil, r, nil)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := profileFrom(r.Context())
	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(user)})
}

func (h *Handler) handleRecoveryRequest(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if !h.readRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	res, err := h.auth.RequestPasswordReset(ctx, req.Email)
	h.metrics.event("reset_request", kindLabel(err))
	if err != nil {
		h.writeAuthError(w, "auth.reset.request", err)
		return
	}

	h.insertAudit(ctx, "auth.reset.requested", nil, nil, r, map[string]any{
		"identifier": identity.NormalizeEmail(req.Email),
	})
	writeJSON(w, http.StatusOK, recoveryRequestResponse{OK: true, ResetToken: res.ResetToken})
}

func (h *Handler) handleRecoveryConfirm(w http.ResponseWriter, r *http.Request) {
	var req recoveryConfirmRequest
	if !h.readRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	err := h.auth.ConfirmPasswordReset(ctx, account.ConfirmPasswordResetInput{
		ResetToken:  req.ResetToken,
		NewPassword: req.NewPassword,
	})
	h.metrics.event("reset_confirm", kindLabel(err))
	if err != nil {
		h.writeAuthError(w, "auth.reset.confirm", err)
		return
	}

	h.insertAudit(ctx, "auth.reset.completed", nil, nil, r, nil)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := profileFrom(ctx)

	setup, err := h.auth.SetupTwoFactor(ctx, user.UserID)
	h.metrics.event("2fa_setup", kindLabel(err))
	if err != nil {
		h.writeAuthError(w, "auth.2fa.setup", err)
		return
	}

	h.auditUser(ctx, "auth.2fa.setup", r, user.UserID)
	writeJSON(w, http.StatusOK, twoFactorSetupResponse{SetupSecret: setup.Secret, OTPAuthURL: setup.OTPAuthURL})
}

func (h *Handler) handleTwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	var req totpRequest
	if !h.readRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	user, _ := profileFrom(ctx)

	codes, err := h.auth.EnableTwoFactor(ctx, user.UserID, req.TOTPCode)
	h.metrics.event("2fa_enable", kindLabel(err))
	if err != nil {
		h.writeAuthError(w, "auth.2fa.enable", err)
		return
	}

	h.auditUser(ctx, "auth.2fa.enabled", r, user.UserID)
	writeJSON(w, http.StatusOK, recoveryCodesResponse{RecoveryCodes: codes})
}

func (h *Handler) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	var req totpRequest
	if !h.readRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	user, _ := profileFrom(ctx)

	err := h.auth.DisableTwoFactor(ctx, user.UserID, req.TOTPCode)
	h.metrics.event("2fa_disable", kindLabel(err))
	if err != nil {
		h.writeAuthError(w, "auth.2fa.disable", err)
		return
	}

	h.auditUser(ctx, "auth.2fa.disabled", r, user.UserID)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// ---- helpers ----

type ctxKey int

const profileKey ctxKey = iota

// requireAuth resolves the access cookie to a profile or answers 401.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := cookieValue(r, AccessCookieName)
		if token == "" {
			writeError(w, http.StatusUnauthorized, identity.ErrUnauthorized.Error(), "Not authenticated.")
			return
		}
		user, err := h.auth.AuthenticateAccessToken(r.Context(), token)
		if err != nil {
			h.writeAuthError(w, "auth.authenticate", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey, user)))
	})
}

func profileFrom(ctx context.Context) (identity.Profile, bool) {
	p, ok := ctx.Value(profileKey).(identity.Profile)
	return p, ok
}
