package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gouveags/moviescore/cmd/identity"
)

// AuditSink persists audit events. identity.Store satisfies it.
type AuditSink interface {
	AppendAudit(ctx context.Context, ev identity.AuditEvent) error
}

func (h *Handler) auditLoginFailed(ctx context.Context, r *http.Request, email string, err error) {
	action := "auth.login.failed"
	if identity.KindOf(err) == identity.ErrLocked {
		action = "auth.login.locked"
	}
	h.insertAudit(ctx, action, nil, nil, r, map[string]any{
		"identifier": identity.NormalizeEmail(email),
		"reason":     kindLabel(err),
	})
}

func (h *Handler) auditSignedIn(ctx context.Context, action string, r *http.Request, userID, sessionID string) {
	h.insertAudit(ctx, action, &userID, &sessionID, r, nil)
}

func (h *Handler) auditUser(ctx context.Context, action string, r *http.Request, userID string) {
	h.insertAudit(ctx, action, &userID, nil, r, nil)
}

func (h *Handler) insertAudit(ctx context.Context, action string, userID *string, sessionID *string, r *http.Request, meta map[string]any) {
	if h == nil || h.audit == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	ev := identity.AuditEvent{
		Action:    action,
		UserID:    userID,
		SessionID: sessionID,
		Meta:      meta,
		At:        h.now(),
	}
	if r != nil {
		if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
			ev.IP = ip.String()
		}
		ev.UserAgent = strings.TrimSpace(r.UserAgent())
	}

	if err := h.audit.AppendAudit(ctx, ev); err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}
