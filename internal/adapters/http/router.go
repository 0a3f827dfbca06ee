package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/lmco/eurekastreams-sub009/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	sessionCookieName = "eureka_session"
	maxActionBody     = 10 << 20
)

type contextKey string

const principalKey contextKey = "principal"

type Options struct {
	SessionTTL     time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	SecureCookies  bool
}

type Handler struct {
	service *application.Service
	exec    *application.Executor
	limiter *RateLimiter
	opts    Options
	log     *logrus.Entry
}

func NewRouter(service *application.Service, exec *application.Executor, log logrus.FieldLogger, opts Options) http.Handler {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 40
	}
	h := &Handler{
		service: service,
		exec:    exec,
		limiter: NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, log),
		opts:    opts,
		log:     logging.Component(log, "http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	r.With(h.limiter.Handler).Get("/resources/avatar/{key}", h.handleAvatar)

	r.Route("/api", func(api chi.Router) {
		api.With(h.limiter.Handler).Post("/auth/login", h.handleAPILogin)
		api.Group(func(authed chi.Router) {
			authed.Use(h.requireAuth, h.limiter.Handler)
			authed.Get("/auth/whoami", h.handleAPIWhoAmI)
			authed.Post("/auth/logout", h.handleAPILogout)
			authed.Get("/actions", h.handleListActions)
			authed.Post("/actions/{name}", h.handleAction)
		})
	})

	r.Route("/resources", func(res chi.Router) {
		res.Use(h.requireAuth, h.limiter.Handler)
		res.Get("/person/{accountId}", h.resource(application.ActionGetPerson, pathParams("accountId")))
		res.Get("/person/{accountId}/followers", h.resource(application.ActionGetFollowers, pathParams("accountId")))
		res.Get("/person/{accountId}/following", h.resource(application.ActionGetFollowing, pathParams("accountId")))
		res.Get("/person/{accountId}/jobs", h.resource(application.ActionGetJobs, pathParams("accountId")))
		res.Get("/person/{accountId}/enrollments", h.resource(application.ActionGetEnrollments, pathParams("accountId")))
		res.Get("/person/{accountId}/recommendations", h.resource(application.ActionGetRecommendations, pathParams("accountId")))
		res.Get("/person/{accountId}/background", h.resource(application.ActionGetBackground, pathParams("accountId")))
		res.Get("/organization/{shortName}", h.resource(application.ActionGetOrganization, pathParams("shortName")))
		res.Get("/organization/{shortName}/children", h.resource(application.ActionGetOrganizationChildren, pathParams("shortName")))
		res.Get("/group/{shortName}", h.resource(application.ActionGetGroup, pathParams("shortName")))
		res.Get("/groups/pending", h.resource(application.ActionGetPendingGroups, nil))
		res.Get("/stream/{scopeType}/{uniqueKey}", h.resource(application.ActionGetStream, streamParams))
		res.Get("/atom/stream/{scopeType}/{uniqueKey}", h.handleAtomStream)
		res.Get("/notifications", h.resource(application.ActionGetNotifications, notificationParams))
		res.Get("/search", h.resource(application.ActionSearchDirectory, searchParams))
		res.Get("/usage", h.resource(application.ActionGetUsageMetricSummary, usageParams))
		res.Get("/settings", h.resource(application.ActionGetSystemSettings, nil))
	})

	return r
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.authenticateRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Principal, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[7:])
		if p, err := h.service.AuthenticateBearerToken(r.Context(), token); err == nil {
			return p, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		if p, err := h.service.AuthenticateSession(r.Context(), c.Value); err == nil {
			return p, true
		}
	}
	return domain.Principal{}, false
}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

type apiLoginRequest struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
}

func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	if mode == "session" {
		p, token, err := h.service.LoginWithSession(r.Context(), req.Login, req.Password, h.opts.SessionTTL)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"person_id": p.PersonID, "account_id": p.AccountID, "mode": "session"})
		return
	}

	p, token, err := h.service.LoginWithAPIToken(r.Context(), req.Login, req.Password, req.TokenName, nil)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"person_id": p.PersonID, "account_id": p.AccountID, "token": token, "mode": "token"})
}

func (h *Handler) handleAPIWhoAmI(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"person_id": p.PersonID, "account_id": p.AccountID, "permissions": p.PermissionList()})
}

func (h *Handler) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		if err := h.service.LogoutSession(r.Context(), c.Value); err != nil {
			h.log.WithError(err).Warn("logout failed")
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": h.exec.Names()})
}

// handleAction runs any registered action with the request body as its params.
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "cannot read body"})
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 && !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	result, err := h.exec.Execute(r.Context(), chi.URLParam(r, "name"), p, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.service.AvatarImage(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
