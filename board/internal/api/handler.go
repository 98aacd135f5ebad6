package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pulsestack/pulsestack/board/internal/auth"
	"github.com/pulsestack/pulsestack/board/internal/dashboard"
	"github.com/pulsestack/pulsestack/board/internal/datasource"
	"github.com/pulsestack/pulsestack/board/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	auth        *auth.Service
	datasources *datasource.Service
	dashboards  *dashboard.Service
	renderer    *dashboard.Renderer
	sessionTTL  time.Duration
	mux         *http.ServeMux
}

// New creates a Handler with all routes registered. Routes other than
// health and login sit behind the session middleware.
func New(a *auth.Service, ds *datasource.Service, db *dashboard.Service, r *dashboard.Renderer, sessionTTL time.Duration) http.Handler {
	h := &Handler{
		auth:        a,
		datasources: ds,
		dashboards:  db,
		renderer:    r,
		sessionTTL:  sessionTTL,
		mux:         http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/login", h.login)

	protected := http.NewServeMux()
	protected.HandleFunc("/api/v1/logout", h.logout)
	protected.HandleFunc("/api/v1/password", h.password)
	protected.HandleFunc("/api/v1/datasources", h.datasourceCollection)
	protected.HandleFunc("/api/v1/datasources/", h.datasourceItem) // subtree — extracts {id}
	protected.HandleFunc("/api/v1/dashboards", h.dashboardCollection)
	protected.HandleFunc("/api/v1/dashboards/", h.dashboardItem) // subtree — extracts {id}
	h.mux.Handle("/api/v1/", a.Middleware(protected))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- auth routes ------------------------------------------------------------

// health returns GET /api/v1/health — liveness only, no auth.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// login serves POST /api/v1/login — verifies credentials and sets the
// session cookie. The response says whether the account still runs on its
// seeded default password.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, mustChange, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		jsonErr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	jsonResp(w, http.StatusOK, LoginResponse{MustChangePassword: mustChange})
}

// logout serves POST /api/v1/logout.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if c, err := r.Cookie(auth.SessionCookie); err == nil {
		h.auth.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   auth.SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	jsonResp(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// password serves POST /api/v1/password — rotates the caller's password.
func (h *Handler) password(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	keepToken := ""
	if c, err := r.Cookie(auth.SessionCookie); err == nil {
		keepToken = c.Value
	}

	err := h.auth.ChangePassword(auth.Username(r.Context()), req.OldPassword, req.NewPassword, keepToken)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		jsonErr(w, http.StatusUnauthorized, "old password is incorrect")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// --- data source routes -----------------------------------------------------

// datasourceCollection serves /api/v1/datasources.
func (h *Handler) datasourceCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.datasources.List()
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, list)

	case http.MethodPost:
		var ds store.DataSource
		if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ds.ID = 0
		id, err := h.datasources.Save(r.Context(), ds)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		ds.ID = id
		jsonResp(w, http.StatusCreated, ds)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// datasourceItem serves /api/v1/datasources/{id} and /api/v1/datasources/test.
func (h *Handler) datasourceItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/datasources/")

	if rest == "test" {
		h.datasourceTest(w, r)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid data source id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ds, err := h.datasources.Get(id)
		if errors.Is(err, store.ErrNotFound) {
			jsonErr(w, http.StatusNotFound, "data source not found")
			return
		}
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, ds)

	case http.MethodPut:
		var ds store.DataSource
		if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ds.ID = id
		if _, err := h.datasources.Save(r.Context(), ds); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				jsonErr(w, http.StatusNotFound, "data source not found")
				return
			}
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, ds)

	case http.MethodDelete:
		if err := h.datasources.Delete(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				jsonErr(w, http.StatusNotFound, "data source not found")
				return
			}
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// datasourceTest serves POST /api/v1/datasources/test — connectivity test
// without saving.
func (h *Handler) datasourceTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var ds store.DataSource
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.datasources.Test(r.Context(), ds); err != nil {
		jsonResp(w, http.StatusOK, TestResponse{OK: false, Error: err.Error()})
		return
	}
	jsonResp(w, http.StatusOK, TestResponse{OK: true})
}

// --- dashboard routes -------------------------------------------------------

// dashboardCollection serves /api/v1/dashboards.
func (h *Handler) dashboardCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.dashboards.List()
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, list)

	case http.MethodPost:
		var d dashboard.Dashboard
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		d.ID = 0
		id, err := h.dashboards.Save(d)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		d.ID = id
		jsonResp(w, http.StatusCreated, d)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// dashboardItem serves /api/v1/dashboards/{id} and /api/v1/dashboards/{id}/render.
func (h *Handler) dashboardItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/dashboards/")

	idStr, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid dashboard id")
		return
	}

	if sub == "render" {
		h.dashboardRender(w, r, id)
		return
	}
	if sub != "" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := h.dashboards.Get(id)
		if errors.Is(err, store.ErrNotFound) {
			jsonErr(w, http.StatusNotFound, "dashboard not found")
			return
		}
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, d)

	case http.MethodPut:
		var d dashboard.Dashboard
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		d.ID = id
		if _, err := h.dashboards.Save(d); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				jsonErr(w, http.StatusNotFound, "dashboard not found")
				return
			}
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, d)

	case http.MethodDelete:
		if err := h.dashboards.Delete(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				jsonErr(w, http.StatusNotFound, "dashboard not found")
				return
			}
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// dashboardRender serves GET /api/v1/dashboards/{id}/render.
func (h *Handler) dashboardRender(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rendered, err := h.renderer.Render(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "dashboard not found")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, rendered)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
