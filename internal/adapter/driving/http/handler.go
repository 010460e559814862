// Package httphandler serves repository metadata over a JSON REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/repometa/internal/application"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

const (
	defaultContributorLimit = 30
	maxContributorLimit     = 100
	defaultHistoryLimit     = 20
	maxHistoryLimit         = 1000
	maxTokenBodyBytes       = 4 << 10
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	metadata  *application.MetadataService
	snapshots *application.SnapshotService
	clients   *application.ClientProvider
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler creates a Handler. snapshots may be nil, in which case the
// access snapshot endpoint is not registered.
func NewHandler(
	metadata *application.MetadataService,
	snapshots *application.SnapshotService,
	clients *application.ClientProvider,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		metadata:  metadata,
		snapshots: snapshots,
		clients:   clients,
		logger:    logger,
		now:       time.Now,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}", h.GetRepository)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/contributors", h.ListContributors)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/history", h.ListHistory)
	mux.HandleFunc("GET /api/v1/rate_limit", h.GetRateLimit)
	mux.HandleFunc("PUT /api/v1/auth/token", h.SetToken)
	mux.HandleFunc("DELETE /api/v1/auth/token", h.ClearToken)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	if h.snapshots != nil {
		mux.HandleFunc("GET /api/v1/snapshot", h.GetSnapshot)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetRepository returns live metadata for a repository.
func (h *Handler) GetRepository(w http.ResponseWriter, r *http.Request) {
	meta, err := h.metadata.Repository(r.Context(), r.PathValue("owner"), r.PathValue("repo"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRepositoryResponse(*meta))
}

// ListContributors returns the top contributors of a repository. The optional
// limit query parameter accepts 1..100.
func (h *Handler) ListContributors(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultContributorLimit, maxContributorLimit)
	if !ok {
		return
	}

	contributors, err := h.metadata.Contributors(r.Context(), r.PathValue("owner"), r.PathValue("repo"), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]ContributorResponse, 0, len(contributors))
	for _, c := range contributors {
		resp = append(resp, toContributorResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListHistory returns recorded snapshots of a repository, newest first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultHistoryLimit, maxHistoryLimit)
	if !ok {
		return
	}

	fullName := r.PathValue("owner") + "/" + r.PathValue("repo")
	snaps, err := h.metadata.History(r.Context(), fullName, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]SnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		resp = append(resp, toSnapshotResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRateLimit returns the current core API quota.
func (h *Handler) GetRateLimit(w http.ResponseWriter, r *http.Request) {
	status, err := h.metadata.RateLimit(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRateLimitResponse(*status))
}

// GetSnapshot returns the owner-grouped access snapshot, generating it when
// none exists. refresh=true forces regeneration.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	refresh, err := strconv.ParseBool(r.URL.Query().Get("refresh"))
	if err != nil && r.URL.Query().Has("refresh") {
		writeError(w, http.StatusBadRequest, "invalid_argument", "refresh must be a boolean")
		return
	}

	load := h.snapshots.LoadOrGenerate
	if refresh {
		load = h.snapshots.Generate
	}

	snap, err := load(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccessResponse(snap))
}

// SetToken stores a GitHub token and switches the client to it.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req SetTokenRequest
	body := http.MaxBytesReader(w, r.Body, maxTokenBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_argument", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}

	if err := h.metadata.SetToken(r.Context(), req.Token); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearToken removes the stored GitHub token.
func (h *Handler) ClearToken(w http.ResponseWriter, r *http.Request) {
	if err := h.metadata.ClearToken(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response. It never calls GitHub.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Time:          h.now().UTC().Format(time.RFC3339),
		Authenticated: h.clients.HasClient(),
		History:       h.metadata.HistoryEnabled(),
	})
}

// writeServiceError maps client and service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var rateErr *driven.RateLimitError

	switch {
	case errors.As(err, &rateErr):
		setRateLimitHeaders(w, rateErr, h.now())
		writeError(w, http.StatusTooManyRequests, "rate_limit", err.Error())
	case errors.Is(err, driven.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, driven.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "repository not found")
	case errors.Is(err, driven.ErrAuth):
		writeError(w, http.StatusUnauthorized, "auth", err.Error())
	case errors.Is(err, driven.ErrTransport), errors.Is(err, driven.ErrUnexpectedResponse):
		h.logger.Warn("GitHub request failed", "error", err)
		writeError(w, http.StatusBadGateway, "transport", err.Error())
	case errors.Is(err, application.ErrNoClient):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	case errors.Is(err, application.ErrHistoryDisabled), errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusNotImplemented, "not_configured", err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// setRateLimitHeaders mirrors GitHub's quota headers so API clients can back off.
func setRateLimitHeaders(w http.ResponseWriter, e *driven.RateLimitError, now time.Time) {
	hdr := w.Header()
	if e.Status.Limit > 0 {
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(e.Status.Limit))
	}
	hdr.Set("X-RateLimit-Remaining", strconv.Itoa(e.Status.Remaining))
	if !e.Status.Reset.IsZero() {
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(e.Status.Reset.Unix(), 10))
	}

	retry := e.RetryAfter
	if retry <= 0 && !e.Status.Reset.IsZero() {
		retry = e.Status.ResetIn(now)
	}
	if retry > 0 {
		hdr.Set("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
	}
}

// parseLimit reads the limit query parameter. It writes a 400 response and
// returns false when the value is not an integer in 1..maxLimit.
func parseLimit(w http.ResponseWriter, r *http.Request, def, maxLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		writeError(w, http.StatusBadRequest, "invalid_argument",
			"limit must be an integer between 1 and "+strconv.Itoa(maxLimit))
		return 0, false
	}
	return n, true
}
