package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/repometa/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code, kind and message.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// RepositoryResponse is the JSON representation of repository metadata.
type RepositoryResponse struct {
	ID            int64  `json:"id"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Visibility    string `json:"visibility"`
	Fork          bool   `json:"fork"`
	Archived      bool   `json:"archived"`
	Stars         int    `json:"stars"`
	HTMLURL       string `json:"html_url"`
	PushedAt      string `json:"pushed_at,omitempty"`
	FetchedAt     string `json:"fetched_at"`
}

// ContributorResponse is the JSON representation of a contributor.
type ContributorResponse struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	IsBot         bool   `json:"is_bot"`
}

// SnapshotResponse is a recorded metadata snapshot.
type SnapshotResponse struct {
	ID         int64              `json:"id"`
	RecordedAt string             `json:"recorded_at"`
	Repository RepositoryResponse `json:"repository"`
}

// RateLimitResponse is the JSON representation of the API quota.
type RateLimitResponse struct {
	Resource  string `json:"resource"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	Reset     string `json:"reset"`
	Exhausted bool   `json:"exhausted"`
}

// AccessResponse is one entry of the access snapshot.
type AccessResponse struct {
	ID          int64             `json:"id"`
	Visibility  string            `json:"visibility"`
	Permissions model.Permissions `json:"permissions"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Time          string `json:"time"`
	Authenticated bool   `json:"client_configured"`
	History       bool   `json:"history_enabled"`
}

// SetTokenRequest is the JSON body for the set token endpoint.
type SetTokenRequest struct {
	Token string `json:"token"`
}

// formatTime renders t as RFC 3339 in UTC; the zero time renders as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toRepositoryResponse(m model.RepositoryMetadata) RepositoryResponse {
	return RepositoryResponse{
		ID:            m.ID,
		Owner:         m.Owner,
		Name:          m.Name,
		FullName:      m.FullName,
		Description:   m.Description,
		DefaultBranch: m.DefaultBranch,
		Private:       m.Private,
		Visibility:    m.Visibility,
		Fork:          m.Fork,
		Archived:      m.Archived,
		Stars:         m.Stars,
		HTMLURL:       m.HTMLURL,
		PushedAt:      formatTime(m.PushedAt),
		FetchedAt:     formatTime(m.FetchedAt),
	}
}

func toContributorResponse(c model.Contributor) ContributorResponse {
	return ContributorResponse{
		Login:         c.Login,
		Contributions: c.Contributions,
		IsBot:         c.IsBot(),
	}
}

func toSnapshotResponse(s model.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:         s.ID,
		RecordedAt: formatTime(s.RecordedAt),
		Repository: toRepositoryResponse(s.Metadata),
	}
}

func toRateLimitResponse(s model.RateLimitStatus) RateLimitResponse {
	return RateLimitResponse{
		Resource:  s.Resource,
		Limit:     s.Limit,
		Remaining: s.Remaining,
		Used:      s.Used,
		Reset:     formatTime(s.Reset),
		Exhausted: s.Exhausted(),
	}
}

func toAccessResponse(snap model.AccessSnapshot) map[string]map[string]AccessResponse {
	out := make(map[string]map[string]AccessResponse, len(snap))
	for owner, repos := range snap {
		bucket := make(map[string]AccessResponse, len(repos))
		for name, r := range repos {
			bucket[name] = AccessResponse{ID: r.ID, Visibility: r.Visibility, Permissions: r.Permissions}
		}
		out[owner] = bucket
	}
	return out
}
