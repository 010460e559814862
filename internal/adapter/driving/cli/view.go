package cli

import (
	"time"

	"github.com/ericfisherdev/repometa/internal/domain/model"
)

type repositoryView struct {
	ID            int64  `json:"id" yaml:"id"`
	FullName      string `json:"full_name" yaml:"full_name"`
	Owner         string `json:"owner" yaml:"owner"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	Private       bool   `json:"private" yaml:"private"`
	Visibility    string `json:"visibility" yaml:"visibility"`
	Fork          bool   `json:"fork" yaml:"fork"`
	Archived      bool   `json:"archived" yaml:"archived"`
	Stars         int    `json:"stars" yaml:"stars"`
	HTMLURL       string `json:"html_url" yaml:"html_url"`
	PushedAt      string `json:"pushed_at,omitempty" yaml:"pushed_at,omitempty"`
}

type contributorView struct {
	Login         string `json:"login" yaml:"login"`
	Contributions int    `json:"contributions" yaml:"contributions"`
	Bot           bool   `json:"bot" yaml:"bot"`
}

type snapshotView struct {
	ID         int64          `json:"id" yaml:"id"`
	RecordedAt string         `json:"recorded_at" yaml:"recorded_at"`
	Repository repositoryView `json:"repository" yaml:"repository"`
}

type credentialView struct {
	Service   string `json:"service" yaml:"service"`
	UpdatedAt string `json:"updated_at" yaml:"updated_at"`
}

type rateLimitView struct {
	Resource  string `json:"resource" yaml:"resource"`
	Limit     int    `json:"limit" yaml:"limit"`
	Remaining int    `json:"remaining" yaml:"remaining"`
	Used      int    `json:"used" yaml:"used"`
	Reset     string `json:"reset" yaml:"reset"`
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toRepositoryView(m model.RepositoryMetadata) repositoryView {
	return repositoryView{
		ID:            m.ID,
		FullName:      m.FullName,
		Owner:         m.Owner,
		Name:          m.Name,
		Description:   m.Description,
		DefaultBranch: m.DefaultBranch,
		Private:       m.Private,
		Visibility:    m.Visibility,
		Fork:          m.Fork,
		Archived:      m.Archived,
		Stars:         m.Stars,
		HTMLURL:       m.HTMLURL,
		PushedAt:      timestamp(m.PushedAt),
	}
}

func toRateLimitView(s model.RateLimitStatus) rateLimitView {
	return rateLimitView{
		Resource:  s.Resource,
		Limit:     s.Limit,
		Remaining: s.Remaining,
		Used:      s.Used,
		Reset:     timestamp(s.Reset),
	}
}

func toSnapshotView(s model.Snapshot) snapshotView {
	return snapshotView{
		ID:         s.ID,
		RecordedAt: timestamp(s.RecordedAt),
		Repository: toRepositoryView(s.Metadata),
	}
}
