// Package github implements the MetadataClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetadataClient = (*Client)(nil)

// DefaultBaseURL is the public GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com/"

// Options configures the transport stack built by NewClient.
type Options struct {
	// BaseURL overrides the API endpoint (GitHub Enterprise or tests). Empty means DefaultBaseURL.
	BaseURL string
	// Timeout bounds each HTTP exchange. Zero means no client-side timeout.
	Timeout time.Duration
	// HTTPCache enables ETag-based conditional request caching. Off by default:
	// a fresh cached response is served without any outbound request.
	HTTPCache bool
	// WaitSecondaryLimit makes the transport sleep and resend when GitHub
	// signals a secondary rate limit. Off by default, in which case the limit
	// surfaces as a *driven.RateLimitError.
	WaitSecondaryLimit bool
}

// Client implements the driven.MetadataClient port using the go-github library.
type Client struct {
	gh  *gh.Client
	now func() time.Time

	mu       sync.Mutex
	lastRate model.RateLimitStatus
	hasRate  bool
}

// NewClient creates a GitHub API client with the following transport stack,
// outermost first:
//  1. go-github (REST API client with bearer token auth)
//  2. go-github-ratelimit (secondary rate limit sleeping, only if WaitSecondaryLimit)
//  3. httpcache (ETag conditional request caching, only if HTTPCache)
//  4. http.DefaultTransport
func NewClient(token string, opts Options) (*Client, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if opts.HTTPCache {
		cacheTransport := httpcache.NewMemoryCacheTransport()
		cacheTransport.Transport = transport
		transport = cacheTransport
	}

	httpClient := &http.Client{Transport: transport}
	if opts.WaitSecondaryLimit {
		httpClient = github_ratelimit.NewClient(transport)
	}
	httpClient.Timeout = opts.Timeout

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return NewClientWithHTTPClient(httpClient, baseURL, token)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// Tests use it to inject an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u
	client.UserAgent = "repometa"

	return &Client{
		gh:  client,
		now: time.Now,
	}, nil
}

// FetchRepositoryMetadata retrieves descriptive metadata for owner/repo.
func (c *Client) FetchRepositoryMetadata(ctx context.Context, owner, repo string) (*model.RepositoryMetadata, error) {
	if err := validateRepo(owner, repo); err != nil {
		return nil, err
	}

	r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	c.observe(resp)
	if err != nil {
		return nil, classify(fmt.Sprintf("fetching repository %s/%s", owner, repo), err)
	}

	logRateLimit(resp, owner+"/"+repo, 0, 1)

	meta := mapRepository(r, c.now().UTC())
	return &meta, nil
}

// FetchRateLimitStatus returns the core REST quota. The rate_limit endpoint
// does not count against the quota and is answered even when it is exhausted.
func (c *Client) FetchRateLimitStatus(ctx context.Context) (*model.RateLimitStatus, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, classify("fetching rate limit status", err)
	}

	status := model.RateLimitStatus{Resource: "core"}
	if core := limits.GetCore(); core != nil {
		status = mapRate(*core)
	} else if resp != nil {
		status = mapRate(resp.Rate)
	}
	c.record(status)

	return &status, nil
}

// FetchContributors returns the first page of contributors for owner/repo,
// at most limit entries. limit is clamped to [1, 100].
func (c *Client) FetchContributors(ctx context.Context, owner, repo string, limit int) ([]model.Contributor, error) {
	if err := validateRepo(owner, repo); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	opts := &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	}

	contributors, resp, err := c.gh.Repositories.ListContributors(ctx, owner, repo, opts)
	c.observe(resp)
	if err != nil {
		return nil, classify(fmt.Sprintf("listing contributors for %s/%s", owner, repo), err)
	}

	logRateLimit(resp, owner+"/"+repo+"/contributors", 0, len(contributors))

	result := make([]model.Contributor, 0, len(contributors))
	for _, contributor := range contributors {
		if len(result) == limit {
			break
		}
		result = append(result, model.Contributor{
			Login:         contributor.GetLogin(),
			Contributions: contributor.GetContributions(),
			Type:          contributor.GetType(),
		})
	}

	return result, nil
}

// userRepoJSON is the subset of /user/repos entries the access snapshot keeps.
type userRepoJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Private    bool   `json:"private"`
	Owner      struct {
		Login string `json:"login"`
	} `json:"owner"`
	Permissions struct {
		Admin bool `json:"admin"`
		Push  bool `json:"push"`
		Pull  bool `json:"pull"`
	} `json:"permissions"`
}

// FetchUserRepositories lists every repository the authenticated user can
// access, sorted by full name. It handles pagination automatically.
func (c *Client) FetchUserRepositories(ctx context.Context) ([]model.RepositoryAccess, error) {
	page := 1
	var all []model.RepositoryAccess

	for {
		path := fmt.Sprintf("user/repos?per_page=100&page=%d&sort=full_name&direction=asc", page)
		req, err := c.gh.NewRequest(http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("building user repositories request: %w", err)
		}

		var batch []userRepoJSON
		resp, err := c.gh.Do(ctx, req, &batch)
		c.observe(resp)
		if err != nil {
			return nil, classify(fmt.Sprintf("listing user repositories (page %d)", page), err)
		}

		logRateLimit(resp, "user/repos", page, len(batch))

		for _, r := range batch {
			all = append(all, mapUserRepo(r))
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	if all == nil {
		all = []model.RepositoryAccess{}
	}

	return all, nil
}

// LastRateLimit returns the quota reported on the most recent response.
func (c *Client) LastRateLimit() (model.RateLimitStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRate, c.hasRate
}

// observe records the rate limit headers of resp, if it carried any.
func (c *Client) observe(resp *gh.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	c.record(mapRate(resp.Rate))
}

func (c *Client) record(status model.RateLimitStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRate = status
	c.hasRate = true
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)
}

// mapRepository converts a go-github Repository to a domain RepositoryMetadata.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapRepository(r *gh.Repository, fetchedAt time.Time) model.RepositoryMetadata {
	visibility := r.GetVisibility()
	if visibility == "" {
		// Older API versions omit visibility; derive it from the private flag.
		visibility = "public"
		if r.GetPrivate() {
			visibility = "private"
		}
	}

	return model.RepositoryMetadata{
		ID:            r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		Visibility:    visibility,
		Fork:          r.GetFork(),
		Archived:      r.GetArchived(),
		Stars:         r.GetStargazersCount(),
		HTMLURL:       r.GetHTMLURL(),
		PushedAt:      r.GetPushedAt().Time,
		FetchedAt:     fetchedAt,
	}
}

// mapUserRepo converts a /user/repos entry to a domain RepositoryAccess.
func mapUserRepo(r userRepoJSON) model.RepositoryAccess {
	visibility := r.Visibility
	if visibility == "" {
		visibility = "public"
		if r.Private {
			visibility = "private"
		}
	}

	return model.RepositoryAccess{
		ID:         r.ID,
		Owner:      r.Owner.Login,
		Name:       r.Name,
		Visibility: visibility,
		Permissions: model.Permissions{
			Admin: r.Permissions.Admin,
			Push:  r.Permissions.Push,
			Pull:  r.Permissions.Pull,
		},
	}
}

// mapRate converts a go-github Rate to a domain RateLimitStatus.
func mapRate(r gh.Rate) model.RateLimitStatus {
	resource := r.Resource
	if resource == "" {
		resource = "core"
	}
	return model.RateLimitStatus{
		Resource:  resource,
		Limit:     r.Limit,
		Remaining: r.Remaining,
		Used:      r.Used,
		Reset:     r.Reset.Time.UTC(),
	}
}

// validateRepo rejects empty or slash-containing owner and repository names
// before any request is made.
func validateRepo(owner, repo string) error {
	if owner == "" || repo == "" || strings.Contains(owner, "/") || strings.Contains(repo, "/") {
		return fmt.Errorf("invalid repository %q/%q: owner and name must be non-empty: %w", owner, repo, driven.ErrInvalidArgument)
	}
	return nil
}

// SplitFullName splits an "owner/repo" string into its two components.
func SplitFullName(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo: %w", fullName, driven.ErrInvalidArgument)
	}
	return parts[0], parts[1], nil
}
