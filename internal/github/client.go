package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagewright/pagewright/internal/guard"
	"github.com/pagewright/pagewright/internal/logging"
)

// API defaults.
const (
	DefaultBaseURL = "https://api.github.com"

	acceptJSON     = "application/vnd.github+json"
	acceptRaw      = "application/vnd.github.raw+json"
	apiVersion     = "2022-11-28"
	requestTimeout = 30 * time.Second
)

// ErrNotFound marks a missing repository resource.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-success GitHub API response. Its class feeds the
// concurrency guard's probe logging.
type StatusError struct {
	Status int
	Body   string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("github API returned status %d: %s", e.Status, e.Body)
}

// Class implements guard.ClassifiedError.
func (e *StatusError) Class() guard.ErrorClass {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return guard.ClassRateLimit
	case e.Status == http.StatusForbidden && strings.Contains(strings.ToLower(e.Body), "rate limit"):
		return guard.ClassRateLimit
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return guard.ClassAuth
	case e.Status >= 500:
		return guard.ClassTransient
	default:
		return guard.ClassOther
	}
}

// HTTPDoer is the subset of *http.Client the API client uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the API root. Empty means DefaultBaseURL.
	BaseURL string
	// Token is sent as a bearer token when non-empty. Unauthenticated
	// clients work against public repositories at a reduced rate limit.
	Token string
}

// Client calls the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	httpc   HTTPDoer
	log     *logging.Logger
}

// NewClient creates a Client. A nil doer uses a default HTTP client.
func NewClient(cfg ClientConfig, httpc HTTPDoer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   httpc,
		log:     logging.With("component", "github"),
	}
}

// do performs one API request and hands back the body. Callers own the
// returned ReadCloser. 404 maps to ErrNotFound, other non-2xx statuses to
// *StatusError.
func (c *Client) do(ctx context.Context, path, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return resp.Body, nil
}

// getJSON performs a request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.do(ctx, path, acceptJSON)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// RepoInfo is the repository metadata subset the generator consumes.
type RepoInfo struct {
	Name          string   `json:"name"`
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	Homepage      string   `json:"homepage"`
	DefaultBranch string   `json:"default_branch"`
	Language      string   `json:"language"`
	Topics        []string `json:"topics"`
	Stars         int      `json:"stargazers_count"`
}

// Repo fetches repository metadata.
func (c *Client) Repo(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	var info RepoInfo
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Readme fetches the repository README as plain text. Missing READMEs
// return ErrNotFound; callers usually treat that as "no readme".
func (c *Client) Readme(ctx context.Context, owner, repo string) (string, error) {
	body, err := c.do(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo), acceptRaw)
	if err != nil {
		return "", err
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading readme: %w", err)
	}
	return string(content), nil
}

// FileContent fetches one file from the repository's default branch.
func (c *Client) FileContent(ctx context.Context, owner, repo, path string) ([]byte, error) {
	body, err := c.do(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), acceptRaw)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}

// pagesBuild is the wire shape of the latest Pages build.
type pagesBuild struct {
	Status string `json:"status"`
}

// LatestPagesBuild reports the state of the most recent GitHub Pages build
// for the repository. Repositories without Pages report StateNone.
func (c *Client) LatestPagesBuild(ctx context.Context, owner, repo string) (guard.State, error) {
	var build pagesBuild
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/pages/builds/latest", owner, repo), &build)
	if errors.Is(err, ErrNotFound) {
		return guard.StateNone, nil
	}
	if err != nil {
		return guard.StateUnknown, err
	}

	c.log.Debug("pages build status", "repo", owner+"/"+repo, "status", build.Status)
	switch build.Status {
	case "queued", "building":
		return guard.StateInProgress, nil
	case "built":
		return guard.StateComplete, nil
	case "errored":
		// A failed build is finished; it cannot conflict with a new run.
		return guard.StateNone, nil
	default:
		return guard.StateUnknown, nil
	}
}

// DeploymentProbe adapts LatestPagesBuild to the guard's probe shape.
func (c *Client) DeploymentProbe(owner, repo string) guard.ProbeFunc {
	return func(ctx context.Context) (guard.State, error) {
		return c.LatestPagesBuild(ctx, owner, repo)
	}
}
