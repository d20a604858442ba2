// Package github lists the change requests of the CI repository through the
// GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"operator-dashboard/src/logger"
	"operator-dashboard/src/provider"
)

const (
	DefaultOwner = "rh-ecosystem-edge"
	DefaultRepo  = "nvidia-ci"
	DefaultBase  = "main"

	perPage = 100
)

// Client lists pull requests. It implements provider.ChangeRequestLister.
type Client struct {
	gh     *gogithub.Client
	owner  string
	repo   string
	base   string
	pages  int
	logger logger.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at another API endpoint (tests, GitHub
// Enterprise).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithBaseBranch selects the target branch of listed pull requests.
func WithBaseBranch(branch string) Option {
	return func(c *Client) error {
		c.base = branch
		return nil
	}
}

// WithPages limits how many pages of 100 pull requests are read. Zero or
// less reads every page.
func WithPages(n int) Option {
	return func(c *Client) error {
		c.pages = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// NewClient creates a client for owner/repo. An empty token gives an
// unauthenticated client with the lower anonymous rate limit.
func NewClient(token, owner, repo string, opts ...Option) (*Client, error) {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}

	c := &Client{
		gh:     gogithub.NewClient(hc),
		owner:  owner,
		repo:   repo,
		base:   DefaultBase,
		pages:  1,
		logger: logger.NewSilentLogger(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ListClosed returns the numbers of closed pull requests against the base
// branch, most recently updated first as returned by the API.
func (c *Client) ListClosed(ctx context.Context) ([]string, error) {
	opts := &gogithub.PullRequestListOptions{
		State:       "closed",
		Base:        c.base,
		ListOptions: gogithub.ListOptions{PerPage: perPage, Page: 1},
	}

	var numbers []string
	for page := 1; ; page++ {
		prs, resp, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list closed pull requests of %s/%s: %w", c.owner, c.repo, mapError(err))
		}
		for _, pr := range prs {
			numbers = append(numbers, strconv.Itoa(pr.GetNumber()))
		}
		if resp == nil || resp.NextPage == 0 || (c.pages > 0 && page >= c.pages) {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Info("[GitHub] found %d closed pull requests in %s/%s", len(numbers), c.owner, c.repo)
	return numbers, nil
}

func mapError(err error) error {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %v", provider.ErrRateLimited, err)
	}
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %v", provider.ErrRateLimited, err)
	}
	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", provider.ErrAuthFailed, err)
	}
	return err
}
