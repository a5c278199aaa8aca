package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"TopArtistsTracker/internal/config"
	"TopArtistsTracker/internal/ranking"
)

const topArtistsPath = "/v1/me/top/artists"

// Artist is the subset of the Web API artist object the tracker keeps.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type artistPaging struct {
	Items []Artist `json:"items"`
	Next  string   `json:"next"`
	Total int      `json:"total"`
}

// Profile is the current user's public identity.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Name prefers the display name and falls back to the user id.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify returned %d: %s", e.Status, e.Body)
}

// Client calls the Spotify Web API on behalf of one user.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	tokens  oauth2.TokenSource
	logger  *slog.Logger
}

// NewClient builds a rate-limited client authorized by tokens.
func NewClient(cfg config.SpotifyConfig, tokens oauth2.TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.APIBaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		tokens:  tokens,
		logger:  logger,
	}
}

// TopArtists fetches the first page of the user's top artists.
func (c *Client) TopArtists(ctx context.Context, timeRange string, limit int) (ranking.Page[Artist], error) {
	params := map[string]string{
		"time_range": timeRange,
		"limit":      strconv.Itoa(limit),
	}
	return c.fetchPage(ctx, topArtistsPath, params)
}

// Profile returns the authorized user's profile.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/v1/me", nil, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *Client) fetchPage(ctx context.Context, url string, params map[string]string) (ranking.Page[Artist], error) {
	var paging artistPaging
	if err := c.get(ctx, url, params, &paging); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched top artists page", "url", url, "items", len(paging.Items), "total", paging.Total)
	return &artistPage{client: c, paging: paging}, nil
}

func (c *Client) get(ctx context.Context, url string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limit: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("spotify token: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: excerpt(resp.String())}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

const excerptLimit = 512

// excerpt trims body to at most excerptLimit bytes on a rune boundary.
func excerpt(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= excerptLimit {
		return body
	}
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

// artistPage follows the paging object's absolute next URL.
type artistPage struct {
	client *Client
	paging artistPaging
}

func (p *artistPage) Items() ([]Artist, bool) {
	return p.paging.Items, p.paging.Items != nil
}

func (p *artistPage) HasNext() bool {
	return p.paging.Next != ""
}

func (p *artistPage) Next(ctx context.Context) (ranking.Page[Artist], error) {
	return p.client.fetchPage(ctx, p.paging.Next, nil)
}
