// Package shotgrid is a small client for the ShotGrid REST API covering the
// entity searches the dashboard needs. Script credentials are exchanged for a
// bearer token with the OAuth2 client-credentials grant.
package shotgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	apiPrefix        = "/api/v1"
	searchMediaType  = "application/vnd+shotgun.api3_array+json"
	defaultPageSize  = 500
	defaultTimeout   = 30 * time.Second
	defaultAttempts  = 3
	defaultBaseDelay = 500 * time.Millisecond
)

type Config struct {
	BaseURL     string
	ScriptName  string
	ScriptKey   string
	PageSize    int
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type Client struct {
	baseURL  string
	http     *http.Client
	pageSize int
	retryCfg retry.Config
}

// Row is one entity from a search result. Attributes holds the requested
// fields and is decoded by the typed helpers.
type Row struct {
	Type       string          `json:"type"`
	ID         int             `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

type searchRequest struct {
	Filters []Filter `json:"filters"`
}

type searchResponse struct {
	Data  []Row `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

func NewClient(ctx context.Context, cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	creds := clientcredentials.Config{
		ClientID:     cfg.ScriptName,
		ClientSecret: cfg.ScriptKey,
		TokenURL:     baseURL + apiPrefix + "/auth/access_token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Token requests go through this client rather than http.DefaultClient.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := creds.Client(ctx)
	httpClient.Timeout = timeout

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}

	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		pageSize: pageSize,
		retryCfg: retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			BackoffPolicy: retry.BackoffExponential,
			IsRetryable:   retryable,
		},
	}
}

// Find runs an entity search and follows pagination until every matching row
// has been read.
func (c *Client) Find(ctx context.Context, entityType string, filters []Filter, fields []string) ([]Row, error) {
	if filters == nil {
		filters = []Filter{}
	}

	body, err := json.Marshal(searchRequest{Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}

	r := retry.New[*searchResponse](c.retryCfg)

	var rows []Row
	for page := 1; ; page++ {
		endpoint := c.searchURL(entityType, fields, page)

		resp, err := r.Do(ctx, func(ctx context.Context) (*searchResponse, error) {
			return c.search(ctx, endpoint, body)
		})
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", entityType, err)
		}

		rows = append(rows, resp.Data...)

		if len(resp.Data) < c.pageSize || resp.Links.Next == "" {
			break
		}
	}

	return rows, nil
}

func (c *Client) searchURL(entityType string, fields []string, page int) string {
	params := url.Values{}
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	params.Set("page[number]", strconv.Itoa(page))
	params.Set("page[size]", strconv.Itoa(c.pageSize))

	return fmt.Sprintf("%s%s/entity/%s/_search?%s", c.baseURL, apiPrefix, collection(entityType), params.Encode())
}

func (c *Client) search(ctx context.Context, endpoint string, body []byte) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", searchMediaType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, data)
	}

	var out searchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &out, nil
}

// collection maps an entity type to its REST collection name, e.g. Task -> tasks.
func collection(entityType string) string {
	return strings.ToLower(entityType) + "s"
}
