// Package googlebooks is a metadata.Source backed by the Google Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bookrec/internal/metadata"

	"golang.org/x/time/rate"
)

const sourceName = "googlebooks"

type Client struct {
	httpClient *http.Client
	apiKey     string
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(apiKey, userAgent string, rps int, timeout time.Duration) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		userAgent:  userAgent,
		baseURL:    "https://www.googleapis.com/books/v1",
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			Categories  []string `json:"categories"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (c *Client) Name() string { return sourceName }

// Lookup queries volumes by ISBN and uses the first hit.
func (c *Client) Lookup(ctx context.Context, isbn string) (*metadata.Record, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &metadata.StatusError{Source: sourceName, Code: resp.StatusCode}
	}

	var body volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", metadata.ErrMalformedResponse, sourceName, err)
	}
	if body.TotalItems == 0 || len(body.Items) == 0 {
		return nil, nil
	}

	info := body.Items[0].VolumeInfo
	return &metadata.Record{
		Description: info.Description,
		Genres:      info.Categories,
	}, nil
}
