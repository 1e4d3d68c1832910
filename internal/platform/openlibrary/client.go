package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookrec/internal/metadata"

	"golang.org/x/time/rate"
)

const sourceName = "openlibrary"

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(userAgent string, rps int, timeout time.Duration) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		baseURL:   "https://openlibrary.org",
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// BookDetails matches api/books?jscmd=data
type BookDetails struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Authors  []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"subjects"`
	Excerpts []struct {
		Text string `json:"text"`
	} `json:"excerpts"`
	// Notes is usually a string but older records carry {type, value}.
	Notes interface{} `json:"notes"`
}

func (c *Client) Name() string { return sourceName }

// Lookup fetches subjects and notes for a single ISBN. A missing bibkey in the
// response means Open Library has no record for it.
func (c *Client) Lookup(ctx context.Context, isbn string) (*metadata.Record, error) {
	bibkey := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json", c.baseURL, url.QueryEscape(bibkey))

	var res map[string]BookDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}

	details, ok := res[bibkey]
	if !ok {
		return nil, nil
	}

	rec := &metadata.Record{Description: formatNotes(details.Notes)}
	if rec.Description == "" && len(details.Excerpts) > 0 {
		rec.Description = strings.TrimSpace(details.Excerpts[0].Text)
	}
	for _, s := range details.Subjects {
		rec.Genres = append(rec.Genres, s.Name)
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &metadata.StatusError{Source: sourceName, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %s: %v", metadata.ErrMalformedResponse, sourceName, err)
	}
	return nil
}

func formatNotes(notes interface{}) string {
	if s, ok := notes.(string); ok {
		return strings.TrimSpace(s)
	}
	if m, ok := notes.(map[string]interface{}); ok {
		if v, ok := m["value"].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
