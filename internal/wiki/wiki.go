// Package wiki looks up topic summaries on the Wikipedia REST API. It
// backs the quick-facts card next to search results.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://en.wikipedia.org/api/rest_v1"

// Summary is the lead section of one Wikipedia article.
type Summary struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{client: &http.Client{Timeout: timeout}, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL is for tests pointing at a fake server.
func NewClientWithBaseURL(baseURL string, timeout time.Duration) *Client {
	c := NewClient(timeout)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Lookup fetches the summary for topic. A missing article returns an
// error; callers treat the card as optional.
func (c *Client) Lookup(ctx context.Context, topic string) (Summary, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Summary{}, fmt.Errorf("wiki: empty topic")
	}
	title := strings.ReplaceAll(topic, " ", "_")
	endpoint := c.baseURL + "/page/summary/" + url.PathEscape(title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Summary{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("wiki lookup %q: %w", topic, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Summary{}, fmt.Errorf("wiki: no article for %q", topic)
	}
	if resp.StatusCode != http.StatusOK {
		return Summary{}, fmt.Errorf("wiki lookup %q: %s", topic, resp.Status)
	}

	var raw struct {
		Title     string `json:"title"`
		Extract   string `json:"extract"`
		Thumbnail struct {
			Source string `json:"source"`
		} `json:"thumbnail"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Summary{}, fmt.Errorf("wiki decode: %w", err)
	}
	return Summary{
		Title:     raw.Title,
		Extract:   raw.Extract,
		URL:       raw.ContentURLs.Desktop.Page,
		Thumbnail: raw.Thumbnail.Source,
	}, nil
}
