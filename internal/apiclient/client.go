// Package apiclient is a minimal HTTP client for the interest-radar API, used
// by the helper commands and by integration scripts.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "http://localhost:3000"

// Client talks to a running interest-radar server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. If baseURL is empty, it defaults to
// http://localhost:3000.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Interest is an interest post as returned by the API.
type Interest struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Location    struct {
		Lng float64 `json:"lng"`
		Lat float64 `json:"lat"`
	} `json:"location"`
	CreatedAt string `json:"createdAt"`
}

// SetUserLocation saves a user's location, making them eligible as a fanout
// candidate and allowing them to publish.
func (c *Client) SetUserLocation(ctx context.Context, userID string, lng, lat float64) error {
	path := fmt.Sprintf("/v1/users/%s/location", url.PathEscape(userID))
	body := map[string]float64{"lng": lng, "lat": lat}
	if err := c.send(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("set location: %w", err)
	}
	return nil
}

// SetUserInterests replaces a user's declared interest tags.
func (c *Client) SetUserInterests(ctx context.Context, userID string, tags []string) error {
	path := fmt.Sprintf("/v1/users/%s/interests", url.PathEscape(userID))
	body := map[string][]string{"interests": tags}
	if err := c.send(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("set interests: %w", err)
	}
	return nil
}

// PublishInterest creates an interest post for the user, which triggers the
// notification fanout server-side.
func (c *Client) PublishInterest(ctx context.Context, userID, userName, title, description string, tags []string) (*Interest, error) {
	body := map[string]any{
		"userId":      userID,
		"userName":    userName,
		"title":       title,
		"description": description,
		"tags":        tags,
	}

	var resp struct {
		Interest Interest `json:"interest"`
	}
	if err := c.send(ctx, http.MethodPost, "/v1/interests", body, &resp); err != nil {
		return nil, fmt.Errorf("publish interest: %w", err)
	}
	return &resp.Interest, nil
}

// NearbyInterests lists posts within radiusMeters of the given point.
func (c *Client) NearbyInterests(ctx context.Context, lng, lat, radiusMeters float64) ([]Interest, error) {
	q := url.Values{}
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radiusMeters, 'f', -1, 64))

	var resp struct {
		Interests []Interest `json:"interests"`
	}
	if err := c.send(ctx, http.MethodGet, "/v1/interests/nearby?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("nearby interests: %w", err)
	}
	return resp.Interests, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
